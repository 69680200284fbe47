package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "rm [--cached] <paths...>",
		Short: "Stage the removal of tracked files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			removed, err := r.Remove(args, cached)
			if err != nil {
				return err
			}
			for _, p := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "only unstage; keep the working file")
	return cmd
}
