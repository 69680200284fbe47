package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [paths...]",
		Short: "Unstage paths, or everything when none are given",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			removed, err := r.Unstage(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case len(removed) == 0:
				fmt.Fprintln(out, "No files were unstaged")
			case len(args) == 0:
				fmt.Fprintln(out, "Unstaged all files")
			default:
				for _, p := range removed {
					fmt.Fprintf(out, "Unstaged %s\n", p)
				}
			}
			return nil
		},
	}
}
