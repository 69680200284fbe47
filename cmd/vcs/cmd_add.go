package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <paths...>",
		Short: "Stage files for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			added, err := r.Add(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(added) == 0 {
				fmt.Fprintln(out, "No files added (paths are ignored)")
				return nil
			}
			ix, err := r.ReadIndex()
			if err != nil {
				return err
			}
			for _, p := range added {
				if e, ok := ix.Get(p); ok && !e.Deleted {
					fmt.Fprintf(out, "Added %s\n", p)
				} else {
					fmt.Fprintf(out, "Removed %s\n", p)
				}
			}
			return nil
		},
	}
}
