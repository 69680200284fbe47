package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/vcs/pkg/repo"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

func newConfigCmd() *cobra.Command {
	var global bool
	var list bool

	cmd := &cobra.Command{
		Use:   "config [key [value]]",
		Short: "Get or set user.name and user.email",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Outside a repository only the global file is available.
			var r *repo.Repo
			if opened, err := openRepo(cmd); err == nil {
				r = opened
			} else if !vcserr.Is(err, vcserr.ErrNotFound) {
				return err
			}
			cs := repo.NewConfigStore(r)
			out := cmd.OutOrStdout()

			switch {
			case list || len(args) == 0:
				items, err := cs.List()
				if err != nil {
					return err
				}
				for _, it := range items {
					fmt.Fprintf(out, "%s=%s\n", it.Key, it.Value)
				}
				return nil
			case len(args) == 1:
				v, err := cs.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
				return nil
			default:
				return cs.Set(args[0], args[1], global)
			}
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to ~/.vcsconfig instead of the repository")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list all set keys")

	return cmd
}
