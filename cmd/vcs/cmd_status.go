package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odvcencio/vcs/pkg/repo"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			st, err := r.Status()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printStatus(out io.Writer, st *repo.Status) {
	if st.Branch != "" {
		fmt.Fprintf(out, "On branch %s\n", st.Branch)
	} else {
		fmt.Fprintln(out, "HEAD detached")
	}
	if !st.HasCommits {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "No commits yet")
	}

	if st.IsClean() {
		fmt.Fprintln(out)
		if st.HasCommits {
			fmt.Fprintln(out, "nothing to commit, working tree clean")
		} else {
			fmt.Fprintln(out, "nothing to commit (create/copy files and use \"vcs add\" to track)")
		}
		return
	}

	if st.HasStaged() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Changes to be committed:")
		printPaths(out, "new file:   ", st.StagedNew)
		printPaths(out, "modified:   ", st.StagedModified)
		printPaths(out, "deleted:    ", st.StagedDeleted)
	}

	if len(st.Modified) > 0 || len(st.Deleted) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Changes not staged for commit:")
		printPaths(out, "modified:   ", st.Modified)
		printPaths(out, "deleted:    ", st.Deleted)
	}

	if len(st.Untracked) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Untracked files:")
		printPaths(out, "", st.Untracked)
	}
}

func printPaths(out io.Writer, label string, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(out, "\t%s%s\n", label, p)
	}
}
