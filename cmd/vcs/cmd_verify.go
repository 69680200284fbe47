package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify object integrity, reachability and commit signatures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			report, err := r.Verify()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out,
				"ok: verified %d object(s) (%d blob, %d tree, %d commit); %d reachable from %d ref(s)\n",
				report.Store.Objects,
				report.Store.Blobs,
				report.Store.Trees,
				report.Store.Commits,
				report.Reachable,
				report.Refs,
			)
			for _, s := range report.Signed {
				fmt.Fprintf(out, "good signature on %s by %s\n", s.Hash.Short(), s.Fingerprint)
			}
			return nil
		},
	}
}
