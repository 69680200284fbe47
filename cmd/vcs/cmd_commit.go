package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/repo"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

func newCommitCmd() *cobra.Command {
	var message string
	var author string
	var sign bool
	var signingKey string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record the staged changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return vcserr.Errorf(vcserr.ErrInvalidInput, "commit message is required (-m)")
			}
			if author != "" {
				if err := object.ValidateHeaderValue("author", author); err != nil {
					return err
				}
			}

			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			var signer repo.CommitSigner
			if sign || signingKey != "" {
				s, keyPath, err := repo.NewSSHCommitSigner(signingKey)
				if err != nil {
					return err
				}
				r.Logger.WithField("key", keyPath).Debug("signing commit")
				signer = s
			}

			h, err := r.CommitWithSigner(message, author, signer)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", commitSummary(r, h, message))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", `override author, "Name <email>" (default: from config)`)
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "SSH private key for signing (default: ~/.ssh/id_ed25519, id_ecdsa, id_rsa)")

	return cmd
}

// commitSummary is the line printed after a successful commit, e.g.
// "[master 1a2b3c4d] first".
func commitSummary(r *repo.Repo, h object.Hash, message string) string {
	branch, err := r.CurrentBranch()
	if err != nil || branch == "" {
		branch = "detached HEAD"
	}
	subject, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return fmt.Sprintf("[%s %s] %s", branch, h.Short(), strings.TrimSpace(subject))
}
