package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newArchiveCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "archive [commit]",
		Short: "Write a commit's files as a zstd-compressed tar",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			h, err := r.ResolveObject(rev)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				tmp, err := os.CreateTemp(filepath.Dir(output), ".archive-tmp-*")
				if err != nil {
					return fmt.Errorf("archive: %w", err)
				}
				defer func() {
					if err != nil {
						tmp.Close()
						os.Remove(tmp.Name())
					}
				}()
				w = tmp

				n, err := r.WriteArchive(w, h)
				if err != nil {
					return err
				}
				if err := tmp.Close(); err != nil {
					return fmt.Errorf("archive: close: %w", err)
				}
				if err := os.Rename(tmp.Name(), output); err != nil {
					return fmt.Errorf("archive: rename: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d file(s) from %s to %s\n", n, h.Short(), output)
				return nil
			}

			_, err = r.WriteArchive(w, h)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the archive to FILE instead of stdout")
	return cmd
}
