package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/odvcencio/vcs/pkg/repo"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

const version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(vcserr.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "vcs",
		Short:         "A minimal content-addressed version control system",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(cmd.ErrOrStderr(), verbose, os.Getenv("VCS_LOG_LEVEL"))
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, l))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug events to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newRmCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCommitCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newCatFileCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newReflogCmd())
	root.AddCommand(newArchiveCmd())
	root.AddCommand(newVerifyCmd())

	return root
}

// newLogger builds the stderr logger. --verbose wins over VCS_LOG_LEVEL;
// with neither, only warnings and errors are shown.
func newLogger(w io.Writer, verbose bool, envLevel string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.WarnLevel)

	if lvl := strings.TrimSpace(envLevel); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			return nil, vcserr.Errorf(vcserr.ErrInvalidInput, "VCS_LOG_LEVEL: %v", err)
		}
		l.SetLevel(parsed)
	}
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l, nil
}

type loggerKey struct{}

// cmdLogger returns the logger the root command stored in cmd's context.
func cmdLogger(cmd *cobra.Command) logrus.FieldLogger {
	if ctx := cmd.Context(); ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(logrus.FieldLogger); ok {
			return l
		}
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// openRepo finds the repository containing the working directory.
func openRepo(cmd *cobra.Command) (*repo.Repo, error) {
	r, err := repo.Open(".")
	if err != nil {
		return nil, err
	}
	r.Logger = cmdLogger(cmd)
	return r, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vcs %s\n", version)
		},
	}
}
