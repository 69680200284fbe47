package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odvcencio/vcs/pkg/object"
)

func newCatFileCmd() *cobra.Command {
	var showType bool
	var showSize bool

	cmd := &cobra.Command{
		Use:   "cat-file <object>",
		Short: "Print the content, type or size of a stored object",
		Long: `Print a stored object. The object may be named by its full hash, a
unique hash prefix of at least four characters, HEAD, or <commit>:<path>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			h, err := r.ResolveObject(args[0])
			if err != nil {
				return err
			}
			obj, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, obj.Type())
				return nil
			case showSize:
				content, err := objectContent(obj)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, len(content))
				return nil
			}
			return printObject(out, obj)
		},
	}

	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the content length")
	cmd.MarkFlagsMutuallyExclusive("type", "size")

	return cmd
}

func printObject(out io.Writer, obj object.Object) error {
	switch o := obj.(type) {
	case *object.TreeObj:
		for _, e := range o.Entries {
			kind := object.TypeBlob
			if e.IsDir() {
				kind = object.TypeTree
			}
			fmt.Fprintf(out, "%s %s %s\t%s\n", e.Mode, kind, e.Hash, e.Name)
		}
		return nil
	default:
		content, err := objectContent(obj)
		if err != nil {
			return err
		}
		_, err = out.Write(content)
		return err
	}
}

func objectContent(obj object.Object) ([]byte, error) {
	switch o := obj.(type) {
	case *object.Blob:
		return object.MarshalBlob(o), nil
	case *object.TreeObj:
		return object.MarshalTree(o)
	case *object.CommitObj:
		return object.MarshalCommit(o), nil
	default:
		return nil, fmt.Errorf("unknown object type %T", obj)
	}
}
