package main

import (
	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "checkout <committish>",
		Short: "Switch the working tree and HEAD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.WithWriterLock(func() error { return r.Checkout(args[0], force) })
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "discard uncommitted changes that would be lost")
	return cmd
}
