package main

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Remove objects unreachable from any ref",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			return r.WithWriterLock(func() error {
				kept, removed, err := r.GC()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "kept %d object(s), removed %d object(s)\n", kept, removed)
				return nil
			})
		},
	}
}
