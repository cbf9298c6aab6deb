package main

import (
	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	var keepWorktree bool

	cmd := &cobra.Command{
		Use:   "rm <paths...>",
		Short: "Remove files from the index and working tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.WithWriterLock(func() error { return r.Rm(args, keepWorktree) })
		},
	}
	cmd.Flags().BoolVar(&keepWorktree, "cached", false, "only unstage, leave the file on disk")
	return cmd
}
