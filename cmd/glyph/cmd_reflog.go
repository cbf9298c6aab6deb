package main

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newReflogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reflog [ref]",
		Short: "Show the history of value changes for a branch or HEAD",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			ref := "HEAD"
			if len(args) > 0 {
				ref = args[0]
			}

			return r.WithReaderLock(func() error {
				entries, err := r.Reflog(ref, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, e := range entries {
					fmt.Fprintf(out, "%d %s -> %s: %s\n", e.Timestamp, shortHash(string(e.OldHash)), shortHash(string(e.NewHash)), e.Reason)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries to show (0 = unlimited)")
	return cmd
}

func shortHash(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
