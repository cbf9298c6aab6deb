package main

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log [committish]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			start := "HEAD"
			if len(args) > 0 {
				start = args[0]
			}

			return r.WithReaderLock(func() error {
				h, err := r.ResolveCommittish(start)
				if err != nil {
					return err
				}
				log, err := r.Log(h, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, rec := range log {
					id := object.HashObject(object.TypeCommit, object.MarshalCommit(rec))
					fmt.Fprintf(out, "commit %s\n", id)
					fmt.Fprintf(out, "Author: %s <%s>\n", rec.Author.Name, rec.Author.Email)
					fmt.Fprintf(out, "\n    %s\n\n", rec.Message)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of commits to show (0 = unlimited)")
	return cmd
}
