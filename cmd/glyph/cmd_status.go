package main

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the working tree status",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			return r.WithReaderLock(func() error {
				result, err := r.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, p := range result.Added {
					fmt.Fprintf(out, "A  %s\n", p)
				}
				for _, p := range result.Modified {
					fmt.Fprintf(out, "M  %s\n", p)
				}
				for _, p := range result.Deleted {
					fmt.Fprintf(out, "D  %s\n", p)
				}
				for _, rn := range result.Renamed {
					fmt.Fprintf(out, "R  %s -> %s\n", rn.From, rn.To)
				}
				for _, p := range result.Untracked {
					fmt.Fprintf(out, "?? %s\n", p)
				}
				return nil
			})
		},
	}
}
