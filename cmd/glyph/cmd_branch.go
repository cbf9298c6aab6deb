package main

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	var deleteName string

	cmd := &cobra.Command{
		Use:   "branch [name] [start-point]",
		Short: "List, create, or delete branches",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			if deleteName != "" {
				return r.WithWriterLock(func() error { return r.DeleteBranch(deleteName) })
			}

			if len(args) == 0 {
				return r.WithReaderLock(func() error {
					names, err := r.ListBranches()
					if err != nil {
						return err
					}
					for _, n := range names {
						fmt.Fprintln(cmd.OutOrStdout(), n)
					}
					return nil
				})
			}

			start := "HEAD"
			if len(args) > 1 {
				start = args[1]
			}
			return r.WithWriterLock(func() error {
				target, err := r.ResolveCommittish(start)
				if err != nil {
					return err
				}
				return r.CreateBranch(args[0], target)
			})
		},
	}

	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named branch")
	return cmd
}
