package main

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var soft, hard bool

	cmd := &cobra.Command{
		Use:   "reset <committish>",
		Short: "Move HEAD (and optionally the index/working tree) to a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if soft && hard {
				return fmt.Errorf("reset: --soft and --hard are mutually exclusive")
			}
			mode := vcsmerge.ResetMixed
			if soft {
				mode = vcsmerge.ResetSoft
			} else if hard {
				mode = vcsmerge.ResetHard
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			return r.WithWriterLock(func() error {
				target, err := r.ResolveCommittish(args[0])
				if err != nil {
					return err
				}
				return r.Reset(target, mode)
			})
		},
	}

	cmd.Flags().BoolVar(&soft, "soft", false, "move HEAD only")
	cmd.Flags().BoolVar(&hard, "hard", false, "move HEAD, index, and working tree")
	return cmd
}
