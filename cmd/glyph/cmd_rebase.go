package main

import (
	"fmt"
	"os"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
	"github.com/spf13/cobra"
)

func newRebaseCmd() *cobra.Command {
	var continueRebase, abortRebase, skipRebase bool

	cmd := &cobra.Command{
		Use:   "rebase [onto]",
		Short: "Replay HEAD's commits onto another commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			identity, err := r.ResolveIdentity(os.Getenv("USER_NAME"), os.Getenv("USER_EMAIL"))
			if err != nil {
				return err
			}
			opts := vcsmerge.CherryPickOptions{CommitterName: identity.Name, CommitterEmail: identity.Email}

			return r.WithWriterLock(func() error {
				switch {
				case abortRebase:
					return r.RebaseAbort()
				case continueRebase:
					outcome, err := r.RebaseContinue(opts)
					return reportRebaseOutcome(cmd, outcome, err)
				case skipRebase:
					outcome, err := r.RebaseSkip(opts)
					return reportRebaseOutcome(cmd, outcome, err)
				}
				if len(args) != 1 {
					return fmt.Errorf("rebase: an onto committish is required")
				}
				onto, err := r.ResolveCommittish(args[0])
				if err != nil {
					return err
				}
				outcome, err := r.Rebase(onto, opts)
				return reportRebaseOutcome(cmd, outcome, err)
			})
		},
	}

	cmd.Flags().BoolVar(&continueRebase, "continue", false, "continue after resolving conflicts")
	cmd.Flags().BoolVar(&abortRebase, "abort", false, "abort an in-progress rebase")
	cmd.Flags().BoolVar(&skipRebase, "skip", false, "skip the current commit and continue")
	return cmd
}

func reportRebaseOutcome(cmd *cobra.Command, outcome *vcsmerge.RebaseOutcome, err error) error {
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outcome.Conflicted {
		fmt.Fprintf(out, "conflicts in %d file(s); resolve and run rebase --continue\n", len(outcome.Conflicts))
		for _, p := range outcome.Conflicts {
			fmt.Fprintf(out, "  %s\n", p)
		}
		return nil
	}
	if outcome.Done {
		fmt.Fprintf(out, "rebase complete, new tip %s\n", outcome.NewTip)
	}
	return nil
}
