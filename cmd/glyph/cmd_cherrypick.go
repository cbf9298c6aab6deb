package main

import (
	"fmt"
	"os"

	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
	"github.com/spf13/cobra"
)

func newCherryPickCmd() *cobra.Command {
	var message string
	var continuePick, abortPick, skipPick bool

	cmd := &cobra.Command{
		Use:   "cherry-pick <committish...>",
		Short: "Apply one or more existing commits onto HEAD",
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
			opts := vcsmerge.CherryPickOptions{CommitterName: identity.Name, CommitterEmail: identity.Email, Message: message}

			return r.WithWriterLock(func() error {
				switch {
				case abortPick:
					return r.CherryPickAbort()
				case continuePick:
					outcome, err := r.CherryPickContinue(opts)
					return reportCherryPickOutcome(cmd, outcome, err)
				case skipPick:
					outcome, err := r.CherryPickSkip(opts)
					return reportCherryPickOutcome(cmd, outcome, err)
				}
				if len(args) == 0 {
					return fmt.Errorf("cherry-pick: at least one committish is required")
				}
				commits := make([]object.Hash, 0, len(args))
				for _, a := range args {
					h, err := r.ResolveCommittish(a)
					if err != nil {
						return err
					}
					commits = append(commits, h)
				}
				outcome, err := r.CherryPick(commits, opts)
				return reportCherryPickOutcome(cmd, outcome, err)
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "override message (single commit only)")
	cmd.Flags().BoolVar(&continuePick, "continue", false, "continue after resolving conflicts")
	cmd.Flags().BoolVar(&abortPick, "abort", false, "abort an in-progress cherry-pick")
	cmd.Flags().BoolVar(&skipPick, "skip", false, "skip the current commit and continue")
	return cmd
}

func reportCherryPickOutcome(cmd *cobra.Command, outcome *vcsmerge.CherryPickOutcome, err error) error {
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outcome.Conflicted {
		fmt.Fprintf(out, "conflicts in %d file(s); resolve and run cherry-pick --continue\n", len(outcome.Conflicts))
		for _, p := range outcome.Conflicts {
			fmt.Fprintf(out, "  %s\n", p)
		}
		return nil
	}
	for _, h := range outcome.Applied {
		fmt.Fprintf(out, "applied %s\n", h)
	}
	return nil
}
