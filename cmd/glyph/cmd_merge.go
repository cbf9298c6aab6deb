package main

import (
	"fmt"
	"os"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var message string
	var continueMerge, abortMerge bool

	cmd := &cobra.Command{
		Use:   "merge [committish]",
		Short: "Merge a branch, tag, or commit into HEAD",
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
			opts := vcsmerge.MergeOptions{Committer: identity, Message: message}

			return r.WithWriterLock(func() error {
				if abortMerge {
					return r.MergeAbort()
				}
				if continueMerge {
					outcome, err := r.MergeContinue(opts)
					return reportMergeOutcome(cmd, outcome, err)
				}
				if len(args) != 1 {
					return fmt.Errorf("merge: a committish is required")
				}
				target, err := r.ResolveCommittish(args[0])
				if err != nil {
					return err
				}
				outcome, err := r.Merge(target, opts)
				return reportMergeOutcome(cmd, outcome, err)
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "merge commit message")
	cmd.Flags().BoolVar(&continueMerge, "continue", false, "continue a merge after resolving conflicts")
	cmd.Flags().BoolVar(&abortMerge, "abort", false, "abort an in-progress merge")
	return cmd
}

func reportMergeOutcome(cmd *cobra.Command, outcome *vcsmerge.MergeOutcome, err error) error {
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case outcome.UpToDate:
		fmt.Fprintln(out, "already up to date")
	case outcome.FastForward:
		fmt.Fprintf(out, "fast-forward to %s\n", outcome.CommitID)
	case len(outcome.Conflicted) > 0:
		fmt.Fprintf(out, "conflicts in %d file(s); resolve and run merge --continue\n", len(outcome.Conflicted))
		for _, p := range outcome.Conflicted {
			fmt.Fprintf(out, "  %s\n", p)
		}
	default:
		fmt.Fprintf(out, "merged, new commit %s\n", outcome.CommitID)
	}
	return nil
}
