package main

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
	"github.com/spf13/cobra"
)

func newBisectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bisect <start|good|bad|skip|reset> [args...]",
		Short: "Binary-search history for the commit that introduced a regression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			return r.WithWriterLock(func() error {
				switch args[0] {
				case "start":
					if len(args) != 3 {
						return fmt.Errorf("bisect start: requires <bad> <good>")
					}
					bad, err := r.ResolveCommittish(args[1])
					if err != nil {
						return err
					}
					good, err := r.ResolveCommittish(args[2])
					if err != nil {
						return err
					}
					outcome, err := r.BisectStart(bad, good)
					return reportBisectOutcome(cmd, outcome, err)
				case "good":
					outcome, err := r.BisectGood()
					return reportBisectOutcome(cmd, outcome, err)
				case "bad":
					outcome, err := r.BisectBad()
					return reportBisectOutcome(cmd, outcome, err)
				case "skip":
					outcome, err := r.BisectSkip()
					return reportBisectOutcome(cmd, outcome, err)
				case "reset":
					return r.BisectReset()
				default:
					return fmt.Errorf("bisect: unknown subcommand %q", args[0])
				}
			})
		},
	}
	return cmd
}

func reportBisectOutcome(cmd *cobra.Command, outcome *vcsmerge.BisectOutcome, err error) error {
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outcome.Found != "" {
		fmt.Fprintf(out, "first bad commit: %s\n", outcome.Found)
		return nil
	}
	fmt.Fprintf(out, "next candidate: %s\n", outcome.Next)
	return nil
}
