package main

import (
	"fmt"
	"os"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record staged changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			identity, err := r.ResolveIdentity(os.Getenv("USER_NAME"), os.Getenv("USER_EMAIL"))
			if err != nil {
				return err
			}

			var h string
			err = r.WithWriterLock(func() error {
				hash, err := r.Commit(message, identity)
				if err != nil {
					return err
				}
				h = string(hash)
				return nil
			})
			if err != nil {
				return err
			}

			branch, attached, err := r.Refs.CurrentBranch()
			label := "HEAD"
			if err == nil && attached {
				label = branch
			}
			short := h
			if len(short) > 8 {
				short = short[:8]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", label, short, message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}
