package main

import (
	"fmt"
	"os"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newStashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stash",
		Short: "Save and restore uncommitted changes",
	}

	var message string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save the index and working tree, then revert both to HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.WithWriterLock(func() error {
				identity, err := r.ResolveIdentity(os.Getenv("USER_NAME"), os.Getenv("USER_EMAIL"))
				if err != nil {
					return err
				}
				id, err := r.StashSave(message, identity)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	saveCmd.Flags().StringVarP(&message, "message", "m", "", "stash message")
	cmd.AddCommand(saveCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved stash entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.WithReaderLock(func() error {
				entries, err := r.StashList()
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.ID, e.Message)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "apply [id]",
		Short: "Restore a stash entry's index and working tree without dropping it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.WithWriterLock(func() error { return r.StashApply(stashArg(args)) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pop [id]",
		Short: "Apply a stash entry and drop it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.WithWriterLock(func() error { return r.StashPop(stashArg(args)) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drop [id]",
		Short: "Delete a stash entry without applying it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.WithWriterLock(func() error { return r.StashDrop(stashArg(args)) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every stash entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.WithWriterLock(func() error { return r.StashClear() })
		},
	})

	return cmd
}

// stashArg returns args[0] if present, else "" so the callee's
// resolveStash falls back to the most recently saved entry.
func stashArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
