package main

import (
	"fmt"
	"os"

	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var message string
	var deleteName string
	var force bool

	cmd := &cobra.Command{
		Use:   "tag [name] [target]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			if deleteName != "" {
				return r.WithWriterLock(func() error { return r.DeleteTag(deleteName) })
			}

			if len(args) == 0 {
				return r.WithReaderLock(func() error {
					names, err := r.ListTags()
					if err != nil {
						return err
					}
					for _, n := range names {
						fmt.Fprintln(cmd.OutOrStdout(), n)
					}
					return nil
				})
			}

			target := "HEAD"
			if len(args) > 1 {
				target = args[1]
			}
			return r.WithWriterLock(func() error {
				h, err := r.ResolveCommittish(target)
				if err != nil {
					return err
				}
				if message == "" {
					return r.CreateTag(args[0], h, force)
				}
				identity, err := r.ResolveIdentity(os.Getenv("USER_NAME"), os.Getenv("USER_EMAIL"))
				if err != nil {
					return err
				}
				_, err = r.CreateAnnotatedTag(args[0], h, identity, message, force)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "annotated tag message")
	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing tag")
	return cmd
}
