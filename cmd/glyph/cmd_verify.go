package main

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/repo"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every loose object's checksum and every pack's trailer",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			return r.WithReaderLock(func() error {
				count := 0
				err := r.Objects.Iterate(func(h object.Hash) error {
					count++
					_, _, err := r.Objects.Read(h)
					return err
				})
				if err != nil {
					return err
				}
				if err := r.VerifyPacks(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "verified %d loose object(s) and every pack\n", count)
				return nil
			})
		},
	}
}
