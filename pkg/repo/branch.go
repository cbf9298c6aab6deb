package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
)

// CreateBranch creates a new branch pointing at target. Thin passthrough to
// refs.Manager; kept here only so callers go through Repo consistently with
// Checkout/Commit/Status. Grounded on the teacher's pkg/repo/branch.go.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	if err := r.Refs.CreateBranch(name, target); err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes name, refusing to delete the branch HEAD currently
// follows — the one guard the teacher's DeleteBranch had that refs.Manager
// itself doesn't enforce (refs has no notion of "current").
func (r *Repo) DeleteBranch(name string) error {
	current, attached, err := r.currentBranch()
	if err != nil {
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	if attached && current == name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}
	if err := r.Refs.DeleteBranch(name); err != nil {
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	return nil
}

// ListBranches returns every branch name, sorted.
func (r *Repo) ListBranches() ([]string, error) {
	return r.Refs.ListBranches()
}
