package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
)

// CreateTag creates or updates (if force) a lightweight tag. Thin
// passthrough to refs.Manager, kept here for call-site consistency with
// Commit/Checkout/Status. Grounded on the teacher's pkg/repo/tag.go.
func (r *Repo) CreateTag(name string, target object.Hash, force bool) error {
	if err := r.Refs.CreateTag(name, target, force); err != nil {
		return fmt.Errorf("create tag %q: %w", name, err)
	}
	return nil
}

// CreateAnnotatedTag creates or updates (if force) an annotated tag,
// identity coming from the caller the way Commit's does.
func (r *Repo) CreateAnnotatedTag(name string, target object.Hash, tagger object.Identity, message string, force bool) (object.Hash, error) {
	h, err := r.Refs.CreateAnnotatedTag(name, target, tagger.Name, tagger.Email, message, force)
	if err != nil {
		return "", fmt.Errorf("create annotated tag %q: %w", name, err)
	}
	return h, nil
}

// DeleteTag removes name.
func (r *Repo) DeleteTag(name string) error {
	if err := r.Refs.DeleteTag(name); err != nil {
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	return nil
}

// ResolveTag resolves name to its target commit.
func (r *Repo) ResolveTag(name string) (object.Hash, error) {
	return r.Refs.ResolveTag(name)
}

// ListTags returns every tag name, sorted.
func (r *Repo) ListTags() ([]string, error) {
	return r.Refs.ListTags()
}
