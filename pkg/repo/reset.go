package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
)

// Reset implements spec 4.H's reset(target_commit, mode). Superseded from
// the teacher's path-list-only pkg/repo/reset.go onto vcsmerge.Engine.Reset,
// which operates on a target commit rather than individual paths (see
// DESIGN.md's pkg/vcsmerge entry for the generalization rationale).
func (r *Repo) Reset(target object.Hash, mode vcsmerge.ResetMode) error {
	e, err := r.Engine()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := e.Reset(target, mode); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
