package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/refs"
)

// Reflog returns ref's history of value changes, newest first, bounded by
// limit (0 means unlimited). ref is a branch name or "HEAD", which resolves
// to the branch HEAD currently tracks; entries are recorded per-branch.
func (r *Repo) Reflog(ref string, limit int) ([]refs.Entry, error) {
	name := ref
	if name == "HEAD" {
		branch, attached, err := r.Refs.CurrentBranch()
		if err != nil {
			return nil, fmt.Errorf("reflog: %w", err)
		}
		if !attached {
			return nil, fmt.Errorf("reflog: HEAD is detached, no branch reflog to show")
		}
		name = branch
	}
	return r.Refs.ReadReflog("refs/heads/"+name, limit)
}
