package repo

import (
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
	"github.com/glyphvcs/glyph/pkg/worktree"
)

// Engine constructs a fresh vcsmerge.Engine bound to this repository's
// collaborators and the current attributes layering. It is cheap enough to
// build per call rather than cache on Repo, since attributes files can
// change between operations.
func (r *Repo) Engine() (*vcsmerge.Engine, error) {
	attrs, err := worktree.LoadAttributesMatcher(r.RootDir)
	if err != nil {
		return nil, err
	}
	return vcsmerge.New(r.Catalog, r.Objects, r.Graph, r.Refs, r.Index, r.RootDir, attrs), nil
}
