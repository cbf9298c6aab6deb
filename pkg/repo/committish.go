package repo

import (
	"fmt"
	"strings"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/object"
)

// ResolveCommittish resolves name to a commit hash, trying in order: "HEAD",
// a branch name, a tag name, a full commit hash, then an unambiguous short
// hash prefix. Returns ErrAmbiguousHashPrefix if more than one commit
// matches a short prefix.
func (r *Repo) ResolveCommittish(name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("resolve %q: empty committish", name)
	}

	if name == "HEAD" {
		return r.Refs.ResolveHead()
	}
	if h, err := r.Refs.ResolveBranch(name); err == nil {
		return h, nil
	}
	if h, err := r.Refs.ResolveTag(name); err == nil {
		return h, nil
	}
	if r.Graph != nil {
		if _, err := r.Graph.ReadCommit(object.Hash(name)); err == nil {
			return object.Hash(name), nil
		}
	}
	return r.resolveShortHash(name)
}

func (r *Repo) resolveShortHash(prefix string) (object.Hash, error) {
	if len(prefix) < 4 {
		return "", fmt.Errorf("resolve %q: too short to be a hash prefix", prefix)
	}
	keys, err := r.Catalog.Keys(catalog.COMMITS)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", prefix, err)
	}
	var match string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			if match != "" && match != k {
				return "", fmt.Errorf("resolve %q: %w", prefix, ErrAmbiguousHashPrefix)
			}
			match = k
		}
	}
	if match == "" {
		return "", fmt.Errorf("resolve %q: no matching commit", prefix)
	}
	return object.Hash(match), nil
}
