package repo

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/gitimport"
)

// Import translates a foreign repository's branches/tags (resolved from
// source) into this repository's object store, commit graph, and refs, per
// spec 4.J. headBranch, if non-empty, is attached as HEAD once every ref
// has translated successfully.
func (r *Repo) Import(source gitimport.ForeignSource, heads, tags map[string]gitimport.ForeignID, headBranch string) (*gitimport.Report, error) {
	im := gitimport.NewImporter(source, r.Objects, r.Graph, r.Refs)
	report, err := im.ImportRefs(heads, tags, headBranch)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return report, nil
}
