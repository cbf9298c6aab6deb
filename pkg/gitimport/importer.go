package gitimport

import (
	"fmt"
	"sort"

	"github.com/glyphvcs/glyph/pkg/commitgraph"
	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/refs"
)

// Importer translates a foreign repository's reachable objects into this
// system's object store and commit graph, then its refs. Per spec 4.J, a
// decode error or missing object aborts the whole import: refs are only
// written after every requested branch and tag has translated
// successfully, so a failed import never leaves a partial ref update
// behind (translated-but-now-unreferenced objects are left in the store —
// ordinary unreachable garbage, not a correctness problem).
type Importer struct {
	source     ForeignSource
	objects    *object.Store
	graph      *commitgraph.Graph
	refsMgr    *refs.Manager
	translated map[ForeignID]object.Hash
}

// NewImporter builds an importer that resolves foreign objects from
// source and writes translated objects/commits/refs into the given store,
// commit graph, and ref manager.
func NewImporter(source ForeignSource, objects *object.Store, graph *commitgraph.Graph, refsMgr *refs.Manager) *Importer {
	return &Importer{
		source:     source,
		objects:    objects,
		graph:      graph,
		refsMgr:    refsMgr,
		translated: make(map[ForeignID]object.Hash),
	}
}

// Report is the result of a successful ImportRefs call: every imported
// branch's and tag's translated native id.
type Report struct {
	BranchCommits map[string]object.Hash
	TagTargets    map[string]object.Hash
}

// ImportRefs translates each foreign commit named in heads and each tag
// target named in tags, in deterministic (sorted) order, then — only if
// every translation succeeded — creates the branches and tags and sets
// HEAD to headBranch (skipped if headBranch is empty).
func (im *Importer) ImportRefs(heads map[string]ForeignID, tags map[string]ForeignID, headBranch string) (*Report, error) {
	report := &Report{BranchCommits: map[string]object.Hash{}, TagTargets: map[string]object.Hash{}}

	branchNames := sortedKeys(heads)
	for _, name := range branchNames {
		id, err := im.translateCommit(heads[name])
		if err != nil {
			return nil, fmt.Errorf("gitimport: branch %q: %w", name, err)
		}
		report.BranchCommits[name] = id
	}

	tagNames := sortedKeys(tags)
	resolvedTags := make(map[string]*tagTranslation, len(tagNames))
	for _, name := range tagNames {
		tt, err := im.translateTagRef(tags[name])
		if err != nil {
			return nil, fmt.Errorf("gitimport: tag %q: %w", name, err)
		}
		resolvedTags[name] = tt
		report.TagTargets[name] = tt.nativeTarget
	}

	if headBranch != "" {
		if _, ok := report.BranchCommits[headBranch]; !ok {
			return nil, fmt.Errorf("gitimport: HEAD branch %q was not among imported branches", headBranch)
		}
	}

	for _, name := range branchNames {
		if err := im.refsMgr.CreateBranch(name, report.BranchCommits[name]); err != nil {
			return nil, fmt.Errorf("gitimport: create branch %q: %w", name, err)
		}
	}
	for _, name := range tagNames {
		tt := resolvedTags[name]
		var err error
		if tt.annotated {
			_, err = im.refsMgr.CreateAnnotatedTag(name, tt.nativeTarget, tt.taggerName, tt.taggerEmail, tt.message, false)
		} else {
			err = im.refsMgr.CreateTag(name, tt.nativeTarget, false)
		}
		if err != nil {
			return nil, fmt.Errorf("gitimport: create tag %q: %w", name, err)
		}
	}
	if headBranch != "" {
		if err := im.refsMgr.SetHeadAttached(headBranch); err != nil {
			return nil, fmt.Errorf("gitimport: set HEAD: %w", err)
		}
	}

	return report, nil
}

func (im *Importer) translateCommit(id ForeignID) (object.Hash, error) {
	if h, ok := im.translated[id]; ok {
		return h, nil
	}
	obj, err := im.source.Get(id)
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", id, err)
	}
	if obj.Type != object.TypeCommit {
		return "", fmt.Errorf("commit %s: expected commit, got %s", id, obj.Type)
	}
	fc, err := parseForeignCommit(obj.Payload)
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", id, err)
	}

	treeHash, err := im.translateTree(fc.Tree)
	if err != nil {
		return "", err
	}
	parents := make([]object.Hash, len(fc.Parents))
	for i, p := range fc.Parents {
		parents[i], err = im.translateCommit(p)
		if err != nil {
			return "", err
		}
	}

	nativeID, err := im.graph.WriteCommit(&object.CommitRecord{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    fc.Author,
		Committer: fc.Committer,
		Message:   fc.Message,
	})
	if err != nil {
		return "", fmt.Errorf("commit %s: write: %w", id, err)
	}
	im.translated[id] = nativeID
	return nativeID, nil
}

func (im *Importer) translateTree(id ForeignID) (object.Hash, error) {
	if h, ok := im.translated[id]; ok {
		return h, nil
	}
	obj, err := im.source.Get(id)
	if err != nil {
		return "", fmt.Errorf("tree %s: %w", id, err)
	}
	if obj.Type != object.TypeTree {
		return "", fmt.Errorf("tree %s: expected tree, got %s", id, obj.Type)
	}
	foreignEntries, err := parseForeignTree(obj.Payload)
	if err != nil {
		return "", fmt.Errorf("tree %s: %w", id, err)
	}

	entries := make([]object.TreeEntry, 0, len(foreignEntries))
	for _, fe := range foreignEntries {
		var childHash object.Hash
		switch fe.Mode {
		case object.ModeDir:
			childHash, err = im.translateTree(fe.ID)
		case object.ModeFile, object.ModeExecutable, object.ModeSymlink:
			childHash, err = im.translateBlob(fe.ID)
		case "160000":
			return "", fmt.Errorf("tree %s: entry %q: %w: submodules are not supported", id, fe.Name, ErrUnsupportedEntry)
		default:
			return "", fmt.Errorf("tree %s: entry %q: %w: mode %q", id, fe.Name, ErrUnsupportedEntry, fe.Mode)
		}
		if err != nil {
			return "", err
		}
		entries = append(entries, object.TreeEntry{Name: fe.Name, Mode: fe.Mode, Hash: childHash})
	}

	nativeHash, err := im.objects.WriteTree(&object.Tree{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("tree %s: write: %w", id, err)
	}
	im.translated[id] = nativeHash
	return nativeHash, nil
}

func (im *Importer) translateBlob(id ForeignID) (object.Hash, error) {
	if h, ok := im.translated[id]; ok {
		return h, nil
	}
	obj, err := im.source.Get(id)
	if err != nil {
		return "", fmt.Errorf("blob %s: %w", id, err)
	}
	if obj.Type != object.TypeBlob {
		return "", fmt.Errorf("blob %s: expected blob, got %s", id, obj.Type)
	}
	nativeHash, err := im.objects.WriteBlob(&object.Blob{Data: obj.Payload})
	if err != nil {
		return "", fmt.Errorf("blob %s: write: %w", id, err)
	}
	im.translated[id] = nativeHash
	return nativeHash, nil
}

type tagTranslation struct {
	nativeTarget object.Hash
	annotated    bool
	taggerName   string
	taggerEmail  string
	message      string
}

// translateTagRef peels id: a ref pointing straight at a commit translates
// as a lightweight tag, one pointing at a tag object translates as an
// annotated tag over the (recursively translated) commit it names.
func (im *Importer) translateTagRef(id ForeignID) (*tagTranslation, error) {
	obj, err := im.source.Get(id)
	if err != nil {
		return nil, fmt.Errorf("tag ref %s: %w", id, err)
	}
	if obj.Type == object.TypeCommit {
		h, err := im.translateCommit(id)
		if err != nil {
			return nil, err
		}
		return &tagTranslation{nativeTarget: h}, nil
	}
	if obj.Type != object.TypeTag {
		return nil, fmt.Errorf("tag ref %s: %w: target type %q", id, ErrUnsupportedEntry, obj.Type)
	}

	ft, err := parseForeignTag(obj.Payload)
	if err != nil {
		return nil, fmt.Errorf("tag ref %s: %w", id, err)
	}
	if ft.TargetType != object.TypeCommit {
		return nil, fmt.Errorf("tag ref %s: %w: annotated tag targets %q, not a commit", id, ErrUnsupportedEntry, ft.TargetType)
	}
	h, err := im.translateCommit(ft.Target)
	if err != nil {
		return nil, err
	}
	return &tagTranslation{
		nativeTarget: h,
		annotated:    true,
		taggerName:   ft.Tagger.Name,
		taggerEmail:  ft.Tagger.Email,
		message:      ft.Message,
	}, nil
}

func sortedKeys(m map[string]ForeignID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
