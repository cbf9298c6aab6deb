// Package refs implements spec 4.F: branches, HEAD (attached/detached),
// tags, compare-and-set ref updates, and the reflog. Grounded on the
// teacher's pkg/repo/init.go (UpdateRefCAS, ResolveRef, Head),
// pkg/repo/branch.go, pkg/repo/tag.go and pkg/repo/reflog.go, each
// generalized from bespoke files under .got/ to values in the catalog's
// HEAD/BRANCHES/TAGS/REFLOG partitions.
package refs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/object"
)

// ZeroHash is the sentinel "no commit" value used in reflog entries for a
// branch's creation (old) or deletion (new). 64 lowercase hex zero digits —
// the width of a real SHA-256 hex digest, unlike the teacher's 68-character
// zeroHash constant (see DESIGN.md).
var ZeroHash object.Hash = object.Hash("0000000000000000000000000000000000000000000000000000000000000000"[:64])

var (
	ErrBranchNotFound = errors.New("refs: branch not found")
	ErrBranchExists    = errors.New("refs: branch already exists")
	ErrTagNotFound     = errors.New("refs: tag not found")
	ErrTagExists       = errors.New("refs: tag already exists")
	ErrInvalidName     = errors.New("refs: invalid name")
	ErrRefRaceLost     = errors.New("refs: RefRaceLost")
	ErrDetachedHead    = errors.New("refs: HEAD is detached")
)

const headKey = "HEAD"

// HeadKind distinguishes an attached (branch-following) HEAD from a
// detached (commit-pinned) one.
type HeadKind int

const (
	Attached HeadKind = iota
	Detached
)

// Head is spec's HeadRef: either {kind=attached, branch_name} or
// {kind=detached, commit_id} — never both, never dangling (invariant 4).
type Head struct {
	Kind       HeadKind    `json:"kind"`
	BranchName string      `json:"branch_name,omitempty"`
	CommitID   object.Hash `json:"commit_id,omitempty"`
}

// Manager binds branch/HEAD/tag state to the catalog and validates tag
// targets against the object store.
type Manager struct {
	cat     *catalog.Catalog
	objects *object.Store
}

func New(cat *catalog.Catalog, objects *object.Store) *Manager {
	return &Manager{cat: cat, objects: objects}
}

// validateBranchName enforces the data model's BranchRef name constraints:
// non-empty, no ASCII control characters, no spaces, no leading `-`, not
// equal to "HEAD".
func validateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: branch name is empty", ErrInvalidName)
	}
	if name == "HEAD" {
		return fmt.Errorf("%w: branch name cannot be HEAD", ErrInvalidName)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: branch name %q starts with -", ErrInvalidName, name)
	}
	for _, r := range name {
		if r == ' ' || unicode.IsControl(r) {
			return fmt.Errorf("%w: branch name %q contains a space or control character", ErrInvalidName, name)
		}
	}
	return nil
}

func validateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: tag name is empty", ErrInvalidName)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: tag name %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: tag name %q contains whitespace", ErrInvalidName, name)
		}
	}
	return nil
}

// InitHead points HEAD at branchName (attached), writing nothing else.
// Called once by repository initialization before any commit exists.
func (m *Manager) InitHead(branchName string) error {
	return m.writeHead(&Head{Kind: Attached, BranchName: branchName})
}

func (m *Manager) writeHead(h *Head) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("refs: write head: %w", err)
	}
	if err := m.cat.Set(catalog.HEAD, headKey, data); err != nil {
		return fmt.Errorf("refs: write head: %w", err)
	}
	return nil
}

// ReadHead returns the current HEAD state.
func (m *Manager) ReadHead() (*Head, error) {
	data, ok, err := m.cat.Get(catalog.HEAD, headKey)
	if err != nil {
		return nil, fmt.Errorf("refs: read head: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("refs: read head: %w", ErrDetachedHead)
	}
	var h Head
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("refs: read head: %w: %v", object.ErrCorruption, err)
	}
	return &h, nil
}

// CurrentBranch returns the attached branch name, or ("", false) if HEAD is
// detached.
func (m *Manager) CurrentBranch() (string, bool, error) {
	h, err := m.ReadHead()
	if err != nil {
		return "", false, err
	}
	if h.Kind != Attached {
		return "", false, nil
	}
	return h.BranchName, true, nil
}

// ResolveHead resolves HEAD to a commit id, following the attached branch
// if needed.
func (m *Manager) ResolveHead() (object.Hash, error) {
	h, err := m.ReadHead()
	if err != nil {
		return "", err
	}
	if h.Kind == Detached {
		return h.CommitID, nil
	}
	return m.ResolveBranch(h.BranchName)
}

// Resolve follows spec 4.F's general name resolution: "HEAD" resolves via
// ReadHead; "refs/heads/<n>" and "refs/tags/<n>" resolve from their
// partitions directly; anything else is tried as a bare branch name.
func (m *Manager) Resolve(name string) (object.Hash, error) {
	switch {
	case name == "HEAD":
		return m.ResolveHead()
	case strings.HasPrefix(name, "refs/heads/"):
		return m.ResolveBranch(strings.TrimPrefix(name, "refs/heads/"))
	case strings.HasPrefix(name, "refs/tags/"):
		return m.ResolveTag(strings.TrimPrefix(name, "refs/tags/"))
	default:
		if h, err := m.ResolveBranch(name); err == nil {
			return h, nil
		}
		return m.ResolveTag(name)
	}
}

// ResolveBranch returns the commit the named branch points at.
func (m *Manager) ResolveBranch(name string) (object.Hash, error) {
	data, ok, err := m.cat.Get(catalog.BRANCHES, name)
	if err != nil {
		return "", fmt.Errorf("refs: resolve branch %q: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("refs: resolve branch %q: %w", name, ErrBranchNotFound)
	}
	return object.Hash(data), nil
}

// ListBranches returns every branch name, sorted.
func (m *Manager) ListBranches() ([]string, error) {
	keys, err := m.cat.Keys(catalog.BRANCHES)
	if err != nil {
		return nil, fmt.Errorf("refs: list branches: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// UpdateRefCAS is spec 4.F's update_ref: compare-and-set write of a
// branch ref, with a reflog entry appended as part of the same atomic
// batch. expectedOld == "" means "branch must not already exist". True
// atomicity against a concurrent writer additionally depends on the
// repository-level exclusive lock (spec §5) serializing callers — the
// compare happens-before-write window here is only safe because the
// caller holds that lock, not because Manager does its own locking.
func (m *Manager) UpdateRefCAS(name string, expectedOld, newHash object.Hash, reason string) error {
	if err := validateBranchName(name); err != nil {
		return err
	}
	current, ok, err := m.cat.Get(catalog.BRANCHES, name)
	if err != nil {
		return fmt.Errorf("refs: update ref %q: %w", name, err)
	}
	currentHash := object.Hash(current)
	if !ok {
		currentHash = ""
	}
	if currentHash != expectedOld {
		return fmt.Errorf("refs: update ref %q: %w (expected %s, found %s)", name, ErrRefRaceLost, expectedOld, currentHash)
	}

	ops := []catalog.Op{{Partition: catalog.BRANCHES, Key: name, Value: []byte(newHash)}}
	ops = append(ops, reflogAppendOp(m.cat, "refs/heads/"+name, currentHash, newHash, reason))
	if err := m.cat.WriteBatch(ops); err != nil {
		return fmt.Errorf("refs: update ref %q: %w", name, err)
	}
	return nil
}

// CreateBranch creates name pointing at target; fails with ErrBranchExists
// if the branch already exists.
func (m *Manager) CreateBranch(name string, target object.Hash) error {
	if err := m.UpdateRefCAS(name, "", target, "branch: created"); err != nil {
		if errors.Is(err, ErrRefRaceLost) {
			return fmt.Errorf("refs: create branch %q: %w", name, ErrBranchExists)
		}
		return err
	}
	return nil
}

// DeleteBranch removes a branch. Callers must ensure name isn't the
// currently attached branch before calling (pkg/repo's DeleteBranch
// enforces this).
func (m *Manager) DeleteBranch(name string) error {
	if err := validateBranchName(name); err != nil {
		return err
	}
	current, ok, err := m.cat.Get(catalog.BRANCHES, name)
	if err != nil {
		return fmt.Errorf("refs: delete branch %q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("refs: delete branch %q: %w", name, ErrBranchNotFound)
	}
	ops := []catalog.Op{{Partition: catalog.BRANCHES, Key: name, Delete: true}}
	ops = append(ops, reflogAppendOp(m.cat, "refs/heads/"+name, object.Hash(current), ZeroHash, "branch: deleted"))
	if err := m.cat.WriteBatch(ops); err != nil {
		return fmt.Errorf("refs: delete branch %q: %w", name, err)
	}
	return nil
}

// SetHeadAttached updates HEAD to track branch (attached mode). Working-tree
// materialization is pkg/worktree's job; Manager only owns the HEAD
// pointer flip, which callers sequence after the tree is already staged
// to its target state (spec 4.F's ordering note).
func (m *Manager) SetHeadAttached(branchName string) error {
	return m.writeHead(&Head{Kind: Attached, BranchName: branchName})
}

// SetHeadDetached points HEAD directly at a commit, bypassing any branch.
func (m *Manager) SetHeadDetached(commit object.Hash) error {
	return m.writeHead(&Head{Kind: Detached, CommitID: commit})
}

// CreateTag creates a lightweight tag: the TAGS partition entry points
// straight at the target commit (per DESIGN.md's Open Question
// resolution).
func (m *Manager) CreateTag(name string, target object.Hash, force bool) error {
	if err := validateTagName(name); err != nil {
		return err
	}
	if !force {
		if _, ok, err := m.cat.Get(catalog.TAGS, name); err != nil {
			return fmt.Errorf("refs: create tag %q: %w", name, err)
		} else if ok {
			return fmt.Errorf("refs: create tag %q: %w", name, ErrTagExists)
		}
	}
	if err := m.cat.Set(catalog.TAGS, name, []byte(target)); err != nil {
		return fmt.Errorf("refs: create tag %q: %w", name, err)
	}
	return nil
}

// CreateAnnotatedTag writes a TagObj to the object store and points the
// TAGS partition entry at the tag object's hash (not the target commit
// directly) — ResolveTag peels it back to the commit.
func (m *Manager) CreateAnnotatedTag(name string, target object.Hash, taggerName, taggerEmail, message string, force bool) (object.Hash, error) {
	if err := validateTagName(name); err != nil {
		return "", err
	}
	if !force {
		if _, ok, err := m.cat.Get(catalog.TAGS, name); err != nil {
			return "", fmt.Errorf("refs: create annotated tag %q: %w", name, err)
		} else if ok {
			return "", fmt.Errorf("refs: create annotated tag %q: %w", name, ErrTagExists)
		}
	}
	targetType, _, err := m.objects.Read(target)
	if err != nil {
		if _, ok, cerr := m.cat.Get(catalog.COMMITS, string(target)); cerr != nil || !ok {
			return "", fmt.Errorf("refs: create annotated tag %q: target %s: %w", name, target, err)
		}
		targetType = object.TypeCommit
	}

	now := time.Now()
	tagHash, err := m.objects.WriteTag(&object.TagObj{
		Target:     target,
		TargetType: targetType,
		Name:       name,
		Tagger: object.Identity{
			Name: taggerName, Email: taggerEmail,
			Timestamp: now.Unix(), TZOffset: formatTZOffset(now),
		},
		Message: message,
	})
	if err != nil {
		return "", fmt.Errorf("refs: create annotated tag %q: write tag object: %w", name, err)
	}
	if err := m.cat.Set(catalog.TAGS, name, []byte(tagHash)); err != nil {
		return "", fmt.Errorf("refs: create annotated tag %q: %w", name, err)
	}
	return tagHash, nil
}

// ResolveTag returns the commit a tag points at, peeling the tag object for
// annotated tags.
func (m *Manager) ResolveTag(name string) (object.Hash, error) {
	data, ok, err := m.cat.Get(catalog.TAGS, name)
	if err != nil {
		return "", fmt.Errorf("refs: resolve tag %q: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("refs: resolve tag %q: %w", name, ErrTagNotFound)
	}
	h := object.Hash(data)
	if typ, _, err := m.objects.Read(h); err == nil && typ == object.TypeTag {
		tag, err := m.objects.ReadTag(h)
		if err != nil {
			return "", fmt.Errorf("refs: resolve tag %q: %w", name, err)
		}
		return tag.Target, nil
	}
	return h, nil
}

// DeleteTag removes a tag ref (the tag object itself, if any, is left for
// GC to reclaim once unreachable).
func (m *Manager) DeleteTag(name string) error {
	if err := validateTagName(name); err != nil {
		return err
	}
	if _, ok, err := m.cat.Get(catalog.TAGS, name); err != nil {
		return fmt.Errorf("refs: delete tag %q: %w", name, err)
	} else if !ok {
		return fmt.Errorf("refs: delete tag %q: %w", name, ErrTagNotFound)
	}
	if err := m.cat.Delete(catalog.TAGS, name); err != nil {
		return fmt.Errorf("refs: delete tag %q: %w", name, err)
	}
	return nil
}

// ListTags returns every tag name, sorted.
func (m *Manager) ListTags() ([]string, error) {
	keys, err := m.cat.Keys(catalog.TAGS)
	if err != nil {
		return nil, fmt.Errorf("refs: list tags: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func formatTZOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%02d%02d", sign, offset/3600, (offset%3600)/60)
}
