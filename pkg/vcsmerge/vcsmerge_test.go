package vcsmerge

import (
	"path/filepath"
	"testing"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/commitgraph"
	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/refs"
	"github.com/glyphvcs/glyph/pkg/worktree"
)

type harness struct {
	e       *Engine
	objects *object.Store
	graph   *commitgraph.Graph
	refsMgr *refs.Manager
	idx     *index.Index
	root    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	cat, err := catalog.Open(filepath.Join(root, ".glyph"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	objs, err := object.NewStore(filepath.Join(root, ".glyph", "objects"))
	if err != nil {
		t.Fatalf("object.NewStore: %v", err)
	}
	graph := commitgraph.New(cat, objs)
	refsMgr := refs.New(cat, objs)
	idx, err := index.Open(cat, objs)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	if err := refsMgr.InitHead("main"); err != nil {
		t.Fatalf("InitHead: %v", err)
	}
	return &harness{
		e:       New(cat, objs, graph, refsMgr, idx, root, nil),
		objects: objs,
		graph:   graph,
		refsMgr: refsMgr,
		idx:     idx,
		root:    root,
	}
}

func (h *harness) commitFiles(t *testing.T, parent object.Hash, files map[string]string, message string) object.Hash {
	t.Helper()
	h.idx.Clear()
	for path, content := range files {
		if _, err := h.idx.Put(path, []byte(content), object.ModeFile); err != nil {
			t.Fatalf("idx.Put(%q): %v", path, err)
		}
	}
	treeHash, err := h.idx.BuildTree()
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	var parents []object.Hash
	if parent != "" {
		parents = []object.Hash{parent}
	}
	id := object.Identity{Name: "t", Email: "t@example.com", Timestamp: 1, TZOffset: "+0000"}
	rec := &object.CommitRecord{TreeHash: treeHash, Parents: parents, Author: id, Committer: id, Message: message}
	commitID, err := h.graph.WriteCommit(rec)
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	return commitID
}

func (h *harness) setBranchHead(t *testing.T, commit object.Hash) {
	t.Helper()
	existing, err := h.refsMgr.ResolveBranch("main")
	if err != nil {
		if err := h.refsMgr.CreateBranch("main", commit); err != nil {
			t.Fatalf("CreateBranch: %v", err)
		}
		return
	}
	if existing == commit {
		return
	}
	if err := h.refsMgr.UpdateRefCAS("main", existing, commit, "test: move branch"); err != nil {
		t.Fatalf("UpdateRefCAS: %v", err)
	}
}

// checkoutTo force-materializes commit's tree onto disk and into the index,
// simulating "this is what's currently checked out" before an operation
// under test runs — newHarness/commitFiles only build the commit graph and
// never touch the working tree on their own.
func (h *harness) checkoutTo(t *testing.T, commit object.Hash) {
	t.Helper()
	tree, err := h.e.treeOf(commit)
	if err != nil {
		t.Fatalf("treeOf: %v", err)
	}
	if _, err := worktree.CheckoutTree(h.root, h.idx, h.objects, worktree.NewIgnoreMatcherFromLayers(map[string]string{}), "", tree, true); err != nil {
		t.Fatalf("checkoutTo(%s): %v", commit, err)
	}
}

func opts() MergeOptions {
	return MergeOptions{Committer: object.Identity{Name: "m", Email: "m@example.com", Timestamp: 2, TZOffset: "+0000"}}
}

func cpOpts() CherryPickOptions {
	return CherryPickOptions{CommitterName: "m", CommitterEmail: "m@example.com"}
}

func TestMergeFastForward(t *testing.T) {
	h := newHarness(t)
	base := h.commitFiles(t, "", map[string]string{"a.txt": "1"}, "base")
	h.setBranchHead(t, base)
	h.checkoutTo(t, base)
	ahead := h.commitFiles(t, base, map[string]string{"a.txt": "2"}, "ahead")

	out, err := h.e.Merge(ahead, opts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !out.FastForward || out.CommitID != ahead {
		t.Fatalf("expected fast-forward to %s, got %+v", ahead, out)
	}
	head, err := h.refsMgr.ResolveHead()
	if err != nil || head != ahead {
		t.Fatalf("expected HEAD at %s, got %s err %v", ahead, head, err)
	}
}

func TestMergeCleanThreeWay(t *testing.T) {
	h := newHarness(t)
	base := h.commitFiles(t, "", map[string]string{"a.txt": "1", "b.txt": "1"}, "base")
	h.setBranchHead(t, base)
	ours := h.commitFiles(t, base, map[string]string{"a.txt": "ours", "b.txt": "1"}, "ours")
	h.setBranchHead(t, ours)
	h.checkoutTo(t, ours)
	theirs := h.commitFiles(t, base, map[string]string{"a.txt": "1", "b.txt": "theirs"}, "theirs")

	out, err := h.e.Merge(theirs, opts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if out.CommitID == "" || len(out.Conflicted) != 0 {
		t.Fatalf("expected clean merge commit, got %+v", out)
	}

	rec, err := h.graph.ReadCommit(out.CommitID)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(rec.Parents) != 2 || rec.Parents[0] != ours || rec.Parents[1] != theirs {
		t.Fatalf("expected two parents ours/theirs, got %+v", rec.Parents)
	}
}

func TestMergeConflictThenContinue(t *testing.T) {
	h := newHarness(t)
	base := h.commitFiles(t, "", map[string]string{"a.txt": "base\n"}, "base")
	h.setBranchHead(t, base)
	ours := h.commitFiles(t, base, map[string]string{"a.txt": "ours\n"}, "ours")
	h.setBranchHead(t, ours)
	h.checkoutTo(t, ours)
	theirs := h.commitFiles(t, base, map[string]string{"a.txt": "theirs\n"}, "theirs")

	out, err := h.e.Merge(theirs, opts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(out.Conflicted) != 1 || out.Conflicted[0] != "a.txt" {
		t.Fatalf("expected a.txt conflicted, got %+v", out)
	}
	if !h.idx.HasConflicts() {
		t.Fatalf("expected index to record the conflict")
	}

	if _, err := h.idx.Put("a.txt", []byte("resolved\n"), object.ModeFile); err != nil {
		t.Fatalf("resolve conflict: %v", err)
	}

	continued, err := h.e.MergeContinue(opts())
	if err != nil {
		t.Fatalf("MergeContinue: %v", err)
	}
	if continued.CommitID == "" {
		t.Fatalf("expected a merge commit id")
	}
	head, err := h.refsMgr.ResolveHead()
	if err != nil || head != continued.CommitID {
		t.Fatalf("expected HEAD advanced to merge commit, got %s err %v", head, err)
	}
}

func TestMergeConflictThenAbort(t *testing.T) {
	h := newHarness(t)
	base := h.commitFiles(t, "", map[string]string{"a.txt": "base\n"}, "base")
	h.setBranchHead(t, base)
	ours := h.commitFiles(t, base, map[string]string{"a.txt": "ours\n"}, "ours")
	h.setBranchHead(t, ours)
	h.checkoutTo(t, ours)
	theirs := h.commitFiles(t, base, map[string]string{"a.txt": "theirs\n"}, "theirs")

	if _, err := h.e.Merge(theirs, opts()); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := h.e.MergeAbort(); err != nil {
		t.Fatalf("MergeAbort: %v", err)
	}
	head, err := h.refsMgr.ResolveHead()
	if err != nil || head != ours {
		t.Fatalf("expected HEAD restored to %s, got %s err %v", ours, head, err)
	}
	if h.idx.HasConflicts() {
		t.Fatalf("expected conflicts cleared after abort")
	}

	// A second merge attempt must be possible once the state is clean again.
	if _, err := h.e.Merge(theirs, opts()); err != nil {
		t.Fatalf("Merge after abort: %v", err)
	}
}

func TestCherryPickClean(t *testing.T) {
	h := newHarness(t)
	base := h.commitFiles(t, "", map[string]string{"a.txt": "1", "b.txt": "1"}, "base")
	h.setBranchHead(t, base)
	picked := h.commitFiles(t, base, map[string]string{"a.txt": "1", "b.txt": "2"}, "touch b")

	// HEAD moves on independently of picked's branch.
	other := h.commitFiles(t, base, map[string]string{"a.txt": "2", "b.txt": "1"}, "touch a")
	h.setBranchHead(t, other)
	h.checkoutTo(t, other)

	out, err := h.e.CherryPick([]object.Hash{picked}, cpOpts())
	if err != nil {
		t.Fatalf("CherryPick: %v", err)
	}
	if len(out.Applied) != 1 {
		t.Fatalf("expected one applied commit, got %+v", out)
	}
	rec, err := h.graph.ReadCommit(out.Applied[0])
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(rec.Parents) != 1 || rec.Parents[0] != other {
		t.Fatalf("expected single parent %s, got %+v", other, rec.Parents)
	}
}

func TestResetModes(t *testing.T) {
	h := newHarness(t)
	base := h.commitFiles(t, "", map[string]string{"a.txt": "1"}, "base")
	h.setBranchHead(t, base)
	ahead := h.commitFiles(t, base, map[string]string{"a.txt": "2"}, "ahead")
	h.setBranchHead(t, ahead)

	if err := h.e.Reset(base, ResetSoft); err != nil {
		t.Fatalf("Reset soft: %v", err)
	}
	head, err := h.refsMgr.ResolveHead()
	if err != nil || head != base {
		t.Fatalf("expected HEAD at base after soft reset, got %s err %v", head, err)
	}

	h.setBranchHead(t, ahead)
	if err := h.e.Reset(base, ResetHard); err != nil {
		t.Fatalf("Reset hard: %v", err)
	}
	head, err = h.refsMgr.ResolveHead()
	if err != nil || head != base {
		t.Fatalf("expected HEAD at base after hard reset, got %s err %v", head, err)
	}
}

func TestBisectNarrowsToSingleCommit(t *testing.T) {
	h := newHarness(t)
	c1 := h.commitFiles(t, "", map[string]string{"a.txt": "1"}, "c1")
	c2 := h.commitFiles(t, c1, map[string]string{"a.txt": "2"}, "c2")
	c3 := h.commitFiles(t, c2, map[string]string{"a.txt": "3"}, "c3")
	c4 := h.commitFiles(t, c3, map[string]string{"a.txt": "4"}, "c4")
	h.setBranchHead(t, c4)

	out, err := h.e.BisectStart(c4, c1)
	if err != nil {
		t.Fatalf("BisectStart: %v", err)
	}
	seen := map[object.Hash]bool{out.Next: true}
	for out.Found == "" {
		var next *BisectOutcome
		var err error
		if out.Next == c2 {
			next, err = h.e.BisectGood()
		} else {
			next, err = h.e.BisectBad()
		}
		if err != nil {
			t.Fatalf("bisect step: %v", err)
		}
		out = next
		if out.Next != "" {
			if seen[out.Next] {
				t.Fatalf("bisect revisited %s", out.Next)
			}
			seen[out.Next] = true
		}
	}
	if out.Found != c3 {
		t.Fatalf("expected bisect to converge on c3, got %s", out.Found)
	}
}

func TestRebaseLinearReplaysOntoNewBase(t *testing.T) {
	h := newHarness(t)
	base := h.commitFiles(t, "", map[string]string{"a.txt": "1", "b.txt": "1"}, "base")
	onto := h.commitFiles(t, base, map[string]string{"a.txt": "1", "b.txt": "2"}, "onto: touch b")
	f1 := h.commitFiles(t, base, map[string]string{"a.txt": "2", "b.txt": "1"}, "f1: touch a")
	f2 := h.commitFiles(t, f1, map[string]string{"a.txt": "3", "b.txt": "1"}, "f2: touch a again")
	h.setBranchHead(t, f2)
	h.checkoutTo(t, f2)

	out, err := h.e.Rebase(onto, cpOpts())
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if !out.Done || out.Conflicted {
		t.Fatalf("expected a clean, completed rebase, got %+v", out)
	}

	rec, err := h.graph.ReadCommit(out.NewTip)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	tree, err := h.objects.ReadTree(rec.TreeHash)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	got := map[string]object.Hash{}
	for _, e := range tree.Entries {
		got[e.Name] = e.Hash
	}
	a, err := h.objects.ReadBlob(got["a.txt"])
	if err != nil || string(a.Data) != "3" {
		t.Fatalf("expected a.txt == 3, got %q err %v", a.Data, err)
	}
	b, err := h.objects.ReadBlob(got["b.txt"])
	if err != nil || string(b.Data) != "2" {
		t.Fatalf("expected b.txt == 2, got %q err %v", b.Data, err)
	}

	head, err := h.refsMgr.ResolveHead()
	if err != nil || head != out.NewTip {
		t.Fatalf("expected HEAD at rebased tip %s, got %s err %v", out.NewTip, head, err)
	}

	ancestor, err := h.graph.IsAncestor(onto, out.NewTip)
	if err != nil || !ancestor {
		t.Fatalf("expected rebased tip to descend from onto, ancestor=%v err %v", ancestor, err)
	}
}
