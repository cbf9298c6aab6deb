package vcsmerge

import (
	"fmt"

	"github.com/glyphvcs/glyph/pkg/object"
)

// BisectOutcome reports the state of the search after Start/Good/Bad/Skip.
// Next is empty once the search has narrowed to a single candidate
// (Found is then set).
type BisectOutcome struct {
	Next  object.Hash
	Found object.Hash
}

// BisectStart opens a bisect session between a known-good and known-bad
// commit and checks out the first candidate, per spec 4.H's bisect.
func (e *Engine) BisectStart(bad, good object.Hash) (*BisectOutcome, error) {
	if _, err := e.requireClean(); err != nil {
		return nil, err
	}
	st := &BisectState{Bad: bad, Good: []object.Hash{good}}
	return e.bisectAdvance(st)
}

// BisectGood marks the currently checked-out candidate good and narrows the
// search window.
func (e *Engine) BisectGood() (*BisectOutcome, error) {
	st, err := e.requireBisecting()
	if err != nil {
		return nil, err
	}
	st.Good = append(st.Good, st.Next)
	return e.bisectAdvance(st)
}

// BisectBad marks the currently checked-out candidate bad and narrows the
// search window.
func (e *Engine) BisectBad() (*BisectOutcome, error) {
	st, err := e.requireBisecting()
	if err != nil {
		return nil, err
	}
	st.Bad = st.Next
	return e.bisectAdvance(st)
}

// BisectSkip marks the currently checked-out candidate untestable and picks
// a different one without narrowing the window.
func (e *Engine) BisectSkip() (*BisectOutcome, error) {
	st, err := e.requireBisecting()
	if err != nil {
		return nil, err
	}
	st.Skipped = append(st.Skipped, st.Next)
	return e.bisectAdvance(st)
}

// BisectReset ends the session by clearing the bisect state. HEAD and the
// working tree stay at the last checked-out candidate: the HEAD from before
// BisectStart is not recorded, so nothing is restored.
func (e *Engine) BisectReset() error {
	if _, err := e.requireBisecting(); err != nil {
		return err
	}
	return e.clearState()
}

func (e *Engine) requireBisecting() (*BisectState, error) {
	st, err := e.readState()
	if err != nil {
		return nil, err
	}
	if st.Kind != Bisecting {
		return nil, fmt.Errorf("vcsmerge: bisect: %w", ErrBisectNotStarted)
	}
	return st.Bisect, nil
}

// bisectAdvance computes the candidate set (commits reachable from Bad but
// not from any Good, minus Skipped), picks the one that minimizes the
// worst-case remaining range, checks it out, and persists the narrowed
// state. An empty remaining set after excluding the candidate reports Found
// instead of Next.
func (e *Engine) bisectAdvance(st *BisectState) (*BisectOutcome, error) {
	candidates, err := e.bisectCandidates(st)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: bisect: %w", err)
	}
	if len(candidates) == 0 {
		if err := e.clearState(); err != nil {
			return nil, err
		}
		return &BisectOutcome{Found: st.Bad}, nil
	}

	next, err := e.pickBisectMidpoint(candidates)
	if err != nil {
		return nil, fmt.Errorf("vcsmerge: bisect: %w", err)
	}
	st.Next = next

	if err := e.discardToCommit(next); err != nil {
		return nil, fmt.Errorf("vcsmerge: bisect: checkout %s: %w", next, err)
	}
	if err := e.refsMgr.SetHeadDetached(next); err != nil {
		return nil, fmt.Errorf("vcsmerge: bisect: %w", err)
	}
	if err := e.writeState(&State{Kind: Bisecting, Bisect: st}); err != nil {
		return nil, err
	}
	return &BisectOutcome{Next: next}, nil
}

// bisectCandidates returns every commit reachable from Bad but not from any
// Good commit, with Skipped commits excluded from consideration.
func (e *Engine) bisectCandidates(st *BisectState) ([]object.Hash, error) {
	reachableFromGood := map[object.Hash]bool{}
	for _, g := range st.Good {
		anc, err := e.graph.Ancestors(g, 0)
		if err != nil {
			return nil, err
		}
		for _, h := range anc {
			reachableFromGood[h] = true
		}
	}
	skipped := map[object.Hash]bool{}
	for _, s := range st.Skipped {
		skipped[s] = true
	}

	anc, err := e.graph.Ancestors(st.Bad, 0)
	if err != nil {
		return nil, err
	}
	var out []object.Hash
	for _, h := range anc {
		if h == st.Bad {
			continue
		}
		if reachableFromGood[h] || skipped[h] {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// pickBisectMidpoint picks the candidate whose ancestor count is closest to
// half the candidate set's size — the commit that splits the remaining
// search range most evenly, minimizing the worst-case number of steps left.
func (e *Engine) pickBisectMidpoint(candidates []object.Hash) (object.Hash, error) {
	target := len(candidates) / 2
	candidateSet := make(map[object.Hash]bool, len(candidates))
	for _, c := range candidates {
		candidateSet[c] = true
	}

	best := candidates[0]
	bestDist := -1
	for _, c := range candidates {
		anc, err := e.graph.Ancestors(c, 0)
		if err != nil {
			return "", err
		}
		count := 0
		for _, h := range anc {
			if h != c && candidateSet[h] {
				count++
			}
		}
		dist := count - target
		if dist < 0 {
			dist = -dist
		}
		if bestDist == -1 || dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best, nil
}
