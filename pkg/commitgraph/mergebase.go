package commitgraph

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/glyphvcs/glyph/pkg/object"
)

// generationCache memoizes each commit's generation number (1 + max parent
// generation, 0 for a root) so repeated LowestCommonAncestor calls don't
// re-walk the whole history each time. Grounded on the teacher's
// pkg/repo/merge_base_cache.go mergeBaseTraversalState.
type generationCache struct {
	mu          sync.RWMutex
	generations map[object.Hash]uint64
}

func newGenerationCache() *generationCache {
	return &generationCache{generations: make(map[object.Hash]uint64)}
}

func (c *generationCache) load(h object.Hash) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.generations[h]
	return g, ok
}

func (c *generationCache) store(h object.Hash, g uint64) {
	c.mu.Lock()
	c.generations[h] = g
	c.mu.Unlock()
}

func (g *Graph) generation(cache *generationCache, h object.Hash) (uint64, error) {
	return g.generationRecursive(cache, h, map[object.Hash]bool{})
}

func (g *Graph) generationRecursive(cache *generationCache, h object.Hash, visiting map[object.Hash]bool) (uint64, error) {
	if h == "" {
		return 0, nil
	}
	if gen, ok := cache.load(h); ok {
		return gen, nil
	}
	if visiting[h] {
		return 0, fmt.Errorf("commitgraph: %w at %s", ErrCycle, h)
	}
	visiting[h] = true
	defer delete(visiting, h)

	rec, err := g.ReadCommit(h)
	if err != nil {
		return 0, err
	}
	var maxParent uint64
	for _, p := range rec.Parents {
		pg, err := g.generationRecursive(cache, p, visiting)
		if err != nil {
			return 0, err
		}
		if pg > maxParent {
			maxParent = pg
		}
	}
	gen := maxParent + 1
	cache.store(h, gen)
	return gen, nil
}

// heapItem is one frontier entry ordered by generation (higher first), with
// hash as a lexicographic tie-break, matching spec 4.E's tie-break rule.
type heapItem struct {
	hash       object.Hash
	generation uint64
}

type maxHeap []heapItem

func (h maxHeap) Len() int { return len(h) }
func (h maxHeap) Less(i, j int) bool {
	if h[i].generation == h[j].generation {
		return h[i].hash < h[j].hash
	}
	return h[i].generation > h[j].generation
}
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)         { *h = append(*h, x.(heapItem)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// LowestCommonAncestor finds the LCA of a and b via a bidirectional,
// generation-number-pruned frontier walk: both frontiers expand their
// highest-generation commit first, so the search converges on the most
// recent common ancestor without visiting all of history. Grounded on the
// teacher's pkg/repo/merge.go findMergeBaseWithPruning and
// merge_base_queue.go's mergeBaseMaxHeap.
func (g *Graph) LowestCommonAncestor(a, b object.Hash) (object.Hash, bool, error) {
	if a == b {
		return a, true, nil
	}
	cache := newGenerationCache()

	ga, err := g.generation(cache, a)
	if err != nil {
		return "", false, err
	}
	gb, err := g.generation(cache, b)
	if err != nil {
		return "", false, err
	}

	seenA := map[object.Hash]bool{a: true}
	seenB := map[object.Hash]bool{b: true}
	var frontierA, frontierB maxHeap
	heap.Push(&frontierA, heapItem{hash: a, generation: ga})
	heap.Push(&frontierB, heapItem{hash: b, generation: gb})

	for frontierA.Len() > 0 || frontierB.Len() > 0 {
		if frontierA.Len() > 0 && (frontierB.Len() == 0 || frontierA[0].generation >= frontierB[0].generation) {
			item := heap.Pop(&frontierA).(heapItem)
			if seenB[item.hash] {
				return item.hash, true, nil
			}
			rec, err := g.ReadCommit(item.hash)
			if err != nil {
				return "", false, err
			}
			for _, p := range rec.Parents {
				if seenA[p] {
					continue
				}
				seenA[p] = true
				pg, err := g.generation(cache, p)
				if err != nil {
					return "", false, err
				}
				heap.Push(&frontierA, heapItem{hash: p, generation: pg})
			}
			continue
		}
		item := heap.Pop(&frontierB).(heapItem)
		if seenA[item.hash] {
			return item.hash, true, nil
		}
		rec, err := g.ReadCommit(item.hash)
		if err != nil {
			return "", false, err
		}
		for _, p := range rec.Parents {
			if seenB[p] {
				continue
			}
			seenB[p] = true
			pg, err := g.generation(cache, p)
			if err != nil {
				return "", false, err
			}
			heap.Push(&frontierB, heapItem{hash: p, generation: pg})
		}
	}
	return "", false, nil
}

// IsAncestor reports whether ancestor is reachable by walking descendant's
// parent chain — a fast path callers use before falling back to a full LCA
// query (fast-forward detection in pkg/vcsmerge).
func (g *Graph) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	visited := map[object.Hash]bool{}
	stack := []object.Hash{descendant}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == ancestor {
			return true, nil
		}
		if visited[h] {
			continue
		}
		visited[h] = true
		rec, err := g.ReadCommit(h)
		if err != nil {
			return false, err
		}
		stack = append(stack, rec.Parents...)
	}
	return false, nil
}
