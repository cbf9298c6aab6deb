// Package catalog implements the partitioned key-value catalog of spec 4.C:
// a set of named partitions (HEAD, BRANCHES, TAGS, INDEX, COMMITS, REMOTES,
// STASH, OPS, REFLOG) with get/set/delete/scan and a single-shot write_batch
// that applies a set of writes atomically and durably.
//
// The teacher (odvcencio/got) has no such abstraction — refs, the index, and
// config each get their own bespoke file with an atomic temp-file+rename
// (pkg/repo/init.go's UpdateRefCAS, staging.go's WriteStaging). This package
// generalizes that same primitive (one file per key, atomic rename) to
// arbitrary partitions, and adds a small write-ahead log so a batch touching
// several keys is either fully applied or not applied at all, even across a
// crash between individual renames (spec invariant 7, property P9).
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Partition names spec 4.C requires.
const (
	HEAD     = "HEAD"
	BRANCHES = "BRANCHES"
	TAGS     = "TAGS"
	INDEX    = "INDEX"
	COMMITS  = "COMMITS"
	REMOTES  = "REMOTES"
	STASH    = "STASH"
	OPS      = "OPS"
	REFLOG   = "REFLOG"
)

// ErrInvalidKey is returned for a key that would escape its partition
// directory or is otherwise unsafe to use as a path component.
var ErrInvalidKey = errors.New("catalog: invalid key")

// Op is one write inside a WriteBatch: either set Value or, when Delete is
// true, remove the key.
type Op struct {
	Partition string
	Key       string
	Delete    bool
	Value     []byte
}

// Catalog is the on-disk partitioned KV store rooted at a single directory.
type Catalog struct {
	root string
	mu   sync.Mutex
}

type walEntry struct {
	Partition string `json:"partition"`
	Key       string `json:"key"`
	Delete    bool   `json:"delete"`
	Value     []byte `json:"value,omitempty"`
}

// Open opens (creating if necessary) the catalog rooted at dir, replaying
// any write_batch that was interrupted mid-commit by a prior crash.
func Open(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: mkdir: %w", err)
	}
	c := &Catalog{root: dir}
	if err := c.replayPendingWAL(); err != nil {
		return nil, fmt.Errorf("catalog: replay pending batch: %w", err)
	}
	return c, nil
}

func (c *Catalog) walPath() string {
	return filepath.Join(c.root, ".wal-pending.json")
}

func keyPath(root, partition, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == "." || strings.HasPrefix(clean, "../") || clean == ".." || strings.HasPrefix(clean, "/") {
		return "", fmt.Errorf("%w: %q escapes partition", ErrInvalidKey, key)
	}
	return filepath.Join(root, partition, filepath.FromSlash(clean)), nil
}

// Get returns the raw value stored at (partition, key).
func (c *Catalog) Get(partition, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := keyPath(c.root, partition, key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("catalog: get %s/%s: %w", partition, key, err)
	}
	return data, true, nil
}

// Set is a convenience single-key WriteBatch.
func (c *Catalog) Set(partition, key string, value []byte) error {
	return c.WriteBatch([]Op{{Partition: partition, Key: key, Value: value}})
}

// Delete is a convenience single-key WriteBatch.
func (c *Catalog) Delete(partition, key string) error {
	return c.WriteBatch([]Op{{Partition: partition, Key: key, Delete: true}})
}

// Scan returns every key in partition whose slash-normalized name has the
// given prefix, mapped to its value.
func (c *Catalog) Scan(partition, prefix string) (map[string][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := filepath.Join(c.root, partition)
	out := make(map[string][]byte)
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == base {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(filepath.Base(rel), ".") {
			return nil
		}
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: scan %s/%s*: %w", partition, prefix, err)
	}
	return out, nil
}

// Keys returns the sorted key list for a partition (a thin wrapper over
// Scan("")), convenient for callers that only need names.
func (c *Catalog) Keys(partition string) ([]string, error) {
	m, err := c.Scan(partition, "")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// WriteBatch applies every op in ops as a single durable unit: either all
// keys reach their new state or, if the process crashes partway through,
// the batch is completed (not rolled back — every op is idempotent to
// re-apply) the next time the catalog is opened. This satisfies spec
// invariant 7 and property P9: a reader never observes a mixture of a
// batch's pre- and post-state once WriteBatch returns, and a crash cannot
// leave a batch half-applied forever.
func (c *Catalog) WriteBatch(ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commitBatch(ops)
}

func (c *Catalog) commitBatch(ops []Op) error {
	entries := make([]walEntry, len(ops))
	for i, op := range ops {
		if _, err := keyPath(c.root, op.Partition, op.Key); err != nil {
			return err
		}
		entries[i] = walEntry{Partition: op.Partition, Key: op.Key, Delete: op.Delete, Value: op.Value}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("catalog: marshal batch: %w", err)
	}
	if err := writeFileAtomic(c.walPath(), data); err != nil {
		return fmt.Errorf("catalog: stage batch: %w", err)
	}
	if err := c.applyWAL(entries); err != nil {
		return err
	}
	if err := os.Remove(c.walPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("catalog: clear batch marker: %w", err)
	}
	return nil
}

func (c *Catalog) applyWAL(entries []walEntry) error {
	for _, e := range entries {
		p, err := keyPath(c.root, e.Partition, e.Key)
		if err != nil {
			return err
		}
		if e.Delete {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("catalog: delete %s/%s: %w", e.Partition, e.Key, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("catalog: mkdir for %s/%s: %w", e.Partition, e.Key, err)
		}
		if err := writeFileAtomic(p, e.Value); err != nil {
			return fmt.Errorf("catalog: apply %s/%s: %w", e.Partition, e.Key, err)
		}
	}
	return nil
}

func (c *Catalog) replayPendingWAL() error {
	data, err := os.ReadFile(c.walPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var entries []walEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A pending marker we can't parse is not safely replayable; surface
		// it rather than silently dropping a possibly-half-applied batch.
		return fmt.Errorf("corrupt pending batch marker: %w", err)
	}
	if err := c.applyWAL(entries); err != nil {
		return err
	}
	return os.Remove(c.walPath())
}

// writeFileAtomic writes data to path via a temp file in the same directory,
// fsynced, then renamed into place — the same pattern as
// pkg/repo/staging.go's WriteStaging in the teacher.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
