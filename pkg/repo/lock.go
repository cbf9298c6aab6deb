package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// LockMode selects exclusive (writer) or shared (reader) acquisition,
// spec 5's "mutating operations acquire an exclusive repository lock ...
// readers acquire a shared lock".
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

const (
	lockRetryDelay = 10 * time.Millisecond
	lockWaitLimit  = 5 * time.Second
	// staleLockTimeout bounds how old a lock's recorded heartbeat may be
	// before Lock treats it as abandoned (holder crashed without
	// releasing) rather than merely slow — spec 5's "stale locks older
	// than a configured timeout are reclaimable after operator
	// confirmation". The confirmation step is represented by the
	// StaleLockConfirm callback passed to Lock, not assumed here.
	staleLockTimeout = 30 * time.Second
)

// lockMeta is the human-inspectable content written into the lock file,
// used only to decide staleness and for diagnostics; the actual mutual
// exclusion comes from the flock(2) call on the descriptor.
type lockMeta struct {
	PID       int   `json:"pid"`
	Acquired  int64 `json:"acquired_unix"`
	Exclusive bool  `json:"exclusive"`
}

// RepoLock is a file-system-backed advisory lock over one repository,
// held for the duration of a single mutating or reading operation.
// Grounded on the teacher's acquireRefLock (pkg/repo/init.go): the same
// bounded polling wait and "lock file next to the thing it guards"
// layout, generalized from a per-ref O_EXCL lock to a whole-repository
// shared/exclusive lock using a real POSIX advisory lock (flock) so
// concurrent readers can hold the same lock file at once.
type RepoLock struct {
	file *os.File
	mode LockMode
}

// StaleLockConfirm is called with the path and recorded age of a lock that
// looks abandoned; returning true lets Lock reclaim it. A nil callback
// never reclaims (equivalent to always answering "no").
type StaleLockConfirm func(path string, age time.Duration) bool

// Lock acquires the repository lock at path in the given mode, waiting up
// to lockWaitLimit before returning ErrRepositoryBusy. A lock file found
// older than staleLockTimeout is offered to confirm for reclaiming before
// the wait begins; confirm may be nil to disable reclaiming.
func Lock(path string, mode LockMode, confirm StaleLockConfirm) (*RepoLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("repo: lock: mkdir: %w", err)
	}

	if confirm != nil {
		if age, stale := staleAge(path); stale {
			if confirm(path, age) {
				_ = os.Remove(path)
			}
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("repo: lock: open: %w", err)
	}

	flockOp := unix.LOCK_SH | unix.LOCK_NB
	if mode == LockExclusive {
		flockOp = unix.LOCK_EX | unix.LOCK_NB
	}

	deadline := time.Now().Add(lockWaitLimit)
	for {
		err := unix.Flock(int(f.Fd()), flockOp)
		if err == nil {
			break
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, fmt.Errorf("repo: lock: flock: %w", err)
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("repo: lock %q: %w", path, ErrRepositoryBusy)
		}
		time.Sleep(lockRetryDelay)
	}

	if mode == LockExclusive {
		meta := lockMeta{PID: os.Getpid(), Acquired: time.Now().Unix(), Exclusive: true}
		data, _ := json.Marshal(meta)
		_ = f.Truncate(0)
		_, _ = f.WriteAt(data, 0)
		_ = f.Sync()
	}

	return &RepoLock{file: f, mode: mode}, nil
}

// Unlock releases the lock. Exclusive locks truncate the metadata back to
// empty so the next acquirer's staleness check sees a fresh file.
func (l *RepoLock) Unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	if l.mode == LockExclusive {
		_ = l.file.Truncate(0)
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("repo: unlock: %w", err)
	}
	return l.file.Close()
}

// staleAge reports the age of an existing lock file's recorded exclusive
// acquisition time, if any, and whether it exceeds staleLockTimeout.
func staleAge(path string) (time.Duration, bool) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return 0, false
	}
	var meta lockMeta
	if err := json.Unmarshal(data, &meta); err != nil || !meta.Exclusive {
		return 0, false
	}
	age := time.Since(time.Unix(meta.Acquired, 0))
	return age, age > staleLockTimeout
}
