package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glyphvcs/glyph/pkg/object"
)

// filePermFromFileInfo classifies a regular file's executable bit into one
// of spec 3's two plain-file tree modes — the inverse of worktree's
// filePermFromMode, needed here to go from a working-tree stat back to a
// tree mode when staging. Grounded on the teacher's pkg/repo/filemode.go
// (modeFromFileInfo), ported onto object.ModeFile/ModeExecutable.
func filePermFromFileInfo(info os.FileInfo) string {
	if info.Mode()&0o111 != 0 {
		return object.ModeExecutable
	}
	return object.ModeFile
}

// Add stages the given repository-relative or working-directory paths: each
// file's content is written as a blob and the index entry is updated to
// point at it, per spec 4.D/4.G's add(paths).
func (r *Repo) Add(paths []string) error {
	for _, p := range paths {
		rel, err := r.relPath(p)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
		info, err := os.Lstat(abs)
		if err != nil {
			return fmt.Errorf("add %q: %w", rel, err)
		}
		if info.IsDir() {
			if err := r.addDir(abs, rel); err != nil {
				return err
			}
			continue
		}
		if err := r.addFile(abs, rel, info); err != nil {
			return err
		}
	}
	return r.Index.Flush()
}

func (r *Repo) addDir(abs, rel string) error {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("add %q: %w", rel, err)
	}
	for _, e := range entries {
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}
		if e.Name() == ControlDirName {
			continue
		}
		childAbs := filepath.Join(abs, e.Name())
		if e.IsDir() {
			if err := r.addDir(childAbs, childRel); err != nil {
				return err
			}
			continue
		}
		info, err := e.Info()
		if err != nil {
			return fmt.Errorf("add %q: %w", childRel, err)
		}
		if err := r.addFile(childAbs, childRel, info); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) addFile(abs, rel string, info os.FileInfo) error {
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("add %q: %w", rel, err)
	}
	if _, err := r.Index.Put(rel, content, filePermFromFileInfo(info)); err != nil {
		return fmt.Errorf("add %q: %w", rel, err)
	}
	return nil
}

// relPath converts p (absolute, or relative to the process cwd) into a
// repository-relative, forward-slash path. Grounded on the teacher's
// pkg/repo/staging.go (repoRelPath).
func (r *Repo) relPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("resolve path %q: %w", p, err)
		}
		return filepath.ToSlash(rel), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	abs := filepath.Join(cwd, p)
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil || (len(rel) >= 2 && rel[:2] == "..") {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	return filepath.ToSlash(rel), nil
}
