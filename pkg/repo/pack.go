package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glyphvcs/glyph/pkg/codec"
	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/pack"
)

// PackObjects writes every object reachable from roots into a new pack file
// at <ctrl-dir>/packs/<name>.pack, where name is supplied by the caller. Spec
// 4.I's write path; read path is loadPacks on Open.
func (r *Repo) PackObjects(roots []object.Hash, name string) (*pack.Manifest, error) {
	reachable, err := r.Objects.ReachableSet(roots)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}

	w := pack.NewWriter()
	for h := range reachable {
		typ, content, err := r.Objects.Read(h)
		if err != nil {
			return nil, fmt.Errorf("pack: read %s: %w", h, err)
		}
		if _, _, err := w.AddObject(typ, content, codec.Zstd, codec.LevelDefault); err != nil {
			return nil, fmt.Errorf("pack: add %s: %w", h, err)
		}
	}

	dir := ctrlSubdir(r.CtrlDir, "packs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pack: mkdir: %w", err)
	}
	path := filepath.Join(dir, name+".pack")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("pack: create %s: %w", path, err)
	}
	defer f.Close()

	manifest, err := w.WriteTo(f)
	if err != nil {
		return nil, fmt.Errorf("pack: write %s: %w", path, err)
	}
	return manifest, nil
}

// VerifyPacks checksums every pack file currently loaded on Objects,
// surfacing spec 7's Corruption/ChecksumMismatch kind on the first bad pack.
func (r *Repo) VerifyPacks() error {
	dir := ctrlSubdir(r.CtrlDir, "packs")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("verify packs: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pack" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("verify %s: %w", e.Name(), err)
		}
		info, statErr := f.Stat()
		if statErr != nil {
			f.Close()
			return fmt.Errorf("verify %s: %w", e.Name(), statErr)
		}
		reader, openErr := pack.Open(f, info.Size())
		if openErr != nil {
			f.Close()
			return fmt.Errorf("verify %s: %w", e.Name(), openErr)
		}
		verifyErr := reader.Verify()
		f.Close()
		if verifyErr != nil {
			return fmt.Errorf("verify %s: %w", e.Name(), verifyErr)
		}
	}
	return nil
}
