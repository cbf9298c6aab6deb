package worktree

import (
	"os"
	"path/filepath"

	"github.com/glyphvcs/glyph/pkg/index"
	"github.com/glyphvcs/glyph/pkg/object"
)

// WriteBlob writes the content of blobHash to path under root, atomically,
// with the permission bits mode implies. Exported so pkg/vcsmerge can
// materialize a merge/cherry-pick/rebase result without duplicating the
// temp-file+fsync+rename dance CheckoutTree and Restore already use.
func WriteBlob(root string, objects *object.Store, path string, blobHash object.Hash, mode string) error {
	return writeBlobAtomically(root, objects, index.FileEntry{Path: path, BlobHash: blobHash, Mode: mode})
}

// WriteBytes is WriteBlob for content that hasn't been (or won't be) stored
// as a blob object. Conflict-marker files do not go through it: the merge
// engine stores the marker text as a blob and writes it with WriteBlob.
func WriteBytes(root, path string, data []byte, mode string) error {
	abs := filepath.Join(root, filepath.FromSlash(path))
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".glyph-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, filePermFromMode(mode)); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, abs)
}

// RemovePath deletes path from under root and cleans up any now-empty
// parent directories, mirroring CheckoutTree's deletion step.
func RemovePath(root, path string) error {
	abs := filepath.Join(root, filepath.FromSlash(path))
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	removeEmptyParents(root, filepath.Dir(abs))
	return nil
}
