package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
)

const tempFileMarker = ".tmp-"

// IsTempFile reports whether name is a DiskWriter temp file that has not
// been renamed into place yet.
func IsTempFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, tempFileMarker)
}

// FileWriter persists a file's bytes at root/relativePath.
type FileWriter interface {
	WriteFile(data []byte, root, relativePath string) error
}

// DiskWriter writes files with a write-to-temp then rename discipline, so
// the final path either does not exist or holds the complete content.
type DiskWriter struct {
	// rename is os.Rename except in tests.
	rename func(oldpath, newpath string) error
}

func NewDiskWriter() *DiskWriter {
	return &DiskWriter{rename: os.Rename}
}

func (w *DiskWriter) WriteFile(data []byte, root, relativePath string) error {
	fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
	dir := filepath.Dir(fullPath)

	if err := EnsureDir(dir); err != nil {
		return uperr.Wrap(err, uperr.FileSaveError, "error creating directory for %s", relativePath)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+tempFileMarker+"*")
	if err != nil {
		return uperr.Wrap(err, uperr.FileSaveError, "error saving file %s", relativePath)
	}
	tempPath := tempFile.Name()

	if err := writeAndClose(tempFile, data); err != nil {
		_ = os.Remove(tempPath)
		return uperr.Wrap(err, uperr.FileSaveError, "error saving file %s", relativePath)
	}

	if err := w.rename(tempPath, fullPath); err != nil {
		_ = os.Remove(tempPath)
		return uperr.Wrap(err, uperr.FileSaveError, "error saving file %s", relativePath)
	}

	return nil
}

func writeAndClose(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}

	// Flush before the rename makes the file visible.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// EnsureDir creates dir and any missing parents. An existing directory is not an error.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
