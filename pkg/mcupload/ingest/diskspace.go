package ingest

import (
	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
	"golang.org/x/sys/unix"
)

// FreeSpace returns the bytes available to unprivileged users on the
// filesystem holding root.
func FreeSpace(root string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return 0, err
	}

	return uint64(st.Bavail) * uint64(st.Bsize), nil
}

// CheckFreeSpace fails when the filesystem holding root cannot fit needed
// bytes. A needed of zero or less (no declared Content-Length) always passes.
func CheckFreeSpace(root string, needed int64) error {
	if needed <= 0 {
		return nil
	}

	free, err := FreeSpace(root)
	if err != nil {
		return uperr.Wrap(err, uperr.NoWritePermissions, "unable to check free space in upload directory")
	}

	if free < uint64(needed) {
		return uperr.New(uperr.FileSaveError, "not enough free space for upload: %s needed, %s available",
			FormatSize(needed), FormatSize(int64(free)))
	}

	return nil
}
