package upload

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/go-uuid"
)

// Session is the state for a single upload request. Its directory is not
// created until the first file is written into it.
type Session struct {
	ID            string
	Dir           string
	StartedAt     time.Time
	BytesAccepted int64
}

// NewSession creates a session with a freshly generated ID whose directory
// lives directly under root.
func NewSession(root string) (*Session, error) {
	now := time.Now()
	id, err := generateUploadID(now)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		Dir:       filepath.Join(root, id),
		StartedAt: now,
	}, nil
}

var uploadIDPattern = regexp.MustCompile(`^upload_[0-9a-z]+_[0-9a-f]{8}$`)

// IsValidUploadID reports whether id has the form generateUploadID produces.
// IDs taken from a request must pass this before being joined to a path.
func IsValidUploadID(id string) bool {
	return uploadIDPattern.MatchString(id)
}

// generateUploadID returns upload_<base36 unix millis>_<8 hex chars>.
func generateUploadID(now time.Time) (string, error) {
	random, err := uuid.GenerateRandomBytes(4)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("upload_%s_%s", strconv.FormatInt(now.UnixMilli(), 36), hex.EncodeToString(random)), nil
}

// FileEntry describes one file that has been written to disk.
type FileEntry struct {
	Filename     string
	RelativePath string
	Size         int64
	MimeType     string
	Checksum     string
}

// ProcessedUpload is the manifest of everything written to disk for a session.
type ProcessedUpload struct {
	Files              []FileEntry
	TotalSize          int64
	OriginalFolderName string
	FolderPath         string
	UploadID           string
}

// RecordedFile is a file as stored in the database.
type RecordedFile struct {
	ID           int
	Filename     string
	RelativePath string
	Size         int64
	URL          string
}

// RecordedUpload is what the metadata recorder created for a ProcessedUpload.
type RecordedUpload struct {
	FolderID int
	Files    []RecordedFile
}
