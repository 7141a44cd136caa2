package stor

import (
	"context"
	"fmt"
	"sync"

	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
)

// FakeUploadStor is an in memory UploadStor for tests. Setting FailWith makes
// RecordUpload fail the way a rolled back transaction does.
type FakeUploadStor struct {
	FailWith error

	mu      sync.Mutex
	nextID  int
	folders map[string]*mcmodel.Folder
	owners  map[int]int
	Calls   int
}

func NewFakeUploadStor() *FakeUploadStor {
	return &FakeUploadStor{
		nextID:  1,
		folders: make(map[string]*mcmodel.Folder),
		owners:  make(map[int]int),
	}
}

func (s *FakeUploadStor) RecordUpload(_ context.Context, processed *upload.ProcessedUpload, userID int) (*upload.RecordedUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	if s.FailWith != nil {
		return nil, uperr.Wrap(s.FailWith, uperr.DatabaseSaveError, "error saving files to the database")
	}

	folder := &mcmodel.Folder{ID: s.id(), Name: processed.OriginalFolderName, Path: processed.UploadID}
	recorded := &upload.RecordedUpload{FolderID: folder.ID}
	for _, entry := range processed.Files {
		file := mcmodel.File{
			ID:           s.id(),
			Name:         entry.Filename,
			MimeType:     entry.MimeType,
			Size:         entry.Size,
			Checksum:     entry.Checksum,
			RelativePath: entry.RelativePath,
			FolderID:     folder.ID,
		}
		folder.Files = append(folder.Files, file)
		recorded.Files = append(recorded.Files, upload.RecordedFile{
			ID:           file.ID,
			Filename:     file.Name,
			RelativePath: file.RelativePath,
			Size:         file.Size,
			URL:          fmt.Sprintf("%s/%s/%s", DefaultURLPrefix, processed.UploadID, entry.RelativePath),
		})
	}

	s.folders[processed.UploadID] = folder
	s.owners[folder.ID] = userID

	return recorded, nil
}

func (s *FakeUploadStor) id() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *FakeUploadStor) GetFolderByUploadID(_ context.Context, uploadID string) (*mcmodel.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[uploadID]
	if !ok {
		return nil, fmt.Errorf("no such folder: %s", uploadID)
	}

	return folder, nil
}

func (s *FakeUploadStor) UserOwnsFolder(_ context.Context, userID, folderID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.owners[folderID]
	return ok && owner == userID
}

// FolderCount is the number of uploads successfully recorded.
func (s *FakeUploadStor) FolderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.folders)
}
