package stor

import (
	"context"
	"strings"

	"github.com/apex/log"
	"github.com/gosimple/slug"
	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
	"gorm.io/gorm"
)

const DefaultURLPrefix = "/private"

type GormUploadStor struct {
	db        *gorm.DB
	urlPrefix string
}

func NewGormUploadStor(db *gorm.DB, urlPrefix string) *GormUploadStor {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}

	return &GormUploadStor{db: db, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

// RecordUpload is not retried. A failed attempt is reported as
// DATABASE_SAVE_ERROR and the caller removes the files from disk.
func (s *GormUploadStor) RecordUpload(ctx context.Context, processed *upload.ProcessedUpload, userID int) (*upload.RecordedUpload, error) {
	var recorded *upload.RecordedUpload

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		folder := &mcmodel.Folder{
			Name:     processed.OriginalFolderName,
			Slug:     slug.Make(processed.OriginalFolderName),
			Path:     processed.UploadID,
			IsPublic: false,
		}

		if err := tx.Create(folder).Error; err != nil {
			return err
		}

		if err := tx.Create(&mcmodel.UserFolder{UserID: userID, FolderID: folder.ID}).Error; err != nil {
			return err
		}

		recorded = &upload.RecordedUpload{FolderID: folder.ID}
		for _, entry := range processed.Files {
			file := &mcmodel.File{
				Name:         entry.Filename,
				MimeType:     entry.MimeType,
				Size:         entry.Size,
				Checksum:     entry.Checksum,
				RelativePath: entry.RelativePath,
				FolderID:     folder.ID,
				IsPublic:     false,
				Optimized:    false,
			}

			if err := tx.Create(file).Error; err != nil {
				return err
			}

			route := &mcmodel.Route{FileID: file.ID, URL: s.urlFor(processed.UploadID, entry.RelativePath)}
			if err := tx.Create(route).Error; err != nil {
				return err
			}

			if err := tx.Create(&mcmodel.UserFile{UserID: userID, FileID: file.ID}).Error; err != nil {
				return err
			}

			recorded.Files = append(recorded.Files, upload.RecordedFile{
				ID:           file.ID,
				Filename:     file.Name,
				RelativePath: file.RelativePath,
				Size:         file.Size,
				URL:          route.URL,
			})
		}

		return nil
	})

	if err != nil {
		log.WithFields(log.Fields{"upload_id": processed.UploadID, "user_id": userID}).Errorf("Failed recording upload: %s", err)
		return nil, uperr.Wrap(err, uperr.DatabaseSaveError, "error saving files to the database")
	}

	return recorded, nil
}

func (s *GormUploadStor) urlFor(uploadID, relativePath string) string {
	return s.urlPrefix + "/" + uploadID + "/" + relativePath
}

func (s *GormUploadStor) GetFolderByUploadID(ctx context.Context, uploadID string) (*mcmodel.Folder, error) {
	var folder mcmodel.Folder
	err := s.db.WithContext(ctx).
		Preload("Files").
		Where("path = ?", uploadID).
		First(&folder).Error
	if err != nil {
		return nil, err
	}

	return &folder, nil
}

func (s *GormUploadStor) UserOwnsFolder(ctx context.Context, userID, folderID int) bool {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&mcmodel.UserFolder{}).
		Where("user_id = ?", userID).
		Where("folder_id = ?", folderID).
		Count(&count).Error

	return err == nil && count != 0
}
