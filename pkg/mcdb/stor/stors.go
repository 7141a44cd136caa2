package stor

import (
	"context"

	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"gorm.io/gorm"
)

// UploadStor records uploads and answers questions about the folders they created.
type UploadStor interface {
	// RecordUpload creates the folder, file, route and ownership rows for
	// an upload in one transaction. Either everything is created or nothing is.
	RecordUpload(ctx context.Context, processed *upload.ProcessedUpload, userID int) (*upload.RecordedUpload, error)
	GetFolderByUploadID(ctx context.Context, uploadID string) (*mcmodel.Folder, error)
	UserOwnsFolder(ctx context.Context, userID, folderID int) bool
}

type UserStor interface {
	CreateUser(user *mcmodel.User) (*mcmodel.User, error)
	GetUserByID(id int) (*mcmodel.User, error)
	GetUserByEmail(email string) (*mcmodel.User, error)
	GetUserByAPIToken(apitoken string) (*mcmodel.User, error)
}

type Stors struct {
	UploadStor UploadStor
	UserStor   UserStor
}

func NewGormStors(db *gorm.DB, urlPrefix string) *Stors {
	return &Stors{
		UploadStor: NewGormUploadStor(db, urlPrefix),
		UserStor:   NewGormUserStor(db),
	}
}
