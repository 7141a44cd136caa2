package mcmodel

import "time"

// Folder groups the files of one upload. Path is the upload ID, which is
// also the name of the upload's directory under the upload root.
type Folder struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Path      string    `json:"path" gorm:"uniqueIndex;size:64"`
	IsPublic  bool      `json:"is_public"`
	Files     []File    `json:"files,omitempty" gorm:"foreignKey:FolderID;references:ID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Folder) TableName() string {
	return "folders"
}

type UserFolder struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id" gorm:"index:idx_user_folder,unique"`
	FolderID  int       `json:"folder_id" gorm:"index:idx_user_folder,unique"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserFolder) TableName() string {
	return "user_folders"
}
