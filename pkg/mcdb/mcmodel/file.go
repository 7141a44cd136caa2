package mcmodel

import "time"

type File struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum" gorm:"size:64"`
	RelativePath string    `json:"relative_path"`
	FolderID     int       `json:"folder_id" gorm:"index"`
	Folder       *Folder   `json:"folder,omitempty" gorm:"foreignKey:FolderID;references:ID"`
	IsPublic     bool      `json:"is_public"`
	Optimized    bool      `json:"optimized"`
	Route        *Route    `json:"route,omitempty" gorm:"foreignKey:FileID;references:ID"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (File) TableName() string {
	return "files"
}

// Route is the URL a file is served at.
type Route struct {
	ID        int       `json:"id"`
	FileID    int       `json:"file_id" gorm:"uniqueIndex"`
	URL       string    `json:"url" gorm:"size:512"`
	CreatedAt time.Time `json:"created_at"`
}

func (Route) TableName() string {
	return "routes"
}

type UserFile struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id" gorm:"index:idx_user_file,unique"`
	FileID    int       `json:"file_id" gorm:"index:idx_user_file,unique"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserFile) TableName() string {
	return "user_files"
}
