package upload

import (
	"time"

	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
)

// The response types are shared by the server handlers and the command line client.

type UploadedFile struct {
	ID           int    `json:"id"`
	Filename     string `json:"filename"`
	RelativePath string `json:"relativePath"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

type UploadResponse struct {
	Success            bool           `json:"success"`
	Message            string         `json:"message"`
	UploadedFiles      []UploadedFile `json:"uploadedFiles"`
	TotalSize          int64          `json:"totalSize"`
	FolderID           int            `json:"folderId"`
	FolderPath         string         `json:"folderPath"`
	OriginalFolderName string         `json:"originalFolderName"`
	UploadID           string         `json:"uploadId"`
	Timestamp          int64          `json:"timestamp"`
	Duration           int64          `json:"duration"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Code      string `json:"code"`
	Details   string `json:"details"`
	UploadID  string `json:"uploadId,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Duration  int64  `json:"duration"`
}

// NewErrorResponse builds the body sent for a failed request. Timestamp is
// when the request started. uploadID is empty when the failure happened
// before a session existed.
func NewErrorResponse(err *uperr.UploadError, uploadID string, started time.Time) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Message:   err.Message,
		Code:      string(err.Code),
		Details:   err.Details(),
		UploadID:  uploadID,
		Timestamp: started.UnixMilli(),
		Duration:  time.Since(started).Milliseconds(),
	}
}

const (
	NodeTypeFile   = "file"
	NodeTypeFolder = "folder"
)

// Node is one entry in a folder structure listing.
type Node struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	RelativePath string    `json:"relativePath"`
	Size         int64     `json:"size,omitempty"`
	MimeType     string    `json:"mimetype,omitempty"`
	LastModified time.Time `json:"lastModified"`
	Children     []*Node   `json:"children,omitempty"`
}

type StructureResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	FolderName string `json:"folderName"`
	Structure  *Node  `json:"structure"`
	TotalFiles int    `json:"totalFiles"`
	TotalSize  int64  `json:"totalSize"`
}
