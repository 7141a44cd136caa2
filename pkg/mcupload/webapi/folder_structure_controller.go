package webapi

import (
	"net/http"
	"path/filepath"

	"github.com/apex/log"
	"github.com/labstack/echo/v4"
	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcdb/stor"
	"github.com/materials-commons/mcupload/pkg/mcupload/tree"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/materials-commons/mcupload/pkg/mcupload/webapi/apimiddleware"
)

type FolderStructureController struct {
	uploadDir  string
	uploadStor stor.UploadStor
}

func NewFolderStructureController(uploadDir string, uploadStor stor.UploadStor) *FolderStructureController {
	return &FolderStructureController{uploadDir: uploadDir, uploadStor: uploadStor}
}

// GetFolderStructure handles GET /api/upload/:uploadId/structure. Unknown
// folders and folders owned by someone else are both reported as not found.
func (c *FolderStructureController) GetFolderStructure(ctx echo.Context) error {
	user, ok := ctx.Get(apimiddleware.UserKey).(*mcmodel.User)
	if !ok || user == nil {
		return echo.ErrUnauthorized
	}

	uploadID := ctx.Param("uploadId")
	if !upload.IsValidUploadID(uploadID) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid upload id")
	}

	folder, err := c.uploadStor.GetFolderByUploadID(ctx.Request().Context(), uploadID)
	if err != nil || !c.uploadStor.UserOwnsFolder(ctx.Request().Context(), user.ID, folder.ID) {
		return echo.NewHTTPError(http.StatusNotFound, "folder not found")
	}

	dir := filepath.Join(c.uploadDir, uploadID)
	structure, err := tree.Build(dir)
	if err != nil {
		log.WithField("upload_id", uploadID).Errorf("Failed building folder structure: %s", err)
		return echo.NewHTTPError(http.StatusNotFound, "folder not found")
	}

	totalFiles, totalSize, err := tree.Stats(ctx.Request().Context(), dir)
	if err != nil {
		log.WithField("upload_id", uploadID).Errorf("Failed computing folder stats: %s", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "unable to read folder")
	}

	return ctx.JSON(http.StatusOK, upload.StructureResponse{
		Success:    true,
		Message:    "Folder structure retrieved successfully",
		FolderName: folder.Name,
		Structure:  structure,
		TotalFiles: totalFiles,
		TotalSize:  totalSize,
	})
}
