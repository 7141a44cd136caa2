package webapi

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes adds the upload API to g. Authentication is the caller's
// job; handlers expect the user at apimiddleware.UserKey.
func RegisterRoutes(g *echo.Group, uploadController *UploadController, structureController *FolderStructureController) {
	g.POST("/upload", uploadController.UploadFolder)
	g.GET("/upload/:uploadId/structure", structureController.GetFolderStructure)
}
