package cmd

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/materials-commons/mcupload/pkg/mcdb/stor"
	"github.com/materials-commons/mcupload/pkg/mcupload/ingest"
	"github.com/materials-commons/mcupload/pkg/mcupload/webapi"
	"github.com/materials-commons/mcupload/pkg/mcupload/webapi/apimiddleware"
)

type RouteOpts struct {
	limits    ingest.Limits
	stors     *stor.Stors
	jwtSecret []byte
}

func setupRoutes(e *echo.Echo, opts RouteOpts) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	g := e.Group("/api", apimiddleware.UserAuth(apimiddleware.UserAuthConfig{
		Secret: opts.jwtSecret,
		Users:  apimiddleware.NewUserCache(opts.stors.UserStor),
	}))

	webapi.RegisterRoutes(g,
		webapi.NewUploadController(opts.limits, opts.stors.UploadStor, nil),
		webapi.NewFolderStructureController(opts.limits.UploadDir, opts.stors.UploadStor))
}
