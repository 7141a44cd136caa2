package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/labstack/echo/v4"
	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcdb/stor"
	"github.com/materials-commons/mcupload/pkg/mcupload/ingest"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
	"github.com/materials-commons/mcupload/pkg/mcupload/webapi/apimiddleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("mcupload-webapi")

// UploadController handles folder uploads. Each request runs validate,
// ingest and persist in order; if ingest or persist fails the upload's
// directory is removed before the error is returned.
type UploadController struct {
	limits     ingest.Limits
	uploadStor stor.UploadStor
	ingestor   *ingest.Ingestor
}

// NewUploadController creates the controller. A nil writer means files are
// written with an ingest.DiskWriter.
func NewUploadController(limits ingest.Limits, uploadStor stor.UploadStor, writer ingest.FileWriter) *UploadController {
	return &UploadController{
		limits:     limits,
		uploadStor: uploadStor,
		ingestor:   ingest.NewIngestor(limits, writer),
	}
}

// UploadFolder handles POST /api/upload.
func (c *UploadController) UploadFolder(ctx echo.Context) error {
	started := time.Now()

	user, ok := ctx.Get(apimiddleware.UserKey).(*mcmodel.User)
	if !ok || user == nil {
		return c.respondWithError(ctx, uperr.New(uperr.NoAuthToken, "no authenticated user"), "", started)
	}

	session, err := upload.NewSession(c.limits.UploadDir)
	if err != nil {
		return c.respondWithError(ctx, uperr.Wrap(err, uperr.InternalError, "unable to create upload session"), "", started)
	}

	reqCtx, span := tracer.Start(ctx.Request().Context(), "upload_folder",
		trace.WithAttributes(
			attribute.String("upload_id", session.ID),
			attribute.Int("user_id", user.ID),
		))
	defer span.End()

	reqCtx, cancel := context.WithTimeout(reqCtx, c.limits.UploadTimeout)
	defer cancel()

	// When the upload fails or times out, closing the body fails any read still
	// in flight against it, so goroutines reading abandoned parts stop buffering.
	// The deferred cancel triggers it for failures.
	stopBodyClose := context.AfterFunc(reqCtx, func() {
		_ = ctx.Request().Body.Close()
	})

	// Not all ResponseWriters support read deadlines; the context bounds the
	// upload either way.
	if deadline, ok := reqCtx.Deadline(); ok {
		if err := http.NewResponseController(ctx.Response().Writer).SetReadDeadline(deadline); err != nil {
			log.WithField("upload_id", session.ID).Debugf("Read deadline not set: %s", err)
		}
	}

	m := &uploadMachine{}
	manifest, recorded, err := c.runPipeline(reqCtx, ctx.Request(), session, user, m)
	if err != nil {
		uerr := classifyFailure(reqCtx, err, c.limits.UploadTimeout)
		if m.needsRollback() {
			_ = m.transition(stateAborting)
			c.rollback(reqCtx, session)
		}
		_ = m.transition(stateFailed)

		span.RecordError(uerr)
		span.SetStatus(codes.Error, string(uerr.Code))
		return c.respondWithError(ctx, uerr, session.ID, started)
	}

	stopBodyClose()
	_ = m.transition(stateCommitted)
	span.SetAttributes(
		attribute.Int("file_count", len(manifest.Files)),
		attribute.Int64("total_size", manifest.TotalSize),
	)

	resp := toUploadResponse(manifest, recorded, started)
	log.WithFields(log.Fields{
		"upload_id":   session.ID,
		"user_id":     user.ID,
		"files":       len(resp.UploadedFiles),
		"total_size":  resp.TotalSize,
		"duration_ms": resp.Duration,
	}).Infof("Upload committed")

	return ctx.JSON(http.StatusOK, resp)
}

func (c *UploadController) runPipeline(ctx context.Context, r *http.Request, session *upload.Session, user *mcmodel.User, m *uploadMachine) (*upload.ProcessedUpload, *upload.RecordedUpload, error) {
	var (
		manifest *upload.ProcessedUpload
		recorded *upload.RecordedUpload
	)

	if err := m.transition(stateValidating); err != nil {
		return nil, nil, err
	}

	err := withSpan(ctx, "validate", func(ctx context.Context) error {
		if err := ingest.CheckRequestHeaders(r.Header.Get(echo.HeaderContentType), r.ContentLength, c.limits); err != nil {
			return err
		}

		if err := ingest.ValidateEnvironment(c.limits.UploadDir); err != nil {
			return err
		}

		return ingest.CheckFreeSpace(c.limits.UploadDir, r.ContentLength)
	})
	if err != nil {
		return nil, nil, err
	}

	parts, err := r.MultipartReader()
	if err != nil {
		return nil, nil, uperr.Wrap(err, uperr.InvalidContentType, "unable to read multipart request")
	}

	if err := m.transition(stateIngesting); err != nil {
		return nil, nil, err
	}

	err = withSpan(ctx, "ingest", func(ctx context.Context) error {
		manifest, err = c.ingestor.Ingest(ctx, parts, session)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if err := m.transition(statePersisting); err != nil {
		return nil, nil, err
	}

	err = withSpan(ctx, "persist", func(ctx context.Context) error {
		recorded, err = c.uploadStor.RecordUpload(ctx, manifest, user.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return manifest, recorded, nil
}

// rollback runs after the pipeline has returned, so no write for the
// session can still be in flight.
func (c *UploadController) rollback(ctx context.Context, session *upload.Session) {
	_, span := tracer.Start(ctx, "rollback", trace.WithAttributes(attribute.String("dir", session.Dir)))
	defer span.End()

	ingest.Rollback(session.Dir)
}

// classifyFailure reports any failure that happened after the upload
// deadline passed as UPLOAD_TIMEOUT, whatever stage noticed it.
func classifyFailure(ctx context.Context, err error, timeout time.Duration) *uperr.UploadError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return uperr.Wrap(err, uperr.UploadTimeout, "upload did not complete within %s", timeout)
	}

	return uperr.Classify(err)
}

func withSpan(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *UploadController) respondWithError(ctx echo.Context, uerr *uperr.UploadError, uploadID string, started time.Time) error {
	resp := upload.NewErrorResponse(uerr, uploadID, started)
	entry := log.WithFields(log.Fields{
		"upload_id":   uploadID,
		"code":        uerr.Code,
		"status":      uerr.Status,
		"duration_ms": resp.Duration,
	})

	if uerr.Status >= http.StatusInternalServerError {
		entry.Errorf("Upload failed: %s", uerr)
	} else {
		entry.Warnf("Upload rejected: %s", uerr)
	}

	return ctx.JSON(uerr.Status, resp)
}

func toUploadResponse(manifest *upload.ProcessedUpload, recorded *upload.RecordedUpload, started time.Time) upload.UploadResponse {
	files := make([]upload.UploadedFile, 0, len(recorded.Files))
	for _, f := range recorded.Files {
		files = append(files, upload.UploadedFile{
			ID:           f.ID,
			Filename:     f.Filename,
			RelativePath: f.RelativePath,
			Size:         f.Size,
			URL:          f.URL,
		})
	}

	return upload.UploadResponse{
		Success:            true,
		Message:            fmt.Sprintf("Folder %q uploaded successfully with %d files", manifest.OriginalFolderName, len(files)),
		UploadedFiles:      files,
		TotalSize:          manifest.TotalSize,
		FolderID:           recorded.FolderID,
		FolderPath:         manifest.UploadID,
		OriginalFolderName: manifest.OriginalFolderName,
		UploadID:           manifest.UploadID,
		Timestamp:          started.UnixMilli(),
		Duration:           time.Since(started).Milliseconds(),
	}
}
