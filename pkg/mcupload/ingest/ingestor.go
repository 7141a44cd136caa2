package ingest

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"

	"github.com/apex/log"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
)

const defaultMimeType = "application/octet-stream"

// PartReader is the part stream of a multipart request. *multipart.Reader implements it.
type PartReader interface {
	NextPart() (*multipart.Part, error)
}

// CheckRequestHeaders validates the request before any of its body is read.
// contentLength is -1 when the request did not declare one.
func CheckRequestHeaders(contentType string, contentLength int64, limits Limits) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return uperr.New(uperr.InvalidContentType, "invalid Content-Type %q, multipart/form-data is required", contentType)
	}

	if contentLength > limits.MaxTotalSize {
		return uperr.New(uperr.RequestTooLarge, "request size exceeds the limit of %s", FormatSize(limits.MaxTotalSize))
	}

	return nil
}

// Ingestor streams the parts of an upload request to disk, one part at a
// time, and builds the manifest of what it wrote.
type Ingestor struct {
	limits Limits
	writer FileWriter
}

func NewIngestor(limits Limits, writer FileWriter) *Ingestor {
	if writer == nil {
		writer = NewDiskWriter()
	}

	return &Ingestor{limits: limits, writer: writer}
}

// Ingest processes parts until the stream ends or a limit is hit. Files
// written before a failure are left in session.Dir; removing them is the
// caller's job.
func (i *Ingestor) Ingest(ctx context.Context, parts PartReader, session *upload.Session) (*upload.ProcessedUpload, error) {
	manifest := &upload.ProcessedUpload{
		FolderPath: session.Dir,
		UploadID:   session.ID,
	}

	fileCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		part, err := nextPart(ctx, parts)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, io.EOF):
			return i.finish(manifest)
		case err != nil:
			return nil, uperr.Wrap(err, uperr.FileReadError, "error reading multipart request")
		}

		if part.FileName() == "" {
			// Ordinary form fields carry no file.
			_ = part.Close()
			continue
		}

		fileCount++
		if fileCount > i.limits.MaxFiles {
			return nil, uperr.New(uperr.TooManyFiles, "too many files, maximum is %d", i.limits.MaxFiles)
		}

		// On failure the part is not closed: a timed out read may still be using it.
		entry, err := i.ingestPart(ctx, part, fileCount, manifest, session)
		if err != nil {
			return nil, err
		}
		_ = part.Close()

		manifest.Files = append(manifest.Files, *entry)
	}
}

type partResult struct {
	part *multipart.Part
	err  error
}

// nextPart reads the next part's headers, giving up when ctx is done. A client
// that stalls mid header would otherwise block NextPart until the connection
// dies. The abandoned call is left to finish; nothing else reads parts after
// Ingest returns.
func nextPart(ctx context.Context, parts PartReader) (*multipart.Part, error) {
	resultCh := make(chan partResult, 1)
	go func() {
		part, err := parts.NextPart()
		resultCh <- partResult{part: part, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.part, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (i *Ingestor) ingestPart(ctx context.Context, part *multipart.Part, index int, manifest *upload.ProcessedUpload, session *upload.Session) (*upload.FileEntry, error) {
	filename := part.FileName()
	relativePath, err := SanitizeRelativePath(part.FormName(), filename, i.limits.AllowedExtensions)
	if err != nil {
		return nil, err
	}

	if manifest.OriginalFolderName == "" {
		manifest.OriginalFolderName = FolderNameFor(relativePath, filename)
	}

	content, err := HashStream(ctx, part, i.limits.MaxFileSize, i.limits.FileReadTimeout)
	if err != nil {
		return nil, err
	}

	manifest.TotalSize += content.Size()
	session.BytesAccepted = manifest.TotalSize
	if manifest.TotalSize > i.limits.MaxTotalSize {
		return nil, uperr.New(uperr.TotalSizeExceeded, "total size exceeds the limit of %s", FormatSize(i.limits.MaxTotalSize))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := i.writer.WriteFile(content.Data, session.Dir, relativePath); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"upload_id": session.ID,
		"index":     index,
		"path":      relativePath,
		"size":      content.Size(),
	}).Debugf("Saved file to disk")

	mimeType := part.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	return &upload.FileEntry{
		Filename:     filename,
		RelativePath: relativePath,
		Size:         content.Size(),
		MimeType:     mimeType,
		Checksum:     content.Checksum,
	}, nil
}

func (i *Ingestor) finish(manifest *upload.ProcessedUpload) (*upload.ProcessedUpload, error) {
	if len(manifest.Files) == 0 {
		return nil, uperr.New(uperr.NoValidFiles, "no valid files found")
	}

	return manifest, nil
}
