// Package client talks to the mcuploadd upload API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/materials-commons/mcupload/pkg/mcupload/ingest"
	"github.com/materials-commons/mcupload/pkg/mcupload/tree"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/pkg/errors"
	"github.com/saracen/walker"
)

// APIError is a failed call that the server answered with an error body.
type APIError struct {
	StatusCode int
	Response   upload.ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("(HTTP Status: %d)- %s: %s", e.StatusCode, e.Response.Code, e.Response.Message)
}

type Client struct {
	rc     *resty.Client
	apiKey string
}

// New creates a client for the server at baseURL, for example
// http://localhost:1353. Requests authenticate with apiKey.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{rc: rc, apiKey: apiKey}
}

type localFile struct {
	fullPath     string
	relativePath string
}

// UploadFolder sends every regular file under dir as one upload. Each part is
// named files[<dir name>/<path within dir>] so the server can recreate the
// layout.
func (c *Client) UploadFolder(ctx context.Context, dir string) (*upload.UploadResponse, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	files, err := scanFolder(ctx, dir)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, errors.Errorf("no files found in %s", dir)
	}

	req := c.request(ctx)
	folderName := filepath.Base(dir)
	for _, f := range files {
		fh, err := os.Open(f.fullPath)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to open %s", f.fullPath)
		}
		defer fh.Close()

		req.SetMultipartFields(&resty.MultipartField{
			Param:       fmt.Sprintf("files[%s]", path.Join(folderName, f.relativePath)),
			FileName:    path.Base(f.relativePath),
			ContentType: tree.MimeTypeFor(f.relativePath),
			Reader:      fh,
		})
	}

	var result upload.UploadResponse
	resp, err := req.SetResult(&result).Post("/api/upload")
	if err != nil {
		return nil, errors.Wrap(err, "upload request failed")
	}

	if resp.IsError() {
		return nil, toErrorFromResponse(resp)
	}

	return &result, nil
}

// GetStructure returns the stored layout of a previous upload.
func (c *Client) GetStructure(ctx context.Context, uploadID string) (*upload.StructureResponse, error) {
	var result upload.StructureResponse
	resp, err := c.request(ctx).
		SetResult(&result).
		SetPathParam("uploadId", uploadID).
		Get("/api/upload/{uploadId}/structure")
	if err != nil {
		return nil, errors.Wrap(err, "structure request failed")
	}

	if resp.IsError() {
		return nil, toErrorFromResponse(resp)
	}

	return &result, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.rc.R().SetContext(ctx).SetHeader("apikey", c.apiKey)
}

// scanFolder lists the regular files under dir, ordered by relative path.
func scanFolder(ctx context.Context, dir string) ([]localFile, error) {
	var (
		mu    sync.Mutex
		files []localFile
	)

	err := walker.WalkWithContext(ctx, dir, func(pathname string, fi os.FileInfo) error {
		if !fi.Mode().IsRegular() || ingest.IsTempFile(fi.Name()) {
			return nil
		}

		rel, err := filepath.Rel(dir, pathname)
		if err != nil {
			return err
		}

		mu.Lock()
		files = append(files, localFile{fullPath: pathname, relativePath: filepath.ToSlash(rel)})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to scan %s", dir)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].relativePath < files[j].relativePath })

	return files, nil
}

func toErrorFromResponse(resp *resty.Response) error {
	var errorResponse upload.ErrorResponse
	if err := json.Unmarshal(resp.Body(), &errorResponse); err != nil || errorResponse.Code == "" {
		return errors.Errorf("(HTTP Status: %d)- unable to parse error response: %s", resp.StatusCode(), resp.String())
	}

	return &APIError{StatusCode: resp.StatusCode(), Response: errorResponse}
}
