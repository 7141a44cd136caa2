package webapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/materials-commons/mcupload/pkg/mcdb"
	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcdb/stor"
	"github.com/materials-commons/mcupload/pkg/mcupload/ingest"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/materials-commons/mcupload/pkg/mcupload/webapi/apimiddleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formFile struct {
	field    string
	filename string
	data     string
}

func folderFile(relativePath, data string) formFile {
	return formFile{field: "files[" + relativePath + "]", filename: filepath.Base(relativePath), data: data}
}

func multipartBody(t *testing.T, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		h.Set("Content-Type", "text/plain")
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return body, mw.FormDataContentType()
}

// setupUploadContext creates an echo context for POST /api/upload with user 1 authenticated.
func setupUploadContext(t *testing.T, body *bytes.Buffer, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(apimiddleware.UserKey, &mcmodel.User{ID: 1})
	return c, rec
}

func testLimits(t *testing.T) ingest.Limits {
	limits := ingest.DefaultLimits()
	limits.UploadDir = t.TempDir()
	return limits
}

func decodeUploadError(t *testing.T, rec *httptest.ResponseRecorder) upload.ErrorResponse {
	t.Helper()

	var resp upload.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Details)
	return resp
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Emptyf(t, entries, "expected %s to be empty", dir)
}

func TestUploadFolderCommitsFolder(t *testing.T) {
	limits := testLimits(t)
	uploadStor := stor.NewFakeUploadStor()
	controller := NewUploadController(limits, uploadStor, nil)

	body, contentType := multipartBody(t, folderFile("docs/a.txt", "hello"), folderFile("docs/b.txt", "goodbye"))
	c, rec := setupUploadContext(t, body, contentType)

	require.NoError(t, controller.UploadFolder(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp upload.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "docs", resp.OriginalFolderName)
	assert.Equal(t, int64(12), resp.TotalSize)
	assert.Equal(t, resp.UploadID, resp.FolderPath)
	assert.True(t, upload.IsValidUploadID(resp.UploadID))
	assert.NotZero(t, resp.FolderID)
	assert.NotZero(t, resp.Timestamp)
	require.Len(t, resp.UploadedFiles, 2)
	assert.Equal(t, "docs/a.txt", resp.UploadedFiles[0].RelativePath)
	assert.Equal(t, "/private/"+resp.UploadID+"/docs/b.txt", resp.UploadedFiles[1].URL)

	for _, f := range []struct{ path, data string }{{"docs/a.txt", "hello"}, {"docs/b.txt", "goodbye"}} {
		contents, err := os.ReadFile(filepath.Join(limits.UploadDir, resp.UploadID, filepath.FromSlash(f.path)))
		require.NoError(t, err)
		assert.Equal(t, f.data, string(contents))
	}

	assert.Equal(t, 1, uploadStor.FolderCount())
}

func TestUploadFolderRejectsDisallowedExtension(t *testing.T) {
	limits := testLimits(t)
	uploadStor := stor.NewFakeUploadStor()
	controller := NewUploadController(limits, uploadStor, nil)

	body, contentType := multipartBody(t, formFile{field: "files[readme.txt]", filename: "readme.exe", data: "MZ"})
	c, rec := setupUploadContext(t, body, contentType)

	require.NoError(t, controller.UploadFolder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeUploadError(t, rec)
	assert.Equal(t, "INVALID_EXTENSION", resp.Code)
	assert.True(t, upload.IsValidUploadID(resp.UploadID))
	assertEmptyDir(t, limits.UploadDir)
	assert.Zero(t, uploadStor.Calls)
}

func TestUploadFolderDatabaseFailureRemovesFiles(t *testing.T) {
	limits := testLimits(t)
	uploadStor := stor.NewFakeUploadStor()
	uploadStor.FailWith = errors.New("deadlock found when trying to get lock")
	controller := NewUploadController(limits, uploadStor, nil)

	body, contentType := multipartBody(t,
		folderFile("docs/a.txt", "a"),
		folderFile("docs/b.txt", "b"),
		folderFile("docs/sub/c.txt", "c"),
	)
	c, rec := setupUploadContext(t, body, contentType)

	require.NoError(t, controller.UploadFolder(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DATABASE_SAVE_ERROR", decodeUploadError(t, rec).Code)
	assert.Equal(t, 1, uploadStor.Calls)
	assertEmptyDir(t, limits.UploadDir)
}

func TestUploadFolderDatabaseFailureWithSqlite(t *testing.T) {
	db, err := mcdb.OpenSqlite(filepath.Join(t.TempDir(), "mcupload.db"))
	require.NoError(t, err)
	require.NoError(t, mcdb.RunMigrations(db))
	require.NoError(t, db.Migrator().DropTable(&mcmodel.Route{}))

	limits := testLimits(t)
	controller := NewUploadController(limits, stor.NewGormUploadStor(db, ""), nil)

	body, contentType := multipartBody(t, folderFile("docs/a.txt", "a"), folderFile("docs/b.txt", "b"))
	c, rec := setupUploadContext(t, body, contentType)

	require.NoError(t, controller.UploadFolder(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DATABASE_SAVE_ERROR", decodeUploadError(t, rec).Code)
	assertEmptyDir(t, limits.UploadDir)

	var count int64
	require.NoError(t, db.Model(&mcmodel.Folder{}).Count(&count).Error)
	assert.Zero(t, count)
}

// unreadableBody fails the test if anything reads the request body.
type unreadableBody struct {
	t *testing.T
}

func (b unreadableBody) Read(_ []byte) (int, error) {
	b.t.Error("request body was read")
	return 0, errors.New("body must not be read")
}

func TestUploadFolderRejectsOversizedRequest(t *testing.T) {
	limits := testLimits(t)
	controller := NewUploadController(limits, stor.NewFakeUploadStor(), nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", unreadableBody{t: t})
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=xyz")
	req.ContentLength = limits.MaxTotalSize + 1
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(apimiddleware.UserKey, &mcmodel.User{ID: 1})

	require.NoError(t, controller.UploadFolder(c))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "REQUEST_TOO_LARGE", decodeUploadError(t, rec).Code)
	assertEmptyDir(t, limits.UploadDir)
}

func TestUploadFolderValidationFailures(t *testing.T) {
	t.Run("content type", func(t *testing.T) {
		limits := testLimits(t)
		controller := NewUploadController(limits, stor.NewFakeUploadStor(), nil)
		c, rec := setupUploadContext(t, bytes.NewBufferString(`{"files":[]}`), echo.MIMEApplicationJSON)

		require.NoError(t, controller.UploadFolder(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_CONTENT_TYPE", decodeUploadError(t, rec).Code)
	})

	t.Run("missing boundary", func(t *testing.T) {
		limits := testLimits(t)
		controller := NewUploadController(limits, stor.NewFakeUploadStor(), nil)
		c, rec := setupUploadContext(t, bytes.NewBufferString("x"), "multipart/form-data")

		require.NoError(t, controller.UploadFolder(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_CONTENT_TYPE", decodeUploadError(t, rec).Code)
	})

	t.Run("upload dir not writable", func(t *testing.T) {
		limits := testLimits(t)
		limits.UploadDir = filepath.Join(limits.UploadDir, "missing")
		controller := NewUploadController(limits, stor.NewFakeUploadStor(), nil)
		body, contentType := multipartBody(t, folderFile("docs/a.txt", "a"))
		c, rec := setupUploadContext(t, body, contentType)

		require.NoError(t, controller.UploadFolder(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "NO_WRITE_PERMISSIONS", decodeUploadError(t, rec).Code)
		assert.NoDirExists(t, limits.UploadDir)
	})

	t.Run("no user", func(t *testing.T) {
		limits := testLimits(t)
		controller := NewUploadController(limits, stor.NewFakeUploadStor(), nil)
		body, contentType := multipartBody(t, folderFile("docs/a.txt", "a"))
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		rec := httptest.NewRecorder()

		require.NoError(t, controller.UploadFolder(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "NO_AUTH_TOKEN", decodeUploadError(t, rec).Code)
	})
}

func TestUploadFolderLimitFailureRemovesWrittenFiles(t *testing.T) {
	limits := testLimits(t)
	limits.MaxFiles = 2
	uploadStor := stor.NewFakeUploadStor()
	controller := NewUploadController(limits, uploadStor, nil)

	body, contentType := multipartBody(t,
		folderFile("docs/a.txt", "a"),
		folderFile("docs/b.txt", "b"),
		folderFile("docs/c.txt", "c"),
	)
	c, rec := setupUploadContext(t, body, contentType)

	require.NoError(t, controller.UploadFolder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TOO_MANY_FILES", decodeUploadError(t, rec).Code)
	assertEmptyDir(t, limits.UploadDir)
	assert.Zero(t, uploadStor.Calls)
}

// slowWriter delays each write so an upload outlives a short timeout.
type slowWriter struct {
	delay time.Duration
	w     ingest.FileWriter
}

func (s slowWriter) WriteFile(data []byte, root, relativePath string) error {
	time.Sleep(s.delay)
	return s.w.WriteFile(data, root, relativePath)
}

func TestUploadFolderTimeout(t *testing.T) {
	limits := testLimits(t)
	limits.UploadTimeout = 50 * time.Millisecond
	uploadStor := stor.NewFakeUploadStor()
	controller := NewUploadController(limits, uploadStor, slowWriter{delay: 100 * time.Millisecond, w: ingest.NewDiskWriter()})

	body, contentType := multipartBody(t, folderFile("docs/a.txt", "a"), folderFile("docs/b.txt", "b"))
	c, rec := setupUploadContext(t, body, contentType)

	require.NoError(t, controller.UploadFolder(c))
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Equal(t, "UPLOAD_TIMEOUT", decodeUploadError(t, rec).Code)
	assertEmptyDir(t, limits.UploadDir)
	assert.Zero(t, uploadStor.Calls)
}

func TestUploadFolderTimeoutWhileReadingPartHeaders(t *testing.T) {
	limits := testLimits(t)
	limits.UploadTimeout = 200 * time.Millisecond
	uploadStor := stor.NewFakeUploadStor()
	controller := NewUploadController(limits, uploadStor, nil)

	const boundary = "stalledboundary"
	var first bytes.Buffer
	mw := multipart.NewWriter(&first)
	require.NoError(t, mw.SetBoundary(boundary))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files[docs/a.txt]"; filename="a.txt"`)
	h.Set("Content-Type", "text/plain")
	w, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)

	// A complete first part, then the client goes silent halfway through the
	// next part's headers without closing the connection.
	stalled := append(first.Bytes(), []byte("\r\n--"+boundary+"\r\nContent-Disposition: form-da")...)

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		_, _ = pw.Write(stalled)
		<-done
		_ = pw.Close()
	}()
	defer close(done)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", pr)
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary="+boundary)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(apimiddleware.UserKey, &mcmodel.User{ID: 1})

	errCh := make(chan error, 1)
	go func() { errCh <- controller.UploadFolder(c) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("UploadFolder did not return after the upload timeout")
	}

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Equal(t, "UPLOAD_TIMEOUT", decodeUploadError(t, rec).Code)
	assertEmptyDir(t, limits.UploadDir)
	assert.Zero(t, uploadStor.Calls)
}

func TestUploadFolderFileReadTimeoutClosesBody(t *testing.T) {
	limits := testLimits(t)
	limits.FileReadTimeout = 100 * time.Millisecond
	controller := NewUploadController(limits, stor.NewFakeUploadStor(), nil)

	const boundary = "slowfileboundary"
	partial := "--" + boundary + "\r\n" +
		`Content-Disposition: form-data; name="files[docs/a.txt]"; filename="a.txt"` + "\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"the first few bytes"

	pr, pw := io.Pipe()
	defer pw.Close()
	go func() { _, _ = pw.Write([]byte(partial)) }()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", pr)
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary="+boundary)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(apimiddleware.UserKey, &mcmodel.User{ID: 1})

	require.NoError(t, controller.UploadFolder(c))
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Equal(t, "FILE_READ_TIMEOUT", decodeUploadError(t, rec).Code)

	// The abandoned read drains the pipe until the body is closed.
	assert.Eventually(t, func() bool {
		_, err := pw.Write([]byte("x"))
		return errors.Is(err, io.ErrClosedPipe)
	}, 2*time.Second, 10*time.Millisecond)
}
