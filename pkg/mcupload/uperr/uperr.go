package uperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class. The set is closed: every code the upload
// pipeline can return is declared here along with its HTTP status and the
// remediation text shown to the caller.
type Code string

const (
	InvalidPath           Code = "INVALID_PATH"
	InvalidExtension      Code = "INVALID_EXTENSION"
	TooManyFiles          Code = "TOO_MANY_FILES"
	TotalSizeExceeded     Code = "TOTAL_SIZE_EXCEEDED"
	FileTooLarge          Code = "FILE_TOO_LARGE"
	InvalidContentType    Code = "INVALID_CONTENT_TYPE"
	RequestTooLarge       Code = "REQUEST_TOO_LARGE"
	NoValidFiles          Code = "NO_VALID_FILES"
	FileReadTimeout       Code = "FILE_READ_TIMEOUT"
	UploadTimeout         Code = "UPLOAD_TIMEOUT"
	ConnectionInterrupted Code = "CONNECTION_INTERRUPTED"
	FileReadError         Code = "FILE_READ_ERROR"
	FileSaveError         Code = "FILE_SAVE_ERROR"
	NoWritePermissions    Code = "NO_WRITE_PERMISSIONS"
	DatabaseSaveError     Code = "DATABASE_SAVE_ERROR"
	InternalError         Code = "INTERNAL_ERROR"
	NoAuthToken           Code = "NO_AUTH_TOKEN"
	InvalidToken          Code = "INVALID_TOKEN"
	UserNotFound          Code = "USER_NOT_FOUND"
)

var statusByCode = map[Code]int{
	InvalidPath:           http.StatusBadRequest,
	InvalidExtension:      http.StatusBadRequest,
	TooManyFiles:          http.StatusBadRequest,
	TotalSizeExceeded:     http.StatusBadRequest,
	FileTooLarge:          http.StatusBadRequest,
	InvalidContentType:    http.StatusBadRequest,
	RequestTooLarge:       http.StatusRequestEntityTooLarge,
	NoValidFiles:          http.StatusBadRequest,
	FileReadTimeout:       http.StatusRequestTimeout,
	UploadTimeout:         http.StatusRequestTimeout,
	ConnectionInterrupted: http.StatusRequestTimeout,
	FileReadError:         http.StatusInternalServerError,
	FileSaveError:         http.StatusInternalServerError,
	NoWritePermissions:    http.StatusInternalServerError,
	DatabaseSaveError:     http.StatusInternalServerError,
	InternalError:         http.StatusInternalServerError,
	NoAuthToken:           http.StatusUnauthorized,
	InvalidToken:          http.StatusUnauthorized,
	UserNotFound:          http.StatusUnauthorized,
}

// Status returns the HTTP status for code. Unknown codes are server errors.
func (c Code) Status() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// UploadError is the error type returned by every stage of the upload
// pipeline. Err holds the underlying cause, if there is one.
type UploadError struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func New(code Code, format string, args ...interface{}) *UploadError {
	return &UploadError{
		Code:    code,
		Status:  code.Status(),
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an UploadError that carries err as its cause.
func Wrap(err error, code Code, format string, args ...interface{}) *UploadError {
	e := New(code, format, args...)
	e.Err = err
	return e
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Details returns the remediation text for the error's code.
func (e *UploadError) Details() string {
	return Details(e.Code)
}

// Is reports whether err, or anything it wraps, is an UploadError with the given code.
func Is(err error, code Code) bool {
	var uerr *UploadError
	if !errors.As(err, &uerr) {
		return false
	}

	return uerr.Code == code
}
