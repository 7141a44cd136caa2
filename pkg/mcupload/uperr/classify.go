package uperr

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
)

var detailsByCode = map[Code]string{
	InvalidPath:           "One or more file paths are invalid. Rename the affected files and try again.",
	InvalidExtension:      "Some files have extensions that are not allowed.",
	TooManyFiles:          "The folder contains too many files. Split it into smaller uploads.",
	TotalSizeExceeded:     "The combined size of all files exceeds the limit.",
	FileTooLarge:          "One or more files are too large.",
	InvalidContentType:    "The request format is not correct. Send the files as multipart/form-data.",
	RequestTooLarge:       "The request is larger than the upload limit. Reduce the size of the upload.",
	NoValidFiles:          "No valid files were found to upload.",
	FileReadTimeout:       "Reading a file took too long. Check your connection and try again.",
	UploadTimeout:         "The upload took too long. Reduce the size or number of files.",
	ConnectionInterrupted: "The connection was lost. Check your internet connection and try again with smaller files.",
	FileReadError:         "A file could not be read from the request. Try again.",
	FileSaveError:         "A file could not be saved on the server. Try again.",
	NoWritePermissions:    "The server does not have permission to save files.",
	DatabaseSaveError:     "The files could not be recorded in the database.",
	InternalError:         "An unexpected server error occurred.",
	NoAuthToken:           "An authorization token is required in the Authorization header.",
	InvalidToken:          "The authorization token is invalid or expired.",
	UserNotFound:          "The user was not found in the database.",
}

const unknownDetails = "Unknown error during upload."

// Details returns the fixed remediation text for code.
func Details(code Code) string {
	if d, ok := detailsByCode[code]; ok {
		return d
	}

	return unknownDetails
}

// Classify maps err onto the upload error taxonomy. Upload errors map to
// themselves and broken connections to CONNECTION_INTERRUPTED. Timeouts map
// to UPLOAD_TIMEOUT, anything else to INTERNAL_ERROR. Classify(nil) is nil.
func Classify(err error) *UploadError {
	if err == nil {
		return nil
	}

	var uerr *UploadError
	if errors.As(err, &uerr) {
		return uerr
	}

	switch {
	case isConnectionInterrupted(err):
		return Wrap(err, ConnectionInterrupted, "connection interrupted during upload")
	case isTimeout(err):
		return Wrap(err, UploadTimeout, "upload timed out")
	default:
		return Wrap(err, InternalError, "internal server error")
	}
}

// isConnectionInterrupted includes context.Canceled, which is what a request
// context reports once its client has gone away.
func isConnectionInterrupted(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, context.Canceled) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "ECONNRESET") ||
		strings.Contains(msg, "EPIPE") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return strings.Contains(err.Error(), "ETIMEDOUT")
}
