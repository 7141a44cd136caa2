package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
)

const readChunkSize = 32 * 1024

// HashedContent is a fully read file part and the hex SHA-256 of its bytes.
type HashedContent struct {
	Data     []byte
	Checksum string
}

func (h *HashedContent) Size() int64 {
	return int64(len(h.Data))
}

type hashResult struct {
	content *HashedContent
	err     error
}

// HashStream reads r to the end, hashing each chunk as it arrives. It fails
// with FILE_TOO_LARGE as soon as more than maxSize bytes have been read,
// FILE_READ_TIMEOUT if the read takes longer than timeout, and FILE_READ_ERROR
// if r fails. If ctx is done first its error is returned.
//
// The read runs in its own goroutine. When HashStream gives up, that
// goroutine keeps reading until r fails or ends; callers close the underlying
// body to stop it.
func HashStream(ctx context.Context, r io.Reader, maxSize int64, timeout time.Duration) (*HashedContent, error) {
	if timeout <= 0 {
		timeout = DefaultFileReadTimeout
	}

	resultCh := make(chan hashResult, 1)
	go func() {
		content, err := readAndHash(r, maxSize)
		resultCh <- hashResult{content: content, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.content, res.err
	case <-timer.C:
		return nil, uperr.New(uperr.FileReadTimeout, "timed out reading file after %s", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func readAndHash(r io.Reader, maxSize int64) (*HashedContent, error) {
	var (
		buf   bytes.Buffer
		size  int64
		chunk = make([]byte, readChunkSize)
		hash  = sha256.New()
	)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			size += int64(n)
			if size > maxSize {
				return nil, uperr.New(uperr.FileTooLarge, "file exceeds %s", FormatSize(maxSize))
			}

			buf.Write(chunk[:n])
			hash.Write(chunk[:n])
		}

		switch {
		case errors.Is(err, io.EOF):
			return &HashedContent{Data: buf.Bytes(), Checksum: hex.EncodeToString(hash.Sum(nil))}, nil
		case err != nil:
			return nil, uperr.Wrap(err, uperr.FileReadError, "error reading file")
		}
	}
}
