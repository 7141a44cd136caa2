// Package tree reconstructs the folder structure of a stored upload from disk.
package tree

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/materials-commons/mcupload/pkg/mcupload/ingest"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/saracen/walker"
)

const defaultMimeType = "application/octet-stream"

// Build returns the tree rooted at dir. Within a folder, folders come before
// files and each group is ordered by name. Temp files from interrupted
// writes are left out.
func Build(dir string) (*upload.Node, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}

	return buildNode(dir, "", fi)
}

func buildNode(fullPath, relativePath string, fi os.FileInfo) (*upload.Node, error) {
	node := &upload.Node{
		Name:         fi.Name(),
		RelativePath: relativePath,
		LastModified: fi.ModTime(),
	}

	if !fi.IsDir() {
		node.Type = upload.NodeTypeFile
		node.Size = fi.Size()
		node.MimeType = MimeTypeFor(fi.Name())
		return node, nil
	}

	node.Type = upload.NodeTypeFolder
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if ingest.IsTempFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		child, err := buildNode(filepath.Join(fullPath, entry.Name()), path.Join(relativePath, entry.Name()), info)
		if err != nil {
			return nil, err
		}

		node.Children = append(node.Children, child)
	}

	return node, nil
}

// Stats counts the regular files under dir and their total size. The walk is
// done in parallel.
func Stats(ctx context.Context, dir string) (totalFiles int, totalSize int64, err error) {
	var (
		files int64
		size  int64
	)

	walkFn := func(pathname string, fi os.FileInfo) error {
		if !fi.Mode().IsRegular() || ingest.IsTempFile(fi.Name()) {
			return nil
		}

		atomic.AddInt64(&files, 1)
		atomic.AddInt64(&size, fi.Size())
		return nil
	}

	if err := walker.WalkWithContext(ctx, dir, walkFn); err != nil {
		return 0, 0, err
	}

	return int(atomic.LoadInt64(&files)), atomic.LoadInt64(&size), nil
}

// MimeTypeFor returns the MIME type for a file based on its extension. The
// types listed here win over the system tables so listings look the same on
// every host; anything else is looked up with mime.TypeByExtension.
func MimeTypeFor(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".zip":
		return "application/zip"
	case ".rar":
		return "application/x-rar-compressed"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".ts":
		return "application/typescript"
	default:
		return systemMimeType(ext)
	}
}

func systemMimeType(ext string) string {
	if ext == "" {
		return defaultMimeType
	}

	mediaType, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil || mediaType == "" {
		return defaultMimeType
	}

	return mediaType
}
