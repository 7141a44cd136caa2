package ingest

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/materials-commons/mcupload/pkg/config"
	"github.com/mitchellh/go-homedir"
)

const (
	megabyte = 1024 * 1024

	DefaultMaxFileSizeMB   = 10
	DefaultMaxTotalSizeMB  = 100
	DefaultMaxFiles        = 100
	DefaultUploadTimeout   = 300 * time.Second
	DefaultFileReadTimeout = 30 * time.Second
	DefaultUploadDir       = "private"

	// MaxRelativePathLength is the longest sanitized relative path accepted.
	MaxRelativePathLength = 260
)

var DefaultAllowedExtensions = []string{".txt", ".pdf", ".docx", ".jpg", ".png", ".gif", ".zip", ".json"}

// ExtensionSet is a set of lower case extensions, each including the leading dot.
type ExtensionSet map[string]struct{}

func NewExtensionSet(exts ...string) ExtensionSet {
	s := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		s[ext] = struct{}{}
	}

	return s
}

func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s[strings.ToLower(ext)]
	return ok
}

// Limits is the upload configuration. It is built once at start up and
// handed to each component; nothing in the pipeline reads the environment.
type Limits struct {
	MaxFileSize       int64
	MaxTotalSize      int64
	MaxFiles          int
	UploadDir         string
	UploadTimeout     time.Duration
	FileReadTimeout   time.Duration
	AllowedExtensions ExtensionSet
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:       DefaultMaxFileSizeMB * megabyte,
		MaxTotalSize:      DefaultMaxTotalSizeMB * megabyte,
		MaxFiles:          DefaultMaxFiles,
		UploadDir:         DefaultUploadDir,
		UploadTimeout:     DefaultUploadTimeout,
		FileReadTimeout:   DefaultFileReadTimeout,
		AllowedExtensions: NewExtensionSet(DefaultAllowedExtensions...),
	}
}

// LimitsFromConfig reads the upload keys from c, falling back to the
// defaults for anything unset or unparsable. A relative UPLOAD_DIR is
// resolved against the working directory.
func LimitsFromConfig(c config.Configer) (Limits, error) {
	l := DefaultLimits()
	l.MaxFileSize = c.GetInt64KeyWithDefault("MAX_FILE_SIZE", DefaultMaxFileSizeMB) * megabyte
	l.MaxTotalSize = c.GetInt64KeyWithDefault("MAX_TOTAL_SIZE", DefaultMaxTotalSizeMB) * megabyte
	l.MaxFiles = c.GetIntKeyWithDefault("MAX_FILES_COUNT", DefaultMaxFiles)
	l.UploadTimeout = c.GetMillisKeyWithDefault("UPLOAD_TIMEOUT", DefaultUploadTimeout)
	l.AllowedExtensions = NewExtensionSet(c.GetListKeyWithDefault("ALLOWED_EXTENSIONS", DefaultAllowedExtensions)...)

	dir, err := homedir.Expand(c.GetKeyWithDefault("UPLOAD_DIR", DefaultUploadDir))
	if err != nil {
		return l, err
	}

	if l.UploadDir, err = filepath.Abs(dir); err != nil {
		return l, err
	}

	return l, l.Validate()
}

func (l Limits) Validate() error {
	switch {
	case l.MaxFileSize <= 0:
		return fmt.Errorf("per file size limit must be positive, got %d", l.MaxFileSize)
	case l.MaxTotalSize <= 0:
		return fmt.Errorf("total size limit must be positive, got %d", l.MaxTotalSize)
	case l.MaxFiles <= 0:
		return fmt.Errorf("file count limit must be positive, got %d", l.MaxFiles)
	case l.UploadTimeout <= 0:
		return fmt.Errorf("upload timeout must be positive, got %s", l.UploadTimeout)
	case l.UploadDir == "":
		return fmt.Errorf("upload directory must be set")
	default:
		return nil
	}
}

// FormatSize renders a byte count the way limit messages show it, eg "10 MB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	sizes := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%s %s", strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), "."), sizes[i])
}
