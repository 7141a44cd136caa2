package ingest

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
)

// DefaultFolderName is used for single file uploads whose filename has no usable stem.
const DefaultFolderName = "uploaded_files"

var (
	fieldPathPattern = regexp.MustCompile(`files\[(.+)\]`)
	forbiddenChars   = regexp.MustCompile(`[<>:"|?*\x00-\x1f\x7f]`)
)

// SanitizeRelativePath extracts the relative path for a part from its field
// name (files[<path>]), falling back to filename and then to the field name
// itself, and cleans it into a path safe to join under a session directory.
func SanitizeRelativePath(fieldName, filename string, allowed ExtensionSet) (string, error) {
	raw := filename
	if m := fieldPathPattern.FindStringSubmatch(fieldName); m != nil {
		raw = m[1]
	}

	if raw == "" {
		raw = fieldName
	}

	raw = strings.ReplaceAll(raw, `\`, "/")

	// Replacing characters never creates dots, so checking the raw value is enough.
	if strings.Contains(raw, "..") {
		return "", uperr.New(uperr.InvalidPath, "invalid file path: %q", raw)
	}

	cleaned := forbiddenChars.ReplaceAllString(raw, "_")
	cleaned = joinSegments(cleaned)

	if cleaned == "" || utf8.RuneCountInString(cleaned) > MaxRelativePathLength {
		return "", uperr.New(uperr.InvalidPath, "invalid file path: %q", raw)
	}

	// Both the declared filename and the name written to disk must pass.
	for _, name := range []string{filename, cleaned} {
		if ext := strings.ToLower(path.Ext(name)); ext != "" && !allowed.Contains(ext) {
			return "", uperr.New(uperr.InvalidExtension, "extension not allowed: %s", ext)
		}
	}

	return cleaned, nil
}

// joinSegments drops empty and "." segments, which also strips leading and
// trailing separators.
func joinSegments(p string) string {
	var segments []string
	for _, segment := range strings.Split(p, "/") {
		if segment == "" || segment == "." {
			continue
		}
		segments = append(segments, segment)
	}

	return strings.Join(segments, "/")
}

// FolderNameFor derives the display name of an upload from its first file.
func FolderNameFor(relativePath, filename string) string {
	if i := strings.Index(relativePath, "/"); i > 0 {
		return relativePath[:i]
	}

	name := filename
	if name == "" {
		name = relativePath
	}

	name = forbiddenChars.ReplaceAllString(path.Base(name), "_")
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" || stem == "." || stem == "/" {
		return DefaultFolderName
	}

	return stem
}
