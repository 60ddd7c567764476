package assets

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/menuboard/internal/apperr"
)

// MaxSize bounds a single uploaded image.
const MaxSize = 10 << 20 // 10 MB

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	}

	mimeToExt = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}

	extToMIME = map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".webp": "image/webp",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	storedNameRe   = regexp.MustCompile(`^[a-f0-9-]{36}\.[a-z]{3,4}$`)
)

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("%w: data URI: missing comma separator", apperr.ErrInvalid)
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: only base64 data URIs are supported", apperr.ErrInvalid)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid base64 data: %v", apperr.ErrInvalid, err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("%w: unsupported MIME type in data URI: %s", apperr.ErrInvalid, mime)
	}
	return data, ext, nil
}

// filenameFromURL tries to extract a file name from a URL, falling back to a
// UUID with the detected extension.
func filenameFromURL(rawURL, fallbackExt string) string {
	ext := fallbackExt
	if ext == "" {
		ext = ".bin"
	}
	if strings.HasPrefix(rawURL, "data:") {
		return uuid.New().String() + ext
	}
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	base := path.Base(rawURL)
	if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
		return base
	}
	return uuid.New().String() + ext
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	detected := http.DetectContentType(data)
	got := mimeToExt[strings.Split(detected, ";")[0]]

	switch ext {
	case ".jpg", ".jpeg":
		if got != ".jpg" {
			return fmt.Errorf("%w: content does not match extension %s (detected: %s)", apperr.ErrInvalid, ext, detected)
		}
	default:
		if got != ext {
			return fmt.Errorf("%w: content does not match extension %s (detected: %s)", apperr.ErrInvalid, ext, detected)
		}
	}
	return nil
}

// validStoredName reports whether name is a file name this service generated.
func validStoredName(name string) bool {
	return storedNameRe.MatchString(name)
}
