package utils

import (
	"fmt"
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// FormatFileSize formats file size in human readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// DetectMimeType resolves a MIME type from the declared file name's
// extension, sniffing the staged content at path when the extension is
// unrecognized, and defaulting to a generic binary type.
func DetectMimeType(name, path string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	if path != "" {
		if mt, err := mimetype.DetectFile(path); err == nil {
			return mt.String()
		}
	}
	return "application/octet-stream"
}
