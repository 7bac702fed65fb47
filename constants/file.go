package constants

import "strings"

// Source formats the OCR boundary can turn into raw text.
const (
	TEXT  = "TEXT"
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

var FileTypes = []string{TEXT, PDF, IMAGE}

// AllowedExtensions holds the default extensions picked up by directory ingest.
var AllowedExtensions = map[string]struct{}{
	"txt":  {},
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns TEXT, PDF, IMAGE or "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "txt":
		return TEXT
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tif", "tiff":
		return IMAGE
	default:
		return ""
	}
}
