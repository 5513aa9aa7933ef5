package constants

import "strings"

// AllowedExtensions holds the default allowed file extensions for bill ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"txt":  {},
}

// ImageExtensions are the extensions sent to vision-capable providers as data URLs.
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether the extension belongs to a raster image format.
func IsImageExt(ext string) bool {
	_, ok := ImageExtensions[NormalizeExt(ext)]
	return ok
}
