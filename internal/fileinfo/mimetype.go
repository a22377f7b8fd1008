package fileinfo

import (
	"mime"
	"strings"
)

// Category is a coarse file classification.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategoryText     Category = "text"
	CategoryArchive  Category = "archive"
	CategoryOther    Category = "other"
)

// Fallbacks for systems with sparse mime tables.
var fallbackTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"heic": "image/heic",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"odt":  "application/vnd.oasis.opendocument.text",
	"rtf":  "application/rtf",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"md":   "text/markdown",
	"json": "application/json",
	"yaml": "application/yaml",
	"yml":  "application/yaml",
	"zip":  "application/zip",
	"tar":  "application/x-tar",
	"gz":   "application/gzip",
	"tgz":  "application/gzip",
	"bz2":  "application/x-bzip2",
	"7z":   "application/x-7z-compressed",
	"rar":  "application/vnd.rar",
}

var documentTypes = map[string]bool{
	"application/pdf":               true,
	"application/msword":            true,
	"application/rtf":               true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-powerpoint": true,
}

var archiveTypes = map[string]bool{
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/x-tar":            true,
	"application/gzip":             true,
	"application/x-gzip":           true,
	"application/x-bzip2":          true,
	"application/x-7z-compressed":  true,
	"application/vnd.rar":          true,
	"application/x-rar-compressed": true,
}

var textTypes = map[string]bool{
	"application/json": true,
	"application/xml":  true,
	"application/yaml": true,
}

// DetectType returns the MIME type implied by the extension of name, or ""
// when it is unknown.
func DetectType(name string) string {
	ext := Extension(name)
	if ext == "" {
		return ""
	}
	if ct, ok := fallbackTypes[ext]; ok {
		return ct
	}
	return baseType(mime.TypeByExtension("." + ext))
}

// typeOf is the file's declared type, or the type implied by its name.
func typeOf(f File) string {
	if t := baseType(f.Type); t != "" {
		return t
	}
	return DetectType(f.Name)
}

// IsImage reports whether f is an image.
func IsImage(f File) bool {
	return strings.HasPrefix(typeOf(f), "image/")
}

// IsVideo reports whether f is a video.
func IsVideo(f File) bool {
	return strings.HasPrefix(typeOf(f), "video/")
}

// IsAudio reports whether f is an audio file.
func IsAudio(f File) bool {
	return strings.HasPrefix(typeOf(f), "audio/")
}

// IsPDF reports whether f is a PDF document.
func IsPDF(f File) bool {
	return typeOf(f) == "application/pdf"
}

// IsDocument reports whether f is an office-style document, PDF included.
func IsDocument(f File) bool {
	t := typeOf(f)
	return documentTypes[t] ||
		strings.HasPrefix(t, "application/vnd.openxmlformats-officedocument.") ||
		strings.HasPrefix(t, "application/vnd.oasis.opendocument.")
}

// IsText reports whether f is plain or structured text.
func IsText(f File) bool {
	t := typeOf(f)
	return strings.HasPrefix(t, "text/") || textTypes[t]
}

// IsArchive reports whether f is a compressed archive.
func IsArchive(f File) bool {
	return archiveTypes[typeOf(f)]
}

// Classify returns the category of f.
func Classify(f File) Category {
	switch {
	case IsImage(f):
		return CategoryImage
	case IsVideo(f):
		return CategoryVideo
	case IsAudio(f):
		return CategoryAudio
	case IsDocument(f):
		return CategoryDocument
	case IsText(f):
		return CategoryText
	case IsArchive(f):
		return CategoryArchive
	default:
		return CategoryOther
	}
}
