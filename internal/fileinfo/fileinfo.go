// Package fileinfo holds small helpers for describing uploaded or local files:
// size formatting, MIME classification, extension checks and generated names.
//
// The helpers are best-effort. Odd input produces an empty or neutral value
// instead of an error; only Stat and Validate fail.
package fileinfo

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mcncl/keycase/internal/errors"
)

// File describes a file by name, MIME type and size in bytes.
type File struct {
	Name string
	Type string
	Size int64
}

// Units selects the unit system used by FormatSizeUnits.
type Units string

const (
	Binary  Units = "binary"  // KiB, MiB, ... (powers of 1024)
	Decimal Units = "decimal" // kB, MB, ... (powers of 1000)
)

// ParseUnits resolves a unit system name. The empty string means Binary.
func ParseUnits(s string) (Units, error) {
	switch Units(strings.ToLower(strings.TrimSpace(s))) {
	case "", Binary:
		return Binary, nil
	case Decimal:
		return Decimal, nil
	default:
		return "", fmt.Errorf("unknown size units %q (want binary or decimal)", s)
	}
}

// FormatSize renders a byte count in binary units, e.g. 1536 -> "1.5 KiB".
func FormatSize(bytes int64) string {
	return FormatSizeUnits(bytes, Binary)
}

// FormatSizeUnits renders a byte count in the given unit system.
// Negative counts render as "0 B".
func FormatSizeUnits(bytes int64, units Units) string {
	if bytes < 0 {
		bytes = 0
	}
	if units == Decimal {
		return humanize.Bytes(uint64(bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// ParseSize parses sizes such as "10MB", "10 MiB" or "512".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// Extension returns the lower-case extension of name without the dot, or
// "" if there is none. Leading dots of hidden files are not extensions.
func Extension(name string) string {
	base := strings.TrimLeft(filepath.Base(name), ".")
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
}

// HasExtension reports whether name has one of the allowed extensions.
// Matching is case-insensitive and allowed entries may carry a leading dot.
func HasExtension(name string, allowed ...string) bool {
	ext := Extension(name)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(strings.TrimSpace(a), ".")) == ext {
			return true
		}
	}
	return false
}

// GenerateFilename returns a fresh random name that keeps the extension of
// original, e.g. "Photo.JPG" -> "3f2a...-....jpg".
func GenerateFilename(original string) string {
	return GenerateFilenameWithPrefix("", original)
}

// GenerateFilenameWithPrefix is GenerateFilename with prefix prepended verbatim.
func GenerateFilenameWithPrefix(prefix, original string) string {
	name := prefix + uuid.NewString()
	if ext := Extension(original); ext != "" {
		name += "." + ext
	}
	return name
}

// Stat describes the file at path. When the extension does not identify
// the type, the first 512 bytes are sniffed.
func Stat(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, errors.NewFileError(fmt.Sprintf("file '%s' not found", path), errors.ErrFileNotFound)
		}
		return File{}, errors.NewFileError(fmt.Sprintf("failed to stat '%s'", path), err)
	}
	if info.IsDir() {
		return File{}, errors.NewFileError(fmt.Sprintf("'%s' is a directory", path), errors.ErrInvalidFilePath)
	}

	f := File{Name: info.Name(), Type: DetectType(path), Size: info.Size()}
	if f.Type == "" {
		f.Type, err = sniffType(path)
		if err != nil {
			return File{}, errors.NewFileError(fmt.Sprintf("failed to read '%s'", path), err)
		}
	}
	return f, nil
}

func sniffType(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	ct := baseType(http.DetectContentType(buf[:n]))
	if ct == "application/octet-stream" {
		return "", nil
	}
	return ct, nil
}

// Policy limits which files are accepted. Zero values mean no limit.
type Policy struct {
	MaxSize           int64
	AllowedExtensions []string
}

// Validate checks f against p.
func Validate(f File, p Policy) error {
	if p.MaxSize > 0 && f.Size > p.MaxSize {
		return fmt.Errorf("%w: %s is larger than %s", errors.ErrFileTooLarge, FormatSize(f.Size), FormatSize(p.MaxSize))
	}
	if len(p.AllowedExtensions) > 0 && !HasExtension(f.Name, p.AllowedExtensions...) {
		ext := Extension(f.Name)
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: %s", errors.ErrExtensionNotAllowed, ext)
	}
	return nil
}

// baseType lower-cases a media type and drops its parameters.
func baseType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
