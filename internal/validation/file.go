package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes  map[string]bool
	AllowedExtensions map[string]bool
	MaxSize           int64
}

// ImageConstraints applies to listing photos and avatars.
var ImageConstraints = FileConstraints{
	AllowedMimeTypes: map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
		"image/gif":  true,
	},
	AllowedExtensions: map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
		".gif":  true,
	},
	MaxSize: 5 << 20, // 5MB
}

// ValidateImage checks an uploaded file against ImageConstraints and returns
// the content type sniffed from its first bytes. The header's own
// Content-Type is ignored since the client controls it.
func ValidateImage(header *multipart.FileHeader) (string, error) {
	return validateAgainst(header, ImageConstraints)
}

// ValidateImageData is ValidateImage for an upload already read into memory,
// as the streaming listing create does.
func ValidateImageData(filename string, data []byte) (string, error) {
	if err := checkNameAndSize(filename, int64(len(data)), ImageConstraints); err != nil {
		return "", err
	}
	return sniff(data, ImageConstraints)
}

func validateAgainst(header *multipart.FileHeader, c FileConstraints) (string, error) {
	if err := checkNameAndSize(header.Filename, header.Size, c); err != nil {
		return "", err
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// http.DetectContentType looks at no more than 512 bytes
	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return sniff(buffer[:n], c)
}

func checkNameAndSize(filename string, size int64, c FileConstraints) error {
	if size > c.MaxSize {
		return fmt.Errorf("%s is too large: maximum size is %d MB", filename, c.MaxSize/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !c.AllowedExtensions[ext] {
		return fmt.Errorf("invalid file extension: %q", ext)
	}
	return nil
}

func sniff(head []byte, c FileConstraints) (string, error) {
	detected := http.DetectContentType(head)
	if !c.AllowedMimeTypes[detected] {
		return "", fmt.Errorf("invalid file type (detected: %s)", detected)
	}
	return detected, nil
}
