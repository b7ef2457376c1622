// Package acquire turns uploaded bytes into a prescription.Image.
//
// Two sources reach the server: a file chosen in the picker (multipart) and a
// camera frame the browser encoded as a JPEG data URL.
package acquire

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/google/uuid"
)

// MaxImageBytes bounds a single prescription photo
const MaxImageBytes = 10 << 20

var registry = prescription.ErrorRegistry

// FromFile reads a file-picker upload
func FromFile(fh *multipart.FileHeader) (prescription.Image, error) {
	if fh == nil {
		return prescription.Image{}, registry.NewWithMessage(prescription.CodeInvalidImage, "No image was provided")
	}
	if fh.Size > MaxImageBytes {
		return prescription.Image{}, tooLarge(fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return prescription.Image{}, registry.New(prescription.CodeInvalidImage).WithCause(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return prescription.Image{}, registry.New(prescription.CodeInvalidImage).WithCause(err)
	}

	return FromBytes(data, fh.Header.Get("Content-Type"), fh.Filename, prescription.SourceFile)
}

// FromDataURL decodes a camera capture sent as data:image/jpeg;base64,...
func FromDataURL(dataURL string) (prescription.Image, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(dataURL), ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return prescription.Image{}, registry.NewWithMessage(prescription.CodeInvalidImage,
			"Camera capture must be a base64 data URL")
	}
	declared := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes {
		return prescription.Image{}, tooLarge(int64(base64.StdEncoding.DecodedLen(len(payload))))
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return prescription.Image{}, registry.NewWithMessage(prescription.CodeInvalidImage,
			"Camera capture is not valid base64").WithCause(err)
	}

	return FromBytes(data, declared, "capture-"+uuid.NewString()+extensionFor(declared), prescription.SourceCamera)
}

// FromBytes validates raw image bytes. The declared type and the sniffed type
// must both be image/*.
func FromBytes(data []byte, declared, filename string, source prescription.Source) (prescription.Image, error) {
	if len(data) == 0 {
		return prescription.Image{}, registry.NewWithMessage(prescription.CodeInvalidImage, "Image is empty")
	}
	if len(data) > MaxImageBytes {
		return prescription.Image{}, tooLarge(int64(len(data)))
	}

	sniffed := http.DetectContentType(data)
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}
	if !isImage(sniffed) || (declared != "" && !isImage(declared)) {
		return prescription.Image{}, registry.New(prescription.CodeInvalidImage).
			WithDetail("content_type", firstNonEmpty(declared, sniffed))
	}

	if filename = cleanFilename(filename); filename == "" {
		filename = uuid.NewString() + extensionFor(sniffed)
	}

	return prescription.Image{
		Data:     data,
		MIMEType: sniffed,
		Source:   source,
		Filename: filename,
	}, nil
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// cleanFilename keeps the base name only, so a client cannot escape its namespace
func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func tooLarge(size int64) error {
	return registry.NewWithMessage(prescription.CodeInvalidImage, "Image is too large").
		WithDetail("size", size).
		WithDetail("max", MaxImageBytes)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
