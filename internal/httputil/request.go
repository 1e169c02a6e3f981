package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxUploadBytes bounds multipart request bodies. Uploads are course PDFs;
// anything bigger is a client error, not a use case.
const maxUploadBytes = 50 << 20

// MultipartFile is one uploaded file plus the form fields that accompanied it.
type MultipartFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Subject     string
}

// ParseUpload reads the multipart upload form: the required "file" part and
// the required "subject" text field. It limits the request body size and
// returns clear field-level error messages.
func ParseUpload(w http.ResponseWriter, r *http.Request) (*MultipartFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}

	return &MultipartFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Subject:     strings.TrimSpace(r.FormValue("subject")),
	}, nil
}

// BearerToken extracts the raw token from an "Authorization: Bearer <token>"
// header. Returns "" when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
