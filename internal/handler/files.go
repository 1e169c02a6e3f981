package handler

import (
	"log/slog"
	"net/http"

	"lectern/internal/domain"
	"lectern/internal/httputil"
	"lectern/internal/service"
)

// FileHandler serves upload/list/download for every configured bucket. The
// bucket comes from the route's {bucket} segment and selects the exchange
// service; unknown buckets are a 404 before any provider call happens.
type FileHandler struct {
	exchanges map[string]*service.Exchange
	logger    *slog.Logger
}

// NewFileHandler creates a file handler over the given exchange services.
func NewFileHandler(exchanges []*service.Exchange, logger *slog.Logger) *FileHandler {
	byBucket := make(map[string]*service.Exchange, len(exchanges))
	for _, ex := range exchanges {
		byBucket[ex.Bucket()] = ex
	}
	return &FileHandler{
		exchanges: byBucket,
		logger:    logger,
	}
}

// Upload stores one multipart file under the posted subject
// POST /{bucket}/upload
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ex, ok := h.exchange(w, r)
	if !ok {
		return
	}

	form, err := httputil.ParseUpload(w, r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := ex.Upload(r.Context(), httputil.GetPrincipal(r), &service.UploadRequest{
		Subject:     form.Subject,
		Filename:    form.Filename,
		ContentType: form.ContentType,
		Data:        form.Data,
	})
	if err != nil {
		httputil.RespondDomainError(w, h.logger, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, receipt)
}

// List returns every file in the bucket, sorted by subject then name
// GET /{bucket}/list
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	ex, ok := h.exchange(w, r)
	if !ok {
		return
	}

	records, err := ex.List(r.Context(), httputil.GetPrincipal(r))
	if err != nil {
		httputil.RespondDomainError(w, h.logger, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, records)
}

// Download returns a signed URL for one storage key; the key may contain "/"
// GET /{bucket}/download/{path...}
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	ex, ok := h.exchange(w, r)
	if !ok {
		return
	}

	url, err := ex.Download(r.Context(), httputil.GetPrincipal(r), r.PathValue("path"))
	if err != nil {
		httputil.RespondDomainError(w, h.logger, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *FileHandler) exchange(w http.ResponseWriter, r *http.Request) (*service.Exchange, bool) {
	bucket := r.PathValue("bucket")
	ex, ok := h.exchanges[bucket]
	if !ok {
		httputil.RespondDomainError(w, h.logger, r, &domain.NotFoundError{Message: "unknown bucket"})
		return nil, false
	}
	return ex, true
}
