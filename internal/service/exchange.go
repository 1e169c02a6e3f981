// Package service orchestrates the file exchange: upload, list, and download
// against one logical bucket, gated by the bucket's access policy.
package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"lectern/internal/domain"
	"lectern/internal/domain/models"
	"lectern/internal/objectpath"
	"lectern/internal/policy"
	"lectern/internal/storage"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Exchange handles the three file operations for one bucket. The service is
// stateless between requests; bucket name and writer rules are constructor
// parameters, so all resource kinds share this one implementation.
type Exchange struct {
	bucket  string
	policy  *policy.BucketPolicy
	store   storage.ObjectStore
	signTTL time.Duration
	logger  *slog.Logger
}

// NewExchange creates a file exchange service for one bucket.
func NewExchange(bucketPolicy *policy.BucketPolicy, store storage.ObjectStore, logger *slog.Logger) *Exchange {
	return &Exchange{
		bucket:  bucketPolicy.Name,
		policy:  bucketPolicy,
		store:   store,
		signTTL: storage.DefaultSignTTL,
		logger:  logger,
	}
}

// Bucket returns the logical bucket name this service serves.
func (s *Exchange) Bucket() string {
	return s.bucket
}

// RequiresReadAuth reports whether list/download need an authenticated caller.
func (s *Exchange) RequiresReadAuth() bool {
	return s.policy.RequiresReadAuth()
}

// UploadRequest carries one multipart upload, already read from the wire.
type UploadRequest struct {
	Subject     string
	Filename    string
	ContentType string
	Data        []byte
}

func (r *UploadRequest) validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Subject, validation.Required),
		validation.Field(&r.Filename, validation.Required),
		validation.Field(&r.Data, validation.Required),
	)
}

// Upload authenticates, authorizes against the bucket's writer roles,
// sanitizes the subject, stores the bytes under a fresh unique key, and
// best-effort mints a signed URL. A signing failure after a successful store
// never fails the upload: the receipt simply carries no URL.
func (s *Exchange) Upload(ctx context.Context, principal *models.Principal, req *UploadRequest) (*models.UploadReceipt, error) {
	if principal == nil {
		return nil, &domain.UnauthenticatedError{Message: "authentication required"}
	}
	if !s.policy.CanWrite(principal.Role) {
		return nil, &domain.ForbiddenError{Message: "insufficient role"}
	}

	if err := req.validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	key, err := objectpath.Encode(req.Subject, req.Filename)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, s.bucket, key, req.Data, req.ContentType); err != nil {
		return nil, err
	}

	subject, displayName := objectpath.Decode(key)

	receipt := &models.UploadReceipt{
		Path:     key,
		Subject:  subject,
		Filename: displayName,
	}

	url, err := s.store.SignURL(ctx, s.bucket, key, s.signTTL)
	if err != nil {
		s.logger.Warn("post-upload signing failed, returning receipt without URL",
			"bucket", s.bucket,
			"key", key,
			"error", err,
		)
	} else {
		receipt.SignedURL = &url
	}

	s.logger.Info("file uploaded",
		"bucket", s.bucket,
		"key", key,
		"subject", subject,
		"user_id", principal.ID,
		"role", principal.Role,
	)

	return receipt, nil
}

// List enumerates the bucket, normalizes every key into a FileRecord, signs
// each record, and sorts by (subject, display name) ascending. Entries whose
// signing fails are skipped, not fatal; a provider listing failure yields an
// empty result. The returned slice is never nil.
func (s *Exchange) List(ctx context.Context, principal *models.Principal) ([]models.FileRecord, error) {
	if s.policy.RequiresReadAuth() && principal == nil {
		return nil, &domain.UnauthenticatedError{Message: "authentication required"}
	}

	keys := s.store.List(ctx, s.bucket)

	records := make([]models.FileRecord, 0, len(keys))
	for _, key := range keys {
		if key == "" || key == storage.EmptyFolderPlaceholder {
			continue
		}

		url, err := s.store.SignURL(ctx, s.bucket, key, s.signTTL)
		if err != nil {
			// Folder markers and just-deleted objects land here; a degraded
			// listing beats a failed one.
			s.logger.Debug("skipping unsignable entry", "bucket", s.bucket, "key", key, "error", err)
			continue
		}

		subject, displayName := objectpath.Decode(key)
		records = append(records, models.FileRecord{
			Path:        key,
			SignedURL:   url,
			DisplayName: displayName,
			Subject:     subject,
			Filename:    displayName,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Subject != records[j].Subject {
			return records[i].Subject < records[j].Subject
		}
		if records[i].DisplayName != records[j].DisplayName {
			return records[i].DisplayName < records[j].DisplayName
		}
		return records[i].Path < records[j].Path
	})

	return records, nil
}

// Download mints a signed URL for one storage key. Unlike listing, a signing
// failure here is a hard error: there is exactly one object of interest and
// no skip-and-continue option.
func (s *Exchange) Download(ctx context.Context, principal *models.Principal, key string) (string, error) {
	if s.policy.RequiresReadAuth() && principal == nil {
		return "", &domain.UnauthenticatedError{Message: "authentication required"}
	}
	if key == "" {
		return "", &domain.ValidationError{Message: "path is required"}
	}

	return s.store.SignURL(ctx, s.bucket, key, s.signTTL)
}
