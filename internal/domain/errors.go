package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// UnauthenticatedError indicates a missing, invalid, or expired token
	UnauthenticatedError struct {
		Message string
	}

	// ForbiddenError indicates the caller is authenticated but lacks the required role
	ForbiddenError struct {
		Message string
	}

	// ValidationError indicates client input failed presence or sanitization
	// checks (invalid subject, empty path, missing file)
	ValidationError struct {
		Message string
	}

	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}
)

// Error implementations
func (e *UnauthenticatedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string       { return e.Message }
func (e *ValidationError) Error() string      { return e.Message }
func (e *NotFoundError) Error() string        { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *UnauthenticatedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int       { return http.StatusForbidden }
func (e *ValidationError) StatusCode() int      { return http.StatusBadRequest }
func (e *NotFoundError) StatusCode() int        { return http.StatusNotFound }

// Sentinel errors - use with errors.Is()
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrStorageWrite    = errors.New("storage write failed")
	ErrStorageSign     = errors.New("storage sign failed")
	ErrUpstream        = errors.New("upstream provider unavailable")
)

// Is implementations let errors.Is() match typed errors against the sentinels
func (e *UnauthenticatedError) Is(target error) bool { return target == ErrUnauthenticated }
func (e *ForbiddenError) Is(target error) bool       { return target == ErrForbidden }
func (e *ValidationError) Is(target error) bool      { return target == ErrValidation }
func (e *NotFoundError) Is(target error) bool        { return target == ErrNotFound }

// StorageWriteError represents a failed object write against the storage
// provider. Bucket and key give the client enough context to retry; the
// wrapped provider error stays in server logs only.
type StorageWriteError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write failed for %s/%s", e.Bucket, e.Key)
}

func (e *StorageWriteError) StatusCode() int { return http.StatusInternalServerError }

func (e *StorageWriteError) Unwrap() error { return e.Err }

func (e *StorageWriteError) Is(target error) bool { return target == ErrStorageWrite }

// StorageSignError represents a failed signed-URL mint. Raised when the key
// does not exist or the provider call fails.
type StorageSignError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *StorageSignError) Error() string {
	return fmt.Sprintf("signed URL creation failed for %s/%s", e.Bucket, e.Key)
}

func (e *StorageSignError) StatusCode() int { return http.StatusInternalServerError }

func (e *StorageSignError) Unwrap() error { return e.Err }

func (e *StorageSignError) Is(target error) bool { return target == ErrStorageSign }

// UpstreamError indicates the identity or storage provider was unreachable or
// timed out before producing a usable response.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s provider unavailable", e.Provider)
}

func (e *UpstreamError) StatusCode() int { return http.StatusGatewayTimeout }

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
