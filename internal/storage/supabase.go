package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lectern/internal/domain"
)

// SupabaseStore talks to the Supabase Storage REST API. Response payload
// shapes differ across provider versions, so every call site normalizes into
// one canonical form and fails closed: an unrecognized shape is treated as
// absence, never as a crash.
type SupabaseStore struct {
	baseURL    string // project URL without trailing slash
	serviceKey string
	client     *http.Client
	logger     *slog.Logger
}

// SupabaseConfig carries the explicit construction parameters for the store;
// no process-wide client singletons.
type SupabaseConfig struct {
	ProjectURL string
	ServiceKey string
	// Timeout bounds each storage call; zero means 10s.
	Timeout time.Duration
}

// NewSupabaseStore creates a Supabase Storage driver.
func NewSupabaseStore(cfg SupabaseConfig, logger *slog.Logger) (*SupabaseStore, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("supabase project URL cannot be empty")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase service key cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &SupabaseStore{
		baseURL:    strings.TrimRight(cfg.ProjectURL, "/"),
		serviceKey: cfg.ServiceKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Put uploads bytes to POST /storage/v1/object/{bucket}/{key}.
func (s *SupabaseStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, url.PathEscape(bucket), escapeKey(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return &domain.StorageWriteError{Bucket: bucket, Key: key, Err: err}
	}
	s.authorize(req)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.UpstreamError{Provider: "storage", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("storage upload rejected",
			"bucket", bucket,
			"key", key,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return &domain.StorageWriteError{
			Bucket: bucket,
			Key:    key,
			Err:    fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}

	return nil
}

// List enumerates keys via POST /storage/v1/object/list/{bucket}. The
// provider returns only one folder level per call, so entries that look like
// subject folders are expanded one level to recover full "subject/file" keys.
// Any provider failure degrades to an empty result.
func (s *SupabaseStore) List(ctx context.Context, bucket string) []string {
	entries, err := s.listPrefix(ctx, bucket, "")
	if err != nil {
		s.logger.Error("storage list failed, returning empty result",
			"bucket", bucket,
			"error", err,
		)
		return nil
	}

	var keys []string
	for _, e := range entries {
		if e.name == "" || e.name == EmptyFolderPlaceholder {
			continue
		}
		if !e.folder {
			keys = append(keys, e.name)
			continue
		}
		children, err := s.listPrefix(ctx, bucket, e.name+"/")
		if err != nil {
			s.logger.Warn("storage folder listing failed, skipping folder",
				"bucket", bucket,
				"folder", e.name,
				"error", err,
			)
			continue
		}
		for _, c := range children {
			if c.name == "" || c.name == EmptyFolderPlaceholder || c.folder {
				continue
			}
			keys = append(keys, e.name+"/"+c.name)
		}
	}
	return keys
}

// SignURL mints a signed URL via POST /storage/v1/object/sign/{bucket}/{key}.
func (s *SupabaseStore) SignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultSignTTL
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.baseURL, url.PathEscape(bucket), escapeKey(key))

	payload, err := json.Marshal(map[string]int{"expiresIn": int(ttl.Seconds())})
	if err != nil {
		return "", &domain.StorageSignError{Bucket: bucket, Key: key, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &domain.StorageSignError{Bucket: bucket, Key: key, Err: err}
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &domain.UpstreamError{Provider: "storage", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", &domain.StorageSignError{Bucket: bucket, Key: key, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("signed URL request rejected",
			"bucket", bucket,
			"key", key,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return "", &domain.StorageSignError{
			Bucket: bucket,
			Key:    key,
			Err:    fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}

	signed := normalizeSignedURL(body)
	if signed == "" {
		return "", &domain.StorageSignError{
			Bucket: bucket,
			Key:    key,
			Err:    fmt.Errorf("no signed URL in provider response"),
		}
	}

	// The provider returns a path relative to the storage API root.
	if strings.HasPrefix(signed, "/") {
		signed = s.baseURL + "/storage/v1" + signed
	}
	return signed, nil
}

func (s *SupabaseStore) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
}

type listEntry struct {
	name   string
	folder bool
}

func (s *SupabaseStore) listPrefix(ctx context.Context, bucket, prefix string) ([]listEntry, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/list/%s", s.baseURL, url.PathEscape(bucket))

	payload, err := json.Marshal(map[string]interface{}{
		"prefix": prefix,
		"limit":  10000,
		"offset": 0,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	return normalizeEntries(body), nil
}

// normalizeEntries folds the known provider list shapes into []listEntry:
// a bare JSON array, or an object wrapping the array under "data" or
// "message". Items may be objects or plain strings. Unrecognized items are
// dropped rather than failing the whole listing.
func normalizeEntries(body []byte) []listEntry {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		wrapper, ok := raw.(map[string]interface{})
		if !ok {
			return nil
		}
		for _, field := range []string{"data", "message"} {
			if list, ok := wrapper[field].([]interface{}); ok {
				items = list
				break
			}
		}
	}

	var entries []listEntry
	for _, item := range items {
		switch v := item.(type) {
		case string:
			entries = append(entries, listEntry{name: v})
		case map[string]interface{}:
			name := firstString(v, "name", "Key", "path", "id", "key")
			if name == "" {
				continue
			}
			// Folder entries carry no object id.
			_, hasID := v["id"]
			folder := hasID && v["id"] == nil
			entries = append(entries, listEntry{name: name, folder: folder})
		}
	}
	return entries
}

// normalizeSignedURL folds the known signed-URL response shapes into one
// string: signedURL / signed_url / url, either top-level or nested in "data".
func normalizeSignedURL(body []byte) string {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	if u := firstString(raw, "signedURL", "signed_url", "url"); u != "" {
		return u
	}
	if data, ok := raw["data"].(map[string]interface{}); ok {
		return firstString(data, "signedURL", "signed_url", "url")
	}
	return ""
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// escapeKey percent-encodes each segment of a key while preserving the "/"
// separators, since keys legitimately contain slashes.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
