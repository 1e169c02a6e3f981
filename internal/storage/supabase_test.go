package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"lectern/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestStore(t *testing.T, handler http.HandlerFunc) *SupabaseStore {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := NewSupabaseStore(SupabaseConfig{
		ProjectURL: srv.URL,
		ServiceKey: "service-key",
	}, testLogger)
	if err != nil {
		t.Fatalf("NewSupabaseStore() error = %v", err)
	}
	return store
}

func TestSupabaseStoreRequiresConfig(t *testing.T) {
	if _, err := NewSupabaseStore(SupabaseConfig{ServiceKey: "k"}, testLogger); err == nil {
		t.Error("expected error for missing project URL")
	}
	if _, err := NewSupabaseStore(SupabaseConfig{ProjectURL: "https://x.supabase.co"}, testLogger); err == nil {
		t.Error("expected error for missing service key")
	}
}

func TestSupabasePut(t *testing.T) {
	var gotPath, gotAuth, gotAPIKey, gotContentType string
	var gotBody []byte

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	err := store.Put(context.Background(), "materials", "Intro Physics/abc_syllabus.pdf", []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if gotPath != "/storage/v1/object/materials/Intro%20Physics/abc_syllabus.pdf" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer service-key" || gotAPIKey != "service-key" {
		t.Errorf("auth headers = %q / %q", gotAuth, gotAPIKey)
	}
	if gotContentType != "application/pdf" {
		t.Errorf("content type = %q", gotContentType)
	}
	if string(gotBody) != "%PDF-1.4" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestSupabasePutRejected(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Payload too large"}`, http.StatusRequestEntityTooLarge)
	})

	err := store.Put(context.Background(), "materials", "Math/abc_a.pdf", []byte("x"), "")
	if !errors.Is(err, domain.ErrStorageWrite) {
		t.Errorf("Put() error = %v, want storage write error", err)
	}
}

func TestSupabaseList(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/list/materials" {
			t.Errorf("unexpected list path %q", r.URL.Path)
		}

		var req struct {
			Prefix string `json:"prefix"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode list request: %v", err)
		}

		switch req.Prefix {
		case "":
			// Top level: two subject folders, one loose file, one placeholder
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"name": "Math", "id": nil},
				{"name": "Intro Physics", "id": nil},
				{"name": "loose.pdf", "id": "obj-1"},
				{"name": EmptyFolderPlaceholder, "id": "obj-2"},
			})
		case "Math/":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"name": "abc_worksheet.pdf", "id": "obj-3"},
				{"name": EmptyFolderPlaceholder, "id": "obj-4"},
			})
		case "Intro Physics/":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"name": "abc_syllabus.pdf", "id": "obj-5"},
			})
		default:
			t.Errorf("unexpected prefix %q", req.Prefix)
		}
	})

	keys := store.List(context.Background(), "materials")

	want := []string{
		"Math/abc_worksheet.pdf",
		"Intro Physics/abc_syllabus.pdf",
		"loose.pdf",
	}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("List() = %v, want %v", keys, want)
	}
}

func TestSupabaseListDegradesToEmpty(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Bucket not found"}`, http.StatusNotFound)
	})

	if keys := store.List(context.Background(), "materials"); len(keys) != 0 {
		t.Errorf("List() = %v, want empty on provider failure", keys)
	}
}

func TestSupabaseSignURL(t *testing.T) {
	tests := []struct {
		name     string
		response string
		relative bool // want result prefixed with the storage API root
		want     string
	}{
		{
			name:     "relative signedURL",
			response: `{"signedURL":"/object/sign/materials/Math/abc_a.pdf?token=t"}`,
			relative: true,
			want:     "/storage/v1/object/sign/materials/Math/abc_a.pdf?token=t",
		},
		{
			name:     "snake_case key",
			response: `{"signed_url":"https://cdn.example/abs?token=t"}`,
			want:     "https://cdn.example/abs?token=t",
		},
		{
			name:     "nested under data",
			response: `{"data":{"url":"https://cdn.example/nested?token=t"}}`,
			want:     "https://cdn.example/nested?token=t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotPayload map[string]int

			store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.EscapedPath()
				json.NewDecoder(r.Body).Decode(&gotPayload)
				io.WriteString(w, tt.response)
			})

			url, err := store.SignURL(context.Background(), "materials", "Math/abc_a.pdf", 30*time.Minute)
			if err != nil {
				t.Fatalf("SignURL() error = %v", err)
			}

			want := tt.want
			if tt.relative {
				want = store.baseURL + want
			}
			if url != want {
				t.Errorf("SignURL() = %q, want %q", url, want)
			}
			if gotPath != "/storage/v1/object/sign/materials/Math/abc_a.pdf" {
				t.Errorf("request path = %q", gotPath)
			}
			if gotPayload["expiresIn"] != 1800 {
				t.Errorf("expiresIn = %d, want 1800", gotPayload["expiresIn"])
			}
		})
	}
}

func TestSupabaseSignURLFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "provider rejects",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"Object not found"}`, http.StatusBadRequest)
			},
		},
		{
			name: "no URL in response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"something":"else"}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, tt.handler)

			_, err := store.SignURL(context.Background(), "materials", "Math/abc_a.pdf", time.Hour)
			if !errors.Is(err, domain.ErrStorageSign) {
				t.Errorf("SignURL() error = %v, want storage sign error", err)
			}
		})
	}
}

func TestNormalizeEntries(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []listEntry
	}{
		{
			name: "bare array of objects",
			body: `[{"name":"a.pdf","id":"1"},{"name":"Math","id":null}]`,
			want: []listEntry{{name: "a.pdf"}, {name: "Math", folder: true}},
		},
		{
			name: "array of strings",
			body: `["a.pdf","b.pdf"]`,
			want: []listEntry{{name: "a.pdf"}, {name: "b.pdf"}},
		},
		{
			name: "wrapped under data",
			body: `{"data":[{"Key":"a.pdf"}]}`,
			want: []listEntry{{name: "a.pdf"}},
		},
		{
			name: "wrapped under message",
			body: `{"message":[{"path":"a.pdf"}]}`,
			want: []listEntry{{name: "a.pdf"}},
		},
		{
			name: "nameless items dropped",
			body: `[{"size":12},{"name":"keep.pdf"}]`,
			want: []listEntry{{name: "keep.pdf"}},
		},
		{
			name: "not json",
			body: `<html>gateway error</html>`,
			want: nil,
		},
		{
			name: "unrecognized wrapper",
			body: `{"error":"nope"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeEntries([]byte(tt.body))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeEntries() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEscapeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Math/a.pdf", want: "Math/a.pdf"},
		{in: "Intro Physics/a b.pdf", want: "Intro%20Physics/a%20b.pdf"},
		{in: "a#b/c?d.pdf", want: "a%23b/c%3Fd.pdf"},
	}

	for _, tt := range tests {
		if got := escapeKey(tt.in); got != tt.want {
			t.Errorf("escapeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
