package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"regexp"
	"testing"
	"time"

	"lectern/internal/domain"
	"lectern/internal/domain/models"
	"lectern/internal/policy"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type putCall struct {
	bucket      string
	key         string
	contentType string
	data        []byte
}

// fakeStore implements storage.ObjectStore for service tests.
type fakeStore struct {
	keys     []string
	putErr   error
	signErr  error           // fails every sign when set
	unsigned map[string]bool // per-key sign failures
	puts     []putCall
}

func (f *fakeStore) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, putCall{bucket: bucket, key: key, contentType: contentType, data: data})
	return nil
}

func (f *fakeStore) List(_ context.Context, _ string) []string {
	return f.keys
}

func (f *fakeStore) SignURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	if f.unsigned[key] {
		return "", &domain.StorageSignError{Bucket: bucket, Key: key, Err: errors.New("object not found")}
	}
	return fmt.Sprintf("https://signed.example/%s/%s", bucket, key), nil
}

func materialsExchange(store *fakeStore) *Exchange {
	return NewExchange(&policy.BucketPolicy{
		Name:        "materials",
		WriterRoles: []string{"teacher"},
		ReadAuth:    policy.ReadAnonymous,
	}, store, testLogger)
}

func modulesExchange(store *fakeStore) *Exchange {
	return NewExchange(&policy.BucketPolicy{
		Name:        "modules",
		WriterRoles: []string{"teacher"},
		ReadAuth:    policy.ReadAnonymous,
	}, store, testLogger)
}

func teacher() *models.Principal {
	return &models.Principal{ID: "u-1", Email: "t@example.edu", Role: models.RoleTeacher}
}

func student() *models.Principal {
	return &models.Principal{ID: "u-2", Email: "s@example.edu", Role: models.RoleStudent}
}

func uploadReq() *UploadRequest {
	return &UploadRequest{
		Subject:     "Intro Physics",
		Filename:    "syllabus.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
	}
}

func TestUpload(t *testing.T) {
	store := &fakeStore{}
	ex := materialsExchange(store)

	receipt, err := ex.Upload(context.Background(), teacher(), uploadReq())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	keyPattern := regexp.MustCompile(`^Intro Physics/[0-9a-f-]{36}_syllabus\.pdf$`)
	if !keyPattern.MatchString(receipt.Path) {
		t.Errorf("receipt path %q does not match %v", receipt.Path, keyPattern)
	}
	if receipt.Subject != "Intro Physics" {
		t.Errorf("receipt subject = %q, want Intro Physics", receipt.Subject)
	}
	if receipt.Filename != "syllabus.pdf" {
		t.Errorf("receipt filename = %q, want syllabus.pdf", receipt.Filename)
	}
	if receipt.SignedURL == nil {
		t.Error("receipt has no signed URL")
	}

	if len(store.puts) != 1 {
		t.Fatalf("store received %d puts, want 1", len(store.puts))
	}
	put := store.puts[0]
	if put.bucket != "materials" || put.key != receipt.Path || put.contentType != "application/pdf" {
		t.Errorf("unexpected put %+v", put)
	}
}

func TestUploadAuth(t *testing.T) {
	tests := []struct {
		name      string
		principal *models.Principal
		wantErr   error
	}{
		{name: "anonymous", principal: nil, wantErr: domain.ErrUnauthenticated},
		{name: "wrong role", principal: student(), wantErr: domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			ex := modulesExchange(store)

			_, err := ex.Upload(context.Background(), tt.principal, uploadReq())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
			}
			if len(store.puts) != 0 {
				t.Errorf("store received %d puts, want 0 (nothing written on denial)", len(store.puts))
			}
		})
	}
}

func TestUploadAdminBypassesWriterTable(t *testing.T) {
	store := &fakeStore{}
	ex := modulesExchange(store)
	admin := &models.Principal{ID: "u-3", Role: models.RoleAdmin}

	if _, err := ex.Upload(context.Background(), admin, uploadReq()); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadRequest)
	}{
		{name: "missing subject", mutate: func(r *UploadRequest) { r.Subject = "" }},
		{name: "punctuation-only subject", mutate: func(r *UploadRequest) { r.Subject = "???" }},
		{name: "missing filename", mutate: func(r *UploadRequest) { r.Filename = "" }},
		{name: "empty file", mutate: func(r *UploadRequest) { r.Data = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			ex := materialsExchange(store)
			req := uploadReq()
			tt.mutate(req)

			_, err := ex.Upload(context.Background(), teacher(), req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Upload() error = %v, want validation error", err)
			}
		})
	}
}

func TestUploadSignFailureIsSoft(t *testing.T) {
	store := &fakeStore{signErr: &domain.StorageSignError{Bucket: "materials", Key: "x", Err: errors.New("down")}}
	ex := materialsExchange(store)

	receipt, err := ex.Upload(context.Background(), teacher(), uploadReq())
	if err != nil {
		t.Fatalf("Upload() error = %v, want success despite signing failure", err)
	}
	if receipt.SignedURL != nil {
		t.Errorf("receipt URL = %v, want nil", *receipt.SignedURL)
	}
	if receipt.Path == "" || receipt.Subject == "" {
		t.Errorf("receipt %+v missing path or subject", receipt)
	}
	if len(store.puts) != 1 {
		t.Errorf("store received %d puts, want 1", len(store.puts))
	}
}

func TestUploadStorageFailurePropagates(t *testing.T) {
	store := &fakeStore{putErr: &domain.StorageWriteError{Bucket: "materials", Key: "x", Err: errors.New("quota")}}
	ex := materialsExchange(store)

	_, err := ex.Upload(context.Background(), teacher(), uploadReq())
	if !errors.Is(err, domain.ErrStorageWrite) {
		t.Errorf("Upload() error = %v, want storage write error", err)
	}
}

func TestList(t *testing.T) {
	store := &fakeStore{
		keys: []string{
			"Math/bbb_worksheet.pdf",
			"Intro Physics/aaa_syllabus.pdf",
			"Math/aaa_answers.pdf",
			"loose_upload.pdf",
		},
	}
	ex := materialsExchange(store)

	records, err := ex.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var order []string
	for _, rec := range records {
		order = append(order, rec.Subject+"/"+rec.DisplayName)
	}
	want := []string{
		"Intro Physics/syllabus.pdf",
		"Math/answers.pdf",
		"Math/worksheet.pdf",
		"Uncategorized/upload.pdf",
	}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("List() order = %v, want %v", order, want)
	}

	for _, rec := range records {
		if rec.SignedURL == "" {
			t.Errorf("record %q has no signed URL", rec.Path)
		}
		if rec.Filename != rec.DisplayName {
			t.Errorf("record %q filename %q != display name %q", rec.Path, rec.Filename, rec.DisplayName)
		}
	}

	// Listing is stable: same order on a second call with no writes
	again, err := ex.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(records, again) {
		t.Error("two listings with no intervening writes differ")
	}
}

func TestListSkipsUnsignableEntries(t *testing.T) {
	store := &fakeStore{
		keys: []string{
			"Math/aaa_answers.pdf",
			"Math/ghost.pdf",
		},
		unsigned: map[string]bool{"Math/ghost.pdf": true},
	}
	ex := materialsExchange(store)

	records, err := ex.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("List() returned %d records, want 1", len(records))
	}
	if records[0].Path != "Math/aaa_answers.pdf" {
		t.Errorf("List() kept %q, want the signable entry", records[0].Path)
	}
}

func TestListEmptyWhenProviderDown(t *testing.T) {
	ex := materialsExchange(&fakeStore{keys: nil})

	records, err := ex.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", records)
	}
}

func TestReadAuthPolicy(t *testing.T) {
	ex := NewExchange(&policy.BucketPolicy{
		Name:        "materials",
		WriterRoles: []string{"teacher"},
		ReadAuth:    policy.ReadRequired,
	}, &fakeStore{keys: []string{"Math/aaa_x.pdf"}}, testLogger)

	if _, err := ex.List(context.Background(), nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("List() anonymous error = %v, want unauthenticated", err)
	}
	if _, err := ex.Download(context.Background(), nil, "Math/aaa_x.pdf"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("Download() anonymous error = %v, want unauthenticated", err)
	}

	if _, err := ex.List(context.Background(), student()); err != nil {
		t.Errorf("List() authenticated error = %v", err)
	}
}

func TestDownload(t *testing.T) {
	store := &fakeStore{}
	ex := materialsExchange(store)

	url, err := ex.Download(context.Background(), nil, "Intro Physics/abc_syllabus.pdf")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if url != "https://signed.example/materials/Intro Physics/abc_syllabus.pdf" {
		t.Errorf("Download() url = %q", url)
	}
}

func TestDownloadEmptyPath(t *testing.T) {
	ex := materialsExchange(&fakeStore{})

	_, err := ex.Download(context.Background(), nil, "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Download() error = %v, want validation error", err)
	}
}

func TestDownloadSignFailureIsHard(t *testing.T) {
	store := &fakeStore{unsigned: map[string]bool{"Math/missing.pdf": true}}
	ex := materialsExchange(store)

	_, err := ex.Download(context.Background(), nil, "Math/missing.pdf")
	if !errors.Is(err, domain.ErrStorageSign) {
		t.Errorf("Download() error = %v, want storage sign error", err)
	}
}
