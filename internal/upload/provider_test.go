package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// MockProvider implements Provider for testing
type MockProvider struct {
	name       string
	configured bool
	uploadErr  error
	uploads    []mockUpload
}

type mockUpload struct {
	content    string
	size       int64
	remotePath string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:    name,
		uploads: []mockUpload{},
	}
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Configure(settings map[string]any) error {
	m.configured = true
	return nil
}

func (m *MockProvider) Upload(ctx context.Context, reader io.Reader, size int64, remotePath string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	m.uploads = append(m.uploads, mockUpload{
		content:    string(content),
		size:       size,
		remotePath: remotePath,
	})

	return nil
}

func TestProviderRegistry(t *testing.T) {
	testProviderName := "test-provider"
	RegisterProvider(testProviderName, func() Provider {
		return NewMockProvider(testProviderName)
	})

	provider, err := Setup(testProviderName, map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Failed to set up registered provider: %v", err)
	}
	if provider.Name() != testProviderName {
		t.Errorf("Expected provider name %s, got %s", testProviderName, provider.Name())
	}
	if !provider.(*MockProvider).configured {
		t.Error("Setup did not configure the provider")
	}

	if _, err := NewProvider("unknown-provider"); err == nil {
		t.Error("Expected error for unknown provider, got nil")
	}
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "14-10-26.xlsx")
	side := filepath.Join(dir, "BENCH01_cell_map.json")
	if err := os.WriteFile(book, []byte("workbook bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(side, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	provider := NewMockProvider("test")
	remotes, err := NewArchiver(provider, nil).Archive(context.Background(), "ledgers/2026-10-14", book, side)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	wantRemotes := []string{"ledgers/2026-10-14/14-10-26.xlsx", "ledgers/2026-10-14/BENCH01_cell_map.json"}
	if !reflect.DeepEqual(remotes, wantRemotes) {
		t.Errorf("remotes = %v, want %v", remotes, wantRemotes)
	}
	if len(provider.uploads) != 2 {
		t.Fatalf("Expected 2 uploads, got %d", len(provider.uploads))
	}
	first := provider.uploads[0]
	if first.content != "workbook bytes" || first.size != int64(len("workbook bytes")) {
		t.Errorf("unexpected upload %+v", first)
	}
}

func TestArchiveErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.xlsx")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("missing file", func(t *testing.T) {
		provider := NewMockProvider("test")
		_, err := NewArchiver(provider, nil).Archive(context.Background(), "", filepath.Join(dir, "nope.xlsx"))
		if err == nil {
			t.Fatal("Expected error for missing file")
		}
		if len(provider.uploads) != 0 {
			t.Error("nothing should have been uploaded")
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := NewMockProvider("test")
		provider.uploadErr = errors.New("bucket gone")
		remotes, err := NewArchiver(provider, nil).Archive(context.Background(), "", file, file)
		if err == nil || !strings.Contains(err.Error(), "bucket gone") {
			t.Fatalf("Expected provider error, got %v", err)
		}
		if len(remotes) != 0 {
			t.Errorf("remotes = %v, want none", remotes)
		}
	})
}

func TestMinioProviderName(t *testing.T) {
	provider := NewMinioProvider()
	if provider.Name() != "minio" {
		t.Errorf("Expected provider name 'minio', got %s", provider.Name())
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		endpoint       string
		explicitSecure *bool
		wantEndpoint   string
		wantSecure     bool
		wantErr        bool
	}{
		{
			name:         "http protocol",
			endpoint:     "http://localhost:9000",
			wantEndpoint: "localhost:9000",
			wantSecure:   false,
		},
		{
			name:         "https protocol",
			endpoint:     "https://s3.amazonaws.com/",
			wantEndpoint: "s3.amazonaws.com",
			wantSecure:   true,
		},
		{
			name:         "no protocol uses default secure=true",
			endpoint:     "localhost:9000",
			wantEndpoint: "localhost:9000",
			wantSecure:   true,
		},
		{
			name:           "no protocol with explicit secure=false",
			endpoint:       "localhost:9000",
			explicitSecure: boolPtr(false),
			wantEndpoint:   "localhost:9000",
			wantSecure:     false,
		},
		{
			name:           "http protocol overrides explicit secure=true",
			endpoint:       "http://localhost:9000",
			explicitSecure: boolPtr(true),
			wantEndpoint:   "localhost:9000",
			wantSecure:     false,
		},
		{
			name:     "invalid protocol only",
			endpoint: "http://",
			wantErr:  true,
		},
		{
			name:     "path in endpoint",
			endpoint: "http://localhost:9000/bucket",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, secure, err := parseEndpoint(tt.endpoint, tt.explicitSecure)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if endpoint != tt.wantEndpoint {
				t.Errorf("endpoint = %q, want %q", endpoint, tt.wantEndpoint)
			}
			if secure != tt.wantSecure {
				t.Errorf("secure = %v, want %v", secure, tt.wantSecure)
			}
		})
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func TestMinioProviderConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		expectErr bool
		errMsg    string
	}{
		{
			name:      "missing endpoint",
			config:    map[string]any{},
			expectErr: true,
			errMsg:    "endpoint is required",
		},
		{
			name: "missing access_key",
			config: map[string]any{
				"endpoint": "localhost:9000",
			},
			expectErr: true,
			errMsg:    "access_key is required",
		},
		{
			name: "missing secret_key",
			config: map[string]any{
				"endpoint":   "localhost:9000",
				"access_key": "minioadmin",
			},
			expectErr: true,
			errMsg:    "secret_key is required",
		},
		{
			name: "missing bucket",
			config: map[string]any{
				"endpoint":   "localhost:9000",
				"access_key": "minioadmin",
				"secret_key": "minioadmin",
			},
			expectErr: true,
			errMsg:    "bucket is required",
		},
		{
			name: "invalid endpoint URL",
			config: map[string]any{
				"endpoint":   "http://",
				"access_key": "minioadmin",
				"secret_key": "minioadmin",
				"bucket":     "test",
			},
			expectErr: true,
			errMsg:    "invalid endpoint URL",
		},
		{
			name: "valid with string secure flag",
			config: map[string]any{
				"endpoint":   "localhost:9000",
				"access_key": "minioadmin",
				"secret_key": "minioadmin",
				"bucket":     "test",
				"secure":     "false",
				"prefix":     "ledgers",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewMinioProvider()
			err := provider.Configure(tt.config)
			if tt.expectErr {
				if err == nil {
					t.Error("Expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestMinioObjectName(t *testing.T) {
	m := &MinioProvider{prefix: "archive"}
	if got := m.objectName("14-10-26.xlsx"); got != "archive/14-10-26.xlsx" {
		t.Errorf("objectName = %q", got)
	}
	m.prefix = ""
	if got := m.objectName("14-10-26.xlsx"); got != "14-10-26.xlsx" {
		t.Errorf("objectName = %q", got)
	}
}

func TestMinioUploadUnconfigured(t *testing.T) {
	err := NewMinioProvider().Upload(context.Background(), strings.NewReader("x"), 1, "x")
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("Expected not configured error, got %v", err)
	}
}
