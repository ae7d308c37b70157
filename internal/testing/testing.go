// Package testing contains shared test helpers, imported as th.
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/storage"
)

// MockService is a test double for services.Service.
type MockService struct {
	ServiceName  string
	IsConfigured bool
}

func (m *MockService) Name() string {
	if m.ServiceName == "" {
		return "mock"
	}
	return m.ServiceName
}

func (m *MockService) Configured() bool { return m.IsConfigured }

// Logger returns a logger that discards everything.
func Logger() *log.Logger {
	return log.New(io.Discard)
}

// NewFileStore creates a [storage.FileStore] in a temp dir.
func NewFileStore(t *testing.T) *storage.FileStore {
	t.Helper()
	kv, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	return kv
}

// DecodeJSON decodes r into v or fails the test.
func DecodeJSON(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// AssertFileExists fails the test when path is missing.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

// MustReadFile returns the file contents or fails the test.
func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
