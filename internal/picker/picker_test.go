package picker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/credentials"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/services"
	"github.com/desertthunder/homeboard/internal/shared"
	"github.com/desertthunder/homeboard/internal/storage"
	"github.com/desertthunder/homeboard/internal/tasks"
)

type fakeTokens struct {
	token string
}

func (f fakeTokens) GetValidToken(context.Context, credentials.Provider) (*credentials.Token, error) {
	if f.token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &credentials.Token{AccessToken: f.token}, nil
}

// fakePicker imitates the Picker API. Media items are served two per page.
type fakePicker struct {
	t          *testing.T
	itemsSet   atomic.Bool
	endless    bool
	items      []map[string]any
	listCalls  atomic.Int32
	downloads  atomic.Int32
	lastSuffix atomic.Value
}

func (f *fakePicker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			f.t.Errorf("failed to encode response: %v", err)
		}
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/sessions":
		write(map[string]any{"id": "s1", "pickerUri": "https://photos.google.com/picker/s1"})
	case r.Method == http.MethodDelete && r.URL.Path == "/sessions/s1":
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "{}")
	case r.URL.Path == "/sessions/s1":
		write(map[string]any{"id": "s1", "mediaItemsSet": f.itemsSet.Load()})
	case r.URL.Path == "/mediaItems":
		f.listCalls.Add(1)
		if f.endless {
			write(map[string]any{"mediaItems": []any{}, "nextPageToken": "more"})
			return
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
		end := min(start+2, len(f.items))
		page := map[string]any{"mediaItems": f.items[start:end]}
		if end < len(f.items) {
			page["nextPageToken"] = strconv.Itoa(end)
		}
		write(page)
	case strings.HasPrefix(r.URL.Path, "/media/"):
		f.downloads.Add(1)
		_, suffix, _ := strings.Cut(r.URL.Path, "=")
		f.lastSuffix.Store(suffix)
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(w, "jpeg:"+r.URL.Path)
	default:
		http.NotFound(w, r)
	}
}

func mediaItem(id, mime, baseURL string) map[string]any {
	return map[string]any{"id": id, "mediaFile": map[string]string{"mimeType": mime, "baseUrl": baseURL}}
}

func setupTracker(t *testing.T, fake *fakePicker, token string, cfg shared.PhotosConfig) (*Tracker, *cache.Cache, string) {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	kv, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := log.New(io.Discard)
	c := cache.New(nil)
	dir := filepath.Join(t.TempDir(), "photos")

	tr := New(Opts{
		Store:  kv,
		Photos: services.NewPhotosClient(services.PhotosClientOpts{BaseURL: srv.URL, Logger: logger}),
		Tokens: fakeTokens{token: token},
		Cache:  c,
		Config: cfg,
		Dir:    dir,
		Now:    func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
		Logger: logger,
	})
	return tr, c, srv.URL
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func TestTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("Not Authenticated", func(t *testing.T) {
		tr, _, _ := setupTracker(t, &fakePicker{t: t}, "", shared.PhotosConfig{})

		if _, err := tr.CreateSession(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := tr.SyncSelectedMedia(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Poll Without Session", func(t *testing.T) {
		tr, _, _ := setupTracker(t, &fakePicker{t: t}, "tok", shared.PhotosConfig{})

		if _, err := tr.PollStatus(ctx); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("Session Lifecycle", func(t *testing.T) {
		fake := &fakePicker{t: t, items: []map[string]any{
			mediaItem("a", "image/jpeg", "u/a"),
			mediaItem("b", "image/png", "u/b"),
			mediaItem("c", "video/mp4", "u/c"),
		}}
		tr, _, _ := setupTracker(t, fake, "tok", shared.PhotosConfig{})

		session, err := tr.CreateSession(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if session.SessionID != "s1" || session.PickerURI == "" {
			t.Errorf("unexpected session %+v", session)
		}

		status, err := tr.PollStatus(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.State != StatePending {
			t.Errorf("expected pending, got %s", status.State)
		}

		fake.itemsSet.Store(true)
		status, err = tr.PollStatus(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.State != StateComplete || status.Count != 3 {
			t.Errorf("expected complete with 3 items, got %+v", status)
		}
		if fake.listCalls.Load() != 2 {
			t.Errorf("expected 2 pages, got %d", fake.listCalls.Load())
		}

		status, err = tr.PollStatus(ctx)
		if err != nil || status.State != StateComplete || status.Count != 3 {
			t.Errorf("expected stored completion, got %+v, %v", status, err)
		}
		if fake.listCalls.Load() != 2 {
			t.Error("expected repeated poll not to refetch items")
		}

		stored, err := tr.Session(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !stored.MediaItemsSet || stored.CompletedAt == nil {
			t.Errorf("expected completed session, got %+v", stored)
		}
	})

	t.Run("Pagination Bound", func(t *testing.T) {
		fake := &fakePicker{t: t, endless: true}
		fake.itemsSet.Store(true)
		tr, _, _ := setupTracker(t, fake, "tok", shared.PhotosConfig{MaxPages: 3})

		if _, err := tr.CreateSession(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := tr.PollStatus(ctx); !errors.Is(err, shared.ErrTooManyPages) {
			t.Errorf("expected ErrTooManyPages, got %v", err)
		}
		if fake.listCalls.Load() != 3 {
			t.Errorf("expected 3 page requests, got %d", fake.listCalls.Load())
		}
	})
}

func TestSyncSelectedMedia(t *testing.T) {
	ctx := context.Background()

	t.Run("No Picked Media", func(t *testing.T) {
		tr, _, _ := setupTracker(t, &fakePicker{t: t}, "tok", shared.PhotosConfig{})
		if _, err := tr.SyncSelectedMedia(ctx); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("Video And Existing Image", func(t *testing.T) {
		fake := &fakePicker{t: t}
		tr, _, base := setupTracker(t, fake, "tok", shared.PhotosConfig{})

		writeFile(t, tr.Dir(), "keep.jpg")
		media := models.PickerMedia{SessionID: "s1", Items: []models.PickerMediaItem{
			{ID: "clip", MimeType: "video/mp4", BaseURL: base + "/media/clip"},
			{ID: "keep", MimeType: "image/jpeg", BaseURL: base + "/media/keep"},
		}}
		if err := tr.save(ctx, storage.KeyPickerMedia, media); err != nil {
			t.Fatalf("failed to save media: %v", err)
		}

		state, err := tr.SyncSelectedMedia(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if state.Downloaded != 0 || state.Removed != 0 || state.Skipped != 1 {
			t.Errorf("unexpected sync state %+v", state)
		}
		if fake.downloads.Load() != 0 {
			t.Errorf("expected no downloads, got %d", fake.downloads.Load())
		}
	})

	t.Run("Downloads And Removes", func(t *testing.T) {
		fake := &fakePicker{t: t}
		tr, c, base := setupTracker(t, fake, "tok", shared.PhotosConfig{MaxWidth: 800, MaxHeight: 600})

		writeFile(t, tr.Dir(), "stale.jpg")
		before, err := tr.Photos(ctx)
		if err != nil || len(before) != 1 {
			t.Fatalf("expected one photo before sync, got %v, %v", before, err)
		}

		media := models.PickerMedia{SessionID: "s1", Items: []models.PickerMediaItem{
			{ID: "one", MimeType: "image/jpeg", BaseURL: base + "/media/one"},
			{ID: "two/x", MimeType: "image/heic", BaseURL: base + "/media/two"},
			{ID: "nourl", MimeType: "image/jpeg"},
			{ID: "broken", MimeType: "image/jpeg", BaseURL: base + "/media/broken"},
		}}
		if err := tr.save(ctx, storage.KeyPickerMedia, media); err != nil {
			t.Fatalf("failed to save media: %v", err)
		}

		state, err := tr.SyncSelectedMedia(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if state.Downloaded != 2 || state.Removed != 1 || state.Failed != 1 {
			t.Errorf("unexpected sync state %+v", state)
		}
		if got := fake.lastSuffix.Load(); got != "w800-h600" {
			t.Errorf("expected sized download, got %v", got)
		}

		data, err := os.ReadFile(filepath.Join(tr.Dir(), "one.jpg"))
		if err != nil {
			t.Fatalf("expected one.jpg, got %v", err)
		}
		if !strings.HasPrefix(string(data), "jpeg:/media/one") {
			t.Errorf("unexpected file content %q", data)
		}
		if _, err := os.Stat(filepath.Join(tr.Dir(), "stale.jpg")); !os.IsNotExist(err) {
			t.Error("expected stale.jpg to be removed")
		}

		if _, ok := c.Get(cache.PhotosListKey); ok {
			t.Error("expected photos list to be invalidated")
		}
		after, err := tr.Photos(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Join(after, ",") != "one.jpg,two_x.jpg" {
			t.Errorf("unexpected photos %v", after)
		}

		last, err := tr.LastSync(ctx)
		if err != nil || last == nil || last.Downloaded != 2 {
			t.Errorf("expected recorded sync, got %+v, %v", last, err)
		}
	})
}

func TestSyncProgress(t *testing.T) {
	ctx := context.Background()
	fake := &fakePicker{t: t}
	tr, _, base := setupTracker(t, fake, "tok", shared.PhotosConfig{Workers: 2})

	progress := make(chan tasks.ProgressUpdate, 10)
	tr.progress = progress

	writeFile(t, tr.Dir(), "old.jpg")
	media := models.PickerMedia{SessionID: "s1", Items: []models.PickerMediaItem{
		{ID: "a", MimeType: "image/jpeg", BaseURL: base + "/media/a"},
		{ID: "b", MimeType: "image/jpeg", BaseURL: base + "/media/b"},
	}}
	if err := tr.save(ctx, storage.KeyPickerMedia, media); err != nil {
		t.Fatalf("failed to save media: %v", err)
	}

	if _, err := tr.SyncSelectedMedia(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	close(progress)

	phases := map[tasks.Phase]int{}
	for u := range progress {
		phases[u.Phase]++
	}
	if phases[tasks.Download] != 2 || phases[tasks.Remove] != 1 {
		t.Errorf("expected 2 download and 1 remove updates, got %v", phases)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"AF1QipN-abc_123", "AF1QipN-abc_123.jpg"},
		{"../../etc/passwd", "______etc_passwd.jpg"},
		{"a b", "a_b.jpg"},
	}
	for _, tt := range tests {
		if got := FileName(tt.id); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
