// Package picker tracks Google Photos Picker sessions and mirrors the picked
// photos into a local directory served by the dashboard slideshow.
//
// A session moves through three steps:
//  1. [Tracker.CreateSession] asks Google for a picker URL and persists the session.
//  2. [Tracker.PollStatus] is called repeatedly (every 2s, for at most 5 minutes, by the
//     CLI view or the browser) until the user finishes picking; the picked items are
//     then fetched page by page and persisted.
//  3. [Tracker.SyncSelectedMedia] downloads missing images as {id}.jpg on a small
//     worker pool and removes local files that are no longer picked.
//
// Each new session supersedes the previous one. All state lives in a [storage.Store]
// under the picker-session, picker-media and picker-sync keys.
package picker

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
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

const (
	DefaultMaxPages  = 50
	DefaultMaxWidth  = 1920
	DefaultMaxHeight = 1080

	// PollInterval and PollTimeout are the cadence callers use with [Tracker.PollStatus].
	PollInterval = 2 * time.Second
	PollTimeout  = 5 * time.Minute

	tempPrefix = ".download-"
)

// State is the outcome of a status poll.
type State string

const (
	StatePending  State = "pending"
	StateComplete State = "complete"
)

// Status is returned by [Tracker.PollStatus].
type Status struct {
	State     State  `json:"status"`
	SessionID string `json:"sessionId"`
	Count     int    `json:"count"`
}

// Tracker owns the picker session lifecycle and the local photo directory.
type Tracker struct {
	kv       storage.Store
	photos   *services.PhotosClient
	tokens   services.TokenSource
	cache    *cache.Cache
	dir      string
	maxPages int
	width    int
	height   int
	workers  int
	progress chan<- tasks.ProgressUpdate
	now      func() time.Time
	logger   *log.Logger

	// syncMu serializes syncs so two runs never race on the same files.
	syncMu sync.Mutex
}

// Opts contains dependencies for [New].
type Opts struct {
	Store    storage.Store
	Photos   *services.PhotosClient
	Tokens   services.TokenSource
	Cache    *cache.Cache
	Config   shared.PhotosConfig
	// Dir is the directory synced photos are written to.
	Dir      string
	// Progress receives one update per download and removal during a sync.
	Progress chan<- tasks.ProgressUpdate
	Now      func() time.Time
	Logger   *log.Logger
}

func New(opts Opts) *Tracker {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Photos == nil {
		opts.Photos = services.NewPhotosClient(services.PhotosClientOpts{Logger: opts.Logger})
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(opts.Now)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Tracker{
		kv:       opts.Store,
		photos:   opts.Photos,
		tokens:   opts.Tokens,
		cache:    opts.Cache,
		dir:      opts.Dir,
		maxPages: cmp.Or(opts.Config.MaxPages, DefaultMaxPages),
		width:    cmp.Or(opts.Config.MaxWidth, DefaultMaxWidth),
		height:   cmp.Or(opts.Config.MaxHeight, DefaultMaxHeight),
		workers:  cmp.Or(opts.Config.Workers, tasks.DefaultWorkers),
		progress: opts.Progress,
		now:      opts.Now,
		logger:   opts.Logger.With("component", "picker"),
	}
}

// Dir returns the photo directory.
func (t *Tracker) Dir() string { return t.dir }

func (t *Tracker) token(ctx context.Context) (string, error) {
	if t.tokens == nil {
		return "", fmt.Errorf("%w: google", shared.ErrNotAuthenticated)
	}
	tok, err := t.tokens.GetValidToken(ctx, credentials.Google)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return tok.AccessToken, nil
}

// load decodes key into v, reporting false when the key is absent.
func (t *Tracker) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := t.kv.Get(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return true, nil
}

func (t *Tracker) save(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return t.kv.Set(ctx, key, data)
}

// Session returns the persisted session or an error wrapping [shared.ErrNoSession].
func (t *Tracker) Session(ctx context.Context) (*models.PickerSession, error) {
	var s models.PickerSession
	ok, err := t.load(ctx, storage.KeyPickerSession, &s)
	if err != nil {
		return nil, err
	}
	if !ok || s.SessionID == "" {
		return nil, shared.ErrNoSession
	}
	return &s, nil
}

// Media returns the items fetched for the last completed session.
func (t *Tracker) Media(ctx context.Context) (*models.PickerMedia, error) {
	var m models.PickerMedia
	ok, err := t.load(ctx, storage.KeyPickerMedia, &m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no picked media", shared.ErrNoSession)
	}
	return &m, nil
}

// LastSync returns the last recorded sync, or nil if photos were never synced.
func (t *Tracker) LastSync(ctx context.Context) (*models.SyncState, error) {
	var s models.SyncState
	ok, err := t.load(ctx, storage.KeyPickerSync, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// CreateSession starts a picker session, replacing any previous one.
func (t *Tracker) CreateSession(ctx context.Context) (*models.PickerSession, error) {
	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := t.photos.CreateSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create picker session: %w", err)
	}

	session := &models.PickerSession{
		SessionID: remote.ID,
		PickerURI: remote.PickerURI,
		CreatedAt: t.now().UTC(),
	}
	if err := t.save(ctx, storage.KeyPickerSession, session); err != nil {
		return nil, err
	}

	t.logger.Info("picker session created", "session_id", session.SessionID)
	return session, nil
}

// PollStatus checks whether the user has finished picking. On the first poll that sees
// a completed session the picked items are fetched and persisted; later polls report
// the stored count without calling Google.
func (t *Tracker) PollStatus(ctx context.Context) (*Status, error) {
	session, err := t.Session(ctx)
	if err != nil {
		return nil, err
	}

	if session.CompletedAt != nil {
		count := 0
		if media, err := t.Media(ctx); err == nil && media.SessionID == session.SessionID {
			count = len(media.Items)
		}
		return &Status{State: StateComplete, SessionID: session.SessionID, Count: count}, nil
	}

	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := t.photos.GetSession(ctx, token, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to poll picker session: %w", err)
	}
	if !remote.MediaItemsSet {
		return &Status{State: StatePending, SessionID: session.SessionID}, nil
	}

	items, err := t.fetchItems(ctx, token, session.SessionID)
	if err != nil {
		return nil, err
	}

	media := models.PickerMedia{SessionID: session.SessionID, Items: items, FetchedAt: t.now().UTC()}
	if err := t.save(ctx, storage.KeyPickerMedia, media); err != nil {
		return nil, err
	}

	completed := t.now().UTC()
	session.MediaItemsSet = true
	session.CompletedAt = &completed
	if err := t.save(ctx, storage.KeyPickerSession, session); err != nil {
		return nil, err
	}

	if err := t.photos.DeleteSession(ctx, token, session.SessionID); err != nil {
		t.logger.Warn("failed to release picker session", "session_id", session.SessionID, "error", err)
	}

	t.logger.Info("picker session complete", "session_id", session.SessionID, "items", len(items))
	return &Status{State: StateComplete, SessionID: session.SessionID, Count: len(items)}, nil
}

// fetchItems pages through a session's media items, giving up after maxPages pages.
func (t *Tracker) fetchItems(ctx context.Context, token, sessionID string) ([]models.PickerMediaItem, error) {
	items := []models.PickerMediaItem{}
	pageToken := ""

	for range t.maxPages {
		page, err := t.photos.ListMediaItems(ctx, token, sessionID, pageToken)
		if err != nil {
			return nil, fmt.Errorf("failed to list picked media: %w", err)
		}

		for _, m := range page.MediaItems {
			items = append(items, models.PickerMediaItem{
				ID:       m.ID,
				MimeType: m.MediaFile.MimeType,
				BaseURL:  m.MediaFile.BaseURL,
				Filename: m.MediaFile.Filename,
			})
		}

		if page.NextPageToken == "" {
			return items, nil
		}
		pageToken = page.NextPageToken
	}

	return nil, fmt.Errorf("%w: session %s exceeded %d pages", shared.ErrTooManyPages, sessionID, t.maxPages)
}

// FileName returns the local file name for a media item id.
func FileName(id string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	return clean + ".jpg"
}

func eligible(item models.PickerMediaItem) bool {
	return item.BaseURL != "" && !strings.HasPrefix(item.MimeType, "video/")
}

// SyncSelectedMedia mirrors the picked images into the photo directory.
//
// Missing images are downloaded; files for items no longer picked are removed.
// A failed item is logged and counted without aborting the run.
func (t *Tracker) SyncSelectedMedia(ctx context.Context) (*models.SyncState, error) {
	t.syncMu.Lock()
	defer t.syncMu.Unlock()

	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}

	media, err := t.Media(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}

	existing, err := t.localFiles()
	if err != nil {
		return nil, err
	}

	state := &models.SyncState{}
	wanted := make(map[string]bool, len(media.Items))
	var pending []models.PickerMediaItem

	for _, item := range media.Items {
		if !eligible(item) {
			t.logger.Debug("skipping media item", "id", item.ID, "mime_type", item.MimeType)
			continue
		}

		name := FileName(item.ID)
		wanted[name] = true
		if existing[name] {
			state.Skipped++
			continue
		}
		pending = append(pending, item)
	}

	downloads, err := tasks.Run(ctx, pending, tasks.Opts{
		Phase:    tasks.Download,
		Workers:  t.workers,
		Progress: t.progress,
		Label:    func(job any) string { return FileName(job.(models.PickerMediaItem).ID) },
	}, func(ctx context.Context, item models.PickerMediaItem) error {
		return t.download(ctx, token, item, FileName(item.ID))
	})
	if err != nil {
		return nil, err
	}
	for _, r := range downloads {
		if r.Err != nil {
			t.logger.Warn("failed to download photo", "id", r.Job.ID, "error", r.Err)
		}
	}
	state.Failed = tasks.Failed(downloads)
	state.Downloaded = len(downloads) - state.Failed

	var stale []string
	for name := range existing {
		if !wanted[name] {
			stale = append(stale, name)
		}
	}
	slices.Sort(stale)

	removals, err := tasks.Run(ctx, stale, tasks.Opts{
		Phase:    tasks.Remove,
		Workers:  1,
		Progress: t.progress,
	}, func(_ context.Context, name string) error {
		if err := os.Remove(filepath.Join(t.dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range removals {
		if r.Err != nil {
			t.logger.Warn("failed to remove stale photo", "file", r.Job, "error", r.Err)
		}
	}
	removeFailed := tasks.Failed(removals)
	state.Failed += removeFailed
	state.Removed = len(removals) - removeFailed

	t.cache.Invalidate(cache.PhotosSynced)

	state.LastSyncTime = t.now().UTC()
	if err := t.save(ctx, storage.KeyPickerSync, state); err != nil {
		return nil, err
	}

	t.logger.Info("photo sync complete",
		"downloaded", state.Downloaded, "skipped", state.Skipped, "removed", state.Removed, "failed", state.Failed)
	return state, nil
}

// download writes one image through a temp file so a partial download never
// shows up under its final name.
func (t *Tracker) download(ctx context.Context, token string, item models.PickerMediaItem, name string) error {
	tmp, err := os.CreateTemp(t.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := t.photos.Download(ctx, token, item.BaseURL, t.width, t.height, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write photo: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(t.dir, name))
}

// localFiles returns the synced photo names currently on disk.
func (t *Tracker) localFiles() (map[string]bool, error) {
	entries, err := os.ReadDir(t.dir)
	if os.IsNotExist(err) {
		return map[string]bool{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read photo directory: %w", err)
	}

	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files[e.Name()] = true
	}
	return files, nil
}

// Photos lists the synced photo file names in order.
func (t *Tracker) Photos(ctx context.Context) ([]string, error) {
	return cache.Fetch(ctx, t.cache, cache.PhotosListKey, cache.PhotosListTTL, func(context.Context) ([]string, error) {
		files, err := t.localFiles()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		slices.Sort(names)
		return names, nil
	})
}
