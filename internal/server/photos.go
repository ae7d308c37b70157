package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/crazy3lf/colorconv"
	"github.com/go-chi/chi/v5"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/desertthunder/homeboard/internal/shared"
)

// QRForeground is the module colour of picker QR codes.
const QRForeground = "#1f2933"

// PhotoHandler serves the Google Photos picker flow and the synced slideshow files.
type PhotoHandler struct {
	deps   Deps
	logger *log.Logger
}

func (h *PhotoHandler) Routes() []Route {
	return []Route{
		{http.MethodPost, "/api/photos/picker/session", h.createSession},
		{http.MethodGet, "/api/photos/picker/status", h.status},
		{http.MethodGet, "/api/photos/picker/qr", h.qr},
		{http.MethodPost, "/api/photos/sync", h.sync},
		{http.MethodGet, "/api/photos", h.list},
		{http.MethodGet, "/photos/{name}", h.file},
	}
}

func (h *PhotoHandler) createSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.deps.Picker.CreateSession(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *PhotoHandler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.deps.Picker.PollStatus(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// qr renders the current session's picker URL as a PNG so it can be opened on a phone.
func (h *PhotoHandler) qr(w http.ResponseWriter, r *http.Request) {
	session, err := h.deps.Picker.Session(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := CreateQRCode(r.Context(), session.PickerURI, &buf); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// nopCloser lets the QR writer target a buffer it must not close.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// CreateQRCode encodes content as a PNG QR code and writes it to w.
func CreateQRCode(_ context.Context, content string, w io.Writer) error {
	fg, err := colorconv.HexToColor(QRForeground)
	if err != nil {
		return fmt.Errorf("invalid qr colour: %w", err)
	}

	code, err := qrcode.NewWith(content,
		qrcode.WithEncodingMode(qrcode.EncModeByte),
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart),
	)
	if err != nil {
		return fmt.Errorf("failed to encode qr code: %w", err)
	}

	writer := standard.NewWithWriter(nopCloser{w},
		standard.WithFgColor(fg),
		standard.WithQRWidth(12),
		standard.WithBorderWidth(20),
	)
	if err := code.Save(writer); err != nil {
		return fmt.Errorf("failed to save qr code: %w", err)
	}
	return nil
}

func (h *PhotoHandler) sync(w http.ResponseWriter, r *http.Request) {
	state, err := h.deps.Picker.SyncSelectedMedia(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type photo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (h *PhotoHandler) list(w http.ResponseWriter, r *http.Request) {
	names, err := h.deps.Picker.Photos(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	photos := make([]photo, 0, len(names))
	for _, name := range names {
		photos = append(photos, photo{Name: name, URL: "/photos/" + name})
	}
	writeJSON(w, http.StatusOK, photos)
}

// validPhotoName rejects anything that could escape the photo directory.
func validPhotoName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`) &&
		filepath.Base(name) == name
}

func (h *PhotoHandler) file(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validPhotoName(name) {
		fail(w, r, h.logger, fmt.Errorf("%w: photo %q", shared.ErrNotFound, name))
		return
	}

	path := filepath.Join(h.deps.Picker.Dir(), name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		fail(w, r, h.logger, fmt.Errorf("%w: photo %q", shared.ErrNotFound, name))
		return
	} else if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
