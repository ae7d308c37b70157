// Google Photos Picker API client
//
// API reference: https://developers.google.com/photos/picker/reference/rest
package services

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/shared"
)

const (
	photosPickerBaseURL = "https://photospicker.googleapis.com/v1"

	// MediaItemsPageSize is the page size requested from the mediaItems endpoint.
	MediaItemsPageSize = 100
)

// PickerSession is the session resource returned by the Picker API.
type PickerSession struct {
	ID            string `json:"id"`
	PickerURI     string `json:"pickerUri"`
	MediaItemsSet bool   `json:"mediaItemsSet"`
	ExpireTime    string `json:"expireTime"`
	PollingConfig struct {
		PollInterval string `json:"pollInterval"`
		TimeoutIn    string `json:"timeoutIn"`
	} `json:"pollingConfig"`
}

// PickedMediaItem is one selected photo or video.
type PickedMediaItem struct {
	ID         string `json:"id"`
	CreateTime string `json:"createTime"`
	Type       string `json:"type"`
	MediaFile  struct {
		BaseURL  string `json:"baseUrl"`
		MimeType string `json:"mimeType"`
		Filename string `json:"filename"`
	} `json:"mediaFile"`
}

// MediaItemsPage is one page of picked media items.
type MediaItemsPage struct {
	MediaItems    []PickedMediaItem `json:"mediaItems"`
	NextPageToken string            `json:"nextPageToken"`
}

// PhotosClient wraps the raw Picker API calls. Callers supply the access token.
type PhotosClient struct {
	client *Client
}

// PhotosClientOpts contains dependencies for [NewPhotosClient].
type PhotosClientOpts struct {
	BaseURL string
	Client  *Client
	Timeout time.Duration
	Logger  *log.Logger
}

func NewPhotosClient(opts PhotosClientOpts) *PhotosClient {
	c := opts.Client
	if c == nil {
		c = NewClient(ClientOpts{
			Name:      "photos",
			BaseURL:   cmp.Or(opts.BaseURL, photosPickerBaseURL),
			RateLimit: 5,
			Burst:     10,
			Logger:    opts.Logger,
			Timeout:   opts.Timeout,
		})
	}
	return &PhotosClient{client: c}
}

// CreateSession starts a new picker session.
func (p *PhotosClient) CreateSession(ctx context.Context, token string) (*PickerSession, error) {
	var session PickerSession
	req := request{method: "POST", path: "/sessions", body: map[string]any{}, bearer: token}
	if err := p.client.do(ctx, req, &session); err != nil {
		return nil, err
	}
	if session.ID == "" || session.PickerURI == "" {
		return nil, fmt.Errorf("%w: picker session response missing id or pickerUri", shared.ErrUpstreamUnavailable)
	}
	return &session, nil
}

// GetSession fetches a session's state.
func (p *PhotosClient) GetSession(ctx context.Context, token, sessionID string) (*PickerSession, error) {
	var session PickerSession
	req := request{path: "/sessions/" + url.PathEscape(sessionID), bearer: token}
	if err := p.client.do(ctx, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListMediaItems fetches one page of a completed session's items.
func (p *PhotosClient) ListMediaItems(ctx context.Context, token, sessionID, pageToken string) (*MediaItemsPage, error) {
	query := url.Values{
		"sessionId": {sessionID},
		"pageSize":  {strconv.Itoa(MediaItemsPageSize)},
	}
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	var page MediaItemsPage
	if err := p.client.do(ctx, request{path: "/mediaItems", query: query, bearer: token}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteSession releases a session upstream once its items have been fetched.
func (p *PhotosClient) DeleteSession(ctx context.Context, token, sessionID string) error {
	return p.client.do(ctx, request{method: "DELETE", path: "/sessions/" + url.PathEscape(sessionID), bearer: token}, nil)
}

// Download streams the image at baseURL, scaled to fit width x height, into w.
func (p *PhotosClient) Download(ctx context.Context, token, baseURL string, width, height int, w io.Writer) (int64, error) {
	src := baseURL
	if width > 0 && height > 0 {
		src = fmt.Sprintf("%s=w%d-h%d", baseURL, width, height)
	}

	resp, err := p.client.send(ctx, request{
		path:   src,
		bearer: token,
		header: http.Header{"Accept": {"image/*"}},
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: download interrupted: %v", shared.ErrUpstreamUnavailable, err)
	}
	return n, nil
}
