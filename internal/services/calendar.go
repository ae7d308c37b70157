// Google Calendar client
//
// API reference: https://developers.google.com/calendar/api/v3/reference/events/list
package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/credentials"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
)

const (
	calendarBaseURL = "https://www.googleapis.com/calendar/v3"

	// MockDays and MockEventsPerDay size the placeholder calendar.
	MockDays         = 14
	MockEventsPerDay = 8
)

type calendarDateTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

// value prefers the timed field and falls back to the all-day date.
func (d calendarDateTime) value() (string, bool) {
	if d.DateTime != "" {
		return d.DateTime, false
	}
	return d.Date, d.Date != ""
}

type calendarEvent struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Summary     string           `json:"summary"`
	Location    string           `json:"location"`
	Description string           `json:"description"`
	Start       calendarDateTime `json:"start"`
	End         calendarDateTime `json:"end"`
}

type calendarEventsPage struct {
	Items         []calendarEvent `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
}

type calendarListPage struct {
	Items []struct {
		ID              string `json:"id"`
		Summary         string `json:"summary"`
		SummaryOverride string `json:"summaryOverride"`
		Primary         bool   `json:"primary"`
		BackgroundColor string `json:"backgroundColor"`
	} `json:"items"`
}

// CalendarService merges events across the configured Google calendars.
//
// The calendar widget is always visible, so Events never fails: without credentials,
// without a token, or when every calendar fetch fails it returns mock events.
type CalendarService struct {
	client      *Client
	tokens      TokenSource
	cache       *cache.Cache
	calendarIDs []string
	configured  bool
	now         func() time.Time
	logger      *log.Logger
}

// CalendarOpts contains dependencies for [NewCalendarService].
type CalendarOpts struct {
	Config  shared.GoogleConfig
	Tokens  TokenSource
	Cache   *cache.Cache
	Client  *Client
	Timeout time.Duration
	Now     func() time.Time
	Logger  *log.Logger
	BaseURL string
}

func NewCalendarService(opts CalendarOpts) *CalendarService {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Client == nil {
		opts.Client = NewClient(ClientOpts{
			Name:      "calendar",
			BaseURL:   cmp.Or(opts.BaseURL, calendarBaseURL),
			RateLimit: 5,
			Burst:     5,
			Logger:    opts.Logger,
			Timeout:   opts.Timeout,
		})
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(opts.Now)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ids := opts.Config.CalendarIDs
	if len(ids) == 0 {
		ids = []string{"primary"}
	}

	return &CalendarService{
		client:      opts.Client,
		tokens:      opts.Tokens,
		cache:       opts.Cache,
		calendarIDs: ids,
		configured:  opts.Config.Configured(),
		now:         opts.Now,
		logger:      opts.Logger.With("component", "calendar"),
	}
}

func (s *CalendarService) Name() string     { return "Calendar" }
func (s *CalendarService) Configured() bool { return s.configured }

// Window returns the default query window: the start of today through [MockDays] days ahead.
// Both bounds stay fixed for the whole day.
func (s *CalendarService) Window() (time.Time, time.Time) {
	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day, day.AddDate(0, 0, MockDays)
}

// Events returns events overlapping [timeMin, timeMax) sorted by start.
// A zero timeMin defaults to the start of [CalendarService.Window]; a zero timeMax
// defaults to [MockDays] days after timeMin. The resolved window must not be empty.
func (s *CalendarService) Events(ctx context.Context, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	if timeMin.IsZero() {
		timeMin, _ = s.Window()
	}
	if timeMax.IsZero() {
		timeMax = timeMin.AddDate(0, 0, MockDays)
	}
	if !timeMax.After(timeMin) {
		return nil, fmt.Errorf("%w: timeMax must be after timeMin", shared.ErrInvalidInput)
	}

	if !s.configured {
		return MockEvents(s.now()), nil
	}

	key := cache.EventsKey(timeMin, timeMax, s.calendarIDs)
	events, err := cache.Fetch(ctx, s.cache, key, cache.EventsTTL, func(ctx context.Context) ([]models.CalendarEvent, error) {
		return s.fetchEvents(ctx, timeMin, timeMax)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			s.logger.Debug("google not connected, serving mock events")
		} else {
			s.logger.Warn("calendar fetch failed, serving mock events", "error", err)
		}
		return MockEvents(s.now()), nil
	}
	return events, nil
}

func (s *CalendarService) fetchEvents(ctx context.Context, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	token, err := accessToken(ctx, s.tokens, credentials.Google)
	if err != nil {
		return nil, err
	}

	var (
		merged   []models.CalendarEvent
		failures int
		lastErr  error
	)
	for _, id := range s.calendarIDs {
		events, err := s.calendarEvents(ctx, token, id, timeMin, timeMax)
		if err != nil {
			s.logger.Warn("skipping calendar", "calendar_id", id, "error", err)
			failures++
			lastErr = err
			continue
		}
		merged = append(merged, events...)
	}
	if failures == len(s.calendarIDs) {
		return nil, lastErr
	}

	SortEvents(merged)
	return merged, nil
}

// calendarEvents pages through one calendar's events.
func (s *CalendarService) calendarEvents(ctx context.Context, token, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	query := url.Values{
		"timeMin":      {timeMin.UTC().Format(time.RFC3339)},
		"timeMax":      {timeMax.UTC().Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {"250"},
	}

	var events []models.CalendarEvent
	for range 20 {
		var page calendarEventsPage
		req := request{path: "/calendars/" + url.PathEscape(calendarID) + "/events", query: query, bearer: token}
		if err := s.client.do(ctx, req, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			events = append(events, normalizeEvent(calendarID, item))
		}

		if page.NextPageToken == "" {
			break
		}
		query.Set("pageToken", page.NextPageToken)
	}
	return events, nil
}

func normalizeEvent(calendarID string, e calendarEvent) models.CalendarEvent {
	start, allDay := e.Start.value()
	end, _ := e.End.value()
	summary := e.Summary
	if summary == "" {
		summary = "(No title)"
	}
	return models.CalendarEvent{
		ID:          e.ID,
		CalendarID:  calendarID,
		Summary:     summary,
		Start:       start,
		End:         end,
		Location:    e.Location,
		Description: e.Description,
		AllDay:      allDay,
	}
}

// SortEvents orders events by start time, then summary.
func SortEvents(events []models.CalendarEvent) {
	slices.SortStableFunc(events, func(a, b models.CalendarEvent) int {
		return cmp.Or(a.StartTime().Compare(b.StartTime()), cmp.Compare(a.Summary, b.Summary))
	})
}

// Calendars lists the user's calendars. Unconfigured or disconnected accounts get the primary calendar only.
func (s *CalendarService) Calendars(ctx context.Context) ([]models.Calendar, error) {
	fallback := []models.Calendar{{ID: "primary", Summary: "Primary", Primary: true}}
	if !s.configured {
		return fallback, nil
	}

	return cache.Fetch(ctx, s.cache, cache.CalendarsKey, cache.CalendarsTTL, func(ctx context.Context) ([]models.Calendar, error) {
		token, err := accessToken(ctx, s.tokens, credentials.Google)
		if err != nil {
			return nil, err
		}

		var page calendarListPage
		if err := s.client.do(ctx, request{path: "/users/me/calendarList", bearer: token}, &page); err != nil {
			return nil, err
		}

		calendars := make([]models.Calendar, 0, len(page.Items))
		for _, item := range page.Items {
			calendars = append(calendars, models.Calendar{
				ID:      item.ID,
				Summary: cmp.Or(item.SummaryOverride, item.Summary),
				Primary: item.Primary,
				Color:   item.BackgroundColor,
			})
		}
		return calendars, nil
	})
}

var mockTitles = [MockEventsPerDay]string{
	"Breakfast", "School Drop-off", "Team Standup", "Lunch",
	"Dentist", "Soccer Practice", "Dinner", "Family Movie",
}

var mockHours = [MockEventsPerDay]int{7, 8, 9, 12, 14, 16, 18, 20}

// MockEvents returns [MockEventsPerDay] placeholder events per day for [MockDays] days from now's date.
// The result depends only on now.
func MockEvents(now time.Time) []models.CalendarEvent {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	events := make([]models.CalendarEvent, 0, MockDays*MockEventsPerDay)

	for d := range MockDays {
		date := day.AddDate(0, 0, d)
		for i := range MockEventsPerDay {
			start := date.Add(time.Duration(mockHours[i]) * time.Hour)
			events = append(events, models.CalendarEvent{
				ID:         "mock-" + date.Format(models.DateLayout) + "-" + strconv.Itoa(i),
				CalendarID: "mock",
				Summary:    mockTitles[i],
				Start:      start.Format(time.RFC3339),
				End:        start.Add(time.Hour).Format(time.RFC3339),
			})
		}
	}
	return events
}
