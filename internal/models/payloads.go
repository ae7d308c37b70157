package models

import "time"

// CalendarEvent is a normalized Google Calendar event.
//
// Start and End carry an RFC 3339 date-time, or a YYYY-MM-DD date for all-day events.
type CalendarEvent struct {
	ID          string `json:"id"`
	CalendarID  string `json:"calendarId"`
	Summary     string `json:"summary"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	AllDay      bool   `json:"allDay"`
}

// StartTime parses Start for sorting. Unparseable values sort first.
func (e CalendarEvent) StartTime() time.Time {
	if t, err := time.Parse(time.RFC3339, e.Start); err == nil {
		return t
	}
	if t, err := time.Parse(DateLayout, e.Start); err == nil {
		return t
	}
	return time.Time{}
}

type Calendar struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
	Color   string `json:"color,omitempty"`
}

// Weather is the current conditions widget payload.
type Weather struct {
	Location    string        `json:"location"`
	Temperature float64       `json:"temperature"`
	FeelsLike   float64       `json:"feelsLike"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Humidity    int           `json:"humidity"`
	WindSpeed   float64       `json:"windSpeed"`
	Units       string        `json:"units"`
	Forecast    []ForecastDay `json:"forecast"`
	Mock        bool          `json:"mock,omitempty"`
}

type ForecastDay struct {
	Date        string  `json:"date"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// HAEntity is a Home Assistant entity state.
type HAEntity struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Name        string         `json:"name"`
	Domain      string         `json:"domain"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed,omitempty"`
}

type HAArea struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Playback is the Spotify player state.
type Playback struct {
	Configured bool    `json:"configured"`
	Connected  bool    `json:"connected"`
	IsPlaying  bool    `json:"isPlaying"`
	Track      string  `json:"track,omitempty"`
	Artist     string  `json:"artist,omitempty"`
	Album      string  `json:"album,omitempty"`
	AlbumArt   string  `json:"albumArt,omitempty"`
	ProgressMs int     `json:"progressMs"`
	DurationMs int     `json:"durationMs"`
	Device     *Device `json:"device,omitempty"`
	Shuffle    bool    `json:"shuffle"`
	Repeat     string  `json:"repeat,omitempty"`
}

type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"isActive"`
	VolumePercent int    `json:"volumePercent"`
}

type MealieRecipe struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	TotalTime   string   `json:"totalTime,omitempty"`
	Servings    string   `json:"servings,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Steps       []string `json:"steps,omitempty"`
}

type MealieMealPlanEntry struct {
	ID        string        `json:"id"`
	Date      string        `json:"date"`
	EntryType string        `json:"entryType"`
	Title     string        `json:"title,omitempty"`
	Recipe    *MealieRecipe `json:"recipe,omitempty"`
}

// Game is a scheduled or finished sports event for a followed team.
type Game struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"shortName"`
	Date      time.Time `json:"date"`
	Sport     string    `json:"sport"`
	League    string    `json:"league"`
	Team      string    `json:"team"`
	Status    string    `json:"status,omitempty"`
	Venue     string    `json:"venue,omitempty"`
	Home      string    `json:"home,omitempty"`
	Away      string    `json:"away,omitempty"`
	HomeScore string    `json:"homeScore,omitempty"`
	AwayScore string    `json:"awayScore,omitempty"`
}

// PickerSession is a pending or finished Google Photos Picker session.
type PickerSession struct {
	SessionID     string     `json:"sessionId"`
	PickerURI     string     `json:"pickerUri"`
	CreatedAt     time.Time  `json:"createdAt"`
	MediaItemsSet bool       `json:"mediaItemsSet"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

type PickerMediaItem struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
	BaseURL  string `json:"baseUrl"`
	Filename string `json:"filename,omitempty"`
}

// PickerMedia is the item list fetched for a completed session.
type PickerMedia struct {
	SessionID string            `json:"sessionId"`
	Items     []PickerMediaItem `json:"items"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// SyncState records the last media sync.
type SyncState struct {
	LastSyncTime time.Time `json:"lastSyncTime"`
	Downloaded   int       `json:"downloaded"`
	Skipped      int       `json:"skipped"`
	Removed      int       `json:"removed"`
	Failed       int       `json:"failed"`
}
