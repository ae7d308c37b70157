// ESPN site API client
//
// The site API is undocumented; season labelling differs between sports and years,
// so schedules are fetched with a fallback chain per team.
package services

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
)

const espnBaseURL = "https://site.api.espn.com/apis/site/v2/sports"

// ESPN dates omit seconds ("2026-03-01T19:30Z").
var espnDateLayouts = []string{"2006-01-02T15:04Z07:00", time.RFC3339}

type espnCompetitor struct {
	HomeAway string `json:"homeAway"`
	Team     struct {
		DisplayName  string `json:"displayName"`
		Abbreviation string `json:"abbreviation"`
	} `json:"team"`
	Score json.RawMessage `json:"score"`
}

type espnEvent struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Name         string `json:"name"`
	ShortName    string `json:"shortName"`
	Competitions []struct {
		Venue struct {
			FullName string `json:"fullName"`
		} `json:"venue"`
		Status struct {
			Type struct {
				ShortDetail string `json:"shortDetail"`
				Description string `json:"description"`
			} `json:"type"`
		} `json:"status"`
		Competitors []espnCompetitor `json:"competitors"`
	} `json:"competitions"`
}

type espnSchedule struct {
	Events []espnEvent `json:"events"`
}

type espnTeam struct {
	Team struct {
		NextEvent []espnEvent `json:"nextEvent"`
	} `json:"team"`
}

// SportsService lists games for the configured teams.
type SportsService struct {
	client *Client
	teams  []shared.TeamConfig
	cache  *cache.Cache
	now    func() time.Time
	logger *log.Logger
}

// SportsOpts contains dependencies for [NewSportsService].
type SportsOpts struct {
	Config  shared.SportsConfig
	Cache   *cache.Cache
	Client  *Client
	Timeout time.Duration
	Now     func() time.Time
	Logger  *log.Logger
	BaseURL string
}

func NewSportsService(opts SportsOpts) *SportsService {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Client == nil {
		opts.Client = NewClient(ClientOpts{
			Name:      "espn",
			BaseURL:   cmp.Or(opts.BaseURL, espnBaseURL),
			RateLimit: 2,
			Burst:     4,
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

	return &SportsService{
		client: opts.Client,
		teams:  opts.Config.Teams,
		cache:  opts.Cache,
		now:    opts.Now,
		logger: opts.Logger.With("component", "sports"),
	}
}

func (s *SportsService) Name() string     { return "Sports" }
func (s *SportsService) Configured() bool { return len(s.teams) > 0 }

func teamKey(t shared.TeamConfig) string {
	return t.Sport + "/" + t.League + "/" + t.Team
}

// Games returns every followed team's games, deduplicated by event id and sorted by date.
// A team whose every tier fails is skipped; the call fails only if all teams fail.
func (s *SportsService) Games(ctx context.Context) ([]models.Game, error) {
	if len(s.teams) == 0 {
		return []models.Game{}, nil
	}

	keys := make([]string, 0, len(s.teams))
	for _, t := range s.teams {
		keys = append(keys, teamKey(t))
	}

	return cache.Fetch(ctx, s.cache, cache.SportsKey(keys), cache.SportsTTL, func(ctx context.Context) ([]models.Game, error) {
		var (
			all     []models.Game
			lastErr error
			failed  int
		)
		for _, team := range s.teams {
			games, err := s.TeamGames(ctx, team)
			if err != nil {
				s.logger.Warn("team schedule unavailable", "team", teamKey(team), "error", err)
				lastErr = err
				failed++
				continue
			}
			all = append(all, games...)
		}
		if failed == len(s.teams) {
			return nil, lastErr
		}
		return DedupeGames(all), nil
	})
}

// TeamGames tries, in order, the seasoned schedule, the unseasoned schedule, and the
// team's next event. The first tier with any events wins.
func (s *SportsService) TeamGames(ctx context.Context, team shared.TeamConfig) ([]models.Game, error) {
	if team.Sport == "" || team.League == "" || team.Team == "" {
		return nil, fmt.Errorf("%w: team needs sport, league and team", shared.ErrInvalidConfig)
	}

	base := "/" + url.PathEscape(team.Sport) + "/" + url.PathEscape(team.League) + "/teams/" + url.PathEscape(team.Team)
	season := url.Values{"season": {strconv.Itoa(s.now().Year())}}

	tiers := []struct {
		name  string
		fetch func() ([]espnEvent, error)
	}{
		{"seasoned", func() ([]espnEvent, error) { return s.schedule(ctx, base+"/schedule", season) }},
		{"unseasoned", func() ([]espnEvent, error) { return s.schedule(ctx, base+"/schedule", nil) }},
		{"next event", func() ([]espnEvent, error) { return s.nextEvent(ctx, base) }},
	}

	var lastErr error
	for _, tier := range tiers {
		events, err := tier.fetch()
		if err != nil {
			lastErr = err
			s.logger.Debug("schedule tier failed", "team", teamKey(team), "tier", tier.name, "error", err)
			continue
		}
		if len(events) == 0 {
			continue
		}

		games := make([]models.Game, 0, len(events))
		for _, e := range events {
			if g, ok := toGame(e, team); ok {
				games = append(games, g)
			}
		}
		if len(games) > 0 {
			s.logger.Debug("schedule tier used", "team", teamKey(team), "tier", tier.name, "games", len(games))
			return games, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return []models.Game{}, nil
}

func (s *SportsService) schedule(ctx context.Context, path string, query url.Values) ([]espnEvent, error) {
	var sched espnSchedule
	if err := s.client.do(ctx, request{path: path, query: query}, &sched); err != nil {
		return nil, err
	}
	return sched.Events, nil
}

func (s *SportsService) nextEvent(ctx context.Context, path string) ([]espnEvent, error) {
	var t espnTeam
	if err := s.client.do(ctx, request{path: path}, &t); err != nil {
		return nil, err
	}
	return t.Team.NextEvent, nil
}

func parseESPNDate(v string) (time.Time, bool) {
	for _, layout := range espnDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// score reads a competitor score, which is a string in schedules and an object elsewhere.
func score(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		DisplayValue string `json:"displayValue"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.DisplayValue
	}
	return strings.Trim(string(raw), `"`)
}

func toGame(e espnEvent, team shared.TeamConfig) (models.Game, bool) {
	date, ok := parseESPNDate(e.Date)
	if e.ID == "" || !ok {
		return models.Game{}, false
	}

	g := models.Game{
		ID:        e.ID,
		Name:      e.Name,
		ShortName: e.ShortName,
		Date:      date,
		Sport:     team.Sport,
		League:    team.League,
		Team:      team.Team,
	}

	if len(e.Competitions) > 0 {
		c := e.Competitions[0]
		g.Venue = c.Venue.FullName
		g.Status = cmp.Or(c.Status.Type.ShortDetail, c.Status.Type.Description)
		for _, comp := range c.Competitors {
			switch comp.HomeAway {
			case "home":
				g.Home = comp.Team.DisplayName
				g.HomeScore = score(comp.Score)
			case "away":
				g.Away = comp.Team.DisplayName
				g.AwayScore = score(comp.Score)
			}
		}
	}
	return g, true
}

// DedupeGames drops repeated event ids, keeping the first, and sorts ascending by date.
func DedupeGames(games []models.Game) []models.Game {
	seen := make(map[string]bool, len(games))
	out := make([]models.Game, 0, len(games))
	for _, g := range games {
		if seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		out = append(out, g)
	}

	slices.SortStableFunc(out, func(a, b models.Game) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
	return out
}
