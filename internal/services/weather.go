// OpenWeather client
//
// API reference: https://openweathermap.org/current, https://openweathermap.org/forecast5
package services

import (
	"cmp"
	"context"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
)

const (
	weatherBaseURL = "https://api.openweathermap.org/data/2.5"
	forecastDays   = 5
)

type owmCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
}

type owmWind struct {
	Speed float64 `json:"speed"`
}

type owmCurrent struct {
	Name     string         `json:"name"`
	Main     owmMain        `json:"main"`
	Weather  []owmCondition `json:"weather"`
	Wind     owmWind        `json:"wind"`
	Timezone int            `json:"timezone"`
}

type owmForecast struct {
	List []struct {
		Dt      int64          `json:"dt"`
		Main    owmMain        `json:"main"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

// WeatherService reports current conditions and a daily forecast.
//
// Weather is a passive widget: without an API key, or when OpenWeather fails, it serves mock data.
type WeatherService struct {
	client *Client
	cfg    shared.WeatherConfig
	cache  *cache.Cache
	now    func() time.Time
	logger *log.Logger
}

// WeatherOpts contains dependencies for [NewWeatherService].
type WeatherOpts struct {
	Config  shared.WeatherConfig
	Cache   *cache.Cache
	Client  *Client
	Timeout time.Duration
	Now     func() time.Time
	Logger  *log.Logger
	BaseURL string
}

func NewWeatherService(opts WeatherOpts) *WeatherService {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Client == nil {
		opts.Client = NewClient(ClientOpts{
			Name:      "weather",
			BaseURL:   cmp.Or(opts.BaseURL, weatherBaseURL),
			RateLimit: 1,
			Burst:     2,
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
	opts.Config.Units = cmp.Or(opts.Config.Units, "imperial")

	return &WeatherService{
		client: opts.Client,
		cfg:    opts.Config,
		cache:  opts.Cache,
		now:    opts.Now,
		logger: opts.Logger.With("component", "weather"),
	}
}

func (w *WeatherService) Name() string     { return "Weather" }
func (w *WeatherService) Configured() bool { return w.cfg.Configured() }

// Current returns conditions for the configured location. It never fails.
func (w *WeatherService) Current(ctx context.Context) models.Weather {
	if !w.Configured() {
		return MockWeather(w.cfg, w.now())
	}

	key := cache.WeatherKey(w.cfg.Latitude, w.cfg.Longitude, w.cfg.Units)
	weather, err := cache.Fetch(ctx, w.cache, key, cache.WeatherTTL, w.fetch)
	if err != nil {
		w.logger.Warn("weather fetch failed, serving mock data", "error", err)
		return MockWeather(w.cfg, w.now())
	}
	return weather
}

func (w *WeatherService) query() url.Values {
	return url.Values{
		"lat":   {strconv.FormatFloat(w.cfg.Latitude, 'f', 4, 64)},
		"lon":   {strconv.FormatFloat(w.cfg.Longitude, 'f', 4, 64)},
		"units": {w.cfg.Units},
		"appid": {w.cfg.APIKey},
	}
}

func (w *WeatherService) fetch(ctx context.Context) (models.Weather, error) {
	var current owmCurrent
	if err := w.client.do(ctx, request{path: "/weather", query: w.query()}, &current); err != nil {
		return models.Weather{}, err
	}

	weather := models.Weather{
		Location:    cmp.Or(w.cfg.Location, current.Name),
		Temperature: round1(current.Main.Temp),
		FeelsLike:   round1(current.Main.FeelsLike),
		Humidity:    current.Main.Humidity,
		WindSpeed:   round1(current.Wind.Speed),
		Units:       w.cfg.Units,
		Forecast:    []models.ForecastDay{},
	}
	if len(current.Weather) > 0 {
		weather.Description = current.Weather[0].Description
		weather.Icon = current.Weather[0].Icon
	}

	var forecast owmForecast
	if err := w.client.do(ctx, request{path: "/forecast", query: w.query()}, &forecast); err != nil {
		w.logger.Warn("forecast fetch failed, serving current conditions only", "error", err)
		return weather, nil
	}
	weather.Forecast = dailyForecast(forecast)
	return weather, nil
}

// dailyForecast folds 3-hour forecast slots into local days: high and low across the day,
// description and icon from the slot closest to noon.
func dailyForecast(f owmForecast) []models.ForecastDay {
	loc := time.FixedZone("city", f.City.Timezone)

	var (
		days     []models.ForecastDay
		noonDist []time.Duration
	)
	index := map[string]int{}

	for _, slot := range f.List {
		t := time.Unix(slot.Dt, 0).In(loc)
		date := t.Format(models.DateLayout)
		noon := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, loc)
		dist := t.Sub(noon).Abs()

		i, ok := index[date]
		if !ok {
			if len(days) == forecastDays {
				continue
			}
			i = len(days)
			index[date] = i
			days = append(days, models.ForecastDay{Date: date, High: slot.Main.TempMax, Low: slot.Main.TempMin})
			noonDist = append(noonDist, time.Duration(math.MaxInt64))
		}

		d := &days[i]
		d.High = max(d.High, slot.Main.TempMax)
		d.Low = min(d.Low, slot.Main.TempMin)
		if dist < noonDist[i] && len(slot.Weather) > 0 {
			noonDist[i] = dist
			d.Description = slot.Weather[0].Description
			d.Icon = slot.Weather[0].Icon
		}
	}

	for i := range days {
		days[i].High = round1(days[i].High)
		days[i].Low = round1(days[i].Low)
	}
	return nonNil(days)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// MockWeather returns placeholder conditions for the configured location.
func MockWeather(cfg shared.WeatherConfig, now time.Time) models.Weather {
	descriptions := [forecastDays]string{"clear sky", "few clouds", "light rain", "scattered clouds", "clear sky"}
	icons := [forecastDays]string{"01d", "02d", "10d", "03d", "01d"}

	forecast := make([]models.ForecastDay, forecastDays)
	for i := range forecastDays {
		forecast[i] = models.ForecastDay{
			Date:        now.AddDate(0, 0, i).Format(models.DateLayout),
			High:        float64(68 + i),
			Low:         float64(52 + i),
			Description: descriptions[i],
			Icon:        icons[i],
		}
	}

	return models.Weather{
		Location:    cmp.Or(cfg.Location, "Home"),
		Temperature: 65,
		FeelsLike:   64,
		Description: "partly cloudy",
		Icon:        "02d",
		Humidity:    55,
		WindSpeed:   6,
		Units:       cmp.Or(cfg.Units, "imperial"),
		Forecast:    forecast,
		Mock:        true,
	}
}
