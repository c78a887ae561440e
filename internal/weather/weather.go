// Package weather builds the weather widget payload from OpenWeatherMap
// current conditions and forecast.
package weather

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caner-kocamaz/next-wp/internal/provider"
	"github.com/caner-kocamaz/next-wp/internal/provider/openweather"
)

// Snapshot is the /api/weather payload.
type Snapshot struct {
	Location    string        `json:"location"`
	Temperature int           `json:"temperature"`
	Condition   string        `json:"condition"`
	Humidity    int           `json:"humidity"`
	WindSpeed   int           `json:"windSpeed"`
	Forecast    []ForecastDay `json:"forecast"`
}

type ForecastDay struct {
	Day       string `json:"day"`
	High      int    `json:"high"`
	Low       int    `json:"low"`
	Condition string `json:"condition"`
}

// Outcome classifies how a snapshot was produced.
type Outcome string

const (
	OutcomeLive     Outcome = "live"
	OutcomePartial  Outcome = "partial"
	OutcomeFallback Outcome = "fallback"
)

// forecastDays is how many grouped days are returned.
const forecastDays = 5

// Fetcher is the subset of the OpenWeatherMap client used by Service.
type Fetcher interface {
	Configured() bool
	Current(ctx context.Context, city string) (*openweather.CurrentResponse, error)
	Forecast(ctx context.Context, city string) (*openweather.ForecastResponse, error)
}

type Service struct {
	fetcher     Fetcher
	defaultCity string
	loc         *time.Location
	log         *zap.Logger
}

func NewService(f Fetcher, defaultCity string, loc *time.Location, log *zap.Logger) *Service {
	if defaultCity == "" {
		defaultCity = "San Francisco"
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{fetcher: f, defaultCity: defaultCity, loc: loc, log: log}
}

// DefaultCity is used when a request names no city.
func (s *Service) DefaultCity() string { return s.defaultCity }

// Snapshot returns live weather for city, or the static payload when the
// current conditions cannot be fetched or either body is malformed. A forecast
// that is unreachable or answers non-2xx yields an empty forecast on an
// otherwise live payload.
func (s *Service) Snapshot(ctx context.Context, city string) (Snapshot, Outcome) {
	if city == "" {
		city = s.defaultCity
	}
	if s.fetcher == nil || !s.fetcher.Configured() {
		s.log.Info("weather: no API key, serving static payload", zap.String("city", city))
		return Static(city), OutcomeFallback
	}

	var (
		current     *openweather.CurrentResponse
		forecast    *openweather.ForecastResponse
		forecastErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		current, err = s.fetcher.Current(ctx, city)
		return err
	})
	g.Go(func() error {
		forecast, forecastErr = s.fetcher.Forecast(ctx, city)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("weather: current conditions failed, serving static payload",
			zap.String("city", city),
			zap.Bool("malformed", errors.Is(err, provider.ErrUpstreamMalformed)),
			zap.Error(err))
		return Static(city), OutcomeFallback
	}

	if errors.Is(forecastErr, provider.ErrUpstreamMalformed) {
		s.log.Warn("weather: malformed forecast, serving static payload", zap.String("city", city), zap.Error(forecastErr))
		return Static(city), OutcomeFallback
	}

	snap := Normalize(current)
	outcome := OutcomeLive
	if forecastErr != nil {
		s.log.Warn("weather: forecast failed", zap.String("city", city), zap.Error(forecastErr))
		outcome = OutcomePartial
	} else {
		snap.Forecast = GroupForecast(forecast.List, s.loc)
	}
	return snap, outcome
}

// Normalize maps current conditions onto a Snapshot with an empty forecast.
// Missing Main or Wind read as zero.
func Normalize(cur *openweather.CurrentResponse) Snapshot {
	var m openweather.Main
	if cur.Main != nil {
		m = *cur.Main
	}
	var wind openweather.Wind
	if cur.Wind != nil {
		wind = *cur.Wind
	}
	condition := "Unknown"
	if len(cur.Weather) > 0 && cur.Weather[0].Description != "" {
		condition = cur.Weather[0].Description
	}
	return Snapshot{
		Location:    cur.Name,
		Temperature: Round(m.Temp),
		Condition:   condition,
		Humidity:    m.Humidity,
		WindSpeed:   Round(wind.Speed),
		Forecast:    []ForecastDay{},
	}
}

// GroupForecast folds 3-hourly entries into days keyed by short weekday name
// in loc, keeping encounter order and at most five days. The condition is
// taken from the first entry of each day.
func GroupForecast(entries []openweather.ForecastEntry, loc *time.Location) []ForecastDay {
	days := []ForecastDay{}
	index := make(map[string]int)
	for _, e := range entries {
		if e.Main == nil {
			continue
		}
		key := time.Unix(e.DT, 0).In(loc).Format("Mon")
		high, low := Round(e.Main.TempMax), Round(e.Main.TempMin)
		if i, ok := index[key]; ok {
			days[i].High = max(days[i].High, high)
			days[i].Low = min(days[i].Low, low)
			continue
		}
		condition := "cloudy"
		if len(e.Weather) > 0 && e.Weather[0].Main != "" {
			condition = strings.ToLower(e.Weather[0].Main)
		}
		index[key] = len(days)
		days = append(days, ForecastDay{Day: key, High: high, Low: low, Condition: condition})
	}
	if len(days) > forecastDays {
		days = days[:forecastDays]
	}
	return days
}

// Round rounds half up, so -2.5 becomes -2 and 2.5 becomes 3.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Static is the fallback payload for city.
func Static(city string) Snapshot {
	return Snapshot{
		Location:    city,
		Temperature: 62,
		Condition:   "Partly Cloudy",
		Humidity:    65,
		WindSpeed:   12,
		Forecast: []ForecastDay{
			{Day: "Fri", High: 65, Low: 52, Condition: "sunny"},
			{Day: "Sat", High: 68, Low: 54, Condition: "cloudy"},
			{Day: "Sun", High: 63, Low: 51, Condition: "rain"},
			{Day: "Mon", High: 60, Low: 48, Condition: "cloudy"},
			{Day: "Tue", High: 62, Low: 50, Condition: "sunny"},
		},
	}
}
