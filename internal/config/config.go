package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port               string `yaml:"port"`
	RequestTimeoutSec  int    `yaml:"request_timeout_sec"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Cache configures the revalidation store shared by the cached endpoints.
type Cache struct {
	Backend       string `yaml:"backend"` // memory | redis | none
	MaxItems      int    `yaml:"max_items"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

type Finnhub struct {
	APIKey               string `yaml:"api_key"`
	Endpoint             string `yaml:"endpoint"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
	Burst                int    `yaml:"burst"`
}

type AlphaVantage struct {
	APIKey                string `yaml:"api_key"`
	Endpoint              string `yaml:"endpoint"`
	MaxRequestsPerMinute  int    `yaml:"max_requests_per_minute"`
	MinRequestIntervalSec int    `yaml:"min_request_interval_sec"`
	Burst                 int    `yaml:"burst"`
}

type Market struct {
	Finnhub       Finnhub      `yaml:"finnhub"`
	AlphaVantage  AlphaVantage `yaml:"alpha_vantage"`
	Indices       []string     `yaml:"indices"`
	Volatility    string       `yaml:"volatility"`
	Crypto        []string     `yaml:"crypto"`
	RevalidateSec int          `yaml:"revalidate_sec"`
}

type Weather struct {
	APIKey        string `yaml:"api_key"`
	Endpoint      string `yaml:"endpoint"`
	DefaultCity   string `yaml:"default_city"`
	Units         string `yaml:"units"`
	Timezone      string `yaml:"timezone"` // IANA name; empty means process local
	RevalidateSec int    `yaml:"revalidate_sec"`
}

type Content struct {
	WordPressURL  string `yaml:"wordpress_url"`
	Username      string `yaml:"username"`
	AppPassword   string `yaml:"app_password"` // WordPress application password
	PerPage       int    `yaml:"per_page"`
	RevalidateSec int    `yaml:"revalidate_sec"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Cache   Cache   `yaml:"cache"`
	Market  Market  `yaml:"market"`
	Weather Weather `yaml:"weather"`
	Content Content `yaml:"content"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10, ShutdownTimeoutSec: 5},
		Log:    Log{Level: "info"},
		Cache:  Cache{Backend: "memory", MaxItems: 1000, RedisAddr: "localhost:6379", KeyPrefix: "discover:"},
		Market: Market{
			Finnhub:       Finnhub{Endpoint: "https://finnhub.io/api/v1", Burst: 1},
			AlphaVantage:  AlphaVantage{Endpoint: "https://www.alphavantage.co/query", Burst: 1},
			Indices:       []string{"SPY", "QQQ"},
			Volatility:    "VIX",
			Crypto:        []string{"BTC"},
			RevalidateSec: 300,
		},
		Weather: Weather{
			Endpoint:      "https://api.openweathermap.org/data/2.5",
			DefaultCity:   "San Francisco",
			Units:         "imperial",
			RevalidateSec: 1800,
		},
		Content: Content{PerPage: 10, RevalidateSec: 600},
	}
}

// Load reads an optional .env file and YAML config from path. If path is empty
// and config.yaml exists in the working directory it is used; a missing file
// yields defaults. Environment variables override select fields for secrecy.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if tz := cfg.Weather.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("weather timezone %q: %w", tz, err)
		}
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if x, ok := envInt("REDIS_DB"); ok && x >= 0 {
		cfg.Cache.RedisDB = x
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Market.Finnhub.APIKey = v
	}
	if x, ok := envInt("FINNHUB_MAX_RPM"); ok && x >= 0 {
		cfg.Market.Finnhub.MaxRequestsPerMinute = x
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.Market.AlphaVantage.APIKey = v
	}
	if x, ok := envInt("ALPHA_VANTAGE_MAX_RPM"); ok && x >= 0 {
		cfg.Market.AlphaVantage.MaxRequestsPerMinute = x
	}
	if v := os.Getenv("MARKET_INDICES"); v != "" {
		cfg.Market.Indices = splitCSV(v)
	}
	if v := os.Getenv("MARKET_CRYPTO"); v != "" {
		cfg.Market.Crypto = splitCSV(v)
	}

	if v := os.Getenv("OPENWEATHERMAP_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("WEATHER_DEFAULT_CITY"); v != "" {
		cfg.Weather.DefaultCity = v
	}
	if v := os.Getenv("WEATHER_TIMEZONE"); v != "" {
		cfg.Weather.Timezone = v
	}

	if v := os.Getenv("WORDPRESS_URL"); v != "" {
		cfg.Content.WordPressURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("WORDPRESS_USERNAME"); v != "" {
		cfg.Content.Username = v
	}
	if v := os.Getenv("WORDPRESS_APP_PASSWORD"); v != "" {
		cfg.Content.AppPassword = v
	}
}

// Location resolves Weather.Timezone, falling back to time.Local. Load
// rejects unknown names, so the fallback only applies to hand-built configs.
func (w Weather) Location() *time.Location {
	if w.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return x, true
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
