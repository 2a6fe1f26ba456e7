// Package config loads xbots settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Bot names.
const (
	BotFortune      = "fortune"
	BotNanal        = "nanal"
	BotWeatherFairy = "weatherfairy"
)

// BotNames lists every bot.
var BotNames = []string{BotFortune, BotNanal, BotWeatherFairy}

// DefaultAccount is the credentials key used by bots without their own.
const DefaultAccount = "default"

// Config holds all xbots configuration.
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Database  DatabaseConfig    `yaml:"database"`
	Logging   LoggingConfig     `yaml:"logging"`
	LLM       LLMConfig         `yaml:"llm"`
	Weather   WeatherConfig     `yaml:"weather"`
	Wikipedia WikipediaConfig   `yaml:"wikipedia"`
	Events    EventsConfig      `yaml:"events"`
	Accounts  map[string]string `yaml:"accounts"`
	Posting   PostingConfig     `yaml:"posting"`
	Schedule  ScheduleConfig    `yaml:"schedule"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// CronSecret guards the trigger endpoints. Empty disables them.
	CronSecret string `yaml:"cron_secret"`
	// RateLimit is trigger requests per minute per client IP.
	RateLimit int `yaml:"rate_limit"`
}

// DatabaseConfig locates the run journal.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	// Models overrides Model per bot.
	Models         map[string]string `yaml:"models"`
	Timeout        string            `yaml:"timeout"`
	CallsPerMinute int               `yaml:"calls_per_minute"`
}

// City is one forecast line.
type City struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// WeatherConfig configures OpenWeatherMap.
type WeatherConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
	Cities    []City `yaml:"cities"`
}

// WikipediaConfig configures the MediaWiki API.
type WikipediaConfig struct {
	APIURL    string `yaml:"api_url"`
	UserAgent string `yaml:"user_agent"`
}

// EventsConfig locates an optional custom events file.
type EventsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// PostingConfig paces posts.
type PostingConfig struct {
	Interval string `yaml:"interval"`
}

// ScheduleConfig configures the in-process scheduler and the cron jobs.
type ScheduleConfig struct {
	Enabled bool        `yaml:"enabled"`
	Jobs    []JobConfig `yaml:"jobs"`
}

// JobConfig is a named batch of bots run at a KST wall-clock time.
type JobConfig struct {
	Name string   `yaml:"name"`
	At   string   `yaml:"at"`
	Bots []string `yaml:"bots"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 10,
		},
		Database: DatabaseConfig{Path: "xbots.db"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		LLM: LLMConfig{
			Provider:       "groq",
			Model:          "openai/gpt-oss-120b",
			Models:         map[string]string{},
			Timeout:        "60s",
			CallsPerMinute: 20,
		},
		Weather: WeatherConfig{
			UserAgent: "WeatherFairyBot/1.0 (https://github.com/HK-410/hakyng-bots/tree/main/apps/weatherfairy/)",
			Cities: []City{
				{Name: "서울", Query: "Seoul"},
				{Name: "부산", Query: "Busan"},
				{Name: "평양", Query: "Pyongyang"},
			},
		},
		Wikipedia: WikipediaConfig{
			APIURL:    "https://ko.wikipedia.org/w/api.php",
			UserAgent: "NaNalBot/1.0 (https://github.com/HK-410/hakyng-bots/tree/main/apps/nanal/)",
		},
		Accounts: map[string]string{},
		Posting:  PostingConfig{Interval: "1.5s"},
		Schedule: ScheduleConfig{
			Jobs: []JobConfig{
				{Name: "midnight", At: "00:00", Bots: []string{BotWeatherFairy, BotNanal}},
				{Name: "morning", At: "08:00", Bots: []string{BotFortune}},
			},
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file or an empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML. Secrets are written too, so the
// file is created owner-readable only.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var providerKeys = []struct{ provider, env string }{
	{"groq", "GROQ_API_KEY"},
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"gemini", "GEMINI_API_KEY"},
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("XBOTS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		c.Server.CronSecret = v
	}
	if v := os.Getenv("XBOTS_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("XBOTS_EVENTS"); v != "" {
		c.Events.Path = v
	}

	// The provider's own key wins. Without an explicit provider the first
	// key found picks it.
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	for _, pk := range providerKeys {
		if key := os.Getenv(pk.env); key != "" && c.LLM.Provider == pk.provider {
			c.LLM.APIKey = key
		}
	}
	if c.LLM.APIKey == "" {
		for _, pk := range providerKeys {
			if key := os.Getenv(pk.env); key != "" {
				c.LLM.APIKey = key
				c.LLM.Provider = pk.provider
				break
			}
		}
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv("OPENWEATHERMAP_API_KEY"); v != "" {
		c.Weather.APIKey = v
	}

	if c.Accounts == nil {
		c.Accounts = map[string]string{}
	}
	appKey, appSecret := os.Getenv("X_APP_KEY"), os.Getenv("X_APP_SECRET")
	token, tokenSecret := os.Getenv("X_ACCESS_TOKEN"), os.Getenv("X_ACCESS_SECRET")
	if appKey != "" || appSecret != "" || token != "" || tokenSecret != "" {
		c.Accounts[DefaultAccount] = strings.Join([]string{appKey, appSecret, token, tokenSecret}, ";")
	}
	for _, bot := range BotNames {
		if v := os.Getenv("X_CREDENTIALS_" + strings.ToUpper(bot)); v != "" {
			c.Accounts[bot] = v
		}
	}
}

// Credentials returns the credentials string of bot, falling back to the
// default account.
func (c *Config) Credentials(bot string) string {
	if v := c.Accounts[bot]; v != "" {
		return v
	}
	return c.Accounts[DefaultAccount]
}

// ModelFor returns the model bot should use. A per-bot model is only
// honoured on the provider it was written for (groq).
func (c *Config) ModelFor(bot string) string {
	if m := c.LLM.Models[bot]; m != "" && (c.LLM.Provider == "" || c.LLM.Provider == "groq") {
		return m
	}
	if c.LLM.Provider == "" || c.LLM.Provider == "groq" {
		return c.LLM.Model
	}
	return ""
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetPostingInterval returns the gap between posts.
func (c *Config) GetPostingInterval() time.Duration {
	d, err := time.ParseDuration(c.Posting.Interval)
	if err != nil {
		return 1500 * time.Millisecond
	}
	return d
}

// Job returns the named job.
func (c *Config) Job(name string) (JobConfig, bool) {
	for _, j := range c.Schedule.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobConfig{}, false
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"groq", "anthropic", "gemini"}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is empty"))
	}
	if !contains(ValidProviders, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders))
	}
	if _, err := time.ParseDuration(c.LLM.Timeout); c.LLM.Timeout != "" && err != nil {
		errs = append(errs, fmt.Errorf("llm.timeout: %w", err))
	}
	if _, err := time.ParseDuration(c.Posting.Interval); c.Posting.Interval != "" && err != nil {
		errs = append(errs, fmt.Errorf("posting.interval: %w", err))
	}
	for _, city := range c.Weather.Cities {
		if city.Name == "" || city.Query == "" {
			errs = append(errs, fmt.Errorf("weather city %+v needs name and query", city))
		}
	}

	seen := map[string]bool{}
	for _, j := range c.Schedule.Jobs {
		if j.Name == "" {
			errs = append(errs, errors.New("schedule job without name"))
		} else if seen[j.Name] {
			errs = append(errs, fmt.Errorf("schedule job %q defined twice", j.Name))
		}
		seen[j.Name] = true
		if _, _, err := ParseClock(j.At); err != nil {
			errs = append(errs, fmt.Errorf("schedule job %q: %w", j.Name, err))
		}
		for _, b := range j.Bots {
			if !contains(BotNames, b) {
				errs = append(errs, fmt.Errorf("schedule job %q: unknown bot %q", j.Name, b))
			}
		}
	}
	return errors.Join(errs...)
}

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
