package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/routes"
)

// Config holds all transitpush configuration. It is read once at startup.
type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Quiet    QuietConfig    `mapstructure:"quiet"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Routes   RoutesConfig   `mapstructure:"routes"`
	Store    StoreConfig    `mapstructure:"store"`
	Push     PushConfig     `mapstructure:"push"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedConfig defines the upstream alerts feed.
type FeedConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScheduleConfig defines the poll cadence.
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timezone string        `mapstructure:"timezone"`
}

// QuietConfig defines the hours during which runs are suppressed.
// Both hours are inclusive and read in Schedule.Timezone.
type QuietConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	StartHour int  `mapstructure:"start_hour"`
	EndHour   int  `mapstructure:"end_hour"`
}

// FilterConfig defines which alerts are notify-worthy.
type FilterConfig struct {
	Mode               string        `mapstructure:"mode"`
	Effects            []string      `mapstructure:"effects"`
	LeadTime           time.Duration `mapstructure:"lead_time"`
	ExcludedSeverities []string      `mapstructure:"excluded_severities"`
}

// RoutesConfig defines the route id to audience tag mapping. File, when
// set, replaces Tags. Map keys read through viper are lowercased, so route
// ids with capitals belong in File.
type RoutesConfig struct {
	File string            `mapstructure:"file"`
	Tags map[string]string `mapstructure:"tags"`
}

// StoreConfig defines the sent-marker store.
type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Path   string      `mapstructure:"path"`
	DSN    string      `mapstructure:"dsn"`
	Couch  CouchConfig `mapstructure:"couch"`
}

// CouchConfig defines CouchDB settings.
type CouchConfig struct {
	URL string `mapstructure:"url"`
	DB  string `mapstructure:"db"`
}

// PushConfig defines the notification provider.
type PushConfig struct {
	Provider   string        `mapstructure:"provider"`
	Airship    AirshipConfig `mapstructure:"airship"`
	Webhook    WebhookConfig `mapstructure:"webhook"`
	Slack      SlackConfig   `mapstructure:"slack"`
	RatePerSec int           `mapstructure:"rate_per_sec"`
}

// AirshipConfig defines Airship API credentials.
type AirshipConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	AppKey       string `mapstructure:"app_key"`
	MasterSecret string `mapstructure:"master_secret"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// DispatchConfig defines per-run dispatch settings.
type DispatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ServerConfig defines the status endpoint. An empty Listen disables it.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AuditFile string `mapstructure:"audit_file"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".transitpush"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("TRANSITPUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Not a viper default: viper deep-merges map defaults into configured maps.
	if len(cfg.Routes.Tags) == 0 {
		cfg.Routes.Tags = routes.DefaultTags()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("feed.url", "http://realtime.mbta.com/developer/api/v2/alerts")
	v.SetDefault("feed.api_key", "")
	v.SetDefault("feed.timeout", "10s")

	v.SetDefault("schedule.interval", "60s")
	v.SetDefault("schedule.timezone", "America/New_York")

	v.SetDefault("quiet.enabled", true)
	v.SetDefault("quiet.start_hour", 2)
	v.SetDefault("quiet.end_hour", 5)

	v.SetDefault("filter.mode", "Subway")
	v.SetDefault("filter.effects", []string{"Delay", "Detour"})
	v.SetDefault("filter.lead_time", "2h")
	v.SetDefault("filter.excluded_severities", []string{"Minor"})

	v.SetDefault("routes.file", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", filepath.Join(home, ".transitpush", "sent.db"))
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.couch.url", "http://localhost:5984")
	v.SetDefault("store.couch.db", "sent_alerts")

	v.SetDefault("push.provider", "airship")
	v.SetDefault("push.airship.base_url", "https://go.urbanairship.com")
	v.SetDefault("push.airship.app_key", "")
	v.SetDefault("push.airship.master_secret", "")
	v.SetDefault("push.webhook.url", "")
	v.SetDefault("push.webhook.secret", "")
	v.SetDefault("push.slack.webhook_url", "")
	v.SetDefault("push.slack.channel", "#transit-alerts")
	v.SetDefault("push.rate_per_sec", 5)

	v.SetDefault("dispatch.concurrency", 1)
	v.SetDefault("server.listen", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.audit_file", "")
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive, got %s", c.Schedule.Interval)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone %q: %w", c.Schedule.Timezone, err)
	}
	if !validHour(c.Quiet.StartHour) || !validHour(c.Quiet.EndHour) {
		return fmt.Errorf("quiet hours must be within 0-23, got %d-%d", c.Quiet.StartHour, c.Quiet.EndHour)
	}
	if c.Filter.LeadTime < 0 {
		return fmt.Errorf("filter.lead_time must not be negative")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres", "couchdb":
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Push.Provider {
	case "airship", "webhook", "slack":
	default:
		return fmt.Errorf("unknown push.provider %q", c.Push.Provider)
	}
	if c.Push.RatePerSec < 0 {
		return fmt.Errorf("push.rate_per_sec must not be negative")
	}

	if c.Dispatch.Concurrency < 1 {
		return fmt.Errorf("dispatch.concurrency must be at least 1, got %d", c.Dispatch.Concurrency)
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validHour(h int) bool { return h >= 0 && h <= 23 }
