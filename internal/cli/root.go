package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ogulcanaydogan/transit-alert-push/internal/config"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/dispatch"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/feed"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/pipeline"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/push"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/routes"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "transitpush",
	Short: "transitpush - transit disruption push notifications",
	Long: `transitpush polls a transit alerts feed, picks the disruptions riders
should hear about and sends each one as a push notification exactly once.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.transitpush/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(newHandler(os.Stderr, cfg.Logging.Format, parseLevel(cfg.Logging.Level)))
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// newAuditLogger returns the sent-push audit log. With no audit file it
// shares the main logger and the returned closer is nil.
func newAuditLogger(cfg *config.Config, logger *slog.Logger) (*slog.Logger, io.Closer, error) {
	if cfg.Logging.AuditFile == "" {
		return logger.With("log", "audit"), nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Logging.AuditFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create audit log directory: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   cfg.Logging.AuditFile,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})), w, nil
}

// initRouteMap builds the route map from the routes file or inline tags.
func initRouteMap(cfg *config.Config) (*routes.TagMap, error) {
	if cfg.Routes.File != "" {
		return routes.LoadFile(cfg.Routes.File)
	}
	m := routes.New(cfg.Routes.Tags)
	if m.Len() == 0 {
		return nil, fmt.Errorf("no routes configured")
	}
	return m, nil
}

// initStorage opens the configured sent store.
func initStorage(ctx context.Context, cfg *config.Config) (storage.SentStore, error) {
	return storage.Open(ctx, storage.Options{
		Driver:   cfg.Store.Driver,
		Path:     cfg.Store.Path,
		DSN:      cfg.Store.DSN,
		CouchURL: cfg.Store.Couch.URL,
		CouchDB:  cfg.Store.Couch.DB,
	})
}

// initSender creates the configured push sender.
func initSender(cfg *config.Config, audit *slog.Logger) (push.Sender, error) {
	return push.New(push.Options{
		Provider:        cfg.Push.Provider,
		AirshipURL:      cfg.Push.Airship.BaseURL,
		AppKey:          cfg.Push.Airship.AppKey,
		MasterSecret:    cfg.Push.Airship.MasterSecret,
		WebhookURL:      cfg.Push.Webhook.URL,
		WebhookSecret:   cfg.Push.Webhook.Secret,
		SlackWebhookURL: cfg.Push.Slack.WebhookURL,
		SlackChannel:    cfg.Push.Slack.Channel,
		RatePerSec:      cfg.Push.RatePerSec,
		Audit:           audit,
	})
}

// app is a fully wired pipeline and the resources it holds.
type app struct {
	runner *pipeline.Runner
	store  storage.SentStore
	closer []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closer {
		_ = c.Close()
	}
}

// initApp wires the pipeline. A dry run gets neither a store nor a sender.
func initApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool) (*app, error) {
	tags, err := initRouteMap(cfg)
	if err != nil {
		return nil, err
	}
	resolver := routes.NewResolver(tags)

	rc := pipeline.RunnerConfig{
		Fetcher:  feed.NewClient(cfg.Feed.URL, cfg.Feed.APIKey, cfg.Feed.Timeout),
		Filter:   pipeline.NewFilter(filterConfig(cfg), resolver),
		Resolver: resolver,
		Quiet: pipeline.QuietWindow{
			Enabled:   cfg.Quiet.Enabled,
			StartHour: cfg.Quiet.StartHour,
			EndHour:   cfg.Quiet.EndHour,
			Location:  cfg.Location(),
		},
		Concurrency: cfg.Dispatch.Concurrency,
		Logger:      logger,
	}
	a := &app{}

	if !dryRun {
		audit, auditCloser, err := newAuditLogger(cfg, logger)
		if err != nil {
			return nil, err
		}
		if auditCloser != nil {
			a.closer = append(a.closer, auditCloser)
		}

		sender, err := initSender(cfg, audit)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init push sender: %w", err)
		}

		store, err := initStorage(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init sent store: %w", err)
		}
		a.store = store
		a.closer = append([]io.Closer{store}, a.closer...)

		rc.Dispatcher = dispatch.NewGate(dispatch.NewSentTracker(store), sender, logger)
	}

	a.runner = pipeline.NewRunner(rc)
	return a, nil
}

func filterConfig(cfg *config.Config) pipeline.FilterConfig {
	return pipeline.FilterConfig{
		Mode:               cfg.Filter.Mode,
		Effects:            cfg.Filter.Effects,
		LeadTime:           cfg.Filter.LeadTime,
		ExcludedSeverities: cfg.Filter.ExcludedSeverities,
	}
}
