package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lox/demandpeaks/internal/config"
	"github.com/lox/demandpeaks/internal/metrics"
	"github.com/lox/demandpeaks/internal/store"
)

type Globals struct {
	DB          string `default:"data/demandpeaks.db" env:"DEMANDPEAKS_DB" help:"Path to SQLite database."`
	Config      string `default:"demandpeaks.yaml" env:"DEMANDPEAKS_CONFIG" help:"Path to location config (YAML)."`
	LogLevel    string `default:"info" enum:"debug,info,warn,error" env:"DEMANDPEAKS_LOG_LEVEL" help:"Log level (${enum})."`
	LogFormat   string `default:"console" enum:"console,json" env:"DEMANDPEAKS_LOG_FORMAT" help:"Log format (${enum})."`
	MetricsFile string `env:"DEMANDPEAKS_METRICS_FILE" help:"Write Prometheus metrics to this file on exit."`
}

type CLI struct {
	Globals

	Import  ImportCmd  `cmd:"" help:"Import a sales spreadsheet for one location."`
	Score   ScoreCmd   `cmd:"" help:"Score a date range and store the results."`
	Explain ExplainCmd `cmd:"" help:"Print the full score breakdown for one date."`
	Export  ExportCmd  `cmd:"" help:"Export stored scores without recomputing."`
	Terms   TermsCmd   `cmd:"" help:"Print the solar-term boundaries for a year."`
	Status  StatusCmd  `cmd:"" help:"Show schema version, a score run and failed imports."`
	Prune   PruneCmd   `cmd:"" help:"Delete old archived source files."`
	Restore RestoreCmd `cmd:"" help:"Write an archived source file back to disk."`
}

// App carries what every command needs.
type App struct {
	*Globals
	Ctx context.Context
	Log zerolog.Logger
}

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("demandpeaks"),
		kong.Description("Calendar-aligned demand scores and sales forecasts."),
		kong.UsageOnError(),
	)

	logger := newLogger(cli.LogLevel, cli.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := kctx.Run(&App{Globals: &cli.Globals, Ctx: ctx, Log: logger})
	stop()

	if cli.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cli.MetricsFile); werr != nil {
			logger.Error().Err(werr).Str("path", cli.MetricsFile).Msg("write metrics")
		}
	}
	if err != nil {
		logger.Error().Err(err).Str("command", kctx.Command()).Msg("command failed")
		os.Exit(1)
	}
}

func newLogger(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

// loadConfig reads the location config. A missing file yields the defaults.
func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.Config)
	if errors.Is(err, fs.ErrNotExist) {
		a.Log.Warn().Str("path", a.Config).Msg("config not found, using defaults")
		return &config.Config{LookbackYears: config.DefaultLookbackYears}, nil
	}
	return cfg, err
}

// openStore opens and migrates the database. The caller must call close.
func (a *App) openStore() (*store.Store, func(), error) {
	if dir := filepath.Dir(a.DB); dir != "." && a.DB != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	db, err := store.Open(a.DB)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(db, a.Log)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return st, func() { db.Close() }, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
