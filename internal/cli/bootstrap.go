package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tbourn/annual-inspection-bot/internal/config"
	"github.com/tbourn/annual-inspection-bot/internal/repo"
	"github.com/tbourn/annual-inspection-bot/internal/services"
	"github.com/tbourn/annual-inspection-bot/internal/sysutil"
	"github.com/tbourn/annual-inspection-bot/internal/telegram"
)

// loadEnv applies the dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig reads the dotenv file and then the environment.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if err := loadEnv(opts.EnvFile); err != nil {
		return config.Config{}, fmt.Errorf("load %s: %w", opts.EnvFile, err)
	}
	return config.Load()
}

// newLogger builds the process logger on w with the configured level.
func newLogger(w io.Writer, cfg config.Config) zerolog.Logger {
	sysutil.SetLogLevel(cfg.LogLevel)
	return sysutil.NewLogger(w, cfg.LogPretty, cfg.OTEL.ServiceName)
}

func applyColor(opts *RootOptions) {
	if opts.NoColor {
		color.NoColor = true
	}
}

// openKV opens the configured backend. The returned closer releases it.
func openKV(sc config.StoreConfig) (repo.KV, func() error, error) {
	noop := func() error { return nil }
	switch sc.Backend {
	case config.StoreMemory:
		return repo.NewMemoryKV(), noop, nil
	case config.StoreUpstash:
		return repo.NewUpstashKV(sc.UpstashURL, sc.UpstashToken, sc.Timeout), noop, nil
	case config.StoreSQLite:
		db, err := repo.OpenSQLite(sc.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", sc.DBPath, err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return repo.NewSQLiteKV(db), sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

// app is the wired set of use cases shared by serve and daily-check.
type app struct {
	Inspections *services.InspectionService
	Reminders   *services.ReminderService
	close       func() error
}

func (a *app) Close() error { return a.close() }

func buildApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	kv, closeKV, err := openKV(cfg.Store)
	if err != nil {
		return nil, err
	}
	store := repo.NewStateRepository(kv, cfg.Store.StateKey)
	tg, err := telegram.NewClient(cfg.Telegram.Token, telegram.Options{
		BaseURL: cfg.Telegram.APIURL,
		Timeout: cfg.Telegram.Timeout,
		RPS:     cfg.Telegram.RPS,
		Burst:   cfg.Telegram.Burst,
	})
	if err != nil {
		_ = closeKV()
		return nil, fmt.Errorf("telegram client: %w", err)
	}

	return &app{
		Inspections: services.NewInspectionService(store, tg, log.With().Str("component", "inspections").Logger()),
		Reminders:   services.NewReminderService(store, tg, cfg.DispatchConcurrency, log.With().Str("component", "reminders").Logger()),
		close:       closeKV,
	}, nil
}
