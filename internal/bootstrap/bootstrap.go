package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	sessioninadapter "cadence/internal/modules/session/adapter/in"
	sessionoutadapter "cadence/internal/modules/session/adapter/out"
	sessionout "cadence/internal/modules/session/port/out"
	sessionservice "cadence/internal/modules/session/service"
	sessionusecase "cadence/internal/modules/session/usecase"
	timerinadapter "cadence/internal/modules/timer/adapter/in"
	timeroutadapter "cadence/internal/modules/timer/adapter/out"
	timerdomain "cadence/internal/modules/timer/domain"
	timerservice "cadence/internal/modules/timer/service"
	timerusecase "cadence/internal/modules/timer/usecase"
	"cadence/internal/platform/clock"
	"cadence/internal/platform/config"
	"cadence/internal/platform/id"
	"cadence/internal/platform/logging"
	uiapp "cadence/internal/ui/app"
)

type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Clock      clock.Clock
	SessionCLI sessioninadapter.CLIHandler
	TimerTUI   timerinadapter.TUIHandler

	closers []io.Closer
}

func New(cfg config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := logging.New(logFile, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	app, err := wire(cfg, clock.SystemClock{}, logger)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	app.closers = append(app.closers, logFile)
	return app, nil
}

func wire(cfg config.Config, clk clock.Clock, logger *slog.Logger) (*App, error) {
	store, err := newKVStore(cfg, clk)
	if err != nil {
		return nil, err
	}
	index, err := sessionoutadapter.NewSQLiteSessionIndex(cfg.DBPath)
	if err != nil {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("new session index: %w", err)
	}
	repo := sessionservice.NewRepository(clk, id.EpochMillis{Clock: clk}, store, logger.With("module", "session"))
	sessionUC := sessionusecase.NewInteractor(repo, index, sessionoutadapter.NewMarkdownExporter(), logger.With("module", "session"))

	s := cfg.Scoring
	calculator := timerdomain.NewCalculator(timerdomain.Tuning{
		Leniency:       s.Leniency,
		SuccessBand:    s.SuccessBand,
		FailureBand:    s.FailureBand,
		RhythmMinRatio: s.RhythmMinRatio,
		RhythmMaxRatio: s.RhythmMaxRatio,
	})
	workSession := timerdomain.NewWorkSession(clk, calculator, timerdomain.NewRewardSystem(s.FlowThreshold), cfg.Timer.WindowSize)
	timerSvc := timerservice.NewTimerService(workSession, timeroutadapter.NewIntervalTickSource(cfg.Timer.TickInterval.Duration), logger.With("module", "timer"))
	timerUC := timerusecase.NewInteractor(timerSvc)

	app := &App{
		Config:     cfg,
		Logger:     logger,
		Clock:      clk,
		SessionCLI: sessioninadapter.NewCLIHandler(sessionUC),
		TimerTUI:   timerinadapter.NewTUIHandler(timerUC),
	}
	for _, dep := range []any{store, index} {
		if c, ok := dep.(io.Closer); ok {
			app.closers = append(app.closers, c)
		}
	}
	return app, nil
}

func newKVStore(cfg config.Config, clk clock.Clock) (sessionout.KVStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		store, err := sessionoutadapter.NewSQLiteKVStore(cfg.DBPath, clk)
		if err != nil {
			return nil, fmt.Errorf("new sqlite store: %w", err)
		}
		return store, nil
	case config.BackendMemory:
		return sessionoutadapter.NewMemoryKVStore(), nil
	default:
		return sessionoutadapter.NewFileKVStore(cfg.StoragePath), nil
	}
}

// Close stops the timer and releases the stores and the log file.
func (a *App) Close() error {
	a.TimerTUI.Close()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func RunTUI(app *App) error {
	model := uiapp.NewModel(app.TimerTUI, app.SessionCLI, app.Clock, app.Logger.With("module", "ui"))
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// DefaultDataPath is ~/.cadence, or .cadence when the home dir is unknown.
func DefaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadence"
	}
	return filepath.Join(home, ".cadence")
}
