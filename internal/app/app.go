package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"wsync-go/internal/config"
	"wsync-go/internal/crypt"
	"wsync-go/internal/model"
	"wsync-go/internal/remote"
	"wsync-go/internal/store"
	"wsync-go/internal/ws"
)

// DefaultSuppressionWindow covers the async chain of project creation,
// template application and first file writes landing before any automatic
// restore could race them.
const DefaultSuppressionWindow = 5 * time.Second

// App is the application layer between the CLI and the workspace service.
// It constructs all dependencies from config and manages their lifecycle on
// Close. One App owns one session's scheduler and coordinator; running two
// Apps for the same user risks duplicate concurrent backups.
type App struct {
	cfg         *config.Config
	store       ws.Store
	remote      ws.RemoteStore
	sync        *ws.CloudSync
	scheduler   *ws.Scheduler
	coordinator *ws.Coordinator
	service     *ws.Service
	logFile     *os.File
}

// New creates a fully wired App from the given config. sessionID identifies
// this run in log lines. The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, sessionID string) (*App, error) {
	if cfg.UserID == "" {
		return nil, fmt.Errorf("config has no user_id")
	}

	logger, logFile, err := newLogger(cfg.LogDir, sessionID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}
	notifier := &logNotifier{logger: log}

	st, err := store.NewStoreFromConfig(cfg.Database, cfg.UserID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating record store: %w", err)
	}

	rem, err := remote.NewRemoteFromConfig(ctx, cfg.Remote)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating remote store: %w", err)
	}

	encryptor, err := crypt.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	clock := ws.RealClock{}
	gate := &configGate{enabled: cfg.Sync.Enabled}
	cloudSync := ws.NewCloudSync(st, rem, gate, encryptor, clock, log, notifier)

	scheduler := ws.NewScheduler(func(reason string) error {
		if cloudSync.Upload(context.Background(), cfg.UserID) {
			return nil
		}
		return fmt.Errorf("snapshot upload did not complete (reason: %s)", reason)
	}, log, notifier)

	window := DefaultSuppressionWindow
	if cfg.Sync.SuppressionMs > 0 {
		window = time.Duration(cfg.Sync.SuppressionMs) * time.Millisecond
	}
	coordinator := ws.NewCoordinator(cloudSync, window, clock, log)

	debounce := ws.DefaultDebounceDelay
	if cfg.Sync.DebounceMs > 0 {
		debounce = time.Duration(cfg.Sync.DebounceMs) * time.Millisecond
	}
	service := ws.NewService(st, scheduler, coordinator, ws.NewBus(), clock,
		ws.UUIDGenerator{}, log, notifier, debounce)

	return &App{
		cfg:         cfg,
		store:       st,
		remote:      rem,
		sync:        cloudSync,
		scheduler:   scheduler,
		coordinator: coordinator,
		service:     service,
		logFile:     logFile,
	}, nil
}

// Service returns the workspace service.
func (a *App) Service() *ws.Service { return a.service }

// UserID returns the configured owning user.
func (a *App) UserID() string { return a.cfg.UserID }

// EnterWorkspace runs the navigation-side restore decision for a workspace
// route. Returns whether an automatic restore ran.
func (a *App) EnterWorkspace(ctx context.Context, workspaceID string, justCreated bool) bool {
	return a.coordinator.EnterWorkspace(ctx, a.cfg.UserID, workspaceID, justCreated)
}

// BackupNow pushes a snapshot immediately, outside any debounce.
func (a *App) BackupNow(ctx context.Context) bool {
	return a.sync.Upload(ctx, a.cfg.UserID)
}

// Restore replaces local state with the latest remote snapshot.
func (a *App) Restore(ctx context.Context) bool {
	return a.sync.Restore(ctx, a.cfg.UserID)
}

// ValidateRemote verifies the remote store is reachable.
func (a *App) ValidateRemote(ctx context.Context) error {
	return a.remote.Validate(ctx)
}

// Workspaces lists the configured user's workspaces.
func (a *App) Workspaces(ctx context.Context) ([]*model.Workspace, error) {
	return a.service.Workspaces(ctx, a.cfg.UserID)
}

// Close cancels any pending debounced backup and releases resources.
// The pending backup is cancelled, not fired: a process shutting down
// cannot await an upload, and instant triggers already covered the
// structural operations.
func (a *App) Close() error {
	a.scheduler.Stop()

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing record store: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
