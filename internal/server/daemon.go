package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"acmsync/internal/config"
	"acmsync/internal/logging"
)

// Daemon runs the checkout API and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *Store
	service *Service

	lockPath string
	lock     *flock.Flock

	listener net.Listener
	server   *http.Server
	running  atomic.Bool
}

// NewDaemon constructs a daemon around an open store.
func NewDaemon(cfg *config.Config, store *Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.DaemonLockPath()
	service := NewService(store, cfg.Daemon.MinClientVersion, logger)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		service:  service,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		server: &http.Server{
			Handler:           NewHandler(service, store, cfg.Daemon.APIToken, logger),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Start acquires the lock and begins serving. The server shuts down when ctx
// is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another acmd instance is already running")
	}

	bind := strings.TrimSpace(d.cfg.Daemon.Bind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	d.listener = listener
	d.running.Store(true)

	go func() {
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		d.Stop()
	}()

	d.logger.Info("acmd started",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", d.lockPath),
		logging.String("db_driver", d.store.Driver()),
	)
	return nil
}

// Addr returns the listening address once started.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Running reports whether the daemon is serving.
func (d *Daemon) Running() bool { return d.running.Load() }

// Stop shuts the server down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("api server shutdown", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("acmd stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}
