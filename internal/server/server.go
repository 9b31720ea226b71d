// Package server orchestrates all components: COMMS client, optional DB,
// topology resolution, the request bridge, config watching and HTTP health.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/lvc-bridge/internal/config"
	"github.com/morezero/lvc-bridge/pkg/bridge"
	"github.com/morezero/lvc-bridge/pkg/commsutil"
	"github.com/morezero/lvc-bridge/pkg/db"
	"github.com/morezero/lvc-bridge/pkg/events"
	"github.com/morezero/lvc-bridge/pkg/provider"
	"github.com/morezero/lvc-bridge/pkg/resolver"
)

const logPrefix = "server:server"

// Server is the lvc-bridge orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	repo       *db.Repository
	history    topologyHistory
	publisher  events.EventPublisher
	resolver   *resolver.Resolver
	bridge     *bridge.Bridge
	httpServer *http.Server
	watcher    *fsnotify.Watcher
	subs       []*comms.Subscription

	mu       sync.RWMutex
	topology *Topology
}

// NewParams holds the dependencies of a Server.
type NewParams struct {
	Config *config.Config
	Conn   *comms.Conn
	// Pool is optional; without it topologies are not persisted.
	Pool *pgxpool.Pool
	// Provider overrides the provider chosen from PROVIDER_SUBJECT.
	Provider bridge.Provider
}

// New wires a Server. Nothing is resolved or subscribed until Start.
func New(params NewParams) *Server {
	cfg := params.Config
	s := &Server{cfg: cfg, nc: params.Conn, pool: params.Pool}

	if params.Pool != nil {
		s.repo = db.NewRepository(params.Pool)
		s.history = s.repo
	}

	s.publisher = events.NewCommsPublisher(params.Conn, &events.CommsPublisherOpts{
		SuppressionSubject: cfg.SuppressionSubject,
		TopologySubject:    cfg.TopologyEventSubject,
	})
	s.resolver = resolver.New(events.NewSuppressor(s.publisher))

	prov := params.Provider
	if prov == nil && cfg.ProviderSubject != "" {
		prov = provider.NewComms(provider.CommsParams{
			Conn:    params.Conn,
			Subject: cfg.ProviderSubject,
			Timeout: cfg.ProviderTimeout,
		})
		slog.Info(fmt.Sprintf("%s - Forwarding requests to provider at %s.*", logPrefix, cfg.ProviderSubject))
	}
	if prov == nil {
		slog.Warn(fmt.Sprintf("%s - No provider configured, every request gets a failure response", logPrefix))
	}

	s.bridge = bridge.New(bridge.Params{
		Emitter: bridge.NewCommsEmitter(params.Conn, &bridge.CommsEmitterOpts{
			SearchSubject: cfg.SearchResponseSubject,
			LookupSubject: cfg.LookupResponseSubject,
		}),
		Provider:       prov,
		FailureMessage: cfg.FailureMessage,
	})
	return s
}

// Start resolves the initial topology, subscribes to the request subjects,
// starts the config watcher when enabled and, unless skipHTTP is set, the
// HTTP server. A failed initial resolution is fatal.
func (s *Server) Start(ctx context.Context, skipHTTP bool) error {
	if _, err := s.resolveTopology(ctx); err != nil {
		return err
	}

	if err := s.subscribe(ctx); err != nil {
		s.unsubscribe()
		return err
	}

	if s.cfg.WatchConfig {
		if err := s.watchConfig(ctx); err != nil {
			s.unsubscribe()
			return err
		}
	}

	if !skipHTTP {
		addr := s.cfg.ListenAddr()
		s.httpServer = &http.Server{Addr: addr, Handler: s.routes()}
		go func() {
			slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, addr))
			if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
				slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
			}
		}()
	}

	slog.Info(fmt.Sprintf("%s - lvc-bridge is ready", logPrefix))
	return nil
}

// Shutdown stops subscriptions, the watcher and the HTTP server. The COMMS
// connection and pool belong to the caller.
func (s *Server) Shutdown(ctx context.Context) {
	s.unsubscribe()
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
		}
	}
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting lvc-bridge", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			nc.Close()
			return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		if cfg.RunMigrations {
			if err := migrate(ctx, pool, cfg.MigrationPath); err != nil {
				pool.Close()
				nc.Close()
				return err
			}
		}
	}

	s := New(NewParams{Config: cfg, Conn: nc, Pool: pool})
	if err := s.Start(ctx, false); err != nil {
		if pool != nil {
			pool.Close()
		}
		nc.Close()
		return err
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	s.Shutdown(ctx)
	nc.Drain()
	if pool != nil {
		pool.Close()
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// SetupLogging installs a text slog handler at the given level.
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func migrate(ctx context.Context, pool *pgxpool.Pool, path string) error {
	migrationSQL, err := db.LoadMigrationFiles(path)
	if err != nil {
		return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
	}
	return nil
}
