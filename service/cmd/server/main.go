package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/slaphard/slaphard/engine"
	"github.com/slaphard/slaphard/service/internal/auth"
	"github.com/slaphard/slaphard/service/internal/config"
	"github.com/slaphard/slaphard/service/internal/orchestrator"
	"github.com/slaphard/slaphard/service/internal/persistence"
	"github.com/slaphard/slaphard/service/internal/registry"
	"github.com/slaphard/slaphard/service/internal/store"
	"github.com/slaphard/slaphard/service/internal/transport/ws"
)

func main() {
	log.SetFlags(0)
	cfg := &config.Config{}

	if err := config.LoadDotenv(".env"); err != nil {
		cobra.CheckErr(err)
	}

	root := config.NewRootCommand(cfg, run)
	cobra.CheckErr(root.Execute())
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := cfg.BuildLogger()
	if err != nil {
		return err
	}

	roomStore, err := buildStore(cfg)
	if err != nil {
		return err
	}

	journal, err := buildJournal(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	issuer := auth.NewIssuer([]byte(cfg.JWTSecret))
	reg := registry.New()
	hub := ws.NewHub()
	mgr := orchestrator.NewManager(roomStore, journal, reg, hub, logger, engine.DefaultConfig(), issuer)
	handler := ws.NewHandler(hub, mgr, logger, cfg.CORSOrigins)

	if memStore, ok := roomStore.(*store.MemoryStore); ok {
		sweeper := orchestrator.NewSweeper(memStore.Sweep, time.Minute, logger)
		go sweeper.Run()
		defer sweeper.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("slaphard: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("slaphard: shutting down")
	return srv.Shutdown(shutdownCtx)
}

func buildStore(cfg *config.Config) (store.RoomStore, error) {
	if cfg.RedisURL == "" {
		if !cfg.AllowInMemoryRoomStore {
			return nil, errors.New("main: no REDIS_URL and ALLOW_IN_MEMORY_ROOM_STORE is not set")
		}
		return store.NewMemoryStore(cfg.RoomTTL), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return store.NewRedisStore(redis.NewClient(opts), cfg.RoomTTL), nil
}

// buildJournal returns a NoopJournal unless ENABLE_DB_PERSISTENCE is set, in
// which case it connects to Postgres, applies Schema, and wraps the result
// in RetryOnce so every call gets one automatic retry before it's logged;
// every failure except StartMatch's is then swallowed.
func buildJournal(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (persistence.Journal, error) {
	if !cfg.EnableDBPersistence {
		return persistence.NoopJournal{}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, persistence.Schema); err != nil {
		return nil, err
	}
	return persistence.NewRetryOnce(persistence.NewPostgres(pool), logger, 250*time.Millisecond), nil
}
