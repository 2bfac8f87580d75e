package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/singhkkrish/traceit/internal/api"
	"github.com/singhkkrish/traceit/internal/config"
	"github.com/singhkkrish/traceit/internal/db"
	"github.com/singhkkrish/traceit/internal/photostore"
	"github.com/singhkkrish/traceit/internal/ratelimit"
	"github.com/singhkkrish/traceit/internal/store"
)

const (
	// purgeInterval is how often expired token revocations are dropped.
	purgeInterval = time.Hour

	shutdownTimeout = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and serve the API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("addr", "a", ":5000", "listen address")
	f.Bool("trust-proxy", false, "key attempt limits on X-Forwarded-For")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DB)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		// Generated on first run and kept in the settings table.
		if jwtSecret, err = store.GetJWTSecret(ctx, database); err != nil {
			return err
		}
	}

	photos, err := newPhotoStore(ctx, cfg, database)
	if err != nil {
		return err
	}
	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	router := api.NewRouter(database, api.Options{
		JWTSecret:   jwtSecret,
		TokenTTL:    cfg.TokenTTL,
		Photos:      photos,
		Limiter:     limiter,
		TrustProxy:  cfg.TrustProxy,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go purgeRevokedTokens(ctx, database)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}

	slog.Info("server started", "addr", cfg.Addr, "photos", cfg.Photos.Backend, "ratelimit", cfg.RateLimit.Backend)
	if err := serve(ctx, server, ln, shutdownTimeout); err != nil {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// serve runs server on ln until ctx is done, then shuts it down gracefully.
// It returns only once in-flight requests have drained or grace has passed.
func serve(ctx context.Context, server *http.Server, ln net.Listener, grace time.Duration) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-drained
	return nil
}

func newPhotoStore(ctx context.Context, cfg *config.Config, database *sql.DB) (photostore.Store, error) {
	if cfg.Photos.Backend != config.PhotosS3 {
		return &photostore.SQLite{DB: database}, nil
	}
	opts := cfg.Photos.S3
	bucket, err := photostore.NewS3(ctx, photostore.S3Options{
		Bucket:    opts.Bucket,
		Region:    opts.Region,
		Endpoint:  opts.Endpoint,
		AccessKey: opts.AccessKey,
		SecretKey: opts.SecretKey,
		Prefix:    "photos/",
	})
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	rl := cfg.RateLimit
	switch rl.Backend {
	case config.LimiterOff:
		slog.Warn("verification attempt limiting disabled")
		return ratelimit.Unlimited{}, func() {}, nil
	case config.LimiterRedis:
		client := redis.NewClient(&redis.Options{Addr: rl.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", rl.RedisAddr, err)
		}
		return ratelimit.NewRedis(client, rl.Attempts, rl.Window), func() { client.Close() }, nil
	default:
		return ratelimit.NewMemory(rl.Attempts, rl.Window), func() {}, nil
	}
}

// purgeRevokedTokens drops revocations whose tokens have expired anyway.
func purgeRevokedTokens(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeRevokedTokens(ctx, database, now)
			if err != nil {
				slog.Error("purging revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}
