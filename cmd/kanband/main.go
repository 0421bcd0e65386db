// Command kanband serves the board over JSON RPC, backed by Redis.
//
// Configuration comes from kanban.yml (path in KANBAN_CONFIG, default
// ./kanban.yml; defaults apply when it is missing). REDIS_URL and
// KANBAN_INSTANCE override the file. DEBUG=true enables debug logging.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/dyluth/kanban/internal/api"
	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/gateway"
	"github.com/dyluth/kanban/pkg/board"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, log.StandardLogger()); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads kanban.yml and applies environment overrides.
func loadConfig(getenv func(string) string) (*config.KanbanConfig, error) {
	path := getenv("KANBAN_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if v := getenv("REDIS_URL"); v != "" {
		cfg.Backend.RedisURL = v
	}
	if v := getenv("KANBAN_INSTANCE"); v != "" {
		cfg.Instance = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run connects to Redis and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.KanbanConfig, logger *log.Logger) error {
	redisOpts, err := redis.ParseURL(cfg.Backend.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client, err := board.NewClient(redisOpts, cfg.Instance)
	if err != nil {
		return fmt.Errorf("failed to create board client: %w", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("redis not accessible: %w", err)
	}

	e := newServer(client, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"listen":   cfg.Server.Listen,
			"instance": cfg.Instance,
		}).Info("kanband starting")
		errCh <- e.Start(cfg.Server.Listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

// newServer builds the echo instance serving client's board.
func newServer(client *board.Client, cfg *config.KanbanConfig, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	api.Register(e, gateway.NewRedisGateway(client, cfg.DefaultColumns), client.Ping, logger)
	return e
}
