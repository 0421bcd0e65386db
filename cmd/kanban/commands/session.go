package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/coordinator"
	"github.com/dyluth/kanban/internal/gateway"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/internal/resolver"
	"github.com/dyluth/kanban/internal/store"
	"github.com/dyluth/kanban/pkg/board"
)

// errActionFailed is returned after a failure has already been shown to the user.
var errActionFailed = errors.New("board action failed")

// session is one CLI invocation's connection to the board: a loaded
// coordinator plus whatever must be closed afterwards.
type session struct {
	cfg      *config.KanbanConfig
	client   *board.Client // nil in http mode
	coord    *coordinator.Coordinator
	failures *failureTracker
}

// failureTracker prints each failure and remembers that one happened.
type failureTracker struct {
	mu    sync.Mutex
	count int
	next  coordinator.Notifier
}

func (f *failureTracker) Notify(failure coordinator.Failure) {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
	f.next.Notify(failure)
}

func (f *failureTracker) seen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func loadConfig(opts *rootOptions) (*config.KanbanConfig, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"config": opts.configPath},
			[]string{"Fix the file, or remove it to use the built-in defaults"},
		)
	}
	return cfg, nil
}

func newLogger(opts *rootOptions, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// connectRedis opens a board client for the configured Redis and checks it answers.
func connectRedis(ctx context.Context, cfg *config.KanbanConfig) (*board.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.Backend.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client, err := board.NewClient(redisOpts, cfg.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create board client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Backend.RedisURL),
			map[string]string{"instance": cfg.Instance},
			[]string{
				"Start Redis:\n  docker run -d -p 6379:6379 redis:7-alpine",
				"Point backend.redis_url in kanban.yml at a running server",
			},
		)
	}
	return client, nil
}

// openSession connects to the configured backend and loads the board,
// creating it if this instance has none yet.
func openSession(ctx context.Context, opts *rootOptions, logOut io.Writer) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		failures: &failureTracker{next: printer.Notifier()},
	}

	var gw gateway.Gateway
	switch cfg.Backend.Mode {
	case config.ModeHTTP:
		gw = gateway.NewHTTPGateway(cfg.Backend.APIURL, cfg.TimeoutDuration())
	default:
		client, err := connectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.client = client
		gw = gateway.NewRedisGateway(client, cfg.DefaultColumns)
	}

	s.coord = coordinator.New(store.New(), gw, coordinator.Options{
		BoardName: cfg.BoardName,
		Timeout:   cfg.TimeoutDuration(),
		Logger:    newLogger(opts, logOut),
		Notifier:  s.failures,
	})

	if err := s.coord.Load(ctx); err != nil {
		s.Close()
		backend := cfg.Backend.RedisURL
		if cfg.Backend.Mode == config.ModeHTTP {
			backend = cfg.Backend.APIURL
		}
		return nil, printer.ErrorWithContext(
			"failed to load board",
			gateway.Message(err),
			map[string]string{"backend": backend, "instance": cfg.Instance},
			nil,
		)
	}
	return s, nil
}

// Close releases the backend connection.
func (s *session) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// finish waits for background remote calls and reports whether any failed.
func (s *session) finish() error {
	s.coord.Wait()
	if s.failures.seen() > 0 {
		return errActionFailed
	}
	return nil
}

// actionError turns a coordinator error into a user-facing one. Remote
// failures were already printed by the notifier.
func (s *session) actionError(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, coordinator.ErrRejected) {
		msg := strings.TrimPrefix(err.Error(), coordinator.ErrRejected.Error()+": ")
		return printer.Error(fmt.Sprintf("cannot %s", what), msg, nil)
	}
	if s.failures.seen() > 0 {
		return errActionFailed
	}
	return printer.Error(fmt.Sprintf("failed to %s", what), gateway.Message(err), nil)
}

func (s *session) resolveCard(ref string) (string, error) {
	id, err := resolver.ResolveCard(s.coord.View(), ref)
	return id, resolveError(err)
}

func (s *session) resolveColumn(ref string) (string, error) {
	id, err := resolver.ResolveColumn(s.coord.View(), ref)
	return id, resolveError(err)
}

func resolveError(err error) error {
	if err == nil {
		return nil
	}
	var amb *resolver.AmbiguousError
	if errors.As(err, &amb) {
		return printer.Error("ambiguous reference", resolver.FormatAmbiguousError(amb), nil)
	}
	return printer.Error(
		"not found",
		err.Error(),
		[]string{"List ids and names:\n  kanban board"},
	)
}
