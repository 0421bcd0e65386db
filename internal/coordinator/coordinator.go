// Package coordinator drives every user action against local state and the
// remote gateway.
//
// Each action kind has a fixed reconciliation Strategy (see StrategyFor).
// Optimistic actions patch the store, return immediately and confirm in the
// background: success is merged narrowly into the affected entity, failure
// discards local state through a full resync. Confirm-first actions wait for
// the remote side and touch the store only on success.
//
// A background result whose entity is no longer in the tree (because a
// resync replaced it) is ignored. When actions overlap, the server may commit
// them in another order than they were applied locally, so once the last of
// them is reconciled the tree is replaced with a fresh fetch.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dyluth/kanban/internal/gateway"
	"github.com/dyluth/kanban/internal/store"
	"github.com/dyluth/kanban/pkg/board"
)

const tracerName = "github.com/dyluth/kanban/internal/coordinator"

// ErrRejected wraps every local validation failure. A rejected action made
// no local change and issued no remote call.
var ErrRejected = errors.New("action rejected")

// errStale is returned by merge patches whose target entity is gone.
var errStale = errors.New("stale result")

func rejectf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// Failure describes a remote call that did not succeed.
type Failure struct {
	Kind     Kind
	Strategy Strategy
	EntityID string
	Err      error

	// Resynced is true when local state was replaced with a fresh fetch.
	Resynced bool
	// ResyncErr is set when the resync itself failed.
	ResyncErr error
}

// Message is the text to show the user.
func (f Failure) Message() string {
	return gateway.Message(f.Err)
}

// Notifier receives every Failure. Implementations must not block.
type Notifier interface {
	Notify(f Failure)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(f Failure)

func (fn NotifierFunc) Notify(f Failure) { fn(f) }

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	// BoardName is used when Load has to create the board.
	BoardName string
	// Timeout bounds each remote call. Zero means no bound beyond the caller's context.
	Timeout time.Duration
	Logger  logrus.FieldLogger
	// Notifier is told about every remote failure.
	Notifier Notifier
}

// Coordinator is the only writer of its store.
type Coordinator struct {
	store     *store.Store
	gw        gateway.Gateway
	boardName string
	timeout   time.Duration
	logger    logrus.FieldLogger
	notifier  Notifier

	inflight sync.WaitGroup
	resyncMu sync.Mutex

	// pending counts actions between their local patch (or remote call) and
	// their reconciliation. overlapped records that two were pending at once.
	pendingMu  sync.Mutex
	pending    int
	overlapped bool
}

// New creates a coordinator over s and gw.
func New(s *store.Store, gw gateway.Gateway, opts Options) *Coordinator {
	c := &Coordinator{
		store:     s,
		gw:        gw,
		boardName: opts.BoardName,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		notifier:  opts.Notifier,
	}
	if c.boardName == "" {
		c.boardName = "My Kanban Board"
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.notifier == nil {
		c.notifier = NotifierFunc(func(Failure) {})
	}
	return c
}

// Store returns the store this coordinator writes to.
func (c *Coordinator) Store() *store.Store {
	return c.store
}

// View returns the current materialized board, or nil before Load.
func (c *Coordinator) View() *board.Board {
	return c.store.Materialize()
}

// Wait blocks until every background remote call and its reconciliation
// have finished.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// Load fetches the active board, creating it first if none exists, and
// replaces local state with it.
func (c *Coordinator) Load(ctx context.Context) error {
	if err := c.replaceFromRemote(ctx); err != nil {
		return err
	}
	c.logger.WithField("version", c.store.Version()).Debug("board loaded")
	return nil
}

// Resync discards local state and replaces it with a fresh fetch.
func (c *Coordinator) Resync(ctx context.Context) error {
	c.logger.Debug("resync started")
	if err := c.replaceFromRemote(ctx); err != nil {
		c.logger.WithError(err).Error("resync failed")
		return err
	}
	c.logger.WithField("version", c.store.Version()).Info("resync complete")
	return nil
}

func (c *Coordinator) replaceFromRemote(ctx context.Context) error {
	c.resyncMu.Lock()
	defer c.resyncMu.Unlock()

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	tree, err := c.gw.FetchBoard(callCtx)
	if err != nil {
		return fmt.Errorf("fetch board: %w", err)
	}
	if tree == nil {
		if _, err := c.gw.CreateBoard(callCtx, c.boardName, board.EntityTypeBoard); err != nil {
			return fmt.Errorf("create board: %w", err)
		}
		if tree, err = c.gw.FetchBoard(callCtx); err != nil {
			return fmt.Errorf("fetch board: %w", err)
		}
		if tree == nil {
			return errors.New("fetch board: no board after creation")
		}
	}

	c.store.Replace(tree)
	return nil
}

func (c *Coordinator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// action is one user action split into its phases. Which phases run, and
// when, is decided by the kind's Strategy.
type action struct {
	kind     Kind
	entityID string

	// local is the optimistic patch. Optimistic kinds only.
	local func(tree *board.Board) error
	// remote performs the gateway call, capturing any result it needs.
	remote func(ctx context.Context) error
	// merge narrowly applies the remote result. Optional.
	merge func(tree *board.Board) error
	// refetch replaces the whole tree after success instead of merging.
	refetch bool
}

func (c *Coordinator) run(ctx context.Context, a *action) error {
	strategy := StrategyFor(a.kind)
	if strategy != StrategyOptimistic {
		if err := c.begin(nil); err != nil {
			return err
		}
		defer c.end(ctx)
		return c.confirm(ctx, a, strategy)
	}

	if err := c.begin(a.local); err != nil {
		if errors.Is(err, store.ErrNotLoaded) {
			return rejectf("board not loaded")
		}
		return err
	}

	bg := context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		_ = c.confirm(bg, a, strategy)
		c.end(bg)
	}()
	return nil
}

// begin applies patch, if any, and counts the action as pending. Both happen
// under pendingMu so settle never replaces the tree between the two.
func (c *Coordinator) begin(patch func(tree *board.Board) error) error {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if patch != nil {
		if err := c.store.Patch(patch); err != nil {
			return err
		}
	}
	c.pending++
	if c.pending > 1 {
		c.overlapped = true
	}
	return nil
}

// end marks an action reconciled. When the last of a group of overlapping
// actions ends, the server may have committed them in a different order than
// they were patched locally, so the tree is settled from a fresh fetch.
func (c *Coordinator) end(ctx context.Context) {
	c.pendingMu.Lock()
	c.pending--
	due := c.pending == 0 && c.overlapped
	if due {
		c.overlapped = false
	}
	c.pendingMu.Unlock()

	if due {
		c.settle(context.WithoutCancel(ctx))
	}
}

// settle replaces the tree with the server's, unless another action started
// while the fetch was running. That action's own end settles again.
func (c *Coordinator) settle(ctx context.Context) {
	c.resyncMu.Lock()
	defer c.resyncMu.Unlock()

	callCtx, cancel := c.callContext(ctx)
	tree, err := c.gw.FetchBoard(callCtx)
	cancel()
	if err == nil && tree == nil {
		err = errors.New("no board")
	}
	if err != nil {
		c.logger.WithField("error", err.Error()).Warn("failed to settle after overlapping actions")
		return
	}

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.pending > 0 {
		c.overlapped = true
		return
	}
	c.store.Replace(tree)
	c.logger.WithField("version", c.store.Version()).Debug("settled after overlapping actions")
}

// confirm runs the remote phase and reconciles its outcome.
func (c *Coordinator) confirm(ctx context.Context, a *action, strategy Strategy) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "coordinator."+a.kind.String(),
		trace.WithAttributes(
			attribute.String("kanban.kind", a.kind.String()),
			attribute.String("kanban.strategy", strategy.String()),
			attribute.String("kanban.entity_id", a.entityID),
		))
	defer span.End()

	callCtx, cancel := c.callContext(ctx)
	err := a.remote(callCtx)
	cancel()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, gateway.Message(err))
		c.fail(ctx, a, strategy, err)
		return err
	}

	switch {
	case a.refetch:
		if err := c.Resync(ctx); err != nil {
			span.RecordError(err)
		}
	case a.merge != nil:
		c.merge(a)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Coordinator) merge(a *action) {
	err := c.store.Patch(a.merge)
	switch {
	case err == nil:
	case errors.Is(err, errStale):
		c.logger.WithFields(logrus.Fields{
			"kind":      a.kind.String(),
			"entity_id": a.entityID,
		}).Debug("ignoring result for entity no longer in local state")
	default:
		c.logger.WithFields(logrus.Fields{
			"kind":      a.kind.String(),
			"entity_id": a.entityID,
			"error":     err.Error(),
		}).Warn("failed to merge remote result")
	}
}

func (c *Coordinator) fail(ctx context.Context, a *action, strategy Strategy, err error) {
	c.logger.WithFields(logrus.Fields{
		"kind":      a.kind.String(),
		"strategy":  strategy.String(),
		"entity_id": a.entityID,
		"error":     err.Error(),
	}).Warn("remote call failed")

	f := Failure{Kind: a.kind, Strategy: strategy, EntityID: a.entityID, Err: err}
	if strategy == StrategyOptimistic {
		if rerr := c.Resync(ctx); rerr != nil {
			f.ResyncErr = rerr
		} else {
			f.Resynced = true
		}
	}
	c.notifier.Notify(f)
}
