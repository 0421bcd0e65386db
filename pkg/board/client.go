package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrDuplicateTitle is returned when a card title already exists in the target column.
var ErrDuplicateTitle = errors.New("duplicate card title")

// ErrConflict is returned when a mutation or tree read keeps losing to
// concurrent writers.
var ErrConflict = errors.New("board changed concurrently")

// maxTxAttempts bounds the optimistic-lock retries of one mutation or read.
const maxTxAttempts = 100

// reader is the read subset shared by *redis.Client and *redis.Tx, so the
// same lookups serve plain reads and reads inside a WATCH.
type reader interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// writes queues a mutation's commands on a MULTI/EXEC pipeline.
type writes func(pipe redis.Pipeliner)

// Client is the authoritative, Redis-backed board store. It is what the remote
// side of the gateway persists through: every mutation validates its input,
// keeps sibling order values dense (0..n-1), and publishes a BoardEvent.
//
// The client is safe for concurrent use by multiple goroutines and processes.
// Mutations read and write under WATCH of the instance revision key, which
// each one increments, so concurrent read-modify-writes retry instead of
// overwriting each other. Tree reads retry until the revision is stable.
type Client struct {
	rdb          *redis.Client
	instanceName string
	now          func() time.Time
}

// NewClient creates a board client for the given instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		now:          time.Now,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the namespace all keys are written under.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// IsNotFound returns true if the error is (or wraps) redis.Nil.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// --- Boards ---

// ListBoards returns every board without columns, oldest first.
func (c *Client) ListBoards(ctx context.Context) ([]*Board, error) {
	return c.listBoards(ctx, c.rdb)
}

func (c *Client) listBoards(ctx context.Context, rd reader) ([]*Board, error) {
	ids, err := rd.SMembers(ctx, BoardsKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	boards := make([]*Board, 0, len(ids))
	for _, id := range ids {
		b, err := c.getBoard(ctx, rd, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		boards = append(boards, b)
	}

	sort.Slice(boards, func(i, j int) bool {
		if boards[i].CreatedAtMs != boards[j].CreatedAtMs {
			return boards[i].CreatedAtMs < boards[j].CreatedAtMs
		}
		return boards[i].ID < boards[j].ID
	})
	return boards, nil
}

// GetBoard retrieves a board without its columns.
// Returns an error wrapping redis.Nil if the board doesn't exist.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*Board, error) {
	return c.getBoard(ctx, c.rdb, boardID)
}

func (c *Client) getBoard(ctx context.Context, rd reader, boardID string) (*Board, error) {
	hashData, err := rd.HGetAll(ctx, BoardKey(c.instanceName, boardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read board from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, fmt.Errorf("board %s: %w", boardID, redis.Nil)
	}

	b, err := HashToBoard(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize board: %w", err)
	}
	return b, nil
}

// GetBoardTree retrieves a board with all of its columns and cards, each
// level sorted by order. The tree is a consistent snapshot: no mutation
// committed while it was being read.
func (c *Client) GetBoardTree(ctx context.Context, boardID string) (*Board, error) {
	var tree *Board
	err := c.snapshot(ctx, func() error {
		var err error
		tree, err = c.getBoardTree(ctx, c.rdb, boardID)
		return err
	})
	return tree, err
}

func (c *Client) getBoardTree(ctx context.Context, rd reader, boardID string) (*Board, error) {
	b, err := c.getBoard(ctx, rd, boardID)
	if err != nil {
		return nil, err
	}

	cols, err := c.listColumns(ctx, rd, boardID)
	if err != nil {
		return nil, err
	}
	for _, col := range cols {
		cards, err := c.listCards(ctx, rd, col.ID)
		if err != nil {
			return nil, err
		}
		col.Cards = cards
	}
	b.Columns = cols

	return b, nil
}

// FetchBoard returns the full tree of the active board (the oldest one) as a
// consistent snapshot. Returns (nil, nil) when no board exists yet.
func (c *Client) FetchBoard(ctx context.Context) (*Board, error) {
	var tree *Board
	err := c.snapshot(ctx, func() error {
		tree = nil
		boards, err := c.listBoards(ctx, c.rdb)
		if err != nil {
			return err
		}
		if len(boards) == 0 {
			return nil
		}
		tree, err = c.getBoardTree(ctx, c.rdb, boards[0].ID)
		return err
	})
	return tree, err
}

// CreateBoard creates the active board and seeds it with defaultColumns.
// Creation is idempotent: if a board already exists it is returned unchanged
// and no columns are seeded.
func (c *Client) CreateBoard(ctx context.Context, name string, typ EntityType, defaultColumns []string) (*Board, error) {
	if typ != EntityTypeBoard {
		return nil, fmt.Errorf("%w: cannot create board with type %q", ErrInvalid, typ)
	}

	now := c.now().UnixMilli()
	b := &Board{
		ID:          uuid.New().String(),
		Type:        EntityTypeBoard,
		Name:        strings.TrimSpace(name),
		Columns:     []*Column{},
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board: %w", err)
	}

	var seeded []*Column
	for _, colName := range defaultColumns {
		if strings.TrimSpace(colName) == "" {
			continue
		}
		seeded = append(seeded, &Column{
			ID:          uuid.New().String(),
			Type:        EntityTypeColumn,
			Name:        strings.TrimSpace(colName),
			Order:       len(seeded),
			BoardID:     b.ID,
			CreatedAtMs: now,
			UpdatedAtMs: now,
		})
	}

	var existing *Board
	err := c.mutate(ctx, "failed to write board to Redis", func(rd reader) (writes, error) {
		boards, err := c.listBoards(ctx, rd)
		if err != nil {
			return nil, err
		}
		if len(boards) > 0 {
			existing = boards[0]
			return nil, nil
		}
		existing = nil
		return func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, BoardKey(c.instanceName, b.ID), BoardToHash(b))
			pipe.SAdd(ctx, BoardsKey(c.instanceName), b.ID)
			for _, col := range seeded {
				pipe.HSet(ctx, ColumnKey(c.instanceName, col.ID), ColumnToHash(col))
				pipe.SAdd(ctx, BoardColumnsKey(c.instanceName, b.ID), col.ID)
			}
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := c.publish(ctx, EventCreated, EntityTypeBoard, b.ID, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBoard renames a board and returns it without columns.
func (c *Client) UpdateBoard(ctx context.Context, boardID, name string) (*Board, error) {
	name = strings.TrimSpace(name)

	var b *Board
	err := c.mutate(ctx, "failed to update board in Redis", func(rd reader) (writes, error) {
		var err error
		if b, err = c.getBoard(ctx, rd, boardID); err != nil {
			return nil, err
		}
		b.Name = name
		b.UpdatedAtMs = c.now().UnixMilli()
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("invalid board: %w", err)
		}
		return func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, BoardKey(c.instanceName, b.ID), "name", b.Name, "updated_at_ms", b.UpdatedAtMs)
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.publish(ctx, EventUpdated, EntityTypeBoard, b.ID, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

// --- Columns ---

// ListColumns returns a board's columns without cards, sorted by order.
func (c *Client) ListColumns(ctx context.Context, boardID string) ([]*Column, error) {
	return c.listColumns(ctx, c.rdb, boardID)
}

func (c *Client) listColumns(ctx context.Context, rd reader, boardID string) ([]*Column, error) {
	ids, err := rd.SMembers(ctx, BoardColumnsKey(c.instanceName, boardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}

	cols := make([]*Column, 0, len(ids))
	for _, id := range ids {
		col, err := c.getColumn(ctx, rd, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		cols = append(cols, col)
	}

	sort.Slice(cols, func(i, j int) bool {
		return positionLess(cols[i].Order, cols[j].Order, cols[i].CreatedAtMs, cols[j].CreatedAtMs, cols[i].ID, cols[j].ID)
	})
	return cols, nil
}

// GetColumn retrieves a column without its cards.
// Returns an error wrapping redis.Nil if the column doesn't exist.
func (c *Client) GetColumn(ctx context.Context, columnID string) (*Column, error) {
	return c.getColumn(ctx, c.rdb, columnID)
}

func (c *Client) getColumn(ctx context.Context, rd reader, columnID string) (*Column, error) {
	hashData, err := rd.HGetAll(ctx, ColumnKey(c.instanceName, columnID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read column from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, fmt.Errorf("column %s: %w", columnID, redis.Nil)
	}

	col, err := HashToColumn(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize column: %w", err)
	}
	return col, nil
}

// CreateColumn adds a column to a board at the given order. A negative or
// out-of-range order appends. Siblings at or after the position shift by one.
func (c *Client) CreateColumn(ctx context.Context, boardID, name string, order int) (*Column, error) {
	now := c.now().UnixMilli()
	col := &Column{
		ID:          uuid.New().String(),
		Type:        EntityTypeColumn,
		Name:        strings.TrimSpace(name),
		BoardID:     boardID,
		Cards:       []*Card{},
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	if err := col.Validate(); err != nil {
		return nil, fmt.Errorf("invalid column: %w", err)
	}

	err := c.mutate(ctx, "failed to write column to Redis", func(rd reader) (writes, error) {
		if _, err := c.getBoard(ctx, rd, boardID); err != nil {
			return nil, err
		}
		siblings, err := c.listColumns(ctx, rd, boardID)
		if err != nil {
			return nil, err
		}
		col.Order = 0
		siblings = insertColumn(siblings, col, order)

		return func(pipe redis.Pipeliner) {
			c.renumberColumns(ctx, pipe, siblings, now, col.ID)
			pipe.HSet(ctx, ColumnKey(c.instanceName, col.ID), ColumnToHash(col))
			pipe.SAdd(ctx, BoardColumnsKey(c.instanceName, boardID), col.ID)
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.publish(ctx, EventCreated, EntityTypeColumn, col.ID, boardID); err != nil {
		return nil, err
	}
	return col, nil
}

// UpdateColumn renames a column. A non-negative order that differs from the
// current one also moves the column, exactly as MoveColumn would.
func (c *Client) UpdateColumn(ctx context.Context, columnID, name string, order int) (*Column, error) {
	name = strings.TrimSpace(name)

	var col *Column
	err := c.mutate(ctx, "failed to update column in Redis", func(rd reader) (writes, error) {
		var err error
		if col, err = c.getColumn(ctx, rd, columnID); err != nil {
			return nil, err
		}
		col.Name = name
		col.UpdatedAtMs = c.now().UnixMilli()
		if err := col.Validate(); err != nil {
			return nil, fmt.Errorf("invalid column: %w", err)
		}
		return func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, ColumnKey(c.instanceName, col.ID), "name", col.Name, "updated_at_ms", col.UpdatedAtMs)
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if order >= 0 && order != col.Order {
		return c.MoveColumn(ctx, columnID, order)
	}

	if err := c.publish(ctx, EventUpdated, EntityTypeColumn, col.ID, col.BoardID); err != nil {
		return nil, err
	}
	return col, nil
}

// DeleteColumn removes a column together with every card it contains and
// renumbers the remaining columns.
func (c *Client) DeleteColumn(ctx context.Context, columnID string) error {
	var col *Column
	err := c.mutate(ctx, "failed to delete column from Redis", func(rd reader) (writes, error) {
		var err error
		if col, err = c.getColumn(ctx, rd, columnID); err != nil {
			return nil, err
		}
		cardIDs, err := rd.SMembers(ctx, ColumnCardsKey(c.instanceName, columnID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list cards of column: %w", err)
		}
		siblings, err := c.listColumns(ctx, rd, col.BoardID)
		if err != nil {
			return nil, err
		}
		remaining := siblings[:0]
		for _, s := range siblings {
			if s.ID != columnID {
				remaining = append(remaining, s)
			}
		}

		now := c.now().UnixMilli()
		return func(pipe redis.Pipeliner) {
			for _, id := range cardIDs {
				pipe.Del(ctx, CardKey(c.instanceName, id))
			}
			pipe.Del(ctx, ColumnCardsKey(c.instanceName, columnID), ColumnKey(c.instanceName, columnID))
			pipe.SRem(ctx, BoardColumnsKey(c.instanceName, col.BoardID), columnID)
			c.renumberColumns(ctx, pipe, remaining, now, "")
		}, nil
	})
	if err != nil {
		return err
	}

	return c.publish(ctx, EventDeleted, EntityTypeColumn, columnID, col.BoardID)
}

// MoveColumn places a column at the given position among its siblings and
// renumbers the board's columns to 0..n-1.
func (c *Client) MoveColumn(ctx context.Context, columnID string, order int) (*Column, error) {
	var col *Column
	err := c.mutate(ctx, "failed to move column in Redis", func(rd reader) (writes, error) {
		var err error
		if col, err = c.getColumn(ctx, rd, columnID); err != nil {
			return nil, err
		}
		siblings, err := c.listColumns(ctx, rd, col.BoardID)
		if err != nil {
			return nil, err
		}
		others := siblings[:0]
		for _, s := range siblings {
			if s.ID != columnID {
				others = append(others, s)
			}
		}
		ordered := insertColumn(others, col, order)

		now := c.now().UnixMilli()
		return func(pipe redis.Pipeliner) {
			c.renumberColumns(ctx, pipe, ordered, now, "")
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.publish(ctx, EventMoved, EntityTypeColumn, col.ID, col.BoardID); err != nil {
		return nil, err
	}
	return col, nil
}

// --- Cards ---

// ListCards returns a column's cards sorted by order.
func (c *Client) ListCards(ctx context.Context, columnID string) ([]*Card, error) {
	return c.listCards(ctx, c.rdb, columnID)
}

func (c *Client) listCards(ctx context.Context, rd reader, columnID string) ([]*Card, error) {
	ids, err := rd.SMembers(ctx, ColumnCardsKey(c.instanceName, columnID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	cards := make([]*Card, 0, len(ids))
	for _, id := range ids {
		card, err := c.getCard(ctx, rd, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		cards = append(cards, card)
	}

	sortCardsByPosition(cards)
	return cards, nil
}

// GetCard retrieves a card by ID.
// Returns an error wrapping redis.Nil if the card doesn't exist.
func (c *Client) GetCard(ctx context.Context, cardID string) (*Card, error) {
	return c.getCard(ctx, c.rdb, cardID)
}

func (c *Client) getCard(ctx context.Context, rd reader, cardID string) (*Card, error) {
	hashData, err := rd.HGetAll(ctx, CardKey(c.instanceName, cardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read card from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, fmt.Errorf("card %s: %w", cardID, redis.Nil)
	}

	card, err := HashToCard(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize card: %w", err)
	}
	return card, nil
}

// CreateCard adds a card to a column at the given order. A negative or
// out-of-range order appends. Titles must be unique within a column.
func (c *Client) CreateCard(ctx context.Context, columnID, title, description string, order int) (*Card, error) {
	now := c.now().UnixMilli()
	card := &Card{
		ID:          uuid.New().String(),
		Type:        EntityTypeCard,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		ColumnID:    columnID,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid card: %w", err)
	}

	var col *Column
	err := c.mutate(ctx, "failed to write card to Redis", func(rd reader) (writes, error) {
		var err error
		if col, err = c.getColumn(ctx, rd, columnID); err != nil {
			return nil, err
		}
		siblings, err := c.listCards(ctx, rd, columnID)
		if err != nil {
			return nil, err
		}
		for _, s := range siblings {
			if s.Title == card.Title {
				return nil, fmt.Errorf("%w: %q already exists in column %q", ErrDuplicateTitle, card.Title, col.Name)
			}
		}
		card.Order = 0
		siblings = insertCard(siblings, card, order)

		return func(pipe redis.Pipeliner) {
			c.renumberCards(ctx, pipe, siblings, now, card.ID)
			pipe.HSet(ctx, CardKey(c.instanceName, card.ID), CardToHash(card))
			pipe.SAdd(ctx, ColumnCardsKey(c.instanceName, columnID), card.ID)
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.publish(ctx, EventCreated, EntityTypeCard, card.ID, col.BoardID); err != nil {
		return nil, err
	}
	return card, nil
}

// UpdateCard replaces a card's title and description. Order and column are kept.
func (c *Client) UpdateCard(ctx context.Context, cardID, title, description string) (*Card, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	var card *Card
	err := c.mutate(ctx, "failed to update card in Redis", func(rd reader) (writes, error) {
		var err error
		if card, err = c.getCard(ctx, rd, cardID); err != nil {
			return nil, err
		}
		card.Title = title
		card.Description = description
		card.UpdatedAtMs = c.now().UnixMilli()
		if err := card.Validate(); err != nil {
			return nil, fmt.Errorf("invalid card: %w", err)
		}
		return func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, CardKey(c.instanceName, card.ID),
				"title", card.Title,
				"description", card.Description,
				"updated_at_ms", card.UpdatedAtMs,
			)
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.publish(ctx, EventUpdated, EntityTypeCard, card.ID, c.boardOf(ctx, card.ColumnID)); err != nil {
		return nil, err
	}
	return card, nil
}

// DeleteCard removes a card and renumbers its former siblings.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	var card *Card
	err := c.mutate(ctx, "failed to delete card from Redis", func(rd reader) (writes, error) {
		var err error
		if card, err = c.getCard(ctx, rd, cardID); err != nil {
			return nil, err
		}
		siblings, err := c.listCards(ctx, rd, card.ColumnID)
		if err != nil {
			return nil, err
		}
		remaining := withoutCard(siblings, cardID)

		now := c.now().UnixMilli()
		return func(pipe redis.Pipeliner) {
			pipe.Del(ctx, CardKey(c.instanceName, cardID))
			pipe.SRem(ctx, ColumnCardsKey(c.instanceName, card.ColumnID), cardID)
			c.renumberCards(ctx, pipe, remaining, now, "")
		}, nil
	})
	if err != nil {
		return err
	}

	return c.publish(ctx, EventDeleted, EntityTypeCard, cardID, c.boardOf(ctx, card.ColumnID))
}

// MoveCard moves a card to position order within columnID (which may be its
// current column). Both the source and destination columns are renumbered
// to 0..n-1. Moving a card onto its current position is a no-op.
func (c *Client) MoveCard(ctx context.Context, cardID, columnID string, order int) (*Card, error) {
	var (
		card  *Card
		dest  *Column
		moved bool
	)
	err := c.mutate(ctx, "failed to move card in Redis", func(rd reader) (writes, error) {
		var err error
		if card, err = c.getCard(ctx, rd, cardID); err != nil {
			return nil, err
		}
		if dest, err = c.getColumn(ctx, rd, columnID); err != nil {
			return nil, err
		}

		moved = false
		if card.ColumnID == columnID && card.Order == order {
			return nil, nil
		}

		destCards, err := c.listCards(ctx, rd, columnID)
		if err != nil {
			return nil, err
		}
		destCards = withoutCard(destCards, cardID)

		sourceID := card.ColumnID
		var sourceCards []*Card
		if sourceID != columnID {
			sourceCards, err = c.listCards(ctx, rd, sourceID)
			if err != nil {
				return nil, err
			}
			sourceCards = withoutCard(sourceCards, cardID)
		}

		now := c.now().UnixMilli()
		card.ColumnID = columnID
		card.UpdatedAtMs = now
		destCards = insertCard(destCards, card, order)
		moved = true

		return func(pipe redis.Pipeliner) {
			if sourceID != columnID {
				pipe.SRem(ctx, ColumnCardsKey(c.instanceName, sourceID), cardID)
				pipe.SAdd(ctx, ColumnCardsKey(c.instanceName, columnID), cardID)
				c.renumberCards(ctx, pipe, sourceCards, now, "")
			}
			c.renumberCards(ctx, pipe, destCards, now, card.ID)
			pipe.HSet(ctx, CardKey(c.instanceName, card.ID), CardToHash(card))
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		return card, nil
	}

	if err := c.publish(ctx, EventMoved, EntityTypeCard, card.ID, dest.BoardID); err != nil {
		return nil, err
	}
	return card, nil
}

// FixCardOrders renumbers the cards of every column on every board to
// 0..n-1, keeping their current relative order. Returns how many cards changed.
func (c *Client) FixCardOrders(ctx context.Context) (int, error) {
	boards, err := c.ListBoards(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, b := range boards {
		cols, err := c.ListColumns(ctx, b.ID)
		if err != nil {
			return changed, err
		}
		for _, col := range cols {
			n := 0
			err := c.mutate(ctx, "failed to renumber cards of column "+col.ID, func(rd reader) (writes, error) {
				cards, err := c.listCards(ctx, rd, col.ID)
				if err != nil {
					return nil, err
				}
				now := c.now().UnixMilli()
				return func(pipe redis.Pipeliner) {
					n = c.renumberCards(ctx, pipe, cards, now, "")
				}, nil
			})
			if err != nil {
				return changed, err
			}
			changed += n
		}
		if err := c.publish(ctx, EventReordered, EntityTypeBoard, b.ID, b.ID); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// --- transactions ---

// mutate runs one read-modify-write. prepare reads through rd, which is the
// watched connection, and returns the writes to commit, or nil to commit
// nothing. The writes and a revision bump go out in one MULTI/EXEC; if any
// other mutation committed since the WATCH, EXEC aborts and prepare runs
// again on fresh data. Errors from prepare are returned unwrapped.
func (c *Client) mutate(ctx context.Context, what string, prepare func(rd reader) (writes, error)) error {
	revision := RevisionKey(c.instanceName)

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		var prepareErr error
		err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
			queue, err := prepare(tx)
			if err != nil {
				prepareErr = err
				return err
			}
			if queue == nil {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				queue(pipe)
				pipe.Incr(ctx, revision)
				return nil
			})
			return err
		}, revision)

		switch {
		case err == nil:
			return nil
		case prepareErr != nil:
			return prepareErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return fmt.Errorf("%s: %w", what, err)
		}
	}
	return fmt.Errorf("%s: %w", what, ErrConflict)
}

// snapshot runs read until no mutation commits while it runs, so the data it
// assembles from several round trips is mutually consistent.
func (c *Client) snapshot(ctx context.Context, read func() error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		before, err := c.revision(ctx)
		if err != nil {
			return err
		}
		if err := read(); err != nil {
			return err
		}
		after, err := c.revision(ctx)
		if err != nil {
			return err
		}
		if before == after {
			return nil
		}
	}
	return fmt.Errorf("failed to read a consistent board: %w", ErrConflict)
}

func (c *Client) revision(ctx context.Context) (int64, error) {
	n, err := c.rdb.Get(ctx, RevisionKey(c.instanceName)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to read board revision: %w", err)
	}
	return n, nil
}

// --- helpers ---

// renumberColumns assigns Order = index to every column and queues a write
// for each one whose order changed. skipID is excluded from writes because
// the caller writes that column in full.
func (c *Client) renumberColumns(ctx context.Context, pipe redis.Pipeliner, cols []*Column, now int64, skipID string) int {
	changed := 0
	for i, col := range cols {
		if col.Order == i {
			continue
		}
		col.Order = i
		col.UpdatedAtMs = now
		changed++
		if col.ID == skipID {
			continue
		}
		pipe.HSet(ctx, ColumnKey(c.instanceName, col.ID), "order", i, "updated_at_ms", now)
	}
	return changed
}

// renumberCards is renumberColumns for cards.
func (c *Client) renumberCards(ctx context.Context, pipe redis.Pipeliner, cards []*Card, now int64, skipID string) int {
	changed := 0
	for i, card := range cards {
		if card.Order == i {
			continue
		}
		card.Order = i
		card.UpdatedAtMs = now
		changed++
		if card.ID == skipID {
			continue
		}
		pipe.HSet(ctx, CardKey(c.instanceName, card.ID), "order", i, "updated_at_ms", now)
	}
	return changed
}

// boardOf resolves the board owning a column for event payloads.
// Returns "" if the column cannot be read.
func (c *Client) boardOf(ctx context.Context, columnID string) string {
	col, err := c.GetColumn(ctx, columnID)
	if err != nil {
		return ""
	}
	return col.BoardID
}

// insertColumn inserts col at position (clamped; negative appends) and
// returns the new slice. Order values are left for renumberColumns.
func insertColumn(cols []*Column, col *Column, position int) []*Column {
	if position < 0 || position > len(cols) {
		position = len(cols)
	}
	cols = append(cols, nil)
	copy(cols[position+1:], cols[position:])
	cols[position] = col
	return cols
}

// insertCard is insertColumn for cards.
func insertCard(cards []*Card, card *Card, position int) []*Card {
	if position < 0 || position > len(cards) {
		position = len(cards)
	}
	cards = append(cards, nil)
	copy(cards[position+1:], cards[position:])
	cards[position] = card
	return cards
}

func withoutCard(cards []*Card, cardID string) []*Card {
	out := make([]*Card, 0, len(cards))
	for _, card := range cards {
		if card.ID != cardID {
			out = append(out, card)
		}
	}
	return out
}

func sortCardsByPosition(cards []*Card) {
	sort.Slice(cards, func(i, j int) bool {
		return positionLess(cards[i].Order, cards[j].Order, cards[i].CreatedAtMs, cards[j].CreatedAtMs, cards[i].ID, cards[j].ID)
	})
}

// positionLess orders siblings by order, then creation time, then ID so that
// listings are deterministic even when stored orders collide.
func positionLess(orderA, orderB int, createdA, createdB int64, idA, idB string) bool {
	if orderA != orderB {
		return orderA < orderB
	}
	if createdA != createdB {
		return createdA < createdB
	}
	return idA < idB
}
