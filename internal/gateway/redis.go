package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/kanban/pkg/board"
)

// RedisGateway runs every operation in-process against the authoritative
// Redis store.
type RedisGateway struct {
	client         *board.Client
	defaultColumns []string
}

var _ Gateway = (*RedisGateway)(nil)

// NewRedisGateway wraps client. defaultColumns are seeded when CreateBoard
// creates the first board.
func NewRedisGateway(client *board.Client, defaultColumns []string) *RedisGateway {
	return &RedisGateway{client: client, defaultColumns: defaultColumns}
}

// Classify maps a board.Client error to the gateway taxonomy: missing
// entities, invalid input and duplicate titles are application failures,
// everything else is transport. Returns nil for a nil err.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if board.IsNotFound(err) || errors.Is(err, board.ErrInvalid) || errors.Is(err, board.ErrDuplicateTitle) {
		return &Error{Op: op, Message: err.Error()}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (g *RedisGateway) FetchBoard(ctx context.Context) (*board.Board, error) {
	b, err := g.client.FetchBoard(ctx)
	return b, Classify(OpFetchBoard, err)
}

func (g *RedisGateway) CreateBoard(ctx context.Context, name string, typ board.EntityType) (*board.Board, error) {
	b, err := g.client.CreateBoard(ctx, name, typ, g.defaultColumns)
	return b, Classify(OpCreateBoard, err)
}

func (g *RedisGateway) UpdateBoard(ctx context.Context, id, name string) (*board.Board, error) {
	b, err := g.client.UpdateBoard(ctx, id, name)
	return b, Classify(OpUpdateBoard, err)
}

func (g *RedisGateway) CreateColumn(ctx context.Context, boardID, name string, order int) (*board.Column, error) {
	col, err := g.client.CreateColumn(ctx, boardID, name, order)
	return col, Classify(OpCreateColumn, err)
}

func (g *RedisGateway) UpdateColumn(ctx context.Context, id, name string, order int) (*board.Column, error) {
	col, err := g.client.UpdateColumn(ctx, id, name, order)
	return col, Classify(OpUpdateColumn, err)
}

func (g *RedisGateway) DeleteColumn(ctx context.Context, columnID string) (string, error) {
	if err := g.client.DeleteColumn(ctx, columnID); err != nil {
		return "", Classify(OpDeleteColumn, err)
	}
	return columnID, nil
}

func (g *RedisGateway) MoveColumn(ctx context.Context, columnID string, order int) error {
	_, err := g.client.MoveColumn(ctx, columnID, order)
	return Classify(OpMoveColumn, err)
}

func (g *RedisGateway) CreateCard(ctx context.Context, columnID, title, description string, order int) (*board.Card, error) {
	card, err := g.client.CreateCard(ctx, columnID, title, description, order)
	return card, Classify(OpCreateCard, err)
}

func (g *RedisGateway) UpdateCard(ctx context.Context, id, title, description string) (*board.Card, error) {
	card, err := g.client.UpdateCard(ctx, id, title, description)
	return card, Classify(OpUpdateCard, err)
}

func (g *RedisGateway) DeleteCard(ctx context.Context, id string) error {
	return Classify(OpDeleteCard, g.client.DeleteCard(ctx, id))
}

func (g *RedisGateway) MoveCard(ctx context.Context, cardID, columnID string, order int) error {
	_, err := g.client.MoveCard(ctx, cardID, columnID, order)
	return Classify(OpMoveCard, err)
}

func (g *RedisGateway) FixCardOrders(ctx context.Context) (int, error) {
	n, err := g.client.FixCardOrders(ctx)
	return n, Classify(OpFixCardOrders, err)
}
