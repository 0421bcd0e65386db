// Package gateway is the client's view of the remote board API: one call per
// mutation kind, each returning the authoritative entity on success.
//
// Two kinds of failure surface from every call. An application failure means
// the remote side was reached and refused the operation; it is reported as a
// *Error carrying the server's message. Anything else (connection refused,
// timeout, undecodable reply) is a transport failure. Callers that reconcile
// local state treat both the same way; IsApplicationError exists so the
// message can be shown to the user.
//
// Mutations are never retried here.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/kanban/pkg/board"
)

// Operation names, shared by the HTTP transport and the API server routes.
const (
	OpFetchBoard    = "fetchBoard"
	OpCreateBoard   = "createBoard"
	OpUpdateBoard   = "updateBoard"
	OpCreateColumn  = "createColumn"
	OpUpdateColumn  = "updateColumn"
	OpDeleteColumn  = "deleteColumn"
	OpMoveColumn    = "moveColumn"
	OpCreateCard    = "createCard"
	OpUpdateCard    = "updateCard"
	OpDeleteCard    = "deleteCard"
	OpMoveCard      = "moveCard"
	OpFixCardOrders = "fixCardOrders"
)

// Gateway is the set of remote operations the coordinator drives.
type Gateway interface {
	// FetchBoard returns the active board tree, or (nil, nil) if none exists.
	FetchBoard(ctx context.Context) (*board.Board, error)
	CreateBoard(ctx context.Context, name string, typ board.EntityType) (*board.Board, error)
	UpdateBoard(ctx context.Context, id, name string) (*board.Board, error)

	CreateColumn(ctx context.Context, boardID, name string, order int) (*board.Column, error)
	UpdateColumn(ctx context.Context, id, name string, order int) (*board.Column, error)
	// DeleteColumn returns the id of the deleted column.
	DeleteColumn(ctx context.Context, columnID string) (string, error)
	MoveColumn(ctx context.Context, columnID string, order int) error

	CreateCard(ctx context.Context, columnID, title, description string, order int) (*board.Card, error)
	UpdateCard(ctx context.Context, id, title, description string) (*board.Card, error)
	DeleteCard(ctx context.Context, id string) error
	MoveCard(ctx context.Context, cardID, columnID string, order int) error

	// FixCardOrders renumbers every column's cards and returns how many changed.
	FixCardOrders(ctx context.Context) (int, error)
}

// Error is an application failure: the remote side answered but refused.
type Error struct {
	Op      string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// IsApplicationError reports whether err is (or wraps) a *Error.
func IsApplicationError(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr)
}

// Message returns the user-facing text of err: the server's message for an
// application failure, err.Error() otherwise.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
