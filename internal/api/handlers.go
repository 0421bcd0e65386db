// Package api exposes the board operations as JSON RPC over HTTP.
//
// Every operation is POST /rpc/{op} with a gateway.Request body and a
// gateway.Response reply. Refused operations answer 200 with success false
// and an error message; unexpected failures answer 500.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dyluth/kanban/internal/gateway"
)

const maxRequestSize = 1 << 20

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

// Register wires up all API routes on the provided Echo instance. Operations
// are served by gw, which is normally a *gateway.RedisGateway.
func Register(e *echo.Echo, gw gateway.Gateway, health HealthFunc, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.POST("/rpc/:op", rpc(gw, logger))
	e.GET("/healthz", healthz(health))
}

func healthz(health HealthFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if health != nil {
			if err := health(c.Request().Context()); err != nil {
				return c.String(http.StatusServiceUnavailable, err.Error())
			}
		}
		return c.NoContent(http.StatusOK)
	}
}

type handler func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error)

var handlers = map[string]handler{
	gateway.OpFetchBoard: func(ctx context.Context, gw gateway.Gateway, _ *gateway.Request) (*gateway.Response, error) {
		b, err := gw.FetchBoard(ctx)
		return &gateway.Response{Board: b}, err
	},
	gateway.OpCreateBoard: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		b, err := gw.CreateBoard(ctx, req.Name, req.Type)
		return &gateway.Response{Board: b}, err
	},
	gateway.OpUpdateBoard: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		b, err := gw.UpdateBoard(ctx, req.ID, req.Name)
		return &gateway.Response{Board: b}, err
	},
	gateway.OpCreateColumn: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		col, err := gw.CreateColumn(ctx, req.BoardID, req.Name, req.Order)
		return &gateway.Response{Column: col}, err
	},
	gateway.OpUpdateColumn: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		col, err := gw.UpdateColumn(ctx, req.ID, req.Name, req.Order)
		return &gateway.Response{Column: col}, err
	},
	gateway.OpDeleteColumn: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		id, err := gw.DeleteColumn(ctx, req.ColumnID)
		return &gateway.Response{ColumnID: id}, err
	},
	gateway.OpMoveColumn: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{}, gw.MoveColumn(ctx, req.ColumnID, req.Order)
	},
	gateway.OpCreateCard: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		card, err := gw.CreateCard(ctx, req.ColumnID, req.Title, req.Description, req.Order)
		return &gateway.Response{Card: card}, err
	},
	gateway.OpUpdateCard: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		card, err := gw.UpdateCard(ctx, req.ID, req.Title, req.Description)
		return &gateway.Response{Card: card}, err
	},
	gateway.OpDeleteCard: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{}, gw.DeleteCard(ctx, req.ID)
	},
	gateway.OpMoveCard: func(ctx context.Context, gw gateway.Gateway, req *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{}, gw.MoveCard(ctx, req.CardID, req.ColumnID, req.Order)
	},
	gateway.OpFixCardOrders: func(ctx context.Context, gw gateway.Gateway, _ *gateway.Request) (*gateway.Response, error) {
		n, err := gw.FixCardOrders(ctx)
		return &gateway.Response{Changed: n}, err
	},
}

func rpc(gw gateway.Gateway, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		op := c.Param("op")
		start := time.Now()
		status := http.StatusOK
		var opErr error
		defer func() {
			fields := log.Fields{
				"op":          op,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if opErr != nil {
				fields["error"] = opErr.Error()
			}
			entry := logger.WithFields(fields)
			if status >= http.StatusInternalServerError {
				entry.Error("rpc failed")
			} else {
				entry.Info("rpc")
			}
		}()

		h, ok := handlers[op]
		if !ok {
			status = http.StatusNotFound
			return reply(c, status, &gateway.Response{Error: "unknown operation " + op})
		}

		req, decodeErr := decodeRequest(c.Request().Body)
		if decodeErr != nil {
			status = http.StatusBadRequest
			opErr = decodeErr
			return reply(c, status, &gateway.Response{Error: "invalid body"})
		}

		resp, opErr := h(c.Request().Context(), gw, req)
		switch {
		case opErr == nil:
			resp.Success = true
		case gateway.IsApplicationError(opErr):
			resp = &gateway.Response{Error: gateway.Message(opErr)}
		default:
			status = http.StatusInternalServerError
			resp = &gateway.Response{Error: opErr.Error()}
		}
		return reply(c, status, resp)
	}
}

// decodeRequest reads a gateway.Request. An empty body is an empty request.
func decodeRequest(body io.Reader) (*gateway.Request, error) {
	req := &gateway.Request{}
	if body == nil {
		return req, nil
	}
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(body, maxRequestSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return req, nil
}

func reply(c echo.Context, status int, resp *gateway.Response) error {
	body, err := sonic.Marshal(resp)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	return c.JSONBlob(status, body)
}
