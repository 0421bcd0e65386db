package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dyluth/kanban/pkg/board"
)

// maxResponseSize bounds how much of a reply body is read.
const maxResponseSize = 4 << 20

// HTTPGateway calls a kanband server over JSON RPC: POST {baseURL}/rpc/{op}.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates a gateway for baseURL. A zero timeout leaves
// deadlines entirely to the caller's context.
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// call posts req to op and decodes the reply. A reply with success false is
// returned as *Error; a 5xx status or undecodable body is a transport error.
func (g *HTTPGateway) call(ctx context.Context, op string, req *Request) (*Response, error) {
	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/rpc/"+op, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: HTTP request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%s: server error (%d): %s", op, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out Response
	if err := sonic.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%s: decode response (%d): %w", op, resp.StatusCode, err)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Op: op, Message: msg}
	}
	return &out, nil
}

func (g *HTTPGateway) FetchBoard(ctx context.Context) (*board.Board, error) {
	resp, err := g.call(ctx, OpFetchBoard, &Request{})
	if err != nil {
		return nil, err
	}
	return resp.Board, nil
}

func (g *HTTPGateway) CreateBoard(ctx context.Context, name string, typ board.EntityType) (*board.Board, error) {
	resp, err := g.call(ctx, OpCreateBoard, &Request{Name: name, Type: typ})
	if err != nil {
		return nil, err
	}
	return requireBoard(OpCreateBoard, resp)
}

func (g *HTTPGateway) UpdateBoard(ctx context.Context, id, name string) (*board.Board, error) {
	resp, err := g.call(ctx, OpUpdateBoard, &Request{ID: id, Name: name})
	if err != nil {
		return nil, err
	}
	return requireBoard(OpUpdateBoard, resp)
}

func (g *HTTPGateway) CreateColumn(ctx context.Context, boardID, name string, order int) (*board.Column, error) {
	resp, err := g.call(ctx, OpCreateColumn, &Request{BoardID: boardID, Name: name, Order: order})
	if err != nil {
		return nil, err
	}
	return requireColumn(OpCreateColumn, resp)
}

func (g *HTTPGateway) UpdateColumn(ctx context.Context, id, name string, order int) (*board.Column, error) {
	resp, err := g.call(ctx, OpUpdateColumn, &Request{ID: id, Name: name, Order: order})
	if err != nil {
		return nil, err
	}
	return requireColumn(OpUpdateColumn, resp)
}

func (g *HTTPGateway) DeleteColumn(ctx context.Context, columnID string) (string, error) {
	resp, err := g.call(ctx, OpDeleteColumn, &Request{ColumnID: columnID})
	if err != nil {
		return "", err
	}
	if resp.ColumnID == "" {
		return columnID, nil
	}
	return resp.ColumnID, nil
}

func (g *HTTPGateway) MoveColumn(ctx context.Context, columnID string, order int) error {
	_, err := g.call(ctx, OpMoveColumn, &Request{ColumnID: columnID, Order: order})
	return err
}

func (g *HTTPGateway) CreateCard(ctx context.Context, columnID, title, description string, order int) (*board.Card, error) {
	resp, err := g.call(ctx, OpCreateCard, &Request{ColumnID: columnID, Title: title, Description: description, Order: order})
	if err != nil {
		return nil, err
	}
	return requireCard(OpCreateCard, resp)
}

func (g *HTTPGateway) UpdateCard(ctx context.Context, id, title, description string) (*board.Card, error) {
	resp, err := g.call(ctx, OpUpdateCard, &Request{ID: id, Title: title, Description: description})
	if err != nil {
		return nil, err
	}
	return requireCard(OpUpdateCard, resp)
}

func (g *HTTPGateway) DeleteCard(ctx context.Context, id string) error {
	_, err := g.call(ctx, OpDeleteCard, &Request{ID: id})
	return err
}

func (g *HTTPGateway) MoveCard(ctx context.Context, cardID, columnID string, order int) error {
	_, err := g.call(ctx, OpMoveCard, &Request{CardID: cardID, ColumnID: columnID, Order: order})
	return err
}

func (g *HTTPGateway) FixCardOrders(ctx context.Context) (int, error) {
	resp, err := g.call(ctx, OpFixCardOrders, &Request{})
	if err != nil {
		return 0, err
	}
	return resp.Changed, nil
}

func requireBoard(op string, resp *Response) (*board.Board, error) {
	if resp.Board == nil {
		return nil, fmt.Errorf("%s: response missing board", op)
	}
	return resp.Board, nil
}

func requireColumn(op string, resp *Response) (*board.Column, error) {
	if resp.Column == nil {
		return nil, fmt.Errorf("%s: response missing column", op)
	}
	return resp.Column, nil
}

func requireCard(op string, resp *Response) (*board.Card, error) {
	if resp.Card == nil {
		return nil, fmt.Errorf("%s: response missing card", op)
	}
	return resp.Card, nil
}
