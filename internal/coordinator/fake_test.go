package coordinator

import (
	"context"
	"sync"

	"github.com/dyluth/kanban/internal/gateway"
	"github.com/dyluth/kanban/pkg/board"
)

// call records one gateway invocation.
type call struct {
	op   string
	args []interface{}
}

// fakeGateway wraps a real gateway and lets tests fail or hold individual
// operations. Operations not overridden pass straight through.
type fakeGateway struct {
	gateway.Gateway

	mu       sync.Mutex
	failures map[string]error
	gates    map[string]chan struct{}
	calls    []call
}

func newFakeGateway(inner gateway.Gateway) *fakeGateway {
	return &fakeGateway{
		Gateway:  inner,
		failures: map[string]error{},
		gates:    map[string]chan struct{}{},
	}
}

// failWith makes every later call to op return err.
func (f *fakeGateway) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *fakeGateway) clearFailure(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, op)
}

// hold blocks calls to op until the returned release func is called.
func (f *fakeGateway) hold(op string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[op] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, op)
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *fakeGateway) callsTo(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGateway) before(ctx context.Context, op string, args ...interface{}) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{op: op, args: args})
	err := f.failures[op]
	gate := f.gates[op]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeGateway) FetchBoard(ctx context.Context) (*board.Board, error) {
	if err := f.before(ctx, gateway.OpFetchBoard); err != nil {
		return nil, err
	}
	return f.Gateway.FetchBoard(ctx)
}

func (f *fakeGateway) CreateBoard(ctx context.Context, name string, typ board.EntityType) (*board.Board, error) {
	if err := f.before(ctx, gateway.OpCreateBoard, name, typ); err != nil {
		return nil, err
	}
	return f.Gateway.CreateBoard(ctx, name, typ)
}

func (f *fakeGateway) UpdateBoard(ctx context.Context, id, name string) (*board.Board, error) {
	if err := f.before(ctx, gateway.OpUpdateBoard, id, name); err != nil {
		return nil, err
	}
	return f.Gateway.UpdateBoard(ctx, id, name)
}

func (f *fakeGateway) CreateColumn(ctx context.Context, boardID, name string, order int) (*board.Column, error) {
	if err := f.before(ctx, gateway.OpCreateColumn, boardID, name, order); err != nil {
		return nil, err
	}
	return f.Gateway.CreateColumn(ctx, boardID, name, order)
}

func (f *fakeGateway) UpdateColumn(ctx context.Context, id, name string, order int) (*board.Column, error) {
	if err := f.before(ctx, gateway.OpUpdateColumn, id, name, order); err != nil {
		return nil, err
	}
	return f.Gateway.UpdateColumn(ctx, id, name, order)
}

func (f *fakeGateway) DeleteColumn(ctx context.Context, columnID string) (string, error) {
	if err := f.before(ctx, gateway.OpDeleteColumn, columnID); err != nil {
		return "", err
	}
	return f.Gateway.DeleteColumn(ctx, columnID)
}

func (f *fakeGateway) MoveColumn(ctx context.Context, columnID string, order int) error {
	if err := f.before(ctx, gateway.OpMoveColumn, columnID, order); err != nil {
		return err
	}
	return f.Gateway.MoveColumn(ctx, columnID, order)
}

func (f *fakeGateway) CreateCard(ctx context.Context, columnID, title, description string, order int) (*board.Card, error) {
	if err := f.before(ctx, gateway.OpCreateCard, columnID, title, description, order); err != nil {
		return nil, err
	}
	return f.Gateway.CreateCard(ctx, columnID, title, description, order)
}

func (f *fakeGateway) UpdateCard(ctx context.Context, id, title, description string) (*board.Card, error) {
	if err := f.before(ctx, gateway.OpUpdateCard, id, title, description); err != nil {
		return nil, err
	}
	return f.Gateway.UpdateCard(ctx, id, title, description)
}

func (f *fakeGateway) DeleteCard(ctx context.Context, id string) error {
	if err := f.before(ctx, gateway.OpDeleteCard, id); err != nil {
		return err
	}
	return f.Gateway.DeleteCard(ctx, id)
}

func (f *fakeGateway) MoveCard(ctx context.Context, cardID, columnID string, order int) error {
	if err := f.before(ctx, gateway.OpMoveCard, cardID, columnID, order); err != nil {
		return err
	}
	return f.Gateway.MoveCard(ctx, cardID, columnID, order)
}

func (f *fakeGateway) FixCardOrders(ctx context.Context) (int, error) {
	if err := f.before(ctx, gateway.OpFixCardOrders); err != nil {
		return 0, err
	}
	return f.Gateway.FixCardOrders(ctx)
}
