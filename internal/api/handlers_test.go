package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/kanban/internal/gateway"
	"github.com/dyluth/kanban/pkg/board"
)

var defaultColumns = []string{"To Do", "In Progress", "Done"}

// setupServer returns an echo instance backed by miniredis and the hook
// capturing its log entries.
func setupServer(t *testing.T) (*echo.Echo, *board.Client, *test.Hook) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	logger, hook := test.NewNullLogger()
	e := echo.New()
	Register(e, gateway.NewRedisGateway(client, defaultColumns), client.Ping, logger)
	return e, client, hook
}

func post(t *testing.T, e *echo.Echo, op string, body string) (*httptest.ResponseRecorder, gateway.Response) {
	req := httptest.NewRequest(http.MethodPost, "/rpc/"+op, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp gateway.Response
	if rec.Body.Len() > 0 {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealthz(t *testing.T) {
	e, _, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	e2 := echo.New()
	Register(e2, nil, func(context.Context) error { return errors.New("down") }, nil)
	rec = httptest.NewRecorder()
	e2.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRPC_CreateBoardAndFetch(t *testing.T) {
	e, _, hook := setupServer(t)

	rec, resp := post(t, e, gateway.OpFetchBoard, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Board)

	rec, resp = post(t, e, gateway.OpCreateBoard, `{"name":"My Kanban Board","type":"board"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Board)
	assert.Equal(t, "My Kanban Board", resp.Board.Name)

	_, resp = post(t, e, gateway.OpFetchBoard, "{}")
	require.NotNil(t, resp.Board)
	assert.Len(t, resp.Board.Columns, 3)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, gateway.OpFetchBoard, entry.Data["op"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Contains(t, entry.Data, "duration_ms")
}

func TestRPC_ApplicationFailure(t *testing.T) {
	e, _, hook := setupServer(t)

	rec, resp := post(t, e, gateway.OpDeleteColumn, `{"columnId":"00000000-0000-0000-0000-000000000000"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "redis: nil")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.InfoLevel, entry.Level)
	assert.Contains(t, entry.Data, "error")
}

func TestRPC_BadRequests(t *testing.T) {
	e, _, _ := setupServer(t)

	t.Run("unknown operation", func(t *testing.T) {
		rec, resp := post(t, e, "dropTables", "{}")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, resp.Success)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec, resp := post(t, e, gateway.OpCreateBoard, `{"nmae":"typo"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid body", resp.Error)
	})

	t.Run("malformed json", func(t *testing.T) {
		rec, _ := post(t, e, gateway.OpCreateBoard, `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRPC_CardLifecycle(t *testing.T) {
	e, client, _ := setupServer(t)
	ctx := context.Background()
	_, err := client.CreateBoard(ctx, "Main", board.EntityTypeBoard, defaultColumns)
	require.NoError(t, err)
	tree, err := client.FetchBoard(ctx)
	require.NoError(t, err)
	todo, done := tree.Columns[0], tree.Columns[2]

	body, _ := sonic.Marshal(&gateway.Request{ColumnID: todo.ID, Title: "Write docs", Order: -1})
	_, resp := post(t, e, gateway.OpCreateCard, string(body))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Card)
	cardID := resp.Card.ID

	_, resp = post(t, e, gateway.OpCreateCard, string(body))
	assert.False(t, resp.Success, "duplicate title is refused")
	assert.Contains(t, resp.Error, "duplicate card title")

	body, _ = sonic.Marshal(&gateway.Request{CardID: cardID, ColumnID: done.ID, Order: 0})
	_, resp = post(t, e, gateway.OpMoveCard, string(body))
	require.True(t, resp.Success)

	card, err := client.GetCard(ctx, cardID)
	require.NoError(t, err)
	assert.Equal(t, done.ID, card.ColumnID)

	body, _ = sonic.Marshal(&gateway.Request{ID: cardID})
	_, resp = post(t, e, gateway.OpDeleteCard, string(body))
	require.True(t, resp.Success)

	_, err = client.GetCard(ctx, cardID)
	assert.True(t, board.IsNotFound(err))
}

func TestRPC_TransportFailure(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	client, err := board.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	mr.Close()

	logger, hook := test.NewNullLogger()
	e := echo.New()
	Register(e, gateway.NewRedisGateway(client, defaultColumns), client.Ping, logger)

	rec, resp := post(t, e, gateway.OpFetchBoard, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
}

// HTTPGateway against the real routes covers both ends of the wire format.
func TestHTTPGateway_RoundTrip(t *testing.T) {
	e, _, _ := setupServer(t)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	gw := gateway.NewHTTPGateway(srv.URL+"/", 5*time.Second)
	ctx := context.Background()

	b, err := gw.CreateBoard(ctx, "Remote", board.EntityTypeBoard)
	require.NoError(t, err)

	col, err := gw.CreateColumn(ctx, b.ID, "Review", -1)
	require.NoError(t, err)
	assert.Equal(t, 3, col.Order)

	card, err := gw.CreateCard(ctx, col.ID, "Check", "carefully", -1)
	require.NoError(t, err)

	updated, err := gw.UpdateCard(ctx, card.ID, "Checked", "")
	require.NoError(t, err)
	assert.Equal(t, "Checked", updated.Title)

	require.NoError(t, gw.MoveColumn(ctx, col.ID, 0))
	renamed, err := gw.UpdateColumn(ctx, col.ID, "Reviewing", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, renamed.Order)

	_, err = gw.UpdateBoard(ctx, b.ID, "Renamed")
	require.NoError(t, err)

	n, err := gw.FixCardOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	tree, err := gw.FetchBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", tree.Name)
	assert.Equal(t, "Reviewing", tree.Columns[0].Name)
	require.Len(t, tree.Columns[0].Cards, 1)

	deleted, err := gw.DeleteColumn(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, col.ID, deleted)

	err = gw.DeleteCard(ctx, card.ID)
	assert.True(t, gateway.IsApplicationError(err), "card went with its column")
}

func TestReplyEncodesWithSonic(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(nil)), rec)

	require.NoError(t, reply(c, http.StatusOK, &gateway.Response{Success: true, ColumnID: "x"}))
	assert.JSONEq(t, `{"success":true,"columnId":"x"}`, rec.Body.String())
}
