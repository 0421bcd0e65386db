package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/kanban/internal/api"
	"github.com/dyluth/kanban/internal/gateway"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/pkg/board"
)

const testInstance = "cli-test"

type cliEnv struct {
	t          *testing.T
	mr         *miniredis.Miniredis
	client     *board.Client
	configPath string
}

// setupCLI starts miniredis and writes a kanban.yml pointing at it.
func setupCLI(t *testing.T) *cliEnv {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, testInstance)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	env := &cliEnv{t: t, mr: mr, client: client}
	env.writeConfig(fmt.Sprintf(`version: "1.0"
instance: %s
board_name: Team Board
backend:
  mode: redis
  redis_url: redis://%s
timeout: 2s
default_columns: ["To Do", "Done"]
`, testInstance, mr.Addr()))
	return env
}

func (e *cliEnv) writeConfig(content string) {
	e.configPath = filepath.Join(e.t.TempDir(), "kanban.yml")
	require.NoError(e.t, os.WriteFile(e.configPath, []byte(content), 0o644))
}

// run executes the CLI with the given args and returns what it printed.
func (e *cliEnv) run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	restore := printer.SetOutput(&out, &errOut)
	defer restore()

	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	out, errOut, err := e.run(args...)
	require.NoError(e.t, err, "stderr: %s", errOut)
	return out
}

func (e *cliEnv) fetch() *board.Board {
	tree, err := e.client.FetchBoard(context.Background())
	require.NoError(e.t, err)
	require.NotNil(e.t, tree)
	return board.Materialize(tree)
}

func titles(col *board.Column) []string {
	out := make([]string, 0, len(col.Cards))
	for _, c := range col.Cards {
		out = append(out, c.Title)
	}
	return out
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	env := setupCLI(t)
	out := env.mustRun()
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "kanban")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	env := setupCLI(t)
	_, _, err := env.run("--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestBoardCommand(t *testing.T) {
	env := setupCLI(t)

	t.Run("creates the board on first use", func(t *testing.T) {
		out := env.mustRun("board")
		assert.Contains(t, out, "Board 'Team Board'")
		assert.Contains(t, out, "To Do")
		assert.Contains(t, out, "Done")

		b := env.fetch()
		require.Len(t, b.Columns, 2)
	})

	t.Run("json output", func(t *testing.T) {
		out := env.mustRun("board", "-o", "json")
		var decoded board.Board
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, "Team Board", decoded.Name)
	})

	t.Run("invalid output", func(t *testing.T) {
		_, errOut, err := env.run("board", "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, errOut, "invalid output format")
	})

	t.Run("rename", func(t *testing.T) {
		out := env.mustRun("board", "rename", "Release", "Train")
		assert.Contains(t, out, "Board renamed to 'Release Train'")
		assert.Equal(t, "Release Train", env.fetch().Name)
	})
}

func TestColumnCommands(t *testing.T) {
	env := setupCLI(t)
	env.mustRun("board")

	out := env.mustRun("column", "add", "Review")
	assert.Contains(t, out, "Column 'Review' added at position 2")

	env.mustRun("column", "mv", "review", "1")
	b := env.fetch()
	assert.Equal(t, "Review", b.Columns[1].Name)
	assert.Equal(t, 1, b.Columns[1].Order)

	env.mustRun("column", "rename", "Review", "QA")
	assert.Equal(t, "QA", env.fetch().Columns[1].Name)

	env.mustRun("card", "add", "QA", "Check build")
	out = env.mustRun("column", "rm", "qa")
	assert.Contains(t, out, "Column 'QA' deleted with 1 card")

	b = env.fetch()
	require.Len(t, b.Columns, 2)
	assert.Equal(t, 0, b.CardCount())

	t.Run("invalid position", func(t *testing.T) {
		_, errOut, err := env.run("column", "mv", "Done", "last")
		require.Error(t, err)
		assert.Contains(t, errOut, "invalid position")
	})

	t.Run("unknown column", func(t *testing.T) {
		_, errOut, err := env.run("column", "rename", "Nowhere", "X")
		require.Error(t, err)
		assert.Contains(t, errOut, "not found")
	})
}

func TestCardCommands(t *testing.T) {
	env := setupCLI(t)
	env.mustRun("board")

	out := env.mustRun("card", "add", "To Do", "Write docs", "-d", "for the API")
	assert.Contains(t, out, "Card 'Write docs' added to 'To Do'")
	env.mustRun("card", "add", "To Do", "Fix login")
	env.mustRun("card", "add", "Done", "Ship v1")

	b := env.fetch()
	todo := b.Columns[0]
	assert.Equal(t, []string{"Write docs", "Fix login"}, titles(todo))
	assert.Equal(t, "for the API", todo.Cards[0].Description)
	writeDocs := todo.Cards[0].ID

	t.Run("edit", func(t *testing.T) {
		env.mustRun("card", "edit", writeDocs[:8], "--title", "Write API docs")
		_, card, _ := env.fetch().FindCard(writeDocs)
		assert.Equal(t, "Write API docs", card.Title)
		assert.Equal(t, "for the API", card.Description)

		_, errOut, err := env.run("card", "edit", writeDocs[:8])
		require.Error(t, err)
		assert.Contains(t, errOut, "nothing to change")
	})

	t.Run("move to front of another column", func(t *testing.T) {
		out := env.mustRun("card", "mv", writeDocs, "Done", "--position", "0")
		assert.Contains(t, out, "moved to 'Done' at position 0")

		b := env.fetch()
		assert.Equal(t, []string{"Fix login"}, titles(b.Columns[0]))
		assert.Equal(t, []string{"Write API docs", "Ship v1"}, titles(b.Columns[1]))
		assert.Equal(t, 0, b.Columns[1].Cards[0].Order)
		assert.Equal(t, 1, b.Columns[1].Cards[1].Order)
	})

	t.Run("move to end of same column", func(t *testing.T) {
		env.mustRun("card", "mv", writeDocs, "Done")
		assert.Equal(t, []string{"Ship v1", "Write API docs"}, titles(env.fetch().Columns[1]))
	})

	t.Run("delete", func(t *testing.T) {
		out := env.mustRun("card", "rm", writeDocs)
		assert.Contains(t, out, "Card 'Write API docs' deleted")
		_, card, _ := env.fetch().FindCard(writeDocs)
		assert.Nil(t, card)
	})

	t.Run("duplicate title is reported after reload", func(t *testing.T) {
		_, errOut, err := env.run("card", "add", "To Do", "Fix login")
		require.ErrorIs(t, err, errActionFailed)
		assert.Contains(t, errOut, "add_card failed")
		assert.Contains(t, errOut, "board reloaded from server")
		assert.Equal(t, []string{"Fix login"}, titles(env.fetch().Columns[0]))
	})

	t.Run("empty title is rejected", func(t *testing.T) {
		_, errOut, err := env.run("card", "add", "To Do", "  ")
		require.Error(t, err)
		assert.Contains(t, errOut, "cannot add card")
		assert.Contains(t, errOut, "card title is required")
	})

	t.Run("short reference too short", func(t *testing.T) {
		_, errOut, err := env.run("card", "rm", "abc")
		require.Error(t, err)
		assert.Contains(t, errOut, "at least 6")
	})
}

func TestFixOrdersCommand(t *testing.T) {
	env := setupCLI(t)
	env.mustRun("board")
	env.mustRun("card", "add", "To Do", "a")
	env.mustRun("card", "add", "To Do", "b")

	out := env.mustRun("fix-orders")
	assert.Contains(t, out, "already consistent")

	cards := env.fetch().Columns[0].Cards
	env.mr.HSet(board.CardKey(testInstance, cards[0].ID), "order", "7")
	env.mr.HSet(board.CardKey(testInstance, cards[1].ID), "order", "3")

	out = env.mustRun("fix-orders")
	assert.Contains(t, out, "2 cards renumbered")
	assert.Equal(t, []string{"b", "a"}, titles(env.fetch().Columns[0]))
}

func TestWatchCommand(t *testing.T) {
	env := setupCLI(t)

	t.Run("invalid format", func(t *testing.T) {
		_, errOut, err := env.run("watch", "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, errOut, "invalid output format")
	})

	t.Run("invalid type", func(t *testing.T) {
		_, errOut, err := env.run("watch", "--type", "lane")
		require.Error(t, err)
		assert.Contains(t, errOut, "invalid entity type")
	})

	t.Run("streams events", func(t *testing.T) {
		type result struct {
			out string
			err error
		}
		done := make(chan result, 1)
		go func() {
			out, _, err := env.run("watch", "-o", "json", "--type", "card", "--limit", "1")
			done <- result{out, err}
		}()

		channel := board.BoardEventsChannel(testInstance)
		require.Eventually(t, func() bool {
			return env.mr.PubSubNumSub(channel)[channel] > 0
		}, 2*time.Second, 10*time.Millisecond)

		ctx := context.Background()
		b, err := env.client.CreateBoard(ctx, "Team Board", board.EntityTypeBoard, []string{"To Do"})
		require.NoError(t, err)
		tree, err := env.client.GetBoardTree(ctx, b.ID)
		require.NoError(t, err)
		card, err := env.client.CreateCard(ctx, tree.Columns[0].ID, "watched", "", -1)
		require.NoError(t, err)

		select {
		case r := <-done:
			require.NoError(t, r.err)
			var ev board.BoardEvent
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(r.out)), &ev))
			assert.Equal(t, card.ID, ev.EntityID)
			assert.Equal(t, board.EventCreated, ev.Kind)
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not return")
		}
	})

	t.Run("requires redis backend", func(t *testing.T) {
		env.writeConfig("version: \"1.0\"\nbackend:\n  mode: http\n  api_url: http://localhost:1\n")
		_, errOut, err := env.run("watch")
		require.Error(t, err)
		assert.Contains(t, errOut, "watch needs a Redis backend")
	})
}

func TestHTTPBackend(t *testing.T) {
	env := setupCLI(t)

	logger, _ := test.NewNullLogger()
	e := echo.New()
	api.Register(e, gateway.NewRedisGateway(env.client, []string{"Backlog"}), env.client.Ping, logger)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	env.writeConfig(fmt.Sprintf("version: \"1.0\"\nbackend:\n  mode: http\n  api_url: %s\ntimeout: 2s\n", srv.URL))

	out := env.mustRun("card", "add", "Backlog", "Over HTTP")
	assert.Contains(t, out, "Card 'Over HTTP' added to 'Backlog'")

	b := env.fetch()
	assert.Equal(t, "My Kanban Board", b.Name)
	assert.Equal(t, []string{"Over HTTP"}, titles(b.Columns[0]))

	_, errOut, err := env.run("card", "add", "Backlog", "Over HTTP")
	require.ErrorIs(t, err, errActionFailed)
	assert.Contains(t, errOut, "add_card failed")
}

func TestConfigErrors(t *testing.T) {
	env := setupCLI(t)

	env.writeConfig("version: \"1.0\"\nbackend:\n  mode: carrier-pigeon\n")
	_, errOut, err := env.run("board")
	require.Error(t, err)
	assert.Contains(t, errOut, "invalid configuration")

	env.writeConfig("version: \"1.0\"\nbackend:\n  redis_url: redis://127.0.0.1:1\ntimeout: 200ms\n")
	_, errOut, err = env.run("board")
	require.Error(t, err)
	assert.Contains(t, errOut, "Redis connection failed")
}

func TestBoardCommand_Filters(t *testing.T) {
	env := setupCLI(t)
	env.mustRun("card", "add", "To Do", "Login bug")
	env.mustRun("card", "add", "Done", "Docs")

	out := env.mustRun("board", "--title", "*login*")
	assert.Contains(t, out, "Login bug")
	assert.NotContains(t, out, "Docs")
	assert.Contains(t, out, "1 card in 2 columns")

	out = env.mustRun("board", "--since", "1h", "-o", "jsonl")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	out = env.mustRun("board", "--until", "2000-01-01")
	assert.Contains(t, out, "0 cards in 2 columns")

	_, errOut, err := env.run("board", "--since", "soon")
	require.Error(t, err)
	assert.Contains(t, errOut, "invalid time range")
}

func TestInitCommand(t *testing.T) {
	env := &cliEnv{t: t, configPath: filepath.Join(t.TempDir(), "kanban.yml")}

	out := env.mustRun("init", "--instance", "team", "--columns", "Backlog,Done")
	assert.Contains(t, out, "Created "+env.configPath)

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "instance: team")
	assert.Contains(t, string(data), `- "Backlog"`)

	_, errOut, err := env.run("init")
	require.Error(t, err)
	assert.Contains(t, errOut, "already exists")

	env.mustRun("init", "--force")
	data, err = os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "instance: default")
}

func TestReportAddedCard(t *testing.T) {
	view := &board.Board{ID: "b", Type: board.EntityTypeBoard, Columns: []*board.Column{
		{ID: "c1", Type: board.EntityTypeColumn, Name: "To Do", Cards: []*board.Card{
			{ID: "card-1", Type: board.EntityTypeCard, Title: "Ship it", ColumnID: "c1"},
		}},
	}}

	cases := []struct {
		name     string
		view     *board.Board
		columnID string
		want     string
	}{
		{"confirmed card", view, "c1", "Card 'Ship it' added to 'To Do'"},
		{"column gone after reload", view, "missing", "Card 'Ship it' added"},
		{"board gone after reload", nil, "c1", "Card 'Ship it' added"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			restore := printer.SetOutput(&out, &out)
			defer restore()

			assert.NotPanics(t, func() { reportAddedCard(tc.view, tc.columnID, " Ship it ") })
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

func TestCardMove_MissingEntities(t *testing.T) {
	view := &board.Board{ID: "b", Type: board.EntityTypeBoard, Columns: []*board.Column{
		{ID: "c1", Type: board.EntityTypeColumn, Cards: []*board.Card{}},
	}}

	m := cardMove(view, "gone", "c1", -1)
	assert.Equal(t, "gone", m.MovedID)
	assert.Equal(t, "c1", m.DestinationID)
	assert.Empty(t, m.SourceID)
}
