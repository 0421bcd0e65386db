package reorder

import (
	"math/rand"
	"testing"

	"github.com/dyluth/kanban/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(id, col string, order int) *board.Card {
	return &board.Card{ID: id, Type: board.EntityTypeCard, Title: id, Order: order, ColumnID: col}
}

// twoColumns builds "To Do" [A, B] and "Done" [].
func twoColumns() *board.Board {
	return &board.Board{
		ID:   "b",
		Type: board.EntityTypeBoard,
		Columns: []*board.Column{
			{ID: "todo", Type: board.EntityTypeColumn, Name: "To Do", Order: 0,
				Cards: []*board.Card{card("A", "todo", 0), card("B", "todo", 1)}},
			{ID: "done", Type: board.EntityTypeColumn, Name: "Done", Order: 1, Cards: []*board.Card{}},
		},
	}
}

func ids(col *board.Column) []string {
	out := make([]string, 0, len(col.Cards))
	for _, c := range col.Cards {
		out = append(out, c.ID)
	}
	return out
}

func orders(col *board.Column) []int {
	out := make([]int, 0, len(col.Cards))
	for _, c := range col.Cards {
		out = append(out, c.Order)
	}
	return out
}

func TestMoveCard_AcrossColumns(t *testing.T) {
	tree := twoColumns()

	ok := MoveCard(tree, Move{MovedID: "A", SourceID: "todo", SourceIndex: 0, DestinationID: "done", DestinationIndex: 0})
	require.True(t, ok)

	todo, done := tree.Columns[0], tree.Columns[1]
	assert.Equal(t, []string{"B"}, ids(todo))
	assert.Equal(t, []int{0}, orders(todo))
	assert.Equal(t, []string{"A"}, ids(done))
	assert.Equal(t, []int{0}, orders(done))
	assert.Equal(t, "done", done.Cards[0].ColumnID)
}

func TestMoveCard_WithinColumn(t *testing.T) {
	tree := twoColumns()
	todo := tree.Columns[0]
	todo.Cards = append(todo.Cards, card("C", "todo", 2))

	require.True(t, MoveCard(tree, Move{MovedID: "A", SourceID: "todo", DestinationID: "todo", DestinationIndex: 2}))
	assert.Equal(t, []string{"B", "C", "A"}, ids(todo))
	assert.Equal(t, []int{0, 1, 2}, orders(todo))

	require.True(t, MoveCard(tree, Move{MovedID: "C", SourceID: "todo", DestinationID: "todo", DestinationIndex: 0}))
	assert.Equal(t, []string{"C", "B", "A"}, ids(todo))
	assert.Equal(t, []int{0, 1, 2}, orders(todo))
}

func TestMoveCard_IndexIsClamped(t *testing.T) {
	tree := twoColumns()
	tree.Columns[1].Cards = []*board.Card{card("X", "done", 0)}

	require.True(t, MoveCard(tree, Move{MovedID: "A", SourceID: "todo", DestinationID: "done", DestinationIndex: 42}))
	assert.Equal(t, []string{"X", "A"}, ids(tree.Columns[1]))
	assert.Equal(t, 1, tree.Columns[1].Cards[1].Order)
}

func TestMoveCard_NoOps(t *testing.T) {
	cases := map[string]Move{
		"no destination":      {MovedID: "A", SourceID: "todo"},
		"card not in source":  {MovedID: "A", SourceID: "done", DestinationID: "todo"},
		"unknown card":        {MovedID: "Z", SourceID: "todo", DestinationID: "done"},
		"unknown destination": {MovedID: "A", SourceID: "todo", DestinationID: "nowhere"},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			tree := twoColumns()
			before := tree.Clone()
			assert.False(t, MoveCard(tree, m))
			assert.Equal(t, before, tree)
		})
	}

	assert.False(t, MoveCard(nil, Move{DestinationID: "x"}))
}

// Random moves within one column always leave dense orders matching positions
// and a consistent ColumnID.
func TestMoveCard_RandomSequencesStayDense(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := twoColumns()
	todo := tree.Columns[0]
	for _, id := range []string{"C", "D", "E", "F"} {
		todo.Cards = append(todo.Cards, card(id, "todo", len(todo.Cards)))
	}

	for i := 0; i < 200; i++ {
		moved := todo.Cards[rng.Intn(len(todo.Cards))].ID
		require.True(t, MoveCard(tree, Move{MovedID: moved, SourceID: "todo", DestinationID: "todo", DestinationIndex: rng.Intn(len(todo.Cards))}))

		for pos, c := range todo.Cards {
			require.Equal(t, pos, c.Order)
			require.Equal(t, "todo", c.ColumnID)
		}
	}
	assert.Len(t, todo.Cards, 6)
}

func TestMoveColumn(t *testing.T) {
	tree := twoColumns()
	tree.Columns = append(tree.Columns, &board.Column{ID: "doing", Type: board.EntityTypeColumn, Order: 2})

	require.True(t, MoveColumn(tree, "doing", 1))
	got := []string{tree.Columns[0].ID, tree.Columns[1].ID, tree.Columns[2].ID}
	assert.Equal(t, []string{"todo", "doing", "done"}, got)
	for i, col := range tree.Columns {
		assert.Equal(t, i, col.Order)
	}

	assert.False(t, MoveColumn(tree, "missing", 0))
}

func TestNormalize(t *testing.T) {
	col := &board.Column{ID: "c", Cards: []*board.Card{
		card("A", "stale", 9), nil, card("B", "c", 3),
	}}
	Normalize(col)

	assert.Equal(t, []string{"B", "A"}, ids(col))
	assert.Equal(t, []int{0, 1}, orders(col))
	assert.Equal(t, "c", col.Cards[1].ColumnID)
}
