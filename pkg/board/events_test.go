package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeBoardEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.SubscribeBoardEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	b, err := client.CreateBoard(ctx, "Main", EntityTypeBoard, nil)
	require.NoError(t, err)
	col, err := client.CreateColumn(ctx, b.ID, "To Do", -1)
	require.NoError(t, err)

	expect := []struct {
		kind EventKind
		typ  EntityType
		id   string
	}{
		{EventCreated, EntityTypeBoard, b.ID},
		{EventCreated, EntityTypeColumn, col.ID},
	}

	for _, want := range expect {
		select {
		case ev := <-sub.Events():
			require.NotNil(t, ev)
			assert.Equal(t, want.kind, ev.Kind)
			assert.Equal(t, want.typ, ev.EntityType)
			assert.Equal(t, want.id, ev.EntityID)
			assert.Equal(t, b.ID, ev.BoardID)
		case <-ctx.Done():
			t.Fatal("timed out waiting for board event")
		}
	}
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	client, _ := setupTestClient(t)

	sub, err := client.SubscribeBoardEvents(context.Background())
	require.NoError(t, err)

	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was not closed")
	}
}
