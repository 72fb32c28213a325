package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistoryStore(t *testing.T) (*HistoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewHistoryStore(rdb, time.Hour, nil), mr
}

func TestHistoryStoreSaveAndLoad(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	history := []ChatMessage{
		{Role: ChatRoleUser, Content: "My name is John Smith"},
		{Role: ChatRoleAssistant, Content: "Thanks John!"},
	}
	require.NoError(t, store.Save(ctx, "sess-1", history))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, history, loaded)
}

func TestHistoryStoreLoadUnknownSession(t *testing.T) {
	store, _ := newTestHistoryStore(t)

	loaded, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestHistoryStoreSaveSetsTTL(t *testing.T) {
	store, mr := newTestHistoryStore(t)

	require.NoError(t, store.Save(context.Background(), "sess-1", []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}))
	assert.Greater(t, mr.TTL("chat:history:sess-1"), time.Duration(0))
}

func TestHistoryStoreExpiredSessionIsGone(t *testing.T) {
	store, mr := newTestHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}))
	mr.FastForward(2 * time.Hour)

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMarkNotifiedFirstWins(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	first, err := store.MarkNotified(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkNotified(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := store.MarkNotified(ctx, "sess-2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestNewHistoryStorePanicsOnNilClient(t *testing.T) {
	assert.Panics(t, func() {
		NewHistoryStore(nil, time.Hour, nil)
	})
}
