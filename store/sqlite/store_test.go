package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/VTGare/Tally/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) store.Store {
	t.Helper()

	st, err := New(path)
	require.NoError(t, err)
	require.NoError(t, st.Init(context.Background()))

	return st
}

func TestRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tally.db")

	st := openStore(t, path)

	counter := store.DefaultCounter("1", "10", "20", "token")
	require.NoError(t, st.UpsertCounter(ctx, counter))
	require.NoError(t, st.UpdateCount(ctx, "1", 7, "100"))
	require.NoError(t, st.AppendHistory(ctx, &store.HistoryEntry{
		GuildID: "1", UserID: "100", Number: 7, Timestamp: time.Now(),
	}))

	require.NoError(t, st.Close(ctx))

	// A restart must reproduce the exact counter state.
	st = openStore(t, path)
	defer st.Close(ctx)

	counters, err := st.Counters(ctx)
	require.NoError(t, err)
	require.Len(t, counters, 1)

	got := counters[0]
	assert.Equal(t, "1", got.GuildID)
	assert.Equal(t, "10", got.ChannelID)
	assert.Equal(t, "20", got.WebhookID)
	assert.Equal(t, "token", got.WebhookToken)
	assert.Equal(t, int64(7), got.CurrentCount)
	assert.Equal(t, "100", got.LastAuthorID)
}

func TestUpsertResetsCount(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, filepath.Join(t.TempDir(), "tally.db"))
	defer st.Close(ctx)

	require.NoError(t, st.UpsertCounter(ctx, store.DefaultCounter("1", "10", "20", "token")))
	require.NoError(t, st.UpdateCount(ctx, "1", 12, "100"))

	// Rebinding the channel restarts the count.
	require.NoError(t, st.UpsertCounter(ctx, store.DefaultCounter("1", "11", "21", "token2")))

	got, err := st.Counter(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "11", got.ChannelID)
	assert.Equal(t, int64(0), got.CurrentCount)
	assert.Empty(t, got.LastAuthorID)
}

func TestCounterNotFound(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, filepath.Join(t.TempDir(), "tally.db"))
	defer st.Close(ctx)

	_, err := st.Counter(ctx, "404")
	assert.ErrorIs(t, err, store.ErrCounterNotFound)

	err = st.UpdateCount(ctx, "404", 1, "")
	assert.ErrorIs(t, err, store.ErrCounterNotFound)
}

func TestDeleteCounterRetainsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tally.db")
	st := openStore(t, path)
	defer st.Close(ctx)

	require.NoError(t, st.UpsertCounter(ctx, store.DefaultCounter("1", "10", "20", "token")))
	require.NoError(t, st.AppendHistory(ctx, &store.HistoryEntry{
		GuildID: "1", UserID: "100", Number: 1, Timestamp: time.Now(),
	}))

	require.NoError(t, st.DeleteCounter(ctx, "1"))

	_, err := st.Counter(ctx, "1")
	assert.ErrorIs(t, err, store.ErrCounterNotFound)

	// DeleteCounter is idempotent.
	require.NoError(t, st.DeleteCounter(ctx, "1"))

	// History rows survive the unbind.
	ss := st.(*sqliteStore)
	var rows int64
	require.NoError(t, ss.db.QueryRow(
		"SELECT COUNT(*) FROM counting_history WHERE guild_id = ?", "1",
	).Scan(&rows))
	assert.Equal(t, int64(1), rows)
}
