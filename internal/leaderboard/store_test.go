package leaderboard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndTop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, e := range []Entry{
		{Player: "alice", Game: "snake", GameID: 1, Score: 120, TxHash: "tx-a"},
		{Player: "bob", Game: "snake", GameID: 2, Score: 300, TxHash: "tx-b"},
		{Player: "carol", Game: "snake", GameID: 3, Score: 50, TxHash: "tx-c"},
		{Player: "dave", Game: "tetris", GameID: 4, Score: 900, TxHash: "tx-d"},
	} {
		res, err := s.Save(ctx, e)
		require.NoError(t, err, "entry %d", i)
		require.True(t, res.Accepted)
	}

	top, err := s.Top(ctx, "snake", 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	require.Equal(t, "bob", top[0].Player)
	require.Equal(t, "alice", top[1].Player)
	require.Equal(t, "carol", top[2].Player)

	top, err = s.Top(ctx, "snake", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
}

func TestSaveDuplicateTxHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Save(ctx, Entry{Player: "alice", Game: "snake", GameID: 1, Score: 10, TxHash: "tx-1"})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	// Retrying the same tx is not an error.
	res, err = s.Save(ctx, Entry{Player: "alice", Game: "snake", GameID: 1, Score: 10, TxHash: "tx-1"})
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, "duplicate", res.Reason)

	top, err := s.Top(ctx, "snake", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
}

func TestSaveDuplicateSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Save(ctx, Entry{Player: "alice", Game: "merge2048", GameID: 7, Score: 40, TxHash: "tx-1"})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	// Same session under a fresh tx hash is still a duplicate.
	res, err = s.Save(ctx, Entry{Player: "alice", Game: "merge2048", GameID: 7, Score: 44, TxHash: "tx-2"})
	require.NoError(t, err)
	require.False(t, res.Accepted)
}

func TestSaveValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, Entry{Game: "snake", TxHash: "tx-1"})
	require.Error(t, err)

	_, err = s.Save(ctx, Entry{Player: "alice", Game: "snake"})
	require.Error(t, err)
}
