package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *[]Event) {
	t.Helper()
	var events []Event
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"), Config{
		Owner:    "owner",
		StartFee: decimal.RequireFromString("0.5"),
	}, func(e Event) { events = append(events, e) })
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, &events
}

func TestStartRequiresFee(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, _, err := l.Start(ctx, "alice", "snake", 1, []byte{0, 0, 0, 1}, decimal.RequireFromString("0.4"))
	require.ErrorIs(t, err, ErrInsufficientFee)

	// Failed starts must not create sessions.
	page, err := l.History(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestStartRefundsExcess(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, refund, err := l.Start(ctx, "alice", "snake", 1, []byte{0, 0, 0, 1}, decimal.RequireFromString("2"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", refund.String())

	s, err := l.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "0.5", s.FeePaid.String())
	assert.Equal(t, "1.5", s.Refund.String())

	balance, err := l.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.5", balance.String(), "only the configured fee is kept")
}

func TestAtMostOneActivePerPlayer(t *testing.T) {
	l, events := newTestLedger(t)
	ctx := context.Background()
	fee := decimal.NewFromInt(1)

	id1, _, err := l.Start(ctx, "alice", "snake", 1, []byte{1}, fee)
	require.NoError(t, err)
	*events = nil

	id2, _, err := l.Start(ctx, "alice", "tetris", 2, []byte{2}, fee)
	require.NoError(t, err)
	assert.Greater(t, id2, id1, "game ids are strictly increasing")

	// Abandoned(1) then Started(2), in that order.
	require.Len(t, *events, 2)
	assert.Equal(t, EventAbandoned, (*events)[0].Type)
	assert.Equal(t, "1", (*events)[0].Attributes["game_id"])
	assert.Equal(t, EventStarted, (*events)[1].Type)
	assert.Equal(t, "2", (*events)[1].Attributes["game_id"])

	s1, err := l.GetSession(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, StatusAbandoned, s1.Status)
	assert.NotNil(t, s1.EndedAt, "abandonment stamps the end time")

	active, err := l.ActiveSession(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, id2, active.ID)
	assert.Equal(t, []byte{2}, active.Payload)

	// Different players do not interfere.
	_, _, err = l.Start(ctx, "bob", "snake", 3, []byte{3}, fee)
	require.NoError(t, err)
	active, err = l.ActiveSession(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, id2, active.ID)

	// The stored event log files the abandonment under the abandoned
	// session, not the one that displaced it.
	evs, _, err := l.Events(ctx, id1)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, EventStarted, evs[0].Type)
	assert.Equal(t, EventAbandoned, evs[1].Type)

	evs, _, err = l.Events(ctx, id2)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, EventStarted, evs[0].Type)
}

func TestComplete(t *testing.T) {
	l, events := newTestLedger(t)
	ctx := context.Background()
	fee := decimal.NewFromInt(1)

	id, _, err := l.Start(ctx, "alice", "merge2048", 7, []byte{1, 2}, fee)
	require.NoError(t, err)

	moves := []byte{3, 3, 0}
	require.NoError(t, l.Complete(ctx, "alice", id, 128, moves))

	s, err := l.GetSessionWithPayload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status)
	require.NotNil(t, s.FinalScore)
	assert.EqualValues(t, 128, *s.FinalScore)
	assert.Equal(t, moves, s.Moves, "move bytes are stored verbatim")
	assert.NotNil(t, s.EndedAt)

	last := (*events)[len(*events)-1]
	assert.Equal(t, EventCompleted, last.Type)
	assert.Equal(t, "128", last.Attributes["score"])

	// No active session remains.
	active, err := l.ActiveSession(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestCompleteFailures(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	fee := decimal.NewFromInt(1)

	id, _, err := l.Start(ctx, "alice", "snake", 1, []byte{1}, fee)
	require.NoError(t, err)

	assert.ErrorIs(t, l.Complete(ctx, "mallory", id, 10, nil), ErrUnauthorized)
	assert.ErrorIs(t, l.Complete(ctx, "alice", id+100, 10, nil), ErrSessionNotFound)

	require.NoError(t, l.Complete(ctx, "alice", id, 10, nil))
	assert.ErrorIs(t, l.Complete(ctx, "alice", id, 10, nil), ErrNotActive,
		"duplicate completion is rejected")
}

func TestHistoryPagination(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	fee := decimal.NewFromInt(1)

	const n = 7
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, _, err := l.Start(ctx, "alice", "snake", uint32(i), []byte{byte(i)}, fee)
		require.NoError(t, err)
		require.NoError(t, l.Complete(ctx, "alice", id, int64(i*10), nil))
		ids = append(ids, id)
	}

	// Walk pages of 3 and reassemble the full list.
	var collected []int64
	for offset := 0; ; offset += 3 {
		page, err := l.History(ctx, "alice", 3, offset)
		require.NoError(t, err)
		assert.Equal(t, n, page.Total)
		if len(page.Sessions) == 0 {
			break
		}
		for _, s := range page.Sessions {
			collected = append(collected, s.ID)
		}
	}

	require.Len(t, collected, n, "pages union to the full history")
	for i, id := range collected {
		assert.Equal(t, ids[n-1-i], id, "most recent first")
	}

	// Offset past the end is an empty page, not an error.
	page, err := l.History(ctx, "alice", 3, 1000)
	require.NoError(t, err)
	assert.Empty(t, page.Sessions)

	// Unknown player likewise.
	page, err = l.History(ctx, "nobody", 3, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Sessions)
	assert.Equal(t, 0, page.Total)
}

func TestPlayerGames(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	fee := decimal.NewFromInt(1)

	id1, _, err := l.Start(ctx, "alice", "snake", 1, []byte{1}, fee)
	require.NoError(t, err)
	id2, _, err := l.Start(ctx, "alice", "tetris", 2, []byte{2}, fee)
	require.NoError(t, err)

	ids, err := l.PlayerGames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int64{id2, id1}, ids)
}

func TestAdminOps(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.ErrorIs(t, l.SetFee(ctx, "alice", decimal.NewFromInt(2)), ErrUnauthorized)
	require.NoError(t, l.SetFee(ctx, "owner", decimal.NewFromInt(2)))

	fee, err := l.Fee(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", fee.String())

	// Old fee no longer suffices.
	_, _, err = l.Start(ctx, "alice", "snake", 1, []byte{1}, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInsufficientFee)

	_, err = l.Withdraw(ctx, "owner")
	assert.ErrorIs(t, err, ErrNothingToWithdraw)

	_, _, err = l.Start(ctx, "alice", "snake", 1, []byte{1}, decimal.NewFromInt(2))
	require.NoError(t, err)

	got, err := l.Withdraw(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "2", got.String())

	_, err = l.Withdraw(ctx, "owner")
	assert.ErrorIs(t, err, ErrNothingToWithdraw)

	_, err = l.Withdraw(ctx, "alice")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSweep(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Sweep(ctx, "owner", "wbtc")
	assert.ErrorIs(t, err, ErrNothingToWithdraw)

	require.NoError(t, l.CreditToken(ctx, "wbtc", decimal.RequireFromString("0.25")))

	_, err = l.Sweep(ctx, "alice", "wbtc")
	assert.ErrorIs(t, err, ErrUnauthorized)

	got, err := l.Sweep(ctx, "owner", "wbtc")
	require.NoError(t, err)
	assert.Equal(t, "0.25", got.String())
}
