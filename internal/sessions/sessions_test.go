package sessions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/models"
)

const day = "2025-03-10"

func newStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSlots(t *testing.T) {
	slots := Slots(day)
	require.Len(t, slots, 14)
	assert.Equal(t, "2025-03-10-10-0", slots[0].ID)
	assert.Equal(t, "10:00 AM", slots[0].Label())
	assert.Equal(t, "10:00", slots[0].Time())
	assert.Equal(t, "2025-03-10-16-30", slots[13].ID)
	assert.Equal(t, "4:30 PM", slots[13].Label())
	assert.Equal(t, "12:30 PM", slots[5].Label())
}

func TestParseSlot(t *testing.T) {
	s, err := ParseSlot(day, "14:30")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10-14-30", s.ID)

	back, err := ParseSlotID(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, back)

	for _, clock := range []string{"9:30", "17:00", "10:15", "noon"} {
		_, err := ParseSlot(day, clock)
		assert.ErrorIs(t, err, ErrUnknownSlot, clock)
	}
	_, err = ParseSlotID("2025-03-10-10")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = Lookup("10/03/2025", 10, 0)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	alice := NewScheduler(store, "team", "alice@example.com", "Lead", nil)
	bob := NewScheduler(store, "team", "bob@example.com", "Member", nil)

	slot, err := Lookup(day, 11, 30)
	require.NoError(t, err)

	require.NoError(t, alice.Claim(ctx, slot))
	assert.ErrorIs(t, bob.Claim(ctx, slot), ErrSlotClaimed)
	assert.ErrorIs(t, alice.Claim(ctx, slot), ErrSlotClaimed)

	board, err := bob.Board(ctx, day)
	require.NoError(t, err)
	view := board[3]
	require.Equal(t, slot.ID, view.ID)
	assert.Equal(t, Claimed, view.State)
	require.NotNil(t, view.Session)
	assert.Equal(t, "Lead", view.Session.ClaimedByRole)
	assert.Equal(t, "11:30", view.Session.Time)
	assert.False(t, view.Session.ClaimedAt.IsZero())

	board, err = alice.Board(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, Mine, board[3].State)
	assert.Len(t, MineOnly(board), 1)

	assert.ErrorIs(t, bob.Release(ctx, slot), ErrNotClaimant)
	require.NoError(t, alice.Release(ctx, slot))
	assert.ErrorIs(t, alice.Release(ctx, slot), ErrNotClaimed)

	require.NoError(t, bob.Claim(ctx, slot))
}

func TestClaimsAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	teamA := NewScheduler(store, "a", "alice", "Member", nil)
	teamB := NewScheduler(store, "b", "alice", "Member", nil)

	slot, err := Lookup(day, 10, 0)
	require.NoError(t, err)
	require.NoError(t, teamA.Claim(ctx, slot))
	require.NoError(t, teamB.Claim(ctx, slot))

	board, err := teamB.Board(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.Empty(t, MineOnly(board), "claims are per day")
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	s := NewScheduler(store, "team", "alice", "Member", nil)

	board, err := s.Board(ctx, day)
	require.NoError(t, err)
	require.NoError(t, s.Toggle(ctx, board[0]))

	board, err = s.Board(ctx, day)
	require.NoError(t, err)
	require.Equal(t, Mine, board[0].State)
	require.NoError(t, s.Toggle(ctx, board[0]))

	board, err = s.Board(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, Available, board[0].State)

	assert.ErrorIs(t, s.Toggle(ctx, SlotView{Slot: board[1].Slot, State: Claimed}), ErrSlotClaimed)
}

func TestBuildBoardIgnoresUnknownSlots(t *testing.T) {
	sessions := []models.Session{
		{SlotID: "2025-03-10-10-30", ClaimedBy: "me"},
		{SlotID: "2025-03-10-8-0", ClaimedBy: "me"},
	}
	board := BuildBoard(day, sessions, "me")
	require.Len(t, board, 14)
	assert.Equal(t, Mine, board[1].State)
	assert.Len(t, MineOnly(board), 1)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	alice := NewScheduler(store, "team", "alice", "Member", nil)
	bob := NewScheduler(store, "team", "bob", "Member", nil)

	got := make(chan []SlotView, 8)
	unsubscribe, err := alice.Subscribe(ctx, day, func(v []SlotView) { got <- v })
	require.NoError(t, err)
	defer unsubscribe()
	assert.Empty(t, MineOnly(<-got))

	slot, err := Lookup(day, 15, 0)
	require.NoError(t, err)
	require.NoError(t, bob.Claim(ctx, slot))

	select {
	case views := <-got:
		assert.Equal(t, Claimed, views[10].State)
	case <-time.After(2 * time.Second):
		t.Fatal("no board update")
	}
}
