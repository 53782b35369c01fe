package views

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/sprintdash/internal/sessions"
)

func loadSessions(t *testing.T, v *SessionsView, sched *sessions.Scheduler) {
	t.Helper()
	slots, err := sched.Board(context.Background(), v.Date())
	require.NoError(t, err)
	v.Update(SessionsLoadedMsg{Date: v.Date(), Slots: slots})
}

func TestSessionsToggleClaimsAndReleases(t *testing.T) {
	store := newStore(t)
	sched := sessions.NewScheduler(store, "team", "alice", "QA", nil)
	v := NewSessionsView(context.Background(), sched, now)
	loadSessions(t, v, sched)

	v.Update(runes("j"))
	msg := run(t, press(t, v, tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, "Claimed 10:30 AM", msg.Text)

	loadSessions(t, v, sched)
	assert.Equal(t, sessions.Mine, v.slots[1].State)

	v.Update(runes("m"))
	require.Len(t, v.visible(), 1)
	msg = run(t, press(t, v, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}))
	assert.Equal(t, "Released 10:30 AM", msg.Text)

	loadSessions(t, v, sched)
	assert.Empty(t, v.visible())
}

func TestSessionsShowsOtherClaimant(t *testing.T) {
	store := newStore(t)
	bob := sessions.NewScheduler(store, "team", "bob", "Dev", nil)
	alice := sessions.NewScheduler(store, "team", "alice", "QA", nil)

	slot, err := sessions.ParseSlot(sessions.DateString(now), "10:00")
	require.NoError(t, err)
	require.NoError(t, bob.Claim(context.Background(), slot))

	v := NewSessionsView(context.Background(), alice, now)
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	loadSessions(t, v, alice)

	assert.Equal(t, sessions.Claimed, v.slots[0].State)
	assert.Contains(t, v.View(), "claimed by Dev")

	msg := press(t, v, tea.KeyMsg{Type: tea.KeyEnter})()
	status, ok := msg.(StatusMsg)
	require.True(t, ok)
	assert.ErrorIs(t, status.Err, sessions.ErrSlotClaimed)
}

func TestSessionsDayKeysAskForNewDate(t *testing.T) {
	v := NewSessionsView(context.Background(), nil, now)

	msg := press(t, v, runes("]"))()
	assert.Equal(t, SessionDateMsg{Date: "2025-03-13"}, msg)

	msg = press(t, v, runes("["))()
	assert.Equal(t, SessionDateMsg{Date: "2025-03-12"}, msg)

	stale := []sessions.SlotView{{Slot: sessions.Slots("2025-03-11")[0]}}
	v.Update(SessionsLoadedMsg{Date: "2025-03-11", Slots: stale})
	assert.False(t, v.loaded)
}
