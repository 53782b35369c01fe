package timers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{25 * time.Minute, "25:00"},
		{59*time.Second + 500*time.Millisecond, "01:00"},
		{61 * time.Second, "01:01"},
		{0, "00:00"},
		{-time.Second, "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.d), tt.d.String())
	}
}

func TestPomodoroCycle(t *testing.T) {
	p := NewPomodoro(25*time.Minute, 5*time.Minute)
	assert.Equal(t, "work 25:00", p.String())

	assert.False(t, p.Tick(time.Minute), "stopped timers don't move")
	assert.Equal(t, 25*time.Minute, p.Remaining())

	p.Toggle()
	assert.False(t, p.Tick(24*time.Minute))
	assert.Equal(t, time.Minute, p.Remaining())

	assert.True(t, p.Tick(90*time.Second))
	assert.Equal(t, Break, p.Phase())
	assert.Equal(t, 4*time.Minute+30*time.Second, p.Remaining())
	assert.Equal(t, 1, p.Completed())
	assert.True(t, p.Running(), "next phase starts automatically")

	assert.True(t, p.Tick(5*time.Minute))
	assert.Equal(t, Work, p.Phase())
	assert.Equal(t, 24*time.Minute+30*time.Second, p.Remaining())

	p.Toggle()
	assert.False(t, p.Running())
	p.Reset()
	assert.Equal(t, Work, p.Phase())
	assert.Equal(t, 25*time.Minute, p.Remaining())
	assert.Equal(t, 1, p.Completed())
}

func TestPomodoroDefaults(t *testing.T) {
	p := NewPomodoro(0, -1)
	assert.Equal(t, DefaultWork, p.Remaining())
	p.Toggle()
	p.Tick(DefaultWork)
	assert.Equal(t, DefaultBreak, p.Remaining())
}

func TestStandup(t *testing.T) {
	s := NewStandup(15 * time.Minute)
	assert.False(t, s.Tick(time.Minute))

	s.Start()
	assert.False(t, s.Tick(14*time.Minute))
	assert.Equal(t, "standup 01:00", s.String())

	s.Start() // no restart while running
	assert.Equal(t, time.Minute, s.Remaining())

	assert.True(t, s.Tick(2*time.Minute))
	assert.True(t, s.Finished())
	assert.False(t, s.Running())
	assert.Equal(t, time.Duration(0), s.Remaining())
	assert.Equal(t, "Time's Up!", s.String())
	assert.False(t, s.Tick(time.Minute))

	s.Start()
	assert.Equal(t, 15*time.Minute, s.Remaining())
	s.Reset()
	assert.False(t, s.Running())
}

func TestStandupSpeakerRotation(t *testing.T) {
	s := NewStandup(15 * time.Minute)
	assert.True(t, s.AddSpeaker(" Ana "))
	assert.True(t, s.AddSpeaker("Bob"))
	assert.True(t, s.AddSpeaker("Cy"))
	assert.False(t, s.AddSpeaker("Bob"))
	assert.False(t, s.AddSpeaker("  "))
	assert.Equal(t, []string{"Ana", "Bob", "Cy"}, s.Speakers())
	assert.Equal(t, DefaultTurn, s.Remaining())

	s.Start()
	assert.Equal(t, "Ana", s.Speaker())
	assert.Equal(t, "standup Ana 02:00 (1/3)", s.String())

	// Overshoot carries into the next turn
	assert.False(t, s.Tick(2*time.Minute+10*time.Second))
	assert.Equal(t, "Bob", s.Speaker())
	assert.Equal(t, 110*time.Second, s.Remaining())

	s.Next()
	assert.Equal(t, "Cy", s.Speaker())
	assert.Equal(t, DefaultTurn, s.Remaining())

	assert.True(t, s.Tick(2*time.Minute))
	assert.True(t, s.Finished())
	assert.Equal(t, "Time's Up!", s.String())

	s.Start()
	assert.Equal(t, "Ana", s.Speaker())
	s.Next()
	s.Next()
	s.Next()
	assert.True(t, s.Finished())
}

func TestStandupTurnLength(t *testing.T) {
	s := NewStandup(15 * time.Minute)
	s.AddSpeaker("Ana")

	s.SetTurn(30 * time.Second)
	assert.Equal(t, MinTurn, s.Turn())
	s.SetTurn(time.Hour)
	assert.Equal(t, MaxTurn, s.Turn())
	s.SetTurn(3 * time.Minute)
	assert.Equal(t, 3*time.Minute, s.Remaining())
}

func TestStandupRemoveSpeaker(t *testing.T) {
	s := NewStandup(15 * time.Minute)
	for _, name := range []string{"Ana", "Bob", "Cy"} {
		s.AddSpeaker(name)
	}
	s.Start()
	s.Next()
	assert.Equal(t, "Bob", s.Speaker())

	s.RemoveSpeaker(0)
	assert.Equal(t, "Bob", s.Speaker())

	s.RemoveSpeaker(0)
	assert.Equal(t, "Cy", s.Speaker())

	s.RemoveSpeaker(5)
	assert.Equal(t, []string{"Cy"}, s.Speakers())

	s.RemoveSpeaker(0)
	assert.False(t, s.Running())
	assert.Equal(t, 15*time.Minute, s.Remaining())
	assert.Equal(t, "standup 15:00", s.String())
}
