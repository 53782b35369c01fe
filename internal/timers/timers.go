// Package timers holds the pomodoro and standup countdowns. They have no
// clock of their own; the caller advances them with Tick.
package timers

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Default durations
const (
	DefaultWork    = 25 * time.Minute
	DefaultBreak   = 5 * time.Minute
	DefaultStandup = 15 * time.Minute
	DefaultTurn    = 2 * time.Minute

	MinTurn = time.Minute
	MaxTurn = 10 * time.Minute
)

// StandupQuestions are shown while a standup runs
var StandupQuestions = []string{
	"What did you do yesterday?",
	"What will you do today?",
	"Any blockers?",
}

// Format renders d as MM:SS, rounding partial seconds up
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Phase is the current pomodoro phase
type Phase int

const (
	Work Phase = iota
	Break
)

func (p Phase) String() string {
	if p == Break {
		return "break"
	}
	return "work"
}

// Pomodoro alternates work and break phases. When a phase runs out the
// next one starts automatically.
type Pomodoro struct {
	work      time.Duration
	brk       time.Duration
	phase     Phase
	remaining time.Duration
	running   bool
	completed int
}

// NewPomodoro creates a stopped timer at the start of a work phase
func NewPomodoro(work, brk time.Duration) *Pomodoro {
	if work <= 0 {
		work = DefaultWork
	}
	if brk <= 0 {
		brk = DefaultBreak
	}
	return &Pomodoro{work: work, brk: brk, remaining: work}
}

func (p *Pomodoro) Phase() Phase             { return p.phase }
func (p *Pomodoro) Remaining() time.Duration { return p.remaining }
func (p *Pomodoro) Running() bool            { return p.running }

// Completed counts finished work phases
func (p *Pomodoro) Completed() int { return p.completed }

// Toggle starts or pauses the countdown
func (p *Pomodoro) Toggle() {
	p.running = !p.running
}

// Reset stops the timer and returns to a full work phase
func (p *Pomodoro) Reset() {
	p.running = false
	p.phase = Work
	p.remaining = p.work
}

// Tick advances a running timer by elapsed and reports whether a phase
// ended. Time left over after a phase ends counts against the next one.
func (p *Pomodoro) Tick(elapsed time.Duration) bool {
	if !p.running || elapsed <= 0 {
		return false
	}
	switched := false
	p.remaining -= elapsed
	for p.remaining <= 0 {
		switched = true
		if p.phase == Work {
			p.completed++
			p.phase = Break
			p.remaining += p.brk
		} else {
			p.phase = Work
			p.remaining += p.work
		}
	}
	return switched
}

func (p *Pomodoro) String() string {
	return fmt.Sprintf("%s %s", p.phase, Format(p.remaining))
}

// Standup counts down once. With speakers it instead gives each speaker a
// turn of the same length and moves on to the next one when a turn runs out.
type Standup struct {
	length    time.Duration
	turn      time.Duration
	speakers  []string
	current   int
	remaining time.Duration
	running   bool
	finished  bool
}

// NewStandup creates a stopped standup timer
func NewStandup(length time.Duration) *Standup {
	if length <= 0 {
		length = DefaultStandup
	}
	return &Standup{length: length, turn: DefaultTurn, remaining: length}
}

func (s *Standup) Remaining() time.Duration { return s.remaining }
func (s *Standup) Running() bool            { return s.running }
func (s *Standup) Finished() bool           { return s.finished }
func (s *Standup) Turn() time.Duration      { return s.turn }

// SetTurn sets the per-speaker turn, clamped to MinTurn..MaxTurn. A stopped
// timer shows the new length right away.
func (s *Standup) SetTurn(d time.Duration) {
	s.turn = min(max(d, MinTurn), MaxTurn)
	if !s.running && !s.finished {
		s.remaining = s.full()
	}
}

// AddSpeaker appends a speaker. Blank and duplicate names are refused.
func (s *Standup) AddSpeaker(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || slices.Contains(s.speakers, name) {
		return false
	}
	s.speakers = append(s.speakers, name)
	if !s.running && !s.finished {
		s.remaining = s.full()
	}
	return true
}

// RemoveSpeaker drops the speaker at i. Removing a speaker at or before
// the current one keeps the current turn pointing at the same person, or
// the next one when the current speaker leaves. A running standup that
// loses its last speaker stops.
func (s *Standup) RemoveSpeaker(i int) {
	if i < 0 || i >= len(s.speakers) {
		return
	}
	s.speakers = slices.Delete(s.speakers, i, i+1)
	if i < s.current {
		s.current--
	}
	if s.current >= len(s.speakers) {
		s.current = max(len(s.speakers)-1, 0)
	}
	if len(s.speakers) == 0 && s.running {
		s.Reset()
	}
}

// Speakers returns a copy of the speaker order
func (s *Standup) Speakers() []string {
	return slices.Clone(s.speakers)
}

// Speaker is whoever holds the current turn, or empty without speakers
func (s *Standup) Speaker() string {
	if len(s.speakers) == 0 {
		return ""
	}
	return s.speakers[s.current]
}

func (s *Standup) full() time.Duration {
	if len(s.speakers) > 0 {
		return s.turn
	}
	return s.length
}

// Start begins a fresh countdown from the first speaker. It does nothing
// while one is running.
func (s *Standup) Start() {
	if s.running {
		return
	}
	s.current = 0
	s.remaining = s.full()
	s.finished = false
	s.running = true
}

// Reset stops the standup
func (s *Standup) Reset() {
	s.running = false
	s.finished = false
	s.current = 0
	s.remaining = s.full()
}

// Next ends the current turn early. After the last speaker the standup
// finishes.
func (s *Standup) Next() {
	if !s.running {
		return
	}
	if s.current < len(s.speakers)-1 {
		s.current++
		s.remaining = s.turn
		return
	}
	s.finish()
}

func (s *Standup) finish() {
	s.remaining = 0
	s.running = false
	s.finished = true
}

// Tick advances a running standup and reports whether it just finished.
// Time left over after a turn ends counts against the next speaker.
func (s *Standup) Tick(elapsed time.Duration) bool {
	if !s.running || elapsed <= 0 {
		return false
	}
	s.remaining -= elapsed
	for s.remaining <= 0 {
		if s.current >= len(s.speakers)-1 {
			s.finish()
			return true
		}
		s.current++
		s.remaining += s.turn
	}
	return false
}

func (s *Standup) String() string {
	if s.finished {
		return "Time's Up!"
	}
	if len(s.speakers) == 0 {
		return "standup " + Format(s.remaining)
	}
	return fmt.Sprintf("standup %s %s (%d/%d)", s.Speaker(), Format(s.remaining), s.current+1, len(s.speakers))
}
