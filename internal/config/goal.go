package config

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tgienger/sprintdash/internal/analytics"
)

// SprintGoalSetting is the settings key holding a sprint goal changed at
// runtime. It overrides goals.sprint_hours.
const SprintGoalSetting = "sprint_goal"

// Settings is the key-value store runtime preferences are kept in
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// SprintGoal returns the saved sprint goal, or the configured one when
// nothing is saved
func (c *Config) SprintGoal(s Settings) (float64, error) {
	raw, err := s.GetSetting(SprintGoalSetting)
	if err != nil {
		return 0, fmt.Errorf("read sprint goal: %w", err)
	}
	if raw == "" {
		return c.Goals.SprintHours, nil
	}
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil || !validGoal(hours) {
		return c.Goals.SprintHours, nil
	}
	return hours, nil
}

// SaveSprintGoal stores a runtime sprint goal of at least MinSprintGoal hours
func SaveSprintGoal(s Settings, hours float64) error {
	if !validGoal(hours) {
		return fmt.Errorf("sprint goal must be at least %gh (got %g)", analytics.MinSprintGoal, hours)
	}
	if err := s.SetSetting(SprintGoalSetting, strconv.FormatFloat(hours, 'f', -1, 64)); err != nil {
		return fmt.Errorf("save sprint goal: %w", err)
	}
	return nil
}

func validGoal(hours float64) bool {
	return hours >= analytics.MinSprintGoal && !math.IsInf(hours, 1)
}

// RuntimeGoals is AnalyticsGoals with the saved sprint goal applied
func (c *Config) RuntimeGoals(s Settings) (analytics.Goals, error) {
	goals := c.AnalyticsGoals()
	hours, err := c.SprintGoal(s)
	if err != nil {
		return goals, err
	}
	goals.SprintHours = hours
	return goals, nil
}
