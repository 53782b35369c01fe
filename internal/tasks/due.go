package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const dateLayout = "2006-01-02"

var dueParser = newDueParser()

func newDueParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDueDate accepts YYYY-MM-DD or natural language such as "tomorrow"
// or "next friday", relative to now. Due dates are calendar days, returned
// as midnight UTC of that day.
func ParseDueDate(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty due date")
	}
	if t, err := time.Parse(dateLayout, text); err == nil {
		return t, nil
	}

	r, err := dueParser.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due date %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("parse due date %q: no date found", text)
	}
	t := r.Time.In(now.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FormatDueDate renders a due date the way ParseDueDate accepts it
func FormatDueDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
