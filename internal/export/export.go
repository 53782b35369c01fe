// Package export renders finished work for sharing outside the dashboard
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/tgienger/sprintdash/internal/analytics"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/tasks"
)

// ErrNothingToExport is returned when no task was completed on the day
var ErrNothingToExport = errors.New("no tasks completed today to export")

// ErrClipboardUnavailable is returned on systems without a clipboard tool
var ErrClipboardUnavailable = errors.New("clipboard not available")

// CompletedOn returns the done tasks whose completedDate falls on day's
// calendar date, in input order
func CompletedOn(all []models.Task, day time.Time) []models.Task {
	start := analytics.StartOfDay(day)
	end := start.AddDate(0, 0, 1)
	var out []models.Task
	for _, t := range all {
		if !t.IsDone() || t.CompletedDate == nil {
			continue
		}
		c := t.CompletedDate.In(day.Location())
		if !c.Before(start) && c.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

func hours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

// DailySummary lists the tasks completed on now's date:
//
//	Daily Accomplishments (3/10/2025):
//
//	- Fix login (Assigned: Bob, Estimate: 2h)
func DailySummary(all []models.Task, now time.Time) (string, error) {
	done := CompletedOn(all, now)
	if len(done) == 0 {
		return "", ErrNothingToExport
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Daily Accomplishments (%s):\n\n", now.Format("1/2/2006"))
	for _, t := range done {
		fmt.Fprintf(&sb, "- %s (Assigned: %s, Estimate: %s)\n", t.Title, t.AssignedTo, hours(t.TimeEstimate))
	}
	return sb.String(), nil
}

// CSVHeader is the first row written by WriteCSV
var CSVHeader = []string{"id", "title", "description", "assignedTo", "priority", "status", "timeEstimate", "dueDate", "createdDate", "completedDate", "blockReason"}

// WriteCSV writes tasks as CSV with a header row
func WriteCSV(w io.Writer, list []models.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, t := range list {
		row := []string{
			t.ID,
			t.Title,
			t.Description,
			t.AssignedTo,
			string(t.Priority),
			string(t.Status),
			strconv.FormatFloat(t.TimeEstimate, 'f', -1, 64),
			tasks.FormatDueDate(t.DueDate),
			formatTime(&t.CreatedDate),
			formatTime(t.CompletedDate),
			t.BlockReason,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// CopyToClipboard puts text on the system clipboard
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
