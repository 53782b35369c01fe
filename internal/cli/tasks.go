package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tgienger/sprintdash/internal/export"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/tasks"
)

var errAmbiguousID = errors.New("ambiguous task id")

func parseStatus(s string) (models.Status, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	st := models.Status(norm)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown status %q (todo, inprogress, blocked, done)", s)
	}
	return st, nil
}

func parsePriority(s string) (models.Priority, error) {
	p := models.Priority(strings.ToLower(s))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown priority %q (low, medium, high)", s)
	}
	return p, nil
}

// resolveID accepts a full task id or a unique prefix of one
func resolveID(ctx context.Context, m *tasks.Manager, ref string) (models.Task, error) {
	list, err := m.ListTasks(ctx)
	if err != nil {
		return models.Task{}, err
	}
	var found []models.Task
	for _, t := range list {
		if t.ID == ref {
			return t, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return models.Task{}, fmt.Errorf("task %q not found", ref)
	case 1:
		return found[0], nil
	}
	return models.Task{}, fmt.Errorf("%w: %q matches %d tasks", errAmbiguousID, ref, len(found))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func hours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

func newAddCmd(e *env) *cobra.Command {
	var desc, assignee, priority, due string
	var estimate float64

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task to the todo column",
		Example: `  sprintdash add "Fix login redirect" --estimate 2 --assign bob --priority high
  sprintdash add "Write release notes" -e 1 --due "next friday"`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		n := tasks.NewTask{
			Title:        strings.Join(args, " "),
			Description:  desc,
			AssignedTo:   assignee,
			TimeEstimate: estimate,
		}
		if n.AssignedTo == "" {
			n.AssignedTo = e.cfg.Identity
		}
		if priority != "" {
			p, err := parsePriority(priority)
			if err != nil {
				return err
			}
			n.Priority = p
		}
		if due != "" {
			d, err := tasks.ParseDueDate(due, e.now())
			if err != nil {
				return err
			}
			n.DueDate = &d
		}

		id, err := e.tasks().AddTask(cmd.Context(), n)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q\n", shortID(id), strings.TrimSpace(n.Title))
		return nil
	})

	f := cmd.Flags()
	f.StringVarP(&desc, "desc", "d", "", "task description")
	f.StringVarP(&assignee, "assign", "a", "", "assignee (default is your identity)")
	f.Float64VarP(&estimate, "estimate", "e", 0, "estimated hours")
	f.StringVarP(&priority, "priority", "p", "", "low, medium or high (default medium)")
	f.StringVar(&due, "due", "", "due date: YYYY-MM-DD or natural language")
	_ = cmd.MarkFlagRequired("estimate")
	return cmd
}

func newListCmd(e *env) *cobra.Command {
	var filter tasks.Filter
	var priority, status string
	var asCSV, overdue bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List live tasks",
		Args:    cobra.NoArgs,
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		if priority != "" {
			p, err := parsePriority(priority)
			if err != nil {
				return err
			}
			filter.Priority = p
		}
		if status != "" {
			s, err := parseStatus(status)
			if err != nil {
				return err
			}
			filter.Status = s
		}

		list, err := e.tasks().ListTasks(cmd.Context())
		if err != nil {
			return err
		}
		list = filter.Apply(list)
		if overdue {
			list = tasks.Overdue(list, e.now())
		}

		if asCSV {
			return export.WriteCSV(cmd.OutOrStdout(), list)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
			return nil
		}
		if filter.Search == "" {
			tasks.SortByPriority(list)
		}
		fmt.Fprintln(cmd.OutOrStdout(), taskTable(list, e))
		return nil
	})

	f := cmd.Flags()
	f.StringVar(&filter.Assignee, "assignee", "", "only tasks assigned to this person")
	f.StringVar(&priority, "priority", "", "only tasks with this priority")
	f.StringVar(&status, "status", "", "only tasks in this column")
	f.StringVarP(&filter.Search, "search", "s", "", "fuzzy search over title, description and assignee")
	f.BoolVar(&overdue, "overdue", false, "only tasks past their due date")
	f.BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func taskTable(list []models.Task, e *env) string {
	now := e.now()
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		due := tasks.FormatDueDate(t.DueDate)
		if t.IsOverdue(now) {
			due += " !"
		}
		title := t.Title
		if t.Status == models.StatusBlocked && t.BlockReason != "" {
			title += " (" + t.BlockReason + ")"
		}
		rows = append(rows, []string{
			shortID(t.ID),
			t.Status.Label(),
			string(t.Priority),
			title,
			t.AssignedTo,
			hours(t.TimeEstimate),
			due,
		})
	}
	return newTable("ID", "STATUS", "PRIORITY", "TITLE", "ASSIGNEE", "EST", "DUE").
		Rows(rows...).
		Render()
}

func newMoveCmd(e *env) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Long: `Move a task to todo, inprogress, blocked or done. Moving to done
stamps the completion time; moving out of done clears it.`,
		Example: `  sprintdash move 3f2a done
  sprintdash move 3f2a blocked --reason "waiting on API keys"`,
		Args: cobra.ExactArgs(2),
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		status, err := parseStatus(args[1])
		if err != nil {
			return err
		}
		m := e.tasks()
		t, err := resolveID(cmd.Context(), m, args[0])
		if err != nil {
			return err
		}
		var r *string
		if cmd.Flags().Changed("reason") {
			r = &reason
		}
		if err := m.ChangeStatus(cmd.Context(), t.ID, status, r); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %q to %s\n", t.Title, status.Label())
		return nil
	})
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "block reason")
	return cmd
}

func newEditCmd(e *env) *cobra.Command {
	var title, desc, assignee, priority, due, reason string
	var estimate float64

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's details",
		Example: `  sprintdash edit 3f2a --title "Fix login redirect loop" --estimate 3
  sprintdash edit 3f2a --due ""`,
		Args: cobra.ExactArgs(1),
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		flags := cmd.Flags()
		var edit tasks.Edit
		if flags.Changed("title") {
			edit.Title = &title
		}
		if flags.Changed("desc") {
			edit.Description = &desc
		}
		if flags.Changed("assign") {
			edit.AssignedTo = &assignee
		}
		if flags.Changed("estimate") {
			edit.TimeEstimate = &estimate
		}
		if flags.Changed("reason") {
			edit.BlockReason = &reason
		}
		if flags.Changed("priority") {
			p, err := parsePriority(priority)
			if err != nil {
				return err
			}
			edit.Priority = &p
		}
		if flags.Changed("due") {
			if strings.TrimSpace(due) == "" {
				edit.ClearDueDate = true
			} else {
				d, err := tasks.ParseDueDate(due, e.now())
				if err != nil {
					return err
				}
				edit.DueDate = &d
			}
		}
		if edit.IsEmpty() {
			return errors.New("nothing to change; pass at least one flag")
		}

		m := e.tasks()
		t, err := resolveID(cmd.Context(), m, args[0])
		if err != nil {
			return err
		}
		if err := m.UpdateDetails(cmd.Context(), t.ID, edit); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", shortID(t.ID))
		return nil
	})

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "new title")
	f.StringVarP(&desc, "desc", "d", "", "new description")
	f.StringVarP(&assignee, "assign", "a", "", "new assignee")
	f.Float64VarP(&estimate, "estimate", "e", 0, "new estimate in hours")
	f.StringVarP(&priority, "priority", "p", "", "new priority")
	f.StringVar(&due, "due", "", "new due date; empty clears it")
	f.StringVarP(&reason, "reason", "r", "", "new block reason")
	return cmd
}

func newDeleteCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a live task",
		Args:    cobra.ExactArgs(1),
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		m := e.tasks()
		t, err := resolveID(cmd.Context(), m, args[0])
		if err != nil {
			return err
		}
		if err := m.DeleteTask(cmd.Context(), t.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", t.Title)
		return nil
	})
	return cmd
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(tableBorder).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		StyleFunc(tableStyle)
}
