package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tgienger/sprintdash/internal/excuses"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/sessions"
	"github.com/tgienger/sprintdash/internal/tasks"
)

func newExcuseCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "excuse",
		Short: "Log and judge excuses",
	}
	cmd.AddCommand(newExcuseAddCmd(e), newExcuseListCmd(e), newExcuseJudgeCmd(e))
	return cmd
}

func newExcuseAddCmd(e *env) *cobra.Command {
	var who, meeting, date string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Log an excuse",
		Example: `  sprintdash excuse add "The staging server was haunted" --who bob
  sprintdash excuse add "Dentist" --who carol --meeting planning --date yesterday`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		in := excuses.NewExcuse{
			Text:        strings.Join(args, " "),
			AssignedTo:  who,
			MeetingType: models.MeetingType(meeting),
		}
		if date != "" {
			d, err := tasks.ParseDueDate(date, e.now())
			if err != nil {
				return err
			}
			in.Date = d
		}
		id, err := e.excuses().Add(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged excuse %s\n", shortID(id))
		return nil
	})
	cmd.Flags().StringVarP(&who, "who", "w", "", "who gave the excuse")
	cmd.Flags().StringVarP(&meeting, "meeting", "m", "standup", "meeting type: standup, retrospective, planning, demo or other")
	cmd.Flags().StringVar(&date, "date", "", "day of the meeting, YYYY-MM-DD or natural language (default today)")
	_ = cmd.MarkFlagRequired("who")
	return cmd
}

func newExcuseListCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List logged excuses, newest first",
		Args:    cobra.NoArgs,
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		list, err := e.excuses().List(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(w, "No excuses logged.")
			return nil
		}
		rows := make([][]string, 0, len(list))
		for _, x := range list {
			rows = append(rows, []string{
				shortID(x.ID),
				x.Date.UTC().Format("Jan 2"),
				x.MeetingType.Label(),
				x.AssignedTo,
				string(x.Verdict()),
				x.Text,
			})
		}
		fmt.Fprintln(w, newTable("ID", "DATE", "MEETING", "WHO", "VERDICT", "EXCUSE").Rows(rows...).Render())
		t := excuses.Count(list)
		fmt.Fprintf(w, "%d valid, %d invalid, %d pending\n", t.Valid, t.Invalid, t.Pending)
		fmt.Fprintf(w, "%d excuses today\n", len(excuses.Today(list, e.now())))
		return nil
	})
	return cmd
}

// resolveExcuse accepts a full excuse id or a unique prefix of one
func resolveExcuse(ctx context.Context, log *excuses.Log, ref string) (models.Excuse, error) {
	list, err := log.List(ctx)
	if err != nil {
		return models.Excuse{}, err
	}
	var found []models.Excuse
	for _, x := range list {
		if x.ID == ref {
			return x, nil
		}
		if strings.HasPrefix(x.ID, ref) {
			found = append(found, x)
		}
	}
	switch len(found) {
	case 0:
		return models.Excuse{}, fmt.Errorf("excuse %q not found", ref)
	case 1:
		return found[0], nil
	}
	return models.Excuse{}, fmt.Errorf("%w: %q matches %d excuses", errAmbiguousID, ref, len(found))
}

func newExcuseJudgeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judge <id> <valid|invalid|pending>",
		Short: "Record a verdict on an excuse",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		verdict, err := models.ParseVerdict(args[1])
		if err != nil {
			return err
		}
		log := e.excuses()
		x, err := resolveExcuse(cmd.Context(), log, args[0])
		if err != nil {
			return err
		}
		if err := log.Judge(cmd.Context(), x.ID, verdict); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %s %s\n", shortID(x.ID), verdict)
		return nil
	})
	return cmd
}

func newSessionCmd(e *env) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Claim and release support session slots",
		Long: `Support sessions are booked in 30 minute slots from 10:00 to 17:00.
Slots are given by their start time, e.g. 10:30 or 14:00.`,
	}
	cmd.PersistentFlags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")

	day := func() string {
		if date != "" {
			return date
		}
		return sessions.DateString(e.now())
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the day's slots",
		Args:    cobra.NoArgs,
	}
	list.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		board, err := e.sessions().Board(cmd.Context(), day())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(board))
		for _, sv := range board {
			who := ""
			if sv.Session != nil {
				who = sv.Session.ClaimedBy
				if sv.Session.ClaimedByRole != "" {
					who += " (" + sv.Session.ClaimedByRole + ")"
				}
			}
			rows = append(rows, []string{sv.Time(), sv.State.String(), who})
		}
		fmt.Fprintln(cmd.OutOrStdout(), newTable("SLOT", "STATE", "CLAIMED BY").Rows(rows...).Render())
		return nil
	})

	claim := &cobra.Command{
		Use:   "claim <H:MM>",
		Short: "Claim a slot",
		Args:  cobra.ExactArgs(1),
	}
	claim.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		slot, err := sessions.ParseSlot(day(), args[0])
		if err != nil {
			return err
		}
		if err := e.sessions().Claim(cmd.Context(), slot); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Claimed %s on %s\n", slot.Label(), slot.Date)
		return nil
	})

	release := &cobra.Command{
		Use:   "release <H:MM>",
		Short: "Release a slot you claimed",
		Args:  cobra.ExactArgs(1),
	}
	release.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		slot, err := sessions.ParseSlot(day(), args[0])
		if err != nil {
			return err
		}
		if err := e.sessions().Release(cmd.Context(), slot); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Released %s on %s\n", slot.Label(), slot.Date)
		return nil
	})

	cmd.AddCommand(list, claim, release)
	return cmd
}
