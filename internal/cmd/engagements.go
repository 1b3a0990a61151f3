package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/observability"
	"github.com/parcelops/hubsync/internal/output"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Attach notes to deals",
}

var notesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a note on a deal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dealID, _ := cmd.Flags().GetString("deal")
		body, _ := cmd.Flags().GetString("body")

		return withSession(cmd, func(s *session) error {
			note, err := s.manager.CreateNote(cmd.Context(), dealID, body)
			if err != nil {
				return err
			}
			observability.CLILogger.Info("Created note", zap.String("id", note.ID), zap.String("deal_id", dealID))
			return render(cmd, func(f output.Formatter) (string, error) {
				return f.FormatObject(note)
			})
		})
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Create follow-up tasks on deals",
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task on a deal",
	Example: `  hubsync tasks create --deal 1001 --subject "Send renewal quote" --due 2026-11-02T09:00:00Z --priority high
  hubsync tasks create --deal 1001 --subject "Call back" --due 48h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := taskInput(cmd, time.Now())
		if err != nil {
			return err
		}

		return withSession(cmd, func(s *session) error {
			task, err := s.manager.CreateTask(cmd.Context(), input)
			if err != nil {
				return err
			}
			observability.CLILogger.Info("Created task", zap.String("id", task.ID), zap.String("deal_id", input.DealID))
			return render(cmd, func(f output.Formatter) (string, error) {
				return f.FormatObject(task)
			})
		})
	},
}

func taskInput(cmd *cobra.Command, now time.Time) (hubspot.TaskInput, error) {
	dealID, _ := cmd.Flags().GetString("deal")
	subject, _ := cmd.Flags().GetString("subject")
	body, _ := cmd.Flags().GetString("body")
	due, _ := cmd.Flags().GetString("due")
	priority, _ := cmd.Flags().GetString("priority")
	owner, _ := cmd.Flags().GetString("owner")

	dueAt, err := parseDue(due, now)
	if err != nil {
		return hubspot.TaskInput{}, err
	}

	return hubspot.TaskInput{
		DealID:   dealID,
		Subject:  subject,
		Body:     body,
		Due:      dueAt,
		Priority: priority,
		OwnerID:  owner,
	}, nil
}

// parseDue accepts an RFC 3339 timestamp, a date, or a duration from now. Empty means unset.
func parseDue(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return now.Add(d), nil
	}
	return time.Time{}, fmt.Errorf("%w: --due %q is not RFC3339, YYYY-MM-DD or a positive duration", hubspot.ErrInvalidInput, value)
}

func init() {
	notesCreateCmd.Flags().String("deal", "", "Deal id to attach the note to")
	notesCreateCmd.Flags().String("body", "", "Note text")
	_ = notesCreateCmd.MarkFlagRequired("deal")
	_ = notesCreateCmd.MarkFlagRequired("body")
	notesCmd.AddCommand(notesCreateCmd)

	tasksCreateCmd.Flags().String("deal", "", "Deal id to attach the task to")
	tasksCreateCmd.Flags().String("subject", "", "Task subject")
	tasksCreateCmd.Flags().String("body", "", "Task body")
	tasksCreateCmd.Flags().String("due", "", "Due time: RFC3339, YYYY-MM-DD, or a duration such as 48h")
	tasksCreateCmd.Flags().String("priority", hubspot.TaskPriorityMedium, "Priority: low|medium|high")
	tasksCreateCmd.Flags().String("owner", "", "Owner id (defaults to hubspot.default_owner_id)")
	_ = tasksCreateCmd.MarkFlagRequired("deal")
	_ = tasksCreateCmd.MarkFlagRequired("subject")
	tasksCmd.AddCommand(tasksCreateCmd)

	rootCmd.AddCommand(notesCmd, tasksCmd)
}
