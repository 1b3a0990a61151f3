package hubspot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HubSpot-defined association type ids for engagements attached to deals.
const (
	noteToDealAssociation = 214
	taskToDealAssociation = 216
)

// Task priorities and statuses accepted by HubSpot.
const (
	TaskPriorityLow    = "LOW"
	TaskPriorityMedium = "MEDIUM"
	TaskPriorityHigh   = "HIGH"

	TaskStatusNotStarted = "NOT_STARTED"
)

// TaskInput describes a follow-up task attached to a deal.
type TaskInput struct {
	DealID   string
	Subject  string
	Body     string
	Due      time.Time
	Priority string
	OwnerID  string
}

// CreateNote attaches a note to a deal, timestamped now.
func (m *SyncManager) CreateNote(ctx context.Context, dealID, body string) (*Object, error) {
	dealID = strings.TrimSpace(dealID)
	if dealID == "" {
		return nil, fmt.Errorf("%w: deal id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: note body is required", ErrInvalidInput)
	}

	props := withDefaultOwner(map[string]string{
		"hs_note_body": body,
		"hs_timestamp": timestamp(m.clock.Now()),
	}, m.config.DefaultOwnerID)

	return m.createObject(ctx, ObjectNotes, objectInput{
		Properties:   props,
		Associations: []associationSpec{dealAssociation(dealID, noteToDealAssociation)},
	})
}

// CreateTask attaches a task to a deal. Due defaults to now and priority to MEDIUM.
func (m *SyncManager) CreateTask(ctx context.Context, input TaskInput) (*Object, error) {
	dealID := strings.TrimSpace(input.DealID)
	if dealID == "" {
		return nil, fmt.Errorf("%w: deal id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, fmt.Errorf("%w: task subject is required", ErrInvalidInput)
	}

	priority := strings.ToUpper(strings.TrimSpace(input.Priority))
	switch priority {
	case "":
		priority = TaskPriorityMedium
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
	default:
		return nil, fmt.Errorf("%w: unknown task priority %q", ErrInvalidInput, input.Priority)
	}

	due := input.Due
	if due.IsZero() {
		due = m.clock.Now()
	}

	props := map[string]string{
		"hs_task_subject":  input.Subject,
		"hs_task_status":   TaskStatusNotStarted,
		"hs_task_priority": priority,
		"hs_timestamp":     timestamp(due),
	}
	if input.Body != "" {
		props["hs_task_body"] = input.Body
	}
	if input.OwnerID != "" {
		props["hubspot_owner_id"] = input.OwnerID
	}

	return m.createObject(ctx, ObjectTasks, objectInput{
		Properties:   withDefaultOwner(props, m.config.DefaultOwnerID),
		Associations: []associationSpec{dealAssociation(dealID, taskToDealAssociation)},
	})
}

func timestamp(t time.Time) string {
	return strconv.FormatInt(t.UTC().UnixMilli(), 10)
}
