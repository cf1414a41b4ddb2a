package domain

import "time"

// HistoryChangeType classifies audit entries on a ticket.
type HistoryChangeType string

const (
	ChangeTypeStatus     HistoryChangeType = "status"
	ChangeTypeReschedule HistoryChangeType = "reschedule"
	ChangeTypeAssignees  HistoryChangeType = "assignees"
	ChangeTypeDocuments  HistoryChangeType = "documents"
)

// TicketHistory records one change applied to a ticket.
type TicketHistory struct {
	ID          string
	TicketID    string
	ChangedByID *string
	ChangeType  HistoryChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
