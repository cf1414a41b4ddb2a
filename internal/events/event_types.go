package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketRescheduled   EventType = "ticket_rescheduled"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketDeleted       EventType = "ticket_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerName   string    `json:"customer_name"`
	CompanyName    string    `json:"company_name"`
	MeetDate       time.Time `json:"meet_date"`
	MeetTime       string    `json:"meet_time"`
	SupportUserIDs []string  `json:"support_user_ids"`
	AutoAssigned   bool      `json:"auto_assigned"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketRescheduledPayload payload.
type TicketRescheduledPayload struct {
	RescheduledDate time.Time `json:"rescheduled_date"`
	RescheduledTime string    `json:"rescheduled_time"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AddedUserIDs   []string `json:"added_user_ids,omitempty"`
	RemovedUserIDs []string `json:"removed_user_ids,omitempty"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	CustomerName string `json:"customer_name"`
}
