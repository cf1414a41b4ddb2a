package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload. DocumentIDs and SupportUserIDs are honored
// for admin callers only.
type CreateTicketRequest struct {
	CustomerName   string   `json:"customer_name"`
	CompanyName    string   `json:"company_name"`
	CompanyAddress string   `json:"company_address"`
	MeetDate       Date     `json:"meet_date"`
	MeetTime       string   `json:"meet_time"`
	DocumentIDs    []string `json:"document_ids"`
	SupportUserIDs []string `json:"support_user_ids"`
}

// UpdateTicketRequest is the PATCH payload. Pointer fields absent from the
// body are untouched; the reschedule fields distinguish absent from an
// explicit null.
type UpdateTicketRequest struct {
	CustomerName   *string `json:"customer_name"`
	CompanyName    *string `json:"company_name"`
	CompanyAddress *string `json:"company_address"`
	MeetDate       *Date   `json:"meet_date"`
	MeetTime       *string `json:"meet_time"`
	Status         *string `json:"status"`

	RescheduledDate domain.Optional[Date]   `json:"rescheduled_date"`
	RescheduledTime domain.Optional[string] `json:"rescheduled_time"`

	DocumentsToAdd       []string `json:"documents_to_add"`
	DocumentsToRemove    []string `json:"documents_to_remove"`
	SupportUsersToAdd    []string `json:"support_users_to_add"`
	SupportUsersToRemove []string `json:"support_users_to_remove"`
}

// RescheduleTicketRequest is the customer reschedule payload.
type RescheduleTicketRequest struct {
	RescheduledDate Date   `json:"rescheduled_date"`
	RescheduledTime string `json:"rescheduled_time"`
}

// TicketResponse is the wire shape of a ticket with expanded relations.
type TicketResponse struct {
	ID              string                `json:"id"`
	CustomerUserID  string                `json:"customer_user_id"`
	CustomerName    string                `json:"customer_name"`
	CompanyName     string                `json:"company_name"`
	CompanyAddress  string                `json:"company_address"`
	MeetDate        string                `json:"meet_date"`
	MeetTime        string                `json:"meet_time"`
	Status          domain.TicketStatus   `json:"status"`
	RescheduledDate *string               `json:"rescheduled_date"`
	RescheduledTime *string               `json:"rescheduled_time"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Documents       []DocumentResponse    `json:"documents"`
	SupportUsers    []SupportUserResponse `json:"support_users"`
}

// TicketDetailResponse adds the audit history to a ticket.
type TicketDetailResponse struct {
	TicketResponse
	History []TicketHistoryResponse `json:"history"`
}

// DocumentResponse metadata.
type DocumentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// SupportUserResponse is a directory user without credentials.
type SupportUserResponse struct {
	ID        string      `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
}

// SupportLoadResponse pairs a support user with their active-ticket count.
type SupportLoadResponse struct {
	SupportUserResponse
	ActiveTickets int `json:"active_tickets"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          string                   `json:"id"`
	ChangeType  domain.HistoryChangeType `json:"change_type"`
	ChangedByID *string                  `json:"changed_by_id"`
	OldValue    map[string]any           `json:"old_value"`
	NewValue    map[string]any           `json:"new_value"`
	CreatedAt   time.Time                `json:"created_at"`
}

// DeleteResponse reports a successful removal.
type DeleteResponse struct {
	Success bool `json:"success"`
}
