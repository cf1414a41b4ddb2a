package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for support tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusResolved    TicketStatus = "RESOLVED"
	TicketStatusRescheduled TicketStatus = "RESCHEDULED"
)

// Ticket is one scheduled support engagement between a customer and the
// assigned support staff.
type Ticket struct {
	ID              string
	CustomerUserID  string
	CustomerName    string
	CompanyName     string
	CompanyAddress  string
	MeetDate        time.Time
	MeetTime        string
	Status          TicketStatus
	RescheduledDate *time.Time
	RescheduledTime *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Documents    []Document
	SupportUsers []User
}

// IsActive reports whether the ticket counts toward a support user's load.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusRescheduled
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:        {TicketStatusResolved, TicketStatusRescheduled},
	TicketStatusRescheduled: {TicketStatusResolved, TicketStatusRescheduled},
	TicketStatusResolved:    {},
}

// CanTransition reports whether current may move to next. RESOLVED is
// terminal; RESCHEDULED may re-reschedule.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusResolved, TicketStatusRescheduled:
		return true
	}
	return false
}

// DateOnly truncates t to midnight in its location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BeforeDay reports whether a falls on a calendar day strictly before b.
func BeforeDay(a, b time.Time) bool {
	return DateOnly(a).Before(DateOnly(b))
}

// MeetTimeSlots lists the bookable half-hour meeting slots, 09:00 through
// 17:00.
func MeetTimeSlots() []string {
	slots := make([]string, 0, 17)
	for h := 9; h <= 17; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
		if h < 17 {
			slots = append(slots, fmt.Sprintf("%02d:30", h))
		}
	}
	return slots
}

// ValidMeetTime reports whether value is one of the bookable slots.
func ValidMeetTime(value string) bool {
	for _, slot := range MeetTimeSlots() {
		if slot == value {
			return true
		}
	}
	return false
}
