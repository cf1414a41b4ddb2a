package domain

import (
	"encoding/json"
	"time"
)

// Optional distinguishes "field absent from the patch" from "field present
// with an explicit null". Absent means leave unchanged; present-nil means
// clear.
type Optional[T any] struct {
	Present bool
	Value   *T
}

// Set returns a present Optional carrying v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: &v}
}

// Null returns a present Optional carrying an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Present: true}
}

// UnmarshalJSON marks the field present; a JSON null leaves Value nil.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// TicketPatch is the partial-update input for a ticket. Nil pointer fields
// are untouched; the Optional reschedule fields additionally support
// explicit clearing.
type TicketPatch struct {
	CustomerName   *string
	CompanyName    *string
	CompanyAddress *string
	MeetDate       *time.Time
	MeetTime       *string
	Status         *TicketStatus

	RescheduledDate Optional[time.Time]
	RescheduledTime Optional[string]

	DocumentsToAdd       []string
	DocumentsToRemove    []string
	SupportUsersToAdd    []string
	SupportUsersToRemove []string
}

// Empty reports whether the patch would change nothing.
func (p TicketPatch) Empty() bool {
	return p.CustomerName == nil && p.CompanyName == nil && p.CompanyAddress == nil &&
		p.MeetDate == nil && p.MeetTime == nil && p.Status == nil &&
		!p.RescheduledDate.Present && !p.RescheduledTime.Present &&
		len(p.DocumentsToAdd) == 0 && len(p.DocumentsToRemove) == 0 &&
		len(p.SupportUsersToAdd) == 0 && len(p.SupportUsersToRemove) == 0
}
