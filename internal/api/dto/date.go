package dto

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day carried as an ISO "YYYY-MM-DD" JSON string.
type Date struct {
	time.Time
}

// UnmarshalJSON parses the ISO date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	d.Time = parsed
	return nil
}

// MarshalJSON renders the ISO date string.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format(dateLayout) + `"`), nil
}

// FormatDate renders a time as the wire date string.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatDatePtr renders an optional time as the wire date string.
func FormatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
