package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOptionalUnmarshal(t *testing.T) {
	type payload struct {
		Slot Optional[string] `json:"slot"`
	}

	var absent payload
	if err := json.Unmarshal([]byte(`{}`), &absent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if absent.Slot.Present {
		t.Fatal("absent field must not be marked present")
	}

	var null payload
	if err := json.Unmarshal([]byte(`{"slot": null}`), &null); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !null.Slot.Present || null.Slot.Value != nil {
		t.Fatalf("explicit null must be present with nil value, got %+v", null.Slot)
	}

	var set payload
	if err := json.Unmarshal([]byte(`{"slot": "14:00"}`), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !set.Slot.Present || set.Slot.Value == nil || *set.Slot.Value != "14:00" {
		t.Fatalf("value must be present and set, got %+v", set.Slot)
	}
}

func TestOptionalConstructors(t *testing.T) {
	set := Set("14:00")
	if !set.Present || set.Value == nil || *set.Value != "14:00" {
		t.Fatalf("Set: %+v", set)
	}
	null := Null[string]()
	if !null.Present || null.Value != nil {
		t.Fatalf("Null: %+v", null)
	}
}

func TestTicketPatchEmpty(t *testing.T) {
	if !(TicketPatch{}).Empty() {
		t.Fatal("zero patch must be empty")
	}

	name := "Casey"
	if (TicketPatch{CustomerName: &name}).Empty() {
		t.Fatal("patch with scalar must not be empty")
	}
	if (TicketPatch{RescheduledDate: Null[time.Time]()}).Empty() {
		t.Fatal("patch with present null must not be empty")
	}
	if (TicketPatch{DocumentsToRemove: []string{"doc-1"}}).Empty() {
		t.Fatal("patch with relation change must not be empty")
	}
}
