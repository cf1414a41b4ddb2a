package dto

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateUnmarshal(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2026-09-15"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC)
	if !d.Time.Equal(want) {
		t.Fatalf("expected %v, got %v", want, d.Time)
	}

	var null Date
	if err := json.Unmarshal([]byte(`null`), &null); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !null.Time.IsZero() {
		t.Fatalf("null must yield zero time, got %v", null.Time)
	}

	var bad Date
	if err := json.Unmarshal([]byte(`"15/09/2026"`), &bad); err == nil {
		t.Fatal("non-ISO date must be rejected")
	}
}

func TestDateMarshal(t *testing.T) {
	d := Date{Time: time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC)}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2026-09-15"` {
		t.Fatalf("expected quoted ISO date, got %s", data)
	}

	data, err = json.Marshal(Date{})
	if err != nil {
		t.Fatalf("marshal zero: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf("zero date must marshal to null, got %s", data)
	}
}
