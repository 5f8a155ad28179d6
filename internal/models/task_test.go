package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    TaskStatus
		wantErr bool
	}{
		{name: "pending", raw: "pending", want: StatusPending},
		{name: "in progress", raw: "in_progress", want: StatusInProgress},
		{name: "completed", raw: "completed", want: StatusCompleted},
		{name: "cancelled", raw: "cancelled", want: StatusCancelled},
		{name: "unknown member", raw: "archived", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "wrong case", raw: "Pending", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskStatus(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStatus) {
					t.Fatalf("expected ErrUnknownStatus, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTaskPriority(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    TaskPriority
		wantErr bool
	}{
		{name: "low", raw: "low", want: PriorityLow},
		{name: "medium", raw: "medium", want: PriorityMedium},
		{name: "high", raw: "high", want: PriorityHigh},
		{name: "unknown member", raw: "urgent", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskPriority(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownPriority) {
					t.Fatalf("expected ErrUnknownPriority, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTaskPriorityRankOrdering(t *testing.T) {
	if !(PriorityLow.Rank() < PriorityMedium.Rank() && PriorityMedium.Rank() < PriorityHigh.Rank()) {
		t.Fatalf("priority ranks are not ordered low < medium < high: %d %d %d",
			PriorityLow.Rank(), PriorityMedium.Rank(), PriorityHigh.Rank())
	}
	if TaskPriority("bogus").Rank() != 0 {
		t.Fatalf("unknown priority should rank 0")
	}
}

func TestTaskStatusUnmarshalJSON(t *testing.T) {
	var status TaskStatus
	err := json.Unmarshal([]byte(`"completed"`), &status)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("got %q, want %q", status, StatusCompleted)
	}

	err = json.Unmarshal([]byte(`"bogus"`), &status)
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestTaskPriorityUnmarshalJSON(t *testing.T) {
	var priority TaskPriority
	err := json.Unmarshal([]byte(`"high"`), &priority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if priority != PriorityHigh {
		t.Fatalf("got %q, want %q", priority, PriorityHigh)
	}

	err = json.Unmarshal([]byte(`"critical"`), &priority)
	if !errors.Is(err, ErrUnknownPriority) {
		t.Fatalf("expected ErrUnknownPriority, got %v", err)
	}
}
