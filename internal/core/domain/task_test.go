package domain

import (
	"testing"
	"time"
)

func TestTaskStatusDerivation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name        string
		task        Task
		wantOverdue bool
		wantStatus  TaskStatus
	}{
		{"no due date pending", Task{}, false, TaskStatusPending},
		{"future due date", Task{DueDate: &future}, false, TaskStatusPending},
		{"past due date", Task{DueDate: &past}, true, TaskStatusOverdue},
		{"past due date completed", Task{DueDate: &past, Completed: true}, false, TaskStatusCompleted},
		{"completed without due date", Task{Completed: true}, false, TaskStatusCompleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.task.IsOverdue(now); got != tc.wantOverdue {
				t.Fatalf("IsOverdue = %v, want %v", got, tc.wantOverdue)
			}
			if got := tc.task.Status(now); got != tc.wantStatus {
				t.Fatalf("Status = %q, want %q", got, tc.wantStatus)
			}
		})
	}
}

func TestPriorityWeightOrdering(t *testing.T) {
	if PriorityHigh.Weight() <= PriorityMedium.Weight() {
		t.Fatalf("expected HIGH to outweigh MEDIUM")
	}
	if PriorityMedium.Weight() <= PriorityLow.Weight() {
		t.Fatalf("expected MEDIUM to outweigh LOW")
	}
	if Priority("bogus").IsValid() {
		t.Fatalf("expected bogus priority to be invalid")
	}
}

func TestUserFullName(t *testing.T) {
	u := User{Username: "jdoe", FirstName: "Jane", LastName: "Doe"}
	if got := u.FullName(); got != "Jane Doe" {
		t.Fatalf("FullName = %q, want %q", got, "Jane Doe")
	}

	u = User{Username: "jdoe"}
	if got := u.FullName(); got != "jdoe" {
		t.Fatalf("FullName fallback = %q, want %q", got, "jdoe")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}
