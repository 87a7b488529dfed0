package model

import (
	"testing"
	"time"
)

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.Valid() {
			t.Errorf("Priority(%q).Valid() = false", p)
		}
	}
	for _, p := range []Priority{"", "urgent", "HIGH"} {
		if p.Valid() {
			t.Errorf("Priority(%q).Valid() = true", p)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusTodo, StatusInProgress, StatusCompleted} {
		if !s.Valid() {
			t.Errorf("Status(%q).Valid() = false", s)
		}
	}
	for _, s := range []Status{"", "done", "in_progress"} {
		if s.Valid() {
			t.Errorf("Status(%q).Valid() = true", s)
		}
	}
}

func TestTaskPatchApply(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{
		ID:        "t1",
		OwnerID:   "u1",
		Title:     "Buy milk",
		Priority:  PriorityMedium,
		Status:    StatusTodo,
		CreatedAt: created,
	}

	if !(TaskPatch{}).IsEmpty() {
		t.Fatal("zero TaskPatch should be empty")
	}

	title := "Buy oat milk"
	status := StatusCompleted
	patch := TaskPatch{Title: &title, Status: &status}
	if patch.IsEmpty() {
		t.Fatal("patch with fields reported empty")
	}
	patch.Apply(&task)

	if task.Title != title || task.Status != status {
		t.Errorf("Apply() did not set fields: %+v", task)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("Apply() changed untouched priority to %q", task.Priority)
	}
	if task.ID != "t1" || task.OwnerID != "u1" || !task.CreatedAt.Equal(created) {
		t.Errorf("Apply() changed immutable fields: %+v", task)
	}
}
