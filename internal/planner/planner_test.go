package planner

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/store"
)

const owner = "a@x.com"

func newTestPlanner(t *testing.T) *Service {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestAddValidation(t *testing.T) {
	p := newTestPlanner(t)
	tests := []struct {
		name                    string
		task, subject, deadline string
		wantErr                 bool
	}{
		{"valid", "Read ch.3", "Physics", "2025-01-01", false},
		{"missing task", "", "Physics", "2025-01-01", true},
		{"missing subject", "Read", " ", "2025-01-01", true},
		{"bad deadline", "Read", "Physics", "01/01/2025", true},
		{"empty deadline", "Read", "Physics", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Add(owner, tt.task, tt.subject, tt.deadline)
			if tt.wantErr && !errors.Is(err, model.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected err: %v", err)
			}
		})
	}
}

func TestAddThenDeleteIndexZero(t *testing.T) {
	p := newTestPlanner(t)
	task, err := p.Add(owner, "Read ch.3", "Physics", "2025-01-01")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if task.Status != model.TaskPending || task.ID == "" {
		t.Errorf("task = %+v", task)
	}
	if err := p.Delete(owner, 0); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	tasks, err := p.List(owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("len = %d, want 0", len(tasks))
	}
}

func TestUpdateStatus(t *testing.T) {
	p := newTestPlanner(t)
	if _, err := p.Add(owner, "Read", "Physics", "2025-01-01"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.UpdateStatus(owner, 0, "Done"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("bad status err = %v, want ErrValidation", err)
	}
	if err := p.UpdateStatus(owner, 1, model.TaskCompleted); !errors.Is(err, model.ErrIndexOutOfRange) {
		t.Errorf("out of range err = %v, want ErrIndexOutOfRange", err)
	}
	if err := p.UpdateStatus(owner, 0, model.TaskCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	tasks, _ := p.List(owner)
	if tasks[0].Status != model.TaskCompleted {
		t.Errorf("status = %s", tasks[0].Status)
	}
}

func TestToggleAndDeleteByID(t *testing.T) {
	p := newTestPlanner(t)
	first, _ := p.Add(owner, "A", "Math", "2025-01-01")
	second, _ := p.Add(owner, "B", "Math", "2025-01-02")

	if err := p.Toggle(owner, second.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	tasks, _ := p.List(owner)
	if tasks[1].Status != model.TaskCompleted {
		t.Errorf("after toggle status = %s", tasks[1].Status)
	}
	if err := p.Toggle(owner, second.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	tasks, _ = p.List(owner)
	if tasks[1].Status != model.TaskPending {
		t.Errorf("after second toggle status = %s", tasks[1].Status)
	}

	if err := p.DeleteByID(owner, first.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	tasks, _ = p.List(owner)
	if len(tasks) != 1 || tasks[0].ID != second.ID {
		t.Errorf("tasks = %+v", tasks)
	}

	if err := p.Toggle(owner, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Toggle(missing) err = %v", err)
	}
	if err := p.DeleteByID(owner, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("DeleteByID(missing) err = %v", err)
	}
}

func TestTasksAreScopedToOwner(t *testing.T) {
	p := newTestPlanner(t)
	if _, err := p.Add(owner, "A", "Math", "2025-01-01"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	other, err := p.List("b@x.com")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other owner sees %d tasks", len(other))
	}
	if err := p.Delete("b@x.com", 0); !errors.Is(err, model.ErrIndexOutOfRange) {
		t.Errorf("Delete by other owner err = %v", err)
	}
}
