// Package planner manages each student's ordered list of study tasks.
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/studybuddy/internal/model"
)

// Store is the task persistence the planner needs.
type Store interface {
	ListTasks(owner string) ([]model.StudyTask, error)
	AddTask(t model.StudyTask) (model.StudyTask, error)
	UpdateTaskStatus(owner string, index int, status model.TaskStatus) error
	DeleteTask(owner string, index int) error
	TaskIndex(owner, id string) (int, error)
}

// Service validates planner input and forwards it to the store.
type Service struct {
	store Store
}

// New creates a planner service.
func New(s Store) *Service {
	return &Service{store: s}
}

// List returns the owner's tasks in insertion order.
func (p *Service) List(owner string) ([]model.StudyTask, error) {
	return p.store.ListTasks(owner)
}

// Add appends a pending task. Task and subject are required and the
// deadline must be a YYYY-MM-DD date.
func (p *Service) Add(owner, task, subject, deadline string) (model.StudyTask, error) {
	task = strings.TrimSpace(task)
	subject = strings.TrimSpace(subject)
	deadline = strings.TrimSpace(deadline)
	if task == "" || subject == "" {
		return model.StudyTask{}, fmt.Errorf("task and subject are required: %w", model.ErrValidation)
	}
	if _, err := time.Parse(model.DeadlineLayout, deadline); err != nil {
		return model.StudyTask{}, fmt.Errorf("deadline %q: %w", deadline, model.ErrValidation)
	}
	return p.store.AddTask(model.StudyTask{
		Owner:    owner,
		Task:     task,
		Subject:  subject,
		Deadline: deadline,
		Status:   model.TaskPending,
	})
}

// UpdateStatus sets the status of the task at index.
func (p *Service) UpdateStatus(owner string, index int, status model.TaskStatus) error {
	if !status.Valid() {
		return fmt.Errorf("status %q: %w", status, model.ErrValidation)
	}
	return p.store.UpdateTaskStatus(owner, index, status)
}

// Delete removes the task at index. Later tasks shift down, so indexes
// must be re-read from List after every deletion.
func (p *Service) Delete(owner string, index int) error {
	return p.store.DeleteTask(owner, index)
}

// Toggle flips the task with the given id between Pending and Completed.
func (p *Service) Toggle(owner, id string) error {
	tasks, err := p.store.ListTasks(owner)
	if err != nil {
		return err
	}
	for i, t := range tasks {
		if t.ID != id {
			continue
		}
		next := model.TaskCompleted
		if t.Status == model.TaskCompleted {
			next = model.TaskPending
		}
		return p.store.UpdateTaskStatus(owner, i, next)
	}
	return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
}

// DeleteByID removes the task with the given id.
func (p *Service) DeleteByID(owner, id string) error {
	index, err := p.store.TaskIndex(owner, id)
	if err != nil {
		return err
	}
	return p.store.DeleteTask(owner, index)
}
