package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavelanni/studybuddy/internal/model"
)

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// ListTasks returns an owner's tasks in planner order.
func (s *Store) ListTasks(owner string) ([]model.StudyTask, error) {
	return listTasks(s.db, owner)
}

func listTasks(q querier, owner string) ([]model.StudyTask, error) {
	rows, err := q.Query(
		`SELECT id, owner, task, subject, deadline, status FROM study_tasks WHERE owner = ? ORDER BY position`, owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []model.StudyTask
	for rows.Next() {
		var t model.StudyTask
		if err := rows.Scan(&t.ID, &t.Owner, &t.Task, &t.Subject, &t.Deadline, &t.Status); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// AddTask appends a task to the end of the owner's list and returns it with its id set.
func (s *Store) AddTask(t model.StudyTask) (model.StudyTask, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = model.TaskPending
	}
	_, err := s.db.Exec(
		`INSERT INTO study_tasks (id, owner, position, task, subject, deadline, status)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM study_tasks WHERE owner = ?), ?, ?, ?, ?)`,
		t.ID, t.Owner, t.Owner, t.Task, t.Subject, t.Deadline, t.Status,
	)
	if err != nil {
		return model.StudyTask{}, err
	}
	return t, nil
}

// UpdateTaskStatus sets the status of the task at position index.
func (s *Store) UpdateTaskStatus(owner string, index int, status model.TaskStatus) error {
	return s.mutateTasks(owner, func(tx *sql.Tx, tasks []model.StudyTask) error {
		if index < 0 || index >= len(tasks) {
			return fmt.Errorf("task %d of %d: %w", index, len(tasks), model.ErrIndexOutOfRange)
		}
		_, err := tx.Exec(`UPDATE study_tasks SET status = ? WHERE id = ?`, status, tasks[index].ID)
		return err
	})
}

// DeleteTask removes the task at position index; later tasks shift down by one.
func (s *Store) DeleteTask(owner string, index int) error {
	return s.mutateTasks(owner, func(tx *sql.Tx, tasks []model.StudyTask) error {
		if index < 0 || index >= len(tasks) {
			return fmt.Errorf("task %d of %d: %w", index, len(tasks), model.ErrIndexOutOfRange)
		}
		if _, err := tx.Exec(`DELETE FROM study_tasks WHERE id = ?`, tasks[index].ID); err != nil {
			return err
		}
		return renumber(tx, append(tasks[:index:index], tasks[index+1:]...))
	})
}

// TaskIndex returns the current position of the task with the given id.
func (s *Store) TaskIndex(owner, id string) (int, error) {
	tasks, err := s.ListTasks(owner)
	if err != nil {
		return 0, err
	}
	for i, t := range tasks {
		if t.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
}

// ReplaceTasks overwrites the owner's whole list with tasks, keeping their order.
func (s *Store) ReplaceTasks(owner string, tasks []model.StudyTask) error {
	return s.mutateTasks(owner, func(tx *sql.Tx, _ []model.StudyTask) error {
		if _, err := tx.Exec(`DELETE FROM study_tasks WHERE owner = ?`, owner); err != nil {
			return err
		}
		for i, t := range tasks {
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if t.Status == "" {
				t.Status = model.TaskPending
			}
			_, err := tx.Exec(
				`INSERT INTO study_tasks (id, owner, position, task, subject, deadline, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				t.ID, owner, i, t.Task, t.Subject, t.Deadline, t.Status,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListTaskOwners returns every email that owns at least one task.
func (s *Store) ListTaskOwners() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT owner FROM study_tasks ORDER BY owner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

// mutateTasks runs fn against the owner's current list inside one transaction.
func (s *Store) mutateTasks(owner string, fn func(tx *sql.Tx, tasks []model.StudyTask) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tasks, err := listTasks(tx, owner)
	if err != nil {
		return err
	}
	if err := fn(tx, tasks); err != nil {
		return err
	}
	return tx.Commit()
}

func renumber(tx *sql.Tx, tasks []model.StudyTask) error {
	for i, t := range tasks {
		if _, err := tx.Exec(`UPDATE study_tasks SET position = ? WHERE id = ?`, i, t.ID); err != nil {
			return err
		}
	}
	return nil
}
