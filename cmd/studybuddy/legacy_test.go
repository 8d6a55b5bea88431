package main

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/studybuddy/internal/auth"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/store"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newLegacyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "users.json", `{"a@x.com": {"password": "`+auth.LegacyHash("pw1")+`", "fav_place": "Paris"}}`)
	writeFile(t, dir, "user_data.json", `{"email": "a@x.com", "name": "A", "college": "C", "dept": "D", "subject": "Math", "score": 30}`)
	writeFile(t, dir, "study_plan.json", `[
		{"task": "Read ch.1", "subject": "Physics", "deadline": "2025-01-01", "status": "Pending"},
		{"task": "Lab report", "subject": "Chemistry", "deadline": "2025-02-01", "status": "Completed"}
	]`)

	src, err := sql.Open("sqlite", filepath.Join(dir, "activity_log.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if _, err := src.Exec(`CREATE TABLE user_logs (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT, action TEXT, timestamp TEXT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Exec(`INSERT INTO user_logs (email, action, timestamp) VALUES
		('a@x.com', 'Login', '2024-05-01 10:00:00'),
		('a@x.com', 'Logout', '2024-05-01 11:30:00'),
		('a@x.com', 'Login', 'yesterday')`); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "studybuddy.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestImportLegacy(t *testing.T) {
	db := newTestStore(t)
	dir := newLegacyDir(t)

	if err := importLegacy(db, dir, ""); err != nil {
		t.Fatalf("importLegacy: %v", err)
	}

	cred, err := db.GetCredential("a@x.com")
	if err != nil || cred == nil {
		t.Fatalf("credential = %v, %v", cred, err)
	}
	if cred.PasswordHash != auth.LegacyHash("pw1") || cred.RecoveryAnswer != "Paris" {
		t.Errorf("credential = %+v", cred)
	}

	p, err := db.GetProfile("a@x.com")
	if err != nil || p == nil {
		t.Fatalf("profile = %v, %v", p, err)
	}
	if p.Name != "A" || p.Department != "D" || p.Score != 30 {
		t.Errorf("profile = %+v", p)
	}

	tasks, err := db.ListTasks("a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].Task != "Read ch.1" || tasks[1].Status != model.TaskCompleted {
		t.Errorf("tasks = %+v", tasks)
	}
	for _, task := range tasks {
		if task.ID == "" {
			t.Errorf("task %q has no id", task.Task)
		}
	}

	entries, err := db.ListActivity("a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("activity entries = %d, want 2 (bad timestamp skipped)", len(entries))
	}
	if entries[0].Action != model.ActionLogin || entries[1].Action != model.ActionLogout {
		t.Errorf("activity = %+v", entries)
	}
}

func TestImportLegacySkipsUnchangedFiles(t *testing.T) {
	db := newTestStore(t)
	dir := newLegacyDir(t)

	if err := importLegacy(db, dir, ""); err != nil {
		t.Fatal(err)
	}
	if err := importLegacy(db, dir, ""); err != nil {
		t.Fatalf("second import: %v", err)
	}

	entries, _ := db.ListActivity("")
	if len(entries) != 2 {
		t.Errorf("activity entries after re-import = %d, want 2", len(entries))
	}
	tasks, _ := db.ListTasks("a@x.com")
	if len(tasks) != 2 {
		t.Errorf("tasks after re-import = %d, want 2", len(tasks))
	}
}

func TestImportLegacyActivityAddsOnlyNewRows(t *testing.T) {
	db := newTestStore(t)
	dir := newLegacyDir(t)
	if err := importLegacy(db, dir, ""); err != nil {
		t.Fatal(err)
	}

	src, err := sql.Open("sqlite", filepath.Join(dir, "activity_log.db"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = src.Exec(`INSERT INTO user_logs (email, action, timestamp) VALUES ('a@x.com', 'Login', '2024-05-02 09:00:00')`)
	src.Close()
	if err != nil {
		t.Fatal(err)
	}

	if err := importLegacy(db, dir, ""); err != nil {
		t.Fatalf("second import: %v", err)
	}
	entries, err := db.ListActivity("a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("activity entries = %d, want 3", len(entries))
	}
	if got := entries[2].Timestamp.Local().Format(legacyTimeLayout); got != "2024-05-02 09:00:00" {
		t.Errorf("last entry at %s", got)
	}
}

func TestImportLegacyTasksKeepsPlannerChanges(t *testing.T) {
	db := newTestStore(t)
	dir := newLegacyDir(t)
	if err := importLegacy(db, dir, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddTask(model.StudyTask{Owner: "a@x.com", Task: "Web task", Subject: "Math", Deadline: "2025-03-01"}); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "study_plan.json", `[
		{"task": "Read ch.1", "subject": "Physics", "deadline": "2025-01-01", "status": "Pending"},
		{"task": "Lab report", "subject": "Chemistry", "deadline": "2025-02-01", "status": "Completed"},
		{"task": "Essay", "subject": "History", "deadline": "2025-04-01", "status": "Pending"}
	]`)
	if err := importLegacy(db, dir, ""); err != nil {
		t.Fatalf("second import: %v", err)
	}

	tasks, err := db.ListTasks("a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, task := range tasks {
		names = append(names, task.Task)
	}
	if got := strings.Join(names, ","); got != "Read ch.1,Lab report,Web task,Essay" {
		t.Errorf("tasks = %s", got)
	}
}

func TestImportLegacyTaskOwner(t *testing.T) {
	t.Run("explicit owner", func(t *testing.T) {
		db := newTestStore(t)
		dir := t.TempDir()
		writeFile(t, dir, "study_plan.json", `[{"task": "T", "subject": "S", "deadline": "2025-01-01", "status": "bogus"}]`)

		if err := importLegacy(db, dir, "b@x.com"); err != nil {
			t.Fatal(err)
		}
		tasks, _ := db.ListTasks("b@x.com")
		if len(tasks) != 1 || tasks[0].Status != model.TaskPending {
			t.Errorf("tasks = %+v", tasks)
		}
	})

	t.Run("no owner", func(t *testing.T) {
		db := newTestStore(t)
		dir := t.TempDir()
		writeFile(t, dir, "study_plan.json", `[]`)

		if err := importLegacy(db, dir, ""); err == nil {
			t.Error("expected error without an owner")
		}
	})
}

func TestLegacyLoginAfterImport(t *testing.T) {
	db := newTestStore(t)
	if err := importLegacy(db, newLegacyDir(t), ""); err != nil {
		t.Fatal(err)
	}
	ok, err := auth.New(db, nil, 0).Verify("a@x.com", "pw1")
	if err != nil || !ok {
		t.Errorf("Verify = %v, %v", ok, err)
	}
}

func TestMarshalSnapshot(t *testing.T) {
	db := newTestStore(t)
	if err := importLegacy(db, newLegacyDir(t), ""); err != nil {
		t.Fatal(err)
	}
	snap, err := db.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	data, err := marshalSnapshot(snap, "json")
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json output: %v", err)
	}
	users, _ := decoded["users"].(map[string]any)
	if _, ok := users["a@x.com"]; !ok {
		t.Errorf("users = %v", decoded["users"])
	}

	data, err = marshalSnapshot(snap, "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("yaml output: %v", err)
	}
	if !strings.Contains(string(data), "fav_place: Paris") {
		t.Errorf("yaml output missing recovery answer:\n%s", data)
	}

	if _, err := marshalSnapshot(snap, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
