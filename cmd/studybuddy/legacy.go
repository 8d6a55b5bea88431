package main

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/store"
)

// legacyTimeLayout is how the flat-file activity log wrote timestamps (local time).
const legacyTimeLayout = "2006-01-02 15:04:05"

func runImportLegacy(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return importLegacy(db, v.GetString("dir"), v.GetString("owner"))
}

// importLegacy loads the flat-file layout under dir. Files whose content hash
// was already recorded are skipped. The planner file has no owner of its own;
// it is attributed to owner, or to the email in user_data.json when owner is empty.
func importLegacy(db *store.Store, dir, owner string) error {
	if err := importOnce(db, filepath.Join(dir, "users.json"), importUsers); err != nil {
		return err
	}

	profileEmail := ""
	err := importOnce(db, filepath.Join(dir, "user_data.json"), func(db *store.Store, data []byte) (int, error) {
		email, err := importProfile(db, data)
		profileEmail = email
		return 1, err
	})
	if err != nil {
		return err
	}
	if owner == "" {
		owner = profileEmail
	}

	err = importOnce(db, filepath.Join(dir, "study_plan.json"), func(db *store.Store, data []byte) (int, error) {
		if owner == "" {
			return 0, errors.New("study_plan.json has no owner: pass --owner or provide user_data.json")
		}
		return importTasks(db, owner, data)
	})
	if err != nil {
		return err
	}

	return importOnce(db, filepath.Join(dir, "activity_log.db"), func(db *store.Store, _ []byte) (int, error) {
		return importActivity(db, filepath.Join(dir, "activity_log.db"))
	})
}

// importOnce reads path and hands it to fn unless the same content was imported
// before. A missing file is not an error.
func importOnce(db *store.Store, path string, fn func(*store.Store, []byte) (int, error)) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("legacy file not found, skipping", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("legacy file unchanged, skipping", "path", path)
		return nil
	}

	n, err := fn(db, data)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if err := db.SetImportedFileHash(path, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported legacy file", "path", path, "count", n)
	return nil
}

// importUsers adds credentials from users.json. Hashes are stored verbatim
// and existing emails are left alone.
func importUsers(db *store.Store, data []byte) (int, error) {
	var users map[string]model.LegacyCredential
	if err := json.Unmarshal(data, &users); err != nil {
		return 0, fmt.Errorf("parse users: %w", err)
	}
	n := 0
	for email, u := range users {
		email = strings.TrimSpace(email)
		if email == "" || u.Password == "" {
			slog.Warn("skipping incomplete legacy user", "email", email)
			continue
		}
		err := db.CreateCredential(model.Credential{
			Email:          email,
			PasswordHash:   u.Password,
			RecoveryAnswer: u.FavPlace,
			CreatedAt:      time.Now().UTC(),
		})
		if errors.Is(err, model.ErrAlreadyExists) {
			slog.Debug("legacy user already present", "email", email)
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func importProfile(db *store.Store, data []byte) (string, error) {
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("parse profile: %w", err)
	}
	p.Email = strings.TrimSpace(p.Email)
	if p.Email == "" {
		return "", errors.New("profile has no email")
	}
	if p.Score < 0 {
		p.Score = 0
	}
	return p.Email, db.SaveProfile(p)
}

// importTasks appends the legacy tasks the owner does not already have,
// matched on task, subject and deadline. Tasks added since are kept.
func importTasks(db *store.Store, owner string, data []byte) (int, error) {
	var legacy []model.LegacyTask
	if err := json.Unmarshal(data, &legacy); err != nil {
		return 0, fmt.Errorf("parse tasks: %w", err)
	}
	existing, err := db.ListTasks(owner)
	if err != nil {
		return 0, err
	}
	type taskKey struct{ task, subject, deadline string }
	seen := make(map[taskKey]bool, len(existing))
	for _, t := range existing {
		seen[taskKey{t.Task, t.Subject, t.Deadline}] = true
	}

	n := 0
	for _, lt := range legacy {
		k := taskKey{lt.Task, lt.Subject, lt.Deadline}
		if seen[k] {
			continue
		}
		seen[k] = true
		status := model.TaskStatus(lt.Status)
		if !status.Valid() {
			status = model.TaskPending
		}
		_, err := db.AddTask(model.StudyTask{
			Owner:    owner,
			Task:     lt.Task,
			Subject:  lt.Subject,
			Deadline: lt.Deadline,
			Status:   status,
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// importActivity copies user_logs rows of the old activity database that
// are newer than the last id imported from path, so a grown log only adds
// its new rows.
func importActivity(db *store.Store, path string) (int, error) {
	key := "legacy_activity_last_id:" + path
	v, err := db.GetMetadata(key)
	if err != nil {
		return 0, err
	}
	var lastID int64
	if v != "" {
		if lastID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return 0, fmt.Errorf("bad %s metadata %q: %w", key, v, err)
		}
	}

	src, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return 0, err
	}
	defer src.Close()

	rows, err := src.Query(`SELECT id, email, action, timestamp FROM user_logs WHERE id > ? ORDER BY id`, lastID)
	if err != nil {
		return 0, fmt.Errorf("query user_logs: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var id int64
		var email, action, ts string
		if err := rows.Scan(&id, &email, &action, &ts); err != nil {
			return n, err
		}
		lastID = id
		at, err := time.ParseInLocation(legacyTimeLayout, ts, time.Local)
		if err != nil {
			slog.Warn("skipping activity row with bad timestamp", "email", email, "timestamp", ts)
		} else {
			if _, err := db.AppendActivity(email, model.ActivityAction(action), at); err != nil {
				return n, err
			}
			n++
		}
		if err := db.SetMetadata(key, strconv.FormatInt(lastID, 10)); err != nil {
			return n, err
		}
	}
	return n, rows.Err()
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
