package store

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/pavelanni/studybuddy/internal/model"
)

// Snapshot collects every persisted record into one export document.
func (s *Store) Snapshot() (*model.Snapshot, error) {
	creds, err := s.ListCredentials()
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	profiles, err := s.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	activity, err := s.ListActivity("")
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	owners, err := s.ListTaskOwners()
	if err != nil {
		return nil, fmt.Errorf("list task owners: %w", err)
	}

	tasks := make(map[string][]model.StudyTask, len(owners))
	for _, owner := range owners {
		list, err := s.ListTasks(owner)
		if err != nil {
			return nil, fmt.Errorf("list tasks for %s: %w", owner, err)
		}
		tasks[owner] = list
	}

	users := lo.SliceToMap(creds, func(c model.Credential) (string, model.LegacyCredential) {
		return c.Email, model.LegacyCredential{Password: c.PasswordHash, FavPlace: c.RecoveryAnswer}
	})

	return &model.Snapshot{
		ExportedAt: time.Now().UTC(),
		Users:      users,
		Profiles:   profiles,
		Tasks:      tasks,
		Activity:   activity,
	}, nil
}
