package model

import "time"

// Snapshot is the top-level structure written by the export command.
type Snapshot struct {
	ExportedAt time.Time                   `json:"exported_at" yaml:"exported_at"`
	Users      map[string]LegacyCredential `json:"users" yaml:"users"`
	Profiles   []Profile                   `json:"profiles" yaml:"profiles"`
	Tasks      map[string][]StudyTask      `json:"tasks" yaml:"tasks"`
	Activity   []ActivityEntry             `json:"activity" yaml:"activity"`
}

// LegacyCredential mirrors one value of the flat users.json file:
// email -> {"password": <hash>, "fav_place": <recovery answer>}.
type LegacyCredential struct {
	Password string `json:"password" yaml:"password"`
	FavPlace string `json:"fav_place" yaml:"fav_place"`
}

// LegacyTask mirrors one element of the flat study_plan.json file.
type LegacyTask struct {
	Task     string `json:"task"`
	Subject  string `json:"subject"`
	Deadline string `json:"deadline"`
	Status   string `json:"status"`
}
