package models

import "time"

// SessionState is the Mongo mirror of one in-memory session, upserted on
// lifecycle transitions so a restart does not silently lose in-progress
// work.
type SessionState struct {
	ID             string            `bson:"_id"`
	Token          string            `bson:"token"`
	TestID         string            `bson:"testId"`
	Preview        bool              `bson:"preview,omitempty"`
	Step           string            `bson:"step"`
	StartedAt      time.Time         `bson:"startedAt"`
	Deadline       time.Time         `bson:"deadline"`
	Answers        map[string]string `bson:"answers"`
	TabSwitchCount int               `bson:"tabSwitchCount"`
	Terminated     bool              `bson:"terminated"`
	UpdatedAt      time.Time         `bson:"updatedAt"`
}
