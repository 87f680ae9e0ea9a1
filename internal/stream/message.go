package stream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hireflow/hireflow/internal/models"
)

// StreamMessage is one raw entry read from the code-runner stream.
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// RunResult is a parsed execution record addressed to one question of
// one session. SectionID may be empty for the oldest runner payloads;
// the recorder resolves it from the test definition.
type RunResult struct {
	SessionID  string
	SectionID  string
	QuestionID string
	Submission models.CodeSubmission
}

// ParseRunResult decodes a stream entry. Older runner builds address the
// question with a single combined key; those shapes are normalized into
// the canonical session/section/question triple before anything is
// stored, so there is exactly one lookup path downstream.
func ParseRunResult(msg *StreamMessage) (*RunResult, error) {
	r := &RunResult{
		SessionID:  msg.Fields["sessionId"],
		SectionID:  msg.Fields["sectionId"],
		QuestionID: msg.Fields["questionId"],
	}

	if r.SectionID == "" || r.QuestionID == "" {
		if err := normalizeLegacyKey(msg.Fields["key"], r); err != nil {
			return nil, err
		}
	}
	if r.SessionID == "" {
		return nil, fmt.Errorf("message %s: missing sessionId", msg.ID)
	}
	if r.QuestionID == "" {
		return nil, fmt.Errorf("message %s: missing question address", msg.ID)
	}

	sub := models.CodeSubmission{
		Code:     msg.Fields["code"],
		Language: msg.Fields["language"],
	}

	if raw := msg.Fields["results"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &sub.Results); err != nil {
			return nil, fmt.Errorf("message %s: invalid results payload: %w", msg.ID, err)
		}
	}

	sub.AllPassed, _ = strconv.ParseBool(msg.Fields["allPassed"])
	sub.PassedCount, _ = strconv.Atoi(msg.Fields["passedCount"])
	sub.TotalCount, _ = strconv.Atoi(msg.Fields["totalCount"])

	if ts := msg.Fields["timestamp"]; ts != "" {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			sub.Timestamp = time.UnixMilli(ms)
		}
	}
	if sub.Timestamp.IsZero() {
		sub.Timestamp = time.Now()
	}

	r.Submission = sub
	return r, nil
}

// normalizeLegacyKey accepts "sessionID:sectionID:questionID",
// "sectionID-questionID", or a bare question id.
func normalizeLegacyKey(key string, r *RunResult) error {
	if key == "" {
		return nil
	}

	if parts := strings.Split(key, ":"); len(parts) == 3 {
		if r.SessionID == "" {
			r.SessionID = parts[0]
		}
		r.SectionID = parts[1]
		r.QuestionID = parts[2]
		return nil
	}

	if idx := strings.Index(key, "-"); idx > 0 {
		r.SectionID = key[:idx]
		r.QuestionID = key[idx+1:]
		return nil
	}

	r.QuestionID = key
	return nil
}
