package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hireflow/hireflow/internal/models"
	"github.com/hireflow/hireflow/internal/proctor"
)

// CodeStore is the best-effort durability backstop for edited code. A
// failed write must never fail the user action.
type CodeStore interface {
	SaveCode(ctx context.Context, sessionID, sectionID, questionID, code string) error
	LoadCode(ctx context.Context, sessionID, sectionID, questionID string) (string, bool)
}

// Session is one taker's in-progress exam. All mutation goes through the
// session's own mutex; there are no concurrent writers besides the
// taker's own requests and the sweeper.
type Session struct {
	ID         string
	Token      string
	Preview    bool
	Invitation *models.Invitation // nil when invitation lookup fell back to direct test access
	Test       *models.Test
	StartedAt  time.Time
	Deadline   time.Time
	Seed       uint64

	Gate       *Gate
	Violations *proctor.ViolationTracker
	Monitor    *proctor.Slot
	Capture    *proctor.Slot

	store CodeStore

	mu          sync.Mutex
	answers     map[string]string
	submissions map[string][]models.CodeSubmission
	completed   bool
	terminated  bool
	finishedAt  time.Time
	result      *models.Result

	submitMu sync.Mutex
}

// newSession initializes the answer store with an empty entry for every
// question, so an Answer exists from session start even if never touched.
func newSession(id, token string, preview bool, inv *models.Invitation, test *models.Test, seed uint64, store CodeStore, now time.Time) *Session {
	answers := make(map[string]string)
	for _, section := range test.Sections {
		for _, q := range section.Questions {
			answers[models.AnswerKey(section.ID, q.ID)] = ""
		}
	}

	return &Session{
		ID:          id,
		Token:       token,
		Preview:     preview,
		Invitation:  inv,
		Test:        test,
		StartedAt:   now,
		Deadline:    test.Deadline(now),
		Seed:        seed,
		Gate:        NewGate(),
		store:       store,
		answers:     answers,
		submissions: make(map[string][]models.CodeSubmission),
	}
}

// SetAnswer stores an answer under its composite key. Unknown keys are
// rejected silently to keep the store aligned with the test definition.
func (s *Session) SetAnswer(sectionID, questionID, value string) {
	key := models.AnswerKey(sectionID, questionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.answers[key]; !ok {
		return
	}
	s.answers[key] = value
}

func (s *Session) Answer(sectionID, questionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers[models.AnswerKey(sectionID, questionID)]
}

// Answers returns a copy of the whole store.
func (s *Session) Answers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// SaveCode updates the in-memory answer and writes through to the
// backstop. Backstop failures are swallowed by the store implementation.
func (s *Session) SaveCode(ctx context.Context, sectionID, questionID, code string) {
	s.SetAnswer(sectionID, questionID, code)
	if s.store != nil {
		_ = s.store.SaveCode(ctx, s.ID, sectionID, questionID, code)
	}
}

// CodeForEditor resolves what the editor should show for a coding
// question: backstopped code, then the in-memory answer, then the
// template. Stored values that are empty or identical to the template
// fall back to the template.
func (s *Session) CodeForEditor(ctx context.Context, sectionID, questionID, template string) string {
	usable := func(code string) bool {
		trimmed := strings.TrimSpace(code)
		return trimmed != "" && trimmed != strings.TrimSpace(template)
	}

	if s.store != nil {
		if code, ok := s.store.LoadCode(ctx, s.ID, sectionID, questionID); ok && usable(code) {
			return code
		}
	}
	if code := s.Answer(sectionID, questionID); usable(code) {
		return code
	}
	return template
}

// RecordSubmission appends one execution record to the question's
// history under the canonical key.
func (s *Session) RecordSubmission(sectionID, questionID string, sub models.CodeSubmission) {
	key := models.SubmissionKey(s.ID, sectionID, questionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[key] = append(s.submissions[key], sub)
}

// Latest returns the most recent execution record for a question. It
// satisfies the scoring engine's lookup interface.
func (s *Session) Latest(sectionID, questionID string) (*models.CodeSubmission, bool) {
	key := models.SubmissionKey(s.ID, sectionID, questionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.submissions[key]
	if len(history) == 0 {
		return nil, false
	}
	latest := history[len(history)-1]
	return &latest, true
}

// SubmissionCount returns how many runs are recorded for a question.
func (s *Session) SubmissionCount(sectionID, questionID string) int {
	key := models.SubmissionKey(s.ID, sectionID, questionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submissions[key])
}

// LockSubmit serializes submission for the session. Overlapping triggers
// (user action, countdown, termination grace) queue here, so the second
// caller observes the first one's stored result instead of re-grading.
func (s *Session) LockSubmit() { s.submitMu.Lock() }

func (s *Session) UnlockSubmit() { s.submitMu.Unlock() }

func (s *Session) MarkCompleted(result *models.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	s.result = result
	if s.finishedAt.IsZero() {
		s.finishedAt = time.Now()
	}
}

func (s *Session) MarkTerminated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
	if s.finishedAt.IsZero() {
		s.finishedAt = time.Now()
	}
}

// FinishedAt returns when the session completed or was terminated; zero
// while it is still live.
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

func (s *Session) Result() *models.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Active reports whether the session still accepts taker activity.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.completed && !s.terminated
}

// Next walks to the following question, crossing section boundaries,
// with no wraparound. Returns ok=false at the last question.
func (s *Session) Next(sectionIdx, questionIdx int) (int, int, bool) {
	sections := s.Test.Sections
	if sectionIdx < 0 || sectionIdx >= len(sections) {
		return sectionIdx, questionIdx, false
	}
	if questionIdx+1 < len(sections[sectionIdx].Questions) {
		return sectionIdx, questionIdx + 1, true
	}
	for si := sectionIdx + 1; si < len(sections); si++ {
		if len(sections[si].Questions) > 0 {
			return si, 0, true
		}
	}
	return sectionIdx, questionIdx, false
}

// Prev walks to the preceding question, crossing section boundaries,
// with no wraparound. Returns ok=false at the first question.
func (s *Session) Prev(sectionIdx, questionIdx int) (int, int, bool) {
	sections := s.Test.Sections
	if sectionIdx < 0 || sectionIdx >= len(sections) {
		return sectionIdx, questionIdx, false
	}
	if questionIdx > 0 {
		return sectionIdx, questionIdx - 1, true
	}
	for si := sectionIdx - 1; si >= 0; si-- {
		if n := len(sections[si].Questions); n > 0 {
			return si, n - 1, true
		}
	}
	return sectionIdx, questionIdx, false
}
