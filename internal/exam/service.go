package exam

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hireflow/hireflow/internal/config"
	"github.com/hireflow/hireflow/internal/metrics"
	"github.com/hireflow/hireflow/internal/models"
	"github.com/hireflow/hireflow/internal/proctor"
	"github.com/hireflow/hireflow/internal/scoring"
	"github.com/hireflow/hireflow/internal/session"
	"github.com/rs/zerolog/log"
)

// Submission triggers. User submissions run the unexecuted-code guard;
// the automatic paths cannot return to an editing state, so they skip it.
const (
	TriggerUser       = "user"
	TriggerTimer      = "timer"
	TriggerTerminated = "terminated"
)

type InvitationSource interface {
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	MarkCompleted(ctx context.Context, token string) error
}

type TestSource interface {
	GetTestByID(ctx context.Context, testID string) (*models.Test, error)
}

type ResultSink interface {
	InsertResult(ctx context.Context, result *models.Result) error
	GetResultByInvitationID(ctx context.Context, invitationID string) (*models.Result, error)
}

// StatusStore is the Redis-backed side state; nil-safe in the service so
// tests can run without Redis.
type StatusStore interface {
	MarkVerified(ctx context.Context, token string)
	IsVerified(ctx context.Context, token string) bool
	SetStep(ctx context.Context, sessionID string, step session.Step) error
}

// SessionMirror persists session snapshots to Mongo on lifecycle
// transitions. Nil-safe like StatusStore.
type SessionMirror interface {
	UpsertSession(ctx context.Context, state *models.SessionState) error
}

// Service orchestrates the test-taking session lifecycle: bootstrap,
// verification, proctoring events, answers, code runs, and submission.
type Service struct {
	cfg         *config.Config
	sessions    *session.Manager
	invitations InvitationSource
	tests       TestSource
	results     ResultSink
	status      StatusStore
	mirror      SessionMirror
	devices     func(kind proctor.SlotKind) proctor.Device
}

func NewService(
	cfg *config.Config,
	sessions *session.Manager,
	invitations InvitationSource,
	tests TestSource,
	results ResultSink,
	status StatusStore,
	mirror SessionMirror,
) *Service {
	return &Service{
		cfg:         cfg,
		sessions:    sessions,
		invitations: invitations,
		tests:       tests,
		results:     results,
		status:      status,
		mirror:      mirror,
	}
}

// WithDevices attaches a camera device provider. Without one, slots run
// in reported mode and the client performs the acquisitions.
func (s *Service) WithDevices(provider func(kind proctor.SlotKind) proctor.Device) *Service {
	s.devices = provider
	return s
}

// StartSession resolves the token to an invitation and test, applies the
// one-time shuffle, and creates the session with every answer
// initialized. Invitation lookup failure degrades to direct test access
// with the token treated as a test id.
func (s *Service) StartSession(ctx context.Context, token string, preview bool) (*session.Session, error) {
	inv, err := s.invitations.GetInvitationByToken(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("token", token).Msg("Invitation lookup failed, falling back to direct test access")
		inv = nil
	}

	testID := token
	if inv != nil {
		if inv.Status == models.InvitationCompleted {
			return nil, ErrInvitationCompleted
		}
		if inv.ExpiredAt(time.Now()) {
			return nil, ErrInvitationExpired
		}
		testID = inv.TestID
	}

	test, err := s.tests.GetTestByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, ErrTestNotFound
	}

	sessionID := uuid.New().String()
	seed := SeedFromSessionID(sessionID)
	if test.Settings.ShuffleQuestions {
		test = ShuffleQuestions(test, seed)
	}

	sess := s.sessions.Create(sessionID, token, preview, inv, test, seed)

	if s.status != nil && s.status.IsVerified(ctx, token) {
		sess.Gate.Skip()
	}

	slotCfg := proctor.SlotConfig{
		AcquireTimeout: s.cfg.CameraAcquireTimeout,
		MaxAttempts:    s.cfg.CameraMaxAttempts,
		BackoffBase:    s.cfg.CameraBackoffBase,
		BackoffCap:     s.cfg.CameraBackoffCap,
	}
	var monitorDev, captureDev proctor.Device
	if s.devices != nil {
		monitorDev = s.devices(proctor.SlotMonitor)
		captureDev = s.devices(proctor.SlotCapture)
	}
	sess.Monitor = proctor.NewSlot(proctor.SlotMonitor, monitorDev, slotCfg, sess.Active)
	sess.Capture = proctor.NewSlot(proctor.SlotCapture, captureDev, slotCfg, sess.Active)

	sess.Violations = proctor.NewViolationTracker(
		s.cfg.TabSwitchDebounce,
		s.cfg.TabSwitchLimit,
		test.Settings.PreventTabSwitching,
		func() { s.terminate(sess) },
	)

	s.setStep(ctx, sess, session.StepCreated)

	mode := "real"
	if preview {
		mode = "preview"
	}
	metrics.SessionsStarted.WithLabelValues(mode).Inc()

	log.Info().
		Str("sessionID", sessionID).
		Str("testId", test.ID).
		Bool("preview", preview).
		Bool("invited", inv != nil).
		Msg("Session started")

	return sess, nil
}

func (s *Service) Session(id string) (*session.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// PassSystemChecks advances the verification gate's first transition.
func (s *Service) PassSystemChecks(ctx context.Context, sessionID string, checks session.SystemChecks) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if err := sess.Gate.PassSystemChecks(checks); err != nil {
		return err
	}
	s.setStep(ctx, sess, session.StepVerification)
	return nil
}

func (s *Service) PassIdentity(ctx context.Context, sessionID, identifier string, capturedImages int) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return sess.Gate.PassIdentity(identifier, capturedImages)
}

// AcceptRules completes the gate and memoizes completion for the token.
func (s *Service) AcceptRules(ctx context.Context, sessionID string, accepted bool) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if err := sess.Gate.AcceptRules(accepted); err != nil {
		return err
	}

	if s.status != nil {
		s.status.MarkVerified(ctx, sess.Token)
	}
	s.setStep(ctx, sess, session.StepInProgress)

	if err := sess.Monitor.Enable(ctx); err != nil {
		// Camera trouble is never fatal to the session.
		log.Warn().Err(err).Str("sessionID", sessionID).Msg("Monitoring stream unavailable")
	}

	return nil
}

func (s *Service) SaveAnswer(ctx context.Context, sessionID, sectionID, questionID, answer string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if !sess.Active() {
		return ErrSessionFinished
	}
	sess.SetAnswer(sectionID, questionID, answer)
	return nil
}

func (s *Service) SaveCode(ctx context.Context, sessionID, sectionID, questionID, code string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if !sess.Active() {
		return ErrSessionFinished
	}
	sess.SaveCode(ctx, sectionID, questionID, code)
	return nil
}

// EditorCode resolves the content a coding editor should display.
func (s *Service) EditorCode(ctx context.Context, sessionID, sectionID, questionID string) (string, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return "", err
	}

	template := ""
	for _, section := range sess.Test.Sections {
		if section.ID != sectionID {
			continue
		}
		for _, q := range section.Questions {
			if q.ID == questionID {
				template = q.CodeTemplate
			}
		}
	}

	return sess.CodeForEditor(ctx, sectionID, questionID, template), nil
}

// RecordCodeRun stores one execution record for a coding question.
// Source distinguishes the direct endpoint from the runner stream.
func (s *Service) RecordCodeRun(ctx context.Context, sessionID, sectionID, questionID string, sub models.CodeSubmission, source string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if !sess.Active() {
		return ErrSessionFinished
	}
	if sub.Timestamp.IsZero() {
		sub.Timestamp = time.Now()
	}
	sess.RecordSubmission(sectionID, questionID, sub)
	metrics.CodeRuns.WithLabelValues(source).Inc()
	return nil
}

// ResolveSection finds the section owning a question when a legacy
// runner payload omitted it.
func (s *Service) ResolveSection(sessionID, questionID string) (string, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return "", err
	}
	for _, section := range sess.Test.Sections {
		for _, q := range section.Questions {
			if q.ID == questionID {
				return section.ID, nil
			}
		}
	}
	return "", fmt.Errorf("question %s not in session %s", questionID, sessionID)
}

// RecordProctorEvent feeds one visibility-loss signal into the violation
// counter and returns the counted total plus whether it terminated the
// session.
func (s *Service) RecordProctorEvent(ctx context.Context, sessionID string, kind proctor.EventKind, at time.Time) (int, bool, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return 0, false, err
	}
	if !sess.Active() {
		return sess.Violations.Count(), sess.Terminated(), nil
	}

	before := sess.Violations.Count()
	count, terminated := sess.Violations.Record(kind, at)
	if count > before {
		metrics.TabSwitchEvents.Inc()
	}
	return count, terminated, nil
}

// CameraStatus records a client-reported camera outcome and returns
// retry advice for failures.
type CameraAdvice struct {
	Class      proctor.ErrorClass `json:"class,omitempty"`
	Retry      bool               `json:"retry"`
	RetryAfter time.Duration      `json:"-"`
}

func (s *Service) CameraStatus(ctx context.Context, sessionID string, kind proctor.SlotKind, attached bool, errorName string) (CameraAdvice, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return CameraAdvice{}, err
	}

	slot := sess.Monitor
	if kind == proctor.SlotCapture {
		slot = sess.Capture
	}

	if attached {
		slot.ReportAttached()
		return CameraAdvice{}, nil
	}

	class, delay, retry := slot.ReportFailure(errorName)
	return CameraAdvice{Class: class, Retry: retry, RetryAfter: delay}, nil
}

// Submit grades and persists the session's result. The action is an
// idempotent intent: an already-submitted session returns its existing
// result without re-grading. On persistence failure proctoring is
// re-enabled and no partial result is kept.
func (s *Service) Submit(ctx context.Context, sessionID, trigger string) (*models.Result, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}

	// Serialize overlapping triggers (user action, countdown, termination
	// grace): the second caller waits, then observes the stored result.
	sess.LockSubmit()
	defer sess.UnlockSubmit()

	if result := sess.Result(); result != nil {
		return result, nil
	}

	if trigger == TriggerUser {
		if blocked := scoring.UnexecutedCoding(sess.Test, sess.Answers(), sess); len(blocked) > 0 {
			return nil, &BlockedError{Questions: blocked}
		}
	}

	sess.Monitor.Disable()
	sess.Capture.Disable()

	start := time.Now()
	outcome := scoring.Grade(sess.Test, sess.Answers(), sess)
	metrics.GradingDuration.Observe(time.Since(start).Seconds())

	invitationID := sess.Token
	if sess.Invitation != nil {
		invitationID = sess.Invitation.ID
	}

	result := &models.Result{
		InvitationID:   invitationID,
		TestID:         sess.Test.ID,
		Score:          outcome.Score,
		Status:         outcome.Status,
		Duration:       int(time.Since(sess.StartedAt).Seconds()),
		Answers:        outcome.Answers,
		TabSwitchCount: sess.Violations.Count(),
		Terminated:     sess.Terminated(),
		Preview:        sess.Preview,
	}

	if err := s.results.InsertResult(ctx, result); err != nil {
		// Transport failure: restore proctoring so the taker can retry.
		if enableErr := sess.Monitor.Enable(ctx); enableErr != nil {
			log.Warn().Err(enableErr).Str("sessionID", sessionID).Msg("Failed to re-enable monitoring after submit failure")
		}
		metrics.Submissions.WithLabelValues("error", trigger).Inc()
		return nil, err
	}

	if !sess.Preview && sess.Invitation != nil {
		if err := s.invitations.MarkCompleted(ctx, sess.Token); err != nil {
			log.Error().Err(err).Str("token", sess.Token).Msg("Failed to mark invitation completed")
		}
	}

	sess.MarkCompleted(result)
	s.setStep(ctx, sess, session.StepCompleted)
	metrics.Submissions.WithLabelValues(string(result.Status), trigger).Inc()

	log.Info().
		Str("sessionID", sessionID).
		Int("score", result.Score).
		Str("status", string(result.Status)).
		Str("trigger", trigger).
		Bool("terminated", result.Terminated).
		Msg("Session submitted")

	return result, nil
}

// ResultSummary returns the taker-facing view of a stored result.
func (s *Service) ResultSummary(ctx context.Context, invitationID string) (*models.ResultSummary, error) {
	result, err := s.results.GetResultByInvitationID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrResultNotFound
	}

	return &models.ResultSummary{
		Score:           result.Score,
		Status:          result.Status,
		Duration:        result.Duration,
		ResultsDeclared: result.ResultsDeclared,
	}, nil
}

// terminate stops proctoring, marks the session, and schedules the
// auto-submit after the grace delay. Runs at most once per session.
func (s *Service) terminate(sess *session.Session) {
	if !sess.Active() {
		return
	}

	sess.MarkTerminated()
	sess.Monitor.Disable()
	sess.Capture.Disable()
	s.setStep(context.Background(), sess, session.StepTerminated)
	metrics.Terminations.Inc()

	log.Warn().
		Str("sessionID", sess.ID).
		Int("tabSwitchCount", sess.Violations.Count()).
		Msg("Session terminated by proctoring")

	time.AfterFunc(s.cfg.TerminationGrace, func() {
		if _, err := s.Submit(context.Background(), sess.ID, TriggerTerminated); err != nil {
			log.Error().Err(err).Str("sessionID", sess.ID).Msg("Auto-submit after termination failed")
		}
	})
}

// RunSweeper drives the countdown: one 1-second ticker over all held
// sessions, auto-submitting active ones past their deadline and
// evicting finished ones past the retention window.
func (s *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session sweeper shutting down")
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

func (s *Service) sweep(ctx context.Context, now time.Time) {
	for _, sess := range s.sessions.Active() {
		if now.Before(sess.Deadline) {
			continue
		}
		if !sess.Test.Settings.AutoSubmit {
			continue
		}
		if _, err := s.Submit(ctx, sess.ID, TriggerTimer); err != nil {
			log.Error().Err(err).Str("sessionID", sess.ID).Msg("Timer auto-submit failed")
		}
	}

	// Retention is much longer than the termination grace, so the
	// grace-delayed auto-submit always lands before eviction.
	for _, sess := range s.sessions.Snapshot() {
		if sess.Active() {
			continue
		}
		finished := sess.FinishedAt()
		if finished.IsZero() || now.Sub(finished) < s.cfg.SessionRetention {
			continue
		}
		s.sessions.Remove(sess.ID)
		log.Debug().Str("sessionID", sess.ID).Msg("Finished session evicted")
	}
}

// setStep records a lifecycle transition in both side stores: the Redis
// status key and the Mongo session mirror.
func (s *Service) setStep(ctx context.Context, sess *session.Session, step session.Step) {
	if s.status != nil {
		if err := s.status.SetStep(ctx, sess.ID, step); err != nil {
			log.Warn().Err(err).Str("sessionID", sess.ID).Msg("Failed to update session step")
		}
	}
	if s.mirror != nil {
		if err := s.mirror.UpsertSession(ctx, sessionState(sess, step)); err != nil {
			log.Warn().Err(err).Str("sessionID", sess.ID).Msg("Failed to mirror session state")
		}
	}
}

func sessionState(sess *session.Session, step session.Step) *models.SessionState {
	return &models.SessionState{
		ID:             sess.ID,
		Token:          sess.Token,
		TestID:         sess.Test.ID,
		Preview:        sess.Preview,
		Step:           string(step),
		StartedAt:      sess.StartedAt,
		Deadline:       sess.Deadline,
		Answers:        sess.Answers(),
		TabSwitchCount: sess.Violations.Count(),
		Terminated:     sess.Terminated(),
		UpdatedAt:      time.Now(),
	}
}
