package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hireflow/hireflow/internal/config"
	"github.com/hireflow/hireflow/internal/models"
	"github.com/hireflow/hireflow/internal/proctor"
	"github.com/hireflow/hireflow/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvitations struct {
	byToken   map[string]*models.Invitation
	lookupErr error

	mu        sync.Mutex
	completed []string
}

func (f *fakeInvitations) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.byToken[token], nil
}

func (f *fakeInvitations) MarkCompleted(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, token)
	return nil
}

type fakeTests struct {
	byID map[string]*models.Test
}

func (f *fakeTests) GetTestByID(ctx context.Context, testID string) (*models.Test, error) {
	return f.byID[testID], nil
}

type fakeResults struct {
	mu          sync.Mutex
	inserted    []*models.Result
	insertErr   error
	insertDelay time.Duration
}

func (f *fakeResults) InsertResult(ctx context.Context, result *models.Result) error {
	if f.insertDelay > 0 {
		time.Sleep(f.insertDelay)
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, result)
	return nil
}

func (f *fakeResults) GetResultByInvitationID(ctx context.Context, invitationID string) (*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.inserted {
		if r.InvitationID == invitationID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeResults) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeMirror struct {
	mu     sync.Mutex
	states []*models.SessionState
}

func (f *fakeMirror) UpsertSession(ctx context.Context, state *models.SessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	return nil
}

func (f *fakeMirror) steps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.states))
	for _, s := range f.states {
		out = append(out, s.Step)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		TabSwitchLimit:       4,
		TabSwitchDebounce:    2 * time.Second,
		TerminationGrace:     20 * time.Millisecond,
		SessionRetention:     time.Hour,
		CameraAcquireTimeout: 12 * time.Second,
		CameraMaxAttempts:    3,
		CameraBackoffBase:    2 * time.Second,
		CameraBackoffCap:     8 * time.Second,
	}
}

func fixtureTest() *models.Test {
	return &models.Test{
		ID:           "test-1",
		Name:         "Backend Screening",
		Duration:     60,
		PassingScore: 50,
		Settings:     models.TestSettings{PreventTabSwitching: true},
		Sections: []models.Section{
			{ID: "sec-1", Questions: []models.Question{
				{ID: "q1", Type: models.QuestionMultipleChoice, Options: []string{"A", "B"}, CorrectAnswer: "B", Points: 10},
			}},
			{ID: "sec-2", Questions: []models.Question{
				{ID: "q2", Type: models.QuestionCoding, CodeTemplate: "def solve():\n    pass", Points: 10},
			}},
		},
	}
}

type fixture struct {
	svc         *Service
	invitations *fakeInvitations
	tests       *fakeTests
	results     *fakeResults
	mirror      *fakeMirror
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	invitations := &fakeInvitations{byToken: map[string]*models.Invitation{
		"tok-1": {
			ID:        "inv-1",
			Token:     "tok-1",
			TestID:    "test-1",
			Status:    models.InvitationActive,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		},
	}}
	tests := &fakeTests{byID: map[string]*models.Test{"test-1": fixtureTest()}}
	results := &fakeResults{}
	mirror := &fakeMirror{}

	svc := NewService(testConfig(), session.NewManager(nil), invitations, tests, results, nil, mirror)
	return &fixture{svc: svc, invitations: invitations, tests: tests, results: results, mirror: mirror}
}

func completeGate(t *testing.T, f *fixture, sessionID string) {
	t.Helper()
	ctx := context.Background()
	checks := session.SystemChecks{Camera: true, Fullscreen: true, Browser: true, TabFocus: true}
	require.NoError(t, f.svc.PassSystemChecks(ctx, sessionID, checks))
	require.NoError(t, f.svc.PassIdentity(ctx, sessionID, "STU-1042", 1))
	require.NoError(t, f.svc.AcceptRules(ctx, sessionID, true))
}

func TestStartSessionWithInvitation(t *testing.T) {
	f := newFixture(t)

	sess, err := f.svc.StartSession(context.Background(), "tok-1", false)
	require.NoError(t, err)

	require.NotNil(t, sess.Invitation)
	assert.Equal(t, "inv-1", sess.Invitation.ID)
	assert.Equal(t, "test-1", sess.Test.ID)
	assert.Equal(t, session.GateSystem, sess.Gate.Step())
	assert.Len(t, sess.Answers(), 2)
}

func TestStartSessionFallsBackOnLookupError(t *testing.T) {
	f := newFixture(t)
	f.invitations.lookupErr = errors.New("mongo down")

	sess, err := f.svc.StartSession(context.Background(), "test-1", false)
	require.NoError(t, err)

	assert.Nil(t, sess.Invitation)
	assert.Equal(t, "test-1", sess.Test.ID)
}

func TestStartSessionFallsBackOnMissingInvitation(t *testing.T) {
	f := newFixture(t)

	// Token is not a known invitation but matches a test id.
	sess, err := f.svc.StartSession(context.Background(), "test-1", false)
	require.NoError(t, err)
	assert.Nil(t, sess.Invitation)
}

func TestStartSessionCompletedInvitation(t *testing.T) {
	f := newFixture(t)
	f.invitations.byToken["tok-1"].Status = models.InvitationCompleted

	_, err := f.svc.StartSession(context.Background(), "tok-1", false)
	assert.ErrorIs(t, err, ErrInvitationCompleted)
}

func TestStartSessionExpiredInvitation(t *testing.T) {
	f := newFixture(t)
	f.invitations.byToken["tok-1"].ExpiresAt = time.Now().Add(-time.Hour)

	_, err := f.svc.StartSession(context.Background(), "tok-1", false)
	assert.ErrorIs(t, err, ErrInvitationExpired)
}

func TestStartSessionUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.StartSession(context.Background(), "no-such-token", false)
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestStartSessionShufflesWhenEnabled(t *testing.T) {
	f := newFixture(t)
	test := fixtureTest()
	test.Settings.ShuffleQuestions = true
	test.Sections[0].Questions = []models.Question{
		{ID: "q1"}, {ID: "q2"}, {ID: "q3"}, {ID: "q4"}, {ID: "q5"},
	}
	f.tests.byID["test-1"] = test

	sess, err := f.svc.StartSession(context.Background(), "tok-1", false)
	require.NoError(t, err)

	// The order matches the permutation fixed by the session's seed.
	expected := ShuffleQuestions(test, sess.Seed)
	var got, want []string
	for _, q := range sess.Test.Sections[0].Questions {
		got = append(got, q.ID)
	}
	for _, q := range expected.Sections[0].Questions {
		want = append(want, q.ID)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, SeedFromSessionID(sess.ID), sess.Seed)
}

func TestSaveAnswerAndCodeRequireActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	require.NoError(t, f.svc.SaveAnswer(ctx, sess.ID, "sec-1", "q1", "B"))

	_, err = f.svc.Submit(ctx, sess.ID, TriggerTimer)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SaveAnswer(ctx, sess.ID, "sec-1", "q1", "A"), ErrSessionFinished)
	assert.ErrorIs(t, f.svc.SaveCode(ctx, sess.ID, "sec-2", "q2", "code"), ErrSessionFinished)
}

func TestEditorCodeFallsBackToTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)

	code, err := f.svc.EditorCode(ctx, sess.ID, "sec-2", "q2")
	require.NoError(t, err)
	assert.Equal(t, "def solve():\n    pass", code)

	require.NoError(t, f.svc.SaveCode(ctx, sess.ID, "sec-2", "q2", "def solve():\n    return 1"))
	code, err = f.svc.EditorCode(ctx, sess.ID, "sec-2", "q2")
	require.NoError(t, err)
	assert.Equal(t, "def solve():\n    return 1", code)
}

func TestSubmitBlocksUnexecutedCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	require.NoError(t, f.svc.SaveCode(ctx, sess.ID, "sec-2", "q2", "def solve():\n    return 1"))

	_, err = f.svc.Submit(ctx, sess.ID, TriggerUser)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Len(t, blocked.Questions, 1)

	// Nothing was persisted; the session is still live.
	assert.True(t, sess.Active())
	assert.Equal(t, 0, f.results.count())

	// After a run is recorded, the same submit goes through.
	require.NoError(t, f.svc.RecordCodeRun(ctx, sess.ID, "sec-2", "q2", models.CodeSubmission{
		Code:      "def solve():\n    return 1",
		AllPassed: true,
	}, "api"))

	result, err := f.svc.Submit(ctx, sess.ID, TriggerUser)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
}

func TestSubmitGuardSkippedForAutomaticTriggers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	require.NoError(t, f.svc.SaveCode(ctx, sess.ID, "sec-2", "q2", "edited but never run"))

	_, err = f.svc.Submit(ctx, sess.ID, TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, 1, f.results.count())
}

func TestSubmitGradesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	require.NoError(t, f.svc.SaveAnswer(ctx, sess.ID, "sec-1", "q1", "B"))
	require.NoError(t, f.svc.RecordCodeRun(ctx, sess.ID, "sec-2", "q2", models.CodeSubmission{
		Code:      "def solve():\n    return 42",
		AllPassed: true,
	}, "api"))

	result, err := f.svc.Submit(ctx, sess.ID, TriggerUser)
	require.NoError(t, err)

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, models.ResultPassed, result.Status)
	assert.Equal(t, "inv-1", result.InvitationID)
	assert.Equal(t, "test-1", result.TestID)
	assert.False(t, result.Terminated)
	assert.GreaterOrEqual(t, result.Duration, 0)

	assert.Equal(t, []string{"tok-1"}, f.invitations.completed)
	assert.False(t, sess.Active())
}

func TestSubmitIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	first, err := f.svc.Submit(ctx, sess.ID, TriggerTimer)
	require.NoError(t, err)

	second, err := f.svc.Submit(ctx, sess.ID, TriggerUser)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.results.count())
}

func TestConcurrentSubmitPersistsOnce(t *testing.T) {
	f := newFixture(t)
	f.results.insertDelay = 50 * time.Millisecond
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	// Countdown and termination grace can fire in the same instant; only
	// one of the two may grade and persist.
	results := make([]*models.Result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.svc.Submit(ctx, sess.ID, TriggerTimer)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.results.count())
	assert.Same(t, results[0], results[1])
	assert.Equal(t, []string{"tok-1"}, f.invitations.completed)
}

func TestSessionStateMirrored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	require.NoError(t, f.svc.SaveAnswer(ctx, sess.ID, "sec-1", "q1", "B"))
	_, err = f.svc.Submit(ctx, sess.ID, TriggerTimer)
	require.NoError(t, err)

	assert.Equal(t, []string{"created", "verification", "in_progress", "completed"}, f.mirror.steps())

	last := f.mirror.states[len(f.mirror.states)-1]
	assert.Equal(t, sess.ID, last.ID)
	assert.Equal(t, "test-1", last.TestID)
	assert.Equal(t, "B", last.Answers["sec-1-q1"])
	assert.False(t, last.Terminated)
}

func TestSubmitPersistFailureKeepsSessionLive(t *testing.T) {
	f := newFixture(t)
	f.results.insertErr = errors.New("mongo write failed")
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	_, err = f.svc.Submit(ctx, sess.ID, TriggerUser)
	require.Error(t, err)

	assert.True(t, sess.Active())
	assert.Empty(t, f.invitations.completed)
}

func TestPreviewSubmitDoesNotConsumeInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", true)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	result, err := f.svc.Submit(ctx, sess.ID, TriggerUser)
	require.NoError(t, err)

	assert.True(t, result.Preview)
	assert.Empty(t, f.invitations.completed)
}

func TestProctorEventsTerminateAtLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	base := time.Now()
	for i := 0; i < 3; i++ {
		count, terminated, err := f.svc.RecordProctorEvent(ctx, sess.ID, proctor.EventWindowBlur, base.Add(time.Duration(i)*10*time.Second))
		require.NoError(t, err)
		assert.Equal(t, i+1, count)
		assert.False(t, terminated)
	}

	count, terminated, err := f.svc.RecordProctorEvent(ctx, sess.ID, proctor.EventWindowBlur, base.Add(40*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.True(t, terminated)
	assert.True(t, sess.Terminated())

	// The grace delay elapses and the terminated session auto-submits.
	require.Eventually(t, func() bool {
		return f.results.count() == 1
	}, time.Second, 5*time.Millisecond)

	result := sess.Result()
	require.NotNil(t, result)
	assert.True(t, result.Terminated)
	assert.Equal(t, 4, result.TabSwitchCount)
}

func TestProctorEventsIgnoredWhenNotEnforced(t *testing.T) {
	f := newFixture(t)
	test := fixtureTest()
	test.Settings.PreventTabSwitching = false
	f.tests.byID["test-1"] = test
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	base := time.Now()
	for i := 0; i < 6; i++ {
		_, terminated, err := f.svc.RecordProctorEvent(ctx, sess.ID, proctor.EventWindowBlur, base.Add(time.Duration(i)*10*time.Second))
		require.NoError(t, err)
		assert.False(t, terminated)
	}
	assert.True(t, sess.Active())
}

func TestCameraStatusAdvice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	advice, err := f.svc.CameraStatus(ctx, sess.ID, proctor.SlotMonitor, false, "NotReadableError")
	require.NoError(t, err)
	assert.Equal(t, proctor.ErrDeviceInUse, advice.Class)
	assert.True(t, advice.Retry)
	assert.Equal(t, 2*time.Second, advice.RetryAfter)

	advice, err = f.svc.CameraStatus(ctx, sess.ID, proctor.SlotMonitor, true, "")
	require.NoError(t, err)
	assert.False(t, advice.Retry)
	assert.Equal(t, 0, sess.Monitor.Attempts())
}

func TestResolveSection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)

	sectionID, err := f.svc.ResolveSection(sess.ID, "q2")
	require.NoError(t, err)
	assert.Equal(t, "sec-2", sectionID)

	_, err = f.svc.ResolveSection(sess.ID, "nope")
	assert.Error(t, err)
}

func TestResultSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	_, err = f.svc.Submit(ctx, sess.ID, TriggerUser)
	require.NoError(t, err)

	summary, err := f.svc.ResultSummary(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.ResultFailed, summary.Status)

	_, err = f.svc.ResultSummary(ctx, "inv-unknown")
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestRecordCodeRunRejectsFinishedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	_, err = f.svc.Submit(ctx, sess.ID, TriggerTimer)
	require.NoError(t, err)

	err = f.svc.RecordCodeRun(ctx, sess.ID, "sec-2", "q2", models.CodeSubmission{
		Code:      "def solve():\n    return 1",
		AllPassed: true,
	}, "runner")
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.Equal(t, 0, sess.SubmissionCount("sec-2", "q2"))
}

func TestSweeperAutoSubmitsPastDeadline(t *testing.T) {
	f := newFixture(t)
	test := fixtureTest()
	test.Settings.AutoSubmit = true
	f.tests.byID["test-1"] = test
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	f.svc.sweep(ctx, sess.Deadline.Add(-time.Second))
	assert.Equal(t, 0, f.results.count())

	f.svc.sweep(ctx, sess.Deadline.Add(time.Second))
	assert.Equal(t, 1, f.results.count())
	assert.False(t, sess.Active())
}

func TestSweeperEvictsFinishedSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, "tok-1", false)
	require.NoError(t, err)
	completeGate(t, f, sess.ID)

	_, err = f.svc.Submit(ctx, sess.ID, TriggerTimer)
	require.NoError(t, err)

	// Within the retention window the result stays retrievable.
	f.svc.sweep(ctx, time.Now())
	_, err = f.svc.Session(sess.ID)
	require.NoError(t, err)

	f.svc.sweep(ctx, time.Now().Add(2*time.Hour))
	_, err = f.svc.Session(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Session("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Submit(context.Background(), "missing", TriggerUser)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
