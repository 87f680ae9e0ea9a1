package proctor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	stopped bool
}

func (s *fakeStream) Stop() { s.stopped = true }

// fakeDevice fails with the queued errors, then succeeds.
type fakeDevice struct {
	failures []error
	acquired int
	stream   *fakeStream
}

func (d *fakeDevice) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	d.acquired++
	if len(d.failures) > 0 {
		err := d.failures[0]
		d.failures = d.failures[1:]
		return nil, err
	}
	if d.stream == nil {
		d.stream = &fakeStream{}
	}
	return d.stream, nil
}

func slotConfig() SlotConfig {
	return SlotConfig{
		AcquireTimeout: 12 * time.Second,
		MaxAttempts:    3,
		BackoffBase:    2 * time.Second,
		BackoffCap:     8 * time.Second,
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]ErrorClass{
		"NotAllowedError":             ErrPermissionDenied,
		"PermissionDeniedError":       ErrPermissionDenied,
		"NotFoundError":               ErrDeviceNotFound,
		"DevicesNotFoundError":        ErrDeviceNotFound,
		"NotReadableError":            ErrDeviceInUse,
		"TrackStartError":             ErrDeviceInUse,
		"OverconstrainedError":        ErrOverconstrained,
		"ConstraintNotSatisfiedError": ErrOverconstrained,
		"SomethingElse":               ErrUnknown,
		"":                            ErrUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, Classify(name), "error name %q", name)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, ErrDeviceInUse.Retryable())
	assert.True(t, ErrUnknown.Retryable())
	assert.False(t, ErrPermissionDenied.Retryable())
	assert.False(t, ErrDeviceNotFound.Retryable())
	assert.False(t, ErrOverconstrained.Retryable())
}

func TestBackoffSchedule(t *testing.T) {
	slot := NewSlot(SlotMonitor, nil, slotConfig(), nil)

	assert.Equal(t, 2*time.Second, slot.backoff(1))
	assert.Equal(t, 4*time.Second, slot.backoff(2))
	assert.Equal(t, 8*time.Second, slot.backoff(3))
	// Capped after that.
	assert.Equal(t, 8*time.Second, slot.backoff(4))
	assert.Equal(t, 8*time.Second, slot.backoff(10))
}

func TestEnableAcquiresFirstTry(t *testing.T) {
	dev := &fakeDevice{}
	slot := NewSlot(SlotMonitor, dev, slotConfig(), nil)

	require.NoError(t, slot.Enable(context.Background()))
	assert.Equal(t, 1, dev.acquired)
	assert.Equal(t, 0, slot.Attempts())
	assert.Equal(t, ErrorClass(""), slot.LastError())
}

func TestEnableRetriesTransientFailures(t *testing.T) {
	dev := &fakeDevice{failures: []error{
		&DeviceError{Name: "NotReadableError", Message: "device busy"},
		&DeviceError{Name: "NotReadableError", Message: "device busy"},
	}}
	slot := NewSlot(SlotMonitor, dev, slotConfig(), nil)

	var slept []time.Duration
	slot.sleep = func(d time.Duration) { slept = append(slept, d) }

	require.NoError(t, slot.Enable(context.Background()))
	assert.Equal(t, 3, dev.acquired)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
}

func TestEnableStopsOnPermanentFailure(t *testing.T) {
	dev := &fakeDevice{failures: []error{
		&DeviceError{Name: "NotAllowedError", Message: "denied"},
	}}
	slot := NewSlot(SlotMonitor, dev, slotConfig(), nil)
	slot.sleep = func(time.Duration) { t.Fatal("must not back off for a permanent failure") }

	err := slot.Enable(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, dev.acquired)
	assert.Equal(t, ErrPermissionDenied, slot.LastError())
}

func TestEnableExhaustsAttempts(t *testing.T) {
	dev := &fakeDevice{failures: []error{
		&DeviceError{Name: "NotReadableError", Message: "busy"},
		&DeviceError{Name: "NotReadableError", Message: "busy"},
		&DeviceError{Name: "NotReadableError", Message: "busy"},
	}}
	slot := NewSlot(SlotMonitor, dev, slotConfig(), nil)
	slot.sleep = func(time.Duration) {}

	err := slot.Enable(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, dev.acquired)
	assert.Equal(t, 3, slot.Attempts())
}

func TestCaptureSlotSingleAttempt(t *testing.T) {
	dev := &fakeDevice{failures: []error{
		&DeviceError{Name: "NotReadableError", Message: "busy"},
	}}
	slot := NewSlot(SlotCapture, dev, slotConfig(), nil)
	slot.sleep = func(time.Duration) { t.Fatal("capture slots must not retry") }

	err := slot.Enable(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, dev.acquired)
}

func TestEnableSkipsWhenSessionInactive(t *testing.T) {
	dev := &fakeDevice{}
	slot := NewSlot(SlotMonitor, dev, slotConfig(), func() bool { return false })

	require.NoError(t, slot.Enable(context.Background()))
	assert.Equal(t, 0, dev.acquired)
}

func TestDisableStopsStream(t *testing.T) {
	dev := &fakeDevice{}
	slot := NewSlot(SlotMonitor, dev, slotConfig(), nil)
	require.NoError(t, slot.Enable(context.Background()))

	slot.Disable()
	assert.True(t, dev.stream.stopped)

	// Idempotent.
	slot.Disable()
}

func TestReportFailureAdvisesRetry(t *testing.T) {
	slot := NewSlot(SlotMonitor, nil, slotConfig(), nil)
	require.NoError(t, slot.Enable(context.Background()))

	class, delay, retry := slot.ReportFailure("NotReadableError")
	assert.Equal(t, ErrDeviceInUse, class)
	assert.True(t, retry)
	assert.Equal(t, 2*time.Second, delay)

	class, delay, retry = slot.ReportFailure("NotReadableError")
	assert.Equal(t, ErrDeviceInUse, class)
	assert.True(t, retry)
	assert.Equal(t, 4*time.Second, delay)

	// Third failure exhausts the attempt budget.
	_, _, retry = slot.ReportFailure("NotReadableError")
	assert.False(t, retry)
	assert.Equal(t, 3, slot.Attempts())
}

func TestReportFailureNoRetryForPermanentClass(t *testing.T) {
	slot := NewSlot(SlotMonitor, nil, slotConfig(), nil)
	require.NoError(t, slot.Enable(context.Background()))

	class, _, retry := slot.ReportFailure("NotAllowedError")
	assert.Equal(t, ErrPermissionDenied, class)
	assert.False(t, retry)
}

func TestReportAttachedResetsAttempts(t *testing.T) {
	slot := NewSlot(SlotMonitor, nil, slotConfig(), nil)
	require.NoError(t, slot.Enable(context.Background()))

	slot.ReportFailure("NotReadableError")
	slot.ReportAttached()

	assert.Equal(t, 0, slot.Attempts())
	assert.Equal(t, ErrorClass(""), slot.LastError())

	// Attempt budget is fresh after a success.
	_, delay, retry := slot.ReportFailure("NotReadableError")
	assert.True(t, retry)
	assert.Equal(t, 2*time.Second, delay)
}
