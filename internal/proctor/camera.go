package proctor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrorClass buckets device failures into the user-facing categories the
// client renders. Classification drives the retry decision: only transient
// classes are worth retrying.
type ErrorClass string

const (
	ErrPermissionDenied ErrorClass = "permission_denied" // NotAllowedError
	ErrDeviceNotFound   ErrorClass = "not_found"         // NotFoundError
	ErrDeviceInUse      ErrorClass = "in_use"            // NotReadableError
	ErrOverconstrained  ErrorClass = "overconstrained"   // OverconstrainedError
	ErrUnknown          ErrorClass = "unknown"
)

// Classify maps a browser-reported error name to its class.
func Classify(name string) ErrorClass {
	switch name {
	case "NotAllowedError", "PermissionDeniedError":
		return ErrPermissionDenied
	case "NotFoundError", "DevicesNotFoundError":
		return ErrDeviceNotFound
	case "NotReadableError", "TrackStartError":
		return ErrDeviceInUse
	case "OverconstrainedError", "ConstraintNotSatisfiedError":
		return ErrOverconstrained
	default:
		return ErrUnknown
	}
}

// Retryable reports whether an acquisition failure of this class is worth
// another attempt. A denied permission or missing device will not fix
// itself inside the backoff window.
func (c ErrorClass) Retryable() bool {
	return c == ErrDeviceInUse || c == ErrUnknown
}

// Constraints are the fixed ideal resolution requested on acquisition.
type Constraints struct {
	Width  int
	Height int
}

// DefaultConstraints matches the monitoring feed request.
var DefaultConstraints = Constraints{Width: 640, Height: 480}

// Stream is an acquired camera feed. Stop releases all tracks.
type Stream interface {
	Stop()
}

// Device is the external camera capability. Acquire must honor ctx
// cancellation; the error should carry the browser-reported name so it
// can be classified.
type Device interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// DeviceError carries the browser error name through an Acquire failure.
type DeviceError struct {
	Name    string
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

type SlotKind string

const (
	SlotMonitor SlotKind = "monitor" // persistent sidebar feed
	SlotCapture SlotKind = "capture" // on-demand verification modal
)

// SlotConfig tunes one slot's acquisition lifecycle.
type SlotConfig struct {
	AcquireTimeout time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
}

// Slot manages the lifecycle of one camera stream owned by a session.
// With a Device attached it acquires/retries/releases the stream itself;
// without one it runs in reported mode, where the remote client performs
// the acquisition and the slot tracks attempts and hands back retry
// advice. Either way the policy is the same: up to MaxAttempts tries with
// exponential backoff, only while the session is still active.
type Slot struct {
	kind   SlotKind
	dev    Device
	cfg    SlotConfig
	active func() bool
	sleep  func(time.Duration)

	mu       sync.Mutex
	enabled  bool
	stream   Stream
	attempts int
	lastErr  ErrorClass
}

func NewSlot(kind SlotKind, dev Device, cfg SlotConfig, active func() bool) *Slot {
	if active == nil {
		active = func() bool { return true }
	}
	return &Slot{
		kind:   kind,
		dev:    dev,
		cfg:    cfg,
		active: active,
		sleep:  time.Sleep,
	}
}

// backoff returns the capped exponential delay before the given retry
// (attempt is 1-based): base, 2*base, 4*base ... up to the cap.
func (s *Slot) backoff(attempt int) time.Duration {
	d := s.cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.BackoffCap {
			return s.cfg.BackoffCap
		}
	}
	if d > s.cfg.BackoffCap {
		return s.cfg.BackoffCap
	}
	return d
}

// Enable brings the slot up. In reported mode it only marks the slot
// enabled; with a Device it acquires the stream, retrying monitor slots
// per policy. Capture slots get a single attempt, matching the on-demand
// modal behavior.
func (s *Slot) Enable(ctx context.Context) error {
	s.mu.Lock()
	if s.enabled {
		s.mu.Unlock()
		return nil
	}
	s.enabled = true
	s.attempts = 0
	dev := s.dev
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	maxAttempts := s.cfg.MaxAttempts
	if s.kind == SlotCapture {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !s.active() || !s.isEnabled() {
			// Session finished or slot torn down while we were waiting;
			// discard the attempt.
			return nil
		}

		stream, err := s.acquireOnce(ctx, dev)
		if err == nil {
			s.mu.Lock()
			if !s.enabled {
				// Disabled during the await; release what we got.
				s.mu.Unlock()
				stream.Stop()
				return nil
			}
			s.stream = stream
			s.lastErr = ""
			s.mu.Unlock()
			return nil
		}

		class := classifyErr(err)
		s.mu.Lock()
		s.attempts = attempt
		s.lastErr = class
		s.mu.Unlock()

		log.Warn().
			Str("slot", string(s.kind)).
			Str("class", string(class)).
			Int("attempt", attempt).
			Err(err).
			Msg("Camera acquisition failed")

		lastErr = err
		if !class.Retryable() || attempt == maxAttempts {
			break
		}
		s.sleep(s.backoff(attempt))
	}

	return fmt.Errorf("camera acquisition failed: %w", lastErr)
}

func (s *Slot) acquireOnce(ctx context.Context, dev Device) (Stream, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()

	return dev.Acquire(acquireCtx, DefaultConstraints)
}

// ReportFailure records a client-side acquisition failure and returns the
// classification plus retry advice for the next attempt.
func (s *Slot) ReportFailure(errorName string) (ErrorClass, time.Duration, bool) {
	class := Classify(errorName)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	s.lastErr = class

	if !s.enabled || !s.active() {
		return class, 0, false
	}
	if s.kind != SlotMonitor {
		return class, 0, false
	}
	if !class.Retryable() || s.attempts >= s.cfg.MaxAttempts {
		return class, 0, false
	}

	return class, s.backoff(s.attempts), true
}

// ReportAttached records a successful client-side acquisition.
func (s *Slot) ReportAttached() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = 0
	s.lastErr = ""
}

// Disable tears the slot down and releases any held stream. Safe to call
// multiple times; used on completion, termination and session close.
func (s *Slot) Disable() {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.enabled = false
	s.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
}

func (s *Slot) isEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Attempts returns the failed-attempt count since the last success.
func (s *Slot) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// LastError returns the class of the most recent failure, if any.
func (s *Slot) LastError() ErrorClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func classifyErr(err error) ErrorClass {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return Classify(devErr.Name)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUnknown
	}
	return ErrUnknown
}
