package session

import (
	"fmt"
	"sync"
)

type GateStep string

const (
	GateSystem   GateStep = "system"
	GateIdentity GateStep = "id"
	GateRules    GateStep = "rules"
	GateComplete GateStep = "complete"
)

// SystemChecks are the four pre-exam environment checks.
type SystemChecks struct {
	Camera     bool `json:"camera"`
	Fullscreen bool `json:"fullscreen"`
	Browser    bool `json:"browser"`
	TabFocus   bool `json:"tabFocus"`
}

func (c SystemChecks) AllPassed() bool {
	return c.Camera && c.Fullscreen && c.Browser && c.TabFocus
}

// Gate is the sequential pre-exam verification state machine:
// system → id → rules → complete, with no rollback once complete.
type Gate struct {
	mu         sync.Mutex
	step       GateStep
	identifier string
	images     int
	accepted   bool
}

func NewGate() *Gate {
	return &Gate{step: GateSystem}
}

// NewCompletedGate is used when verification was memoized for the token
// and the gate is skipped.
func NewCompletedGate() *Gate {
	return &Gate{step: GateComplete}
}

// Skip jumps straight to complete for a token with memoized verification.
func (g *Gate) Skip() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.step = GateComplete
}

func (g *Gate) Step() GateStep {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.step
}

func (g *Gate) Done() bool {
	return g.Step() == GateComplete
}

// PassSystemChecks moves system → id; every check must hold.
func (g *Gate) PassSystemChecks(checks SystemChecks) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.step != GateSystem {
		return fmt.Errorf("verification step is %s, expected %s", g.step, GateSystem)
	}
	if !checks.AllPassed() {
		return fmt.Errorf("all system checks must pass before continuing")
	}

	g.step = GateIdentity
	return nil
}

// PassIdentity moves id → rules; requires a student identifier and at
// least one captured image (face or ID card).
func (g *Gate) PassIdentity(identifier string, capturedImages int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.step != GateIdentity {
		return fmt.Errorf("verification step is %s, expected %s", g.step, GateIdentity)
	}
	if identifier == "" {
		return fmt.Errorf("student identifier is required")
	}
	if capturedImages < 1 {
		return fmt.Errorf("at least one captured image is required")
	}

	g.identifier = identifier
	g.images = capturedImages
	g.step = GateRules
	return nil
}

// AcceptRules moves rules → complete; requires the explicit checkbox.
func (g *Gate) AcceptRules(accepted bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.step != GateRules {
		return fmt.Errorf("verification step is %s, expected %s", g.step, GateRules)
	}
	if !accepted {
		return fmt.Errorf("rules must be accepted before starting the test")
	}

	g.accepted = true
	g.step = GateComplete
	return nil
}

func (g *Gate) Identifier() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identifier
}
