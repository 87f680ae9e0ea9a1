package exam

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvitationExpired   = errors.New("invitation has expired")
	ErrInvitationCompleted = errors.New("invitation has already been used")
	ErrTestNotFound        = errors.New("test not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionFinished     = errors.New("session is already completed or terminated")
	ErrResultNotFound      = errors.New("result not found")
)

// BlockedError is returned when submission is refused because a coding
// question has edited code but no stored execution record. The flow
// returns to the editing state with no side effects.
type BlockedError struct {
	Questions []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("run your code before submitting: %s", strings.Join(e.Questions, "; "))
}
