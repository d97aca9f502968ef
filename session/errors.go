// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every error returned by Controller and Registry matches
// exactly one of these with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation error")
	ErrOperationFailed = errors.New("operation failed")
)

var (
	ErrSessionNotFound         = fmt.Errorf("%w: session", ErrNotFound)
	ErrWrongPassword           = fmt.Errorf("%w: wrong password", ErrUnauthorized)
	ErrNotAdmin                = fmt.Errorf("%w: only the session admin can do this", ErrUnauthorized)
	ErrNotParticipant          = fmt.Errorf("%w: not a participant of this session", ErrUnauthorized)
	ErrQuestionIndexOutOfRange = fmt.Errorf("%w: question is not open", ErrInvalidState)
	ErrVotingNotOpen           = fmt.Errorf("%w: voting is not open", ErrInvalidState)
	ErrAgendaEmpty             = fmt.Errorf("%w: agenda is empty", ErrValidation)
	ErrSessionClosed           = fmt.Errorf("%w: session is closed", ErrInvalidState)
	ErrNoProposerPending       = fmt.Errorf("%w: no question is waiting for a proposer", ErrInvalidState)
)

// DuplicateAgendaError lists agenda lines that appear more than once.
// It matches ErrInvalidState.
type DuplicateAgendaError struct {
	Duplicates []string
}

func (e *DuplicateAgendaError) Error() string {
	return "duplicate agenda items: " + strings.Join(e.Duplicates, ", ")
}

func (e *DuplicateAgendaError) Is(target error) bool {
	return target == ErrInvalidState
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
