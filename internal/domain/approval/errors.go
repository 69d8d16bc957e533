package approval

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound       = errors.New("approval item not found")
	ErrAlreadyDecided     = errors.New("this item has already been processed")
	ErrInvalidState       = errors.New("item cannot be submitted in its current state")
	ErrAttemptVerified    = fmt.Errorf("%w: attempt was verified and cannot be disputed", ErrInvalidState)
	ErrAlreadyDisputed    = fmt.Errorf("%w: attempt has already been disputed", ErrInvalidState)
	ErrDuplicateSubject   = fmt.Errorf("%w: an item for this subject already exists", ErrInvalidState)
	ErrNotAttemptOwner    = errors.New("only the staff member who made the attempt can dispute it")
	ErrRejectNoteRequired = errors.New("a note is required when rejecting")
	ErrSelfDecision       = errors.New("you cannot decide your own submission")
	ErrDeciderRequired    = errors.New("decided_by is required")
	ErrInvalidDecision    = errors.New("invalid decision")
	ErrUnknownKind        = errors.New("unknown approval kind")
)
