package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

// RejectionKind distinguishes a structurally impossible transition from a
// legal transition attempted by an unauthorized role.
type RejectionKind string

const (
	RejectionNoSuchTransition RejectionKind = "no_such_transition"
	RejectionUnauthorized     RejectionKind = "unauthorized"
)

// IllegalStateTransitionError is the forensic record of a rejected
// transition attempt. It carries everything needed to reconstruct who tried
// to move which entity where, and when.
type IllegalStateTransitionError struct {
	EntityID       string
	EntityType     EntityType
	PreviousState  string
	AttemptedState string
	ActorID        string
	ActorRole      Role
	Timestamp      time.Time
	Kind           RejectionKind
}

func (e *IllegalStateTransitionError) Error() string {
	if e.Kind == RejectionUnauthorized {
		return fmt.Sprintf("actor %s (role %s) not authorized for %s transition %s -> %s on %s",
			e.ActorID, e.ActorRole, e.EntityType, e.PreviousState, e.AttemptedState, e.EntityID)
	}
	return fmt.Sprintf("illegal %s transition %s -> %s on %s",
		e.EntityType, e.PreviousState, e.AttemptedState, e.EntityID)
}

// AsIllegalTransition unwraps err into an IllegalStateTransitionError when
// possible. Webhook adapters use it to map business rejections onto
// acknowledge-without-retry responses.
func AsIllegalTransition(err error) (*IllegalStateTransitionError, bool) {
	var ite *IllegalStateTransitionError
	if errors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}

// ErrUnknownLegacyStatus is returned by the legacy status mappers for a
// value outside the closed legacy vocabulary.
var ErrUnknownLegacyStatus = errors.New("unknown legacy status")
