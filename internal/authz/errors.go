package authz

import (
	"errors"
	"fmt"
	"net/http"
)

// DenyReason classifies why a capability request was denied. Keeping the
// reasons in the type system makes the fail-closed contract explicit: a
// store fault is never one of these, it surfaces as the raw error.
type DenyReason string

const (
	ReasonUnauthenticated        DenyReason = "unauthenticated"
	ReasonNoCase                 DenyReason = "no_compliance_case"
	ReasonUnderReview            DenyReason = "case_under_review"
	ReasonCaseNotApproved        DenyReason = "case_not_approved"
	ReasonTierInsufficient       DenyReason = "tier_insufficient"
	ReasonReverificationRequired DenyReason = "reverification_required"
)

// AuthError is a definite authorization decision: 401 for an absent or
// invalid identity, 403 for a capability or compliance denial.
type AuthError struct {
	Status int
	Reason DenyReason
	msg    string
}

func (e *AuthError) Error() string {
	return e.msg
}

func denied(reason DenyReason, format string, args ...any) *AuthError {
	return &AuthError{
		Status: http.StatusForbidden,
		Reason: reason,
		msg:    fmt.Sprintf(format, args...),
	}
}

// ErrUnauthenticated is returned when no valid session is present.
func ErrUnauthenticated() *AuthError {
	return &AuthError{
		Status: http.StatusUnauthorized,
		Reason: ReasonUnauthenticated,
		msg:    "authentication required",
	}
}

// AsAuthError unwraps err into an AuthError when possible. A false return
// means the error is an infrastructure fault and must surface as one.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
