package authz

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meridianclear/clearcore/pkg/metrics"
	"github.com/meridianclear/clearcore/pkg/models"
)

// AuthSession is the per-request identity derived from the bearer token.
// It is never persisted by this core. KYCStatus and ReauthedAt are claims
// embedded at token issue time; the live compliance case always wins over
// them for protected capabilities.
type AuthSession struct {
	UserID     string
	Role       string
	KYCStatus  string
	OrgID      string
	LEICode    string
	ReauthedAt time.Time
}

// CaseStore looks up the live compliance case for a user. A missing case is
// (nil, nil); an error means the store could not answer at all.
type CaseStore interface {
	FindActiveByUser(ctx context.Context, userID string) (*models.ComplianceCase, error)
}

// Options tunes authorizer behavior.
type Options struct {
	// ParallelEngagement distinguishes an under-review case from a plain
	// denial, so the caller can tell the user their case is in flight.
	ParallelEngagement bool
	// ReverificationWindow bounds how old a step-up re-authentication may
	// be for protected, irreversible actions.
	ReverificationWindow time.Duration
}

// DefaultReverificationWindow is applied when Options leaves the window zero.
const DefaultReverificationWindow = 5 * time.Minute

// Authorizer resolves capability requests against the live case store.
type Authorizer struct {
	store  CaseStore
	logger *zap.Logger
	opts   Options
}

// NewAuthorizer creates an authorizer reading from store.
func NewAuthorizer(store CaseStore, logger *zap.Logger, opts Options) *Authorizer {
	if opts.ReverificationWindow <= 0 {
		opts.ReverificationWindow = DefaultReverificationWindow
	}
	return &Authorizer{store: store, logger: logger, opts: opts}
}

// RequireCapability returns the session when it may exercise capability,
// or an error.
//
// Protected capabilities (LOCK_PRICE and above) consult the store with no
// failure handling: a store fault propagates to the caller unrecovered and
// is never converted into an allow or a 403. A revoked case therefore
// denies on the very next request, session claims notwithstanding.
//
// BROWSE is the floor every authenticated session holds: it commits no
// price and moves no money, so neither case state nor store health gates
// it. QUOTE and above need a live case answer; during a store outage QUOTE
// is denied rather than derived from token claims, so an outage is never
// more permissive than a definite store answer.
func (a *Authorizer) RequireCapability(ctx context.Context, session *AuthSession, capability Capability) (*AuthSession, error) {
	if session == nil || session.UserID == "" {
		return nil, a.deny(ErrUnauthenticated())
	}

	if capability == CapBrowse {
		return session, nil
	}

	if capability.IsProtected() {
		cc, err := a.store.FindActiveByUser(ctx, session.UserID)
		if err != nil {
			// Fail closed: the fault surfaces as a server fault.
			return nil, err
		}
		return a.decide(session, capability, cc)
	}

	cc, err := a.store.FindActiveByUser(ctx, session.UserID)
	if err != nil {
		a.logger.Warn("case store unavailable; serving floor capability only",
			zap.String("user_id", session.UserID),
			zap.String("capability", string(capability)),
			zap.Error(err))
		return nil, a.deny(denied(ReasonCaseNotApproved,
			"capability %s requires an approved case; case store unavailable", capability))
	}
	return a.decide(session, capability, cc)
}

func (a *Authorizer) decide(session *AuthSession, capability Capability, cc *models.ComplianceCase) (*AuthSession, error) {
	if cc == nil {
		return nil, a.deny(denied(ReasonNoCase, "no compliance case on file"))
	}

	switch cc.Status {
	case CaseStatusApproved:
		// fall through to tier check
	case CaseStatusUnderReview:
		if a.opts.ParallelEngagement {
			return nil, a.deny(denied(ReasonUnderReview, "compliance case is under review"))
		}
		return nil, a.deny(denied(ReasonCaseNotApproved, "compliance case not approved"))
	default:
		return nil, a.deny(denied(ReasonCaseNotApproved, "compliance case not approved"))
	}

	if !TierCapability(cc.Tier).Grants(capability) {
		return nil, a.deny(denied(ReasonTierInsufficient,
			"case tier %s does not grant %s", cc.Tier, capability))
	}

	return session, nil
}

// RequireFreshAuth enforces step-up re-verification for protected,
// irreversible actions. It is independent of the capability decision: a
// caller may hold SETTLE and still be turned away for a stale step-up.
func (a *Authorizer) RequireFreshAuth(session *AuthSession, capability Capability, now time.Time) error {
	if !capability.IsProtected() {
		return nil
	}
	if session.ReauthedAt.IsZero() || now.Sub(session.ReauthedAt) > a.opts.ReverificationWindow {
		return a.deny(denied(ReasonReverificationRequired,
			"recent re-authentication required for %s", capability))
	}
	return nil
}

func (a *Authorizer) deny(err *AuthError) error {
	metrics.AuthzDenials.WithLabelValues(string(err.Reason)).Inc()
	return err
}
