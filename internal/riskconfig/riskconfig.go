// Package riskconfig serves the hot-reloadable numeric thresholds that
// tune risk scoring and approval routing. Unlike the capability
// authorizer, this cache intentionally fails open to a built-in default:
// these values shape policy, they never gate authorization.
package riskconfig

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskConfiguration is the single mutable threshold record. Amount fields
// are integer minor units; ratio fields are exact decimals.
type RiskConfiguration struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	MaxECRRatio      decimal.Decimal `json:"max_ecr_ratio" gorm:"type:numeric"`
	ECRWarnRatio     decimal.Decimal `json:"ecr_warn_ratio" gorm:"type:numeric"`
	HardstopUtilFail decimal.Decimal `json:"hardstop_util_fail" gorm:"type:numeric"`
	HardstopUtilWarn decimal.Decimal `json:"hardstop_util_warn" gorm:"type:numeric"`

	TRICriticalThreshold   decimal.Decimal `json:"tri_critical_threshold" gorm:"type:numeric"`
	TRIElevatedThreshold   decimal.Decimal `json:"tri_elevated_threshold" gorm:"type:numeric"`
	TRIWarnThreshold       decimal.Decimal `json:"tri_warn_threshold" gorm:"type:numeric"`
	TRIConcentrationFactor decimal.Decimal `json:"tri_concentration_factor" gorm:"type:numeric"`

	AutoApprovalLimitCents    int64 `json:"auto_approval_limit_cents"`
	DeskHeadLimitCents        int64 `json:"desk_head_limit_cents"`
	CreditCommitteeLimitCents int64 `json:"credit_committee_limit_cents"`
}

// Defaults returns the hardcoded fallback configuration used whenever the
// store cannot produce an active record.
func Defaults() RiskConfiguration {
	return RiskConfiguration{
		MaxECRRatio:      decimal.RequireFromString("0.85"),
		ECRWarnRatio:     decimal.RequireFromString("0.70"),
		HardstopUtilFail: decimal.RequireFromString("0.95"),
		HardstopUtilWarn: decimal.RequireFromString("0.80"),

		TRICriticalThreshold:   decimal.RequireFromString("80"),
		TRIElevatedThreshold:   decimal.RequireFromString("60"),
		TRIWarnThreshold:       decimal.RequireFromString("40"),
		TRIConcentrationFactor: decimal.RequireFromString("1.25"),

		AutoApprovalLimitCents:    5_000_000,
		DeskHeadLimitCents:        50_000_000,
		CreditCommitteeLimitCents: 500_000_000,
	}
}

// ApprovalTier is the routing decision for a proposed exposure amount.
type ApprovalTier string

const (
	TierAutoApproval    ApprovalTier = "AUTO_APPROVAL"
	TierDeskHead        ApprovalTier = "DESK_HEAD"
	TierCreditCommittee ApprovalTier = "CREDIT_COMMITTEE"
	TierBoardReferral   ApprovalTier = "BOARD_REFERRAL"
)

// ApprovalTierFor routes an amount to the cheapest approval tier whose
// limit covers it.
func (rc RiskConfiguration) ApprovalTierFor(amountCents int64) ApprovalTier {
	switch {
	case amountCents <= rc.AutoApprovalLimitCents:
		return TierAutoApproval
	case amountCents <= rc.DeskHeadLimitCents:
		return TierDeskHead
	case amountCents <= rc.CreditCommitteeLimitCents:
		return TierCreditCommittee
	}
	return TierBoardReferral
}
