package models

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the accounting direction of a journal entry.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// Trade represents an institutional trade moving through the clearing
// lifecycle. Status values are owned by internal/lifecycle.
type Trade struct {
	ID            uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID         uuid.UUID `json:"org_id" gorm:"type:uuid;index"`
	BuyerUserID   uuid.UUID `json:"buyer_user_id" gorm:"type:uuid;index"`
	SellerUserID  uuid.UUID `json:"seller_user_id" gorm:"type:uuid;index"`
	Status        string    `json:"status" gorm:"index"`
	NotionalCents int64     `json:"notional_cents"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SettlementCase tracks the rail-facing side of a trade: one row per
// settlement instruction submitted to a payment rail.
type SettlementCase struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TradeID     uuid.UUID `json:"trade_id" gorm:"type:uuid;index"`
	Status      string    `json:"status" gorm:"index"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	PayeeID     uuid.UUID `json:"payee_id" gorm:"type:uuid;index"`
	Provider    string    `json:"provider" gorm:"index"`
	ExternalRef string    `json:"external_ref" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ComplianceCase is the onboarding/KYB case that gates a user's financial
// capabilities. Status: PENDING, UNDER_REVIEW, APPROVED, REJECTED.
// Tier: BROWSE, QUOTE, LOCK, EXECUTE.
type ComplianceCase struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Status    string    `json:"status" gorm:"index"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClearingJournal is an immutable double-entry journal posted against a
// settlement case. Exactly one journal exists per idempotency key.
type ClearingJournal struct {
	ID               int64                  `json:"id" gorm:"primaryKey"`
	SettlementCaseID uuid.UUID              `json:"settlement_case_id" gorm:"type:uuid;index"`
	IdempotencyKey   string                 `json:"idempotency_key" gorm:"uniqueIndex"`
	Description      string                 `json:"description"`
	PostedAt         time.Time              `json:"posted_at"`
	CreatedBy        string                 `json:"created_by"`
	Entries          []ClearingJournalEntry `json:"entries" gorm:"foreignKey:JournalID"`
}

// ClearingJournalEntry is a single debit or credit line. Amounts are
// integer minor units; no floating point crosses into the ledger.
type ClearingJournalEntry struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	JournalID   int64     `json:"journal_id" gorm:"index"`
	AccountCode string    `json:"account_code"`
	Direction   Direction `json:"direction"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Memo        string    `json:"memo"`
}
