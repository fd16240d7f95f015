// Package ledger constructs immutable double-entry clearing journals.
// Amounts are integer minor units throughout; a journal is either balanced
// and complete or it does not exist.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridianclear/clearcore/pkg/models"
)

// PostJournal builds a new clearing journal for a settlement case, or
// returns the existing journal when the idempotency key is already known.
//
// Replays are invisible, not re-validated: when existing carries a journal
// with the same key, that journal is returned unchanged and the supplied
// entries are discarded even if they differ. Callers that need to know a
// retry diverged use EntriesMatch on the result.
func PostJournal(settlementCaseID uuid.UUID, idempotencyKey, description string, entries []models.ClearingJournalEntry, now time.Time, createdBy string, existing []models.ClearingJournal) (*models.ClearingJournal, error) {
	for i := range existing {
		if existing[i].IdempotencyKey == idempotencyKey {
			return &existing[i], nil
		}
	}

	if len(entries) == 0 {
		return nil, ErrEmptyJournal
	}

	var debits, credits int64
	for _, entry := range entries {
		if entry.AmountCents < 0 {
			return nil, ErrNegativeAmount
		}
		switch entry.Direction {
		case models.Debit:
			debits += entry.AmountCents
		case models.Credit:
			credits += entry.AmountCents
		default:
			return nil, ErrUnknownDirection
		}
	}

	if debits != credits {
		return nil, &UnbalancedJournalError{
			SettlementCaseID: settlementCaseID,
			DebitsCents:      debits,
			CreditsCents:     credits,
		}
	}

	journal := &models.ClearingJournal{
		ID:               nextJournalID(existing),
		SettlementCaseID: settlementCaseID,
		IdempotencyKey:   idempotencyKey,
		Description:      description,
		PostedAt:         now,
		CreatedBy:        createdBy,
		Entries:          make([]models.ClearingJournalEntry, len(entries)),
	}
	copy(journal.Entries, entries)
	for i := range journal.Entries {
		journal.Entries[i].JournalID = journal.ID
	}

	return journal, nil
}

// AssertBalanced applies the same balance invariant to a journal assembled
// elsewhere: non-empty entries, non-negative amounts, debits equal credits.
func AssertBalanced(journal *models.ClearingJournal) error {
	if len(journal.Entries) == 0 {
		return ErrEmptyJournal
	}

	var debits, credits int64
	for _, entry := range journal.Entries {
		if entry.AmountCents < 0 {
			return ErrNegativeAmount
		}
		switch entry.Direction {
		case models.Debit:
			debits += entry.AmountCents
		case models.Credit:
			credits += entry.AmountCents
		default:
			return ErrUnknownDirection
		}
	}

	if debits != credits {
		return &UnbalancedJournalError{
			SettlementCaseID: journal.SettlementCaseID,
			DebitsCents:      debits,
			CreditsCents:     credits,
		}
	}
	return nil
}

// EntriesMatch reports whether the supplied entries are equivalent to the
// journal's stored entries (account, direction, amount, currency). Used to
// flag a divergent retry without breaking the idempotency contract.
func EntriesMatch(journal *models.ClearingJournal, entries []models.ClearingJournalEntry) bool {
	if len(journal.Entries) != len(entries) {
		return false
	}
	for i, stored := range journal.Entries {
		supplied := entries[i]
		if stored.AccountCode != supplied.AccountCode ||
			stored.Direction != supplied.Direction ||
			stored.AmountCents != supplied.AmountCents ||
			stored.Currency != supplied.Currency {
			return false
		}
	}
	return true
}

func nextJournalID(existing []models.ClearingJournal) int64 {
	var max int64
	for _, j := range existing {
		if j.ID > max {
			max = j.ID
		}
	}
	return max + 1
}
