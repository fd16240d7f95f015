package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrEmptyJournal rejects a journal with no entries.
	ErrEmptyJournal = errors.New("EMPTY_JOURNAL: journal must contain at least one entry")

	// ErrNegativeAmount rejects an entry with a negative amount; reversals
	// are expressed by direction, never by sign.
	ErrNegativeAmount = errors.New("journal entry amount must be non-negative")

	// ErrUnknownDirection rejects an entry whose direction is neither
	// DEBIT nor CREDIT.
	ErrUnknownDirection = errors.New("journal entry direction must be DEBIT or CREDIT")
)

// UnbalancedJournalError reports a journal whose debit and credit totals
// differ. It carries both totals so reconciliation never has to recompute.
type UnbalancedJournalError struct {
	SettlementCaseID uuid.UUID
	DebitsCents      int64
	CreditsCents     int64
}

func (e *UnbalancedJournalError) Error() string {
	return fmt.Sprintf("unbalanced journal for settlement %s: debits=%d credits=%d",
		e.SettlementCaseID, e.DebitsCents, e.CreditsCents)
}

// AsUnbalanced unwraps err into an UnbalancedJournalError when possible.
func AsUnbalanced(err error) (*UnbalancedJournalError, bool) {
	var ube *UnbalancedJournalError
	if errors.As(err, &ube) {
		return ube, true
	}
	return nil, false
}
