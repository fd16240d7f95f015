package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianclear/clearcore/pkg/models"
)

func entry(account string, direction models.Direction, cents int64) models.ClearingJournalEntry {
	return models.ClearingJournalEntry{
		AccountCode: account,
		Direction:   direction,
		AmountCents: cents,
		Currency:    "USD",
	}
}

func TestPostJournalTwoEntryBalanced(t *testing.T) {
	settlementID := uuid.New()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	journal, err := PostJournal(settlementID, "key-1", "DvP release", []models.ClearingJournalEntry{
		entry("ESCROW", models.Debit, 205000),
		entry("SELLER", models.Credit, 205000),
	}, now, "system", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), journal.ID)
	assert.Equal(t, settlementID, journal.SettlementCaseID)
	assert.Equal(t, "key-1", journal.IdempotencyKey)
	assert.Equal(t, now, journal.PostedAt)
	require.Len(t, journal.Entries, 2)
	for _, e := range journal.Entries {
		assert.Equal(t, journal.ID, e.JournalID)
	}
}

func TestPostJournalThreeEntryFeeSplit(t *testing.T) {
	journal, err := PostJournal(uuid.New(), "key-2", "release with fee", []models.ClearingJournalEntry{
		entry("ESCROW", models.Debit, 100000),
		entry("SELLER", models.Credit, 99500),
		entry("FEE", models.Credit, 500),
	}, time.Now(), "system", nil)
	require.NoError(t, err)
	assert.Len(t, journal.Entries, 3)
	assert.NoError(t, AssertBalanced(journal))
}

func TestPostJournalUnbalancedCarriesBothTotals(t *testing.T) {
	settlementID := uuid.New()

	_, err := PostJournal(settlementID, "key-3", "broken", []models.ClearingJournalEntry{
		entry("ESCROW", models.Debit, 100000),
		entry("SELLER", models.Credit, 99000),
	}, time.Now(), "system", nil)
	require.Error(t, err)

	ube, ok := AsUnbalanced(err)
	require.True(t, ok)
	assert.Equal(t, int64(100000), ube.DebitsCents)
	assert.Equal(t, int64(99000), ube.CreditsCents)
	assert.Equal(t, settlementID, ube.SettlementCaseID)
}

func TestPostJournalEmptyEntriesRejected(t *testing.T) {
	_, err := PostJournal(uuid.New(), "key-4", "empty", nil, time.Now(), "system", nil)
	assert.ErrorIs(t, err, ErrEmptyJournal)
}

func TestPostJournalNegativeAmountRejected(t *testing.T) {
	_, err := PostJournal(uuid.New(), "key-5", "negative", []models.ClearingJournalEntry{
		entry("ESCROW", models.Debit, -100),
		entry("SELLER", models.Credit, -100),
	}, time.Now(), "system", nil)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestPostJournalIdempotentReplayDiscardsNewEntries(t *testing.T) {
	settlementID := uuid.New()

	first, err := PostJournal(settlementID, "key-6", "original", []models.ClearingJournalEntry{
		entry("ESCROW", models.Debit, 205000),
		entry("SELLER", models.Credit, 205000),
	}, time.Now(), "system", nil)
	require.NoError(t, err)

	// Retry under the same key with a different payload.
	replayed, err := PostJournal(settlementID, "key-6", "forged retry", []models.ClearingJournalEntry{
		entry("ESCROW", models.Debit, 999999),
		entry("SELLER", models.Credit, 999999),
	}, time.Now(), "system", []models.ClearingJournal{*first})
	require.NoError(t, err)

	assert.Equal(t, first.ID, replayed.ID)
	assert.Equal(t, "original", replayed.Description)
	require.Len(t, replayed.Entries, 2)
	assert.Equal(t, int64(205000), replayed.Entries[0].AmountCents)
	assert.False(t, EntriesMatch(replayed, []models.ClearingJournalEntry{
		entry("ESCROW", models.Debit, 999999),
		entry("SELLER", models.Credit, 999999),
	}))
}

func TestPostJournalAssignsSequentialIDs(t *testing.T) {
	settlementID := uuid.New()
	balanced := []models.ClearingJournalEntry{
		entry("ESCROW", models.Debit, 100),
		entry("SELLER", models.Credit, 100),
	}

	first, err := PostJournal(settlementID, "seq-1", "a", balanced, time.Now(), "system", nil)
	require.NoError(t, err)
	second, err := PostJournal(settlementID, "seq-2", "b", balanced, time.Now(), "system", []models.ClearingJournal{*first})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestAssertBalancedAgreesWithPostJournal(t *testing.T) {
	cases := []struct {
		name    string
		entries []models.ClearingJournalEntry
	}{
		{"balanced pair", []models.ClearingJournalEntry{
			entry("ESCROW", models.Debit, 205000),
			entry("SELLER", models.Credit, 205000),
		}},
		{"fee split", []models.ClearingJournalEntry{
			entry("ESCROW", models.Debit, 100000),
			entry("SELLER", models.Credit, 99500),
			entry("FEE", models.Credit, 500),
		}},
		{"unbalanced", []models.ClearingJournalEntry{
			entry("ESCROW", models.Debit, 100000),
			entry("SELLER", models.Credit, 99000),
		}},
		{"empty", nil},
		{"negative", []models.ClearingJournalEntry{
			entry("ESCROW", models.Debit, -5),
			entry("SELLER", models.Credit, -5),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			journal, postErr := PostJournal(uuid.New(), "rt-"+tc.name, "round trip", tc.entries, time.Now(), "system", nil)

			assembled := &models.ClearingJournal{Entries: tc.entries}
			assertErr := AssertBalanced(assembled)

			if postErr == nil {
				assert.NoError(t, assertErr)
				assert.NoError(t, AssertBalanced(journal))
			} else {
				assert.Error(t, assertErr)
			}
		})
	}
}
