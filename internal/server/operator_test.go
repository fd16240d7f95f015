package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meridianclear/clearcore/internal/audit"
	"github.com/meridianclear/clearcore/internal/authz"
	"github.com/meridianclear/clearcore/internal/ledger"
	"github.com/meridianclear/clearcore/internal/lifecycle"
	"github.com/meridianclear/clearcore/internal/riskconfig"
	"github.com/meridianclear/clearcore/pkg/models"
)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, *audit.Event) {}

type emptyFetcher struct{}

func (emptyFetcher) FetchActive(context.Context) (*riskconfig.RiskConfiguration, error) {
	return nil, nil
}

func newTestRiskProvider() *riskconfig.Provider {
	return riskconfig.NewProvider(emptyFetcher{}, zap.NewNop(), 0)
}

type operatorFixture struct {
	db      *gorm.DB
	handler *OperatorHandler
}

func setupOperator(t *testing.T) *operatorFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.SettlementCase{},
		&models.ClearingJournal{},
		&models.ClearingJournalEntry{},
	))

	journals := ledger.NewStore(db, zap.NewNop())
	machine := lifecycle.NewMachine(zap.NewNop(), nopRecorder{})
	risk := newTestRiskProvider()

	return &operatorFixture{
		db:      db,
		handler: NewOperatorHandler(zap.NewNop(), db, journals, machine, risk),
	}
}

func (f *operatorFixture) seedSettlement(t *testing.T, status string) *models.SettlementCase {
	t.Helper()
	settlement := &models.SettlementCase{
		ID:          uuid.New(),
		TradeID:     uuid.New(),
		Status:      status,
		AmountCents: 100000,
		Currency:    "USD",
		PayeeID:     uuid.New(),
		Provider:    "fedwire",
		ExternalRef: "FW-2001",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(settlement).Error)
	return settlement
}

// transitionAs delivers a transition request with a pre-resolved session,
// standing in for the auth middleware.
func (f *operatorFixture) transitionAs(t *testing.T, role string, settlementID, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.POST("/settlements/:id/transition", func(c *gin.Context) {
		c.Set("clearcore.session", &authz.AuthSession{UserID: "user-1", Role: role})
	}, f.handler.TransitionSettlement)

	body, err := json.Marshal(map[string]string{"target_status": target})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/settlements/"+settlementID+"/transition", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTransitionSettlementUsesSessionRole(t *testing.T) {
	f := setupOperator(t)
	settlement := f.seedSettlement(t, string(lifecycle.SettlementPendingRail))

	// Treasury may submit to the rail.
	w := f.transitionAs(t, "treasury", settlement.ID.String(), string(lifecycle.SettlementRailSubmitted))
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.SettlementCase
	require.NoError(t, f.db.First(&updated, "id = ?", settlement.ID).Error)
	assert.Equal(t, string(lifecycle.SettlementRailSubmitted), updated.Status)
}

func TestTransitionSettlementRejectsUnauthorizedRole(t *testing.T) {
	f := setupOperator(t)
	settlement := f.seedSettlement(t, string(lifecycle.SettlementPendingRail))

	// Compliance holds no permission on the rail-submission edge, so the
	// permission table rejects it even though the edge exists.
	w := f.transitionAs(t, "compliance", settlement.ID.String(), string(lifecycle.SettlementRailSubmitted))
	require.Equal(t, http.StatusConflict, w.Code)

	var unchanged models.SettlementCase
	require.NoError(t, f.db.First(&unchanged, "id = ?", settlement.ID).Error)
	assert.Equal(t, string(lifecycle.SettlementPendingRail), unchanged.Status)
}

func TestTransitionSettlementRejectsUnknownRoleClaim(t *testing.T) {
	f := setupOperator(t)
	settlement := f.seedSettlement(t, string(lifecycle.SettlementPendingRail))

	for _, role := range []string{"system", "quant", ""} {
		w := f.transitionAs(t, role, settlement.ID.String(), string(lifecycle.SettlementRailSubmitted))
		assert.Equal(t, http.StatusForbidden, w.Code, "role %q", role)
	}

	var unchanged models.SettlementCase
	require.NoError(t, f.db.First(&unchanged, "id = ?", settlement.ID).Error)
	assert.Equal(t, string(lifecycle.SettlementPendingRail), unchanged.Status)
}
