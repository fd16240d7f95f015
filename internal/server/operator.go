package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meridianclear/clearcore/internal/authz"
	"github.com/meridianclear/clearcore/internal/ledger"
	"github.com/meridianclear/clearcore/internal/lifecycle"
	"github.com/meridianclear/clearcore/internal/riskconfig"
	"github.com/meridianclear/clearcore/pkg/models"
)

// OperatorHandler serves the capability-gated operator API: journal reads,
// the active risk configuration, and manual settlement transitions.
type OperatorHandler struct {
	logger   *zap.Logger
	db       *gorm.DB
	journals *ledger.Store
	machine  *lifecycle.Machine
	risk     *riskconfig.Provider
}

func NewOperatorHandler(logger *zap.Logger, db *gorm.DB, journals *ledger.Store, machine *lifecycle.Machine, risk *riskconfig.Provider) *OperatorHandler {
	return &OperatorHandler{
		logger:   logger,
		db:       db,
		journals: journals,
		machine:  machine,
		risk:     risk,
	}
}

// ListJournals returns every journal posted against a settlement case.
func (h *OperatorHandler) ListJournals(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settlement case id"})
		return
	}

	journals, err := h.journals.JournalsFor(c.Request.Context(), caseID)
	if err != nil {
		h.logger.Error("failed to list journals",
			zap.String("settlement_case_id", caseID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"journals": journals})
}

// GetRiskConfig returns the active risk configuration, falling back to
// defaults when no row is live.
func (h *OperatorHandler) GetRiskConfig(c *gin.Context) {
	cfg := h.risk.Get(c.Request.Context())
	c.JSON(http.StatusOK, cfg)
}

// operatorRole maps the session's role claim onto a transition-table role.
// The system role is reserved for machine actors (rail adapters), so a
// token claiming it is rejected along with unknown roles.
func operatorRole(claim string) (lifecycle.Role, bool) {
	switch r := lifecycle.Role(claim); r {
	case lifecycle.RoleOperations, lifecycle.RoleCompliance, lifecycle.RoleTreasury:
		return r, true
	}
	return "", false
}

type transitionRequest struct {
	TargetStatus string `json:"target_status"`
	Reason       string `json:"reason"`
}

// TransitionSettlement applies an operator-initiated settlement transition
// under a row lock. Illegal transitions are rejected with 409 and the full
// forensic context.
func (h *OperatorHandler) TransitionSettlement(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settlement case id"})
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_status is required"})
		return
	}

	session, ok := authz.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	role, ok := operatorRole(session.Role)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "role not permitted to drive transitions"})
		return
	}

	var sc models.SettlementCase
	txErr := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := ledger.LockForUpdate(tx).First(&sc, "id = ?", caseID).Error; err != nil {
			return err
		}
		rec, err := h.machine.Transition(c.Request.Context(), sc.ID.String(),
			lifecycle.EntitySettlement, sc.Status, req.TargetStatus,
			session.UserID, role, time.Now().UTC())
		if err != nil {
			return err
		}
		sc.Status = rec.NewState
		return tx.Save(&sc).Error
	})

	switch {
	case txErr == nil:
		c.JSON(http.StatusOK, gin.H{"settlement_case_id": sc.ID, "status": sc.Status})
	case errors.Is(txErr, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "settlement case not found"})
	default:
		if rejection, ok := lifecycle.AsIllegalTransition(txErr); ok {
			c.JSON(http.StatusConflict, gin.H{
				"error": rejection.Error(),
				"from":  rejection.PreviousState,
				"to":    rejection.AttemptedState,
			})
			return
		}
		h.logger.Error("settlement transition failed",
			zap.String("settlement_case_id", caseID.String()), zap.Error(txErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transition failed"})
	}
}
