package webhook

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meridianclear/clearcore/internal/authz"
	"github.com/meridianclear/clearcore/pkg/models"
)

// identityEvent is the identity/compliance provider callback payload.
type identityEvent struct {
	CaseID string `json:"case_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
	Tier   string `json:"tier"`
}

var validCaseStatuses = map[string]bool{
	authz.CaseStatusPending:     true,
	authz.CaseStatusUnderReview: true,
	authz.CaseStatusApproved:    true,
	authz.CaseStatusRejected:    true,
}

// IdentityHandler applies compliance-case decisions pushed by the identity
// provider. The next protected request after a revocation sees the updated
// row, which is what makes the authorizer's fail-closed contract bite.
type IdentityHandler struct {
	logger   *zap.Logger
	db       *gorm.DB
	bus      Publisher
	verifier SignatureVerifier
	secret   string
}

// NewIdentityHandler wires an identity callback adapter.
func NewIdentityHandler(logger *zap.Logger, db *gorm.DB, publisher Publisher, verifier SignatureVerifier, secret string) *IdentityHandler {
	return &IdentityHandler{logger: logger, db: db, bus: publisher, verifier: verifier, secret: secret}
}

// Handle upserts the compliance case named by the callback.
func (h *IdentityHandler) Handle(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("X-Identity-Signature")
	if !h.verifier.Verify(rawBody, signature, h.secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event identityEvent
	if err := bindJSON(rawBody, &event); err != nil ||
		event.CaseID == "" || event.UserID == "" || !validCaseStatuses[event.Status] {
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "detail": "unparseable payload"})
		return
	}

	caseID, err := uuid.Parse(event.CaseID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "detail": "invalid case id"})
		return
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "detail": "invalid user id"})
		return
	}

	if err := h.upsertCase(c, caseID, userID, &event); err != nil {
		h.logger.Error("identity callback failed",
			zap.String("case_id", event.CaseID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "temporary failure"})
		return
	}

	busEvent := map[string]any{
		"kind":    "compliance_case.updated",
		"case_id": event.CaseID,
		"status":  event.Status,
		"tier":    event.Tier,
	}
	if err := h.bus.Publish(c.Request.Context(), event.UserID, event.CaseID, busEvent); err != nil {
		h.logger.Warn("bus publish failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (h *IdentityHandler) upsertCase(c *gin.Context, caseID, userID uuid.UUID, event *identityEvent) error {
	return h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var cc models.ComplianceCase
		err := tx.Where("id = ?", caseID).First(&cc).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			cc = models.ComplianceCase{
				ID:        caseID,
				UserID:    userID,
				Status:    event.Status,
				Tier:      event.Tier,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			if err := tx.Create(&cc).Error; err != nil {
				return fmt.Errorf("failed to create compliance case: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to load compliance case: %w", err)
		}

		cc.Status = event.Status
		if event.Tier != "" {
			cc.Tier = event.Tier
		}
		cc.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&cc).Error; err != nil {
			return fmt.Errorf("failed to update compliance case: %w", err)
		}
		return nil
	})
}
