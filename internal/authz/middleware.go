package authz

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// sessionContextKey is the gin context key the middleware stores the
// resolved session under.
const sessionContextKey = "clearcore.session"

// SessionClaims are the JWT claims a session token carries.
type SessionClaims struct {
	Role      string `json:"role"`
	KYCStatus string `json:"kyc_status"`
	OrgID     string `json:"org_id"`
	LEICode   string `json:"lei_code"`
	ReauthAt  int64  `json:"reauth_at,omitempty"`
	jwt.RegisteredClaims
}

// Middleware returns a gin handler that authenticates the bearer token,
// resolves the session's capability against the live case store, and for
// protected capabilities additionally enforces step-up freshness.
//
// Error mapping: missing/invalid token -> 401; capability or compliance
// denial -> 403 with the deny reason; a store fault on a protected path ->
// 500, never a silent allow.
func Middleware(a *Authorizer, secret []byte, capability Capability, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sessionFromRequest(c, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		granted, err := a.RequireCapability(c.Request.Context(), session, capability)
		if err != nil {
			abortWithAuthzError(c, err, logger)
			return
		}

		if capability.IsProtected() {
			if err := a.RequireFreshAuth(granted, capability, time.Now()); err != nil {
				abortWithAuthzError(c, err, logger)
				return
			}
		}

		c.Set(sessionContextKey, granted)
		c.Next()
	}
}

// SessionFrom returns the session the middleware attached to the request.
func SessionFrom(c *gin.Context) (*AuthSession, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*AuthSession)
	return session, ok
}

func sessionFromRequest(c *gin.Context, secret []byte) (*AuthSession, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrUnauthenticated()
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrUnauthenticated()
	}

	session := &AuthSession{
		UserID:    claims.Subject,
		Role:      claims.Role,
		KYCStatus: claims.KYCStatus,
		OrgID:     claims.OrgID,
		LEICode:   claims.LEICode,
	}
	if claims.ReauthAt > 0 {
		session.ReauthedAt = time.Unix(claims.ReauthAt, 0)
	}
	return session, nil
}

func abortWithAuthzError(c *gin.Context, err error, logger *zap.Logger) {
	if ae, ok := AsAuthError(err); ok {
		c.AbortWithStatusJSON(ae.Status, gin.H{
			"error":  ae.Error(),
			"reason": string(ae.Reason),
		})
		return
	}

	// Infrastructure fault on a protected path: surface as a server fault,
	// never convert into a permissive default or a 403.
	logger.Error("authorization store fault", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization unavailable"})
}
