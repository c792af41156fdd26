package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/leafmark/leafmark-backend/internal/platform/ctxutil"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

// DemoUserID is the fallback identity for single-user deployments without
// an identity provider in front.
const DemoUserID = "demo-user"

type IdentityMiddleware struct {
	log       *logger.Logger
	jwtSecret []byte
}

// NewIdentityMiddleware consumes the external identity provider's tokens;
// issuing credentials is not this service's job. With an empty secret the
// middleware trusts the X-User-Id header (or the userId query parameter)
// and finally falls back to the demo user.
func NewIdentityMiddleware(log *logger.Logger, jwtSecret string) *IdentityMiddleware {
	return &IdentityMiddleware{
		log:       log.With("middleware", "IdentityMiddleware"),
		jwtSecret: []byte(jwtSecret),
	}
}

func (m *IdentityMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := m.resolveUserID(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

func (m *IdentityMiddleware) resolveUserID(c *gin.Context) (string, error) {
	if token := extractBearerToken(c); token != "" && len(m.jwtSecret) > 0 {
		return m.subjectFromToken(token)
	}
	if header := strings.TrimSpace(c.GetHeader("X-User-Id")); header != "" {
		return header, nil
	}
	if q := strings.TrimSpace(c.Query("userId")); q != "" {
		return q, nil
	}
	return DemoUserID, nil
}

func (m *IdentityMiddleware) subjectFromToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

func extractBearerToken(c *gin.Context) string {
	// SSE connections cannot set headers from EventSource; allow the token
	// in the query string there.
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
