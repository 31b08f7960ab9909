package service

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SchedulerSecretHeader carries the shared secret on trigger calls.
const SchedulerSecretHeader = "X-Scheduler-Secret"

type AuthService struct {
	logger *zap.Logger
	secret string
}

func NewAuthService(logger *zap.Logger, secret string) *AuthService {
	return &AuthService{
		logger: logger,
		secret: secret,
	}
}

// ValidateSecret compares in constant time. With no secret configured
// nothing validates.
func (a *AuthService) ValidateSecret(provided string) bool {
	if a.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(a.secret)) == 1
}

// SchedulerSecretMiddleware rejects requests without the shared secret
// before any handler runs.
func (a *AuthService) SchedulerSecretMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.ValidateSecret(c.GetHeader(SchedulerSecretHeader)) {
			a.logger.Warn("Rejected unauthorized scheduler call",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Next()
	}
}
