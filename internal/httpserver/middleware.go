package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"storefront/internal/domain"
	identitysvc "storefront/internal/service/identity"
)

type ctxKey string

const (
	userCtxKey   ctxKey = "user"
	requestIDKey        = "requestID"
	requestIDHdr        = "X-Request-ID"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHdr))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHdr, id)
		c.Next()
	}
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", requestIDHdr},
		ExposeHeaders:    []string{requestIDHdr},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// authRequired resolves the bearer token to a user and stores it in the
// request context.
func authRequired(svc identityService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondMessage(c, http.StatusUnauthorized, "Not authorized, no token")
			c.Abort()
			return
		}
		user, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, identitysvc.ErrInvalidToken) {
				respondMessage(c, http.StatusUnauthorized, "Not authorized, token failed")
			} else {
				logger.Printf("http: authenticate request_id=%s error=%v", c.GetString(requestIDKey), err)
				respondMessage(c, http.StatusInternalServerError, "Server error")
			}
			c.Abort()
			return
		}
		ctx := context.WithValue(c.Request.Context(), userCtxKey, user)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.IsAdmin() {
			respondMessage(c, http.StatusForbidden, "Not authorized as an admin")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := c.Request.Context().Value(userCtxKey).(*domain.User)
	return u
}
