package api

import (
	"strings"
	"sync"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	ctxAdminID  = "admin_id"
	ctxUsername = "admin_username"
)

// authMiddleware requires a valid bearer token and stores the admin in the context
func authMiddleware(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Not authenticated"))
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(ctxAdminID, claims.Subject)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// loginLimiter throttles login attempts per client IP
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	limit    rate.Limit
	burst    int
	lastGC   time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(perMinute, burst int) *loginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &loginLimiter{
		limiters: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		lastGC:   time.Now(),
	}
}

func (l *loginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > 10*time.Minute {
		for key, v := range l.limiters {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(l.limiters, key)
			}
		}
		l.lastGC = now
	}

	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (l *loginLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			respondError(c, apperrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
