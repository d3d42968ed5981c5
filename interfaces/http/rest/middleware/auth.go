package middleware

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"loom-backend/pkg/auth"
	"loom-backend/pkg/common"
)

// Authenticate validates bearer tokens and applies per-IP rate
// limiting. With a nil token service, authentication is disabled and
// only rate limiting applies; requests run as the anonymous user.
func Authenticate(tokens *auth.TokenService, limiter auth.RateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			if limiter != nil {
				allowed, _ := limiter.Allow(r.Context(), clientIP)
				if !allowed {
					common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMIT", "rate limit exceeded")
					return
				}
			}

			if tokens == nil {
				ctx := common.WithUserID(r.Context(), "anonymous")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}

			ctx := common.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
