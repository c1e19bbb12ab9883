package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type contextKey string

const operatorKey contextKey = "operator"

// operatorFrom returns the operator name resolved by the auth middleware,
// or "" when auth is disabled.
func operatorFrom(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey).(string)
	return v
}

// operatorAuthMiddleware checks "Authorization: Token <t>" against the
// configured token set and resolves the token to an operator name once,
// carried in the request context for the audit trail. An empty token map
// disables auth (dev mode).
func operatorAuthMiddleware(tokens map[string]string, next http.Handler) http.Handler {
	if len(tokens) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(raw, "Token ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Token authorization required")
			return
		}
		operator, known := tokens[strings.TrimSpace(token)]
		if !known {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unknown token")
			return
		}
		ctx := context.WithValue(r.Context(), operatorKey, operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		next.ServeHTTP(w, r)
		logger.Infow("request",
			"method", r.Method, "path", r.URL.Path,
			"from", r.RemoteAddr, "dur", time.Since(start).String())
	})
}
