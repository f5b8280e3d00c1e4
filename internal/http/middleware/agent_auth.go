package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const agentKey contextKey = "agent"

// Agent identifies the support agent behind an authenticated request.
type Agent struct {
	ID   string
	Name string
}

// AgentClaims are the JWT claims issued to the agent console.
type AgentClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AgentJWT enforces an HMAC-signed JWT whose subject is the agent id.
func AgentJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "agent auth disabled", http.StatusUnauthorized)
				return
			}
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims := AgentClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			agent := Agent{ID: claims.Subject, Name: claims.Name}
			next.ServeHTTP(w, r.WithContext(WithAgent(r.Context(), agent)))
		})
	}
}

// WithAgent stores the agent on the context.
func WithAgent(ctx context.Context, agent Agent) context.Context {
	return context.WithValue(ctx, agentKey, agent)
}

// AgentFromContext returns the authenticated agent if present.
func AgentFromContext(ctx context.Context) (Agent, bool) {
	agent, ok := ctx.Value(agentKey).(Agent)
	return agent, ok
}
