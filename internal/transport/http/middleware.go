package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/auth"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = contextKey("requestID")
	claimsKey       = contextKey("claims")
)

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}

	return ""
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With(
			slog.String("request_id", getRequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		)
		log.Info("request started")

		t1 := time.Now()

		next.ServeHTTP(w, r)

		log.Info("request completed",
			slog.String("duration", time.Since(t1).String()),
		)
	})
}

// authenticate parses the bearer token and stores its claims in the request context.
// The scope of the token must be one of the given scopes.
func (s *Server) authenticate(scopes ...auth.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "internal.transport.http.authenticate"

			header := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				s.handleServiceError(w, r, op, apperrors.ErrUnauthorized)
				return
			}

			claims, err := s.tokens.Parse(token)
			if err != nil {
				s.handleServiceError(w, r, op, apperrors.ErrUnauthorized)
				return
			}

			allowed := false
			for _, sc := range scopes {
				if claims.Scope == sc {
					allowed = true
					break
				}
			}

			if !allowed {
				s.handleServiceError(w, r, op, apperrors.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireHR lets through employee sessions with the hr role.
func (s *Server) requireHR(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "internal.transport.http.requireHR"

		claims := getClaims(r.Context())
		if claims == nil || claims.Role != domain.RoleHR {
			s.handleServiceError(w, r, op, apperrors.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getClaims(ctx context.Context) *auth.Claims {
	if claims, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return claims
	}

	return nil
}
