// Package http is the JSON API of the feedback service. It authenticates callers,
// decodes and validates request bodies, calls the services and maps their errors
// onto HTTP status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/auth"
	"github.com/YusovID/feedback-360-service/internal/metrics"
	"github.com/YusovID/feedback-360-service/internal/service"
	"github.com/YusovID/feedback-360-service/internal/validation"
	"github.com/YusovID/feedback-360-service/pkg/logger/sl"
	"github.com/YusovID/feedback-360-service/swagger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services are the use cases the API exposes.
type Services struct {
	Users       service.UserService
	Auth        service.AuthService
	Cycles      service.CycleService
	Nominations service.NominationService
	Approvals   service.ApprovalService
	Reviews     service.ReviewService
	External    service.ExternalService
	Feedback    service.FeedbackService
	HR          service.HRService
	Sweep       service.SweepService
}

type Server struct {
	log    *slog.Logger
	tokens TokenParser
	db     Pinger
	svc    Services
}

func NewServer(log *slog.Logger, tokens TokenParser, db Pinger, svc Services) *Server {
	return &Server{
		log:    log,
		tokens: tokens,
		db:     db,
		svc:    svc,
	}
}

// Routes builds the router with middleware, the versioned API and operational endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	swaggerHandler, err := swagger.Handler()
	if err != nil {
		s.log.Error("failed to get swagger handler", sl.Err(err))
	} else {
		mux.Mount("/swagger", http.StripPrefix("/swagger", swaggerHandler))
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/healthz", s.healthz)

	mux.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/password", s.setPassword)
		r.Post("/external/login", s.externalLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate(auth.ScopeEmployee))

			r.Put("/auth/password", s.changePassword)

			r.Get("/me", s.me)
			r.Get("/me/candidates", s.candidates)
			r.Get("/me/reports", s.directReports)
			r.Get("/me/nominations", s.nominationStatus)
			r.Post("/me/nominations", s.nominate)
			r.Get("/me/approvals", s.pendingApprovals)
			r.Get("/me/reviews", s.myReviews)
			r.Get("/me/feedback", s.myFeedback)
			r.Get("/me/progress", s.myProgress)
			r.Get("/me/history", s.myHistory)

			r.Post("/approvals/{requestID}", s.decide)

			r.Get("/reviews/{requestID}", s.reviewForm)
			r.Post("/reviews/{requestID}/respond", s.respondToRequest)
			r.Put("/reviews/{requestID}/draft", s.saveDraft)
			r.Post("/reviews/{requestID}/submit", s.submit)

			r.Get("/users/{userID}/feedback", s.userFeedback)
			r.Get("/verticals", s.verticals)
			r.Get("/cycles/active", s.activeCycle)
			r.Get("/cycles/active/phase", s.currentPhase)

			r.Group(func(r chi.Router) {
				r.Use(s.requireHR)

				r.Get("/users", s.listUsers)
				r.Post("/users", s.createUser)
				r.Get("/users/{userID}", s.getUser)
				r.Put("/users/{userID}", s.updateUser)
				r.Post("/users/{userID}/active", s.setActive)

				r.Get("/cycles", s.listCycles)
				r.Post("/cycles", s.createCycle)
				r.Post("/cycles/active/complete", s.completeCycle)
				r.Get("/extensions", s.listExtensions)
				r.Post("/extensions", s.extendDeadline)

				r.Get("/hr/dashboard", s.dashboard)
				r.Get("/hr/progress", s.progressSummary)
				r.Get("/hr/capacity", s.reviewerCapacity)
				r.Get("/hr/rejections", s.rejections)
				r.Post("/hr/rejections/{rejectionID}/viewed", s.markRejectionViewed)
				r.Post("/hr/reminders", s.sendReminder)
				r.Post("/hr/notifications/dispatch", s.dispatchNow)
				r.Post("/hr/sweep", s.runSweep)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate(auth.ScopeExternal))

			r.Get("/external/request", s.externalView)
			r.Get("/external/drafts", s.externalDrafts)
			r.Post("/external/respond", s.externalRespond)
			r.Put("/external/draft", s.externalSaveDraft)
			r.Post("/external/submit", s.externalSubmit)
		})
	})

	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.healthz"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.handleServiceError(w, r, op, fmt.Errorf("%s: database unreachable: %w", op, err))
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respond(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string, details ...string) {
	s.respond(w, status, map[string]errorBody{
		"error": {Code: code, Message: message, Details: details},
	})
}

func (s *Server) decodeAndValidate(r *http.Request, v any) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	return validation.ValidateStruct(v)
}

func (s *Server) decode(body io.ReadCloser, v any) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// handleServiceError logs err and maps it to a status code and error body.
// Infrastructure failures get a generic message; their details stay in the log.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := s.log.With(slog.String("op", op), slog.String("request_id", getRequestID(r.Context())))

	var validationErr *validation.ValidationError

	if rej, ok := apperrors.AsRejection(err); ok {
		log.Info("operation rejected", slog.String("code", string(rej.Code)), slog.String("kind", string(rej.Kind)))
		metrics.Rejections.WithLabelValues(string(rej.Code)).Inc()

		s.respondError(w, rejectionStatus(rej.Kind), string(rej.Code), rej.Reason)

		return
	}

	switch {
	case errors.As(err, &validationErr):
		log.Info("request failed validation", sl.Err(err))
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "request failed validation", validationErr.Errors...)
	case errors.Is(err, apperrors.ErrInvalidRequest):
		log.Info("malformed request", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	case errors.Is(err, apperrors.ErrValidation):
		log.Info("request failed validation", sl.Err(err))
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "request failed validation")
	case errors.Is(err, apperrors.ErrNotFound):
		log.Info("resource not found", sl.Err(err))
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, apperrors.ErrAlreadyExists):
		log.Info("resource already exists", sl.Err(err))
		s.respondError(w, http.StatusConflict, "ALREADY_EXISTS", "resource already exists")
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Info("unauthorized", sl.Err(err))
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.Is(err, apperrors.ErrForbidden):
		log.Info("forbidden", sl.Err(err))
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "you are not allowed to do this")
	default:
		log.Error("service error occurred", sl.Err(err))
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "the service is temporarily unavailable, please retry later")
	}
}

func rejectionStatus(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindState:
		return http.StatusConflict
	case apperrors.KindPolicy:
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}

// employeeID returns the authenticated employee's id.
func employeeID(r *http.Request) (int64, error) {
	claims := getClaims(r.Context())
	if claims == nil {
		return 0, apperrors.ErrUnauthorized
	}

	id, err := claims.UserID()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", apperrors.ErrInvalidRequest, name)
	}

	return id, nil
}

// queryID reads an optional positive id from the query string. Absent means zero.
func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", apperrors.ErrInvalidRequest, name)
	}

	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return t, nil
}
