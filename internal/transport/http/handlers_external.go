package http

import (
	"net/http"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/service"
)

// externalLogin exchanges a mailed access code for a session scoped to one request.
func (s *Server) externalLogin(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.externalLogin"

	var req externalLoginRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	sess, err := s.svc.External.Authenticate(r.Context(), req.Email, req.Token)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		RequestID: sess.RequestID,
	})
}

func externalReviewer(r *http.Request) (service.Reviewer, error) {
	claims := getClaims(r.Context())
	if claims == nil || claims.Email == "" || claims.RequestID == 0 {
		return service.Reviewer{}, apperrors.ErrUnauthorized
	}

	return service.Reviewer{Email: claims.Email, RequestID: claims.RequestID}, nil
}

func (s *Server) externalView(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.externalView"

	rv, err := externalReviewer(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	form, err := s.svc.External.View(r.Context(), rv)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, toForm(form))
}

func (s *Server) externalDrafts(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.externalDrafts"

	rv, err := externalReviewer(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	drafts, err := s.svc.External.Drafts(r.Context(), rv)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"drafts": toDrafts(drafts)})
}

func (s *Server) externalRespond(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.externalRespond"

	rv, err := externalReviewer(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req responseRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	fr, err := s.svc.External.Respond(r.Context(), rv, service.Decision(req.Decision), req.Reason)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]requestResponse{"request": toRequest(fr)})
}

func (s *Server) externalSaveDraft(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.externalSaveDraft"

	rv, err := externalReviewer(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	answers, err := s.answers(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := s.svc.External.SaveDraft(r.Context(), rv, answers); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) externalSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.externalSubmit"

	rv, err := externalReviewer(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	answers, err := s.answers(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	fr, err := s.svc.External.Submit(r.Context(), rv, answers)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]requestResponse{"request": toRequest(fr)})
}
