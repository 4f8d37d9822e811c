package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/service"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.login"

	var req loginRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	sess, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, toSession(sess))
}

// setPassword is the first login of an account that has no password yet.
func (s *Server) setPassword(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.setPassword"

	var req loginRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	sess, err := s.svc.Auth.SetPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, toSession(sess))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.changePassword"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req changePasswordRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := s.svc.Auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toSession(sess *service.Session) sessionResponse {
	out := sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt}
	if sess.User != nil {
		u := toUser(sess.User)
		out.User = &u
	}

	return out
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.me"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	profile, err := s.svc.Users.GetUser(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, toProfile(profile))
}

func (s *Server) candidates(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.candidates"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	cs, err := s.svc.Users.SelectionCandidates(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"candidates": toCandidates(cs)})
}

func (s *Server) directReports(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.directReports"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	users, err := s.svc.Users.DirectReports(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"reports": toUsers(users)})
}

func (s *Server) verticals(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.verticals"

	vs, err := s.svc.Users.ListVerticals(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]string{"verticals": vs})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listUsers"

	filter := domain.UserFilter{Vertical: r.URL.Query().Get("vertical")}

	if raw := r.URL.Query().Get("active_only"); raw != "" {
		activeOnly, err := strconv.ParseBool(raw)
		if err != nil {
			s.handleServiceError(w, r, op, fmt.Errorf("%w: active_only: %w", apperrors.ErrInvalidRequest, err))
			return
		}

		filter.ActiveOnly = activeOnly
	}

	users, err := s.svc.Users.ListUsers(r.Context(), filter)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"users": toUsers(users)})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.createUser"

	in, err := s.userInput(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	user, err := s.svc.Users.CreateUser(r.Context(), in)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]userResponse{"user": toUser(user)})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getUser"

	id, err := pathID(r, "userID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	profile, err := s.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, toProfile(profile))
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.updateUser"

	id, err := pathID(r, "userID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	in, err := s.userInput(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	user, err := s.svc.Users.UpdateUser(r.Context(), id, in)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]userResponse{"user": toUser(user)})
}

func (s *Server) setActive(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.setActive"

	id, err := pathID(r, "userID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req setActiveRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	user, err := s.svc.Users.SetActive(r.Context(), id, req.IsActive)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]userResponse{"user": toUser(user)})
}

func (s *Server) userInput(r *http.Request) (service.UserInput, error) {
	var req userRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		return service.UserInput{}, err
	}

	in := service.UserInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Vertical:     req.Vertical,
		Designation:  req.Designation,
		ManagerEmail: req.ManagerEmail,
		Role:         domain.Role(req.Role),
	}

	if req.DateOfJoining != "" {
		doj, err := parseDate(req.DateOfJoining)
		if err != nil {
			return service.UserInput{}, err
		}

		in.DateOfJoining = &doj
	}

	return in, nil
}
