package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/service"
)

func (s *Server) nominate(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.nominate"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req nominateRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	in := service.NominateInput{Reviewers: req.Reviewers}
	for _, e := range req.Externals {
		in.Externals = append(in.Externals, service.ExternalNominee{Email: e.Email, Name: e.Name})
	}

	res, err := s.svc.Nominations.Nominate(r.Context(), userID, in)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, nominationResultResponse{
		Created:   toRequests(res.Created),
		Active:    res.Active,
		Remaining: res.Remaining,
	})
}

func (s *Server) nominationStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.nominationStatus"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	st, err := s.svc.Nominations.NominationStatus(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, toNominationStatus(st))
}

func (s *Server) pendingApprovals(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.pendingApprovals"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	ps, err := s.svc.Approvals.PendingApprovals(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"approvals": toPendingApprovals(ps)})
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.decide"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	requestID, err := pathID(r, "requestID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req decisionRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	fr, err := s.svc.Approvals.Decide(r.Context(), service.DecisionInput{
		RequestID: requestID,
		ManagerID: userID,
		Decision:  service.Decision(req.Decision),
		Reason:    req.Reason,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]requestResponse{"request": toRequest(fr)})
}

// myReviews lists the caller's assignments filtered by ?status=pending_acceptance|in_progress|completed.
func (s *Server) myReviews(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.myReviews"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var list func(ctx context.Context, id int64) ([]domain.ReviewAssignment, error)

	switch status := r.URL.Query().Get("status"); status {
	case "", "pending_acceptance":
		list = s.svc.Reviews.PendingAcceptance
	case "in_progress":
		list = s.svc.Reviews.PendingReviews
	case "completed":
		list = s.svc.Reviews.CompletedReviews
	default:
		s.handleServiceError(w, r, op, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidRequest, status))
		return
	}

	as, err := list(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"reviews": toAssignments(as)})
}

func (s *Server) reviewForm(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.reviewForm"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	requestID, err := pathID(r, "requestID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	form, err := s.svc.Reviews.Form(r.Context(), userID, requestID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, toForm(form))
}

func (s *Server) respondToRequest(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.respondToRequest"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	requestID, err := pathID(r, "requestID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req responseRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	fr, err := s.svc.Reviews.Respond(r.Context(), userID, service.RespondInput{
		RequestID: requestID,
		Decision:  service.Decision(req.Decision),
		Reason:    req.Reason,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]requestResponse{"request": toRequest(fr)})
}

func (s *Server) saveDraft(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.saveDraft"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	requestID, err := pathID(r, "requestID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	answers, err := s.answers(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := s.svc.Reviews.SaveDraft(r.Context(), userID, requestID, answers); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.submit"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	requestID, err := pathID(r, "requestID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	answers, err := s.answers(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	fr, err := s.svc.Reviews.Submit(r.Context(), userID, requestID, answers)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]requestResponse{"request": toRequest(fr)})
}

func (s *Server) answers(r *http.Request) ([]domain.Answer, error) {
	var req answersRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		return nil, err
	}

	out := make([]domain.Answer, len(req.Answers))
	for i, a := range req.Answers {
		out[i] = domain.Answer{QuestionID: a.QuestionID, Rating: a.Rating, Text: a.Text}
	}

	return out, nil
}

func (s *Server) myFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.myFeedback"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.received(w, r, op, userID, userID)
}

// userFeedback is feedback received by another user, readable by their manager and HR.
func (s *Server) userFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.userFeedback"

	viewerID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	userID, err := pathID(r, "userID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.received(w, r, op, viewerID, userID)
}

func (s *Server) received(w http.ResponseWriter, r *http.Request, op string, viewerID, userID int64) {
	cycleID, err := queryID(r, "cycle_id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	fs, err := s.svc.Feedback.Received(r.Context(), viewerID, userID, cycleID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"feedback": toReceived(fs)})
}

func (s *Server) myProgress(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.myProgress"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	p, err := s.svc.Feedback.Progress(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, progressResponse(*p))
}

func (s *Server) myHistory(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.myHistory"

	userID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	hs, err := s.svc.Feedback.CycleHistory(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"cycles": toHistory(hs)})
}
