package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/service"
)

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.dashboard"

	m, err := s.svc.HR.Dashboard(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, m)
}

func (s *Server) progressSummary(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.progressSummary"

	ps, err := s.svc.HR.ProgressSummary(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"users": toUserProgress(ps)})
}

func (s *Server) reviewerCapacity(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.reviewerCapacity"

	ls, err := s.svc.HR.ReviewerCapacity(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"reviewers": toReviewerLoads(ls)})
}

// rejections lists rejection records, filtered by ?cycle_id=, ?type= and ?unseen=true.
func (s *Server) rejections(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.rejections"

	cycleID, err := queryID(r, "cycle_id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	filter := domain.RejectionFilter{CycleID: cycleID}

	switch t := domain.RejectionType(r.URL.Query().Get("type")); t {
	case "", domain.RejectionByManager, domain.RejectionByReviewer:
		filter.Type = t
	default:
		s.handleServiceError(w, r, op, fmt.Errorf("%w: unknown rejection type %q", apperrors.ErrInvalidRequest, t))
		return
	}

	if raw := r.URL.Query().Get("unseen"); raw != "" {
		unseen, err := strconv.ParseBool(raw)
		if err != nil {
			s.handleServiceError(w, r, op, fmt.Errorf("%w: unseen: %w", apperrors.ErrInvalidRequest, err))
			return
		}

		filter.UnseenOnly = unseen
	}

	rs, err := s.svc.HR.Rejections(r.Context(), filter)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"rejections": toRejections(rs)})
}

func (s *Server) markRejectionViewed(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.markRejectionViewed"

	id, err := pathID(r, "rejectionID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := s.svc.HR.MarkRejectionViewed(r.Context(), id); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sendReminder(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.sendReminder"

	var req reminderRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.HR.SendReminder(r.Context(), service.ReminderInput{
		Subject:    req.Subject,
		Body:       req.Body,
		Audience:   domain.Audience(req.Audience),
		Recipients: req.Recipients,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, res)
}

func (s *Server) dispatchNow(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.dispatchNow"

	res, err := s.svc.HR.DispatchNow(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, res)
}

// runSweep applies the nomination-deadline auto transitions now instead of waiting for the ticker.
func (s *Server) runSweep(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.runSweep"

	res, err := s.svc.Sweep.RunNominationSweep(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, res)
}
