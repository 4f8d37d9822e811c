package http

import (
	"net/http"
	"time"

	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/service"
)

func (s *Server) activeCycle(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.activeCycle"

	c, err := s.svc.Cycles.ActiveCycle(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]cycleResponse{"cycle": toCycle(c)})
}

func (s *Server) currentPhase(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.currentPhase"

	phase, err := s.svc.Cycles.CurrentPhase(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"phase": string(phase)})
}

func (s *Server) listCycles(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listCycles"

	cycles, err := s.svc.Cycles.ListCycles(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	out := make([]cycleResponse, len(cycles))
	for i := range cycles {
		out[i] = toCycle(&cycles[i])
	}

	s.respond(w, http.StatusOK, map[string]any{"cycles": out})
}

func (s *Server) createCycle(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.createCycle"

	actorID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req createCycleRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	in := service.CreateCycleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Year:        req.Year,
		Quarter:     req.Quarter,
		CreatedBy:   actorID,
	}

	for _, d := range []struct {
		raw string
		dst *time.Time
	}{
		{req.NominationStart, &in.NominationStart},
		{req.NominationDeadline, &in.NominationDeadline},
		{req.FeedbackDeadline, &in.FeedbackDeadline},
	} {
		t, err := parseDate(d.raw)
		if err != nil {
			s.handleServiceError(w, r, op, err)
			return
		}

		*d.dst = t
	}

	c, err := s.svc.Cycles.CreateCycle(r.Context(), in)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]cycleResponse{"cycle": toCycle(c)})
}

func (s *Server) completeCycle(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.completeCycle"

	actorID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req completeCycleRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Cycles.CompleteCycle(r.Context(), actorID, req.Notes)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"cycle":            toCycle(res.Cycle),
		"expired_requests": res.Expired,
	})
}

func (s *Server) extendDeadline(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.extendDeadline"

	actorID, err := employeeID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req extendDeadlineRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	deadline, err := parseDate(req.NewDeadline)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	ext, err := s.svc.Cycles.ExtendDeadline(r.Context(), service.ExtendDeadlineInput{
		UserID:      req.UserID,
		Type:        domain.DeadlineType(req.DeadlineType),
		NewDeadline: deadline,
		Reason:      req.Reason,
		ExtendedBy:  actorID,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]extensionResponse{"extension": toExtension(ext)})
}

func (s *Server) listExtensions(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listExtensions"

	exts, err := s.svc.Cycles.ListExtensions(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	out := make([]extensionResponse, len(exts))
	for i := range exts {
		out[i] = toExtension(&exts[i])
	}

	s.respond(w, http.StatusOK, map[string]any{"extensions": out})
}
