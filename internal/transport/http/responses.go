package http

import (
	"time"

	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/service"
)

// Response bodies. Reviewer identity never appears on feedback a user received.

type userResponse struct {
	ID            int64   `json:"id"`
	Email         string  `json:"email"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Name          string  `json:"name"`
	Vertical      string  `json:"vertical"`
	Designation   string  `json:"designation"`
	ManagerEmail  string  `json:"manager_email,omitempty"`
	DateOfJoining *string `json:"date_of_joining,omitempty"`
	Role          string  `json:"role"`
	IsActive      bool    `json:"is_active"`
}

func toUser(u *domain.User) userResponse {
	out := userResponse{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Name:         u.FullName(),
		Vertical:     u.Vertical,
		Designation:  u.Designation,
		ManagerEmail: u.ManagerEmail,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
	}

	if u.DateOfJoining != nil {
		d := u.DateOfJoining.Format(time.DateOnly)
		out.DateOfJoining = &d
	}

	return out
}

func toUsers(users []domain.User) []userResponse {
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUser(&users[i])
	}

	return out
}

type profileResponse struct {
	User                userResponse `json:"user"`
	ManagerLevel        int          `json:"manager_level"`
	DirectReports       int          `json:"direct_reports"`
	CanApprove          bool         `json:"can_approve"`
	CanNominateExternal bool         `json:"can_nominate_external"`
}

func toProfile(p *service.Profile) profileResponse {
	return profileResponse{
		User:                toUser(p.User),
		ManagerLevel:        p.ManagerLevel,
		DirectReports:       p.DirectReports,
		CanApprove:          p.CanApprove,
		CanNominateExternal: p.CanNominateExternal,
	}
}

type candidateResponse struct {
	userResponse
	ActiveRequests int  `json:"active_requests"`
	AtCapacity     bool `json:"at_capacity"`
}

func toCandidates(cs []domain.ReviewerCandidate) []candidateResponse {
	out := make([]candidateResponse, len(cs))
	for i := range cs {
		out[i] = candidateResponse{
			userResponse:   toUser(&cs[i].User),
			ActiveRequests: cs[i].ActiveRequests,
			AtCapacity:     cs[i].AtCapacity,
		}
	}

	return out
}

type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *userResponse `json:"user,omitempty"`
	RequestID int64         `json:"request_id,omitempty"`
}

type cycleResponse struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	DisplayName        string     `json:"display_name"`
	Description        string     `json:"description,omitempty"`
	Year               int        `json:"year"`
	Quarter            string     `json:"quarter,omitempty"`
	NominationStart    string     `json:"nomination_start"`
	NominationDeadline string     `json:"nomination_deadline"`
	FeedbackDeadline   string     `json:"feedback_deadline"`
	Phase              string     `json:"phase"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CompletionNotes    string     `json:"completion_notes,omitempty"`
}

func toCycle(c *domain.Cycle) cycleResponse {
	return cycleResponse{
		ID:                 c.ID,
		Name:               c.Name,
		DisplayName:        c.DisplayName,
		Description:        c.Description,
		Year:               c.Year,
		Quarter:            c.Quarter,
		NominationStart:    c.NominationStart.Format(time.DateOnly),
		NominationDeadline: c.NominationDeadline.Format(time.DateOnly),
		FeedbackDeadline:   c.FeedbackDeadline.Format(time.DateOnly),
		Phase:              string(c.Phase),
		IsActive:           c.IsActive,
		CreatedAt:          c.CreatedAt,
		CompletedAt:        c.CompletedAt,
		CompletionNotes:    c.CompletionNotes,
	}
}

type extensionResponse struct {
	ID               int64     `json:"id"`
	CycleID          int64     `json:"cycle_id"`
	UserID           int64     `json:"user_id"`
	UserName         string    `json:"user_name,omitempty"`
	UserEmail        string    `json:"user_email,omitempty"`
	DeadlineType     string    `json:"deadline_type"`
	OriginalDeadline string    `json:"original_deadline"`
	ExtendedDeadline string    `json:"extended_deadline"`
	Reason           string    `json:"reason,omitempty"`
	ExtendedBy       int64     `json:"extended_by"`
	CreatedAt        time.Time `json:"created_at"`
}

func toExtension(e *domain.DeadlineExtension) extensionResponse {
	return extensionResponse{
		ID:               e.ID,
		CycleID:          e.CycleID,
		UserID:           e.UserID,
		UserName:         e.UserName,
		UserEmail:        e.UserEmail,
		DeadlineType:     string(e.DeadlineType),
		OriginalDeadline: e.OriginalDeadline.Format(time.DateOnly),
		ExtendedDeadline: e.ExtendedDeadline.Format(time.DateOnly),
		Reason:           e.Reason,
		ExtendedBy:       e.ExtendedBy,
		CreatedAt:        e.CreatedAt,
	}
}

// requestResponse is a feedback request as seen by its requester, approver or reviewer.
type requestResponse struct {
	ID               int64      `json:"id"`
	CycleID          int64      `json:"cycle_id"`
	RequesterID      int64      `json:"requester_id"`
	ReviewerID       *int64     `json:"reviewer_id,omitempty"`
	ExternalEmail    *string    `json:"external_email,omitempty"`
	ExternalName     string     `json:"external_name,omitempty"`
	RelationshipType string     `json:"relationship_type"`
	State            string     `json:"workflow_state"`
	Status           string     `json:"status"`
	ApprovalStatus   string     `json:"approval_status"`
	ReviewerStatus   string     `json:"reviewer_status"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	RejectionReason  *string    `json:"rejection_reason,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	AutoTransitioned bool       `json:"auto_transitioned"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toRequest(r *domain.FeedbackRequest) requestResponse {
	reason := r.ManagerRejectionReason
	if reason == nil {
		reason = r.ReviewerRejectionReason
	}

	return requestResponse{
		ID:               r.ID,
		CycleID:          r.CycleID,
		RequesterID:      r.RequesterID,
		ReviewerID:       r.ReviewerID,
		ExternalEmail:    r.ExternalEmail,
		ExternalName:     r.ExternalName,
		RelationshipType: string(r.RelationshipType),
		State:            string(r.State),
		Status:           r.State.DisplayStatus(),
		ApprovalStatus:   r.State.ApprovalStatus(),
		ReviewerStatus:   r.State.ReviewerStatus(),
		ApprovedAt:       r.ApprovedAt,
		RejectionReason:  reason,
		CompletedAt:      r.CompletedAt,
		AutoTransitioned: r.AutoTransitioned,
		CreatedAt:        r.CreatedAt,
	}
}

func toRequests(reqs []domain.FeedbackRequest) []requestResponse {
	out := make([]requestResponse, len(reqs))
	for i := range reqs {
		out[i] = toRequest(&reqs[i])
	}

	return out
}

type nominationResponse struct {
	requestResponse
	ReviewerName  string `json:"reviewer_name"`
	ReviewerEmail string `json:"reviewer_email"`
}

type nominationStatusResponse struct {
	CycleID     int64                `json:"cycle_id"`
	Active      int                  `json:"active"`
	Remaining   int                  `json:"remaining"`
	Nominations []nominationResponse `json:"nominations"`
}

func toNominationStatus(st *domain.NominationStatus) nominationStatusResponse {
	out := nominationStatusResponse{
		CycleID:     st.CycleID,
		Active:      st.Active,
		Remaining:   st.Remaining,
		Nominations: make([]nominationResponse, len(st.Nominations)),
	}

	for i, n := range st.Nominations {
		out.Nominations[i] = nominationResponse{
			requestResponse: toRequest(&n.FeedbackRequest),
			ReviewerName:    n.ReviewerName,
			ReviewerEmail:   n.ReviewerEmail,
		}
	}

	return out
}

type nominationResultResponse struct {
	Created   []requestResponse `json:"created"`
	Active    int               `json:"active"`
	Remaining int               `json:"remaining"`
}

type pendingApprovalResponse struct {
	requestResponse
	RequesterName       string `json:"requester_name"`
	RequesterEmail      string `json:"requester_email"`
	ReviewerName        string `json:"reviewer_name"`
	ReviewerEmail       string `json:"reviewer_email"`
	ReviewerDesignation string `json:"reviewer_designation"`
}

func toPendingApprovals(ps []domain.PendingApproval) []pendingApprovalResponse {
	out := make([]pendingApprovalResponse, len(ps))
	for i := range ps {
		out[i] = pendingApprovalResponse{
			requestResponse:     toRequest(&ps[i].FeedbackRequest),
			RequesterName:       ps[i].RequesterName,
			RequesterEmail:      ps[i].RequesterEmail,
			ReviewerName:        ps[i].ReviewerName,
			ReviewerEmail:       ps[i].ReviewerEmail,
			ReviewerDesignation: ps[i].ReviewerTitle,
		}
	}

	return out
}

type assignmentResponse struct {
	requestResponse
	RequesterName        string `json:"requester_name"`
	RequesterVertical    string `json:"requester_vertical"`
	RequesterDesignation string `json:"requester_designation"`
	CycleName            string `json:"cycle_name"`
	FeedbackDeadline     string `json:"feedback_deadline"`
	DraftCount           int    `json:"draft_count"`
}

func toAssignment(a *domain.ReviewAssignment) assignmentResponse {
	return assignmentResponse{
		requestResponse:      toRequest(&a.FeedbackRequest),
		RequesterName:        a.RequesterName,
		RequesterVertical:    a.RequesterVertical,
		RequesterDesignation: a.RequesterDesignation,
		CycleName:            a.CycleName,
		FeedbackDeadline:     a.FeedbackDeadline.Format(time.DateOnly),
		DraftCount:           a.DraftCount,
	}
}

func toAssignments(as []domain.ReviewAssignment) []assignmentResponse {
	out := make([]assignmentResponse, len(as))
	for i := range as {
		out[i] = toAssignment(&as[i])
	}

	return out
}

type questionResponse struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Type      string `json:"type"`
	SortOrder int    `json:"sort_order"`
}

type draftResponse struct {
	domain.Answer
	UpdatedAt time.Time `json:"updated_at"`
}

func toDrafts(ds []domain.Draft) []draftResponse {
	out := make([]draftResponse, len(ds))
	for i, d := range ds {
		out[i] = draftResponse{Answer: d.Answer, UpdatedAt: d.UpdatedAt}
	}

	return out
}

type formResponse struct {
	Request   assignmentResponse `json:"request"`
	Questions []questionResponse `json:"questions"`
	Drafts    []draftResponse    `json:"drafts"`
	Deadline  string             `json:"deadline"`
}

func toForm(f *service.ReviewForm) formResponse {
	out := formResponse{
		Request:   toAssignment(f.Assignment),
		Questions: make([]questionResponse, len(f.Questions)),
		Drafts:    toDrafts(f.Drafts),
		Deadline:  f.Deadline.Format(time.DateOnly),
	}

	for i, q := range f.Questions {
		out.Questions[i] = questionResponse{ID: q.ID, Text: q.Text, Type: string(q.Type), SortOrder: q.SortOrder}
	}

	return out
}

type receivedAnswerResponse struct {
	QuestionID   int64  `json:"question_id"`
	QuestionText string `json:"question_text"`
	QuestionType string `json:"question_type"`
	Rating       *int   `json:"rating,omitempty"`
	Text         string `json:"text,omitempty"`
}

type receivedFeedbackResponse struct {
	RequestID        int64                    `json:"request_id"`
	CycleID          int64                    `json:"cycle_id"`
	CycleName        string                   `json:"cycle_name"`
	RelationshipType string                   `json:"relationship_type"`
	CompletedAt      *time.Time               `json:"completed_at,omitempty"`
	Answers          []receivedAnswerResponse `json:"answers"`
}

func toReceived(fs []domain.ReceivedFeedback) []receivedFeedbackResponse {
	out := make([]receivedFeedbackResponse, len(fs))

	for i, f := range fs {
		answers := make([]receivedAnswerResponse, len(f.Answers))
		for j, a := range f.Answers {
			answers[j] = receivedAnswerResponse{
				QuestionID:   a.QuestionID,
				QuestionText: a.QuestionText,
				QuestionType: string(a.QuestionType),
				Rating:       a.Rating,
				Text:         a.Text,
			}
		}

		out[i] = receivedFeedbackResponse{
			RequestID:        f.RequestID,
			CycleID:          f.CycleID,
			CycleName:        f.CycleName,
			RelationshipType: string(f.RelationshipType),
			CompletedAt:      f.CompletedAt,
			Answers:          answers,
		}
	}

	return out
}

type progressResponse struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type historyResponse struct {
	CycleID        int64     `json:"cycle_id"`
	CycleName      string    `json:"cycle_name"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	RequestsMade   int       `json:"requests_made"`
	RequestsDone   int       `json:"requests_completed"`
	ReviewsWritten int       `json:"reviews_written"`
}

func toHistory(hs []domain.CycleHistory) []historyResponse {
	out := make([]historyResponse, len(hs))
	for i, h := range hs {
		out[i] = historyResponse(h)
	}

	return out
}

type rejectionResponse struct {
	ID              int64      `json:"id"`
	RequestID       int64      `json:"request_id"`
	CycleID         int64      `json:"cycle_id"`
	Type            string     `json:"rejection_type"`
	RequesterID     int64      `json:"requester_id"`
	RequesterName   string     `json:"requester_name"`
	ReviewerName    string     `json:"reviewer_name"`
	RejectedByEmail string     `json:"rejected_by_email"`
	Reason          string     `json:"reason"`
	RejectedAt      time.Time  `json:"rejected_at"`
	ViewedByHR      bool       `json:"viewed_by_hr"`
	ViewedAt        *time.Time `json:"viewed_at,omitempty"`
}

func toRejections(rs []domain.RejectionRecord) []rejectionResponse {
	out := make([]rejectionResponse, len(rs))
	for i, r := range rs {
		out[i] = rejectionResponse{
			ID:              r.ID,
			RequestID:       r.RequestID,
			CycleID:         r.CycleID,
			Type:            string(r.Type),
			RequesterID:     r.RequesterID,
			RequesterName:   r.RequesterName,
			ReviewerName:    r.ReviewerName,
			RejectedByEmail: r.RejectedByEmail,
			Reason:          r.Reason,
			RejectedAt:      r.RejectedAt,
			ViewedByHR:      r.ViewedByHR,
			ViewedAt:        r.ViewedAt,
		}
	}

	return out
}

type userProgressResponse struct {
	UserID             int64  `json:"user_id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Vertical           string `json:"vertical"`
	NominationsMade    int    `json:"nominations_made"`
	NominationsActive  int    `json:"nominations_active"`
	FeedbackReceived   int    `json:"feedback_received"`
	ReviewsPending     int    `json:"reviews_pending"`
	ReviewsCompleted   int    `json:"reviews_completed"`
	ApprovalsAwaiting  int    `json:"approvals_awaiting"`
	RejectionsReceived int    `json:"rejections_received"`
}

func toUserProgress(ps []domain.UserProgress) []userProgressResponse {
	out := make([]userProgressResponse, len(ps))
	for i, p := range ps {
		out[i] = userProgressResponse(p)
	}

	return out
}

type reviewerLoadResponse struct {
	UserID         int64  `json:"user_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Vertical       string `json:"vertical"`
	ActiveRequests int    `json:"active_requests"`
	AtCapacity     bool   `json:"at_capacity"`
}

func toReviewerLoads(ls []domain.ReviewerLoad) []reviewerLoadResponse {
	out := make([]reviewerLoadResponse, len(ls))
	for i, l := range ls {
		out[i] = reviewerLoadResponse(l)
	}

	return out
}
