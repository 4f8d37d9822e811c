package http

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type externalLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

type userRequest struct {
	Email         string `json:"email" validate:"required,email,max=255"`
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"max=100"`
	Vertical      string `json:"vertical" validate:"required,max=100"`
	Designation   string `json:"designation" validate:"max=150"`
	ManagerEmail  string `json:"manager_email" validate:"omitempty,email,max=255"`
	DateOfJoining string `json:"date_of_joining" validate:"omitempty,date"`
	Role          string `json:"role" validate:"omitempty,oneof=employee hr"`
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type createCycleRequest struct {
	Name               string `json:"name" validate:"required,max=100"`
	DisplayName        string `json:"display_name" validate:"max=200"`
	Description        string `json:"description" validate:"max=2000"`
	Year               int    `json:"year" validate:"required,min=2000,max=2100"`
	Quarter            string `json:"quarter" validate:"omitempty,quarter"`
	NominationStart    string `json:"nomination_start" validate:"required,date"`
	NominationDeadline string `json:"nomination_deadline" validate:"required,date"`
	FeedbackDeadline   string `json:"feedback_deadline" validate:"required,date"`
}

type completeCycleRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type extendDeadlineRequest struct {
	UserID       int64  `json:"user_id" validate:"required,gt=0"`
	DeadlineType string `json:"deadline_type" validate:"required,oneof=nomination feedback"`
	NewDeadline  string `json:"new_deadline" validate:"required,date"`
	Reason       string `json:"reason" validate:"max=1000"`
}

type externalNomineeRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Name  string `json:"name" validate:"max=200"`
}

type nominateRequest struct {
	Reviewers []int64                  `json:"reviewer_ids" validate:"omitempty,dive,gt=0"`
	Externals []externalNomineeRequest `json:"external_reviewers" validate:"omitempty,dive"`
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string `json:"reason" validate:"max=2000"`
}

// responseRequest is a reviewer accepting or declining a request.
type responseRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
	Reason   string `json:"reason" validate:"max=2000"`
}

type answerRequest struct {
	QuestionID int64  `json:"question_id" validate:"required,gt=0"`
	Rating     *int   `json:"rating,omitempty"`
	Text       string `json:"text" validate:"max=5000"`
}

type answersRequest struct {
	Answers []answerRequest `json:"answers" validate:"dive"`
}

type reminderRequest struct {
	Subject    string  `json:"subject" validate:"required,max=200"`
	Body       string  `json:"body" validate:"required,max=10000"`
	Audience   string  `json:"audience" validate:"omitempty,oneof=pending_nominations pending_approvals pending_reviews"`
	Recipients []int64 `json:"recipient_ids" validate:"omitempty,dive,gt=0"`
}
