package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/auth"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/YusovID/feedback-360-service/internal/service"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	employeeToken = "employee-token"
	hrToken       = "hr-token"
	externalToken = "external-token"
)

type apiEnv struct {
	users       *UserServiceMock
	auth        *AuthServiceMock
	cycles      *CycleServiceMock
	nominations *NominationServiceMock
	approvals   *ApprovalServiceMock
	reviews     *ReviewServiceMock
	external    *ExternalServiceMock
	feedback    *FeedbackServiceMock
	hr          *HRServiceMock
	sweep       *SweepServiceMock
	db          *PingerMock

	handler http.Handler
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	e := &apiEnv{
		users:       new(UserServiceMock),
		auth:        new(AuthServiceMock),
		cycles:      new(CycleServiceMock),
		nominations: new(NominationServiceMock),
		approvals:   new(ApprovalServiceMock),
		reviews:     new(ReviewServiceMock),
		external:    new(ExternalServiceMock),
		feedback:    new(FeedbackServiceMock),
		hr:          new(HRServiceMock),
		sweep:       new(SweepServiceMock),
		db:          new(PingerMock),
	}

	tokens := stubTokens{
		employeeToken: {Scope: auth.ScopeEmployee, Role: domain.RoleEmployee, RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}},
		hrToken:       {Scope: auth.ScopeEmployee, Role: domain.RoleHR, RegisteredClaims: jwt.RegisteredClaims{Subject: "9"}},
		externalToken: {Scope: auth.ScopeExternal, Email: "b@x.com", RequestID: 11, CycleID: 7},
	}

	srv := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), tokens, e.db, Services{
		Users:       e.users,
		Auth:        e.auth,
		Cycles:      e.cycles,
		Nominations: e.nominations,
		Approvals:   e.approvals,
		Reviews:     e.reviews,
		External:    e.external,
		Feedback:    e.feedback,
		HR:          e.hr,
		Sweep:       e.sweep,
	})
	e.handler = srv.Routes()

	t.Cleanup(func() {
		for _, m := range []interface{ AssertExpectations(mock.TestingT) bool }{
			e.users, e.auth, e.cycles, e.nominations, e.approvals, e.reviews,
			e.external, e.feedback, e.hr, e.sweep, e.db,
		} {
			m.AssertExpectations(t)
		}
	})

	return e
}

func (e *apiEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))

	return out
}

func ptr[T any](v T) *T {
	return &v
}

func TestServer_Authentication(t *testing.T) {
	testCases := []struct {
		name         string
		method       string
		path         string
		token        string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "No token",
			method:       http.MethodGet,
			path:         "/api/v1/me",
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"error":{"code":"UNAUTHORIZED","message":"authentication required"}}`,
		},
		{
			name:         "Unknown token",
			method:       http.MethodGet,
			path:         "/api/v1/me",
			token:        "forged",
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"error":{"code":"UNAUTHORIZED","message":"authentication required"}}`,
		},
		{
			name:         "External session on employee route",
			method:       http.MethodGet,
			path:         "/api/v1/me",
			token:        externalToken,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"error":{"code":"FORBIDDEN","message":"you are not allowed to do this"}}`,
		},
		{
			name:         "Employee on HR route",
			method:       http.MethodGet,
			path:         "/api/v1/hr/dashboard",
			token:        employeeToken,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"error":{"code":"FORBIDDEN","message":"you are not allowed to do this"}}`,
		},
		{
			name:         "Employee session on external route",
			method:       http.MethodGet,
			path:         "/api/v1/external/request",
			token:        employeeToken,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"error":{"code":"FORBIDDEN","message":"you are not allowed to do this"}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newAPI(t)

			rr := e.do(tc.method, tc.path, tc.token, "")

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
		})
	}
}

func TestServer_Login(t *testing.T) {
	expires := time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)

	testCases := []struct {
		name         string
		body         string
		setupMocks   func(*AuthServiceMock)
		expectedCode int
		check        func(t *testing.T, body map[string]any)
	}{
		{
			name: "Success",
			body: `{"email": "r@corp.com", "password": "s3cret-pass"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "r@corp.com", "s3cret-pass").Return(&service.Session{
					Token:     "signed",
					ExpiresAt: expires,
					User:      &domain.User{ID: 1, Email: "r@corp.com", FirstName: "Rita", Role: domain.RoleEmployee, IsActive: true},
				}, nil).Once()
			},
			expectedCode: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "signed", body["token"])
				assert.Equal(t, "2025-01-10T20:00:00Z", body["expires_at"])
				assert.Equal(t, "Rita", body["user"].(map[string]any)["name"])
			},
		},
		{
			name:         "Invalid JSON Body",
			body:         `{invalid json}`,
			setupMocks:   func(*AuthServiceMock) {},
			expectedCode: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "INVALID_REQUEST", body["error"].(map[string]any)["code"])
			},
		},
		{
			name:         "Validation failure",
			body:         `{"email": "not-an-email"}`,
			setupMocks:   func(*AuthServiceMock) {},
			expectedCode: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]any) {
				errBody := body["error"].(map[string]any)
				assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
				assert.ElementsMatch(t, []any{
					"field 'email' must be a valid email address",
					"field 'password' is required",
				}, errBody["details"])
			},
		},
		{
			name: "Wrong password",
			body: `{"email": "r@corp.com", "password": "nope-nope"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "r@corp.com", "nope-nope").Return(nil, apperrors.ErrUnauthorized).Once()
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "Inactive account",
			body: `{"email": "r@corp.com", "password": "s3cret-pass"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "r@corp.com", "s3cret-pass").
					Return(nil, apperrors.Policy(apperrors.CodeUserInactive, "this account is deactivated")).Once()
			},
			expectedCode: http.StatusForbidden,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "USER_INACTIVE", body["error"].(map[string]any)["code"])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newAPI(t)
			tc.setupMocks(e.auth)

			rr := e.do(http.MethodPost, "/api/v1/auth/login", "", tc.body)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.check != nil {
				tc.check(t, decodeBody(t, rr))
			}
		})
	}
}

func TestServer_Nominate(t *testing.T) {
	created := domain.FeedbackRequest{
		ID:               10,
		CycleID:          7,
		RequesterID:      1,
		ReviewerID:       ptr(int64(2)),
		RelationshipType: relationship.Peer,
		State:            workflow.PendingManagerApproval,
	}

	wantInput := service.NominateInput{
		Reviewers: []int64{2},
		Externals: []service.ExternalNominee{{Email: "b@x.com", Name: "Bea"}},
	}

	const body = `{"reviewer_ids": [2], "external_reviewers": [{"email": "b@x.com", "name": "Bea"}]}`

	testCases := []struct {
		name         string
		setupMocks   func(*NominationServiceMock)
		expectedCode int
		expectedBody string
	}{
		{
			name: "Limit exceeded",
			setupMocks: func(m *NominationServiceMock) {
				m.On("Nominate", mock.Anything, int64(1), wantInput).Return(nil,
					apperrors.Validation(apperrors.CodeLimitExceeded, "you can nominate 1 more reviewer in this cycle")).Once()
			},
			expectedCode: http.StatusUnprocessableEntity,
			expectedBody: `{"error":{"code":"LIMIT_EXCEEDED","message":"you can nominate 1 more reviewer in this cycle"}}`,
		},
		{
			name: "Reviewer at capacity",
			setupMocks: func(m *NominationServiceMock) {
				m.On("Nominate", mock.Anything, int64(1), wantInput).Return(nil,
					apperrors.Policy(apperrors.CodeReviewerAtCapacity, "Ann already has 4 active feedback requests")).Once()
			},
			expectedCode: http.StatusForbidden,
			expectedBody: `{"error":{"code":"REVIEWER_AT_CAPACITY","message":"Ann already has 4 active feedback requests"}}`,
		},
		{
			name: "Store failure hides details",
			setupMocks: func(m *NominationServiceMock) {
				m.On("Nominate", mock.Anything, int64(1), wantInput).Return(nil,
					errors.New("internal.service.nomination.Nominate: pq: connection refused")).Once()
			},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"error":{"code":"UNAVAILABLE","message":"the service is temporarily unavailable, please retry later"}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newAPI(t)
			tc.setupMocks(e.nominations)

			rr := e.do(http.MethodPost, "/api/v1/me/nominations", employeeToken, body)

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}

	t.Run("Success", func(t *testing.T) {
		e := newAPI(t)
		e.nominations.On("Nominate", mock.Anything, int64(1), wantInput).Return(&service.NominationResult{
			Created:   []domain.FeedbackRequest{created},
			Active:    3,
			Remaining: 1,
		}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/me/nominations", employeeToken, body)

		require.Equal(t, http.StatusCreated, rr.Code)

		out := decodeBody(t, rr)
		assert.EqualValues(t, 3, out["active"])
		assert.EqualValues(t, 1, out["remaining"])

		first := out["created"].([]any)[0].(map[string]any)
		assert.EqualValues(t, 10, first["id"])
		assert.Equal(t, "pending_manager_approval", first["workflow_state"])
		assert.Equal(t, "pending", first["status"])
		assert.Equal(t, "peer", first["relationship_type"])
	})
}

func TestServer_Decide(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		e := newAPI(t)
		e.approvals.On("Decide", mock.Anything, service.DecisionInput{
			RequestID: 10,
			ManagerID: 1,
			Decision:  service.DecisionReject,
			Reason:    "not a close collaborator",
		}).Return(&domain.FeedbackRequest{
			ID:                     10,
			State:                  workflow.ManagerRejected,
			ManagerRejectionReason: ptr("not a close collaborator"),
		}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/approvals/10", employeeToken,
			`{"decision": "reject", "reason": "not a close collaborator"}`)

		require.Equal(t, http.StatusOK, rr.Code)

		req := decodeBody(t, rr)["request"].(map[string]any)
		assert.Equal(t, "rejected", req["status"])
		assert.Equal(t, "not a close collaborator", req["rejection_reason"])
	})

	t.Run("Already decided", func(t *testing.T) {
		e := newAPI(t)
		e.approvals.On("Decide", mock.Anything, mock.Anything).Return(nil,
			apperrors.State(apperrors.CodeInvalidTransition, "feedback request 10 is no longer pending")).Once()

		rr := e.do(http.MethodPost, "/api/v1/approvals/10", employeeToken, `{"decision": "approve"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.JSONEq(t, `{"error":{"code":"INVALID_STATE","message":"feedback request 10 is no longer pending"}}`, rr.Body.String())
	})

	t.Run("Bad request id", func(t *testing.T) {
		e := newAPI(t)

		rr := e.do(http.MethodPost, "/api/v1/approvals/abc", employeeToken, `{"decision": "approve"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown decision", func(t *testing.T) {
		e := newAPI(t)

		rr := e.do(http.MethodPost, "/api/v1/approvals/10", employeeToken, `{"decision": "maybe"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestServer_MyReviews(t *testing.T) {
	assignment := domain.ReviewAssignment{
		FeedbackRequest:  domain.FeedbackRequest{ID: 10, State: workflow.InProgress, RelationshipType: relationship.Peer},
		RequesterName:    "Rita Requester",
		CycleName:        "Q1 2025",
		FeedbackDeadline: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	testCases := []struct {
		name   string
		query  string
		method string
	}{
		{name: "Default is pending acceptance", query: "", method: "PendingAcceptance"},
		{name: "In progress", query: "?status=in_progress", method: "PendingReviews"},
		{name: "Completed", query: "?status=completed", method: "CompletedReviews"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newAPI(t)
			e.reviews.On(tc.method, mock.Anything, int64(1)).Return([]domain.ReviewAssignment{assignment}, nil).Once()

			rr := e.do(http.MethodGet, "/api/v1/me/reviews"+tc.query, employeeToken, "")

			require.Equal(t, http.StatusOK, rr.Code)

			first := decodeBody(t, rr)["reviews"].([]any)[0].(map[string]any)
			assert.Equal(t, "Rita Requester", first["requester_name"])
			assert.Equal(t, "2025-01-31", first["feedback_deadline"])
		})
	}

	t.Run("Unknown status", func(t *testing.T) {
		e := newAPI(t)

		rr := e.do(http.MethodGet, "/api/v1/me/reviews?status=lost", employeeToken, "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestServer_Submit(t *testing.T) {
	answers := []domain.Answer{{QuestionID: 1, Rating: ptr(4)}, {QuestionID: 2, Text: "Clear writer"}}

	t.Run("Success", func(t *testing.T) {
		e := newAPI(t)
		e.reviews.On("Submit", mock.Anything, int64(1), int64(10), answers).
			Return(&domain.FeedbackRequest{ID: 10, State: workflow.Completed}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/reviews/10/submit", employeeToken,
			`{"answers": [{"question_id": 1, "rating": 4}, {"question_id": 2, "text": "Clear writer"}]}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "completed", decodeBody(t, rr)["request"].(map[string]any)["status"])
	})

	t.Run("Deadline passed", func(t *testing.T) {
		e := newAPI(t)
		e.reviews.On("Submit", mock.Anything, int64(1), int64(10), mock.Anything).
			Return(nil, apperrors.Policy(apperrors.CodeDeadlinePassed, "the feedback deadline has passed")).Once()

		rr := e.do(http.MethodPost, "/api/v1/reviews/10/submit", employeeToken, `{"answers": []}`)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.JSONEq(t, `{"error":{"code":"DEADLINE_PASSED","message":"the feedback deadline has passed"}}`, rr.Body.String())
	})

	t.Run("Reviewer accepts", func(t *testing.T) {
		e := newAPI(t)
		e.reviews.On("Respond", mock.Anything, int64(1), service.RespondInput{RequestID: 10, Decision: service.DecisionAccept}).
			Return(&domain.FeedbackRequest{ID: 10, State: workflow.InProgress}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/reviews/10/respond", employeeToken, `{"decision": "accept"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "in_progress", decodeBody(t, rr)["request"].(map[string]any)["workflow_state"])
	})

	t.Run("Draft saved", func(t *testing.T) {
		e := newAPI(t)
		e.reviews.On("SaveDraft", mock.Anything, int64(1), int64(10), []domain.Answer{{QuestionID: 2, Text: "wip"}}).
			Return(nil).Once()

		rr := e.do(http.MethodPut, "/api/v1/reviews/10/draft", employeeToken, `{"answers": [{"question_id": 2, "text": "wip"}]}`)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestServer_External(t *testing.T) {
	rv := service.Reviewer{Email: "b@x.com", RequestID: 11}

	t.Run("Login", func(t *testing.T) {
		e := newAPI(t)
		e.external.On("Authenticate", mock.Anything, "b@x.com", "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345").Return(&service.ExternalSession{
			Token:     "signed",
			ExpiresAt: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
			RequestID: 11,
			CycleID:   7,
		}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/external/login", "",
			`{"email": "b@x.com", "token": "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"}`)

		require.Equal(t, http.StatusOK, rr.Code)

		out := decodeBody(t, rr)
		assert.Equal(t, "signed", out["token"])
		assert.EqualValues(t, 11, out["request_id"])
		assert.NotContains(t, out, "user")
	})

	t.Run("View is scoped to the session request", func(t *testing.T) {
		e := newAPI(t)
		e.external.On("View", mock.Anything, rv).Return(&service.ReviewForm{
			Assignment: &domain.ReviewAssignment{FeedbackRequest: domain.FeedbackRequest{ID: 11, State: workflow.InProgress}},
			Questions:  []domain.Question{{ID: 7, Text: "How was the collaboration?", Type: domain.QuestionText, SortOrder: 1}},
			Deadline:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		}, nil).Once()

		rr := e.do(http.MethodGet, "/api/v1/external/request", externalToken, "")

		require.Equal(t, http.StatusOK, rr.Code)

		out := decodeBody(t, rr)
		assert.Equal(t, "2025-01-31", out["deadline"])
		assert.Len(t, out["questions"], 1)
		assert.EqualValues(t, 11, out["request"].(map[string]any)["id"])
	})

	t.Run("Used token", func(t *testing.T) {
		e := newAPI(t)
		e.external.On("Submit", mock.Anything, rv, []domain.Answer{{QuestionID: 7, Text: "Great"}}).Return(nil,
			apperrors.Policy(apperrors.CodeTokenInvalid, "this access code has already been used or declined")).Once()

		rr := e.do(http.MethodPost, "/api/v1/external/submit", externalToken, `{"answers": [{"question_id": 7, "text": "Great"}]}`)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "TOKEN_INVALID", decodeBody(t, rr)["error"].(map[string]any)["code"])
	})

	t.Run("Decline", func(t *testing.T) {
		e := newAPI(t)
		e.external.On("Respond", mock.Anything, rv, service.DecisionReject, "no time").
			Return(&domain.FeedbackRequest{ID: 11, State: workflow.ReviewerRejected}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/external/respond", externalToken, `{"decision": "reject", "reason": "no time"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "reviewer_rejected", decodeBody(t, rr)["request"].(map[string]any)["workflow_state"])
	})
}

func TestServer_ReceivedFeedback(t *testing.T) {
	received := []domain.ReceivedFeedback{{
		RequestID:        10,
		CycleID:          7,
		CycleName:        "Q1 2025",
		RelationshipType: relationship.Peer,
		Answers: []domain.ReceivedAnswer{
			{RequestID: 10, QuestionID: 1, QuestionText: "Rate collaboration", QuestionType: domain.QuestionRating, Rating: ptr(5)},
		},
	}}

	t.Run("Own feedback for a cycle", func(t *testing.T) {
		e := newAPI(t)
		e.feedback.On("Received", mock.Anything, int64(1), int64(1), int64(7)).Return(received, nil).Once()

		rr := e.do(http.MethodGet, "/api/v1/me/feedback?cycle_id=7", employeeToken, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "reviewer")

		fb := decodeBody(t, rr)["feedback"].([]any)[0].(map[string]any)
		assert.Equal(t, "Q1 2025", fb["cycle_name"])
	})

	t.Run("Someone else's feedback", func(t *testing.T) {
		e := newAPI(t)
		e.feedback.On("Received", mock.Anything, int64(1), int64(5), int64(0)).
			Return(nil, apperrors.ErrForbidden).Once()

		rr := e.do(http.MethodGet, "/api/v1/users/5/feedback", employeeToken, "")

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Bad cycle id", func(t *testing.T) {
		e := newAPI(t)

		rr := e.do(http.MethodGet, "/api/v1/me/feedback?cycle_id=-1", employeeToken, "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestServer_HR(t *testing.T) {
	t.Run("Create user", func(t *testing.T) {
		e := newAPI(t)
		doj := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
		e.users.On("CreateUser", mock.Anything, service.UserInput{
			Email:         "n@corp.com",
			FirstName:     "Nina",
			Vertical:      "Platform",
			Designation:   "Engineer",
			ManagerEmail:  "m@corp.com",
			DateOfJoining: &doj,
		}).Return(&domain.User{ID: 12, Email: "n@corp.com", FirstName: "Nina", Vertical: "Platform",
			DateOfJoining: &doj, Role: domain.RoleEmployee, IsActive: true}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/users", hrToken, `{"email": "n@corp.com", "first_name": "Nina",
			"vertical": "Platform", "designation": "Engineer", "manager_email": "m@corp.com", "date_of_joining": "2023-04-01"}`)

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "2023-04-01", decodeBody(t, rr)["user"].(map[string]any)["date_of_joining"])
	})

	t.Run("Duplicate user", func(t *testing.T) {
		e := newAPI(t)
		e.users.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, &apperrors.UserAlreadyExistsError{Email: "n@corp.com"}).Once()

		rr := e.do(http.MethodPost, "/api/v1/users", hrToken, `{"email": "n@corp.com", "first_name": "Nina", "vertical": "Platform"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.JSONEq(t, `{"error":{"code":"ALREADY_EXISTS","message":"resource already exists"}}`, rr.Body.String())
	})

	t.Run("Own manager", func(t *testing.T) {
		e := newAPI(t)
		e.users.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, apperrors.Validation(apperrors.CodeOwnManager, "a user cannot be their own manager")).Once()

		rr := e.do(http.MethodPost, "/api/v1/users", hrToken, `{"email": "n@corp.com", "first_name": "Nina", "vertical": "Platform", "manager_email": "n@corp.com"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.JSONEq(t, `{"error":{"code":"OWN_MANAGER","message":"a user cannot be their own manager"}}`, rr.Body.String())
	})

	t.Run("Wrapped validation error hides internals", func(t *testing.T) {
		e := newAPI(t)
		e.users.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("internal.service.user.CreateUser: %w: users_email_check", apperrors.ErrValidation)).Once()

		rr := e.do(http.MethodPost, "/api/v1/users", hrToken, `{"email": "n@corp.com", "first_name": "Nina", "vertical": "Platform"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.JSONEq(t, `{"error":{"code":"VALIDATION_FAILED","message":"request failed validation"}}`, rr.Body.String())
		assert.NotContains(t, rr.Body.String(), "internal.service")
	})

	t.Run("Rejections filter", func(t *testing.T) {
		e := newAPI(t)
		e.hr.On("Rejections", mock.Anything, domain.RejectionFilter{
			CycleID:    7,
			Type:       domain.RejectionByManager,
			UnseenOnly: true,
		}).Return([]domain.RejectionRecord{{ID: 3, Type: domain.RejectionByManager, Reason: "not relevant"}}, nil).Once()

		rr := e.do(http.MethodGet, "/api/v1/hr/rejections?cycle_id=7&type=manager_rejection&unseen=true", hrToken, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decodeBody(t, rr)["rejections"], 1)
	})

	t.Run("Unknown rejection type", func(t *testing.T) {
		e := newAPI(t)

		rr := e.do(http.MethodGet, "/api/v1/hr/rejections?type=any", hrToken, "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Reminder", func(t *testing.T) {
		e := newAPI(t)
		e.hr.On("SendReminder", mock.Anything, service.ReminderInput{
			Subject:  "Nominations close Friday",
			Body:     "Please nominate your reviewers.",
			Audience: domain.AudiencePendingNominations,
		}).Return(&service.ReminderResult{Queued: 2, Failed: 0}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/hr/reminders", hrToken,
			`{"subject": "Nominations close Friday", "body": "Please nominate your reviewers.", "audience": "pending_nominations"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.EqualValues(t, 2, decodeBody(t, rr)["queued"])
	})

	t.Run("Dispatch and sweep", func(t *testing.T) {
		e := newAPI(t)
		e.hr.On("DispatchNow", mock.Anything).Return(&notify.DispatchResult{Claimed: 3, Sent: 3}, nil).Once()
		e.sweep.On("RunNominationSweep", mock.Anything).Return(&service.SweepResult{CycleID: 7, Examined: 2, AutoApproved: 1, AutoAccepted: 2}, nil).Once()

		rr := e.do(http.MethodPost, "/api/v1/hr/notifications/dispatch", hrToken, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"claimed":3,"sent":3,"failed":0}`, rr.Body.String())

		rr = e.do(http.MethodPost, "/api/v1/hr/sweep", hrToken, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"cycle_id":7,"examined":2,"auto_approved":1,"auto_accepted":2,"invitations":0}`, rr.Body.String())
	})

	t.Run("Create cycle with bad dates", func(t *testing.T) {
		e := newAPI(t)
		e.cycles.On("CreateCycle", mock.Anything, mock.MatchedBy(func(in service.CreateCycleInput) bool {
			return in.CreatedBy == 9 && in.NominationDeadline.Equal(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))
		})).Return(nil, apperrors.Validation(apperrors.CodeInvalidDates, "dates out of order")).Once()

		rr := e.do(http.MethodPost, "/api/v1/cycles", hrToken, `{"name": "q1-2025", "year": 2025, "quarter": "Q1",
			"nomination_start": "2025-01-01", "nomination_deadline": "2025-01-20", "feedback_deadline": "2025-01-10"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "INVALID_DATES", decodeBody(t, rr)["error"].(map[string]any)["code"])
	})
}

func TestServer_Healthz(t *testing.T) {
	t.Run("Database up", func(t *testing.T) {
		e := newAPI(t)
		e.db.On("PingContext", mock.Anything).Return(nil).Once()

		rr := e.do(http.MethodGet, "/healthz", "", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("Database down", func(t *testing.T) {
		e := newAPI(t)
		e.db.On("PingContext", mock.Anything).Return(errors.New("dial tcp: connection refused")).Once()

		rr := e.do(http.MethodGet, "/healthz", "", "")

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.NotContains(t, rr.Body.String(), "dial tcp")
	})
}

func TestServer_Swagger(t *testing.T) {
	e := newAPI(t)

	rr := e.do(http.MethodGet, "/swagger/openapi.yaml", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "openapi: 3.0.3")
}
