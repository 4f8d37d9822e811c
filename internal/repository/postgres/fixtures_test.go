//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedUser(t *testing.T, email, vertical, manager string) *domain.User {
	t.Helper()

	u, err := NewUserRepository(testDB, logger).Create(context.Background(), &domain.User{
		Email:        email,
		FirstName:    email[:1],
		LastName:     "Test",
		Vertical:     vertical,
		Designation:  "Engineer",
		ManagerEmail: manager,
		Role:         domain.RoleEmployee,
		IsActive:     true,
	})
	require.NoError(t, err)

	return u
}

func seedCycle(t *testing.T) *domain.Cycle {
	t.Helper()

	tx, err := testDB.Beginx()
	require.NoError(t, err)

	c, err := NewCycleRepository(testDB, logger).Create(context.Background(), tx, &domain.Cycle{
		Name:               "2025-q4",
		DisplayName:        "Q4 2025",
		Year:               2025,
		Quarter:            "Q4",
		NominationStart:    date(2025, time.October, 1),
		NominationDeadline: date(2025, time.October, 15),
		FeedbackDeadline:   date(2025, time.October, 31),
		Phase:              domain.PhaseNomination,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	return c
}

func internalRequest(cycleID, requesterID, reviewerID int64, state workflow.State) domain.FeedbackRequest {
	return domain.FeedbackRequest{
		CycleID:          cycleID,
		RequesterID:      requesterID,
		ReviewerID:       &reviewerID,
		RelationshipType: relationship.Peer,
		State:            state,
	}
}

func seedRequests(t *testing.T, reqs ...domain.FeedbackRequest) []domain.FeedbackRequest {
	t.Helper()

	tx, err := testDB.Beginx()
	require.NoError(t, err)

	created, err := NewRequestCommandRepository(testDB, logger).CreateBatch(context.Background(), tx, reqs)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	return created
}
