// Package limits enforces the cap on active nominations per requester and per reviewer.
//
// Counts are always recomputed from the requests table inside the caller's transaction,
// after the caller has locked the requester and reviewer rows.
package limits

import (
	"context"
	"fmt"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/jmoiron/sqlx"
)

// MaxActive is the cap for both outbound and inbound counters in one cycle.
const MaxActive = 4

type Counter interface {
	// CountOutbound counts the requester's requests in the cycle that occupy a slot.
	CountOutbound(ctx context.Context, ext sqlx.ExtContext, cycleID, requesterID int64) (int, error)
	// CountInbound counts slot-occupying requests per internal reviewer.
	// Reviewers with no requests may be absent from the result.
	CountInbound(ctx context.Context, ext sqlx.ExtContext, cycleID int64, reviewerIDs []int64) (map[int64]int, error)
}

type Accountant struct {
	counter Counter
}

func NewAccountant(counter Counter) *Accountant {
	return &Accountant{counter: counter}
}

// Usage is the outbound picture after a successful check.
type Usage struct {
	Active    int
	Remaining int
}

// Check admits a batch of batchSize new requests from requesterID, of which reviewerIDs
// are the internal reviewers. The batch is rejected as a whole.
func (a *Accountant) Check(ctx context.Context, ext sqlx.ExtContext, cycleID, requesterID int64, batchSize int, reviewerIDs []int64) (*Usage, error) {
	const op = "internal.limits.Check"

	active, err := a.counter.CountOutbound(ctx, ext, cycleID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to count outbound requests: %w", op, err)
	}

	remaining := Remaining(active)
	if batchSize > remaining {
		return nil, apperrors.Validation(apperrors.CodeLimitExceeded,
			"you have %d active nomination(s) and can add %d more, but %d were submitted", active, remaining, batchSize)
	}

	if len(reviewerIDs) > 0 {
		inbound, err := a.counter.CountInbound(ctx, ext, cycleID, reviewerIDs)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to count inbound requests: %w", op, err)
		}

		for _, id := range reviewerIDs {
			if AtCapacity(inbound[id]) {
				return nil, apperrors.Policy(apperrors.CodeReviewerAtCapacity,
					"reviewer %d already has %d active feedback requests", id, inbound[id])
			}
		}
	}

	return &Usage{Active: active, Remaining: remaining - batchSize}, nil
}

// Remaining returns the free slots for a given active count, never negative.
func Remaining(active int) int {
	if active >= MaxActive {
		return 0
	}

	return MaxActive - active
}

func AtCapacity(active int) bool {
	return active >= MaxActive
}
