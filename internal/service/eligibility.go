package service

import (
	"time"

	"github.com/YusovID/feedback-360-service/internal/domain"
)

// ReviewerTenure is how long a new joiner waits before they can be asked for feedback.
const ReviewerTenure = 90 * 24 * time.Hour

// Eligibility decides who may take part in a cycle based on the date of joining.
// A zero Cutoff disables the cutoff rule. Users without a join date are always eligible.
type Eligibility struct {
	Cutoff time.Time
}

func (e Eligibility) CanRequest(u *domain.User) bool {
	if u.DateOfJoining == nil || e.Cutoff.IsZero() {
		return true
	}

	return !u.DateOfJoining.After(e.Cutoff)
}

func (e Eligibility) CanReview(u *domain.User, now time.Time) bool {
	if !u.IsActive {
		return false
	}

	if u.DateOfJoining == nil {
		return true
	}

	if !e.Cutoff.IsZero() && !u.DateOfJoining.After(e.Cutoff) {
		return true
	}

	return !u.DateOfJoining.After(e.TenureBefore(now))
}

// TenureBefore is the latest join date that satisfies the tenure rule at now.
func (e Eligibility) TenureBefore(now time.Time) time.Time {
	return now.Add(-ReviewerTenure)
}
