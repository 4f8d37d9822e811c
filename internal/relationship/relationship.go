// Package relationship derives how a reviewer relates to the person requesting feedback.
package relationship

import (
	"strings"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
)

type Type string

const (
	Peer                 Type = "peer"
	DirectReportee       Type = "direct_reportee"
	InternalCollaborator Type = "internal_collaborator"
	ExternalStakeholder  Type = "external_stakeholder"
)

var All = []Type{Peer, DirectReportee, InternalCollaborator, ExternalStakeholder}

func (t Type) Valid() bool {
	switch t {
	case Peer, DirectReportee, InternalCollaborator, ExternalStakeholder:
		return true
	}

	return false
}

// Label is the reader-facing name of t.
func (t Type) Label() string {
	switch t {
	case DirectReportee:
		return "direct report"
	default:
		return strings.ReplaceAll(string(t), "_", " ")
	}
}

// Party is the slice of a user's record the classifier looks at.
type Party struct {
	Email        string
	Vertical     string
	ManagerEmail string
}

// Classify returns the relationship of reviewer to requester. A nil reviewer is an
// external email address. Nominating the requester's own manager is rejected.
func Classify(requester Party, reviewer *Party) (Type, error) {
	if reviewer == nil {
		return ExternalStakeholder, nil
	}

	if sameEmail(reviewer.ManagerEmail, requester.Email) {
		return DirectReportee, nil
	}

	if sameEmail(reviewer.Email, requester.ManagerEmail) {
		return "", apperrors.Validation(apperrors.CodeOwnManager, "cannot nominate your own direct manager")
	}

	if strings.EqualFold(strings.TrimSpace(requester.Vertical), strings.TrimSpace(reviewer.Vertical)) {
		return Peer, nil
	}

	return InternalCollaborator, nil
}

func sameEmail(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// Manager levels derived from job titles.
const (
	LevelIndividual    = 0
	LevelManager       = 1
	LevelSeniorManager = 2
	LevelDirector      = 3
)

var levelKeywords = []struct {
	level    int
	keywords []string
}{
	{LevelDirector, []string{"director", "head"}},
	{LevelSeniorManager, []string{"senior manager", "senior mgr"}},
	{LevelManager, []string{"manager", "mgr", "team lead", "team leader"}},
}

// ManagerLevel maps a designation to a seniority tier by keyword, most senior first.
func ManagerLevel(designation string) int {
	d := strings.ToLower(designation)
	if d == "" {
		return LevelIndividual
	}

	for _, lk := range levelKeywords {
		for _, kw := range lk.keywords {
			if strings.Contains(d, kw) {
				return lk.level
			}
		}
	}

	return LevelIndividual
}

// CanApprove reports whether someone at level with directReports reports may approve nominations.
func CanApprove(level, directReports int) bool {
	return level >= LevelManager && directReports > 0
}

func CanNominateExternal(level int) bool {
	return level >= LevelSeniorManager
}
