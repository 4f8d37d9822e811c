package service

import (
	"slices"
	"strings"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
)

const (
	MinRating = 1
	MaxRating = 5
)

// checkAnswers validates answers against the question set of a request and returns them
// cleaned and in question order. A repeated question keeps its last answer. Unanswered
// questions are dropped unless complete is set, in which case every question must be answered.
func checkAnswers(questions []domain.Question, answers []domain.Answer, complete bool) ([]domain.Answer, error) {
	byID := make(map[int64]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	given := make(map[int64]domain.Answer, len(answers))

	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return nil, apperrors.Validation(apperrors.CodeUnknownQuestion, "question %d is not part of this form", a.QuestionID)
		}

		switch q.Type {
		case domain.QuestionRating:
			if a.Rating == nil {
				continue
			}

			if *a.Rating < MinRating || *a.Rating > MaxRating {
				return nil, apperrors.Validation(apperrors.CodeInvalidRating,
					"rating for %q must be between %d and %d", q.Text, MinRating, MaxRating)
			}

			given[q.ID] = domain.Answer{QuestionID: q.ID, Rating: ptr(*a.Rating)}
		default:
			text := strings.TrimSpace(a.Text)
			if text == "" {
				continue
			}

			given[q.ID] = domain.Answer{QuestionID: q.ID, Text: text}
		}
	}

	ordered := slices.Clone(questions)
	slices.SortStableFunc(ordered, func(a, b domain.Question) int { return a.SortOrder - b.SortOrder })

	out := make([]domain.Answer, 0, len(given))

	for _, q := range ordered {
		a, ok := given[q.ID]
		if !ok {
			if complete {
				return nil, apperrors.Validation(apperrors.CodeAnswerMissing, "please answer %q", q.Text)
			}

			continue
		}

		out = append(out, a)
	}

	if complete && len(out) == 0 {
		return nil, apperrors.Validation(apperrors.CodeAnswerMissing, "this form has no questions to answer")
	}

	return out, nil
}
