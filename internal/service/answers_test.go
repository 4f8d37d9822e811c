package service

import (
	"testing"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peerQuestions() []domain.Question {
	return []domain.Question{
		{ID: 2, RelationshipType: relationship.Peer, Text: "What should they keep doing?", Type: domain.QuestionText, SortOrder: 2, IsActive: true},
		{ID: 1, RelationshipType: relationship.Peer, Text: "How well do they collaborate?", Type: domain.QuestionRating, SortOrder: 1, IsActive: true},
	}
}

func TestCheckAnswers(t *testing.T) {
	testCases := []struct {
		name     string
		answers  []domain.Answer
		complete bool
		want     []domain.Answer
		code     apperrors.Code
	}{
		{
			name: "complete set is returned in question order",
			answers: []domain.Answer{
				{QuestionID: 2, Text: "  clear writing  "},
				{QuestionID: 1, Rating: ptr(4)},
			},
			complete: true,
			want: []domain.Answer{
				{QuestionID: 1, Rating: ptr(4)},
				{QuestionID: 2, Text: "clear writing"},
			},
		},
		{
			name:    "draft may be partial",
			answers: []domain.Answer{{QuestionID: 2, Text: "clear writing"}, {QuestionID: 1}},
			want:    []domain.Answer{{QuestionID: 2, Text: "clear writing"}},
		},
		{
			name:    "repeated question keeps the last answer",
			answers: []domain.Answer{{QuestionID: 1, Rating: ptr(2)}, {QuestionID: 1, Rating: ptr(5)}},
			want:    []domain.Answer{{QuestionID: 1, Rating: ptr(5)}},
		},
		{
			name:     "blank text does not count as an answer",
			answers:  []domain.Answer{{QuestionID: 1, Rating: ptr(3)}, {QuestionID: 2, Text: "   "}},
			complete: true,
			code:     apperrors.CodeAnswerMissing,
		},
		{
			name:    "rating above the scale",
			answers: []domain.Answer{{QuestionID: 1, Rating: ptr(6)}},
			code:    apperrors.CodeInvalidRating,
		},
		{
			name:    "rating below the scale",
			answers: []domain.Answer{{QuestionID: 1, Rating: ptr(0)}},
			code:    apperrors.CodeInvalidRating,
		},
		{
			name:    "question from another form",
			answers: []domain.Answer{{QuestionID: 99, Text: "hello"}},
			code:    apperrors.CodeUnknownQuestion,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := checkAnswers(peerQuestions(), tc.answers, tc.complete)

			if tc.code != "" {
				requireRejection(t, err, tc.code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCheckAnswers_EmptyFormCannotBeSubmitted(t *testing.T) {
	_, err := checkAnswers(nil, nil, true)
	requireRejection(t, err, apperrors.CodeAnswerMissing)

	got, err := checkAnswers(nil, nil, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}
