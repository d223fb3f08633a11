package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuiz(correct ...int) Quiz {
	quiz := Quiz{ID: "quiz", CourseID: "course"}
	for _, c := range correct {
		quiz.Questions = append(quiz.Questions, Question{
			Text:          "question",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: c,
		})
	}
	return quiz
}

func TestScoreQuiz(t *testing.T) {
	quiz := newTestQuiz(0, 1, 2)

	tests := []struct {
		name        string
		quiz        Quiz
		answers     []Answer
		wantScore   int
		wantCorrect int
		wantErr     bool
	}{
		{
			name:      "all correct",
			quiz:      quiz,
			answers:   []Answer{{0, 0}, {1, 1}, {2, 2}},
			wantScore: 100, wantCorrect: 3,
		},
		{
			name:      "any order",
			quiz:      quiz,
			answers:   []Answer{{2, 2}, {0, 0}, {1, 1}},
			wantScore: 100, wantCorrect: 3,
		},
		{
			name:      "two of three rounds up",
			quiz:      quiz,
			answers:   []Answer{{0, 0}, {1, 1}, {2, 3}},
			wantScore: 67, wantCorrect: 2,
		},
		{
			name:      "one of three rounds down",
			quiz:      quiz,
			answers:   []Answer{{0, 0}, {1, 0}, {2, 0}},
			wantScore: 33, wantCorrect: 1,
		},
		{
			name:      "two of four",
			quiz:      newTestQuiz(0, 0, 0, 0),
			answers:   []Answer{{0, 0}, {1, 0}, {2, 1}, {3, 1}},
			wantScore: 50, wantCorrect: 2,
		},
		{name: "none correct", quiz: quiz, answers: []Answer{{0, 3}, {1, 3}, {2, 3}}},
		{name: "too few answers", quiz: quiz, answers: []Answer{{0, 0}, {1, 1}}, wantErr: true},
		{name: "too many answers", quiz: quiz, answers: []Answer{{0, 0}, {1, 1}, {2, 2}, {2, 2}}, wantErr: true},
		{name: "no answers", quiz: quiz, wantErr: true},
		{name: "question index out of range", quiz: quiz, answers: []Answer{{0, 0}, {1, 1}, {3, 2}}, wantErr: true},
		{name: "negative question index", quiz: quiz, answers: []Answer{{0, 0}, {1, 1}, {-1, 2}}, wantErr: true},
		{name: "option out of range", quiz: quiz, answers: []Answer{{0, 0}, {1, 1}, {2, 4}}, wantErr: true},
		{name: "negative option", quiz: quiz, answers: []Answer{{0, 0}, {1, -1}, {2, 2}}, wantErr: true},
		{name: "question answered twice", quiz: quiz, answers: []Answer{{0, 0}, {0, 0}, {2, 2}}, wantErr: true},
		{name: "quiz without questions", quiz: Quiz{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, correct, err := ScoreQuiz(tt.quiz, tt.answers)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSubmission)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantCorrect, correct)
		})
	}
}

func TestScoreQuiz_deterministic(t *testing.T) {
	quiz := newTestQuiz(3, 2, 1, 0)
	answers := []Answer{{0, 3}, {1, 1}, {2, 1}, {3, 2}}

	firstScore, firstCorrect, err := ScoreQuiz(quiz, answers)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		score, correct, err := ScoreQuiz(quiz, answers)
		require.NoError(t, err)
		assert.Equal(t, firstScore, score)
		assert.Equal(t, firstCorrect, correct)
	}
}

func TestCertificateID(t *testing.T) {
	id := CertificateID("learner", "course")
	assert.Equal(t, id, CertificateID("learner", "course"))
	assert.NotEqual(t, id, CertificateID("course", "learner"))
	assert.NotEqual(t, id, CertificateID("learner", "course2"))
	assert.Equal(t, "learner-course", CertificateNumber("learner", "course"))
}

func TestCourse_EnrollmentAmount(t *testing.T) {
	tests := []struct {
		price    float64
		discount int
		want     float64
	}{
		{price: 100, discount: 0, want: 100},
		{price: 99.99, discount: 10, want: 89.99},
		{price: 49.5, discount: 20, want: 39.6},
		{price: 20, discount: 100, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Course{Price: tt.price, Discount: tt.discount}.EnrollmentAmount())
	}
}
