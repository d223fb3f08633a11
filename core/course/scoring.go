package course

import "math"

// ScoreQuiz grades answers against quiz.
// There must be exactly one answer per question, each with an in-range option, else a KindInvalidSubmission
// error is returned. The score is the percentage of correct answers, rounded half away from zero.
func ScoreQuiz(quiz Quiz, answers []Answer) (score, correct int, err error) {
	total := len(quiz.Questions)
	if total == 0 {
		return 0, 0, newError(KindInvalidSubmission, "quiz has no questions")
	}
	if len(answers) != total {
		return 0, 0, newError(KindInvalidSubmission, "expected %d answers; got %d", total, len(answers))
	}

	answered := make([]bool, total)
	for _, ans := range answers {
		if ans.QuestionIndex < 0 || ans.QuestionIndex >= total {
			return 0, 0, newError(KindInvalidSubmission, "question index %d out of range", ans.QuestionIndex)
		}
		if answered[ans.QuestionIndex] {
			return 0, 0, newError(KindInvalidSubmission, "question %d answered more than once", ans.QuestionIndex)
		}
		answered[ans.QuestionIndex] = true

		question := quiz.Questions[ans.QuestionIndex]
		if ans.SelectedOption < 0 || ans.SelectedOption >= len(question.Options) {
			return 0, 0, newError(
				KindInvalidSubmission, "option %d out of range for question %d", ans.SelectedOption, ans.QuestionIndex,
			)
		}
		if ans.SelectedOption == question.CorrectAnswer {
			correct++
		}
	}

	score = int(math.Round(float64(correct) / float64(total) * 100))
	return score, correct, nil
}
