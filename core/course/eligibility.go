package course

// State is where a learner stands on the way to a course certificate.
// It is never stored: Evaluate derives it from progress, quiz result & project on every call.
type State string

const (
	StateInProgress               State = "in_progress"
	StateLecturesDone             State = "lectures_done"
	StateQuizPendingValidation    State = "quiz_pending_validation"
	StateProjectRequired          State = "project_required"
	StateProjectPendingValidation State = "project_pending_validation"
	StateCertified                State = "certified"
)

var nextActions = map[State]string{
	StateInProgress:               "continue watching",
	StateLecturesDone:             "attempt quiz",
	StateQuizPendingValidation:    "wait",
	StateProjectRequired:          "submit project",
	StateProjectPendingValidation: "wait",
	StateCertified:                "certificate issuable",
}

func (s State) String() string { return string(s) }

// NextAction describes what the learner may do next in state s.
func (s State) NextAction() string { return nextActions[s] }

// Inputs are the records a State is derived from. QuizResult and Project are nil when absent.
type Inputs struct {
	CompletedLectures     int
	TotalLectures         int
	QuizResult            *QuizResult
	Project               *Project
	RequireQuizValidation bool
}

// Evaluate derives the learner's State.
//
// When the course does not require quiz validation, a passed quiz is enough to reach the project stages:
// an unvalidated quiz then reads as StateQuizPendingValidation only until a project is submitted.
func Evaluate(in Inputs) State {
	quiz, proj := in.QuizResult, in.Project
	switch {
	case in.CompletedLectures < in.TotalLectures:
		return StateInProgress
	case quiz == nil || !quiz.Passed():
		return StateLecturesDone
	case in.RequireQuizValidation && !quiz.Validated:
		return StateQuizPendingValidation
	case proj != nil && proj.Validated:
		return StateCertified
	case proj != nil:
		return StateProjectPendingValidation
	case !quiz.Validated:
		return StateQuizPendingValidation
	default:
		return StateProjectRequired
	}
}

// CanTakeQuiz reports whether the quiz can be viewed & (re)submitted.
func (s State) CanTakeQuiz() bool {
	return s != StateInProgress
}

// CanSubmitProject reports whether a new project submission is allowed.
func (s State) CanSubmitProject(requireQuizValidation bool) bool {
	if s == StateProjectRequired {
		return true
	}
	return !requireQuizValidation && s == StateQuizPendingValidation
}

func (s State) CanIssueCertificate() bool {
	return s == StateCertified
}

// Eligibility is the evaluated State of a learner in a course.
type Eligibility struct {
	LearnerID             string `json:"learner_id"`
	CourseID              string `json:"course_id"`
	State                 State  `json:"state"`
	NextAction            string `json:"next_action"`
	CompletedLectures     int    `json:"completed_lectures"`
	TotalLectures         int    `json:"total_lectures"`
	QuizScore             *int   `json:"quiz_score"`
	QuizValidated         bool   `json:"quiz_validated"`
	ProjectSubmitted      bool   `json:"project_submitted"`
	ProjectValidated      bool   `json:"project_validated"`
	RequireQuizValidation bool   `json:"require_quiz_validation"`
}

func newEligibility(learnerID, courseID string, in Inputs) Eligibility {
	state := Evaluate(in)
	elig := Eligibility{
		LearnerID:             learnerID,
		CourseID:              courseID,
		State:                 state,
		NextAction:            state.NextAction(),
		CompletedLectures:     in.CompletedLectures,
		TotalLectures:         in.TotalLectures,
		RequireQuizValidation: in.RequireQuizValidation,
	}
	if in.QuizResult != nil {
		score := in.QuizResult.Score
		elig.QuizScore = &score
		elig.QuizValidated = in.QuizResult.Validated
	}
	if in.Project != nil {
		elig.ProjectSubmitted = true
		elig.ProjectValidated = in.Project.Validated
	}
	return elig
}
