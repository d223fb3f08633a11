package course

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

const (
	MinQuizQuestions   = 1
	MaxQuizQuestions   = 4
	OptionsPerQuestion = 4

	PassingScore = 100

	SubmissionLink = "link"
	SubmissionFile = "file"
)

type Lecture struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title" validate:"notblank"`
	Duration  int    `json:"duration" yaml:"duration" validate:"gte=0"` // minutes
	URL       string `json:"url" yaml:"url" validate:"omitempty,url"`
	IsPreview bool   `json:"is_preview" yaml:"is_preview"`
}

type Course struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	Thumbnail             string    `json:"thumbnail,omitempty"`
	EducatorID            string    `json:"educator_id"`
	Price                 float64   `json:"price"`
	Discount              int       `json:"discount"` // percent
	IsPublished           bool      `json:"is_published"`
	RequireQuizValidation bool      `json:"require_quiz_validation"`
	Lectures              []Lecture `json:"lectures"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TotalLectures is the count a learner's progress is evaluated against.
func (c Course) TotalLectures() int { return len(c.Lectures) }

func (c Course) HasLecture(id string) bool {
	for _, lec := range c.Lectures {
		if lec.ID == id {
			return true
		}
	}
	return false
}

// EnrollmentAmount is the price after discount, rounded to cents.
func (c Course) EnrollmentAmount() float64 {
	amount := c.Price - float64(c.Discount)*c.Price/100
	return math.Round(amount*100) / 100
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title                 string    `json:"title" yaml:"title" validate:"notblank,max=200"`
	Description           string    `json:"description" yaml:"description"`
	Thumbnail             string    `json:"thumbnail" yaml:"thumbnail" validate:"omitempty,url"`
	Price                 float64   `json:"price" yaml:"price" validate:"gte=0"`
	Discount              int       `json:"discount" yaml:"discount" validate:"gte=0,lte=100"`
	IsPublished           *bool     `json:"is_published" yaml:"is_published"`
	RequireQuizValidation *bool     `json:"require_quiz_validation" yaml:"require_quiz_validation"`
	Lectures              []Lecture `json:"lectures" yaml:"lectures" validate:"dive"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	for i := range nc.Lectures {
		nc.Lectures[i].Title = core.CleanString(nc.Lectures[i].Title)
	}
	return validate.Struct(nc)
}

type CourseFilter struct {
	EducatorID    string   `query:"educator"`
	IDs           []string `query:"-"`
	PublishedOnly bool     `query:"-"`
	Search        string   `query:"search"`
}

type Enrollment struct {
	ID         string    `json:"id"`
	LearnerID  string    `json:"learner_id"`
	CourseID   string    `json:"course_id"`
	Amount     float64   `json:"amount"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

type EnrollmentFilter struct {
	LearnerID string
	CourseIDs []string
}

// Progress is the append-only set of lectures a learner completed in a course.
type Progress struct {
	LearnerID         string    `json:"learner_id"`
	CourseID          string    `json:"course_id"`
	LectureCompleted  []string  `json:"lecture_completed"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
	CompletedLectures int       `json:"completed_lectures"`
	TotalLectures     int       `json:"total_lectures"`
}

// Completed counts the completed lectures that still belong to c.
func (p Progress) Completed(c Course) int {
	var n int
	for _, id := range p.LectureCompleted {
		if c.HasLecture(id) {
			n++
		}
	}
	return n
}

func (p Progress) Has(lectureID string) bool {
	for _, id := range p.LectureCompleted {
		if id == lectureID {
			return true
		}
	}
	return false
}

type Question struct {
	Text          string   `json:"text" yaml:"text" validate:"notblank"`
	Options       []string `json:"options" yaml:"options" validate:"len=4,dive,notblank"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer" validate:"gte=0,lte=3"`
}

type Quiz struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewQuiz contains the questions of a course quiz. Saving it replaces the existing quiz.
type NewQuiz struct {
	Questions []Question `json:"questions" yaml:"questions" validate:"min=1,max=4,dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	for i := range nq.Questions {
		q := &nq.Questions[i]
		q.Text = core.CleanString(q.Text)
		for j := range q.Options {
			q.Options[j] = core.CleanString(q.Options[j])
		}
	}
	return validate.Struct(nq)
}

// QuizView is the quiz as shown to learners: without the answers.
type QuizView struct {
	ID        string         `json:"id"`
	CourseID  string         `json:"course_id"`
	Questions []QuestionView `json:"questions"`
}

type QuestionView struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

func (q Quiz) View() QuizView {
	view := QuizView{ID: q.ID, CourseID: q.CourseID, Questions: make([]QuestionView, 0, len(q.Questions))}
	for i, question := range q.Questions {
		view.Questions = append(view.Questions, QuestionView{Index: i, Text: question.Text, Options: question.Options})
	}
	return view
}

type Answer struct {
	QuestionIndex  int `json:"question_index" yaml:"question_index"`
	SelectedOption int `json:"selected_option" yaml:"selected_option"`
}

type QuizResult struct {
	ID          string    `json:"id"`
	LearnerID   string    `json:"learner_id"`
	CourseID    string    `json:"course_id"`
	Answers     []Answer  `json:"answers"`
	Score       int       `json:"score"`
	CompletedAt null.Time `json:"completed_at"` // set only when Score == PassingScore
	Validated   bool      `json:"validated"`
	ValidatedAt null.Time `json:"validated_at"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (r QuizResult) Passed() bool { return r.Score == PassingScore }

type QuizResultFilter struct {
	CourseIDs  []string
	PassedOnly bool
	Validated  *bool
}

// QuizOutcome is what a learner gets back after submitting a quiz.
type QuizOutcome struct {
	Score   int        `json:"score"`
	Passed  bool       `json:"passed"`
	Correct int        `json:"correct"`
	Total   int        `json:"total"`
	Result  QuizResult `json:"result"`
}

type Project struct {
	ID             string    `json:"id"`
	LearnerID      string    `json:"learner_id"`
	CourseID       string    `json:"course_id"`
	SubmissionType string    `json:"submission_type"` // SubmissionLink | SubmissionFile
	Link           string    `json:"link,omitempty"`
	File           string    `json:"file,omitempty"` // reference to the uploaded file
	Validated      bool      `json:"validated"`
	SubmittedAt    time.Time `json:"submitted_at"`
	ValidatedAt    null.Time `json:"validated_at"`
}

// NewProject is a project submission: one of Link or File.
type NewProject struct {
	Link string `json:"link" validate:"omitempty,url"`
	File string `json:"file" validate:"omitempty,max=512"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Link = core.CleanString(np.Link)
	np.File = core.CleanString(np.File)
	return validate.Struct(np)
}

func (np NewProject) submissionType() string {
	if np.Link != "" {
		return SubmissionLink
	}
	return SubmissionFile
}

type ProjectFilter struct {
	LearnerID string
	CourseIDs []string
	Validated *bool
}

// PendingProject is an unvalidated project as listed to its educator.
type PendingProject struct {
	Project
	QuizValidated bool `json:"quiz_validated"`
}

type Certificate struct {
	ID          string    `json:"id"`
	Number      string    `json:"certificate_number"`
	LearnerID   string    `json:"learner_id"`
	CourseID    string    `json:"course_id"`
	LearnerName string    `json:"learner_name"`
	CourseTitle string    `json:"course_title"`
	CompletedAt time.Time `json:"completed_at"`
	IssuedAt    time.Time `json:"issued_at"`
}

type Rating struct {
	LearnerID string    `json:"learner_id"`
	CourseID  string    `json:"course_id"`
	Rating    int       `json:"rating"`
	RatedAt   time.Time `json:"rated_at"`
}

type NewRating struct {
	Rating int `json:"rating" validate:"gte=1,lte=5"`
}

// CourseSummary is a course as listed in the catalog.
type CourseSummary struct {
	Course
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
	Amount        float64 `json:"amount"`
}

// EnrolledCourse is a course as listed to an enrolled learner.
type EnrolledCourse struct {
	Course     Course     `json:"course"`
	Enrollment Enrollment `json:"enrollment"`
	Progress   Progress   `json:"progress"`
	State      State      `json:"state"`
}
