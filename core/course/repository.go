package course

import (
	"context"
	"time"

	"github.com/trezcool/elimu/core"
)

// Repository persists courses and learner records.
// Uniqueness on (learner, course) is enforced by the store: CreateEnrollment & CreateProject fail with a
// KindConflict error on duplicates and the Upsert/IfAbsent methods are atomic.
type Repository interface {
	CreateCourse(ctx context.Context, c Course) (Course, error)
	GetCourse(ctx context.Context, id string) (Course, error)
	QueryCourses(ctx context.Context, filter CourseFilter, orderings []core.DBOrdering) ([]Course, error)

	CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	GetEnrollment(ctx context.Context, learnerID, courseID string) (Enrollment, error)
	QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)

	// AddCompletedLecture is a no-op (false) if the lecture was already completed.
	AddCompletedLecture(ctx context.Context, learnerID, courseID, lectureID string, at time.Time) (bool, error)
	// GetProgress returns an empty Progress if the learner has not completed any lecture yet.
	GetProgress(ctx context.Context, learnerID, courseID string) (Progress, error)

	// SaveQuiz replaces the quiz of quiz.CourseID.
	SaveQuiz(ctx context.Context, quiz Quiz) (Quiz, error)
	GetQuiz(ctx context.Context, courseID string) (Quiz, error)

	// UpsertQuizResult overwrites the learner's previous result (keeping its ID).
	UpsertQuizResult(ctx context.Context, res QuizResult) (QuizResult, error)
	GetQuizResult(ctx context.Context, learnerID, courseID string) (QuizResult, error)
	GetQuizResultByID(ctx context.Context, id string) (QuizResult, error)
	QueryQuizResults(ctx context.Context, filter QuizResultFilter) ([]QuizResult, error)
	// ValidateQuizResult flags a passed result as validated; ValidatedAt is only set the first time.
	// It fails with ErrNotFound if no passed result has that id.
	ValidateQuizResult(ctx context.Context, id string, at time.Time) (QuizResult, error)

	CreateProject(ctx context.Context, proj Project) (Project, error)
	GetProject(ctx context.Context, learnerID, courseID string) (Project, error)
	GetProjectByID(ctx context.Context, id string) (Project, error)
	QueryProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	// ValidateProject flags a project as validated; ValidatedAt is only set the first time.
	ValidateProject(ctx context.Context, id string, at time.Time) (Project, error)
	DeleteProject(ctx context.Context, id string) error

	// CreateCertificateIfAbsent stores cert unless one with the same ID exists.
	// It returns the stored certificate and whether it was created.
	CreateCertificateIfAbsent(ctx context.Context, cert Certificate) (Certificate, bool, error)
	GetCertificate(ctx context.Context, id string) (Certificate, error)

	UpsertRating(ctx context.Context, rating Rating) (Rating, error)
	QueryRatings(ctx context.Context, courseIDs ...string) ([]Rating, error)
}
