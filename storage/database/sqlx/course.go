package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

const (
	courseColumns = "id, title, description, thumbnail, educator_id, price, discount, is_published," +
		" require_quiz_validation, lectures, created_at, updated_at"
	enrollmentColumns  = "id, learner_id, course_id, amount, enrolled_at"
	quizColumns        = "id, course_id, questions, created_at, updated_at"
	quizResultColumns  = "id, learner_id, course_id, answers, score, completed_at, validated, validated_at, submitted_at"
	projectColumns     = "id, learner_id, course_id, submission_type, link, file, validated, submitted_at, validated_at"
	certificateColumns = "id, number, learner_id, course_id, learner_name, course_title, completed_at, issued_at"
	ratingColumns      = "learner_id, course_id, rating, rated_at"
)

var courseOrderings = map[string]bool{"title": true, "price": true, "created_at": true}

type (
	courseRow struct {
		ID                    string     `db:"id"`
		Title                 string     `db:"title"`
		Description           string     `db:"description"`
		Thumbnail             string     `db:"thumbnail"`
		EducatorID            string     `db:"educator_id"`
		Price                 float64    `db:"price"`
		Discount              int        `db:"discount"`
		IsPublished           bool       `db:"is_published"`
		RequireQuizValidation bool       `db:"require_quiz_validation"`
		Lectures              types.JSON `db:"lectures"`
		CreatedAt             time.Time  `db:"created_at"`
		UpdatedAt             time.Time  `db:"updated_at"`
	}

	enrollmentRow struct {
		ID         string    `db:"id"`
		LearnerID  string    `db:"learner_id"`
		CourseID   string    `db:"course_id"`
		Amount     float64   `db:"amount"`
		EnrolledAt time.Time `db:"enrolled_at"`
	}

	quizRow struct {
		ID        string     `db:"id"`
		CourseID  string     `db:"course_id"`
		Questions types.JSON `db:"questions"`
		CreatedAt time.Time  `db:"created_at"`
		UpdatedAt time.Time  `db:"updated_at"`
	}

	quizResultRow struct {
		ID          string     `db:"id"`
		LearnerID   string     `db:"learner_id"`
		CourseID    string     `db:"course_id"`
		Answers     types.JSON `db:"answers"`
		Score       int        `db:"score"`
		CompletedAt null.Time  `db:"completed_at"`
		Validated   bool       `db:"validated"`
		ValidatedAt null.Time  `db:"validated_at"`
		SubmittedAt time.Time  `db:"submitted_at"`
	}

	projectRow struct {
		ID             string    `db:"id"`
		LearnerID      string    `db:"learner_id"`
		CourseID       string    `db:"course_id"`
		SubmissionType string    `db:"submission_type"`
		Link           string    `db:"link"`
		File           string    `db:"file"`
		Validated      bool      `db:"validated"`
		SubmittedAt    time.Time `db:"submitted_at"`
		ValidatedAt    null.Time `db:"validated_at"`
	}

	certificateRow struct {
		ID          string    `db:"id"`
		Number      string    `db:"number"`
		LearnerID   string    `db:"learner_id"`
		CourseID    string    `db:"course_id"`
		LearnerName string    `db:"learner_name"`
		CourseTitle string    `db:"course_title"`
		CompletedAt time.Time `db:"completed_at"`
		IssuedAt    time.Time `db:"issued_at"`
	}

	ratingRow struct {
		LearnerID string    `db:"learner_id"`
		CourseID  string    `db:"course_id"`
		Rating    int       `db:"rating"`
		RatedAt   time.Time `db:"rated_at"`
	}
)

func toCourseRow(c course.Course) (courseRow, error) {
	row := courseRow{
		ID:                    c.ID,
		Title:                 c.Title,
		Description:           c.Description,
		Thumbnail:             c.Thumbnail,
		EducatorID:            c.EducatorID,
		Price:                 c.Price,
		Discount:              c.Discount,
		IsPublished:           c.IsPublished,
		RequireQuizValidation: c.RequireQuizValidation,
		CreatedAt:             c.CreatedAt.UTC(),
		UpdatedAt:             c.UpdatedAt.UTC(),
	}
	lectures := c.Lectures
	if lectures == nil {
		lectures = []course.Lecture{}
	}
	return row, errors.Wrap(row.Lectures.Marshal(lectures), "encoding lectures")
}

func (row courseRow) course() (course.Course, error) {
	c := course.Course{
		ID:                    row.ID,
		Title:                 row.Title,
		Description:           row.Description,
		Thumbnail:             row.Thumbnail,
		EducatorID:            row.EducatorID,
		Price:                 row.Price,
		Discount:              row.Discount,
		IsPublished:           row.IsPublished,
		RequireQuizValidation: row.RequireQuizValidation,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
	return c, errors.Wrap(row.Lectures.Unmarshal(&c.Lectures), "decoding lectures")
}

func (row enrollmentRow) enrollment() course.Enrollment {
	return course.Enrollment(row)
}

func (row quizRow) quiz() (course.Quiz, error) {
	q := course.Quiz{ID: row.ID, CourseID: row.CourseID, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
	return q, errors.Wrap(row.Questions.Unmarshal(&q.Questions), "decoding questions")
}

func (row quizResultRow) result() (course.QuizResult, error) {
	res := course.QuizResult{
		ID:          row.ID,
		LearnerID:   row.LearnerID,
		CourseID:    row.CourseID,
		Score:       row.Score,
		CompletedAt: row.CompletedAt,
		Validated:   row.Validated,
		ValidatedAt: row.ValidatedAt,
		SubmittedAt: row.SubmittedAt,
	}
	return res, errors.Wrap(row.Answers.Unmarshal(&res.Answers), "decoding answers")
}

func (row projectRow) project() course.Project {
	return course.Project(row)
}

func (row certificateRow) certificate() course.Certificate {
	return course.Certificate(row)
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

// Courses

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	row, err := toCourseRow(c)
	if err != nil {
		return course.Course{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		"INSERT INTO courses ("+courseColumns+") VALUES (:id, :title, :description, :thumbnail, :educator_id, :price,"+
			" :discount, :is_published, :require_quiz_validation, :lectures, :created_at, :updated_at)",
		row,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return course.Course{}, course.Conflict("course %s already exists", c.ID)
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.course()
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id); err != nil {
		return course.Course{}, trapNoRows(err, course.NotFound("course"), "getting course")
	}
	return row.course()
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.CourseFilter, orderings []core.DBOrdering) ([]course.Course, error) {
	var w where
	if filter.EducatorID != "" {
		w.add("educator_id::text = ?", filter.EducatorID)
	}
	if filter.IDs != nil {
		w.add("id::text = ANY(?)", pq.StringArray(filter.IDs))
	}
	if filter.PublishedOnly {
		w.add("is_published")
	}
	if filter.Search != "" {
		w.add("(title ILIKE ? OR description ILIKE ?)", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	q := "SELECT " + courseColumns + " FROM courses" + w.String() +
		" ORDER BY " + core.OrderBy(orderings, courseOrderings, "created_at DESC") + ", id"

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		c, err := row.course()
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// Enrollments

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO enrollments ("+enrollmentColumns+") VALUES (:id, :learner_id, :course_id, :amount, :enrolled_at)",
		enrollmentRow(enr),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return course.Enrollment{}, course.Conflict("already enrolled in this course")
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, learnerID, courseID string) (course.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE learner_id = $1 AND course_id = $2",
		learnerID, courseID,
	)
	if err != nil {
		return course.Enrollment{}, trapNoRows(err, course.NotFound("enrollment"), "getting enrollment")
	}
	return row.enrollment(), nil
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	var w where
	if filter.LearnerID != "" {
		w.add("learner_id::text = ?", filter.LearnerID)
	}
	if filter.CourseIDs != nil {
		w.add("course_id::text = ANY(?)", pq.StringArray(filter.CourseIDs))
	}

	var rows []enrollmentRow
	q := "SELECT " + enrollmentColumns + " FROM enrollments" + w.String() + " ORDER BY enrolled_at, id"
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.enrollment())
	}
	return enrollments, nil
}

// Progress

func (repo *courseRepository) AddCompletedLecture(ctx context.Context, learnerID, courseID, lectureID string, at time.Time) (bool, error) {
	res, err := repo.db.ExecContext(ctx,
		"INSERT INTO lecture_progress (learner_id, course_id, lecture_completed, updated_at) VALUES ($1, $2, ARRAY[$3::text], $4)"+
			" ON CONFLICT (learner_id, course_id) DO UPDATE"+
			" SET lecture_completed = array_append(lecture_progress.lecture_completed, $3::text), updated_at = $4"+
			" WHERE NOT ($3::text = ANY(lecture_progress.lecture_completed))",
		learnerID, courseID, lectureID, at.UTC(),
	)
	if err != nil {
		return false, errors.Wrap(err, "saving lecture progress")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "saving lecture progress")
	}
	return n > 0, nil
}

func (repo *courseRepository) GetProgress(ctx context.Context, learnerID, courseID string) (course.Progress, error) {
	var row struct {
		LectureCompleted pq.StringArray `db:"lecture_completed"`
		UpdatedAt        time.Time      `db:"updated_at"`
	}
	prog := course.Progress{LearnerID: learnerID, CourseID: courseID, LectureCompleted: []string{}}
	err := repo.db.GetContext(ctx, &row,
		"SELECT lecture_completed, updated_at FROM lecture_progress WHERE learner_id = $1 AND course_id = $2",
		learnerID, courseID,
	)
	if err != nil {
		if err = trapNoRows(err, nil, "getting progress"); err != nil {
			return course.Progress{}, err
		}
		return prog, nil
	}
	prog.LectureCompleted = []string(row.LectureCompleted)
	prog.UpdatedAt = row.UpdatedAt
	return prog, nil
}

// Quizzes

func (repo *courseRepository) SaveQuiz(ctx context.Context, quiz course.Quiz) (course.Quiz, error) {
	row := quizRow{
		ID:        quiz.ID,
		CourseID:  quiz.CourseID,
		CreatedAt: quiz.CreatedAt.UTC(),
		UpdatedAt: quiz.UpdatedAt.UTC(),
	}
	if err := row.Questions.Marshal(quiz.Questions); err != nil {
		return course.Quiz{}, errors.Wrap(err, "encoding questions")
	}

	var saved quizRow
	err := repo.db.GetContext(ctx, &saved,
		"INSERT INTO quizzes ("+quizColumns+") VALUES ($1, $2, $3, $4, $5)"+
			" ON CONFLICT (course_id) DO UPDATE SET questions = EXCLUDED.questions, updated_at = EXCLUDED.updated_at"+
			" RETURNING "+quizColumns,
		row.ID, row.CourseID, row.Questions, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return course.Quiz{}, errors.Wrap(err, "saving quiz")
	}
	return saved.quiz()
}

func (repo *courseRepository) GetQuiz(ctx context.Context, courseID string) (course.Quiz, error) {
	var row quizRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+quizColumns+" FROM quizzes WHERE course_id = $1", courseID); err != nil {
		return course.Quiz{}, trapNoRows(err, course.NotFound("quiz"), "getting quiz")
	}
	return row.quiz()
}

// Quiz results

func (repo *courseRepository) UpsertQuizResult(ctx context.Context, res course.QuizResult) (course.QuizResult, error) {
	var answers types.JSON
	if err := answers.Marshal(res.Answers); err != nil {
		return course.QuizResult{}, errors.Wrap(err, "encoding answers")
	}

	var row quizResultRow
	err := repo.db.GetContext(ctx, &row,
		"INSERT INTO quiz_results ("+quizResultColumns+") VALUES ($1, $2, $3, $4, $5, $6, false, NULL, $7)"+
			" ON CONFLICT (learner_id, course_id) DO UPDATE SET answers = EXCLUDED.answers, score = EXCLUDED.score,"+
			" completed_at = EXCLUDED.completed_at, validated = false, validated_at = NULL, submitted_at = EXCLUDED.submitted_at"+
			" RETURNING "+quizResultColumns,
		res.ID, res.LearnerID, res.CourseID, answers, res.Score, res.CompletedAt, res.SubmittedAt.UTC(),
	)
	if err != nil {
		return course.QuizResult{}, errors.Wrap(err, "saving quiz result")
	}
	return row.result()
}

func (repo *courseRepository) getQuizResult(ctx context.Context, cond string, args ...interface{}) (course.QuizResult, error) {
	var row quizResultRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+quizResultColumns+" FROM quiz_results WHERE "+cond, args...); err != nil {
		return course.QuizResult{}, trapNoRows(err, course.NotFound("quiz result"), "getting quiz result")
	}
	return row.result()
}

func (repo *courseRepository) GetQuizResult(ctx context.Context, learnerID, courseID string) (course.QuizResult, error) {
	return repo.getQuizResult(ctx, "learner_id = $1 AND course_id = $2", learnerID, courseID)
}

func (repo *courseRepository) GetQuizResultByID(ctx context.Context, id string) (course.QuizResult, error) {
	return repo.getQuizResult(ctx, "id = $1", id)
}

func (repo *courseRepository) QueryQuizResults(ctx context.Context, filter course.QuizResultFilter) ([]course.QuizResult, error) {
	var w where
	if filter.CourseIDs != nil {
		w.add("course_id::text = ANY(?)", pq.StringArray(filter.CourseIDs))
	}
	if filter.PassedOnly {
		w.add("score = ?", course.PassingScore)
	}
	if filter.Validated != nil {
		w.add("validated = ?", *filter.Validated)
	}

	var rows []quizResultRow
	q := "SELECT " + quizResultColumns + " FROM quiz_results" + w.String() + " ORDER BY submitted_at, id"
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying quiz results")
	}
	results := make([]course.QuizResult, 0, len(rows))
	for _, row := range rows {
		res, err := row.result()
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (repo *courseRepository) ValidateQuizResult(ctx context.Context, id string, at time.Time) (course.QuizResult, error) {
	var row quizResultRow
	err := repo.db.GetContext(ctx, &row,
		"UPDATE quiz_results SET validated = true, validated_at = COALESCE(validated_at, $2)"+
			" WHERE id = $1 AND score = $3 RETURNING "+quizResultColumns,
		id, at.UTC(), course.PassingScore,
	)
	if err != nil {
		return course.QuizResult{}, trapNoRows(err, course.NotFound("passed quiz result"), "validating quiz result")
	}
	return row.result()
}

// Projects

func (repo *courseRepository) CreateProject(ctx context.Context, proj course.Project) (course.Project, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO projects ("+projectColumns+") VALUES (:id, :learner_id, :course_id, :submission_type, :link, :file,"+
			" :validated, :submitted_at, :validated_at)",
		projectRow(proj),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return course.Project{}, course.Conflict("a project was already submitted for this course")
		}
		return course.Project{}, errors.Wrap(err, "inserting project")
	}
	return proj, nil
}

func (repo *courseRepository) getProject(ctx context.Context, cond string, args ...interface{}) (course.Project, error) {
	var row projectRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+projectColumns+" FROM projects WHERE "+cond, args...); err != nil {
		return course.Project{}, trapNoRows(err, course.NotFound("project"), "getting project")
	}
	return row.project(), nil
}

func (repo *courseRepository) GetProject(ctx context.Context, learnerID, courseID string) (course.Project, error) {
	return repo.getProject(ctx, "learner_id = $1 AND course_id = $2", learnerID, courseID)
}

func (repo *courseRepository) GetProjectByID(ctx context.Context, id string) (course.Project, error) {
	return repo.getProject(ctx, "id = $1", id)
}

func (repo *courseRepository) QueryProjects(ctx context.Context, filter course.ProjectFilter) ([]course.Project, error) {
	var w where
	if filter.LearnerID != "" {
		w.add("learner_id::text = ?", filter.LearnerID)
	}
	if filter.CourseIDs != nil {
		w.add("course_id::text = ANY(?)", pq.StringArray(filter.CourseIDs))
	}
	if filter.Validated != nil {
		w.add("validated = ?", *filter.Validated)
	}

	var rows []projectRow
	q := "SELECT " + projectColumns + " FROM projects" + w.String() + " ORDER BY submitted_at, id"
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	projects := make([]course.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.project())
	}
	return projects, nil
}

func (repo *courseRepository) ValidateProject(ctx context.Context, id string, at time.Time) (course.Project, error) {
	var row projectRow
	err := repo.db.GetContext(ctx, &row,
		"UPDATE projects SET validated = true, validated_at = COALESCE(validated_at, $2) WHERE id = $1 RETURNING "+projectColumns,
		id, at.UTC(),
	)
	if err != nil {
		return course.Project{}, trapNoRows(err, course.NotFound("project"), "validating project")
	}
	return row.project(), nil
}

func (repo *courseRepository) DeleteProject(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting project")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting project")
	} else if n == 0 {
		return course.NotFound("project")
	}
	return nil
}

// Certificates

func (repo *courseRepository) CreateCertificateIfAbsent(ctx context.Context, cert course.Certificate) (course.Certificate, bool, error) {
	row := certificateRow(cert)
	row.CompletedAt = row.CompletedAt.UTC()
	row.IssuedAt = row.IssuedAt.UTC()

	res, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO certificates ("+certificateColumns+") VALUES (:id, :number, :learner_id, :course_id, :learner_name,"+
			" :course_title, :completed_at, :issued_at) ON CONFLICT (id) DO NOTHING",
		row,
	)
	if err != nil {
		return course.Certificate{}, false, errors.Wrap(err, "inserting certificate")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return course.Certificate{}, false, errors.Wrap(err, "inserting certificate")
	}
	if n > 0 {
		return row.certificate(), true, nil
	}

	existing, err := repo.GetCertificate(ctx, cert.ID)
	return existing, false, err
}

func (repo *courseRepository) GetCertificate(ctx context.Context, id string) (course.Certificate, error) {
	var row certificateRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+certificateColumns+" FROM certificates WHERE id = $1", id); err != nil {
		return course.Certificate{}, trapNoRows(err, course.NotFound("certificate"), "getting certificate")
	}
	return row.certificate(), nil
}

// Ratings

func (repo *courseRepository) UpsertRating(ctx context.Context, rating course.Rating) (course.Rating, error) {
	row := ratingRow(rating)
	row.RatedAt = row.RatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO ratings ("+ratingColumns+") VALUES (:learner_id, :course_id, :rating, :rated_at)"+
			" ON CONFLICT (learner_id, course_id) DO UPDATE SET rating = EXCLUDED.rating, rated_at = EXCLUDED.rated_at",
		row,
	)
	if err != nil {
		return course.Rating{}, errors.Wrap(err, "saving rating")
	}
	return course.Rating(row), nil
}

func (repo *courseRepository) QueryRatings(ctx context.Context, courseIDs ...string) ([]course.Rating, error) {
	var rows []ratingRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+ratingColumns+" FROM ratings WHERE course_id::text = ANY($1) ORDER BY learner_id",
		pq.StringArray(courseIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying ratings")
	}
	ratings := make([]course.Rating, 0, len(rows))
	for _, row := range rows {
		ratings = append(ratings, course.Rating(row))
	}
	return ratings, nil
}
