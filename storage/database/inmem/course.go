package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func inStrings(s string, list []string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func copyCourse(c course.Course) course.Course {
	c.Lectures = append([]course.Lecture{}, c.Lectures...)
	return c
}

// Courses

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[c.ID]; ok {
		return course.Course{}, course.Conflict("course %s already exists", c.ID)
	}
	c = copyCourse(c)
	repo.db.courses[c.ID] = &c
	return copyCourse(c), nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return copyCourse(*c), nil
	}
	return course.Course{}, course.NotFound("course")
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.CourseFilter, orderings []core.DBOrdering) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if filter.EducatorID != "" && c.EducatorID != filter.EducatorID {
			continue
		}
		if filter.IDs != nil && !inStrings(c.ID, filter.IDs) {
			continue
		}
		if filter.PublishedOnly && !c.IsPublished {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		courses = append(courses, copyCourse(*c))
	}

	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range orderings {
			cmp := compareCourses(courses[i], courses[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func compareCourses(a, b course.Course, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "price":
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

// Enrollments

func (repo *courseRepository) CreateEnrollment(_ context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pairKey{enr.LearnerID, enr.CourseID}
	if _, ok := repo.db.enrollments[key]; ok {
		return course.Enrollment{}, course.Conflict("already enrolled in this course")
	}
	repo.db.enrollments[key] = &enr
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(_ context.Context, learnerID, courseID string) (course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if enr, ok := repo.db.enrollments[pairKey{learnerID, courseID}]; ok {
		return *enr, nil
	}
	return course.Enrollment{}, course.NotFound("enrollment")
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.LearnerID != "" && enr.LearnerID != filter.LearnerID {
			continue
		}
		if filter.CourseIDs != nil && !inStrings(enr.CourseID, filter.CourseIDs) {
			continue
		}
		enrollments = append(enrollments, *enr)
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].EnrolledAt.Equal(enrollments[j].EnrolledAt) {
			return enrollments[i].ID < enrollments[j].ID
		}
		return enrollments[i].EnrolledAt.Before(enrollments[j].EnrolledAt)
	})
	return enrollments, nil
}

// Progress

func (repo *courseRepository) AddCompletedLecture(_ context.Context, learnerID, courseID, lectureID string, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pairKey{learnerID, courseID}
	prog, ok := repo.db.progress[key]
	if !ok {
		prog = &course.Progress{LearnerID: learnerID, CourseID: courseID}
		repo.db.progress[key] = prog
	}
	if prog.Has(lectureID) {
		return false, nil
	}
	prog.LectureCompleted = append(prog.LectureCompleted, lectureID)
	prog.UpdatedAt = at
	return true, nil
}

func (repo *courseRepository) GetProgress(_ context.Context, learnerID, courseID string) (course.Progress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	prog, ok := repo.db.progress[pairKey{learnerID, courseID}]
	if !ok {
		return course.Progress{LearnerID: learnerID, CourseID: courseID, LectureCompleted: []string{}}, nil
	}
	p := *prog
	p.LectureCompleted = append([]string{}, prog.LectureCompleted...)
	return p, nil
}

// Quizzes

func copyQuiz(q course.Quiz) course.Quiz {
	questions := make([]course.Question, 0, len(q.Questions))
	for _, question := range q.Questions {
		question.Options = append([]string{}, question.Options...)
		questions = append(questions, question)
	}
	q.Questions = questions
	return q
}

func (repo *courseRepository) SaveQuiz(_ context.Context, quiz course.Quiz) (course.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if old, ok := repo.db.quizzes[quiz.CourseID]; ok {
		quiz.ID = old.ID
		quiz.CreatedAt = old.CreatedAt
	}
	quiz = copyQuiz(quiz)
	repo.db.quizzes[quiz.CourseID] = &quiz
	return copyQuiz(quiz), nil
}

func (repo *courseRepository) GetQuiz(_ context.Context, courseID string) (course.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if quiz, ok := repo.db.quizzes[courseID]; ok {
		return copyQuiz(*quiz), nil
	}
	return course.Quiz{}, course.NotFound("quiz")
}

// Quiz results

func copyResult(res course.QuizResult) course.QuizResult {
	res.Answers = append([]course.Answer{}, res.Answers...)
	return res
}

func (repo *courseRepository) UpsertQuizResult(_ context.Context, res course.QuizResult) (course.QuizResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pairKey{res.LearnerID, res.CourseID}
	if old, ok := repo.db.quizResults[key]; ok {
		res.ID = old.ID
	}
	res.Validated = false
	res.ValidatedAt = null.Time{}
	res = copyResult(res)
	repo.db.quizResults[key] = &res
	return copyResult(res), nil
}

func (repo *courseRepository) GetQuizResult(_ context.Context, learnerID, courseID string) (course.QuizResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if res, ok := repo.db.quizResults[pairKey{learnerID, courseID}]; ok {
		return copyResult(*res), nil
	}
	return course.QuizResult{}, course.NotFound("quiz result")
}

func (repo *courseRepository) findResult(id string) (*course.QuizResult, bool) {
	for _, res := range repo.db.quizResults {
		if res.ID == id {
			return res, true
		}
	}
	return nil, false
}

func (repo *courseRepository) GetQuizResultByID(_ context.Context, id string) (course.QuizResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if res, ok := repo.findResult(id); ok {
		return copyResult(*res), nil
	}
	return course.QuizResult{}, course.NotFound("quiz result")
}

func (repo *courseRepository) QueryQuizResults(_ context.Context, filter course.QuizResultFilter) ([]course.QuizResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	results := make([]course.QuizResult, 0)
	for _, res := range repo.db.quizResults {
		if filter.CourseIDs != nil && !inStrings(res.CourseID, filter.CourseIDs) {
			continue
		}
		if filter.PassedOnly && !res.Passed() {
			continue
		}
		if filter.Validated != nil && res.Validated != *filter.Validated {
			continue
		}
		results = append(results, copyResult(*res))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].SubmittedAt.Equal(results[j].SubmittedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].SubmittedAt.Before(results[j].SubmittedAt)
	})
	return results, nil
}

func (repo *courseRepository) ValidateQuizResult(_ context.Context, id string, at time.Time) (course.QuizResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	res, ok := repo.findResult(id)
	if !ok || !res.Passed() {
		return course.QuizResult{}, course.NotFound("passed quiz result")
	}
	if !res.Validated {
		res.Validated = true
		res.ValidatedAt = null.TimeFrom(at)
	}
	return copyResult(*res), nil
}

// Projects

func (repo *courseRepository) CreateProject(_ context.Context, proj course.Project) (course.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pairKey{proj.LearnerID, proj.CourseID}
	if _, ok := repo.db.projects[key]; ok {
		return course.Project{}, course.Conflict("a project was already submitted for this course")
	}
	repo.db.projects[key] = &proj
	return proj, nil
}

func (repo *courseRepository) GetProject(_ context.Context, learnerID, courseID string) (course.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if proj, ok := repo.db.projects[pairKey{learnerID, courseID}]; ok {
		return *proj, nil
	}
	return course.Project{}, course.NotFound("project")
}

func (repo *courseRepository) findProject(id string) (pairKey, *course.Project, bool) {
	for key, proj := range repo.db.projects {
		if proj.ID == id {
			return key, proj, true
		}
	}
	return pairKey{}, nil, false
}

func (repo *courseRepository) GetProjectByID(_ context.Context, id string) (course.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, proj, ok := repo.findProject(id); ok {
		return *proj, nil
	}
	return course.Project{}, course.NotFound("project")
}

func (repo *courseRepository) QueryProjects(_ context.Context, filter course.ProjectFilter) ([]course.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	projects := make([]course.Project, 0)
	for _, proj := range repo.db.projects {
		if filter.LearnerID != "" && proj.LearnerID != filter.LearnerID {
			continue
		}
		if filter.CourseIDs != nil && !inStrings(proj.CourseID, filter.CourseIDs) {
			continue
		}
		if filter.Validated != nil && proj.Validated != *filter.Validated {
			continue
		}
		projects = append(projects, *proj)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].SubmittedAt.Equal(projects[j].SubmittedAt) {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].SubmittedAt.Before(projects[j].SubmittedAt)
	})
	return projects, nil
}

func (repo *courseRepository) ValidateProject(_ context.Context, id string, at time.Time) (course.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	_, proj, ok := repo.findProject(id)
	if !ok {
		return course.Project{}, course.NotFound("project")
	}
	if !proj.Validated {
		proj.Validated = true
		proj.ValidatedAt = null.TimeFrom(at)
	}
	return *proj, nil
}

func (repo *courseRepository) DeleteProject(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key, _, ok := repo.findProject(id)
	if !ok {
		return course.NotFound("project")
	}
	delete(repo.db.projects, key)
	return nil
}

// Certificates

func (repo *courseRepository) CreateCertificateIfAbsent(_ context.Context, cert course.Certificate) (course.Certificate, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.certificates[cert.ID]; ok {
		return *existing, false, nil
	}
	repo.db.certificates[cert.ID] = &cert
	return cert, true, nil
}

func (repo *courseRepository) GetCertificate(_ context.Context, id string) (course.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cert, ok := repo.db.certificates[id]; ok {
		return *cert, nil
	}
	return course.Certificate{}, course.NotFound("certificate")
}

// Ratings

func (repo *courseRepository) UpsertRating(_ context.Context, rating course.Rating) (course.Rating, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.ratings[pairKey{rating.LearnerID, rating.CourseID}] = &rating
	return rating, nil
}

func (repo *courseRepository) QueryRatings(_ context.Context, courseIDs ...string) ([]course.Rating, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ratings := make([]course.Rating, 0)
	for _, rating := range repo.db.ratings {
		if inStrings(rating.CourseID, courseIDs) {
			ratings = append(ratings, *rating)
		}
	}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].LearnerID < ratings[j].LearnerID })
	return ratings, nil
}
