package inmemdb

import (
	"sync"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

// pairKey identifies a (learner, course) record.
type pairKey struct {
	learnerID string
	courseID  string
}

// DB keeps every table behind one mutex: each repository method runs atomically.
type DB struct {
	mutex sync.RWMutex

	users        map[string]*user.User
	courses      map[string]*course.Course
	enrollments  map[pairKey]*course.Enrollment
	progress     map[pairKey]*course.Progress
	quizzes      map[string]*course.Quiz // by course ID
	quizResults  map[pairKey]*course.QuizResult
	projects     map[pairKey]*course.Project
	certificates map[string]*course.Certificate
	ratings      map[pairKey]*course.Rating
}

func Open() *DB {
	return &DB{
		users:        make(map[string]*user.User),
		courses:      make(map[string]*course.Course),
		enrollments:  make(map[pairKey]*course.Enrollment),
		progress:     make(map[pairKey]*course.Progress),
		quizzes:      make(map[string]*course.Quiz),
		quizResults:  make(map[pairKey]*course.QuizResult),
		projects:     make(map[pairKey]*course.Project),
		certificates: make(map[string]*course.Certificate),
		ratings:      make(map[pairKey]*course.Rating),
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	fresh := Open()
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.users = fresh.users
	db.courses = fresh.courses
	db.enrollments = fresh.enrollments
	db.progress = fresh.progress
	db.quizzes = fresh.quizzes
	db.quizResults = fresh.quizResults
	db.projects = fresh.projects
	db.certificates = fresh.certificates
	db.ratings = fresh.ratings
}
