package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/certpdf"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/services/events"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database/inmem"
)

// Env is the app wired on in-memory storage, with test doubles for mails & events.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	UserRepo   user.Repository
	CourseRepo course.Repository
	UserSvc    *user.Service
	CourseSvc  *course.Service
	Mail       *emailsvc.ServiceMock
	Events     *eventsvc.Recorder
	Validate   *validator.Validate
	Translator ut.Translator
}

func NewEnv(t *testing.T) *Env {
	conf := core.NewTestConfig()
	conf.Certificate.PDFDir = t.TempDir()
	logger := logsvc.NewRollbarLogger(zap.NewNop().Sugar(), conf)

	db := inmemdb.Open()
	env := &Env{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		UserRepo:   inmemdb.NewUserRepository(db),
		CourseRepo: inmemdb.NewCourseRepository(db),
		Mail:       emailsvc.NewServiceMock(conf, logger),
		Events:     eventsvc.NewRecorder(),
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
	}
	core.InitValidators(env.Validate, env.Translator)
	user.InitValidators(env.Validate, env.Translator)

	env.UserSvc = user.NewService(env.UserRepo)
	env.CourseSvc = course.NewService(course.Deps{
		Conf:      conf,
		Logger:    logger,
		Repo:      env.CourseRepo,
		Users:     env.UserSvc,
		MailSvc:   env.Mail,
		Publisher: env.Events,
		Renderer:  certpdf.NewRenderer(conf),
	})
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateLearner(t *testing.T, repo user.Repository, uname string) user.User {
	return CreateUser(t, repo, "Learner "+uname, uname, uname+"@test.cd", "", []string{user.RoleLearner}, true)
}

func CreateEducator(t *testing.T, repo user.Repository, uname string) user.User {
	return CreateUser(t, repo, "Educator "+uname, uname, uname+"@test.cd", "", []string{user.RoleEducator}, true)
}

// CreateCourse stores a published course with lectures "lec-1".."lec-<lectures>".
func CreateCourse(
	t *testing.T,
	repo course.Repository,
	educatorID, title string,
	lectures int,
	requireQuizValidation bool,
) course.Course {
	now := time.Now().UTC()
	c := course.Course{
		ID:                    uuid.New().String(),
		Title:                 title,
		Description:           title + " description",
		EducatorID:            educatorID,
		Price:                 50,
		IsPublished:           true,
		RequireQuizValidation: requireQuizValidation,
		Lectures:              make([]course.Lecture, 0, lectures),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	for i := 1; i <= lectures; i++ {
		c.Lectures = append(c.Lectures, course.Lecture{
			ID:       fmt.Sprintf("lec-%d", i),
			Title:    fmt.Sprintf("Lecture %d", i),
			Duration: 10,
			URL:      fmt.Sprintf("https://videos.test.cd/%s/%d", c.ID, i),
		})
	}
	c, err := repo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return c
}

// CreateQuiz stores a quiz whose correct answers are all the first option.
func CreateQuiz(t *testing.T, repo course.Repository, courseID string, questions int) course.Quiz {
	now := time.Now().UTC()
	quiz := course.Quiz{ID: uuid.New().String(), CourseID: courseID, CreatedAt: now, UpdatedAt: now}
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, course.Question{
			Text:          fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"right", "wrong", "wrong too", "still wrong"},
			CorrectAnswer: 0,
		})
	}
	quiz, err := repo.SaveQuiz(context.Background(), quiz)
	if err != nil {
		t.Fatalf("CreateQuiz(): %v", err)
	}
	return quiz
}

// Answers answers the questions of a CreateQuiz quiz, getting the first `correct` ones right.
func Answers(questions, correct int) []course.Answer {
	answers := make([]course.Answer, 0, questions)
	for i := 0; i < questions; i++ {
		opt := 1
		if i < correct {
			opt = 0
		}
		answers = append(answers, course.Answer{QuestionIndex: i, SelectedOption: opt})
	}
	return answers
}
