package course_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

type fixture struct {
	env      *testutil.Env
	educator course.Educator
	learner  user.User
	course   course.Course
}

func newFixture(t *testing.T, lectures int, requireQuizValidation bool) fixture {
	env := testutil.NewEnv(t)
	eduUsr := testutil.CreateEducator(t, env.UserRepo, "prof")
	edu, err := course.NewEducator(eduUsr)
	require.NoError(t, err)

	c := testutil.CreateCourse(t, env.CourseRepo, eduUsr.ID, "Go 101", lectures, requireQuizValidation)
	testutil.CreateQuiz(t, env.CourseRepo, c.ID, 2)
	return fixture{
		env:      env,
		educator: edu,
		learner:  testutil.CreateLearner(t, env.UserRepo, "learner"),
		course:   c,
	}
}

func (f fixture) enroll(t *testing.T) {
	_, err := f.env.CourseSvc.Enroll(context.Background(), f.learner.ID, f.course.ID)
	require.NoError(t, err)
}

func (f fixture) completeLectures(t *testing.T) {
	for _, lec := range f.course.Lectures {
		_, err := f.env.CourseSvc.RecordLectureCompletion(context.Background(), f.learner.ID, f.course.ID, lec.ID)
		require.NoError(t, err)
	}
}

func (f fixture) passQuiz(t *testing.T) course.QuizResult {
	outcome, err := f.env.CourseSvc.SubmitQuiz(context.Background(), f.learner.ID, f.course.ID, testutil.Answers(2, 2))
	require.NoError(t, err)
	require.True(t, outcome.Passed)
	return outcome.Result
}

func (f fixture) state(t *testing.T) course.State {
	elig, err := f.env.CourseSvc.GetEligibilityState(context.Background(), f.learner.ID, f.course.ID)
	require.NoError(t, err)
	return elig.State
}

// certify walks the enrolled learner up to StateCertified.
func (f fixture) certify(t *testing.T) {
	ctx := context.Background()
	svc := f.env.CourseSvc

	f.completeLectures(t)
	res := f.passQuiz(t)
	_, err := svc.ValidateQuiz(ctx, f.educator, res.ID)
	require.NoError(t, err)
	proj, err := svc.SubmitProject(ctx, f.learner.ID, f.course.ID, course.NewProject{Link: "https://git.test.cd/project"})
	require.NoError(t, err)
	_, err = svc.ValidateProject(ctx, f.educator, proj.ID)
	require.NoError(t, err)
	require.Equal(t, course.StateCertified, f.state(t))
}

func assertKind(t *testing.T, err error, kind course.Kind) {
	t.Helper()
	require.Error(t, err)
	cErr, ok := errors.Cause(err).(*course.Error)
	require.Truef(t, ok, "not a course error: %v", err)
	assert.Equal(t, kind, cErr.Kind)
}

func TestService_Enroll(t *testing.T) {
	f := newFixture(t, 2, true)
	ctx := context.Background()

	draft := course.NewCourse{Title: "Draft", Lectures: []course.Lecture{{Title: "intro"}}}
	unpublished := false
	draft.IsPublished = &unpublished
	draftCourse, err := f.env.CourseSvc.CreateCourse(ctx, f.educator, draft)
	require.NoError(t, err)

	enr, err := f.env.CourseSvc.Enroll(ctx, f.learner.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, f.learner.ID, enr.LearnerID)
	assert.Equal(t, f.course.ID, enr.CourseID)
	assert.Equal(t, 50.0, enr.Amount)

	tests := []struct {
		name     string
		courseID string
		wantKind course.Kind
	}{
		{name: "already enrolled", courseID: f.course.ID, wantKind: course.KindConflict},
		{name: "unknown course", courseID: "unknown", wantKind: course.KindNotFound},
		{name: "unpublished course", courseID: draftCourse.ID, wantKind: course.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.CourseSvc.Enroll(ctx, f.learner.ID, tt.courseID)
			assertKind(t, err, tt.wantKind)
		})
	}

	enrolled, err := f.env.CourseSvc.EnrolledCourses(ctx, f.learner.ID)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, course.StateInProgress, enrolled[0].State)
	assert.Equal(t, 2, enrolled[0].Progress.TotalLectures)
}

func TestService_RecordLectureCompletion(t *testing.T) {
	f := newFixture(t, 2, true)
	ctx := context.Background()
	svc := f.env.CourseSvc

	_, err := svc.RecordLectureCompletion(ctx, f.learner.ID, f.course.ID, "lec-1")
	assertKind(t, err, course.KindForbidden)

	f.enroll(t)
	_, err = svc.RecordLectureCompletion(ctx, f.learner.ID, f.course.ID, "lec-404")
	assertKind(t, err, course.KindNotFound)

	for i := 0; i < 2; i++ {
		prog, err := svc.RecordLectureCompletion(ctx, f.learner.ID, f.course.ID, "lec-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"lec-1"}, prog.LectureCompleted)
		assert.Equal(t, 1, prog.CompletedLectures)
		assert.Equal(t, 2, prog.TotalLectures)
	}
	assert.Equal(t, []course.EventKind{course.EventLectureCompleted}, f.env.Events.Kinds())
	assert.Equal(t, course.StateInProgress, f.state(t))

	_, err = svc.RecordLectureCompletion(ctx, f.learner.ID, f.course.ID, "lec-2")
	require.NoError(t, err)
	assert.Equal(t, course.StateLecturesDone, f.state(t))

	evts := f.env.Events.Events()
	require.Len(t, evts, 2)
	assert.Equal(t, course.StateLecturesDone, evts[1].State)
	assert.Equal(t, "lec-2", evts[1].RecordID)
}

func TestService_Quiz(t *testing.T) {
	f := newFixture(t, 1, true)
	ctx := context.Background()
	svc := f.env.CourseSvc
	f.enroll(t)

	_, err := svc.GetQuiz(ctx, f.learner.ID, f.course.ID)
	assertKind(t, err, course.KindForbidden)
	_, err = svc.SubmitQuiz(ctx, f.learner.ID, f.course.ID, testutil.Answers(2, 2))
	assertKind(t, err, course.KindForbidden)

	f.completeLectures(t)
	view, err := svc.GetQuiz(ctx, f.learner.ID, f.course.ID)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 2)

	tests := []struct {
		name        string
		answers     []course.Answer
		wantScore   int
		wantPassed  bool
		wantState   course.State
		wantErrKind course.Kind
	}{
		{name: "missing answer", answers: testutil.Answers(1, 1), wantErrKind: course.KindInvalidSubmission},
		{name: "half right", answers: testutil.Answers(2, 1), wantScore: 50, wantState: course.StateLecturesDone},
		{name: "all wrong", answers: testutil.Answers(2, 0), wantScore: 0, wantState: course.StateLecturesDone},
		{
			name: "all right", answers: testutil.Answers(2, 2),
			wantScore: 100, wantPassed: true, wantState: course.StateQuizPendingValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := svc.SubmitQuiz(ctx, f.learner.ID, f.course.ID, tt.answers)
			if tt.wantErrKind != "" {
				assertKind(t, err, tt.wantErrKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, outcome.Score)
			assert.Equal(t, tt.wantPassed, outcome.Passed)
			assert.Equal(t, tt.wantPassed, outcome.Result.CompletedAt.Valid)
			assert.Equal(t, tt.wantState, f.state(t))
		})
	}

	res, err := svc.GetQuizResult(ctx, f.learner.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.False(t, res.Validated)
}

func TestService_ValidateQuiz(t *testing.T) {
	f := newFixture(t, 1, true)
	ctx := context.Background()
	svc := f.env.CourseSvc
	f.enroll(t)
	f.completeLectures(t)

	outcome, err := svc.SubmitQuiz(ctx, f.learner.ID, f.course.ID, testutil.Answers(2, 1))
	require.NoError(t, err)
	_, err = svc.ValidateQuiz(ctx, f.educator, outcome.Result.ID)
	assertKind(t, err, course.KindInvalidState)

	res := f.passQuiz(t)
	assert.Equal(t, outcome.Result.ID, res.ID)

	otherUsr := testutil.CreateEducator(t, f.env.UserRepo, "other")
	other, err := course.NewEducator(otherUsr)
	require.NoError(t, err)
	_, err = svc.ValidateQuiz(ctx, other, res.ID)
	assertKind(t, err, course.KindForbidden)

	_, err = svc.ValidateQuiz(ctx, f.educator, "unknown")
	assertKind(t, err, course.KindNotFound)

	pending, err := svc.PendingQuizValidations(ctx, f.educator)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.ID, pending[0].ID)

	validated, err := svc.ValidateQuiz(ctx, f.educator, res.ID)
	require.NoError(t, err)
	assert.True(t, validated.Validated)
	assert.True(t, validated.ValidatedAt.Valid)
	assert.Equal(t, course.StateProjectRequired, f.state(t))

	again, err := svc.ValidateQuiz(ctx, f.educator, res.ID)
	require.NoError(t, err)
	assert.Equal(t, validated.ValidatedAt, again.ValidatedAt)

	msgs := f.env.Mail.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "quiz_validated", msgs[0].TemplateName)

	pending, err = svc.PendingQuizValidations(ctx, f.educator)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// re-submitting resets the validation
	f.passQuiz(t)
	assert.Equal(t, course.StateQuizPendingValidation, f.state(t))
}

func TestService_SubmitProject(t *testing.T) {
	link := course.NewProject{Link: "https://git.test.cd/project"}

	t.Run("quiz validation required", func(t *testing.T) {
		f := newFixture(t, 1, true)
		ctx := context.Background()
		svc := f.env.CourseSvc
		f.enroll(t)

		_, err := svc.SubmitProject(ctx, f.learner.ID, f.course.ID, link)
		assertKind(t, err, course.KindForbidden)

		f.completeLectures(t)
		res := f.passQuiz(t)
		_, err = svc.SubmitProject(ctx, f.learner.ID, f.course.ID, link)
		assertKind(t, err, course.KindForbidden)

		_, err = svc.ValidateQuiz(ctx, f.educator, res.ID)
		require.NoError(t, err)

		for _, np := range []course.NewProject{{}, {Link: link.Link, File: "uploads/project.zip"}} {
			_, err = svc.SubmitProject(ctx, f.learner.ID, f.course.ID, np)
			assertKind(t, err, course.KindInvalidSubmission)
		}

		proj, err := svc.SubmitProject(ctx, f.learner.ID, f.course.ID, link)
		require.NoError(t, err)
		assert.Equal(t, course.SubmissionLink, proj.SubmissionType)
		assert.False(t, proj.Validated)
		assert.Equal(t, course.StateProjectPendingValidation, f.state(t))

		_, err = svc.SubmitProject(ctx, f.learner.ID, f.course.ID, link)
		assertKind(t, err, course.KindConflict)

		pending, err := svc.PendingProjects(ctx, f.educator)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.True(t, pending[0].QuizValidated)

		// deleting lets the learner submit again
		require.NoError(t, svc.DeleteProject(ctx, f.educator, proj.ID))
		assert.Equal(t, course.StateProjectRequired, f.state(t))
		proj, err = svc.SubmitProject(ctx, f.learner.ID, f.course.ID, course.NewProject{File: "uploads/project.zip"})
		require.NoError(t, err)
		assert.Equal(t, course.SubmissionFile, proj.SubmissionType)

		projects, err := svc.LearnerProjects(ctx, f.learner.ID)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, proj.ID, projects[0].ID)
	})

	t.Run("quiz validation not required", func(t *testing.T) {
		f := newFixture(t, 1, false)
		ctx := context.Background()
		svc := f.env.CourseSvc
		f.enroll(t)
		f.completeLectures(t)
		f.passQuiz(t)
		assert.Equal(t, course.StateQuizPendingValidation, f.state(t))

		proj, err := svc.SubmitProject(ctx, f.learner.ID, f.course.ID, link)
		require.NoError(t, err)
		assert.Equal(t, course.StateProjectPendingValidation, f.state(t))

		pending, err := svc.PendingProjects(ctx, f.educator)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.False(t, pending[0].QuizValidated)

		_, err = svc.ValidateProject(ctx, f.educator, proj.ID)
		require.NoError(t, err)
		assert.Equal(t, course.StateCertified, f.state(t))
	})
}

func TestService_IssueCertificate(t *testing.T) {
	f := newFixture(t, 2, true)
	ctx := context.Background()
	svc := f.env.CourseSvc

	f.enroll(t)
	_, err := svc.IssueCertificate(ctx, f.learner.ID, f.course.ID)
	assertKind(t, err, course.KindForbidden)

	f.certify(t)
	f.env.Mail.Reset()
	f.env.Events.Reset()

	cert, err := svc.IssueCertificate(ctx, f.learner.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.CertificateID(f.learner.ID, f.course.ID), cert.ID)
	assert.Equal(t, f.learner.ID+"-"+f.course.ID, cert.Number)
	assert.Equal(t, f.learner.Name, cert.LearnerName)
	assert.Equal(t, f.course.Title, cert.CourseTitle)
	assert.False(t, cert.CompletedAt.IsZero())

	again, err := svc.IssueCertificate(ctx, f.learner.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, cert, again)

	assert.Equal(t, []course.EventKind{course.EventCertificateIssued}, f.env.Events.Kinds())
	msgs := f.env.Mail.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "certificate_issued", msgs[0].TemplateName)
	require.Len(t, msgs[0].Attachments, 1)
	assert.Equal(t, "application/pdf", msgs[0].Attachments[0].ContentType)

	got, err := svc.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.Number, got.Number)

	_, doc, err := svc.CertificatePDF(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(doc[:4]))

	_, err = svc.GetCertificate(ctx, "unknown")
	assertKind(t, err, course.KindNotFound)

	t.Run("quiz re-submitted after certification", func(t *testing.T) {
		f.passQuiz(t)
		require.Equal(t, course.StateQuizPendingValidation, f.state(t))

		again, err := svc.IssueCertificate(ctx, f.learner.ID, f.course.ID)
		require.NoError(t, err)
		assert.Equal(t, cert, again)
	})
}

func TestService_ConcurrentWriters(t *testing.T) {
	const writers = 20

	run := func(fn func() error) []error {
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = fn()
			}(i)
		}
		wg.Wait()
		return errs
	}

	t.Run("SubmitProject", func(t *testing.T) {
		f := newFixture(t, 2, false)
		ctx := context.Background()
		f.enroll(t)
		f.completeLectures(t)
		f.passQuiz(t)

		errs := run(func() error {
			_, err := f.env.CourseSvc.SubmitProject(ctx, f.learner.ID, f.course.ID, course.NewProject{Link: "https://git.test.cd/project"})
			return err
		})

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assertKind(t, err, course.KindConflict)
		}
		assert.Equal(t, 1, ok)

		projects, err := f.env.CourseSvc.LearnerProjects(ctx, f.learner.ID)
		require.NoError(t, err)
		assert.Len(t, projects, 1)
	})

	t.Run("IssueCertificate", func(t *testing.T) {
		f := newFixture(t, 2, true)
		ctx := context.Background()
		f.enroll(t)
		f.certify(t)
		f.env.Mail.Reset()
		f.env.Events.Reset()

		certs := make([]course.Certificate, writers)
		var mu sync.Mutex
		var idx int
		errs := run(func() error {
			cert, err := f.env.CourseSvc.IssueCertificate(ctx, f.learner.ID, f.course.ID)
			mu.Lock()
			certs[idx] = cert
			idx++
			mu.Unlock()
			return err
		})

		for i, err := range errs {
			require.NoError(t, err)
			assert.Equal(t, certs[0], certs[i])
		}
		assert.Equal(t, course.CertificateID(f.learner.ID, f.course.ID), certs[0].ID)
		assert.Equal(t, []course.EventKind{course.EventCertificateIssued}, f.env.Events.Kinds())
		assert.Len(t, f.env.Mail.SentMessages(), 1)
	})
}

func TestService_Catalog(t *testing.T) {
	f := newFixture(t, 2, true)
	ctx := context.Background()
	svc := f.env.CourseSvc

	unpublished := false
	draft, err := svc.CreateCourse(ctx, f.educator, course.NewCourse{Title: "Draft", IsPublished: &unpublished})
	require.NoError(t, err)

	preview := course.Lecture{ID: "preview", Title: "Preview", URL: "https://videos.test.cd/preview", IsPreview: true}
	promo, err := svc.CreateCourse(ctx, f.educator, course.NewCourse{
		Title:    "Promo",
		Price:    80,
		Discount: 25,
		Lectures: []course.Lecture{preview, {Title: "Paid", URL: "https://videos.test.cd/paid"}},
	})
	require.NoError(t, err)
	assert.True(t, promo.RequireQuizValidation)

	_, err = svc.GetCourse(ctx, draft.ID)
	assertKind(t, err, course.KindNotFound)

	summary, err := svc.GetCourse(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, summary.Amount)
	require.Len(t, summary.Lectures, 2)
	assert.Equal(t, preview.URL, summary.Lectures[0].URL)
	assert.Empty(t, summary.Lectures[1].URL)
	assert.NotEmpty(t, summary.Lectures[1].ID)

	_, err = svc.RateCourse(ctx, f.learner.ID, f.course.ID, course.NewRating{Rating: 4})
	assertKind(t, err, course.KindForbidden)
	f.enroll(t)
	_, err = svc.RateCourse(ctx, f.learner.ID, f.course.ID, course.NewRating{Rating: 2})
	require.NoError(t, err)
	_, err = svc.RateCourse(ctx, f.learner.ID, f.course.ID, course.NewRating{Rating: 4})
	require.NoError(t, err)

	courses, err := svc.QueryCourses(ctx, course.CourseFilter{Search: "go"}, nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, f.course.ID, courses[0].ID)
	assert.Equal(t, 4.0, courses[0].AverageRating)
	assert.Equal(t, 1, courses[0].RatingCount)

	courses, err = svc.QueryCourses(ctx, course.CourseFilter{}, nil)
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	mine, err := svc.EducatorCourses(ctx, f.educator, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	learners, err := svc.EnrolledLearners(ctx, f.educator)
	require.NoError(t, err)
	require.Len(t, learners, 1)
	assert.Equal(t, f.learner.Name, learners[0].LearnerName)
	assert.Equal(t, f.course.Title, learners[0].CourseTitle)
}

func TestNewEducator(t *testing.T) {
	tests := []struct {
		name    string
		usr     user.User
		wantErr bool
	}{
		{name: "educator", usr: user.User{ID: "1", IsActive: true, Roles: []string{user.RoleEducator}}},
		{name: "learner", usr: user.User{ID: "2", IsActive: true, Roles: []string{user.RoleLearner}}, wantErr: true},
		{name: "inactive educator", usr: user.User{ID: "3", Roles: []string{user.RoleEducator}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edu, err := course.NewEducator(tt.usr)
			if tt.wantErr {
				assertKind(t, err, course.KindForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.usr.ID, edu.ID())
			assert.True(t, edu.Owns(course.Course{EducatorID: tt.usr.ID}))
		})
	}
}
