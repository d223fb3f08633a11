package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_courseApi_catalog(t *testing.T) {
	srv, env := setup(t)

	edu := testutil.CreateEducator(t, env.UserRepo, "prof")
	goCourse := testutil.CreateCourse(t, env.CourseRepo, edu.ID, "Go 101", 2, true)
	testutil.CreateCourse(t, env.CourseRepo, edu.ID, "Rust 101", 1, true)

	t.Run("query", func(t *testing.T) {
		var courses []course.CourseSummary
		do(t, srv, http.MethodGet, "/v1/courses", "", nil, http.StatusOK, &courses)
		assert.Len(t, courses, 2)

		do(t, srv, http.MethodGet, "/v1/courses?search=GO&ordering=-title", "", nil, http.StatusOK, &courses)
		require.Len(t, courses, 1)
		assert.Equal(t, goCourse.ID, courses[0].ID)
	})

	t.Run("retrieve", func(t *testing.T) {
		var c course.CourseSummary
		do(t, srv, http.MethodGet, "/v1/courses/"+goCourse.ID, "", nil, http.StatusOK, &c)
		assert.Equal(t, goCourse.Title, c.Title)
		require.Len(t, c.Lectures, 2)
		assert.Empty(t, c.Lectures[0].URL)
	})

	runHTTPTests(t, srv, []httpTest{
		{
			name: "retrieve unknown", method: http.MethodGet, path: "/v1/courses/unknown",
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"}),
		},
	})
}

func Test_courseApi_create(t *testing.T) {
	srv, env := setup(t)

	edu := testutil.CreateEducator(t, env.UserRepo, "prof")
	learner := testutil.CreateLearner(t, env.UserRepo, "learner")
	valid := course.NewCourse{
		Title:    "  Go 101 ",
		Price:    20,
		Lectures: []course.Lecture{{Title: "Intro", Duration: 5, URL: "https://videos.test.cd/intro"}},
	}

	runHTTPTests(t, srv, []httpTest{
		{
			name: "no token", method: http.MethodPost, path: "/v1/courses", body: marshalObj(t, valid),
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "learner", method: http.MethodPost, path: "/v1/courses", body: marshalObj(t, valid),
			token: getToken(t, srv, learner), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "educator role required"}),
		},
		{
			name: "blank title", method: http.MethodPost, path: "/v1/courses",
			body: marshalObj(t, course.NewCourse{Title: "   "}), token: getToken(t, srv, edu),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid lecture", method: http.MethodPost, path: "/v1/courses",
			body:  marshalObj(t, course.NewCourse{Title: "Go", Lectures: []course.Lecture{{Title: "x", URL: "not a url"}}}),
			token: getToken(t, srv, edu), wantCode: http.StatusBadRequest,
		},
	})

	var c course.Course
	do(t, srv, http.MethodPost, "/v1/courses", getToken(t, srv, edu), valid, http.StatusCreated, &c)
	assert.Equal(t, "Go 101", c.Title)
	assert.Equal(t, edu.ID, c.EducatorID)
	assert.True(t, c.IsPublished)
	require.Len(t, c.Lectures, 1)
	assert.NotEmpty(t, c.Lectures[0].ID)

	var mine []course.CourseSummary
	do(t, srv, http.MethodGet, "/v1/educator/courses", getToken(t, srv, edu), nil, http.StatusOK, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, c.ID, mine[0].ID)
}

func Test_courseApi_learner(t *testing.T) {
	srv, env := setup(t)

	eduUsr := testutil.CreateEducator(t, env.UserRepo, "prof")
	c := testutil.CreateCourse(t, env.CourseRepo, eduUsr.ID, "Go 101", 2, true)
	learner := testutil.CreateLearner(t, env.UserRepo, "learner")
	outsider := testutil.CreateLearner(t, env.UserRepo, "outsider")
	token := getToken(t, srv, learner)

	do(t, srv, http.MethodPost, "/v1/courses/"+c.ID+"/enroll", token, nil, http.StatusCreated, nil)

	coursePath := "/v1/courses/" + c.ID
	runHTTPTests(t, srv, []httpTest{
		{
			name: "enroll twice", method: http.MethodPost, path: coursePath + "/enroll", token: token,
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "already enrolled in this course"}),
		},
		{
			name: "enroll in unknown course", method: http.MethodPost, path: "/v1/courses/unknown/enroll", token: token,
			wantCode: http.StatusNotFound,
		},
		{
			name: "educator cannot enroll", method: http.MethodPost, path: coursePath + "/enroll",
			token: getToken(t, srv, eduUsr), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "progress of a non enrolled learner", method: http.MethodGet, path: coursePath + "/progress",
			token: getToken(t, srv, outsider), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "not enrolled in this course"}),
		},
		{
			name: "unknown lecture", method: http.MethodPost, path: coursePath + "/lectures/lec-404/complete", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "lecture not found"}),
		},
		{
			name: "quiz is locked", method: http.MethodGet, path: coursePath + "/quiz", token: token,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "complete all lectures to unlock the quiz (0/2)"}),
		},
		{
			name: "rating out of range", method: http.MethodPost, path: coursePath + "/rating", token: token,
			body: marshalObj(t, course.NewRating{Rating: 6}), wantCode: http.StatusBadRequest,
		},
		{
			name: "project without link nor file", method: http.MethodPost, path: coursePath + "/project", token: token,
			body: marshalObj(t, course.NewProject{}), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "provide either a link or a file"}),
		},
	})

	var prog course.Progress
	for i := 0; i < 2; i++ {
		do(t, srv, http.MethodPost, coursePath+"/lectures/lec-1/complete", token, nil, http.StatusOK, &prog)
	}
	assert.Equal(t, []string{"lec-1"}, prog.LectureCompleted)
	assert.Equal(t, 1, prog.CompletedLectures)
	assert.Equal(t, 2, prog.TotalLectures)

	var elig course.Eligibility
	do(t, srv, http.MethodGet, coursePath+"/eligibility", token, nil, http.StatusOK, &elig)
	assert.Equal(t, course.StateInProgress, elig.State)
	assert.Equal(t, "continue watching", elig.NextAction)
	assert.Nil(t, elig.QuizScore)

	var rating course.Rating
	do(t, srv, http.MethodPost, coursePath+"/rating", token, course.NewRating{Rating: 5}, http.StatusOK, &rating)
	assert.Equal(t, 5, rating.Rating)

	var enrolled []course.EnrolledCourse
	do(t, srv, http.MethodGet, "/v1/me/courses", token, nil, http.StatusOK, &enrolled)
	require.Len(t, enrolled, 1)
	assert.Equal(t, c.ID, enrolled[0].Course.ID)
	assert.Equal(t, course.StateInProgress, enrolled[0].State)

	// the public route stays public
	var summary course.CourseSummary
	do(t, srv, http.MethodGet, coursePath, "", nil, http.StatusOK, &summary)
	assert.Equal(t, 5.0, summary.AverageRating)

	t.Run("admin without learner role", func(t *testing.T) {
		admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "", "", []string{user.RoleAdmin}, true)
		do(t, srv, http.MethodGet, "/v1/me/courses", getToken(t, srv, admin), nil, http.StatusForbidden, nil)
	})
}
