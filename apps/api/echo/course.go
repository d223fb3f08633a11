package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
)

type courseApi struct {
	auth     *auth
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, a *auth, svc *course.Service, validate *validator.Validate) {
	api := courseApi{auth: a, svc: svc, validate: validate}
	learner := a.learnerMiddleware()
	edu := a.educatorMiddleware()

	// catalog
	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("", api.create, jwt, edu)

	// learner endpoints; a "/:id" group would shadow GET /:id
	cg.POST("/:id/enroll", api.enroll, jwt, learner)
	cg.POST("/:id/lectures/:lecture/complete", api.completeLecture, jwt, learner)
	cg.GET("/:id/progress", api.progress, jwt, learner)
	cg.GET("/:id/eligibility", api.eligibility, jwt, learner)
	cg.POST("/:id/rating", api.rate, jwt, learner)

	cg.GET("/:id/quiz", api.quiz, jwt, learner)
	cg.PUT("/:id/quiz", api.saveQuiz, jwt, edu)
	cg.POST("/:id/quiz/submit", api.submitQuiz, jwt, learner)
	cg.GET("/:id/quiz/result", api.quizResult, jwt, learner)
	cg.POST("/:id/project", api.submitProject, jwt, learner)
	cg.POST("/:id/certificate", api.issueCertificate, jwt, learner)

	mg := g.Group("/me", jwt, learner)
	mg.GET("/courses", api.enrolled)
	mg.GET("/projects", api.projects)
}

// Catalog

func (api *courseApi) query(ctx echo.Context) error {
	var filter course.CourseFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.CourseSummary{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) create(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), edu, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

// Learner

func (api *courseApi) enroll(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), learnerID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) enrolled(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.EnrolledCourses(ctx.Request().Context(), learnerID)
	if err != nil {
		return errors.Wrap(err, "listing enrolled courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) completeLecture(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	prog, err := api.svc.RecordLectureCompletion(ctx.Request().Context(), learnerID, ctx.Param("id"), ctx.Param("lecture"))
	if err != nil {
		return errors.Wrap(err, "recording lecture completion")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *courseApi) progress(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	prog, err := api.svc.GetProgress(ctx.Request().Context(), learnerID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *courseApi) eligibility(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	elig, err := api.svc.GetEligibilityState(ctx.Request().Context(), learnerID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting eligibility")
	}
	return ctx.JSON(http.StatusOK, elig)
}

func (api *courseApi) rate(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data course.NewRating
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRating")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	rating, err := api.svc.RateCourse(ctx.Request().Context(), learnerID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "rating course")
	}
	return ctx.JSON(http.StatusOK, rating)
}
