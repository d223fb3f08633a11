package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
)

type educatorApi struct {
	svc *course.Service
}

func registerEducatorAPI(g *echo.Group, jwt echo.MiddlewareFunc, a *auth, svc *course.Service) {
	api := educatorApi{svc: svc}

	eg := g.Group("/educator", jwt, a.educatorMiddleware())
	eg.GET("/courses", api.courses)
	eg.GET("/courses/:id/quiz", api.quiz)
	eg.GET("/learners", api.learners)

	eg.GET("/quiz-results/pending", api.pendingQuizResults)
	eg.POST("/quiz-results/:id/validate", api.validateQuiz)

	eg.GET("/projects/pending", api.pendingProjects)
	eg.POST("/projects/:id/validate", api.validateProject)
	eg.DELETE("/projects/:id", api.deleteProject)
}

func (api *educatorApi) courses(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.EducatorCourses(ctx.Request().Context(), edu, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing educator courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *educatorApi) quiz(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	quiz, err := api.svc.GetEducatorQuiz(ctx.Request().Context(), edu, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, quiz)
}

func (api *educatorApi) learners(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	learners, err := api.svc.EnrolledLearners(ctx.Request().Context(), edu)
	if err != nil {
		return errors.Wrap(err, "listing enrolled learners")
	}
	return ctx.JSON(http.StatusOK, learners)
}

func (api *educatorApi) pendingQuizResults(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	results, err := api.svc.PendingQuizValidations(ctx.Request().Context(), edu)
	if err != nil {
		return errors.Wrap(err, "listing pending quiz validations")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *educatorApi) validateQuiz(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.ValidateQuiz(ctx.Request().Context(), edu, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "validating quiz")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *educatorApi) pendingProjects(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	projects, err := api.svc.PendingProjects(ctx.Request().Context(), edu)
	if err != nil {
		return errors.Wrap(err, "listing pending projects")
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *educatorApi) validateProject(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	proj, err := api.svc.ValidateProject(ctx.Request().Context(), edu, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "validating project")
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *educatorApi) deleteProject(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteProject(ctx.Request().Context(), edu, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return ctx.NoContent(http.StatusNoContent)
}
