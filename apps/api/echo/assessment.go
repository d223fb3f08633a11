package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
)

type SubmitQuizRequest struct {
	Answers []course.Answer `json:"answers" validate:"required"`
}

// Quiz

func (api *courseApi) quiz(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	quiz, err := api.svc.GetQuiz(ctx.Request().Context(), learnerID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, quiz)
}

func (api *courseApi) submitQuiz(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data SubmitQuizRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitQuizRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	outcome, err := api.svc.SubmitQuiz(ctx.Request().Context(), learnerID, ctx.Param("id"), data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusOK, outcome)
}

func (api *courseApi) quizResult(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.GetQuizResult(ctx.Request().Context(), learnerID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) saveQuiz(ctx echo.Context) error {
	edu, err := contextEducator(ctx)
	if err != nil {
		return err
	}
	var data course.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	quiz, err := api.svc.SaveQuiz(ctx.Request().Context(), edu, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "saving quiz")
	}
	return ctx.JSON(http.StatusOK, quiz)
}

// Project

func (api *courseApi) submitProject(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data course.NewProject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	proj, err := api.svc.SubmitProject(ctx.Request().Context(), learnerID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting project")
	}
	return ctx.JSON(http.StatusCreated, proj)
}

func (api *courseApi) projects(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	projects, err := api.svc.LearnerProjects(ctx.Request().Context(), learnerID)
	if err != nil {
		return errors.Wrap(err, "listing projects")
	}
	return ctx.JSON(http.StatusOK, projects)
}

// Certificate

func (api *courseApi) issueCertificate(ctx echo.Context) error {
	learnerID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	cert, err := api.svc.IssueCertificate(ctx.Request().Context(), learnerID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "issuing certificate")
	}
	return ctx.JSON(http.StatusOK, cert)
}
