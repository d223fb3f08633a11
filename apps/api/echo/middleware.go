package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/elimu/core/course"
)

// learnerMiddleware only lets active learners through.
func (a *auth) learnerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := a.contextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.IsLearner() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// educatorMiddleware hands the course.Educator capability to the next handlers.
func (a *auth) educatorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := a.contextUser(ctx)
			if err != nil {
				return err
			}
			edu, err := course.NewEducator(usr)
			if err != nil {
				return err
			}
			ctx.Set(contextEducatorKey, edu)
			return next(ctx)
		}
	}
}

func contextEducator(ctx echo.Context) (course.Educator, error) {
	if edu, ok := ctx.Get(contextEducatorKey).(course.Educator); ok {
		return edu, nil
	}
	return course.Educator{}, errHttpForbidden
}

func contextUserID(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
