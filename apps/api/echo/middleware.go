package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/kyleyee20/aevum/core/assignment"
)

// sessionMiddleware refuses reads while the student is signed out. Mutations check the stored
// credential themselves.
func sessionMiddleware(engine *assignment.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !engine.Authenticated() {
				return errUnauthorized
			}
			return next(ctx)
		}
	}
}
