package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core/session"
)

const objectContextKey = "object"

// roleMiddleware only lets through the users holding one of roles.
func roleMiddleware(roles ...session.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			role := claims.Identity().Role
			for _, r := range roles {
				if r == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

var (
	teacherOnly = roleMiddleware(session.RoleTeacher)
	studentOnly = roleMiddleware(session.RoleStudent)
)
