package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

type errorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func statusForKind(kind core.Kind) int {
	switch kind {
	case core.KindValidation, core.KindOutOfRange:
		return http.StatusBadRequest
	case core.KindAuth, core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict, core.KindInvalidTransition, core.KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// resolveError maps err to a status code and a response body. Unexpected errors are server errors.
func resolveError(err error) (int, errorResponse, bool) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, errorResponse{Message: fmt.Sprint(origErr.Message)}, false
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		return origErr.Code, errorResponse{Message: fmt.Sprint(origErr.Message)}, false
	case *core.Error:
		if code := statusForKind(origErr.Kind); code != http.StatusInternalServerError {
			res := errorResponse{Message: origErr.Error()}
			if len(origErr.Fields) > 0 {
				res.Fields = origErr.FieldMap()
			}
			return code, res, false
		}
	}
	return http.StatusInternalServerError, errorResponse{Message: http.StatusText(http.StatusInternalServerError)}, true
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, res, internal := resolveError(err)
		if internal {
			var person core.Person
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				person = claims.Identity().Person()
			}
			logger.Error(res.Message, errors.Wrap(err, res.Message), person)
			if ctx.Echo().Debug {
				res.Message = err.Error()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
