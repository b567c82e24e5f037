package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/assignment"
)

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, core.ErrMissingCredential.Error())

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := mapError(err)

		if code == http.StatusInternalServerError {
			msg := http.StatusText(code)
			logger.Error(msg, "method", ctx.Request().Method, "path", ctx.Path(), "error", errors.Wrap(err, msg))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func mapError(err error) (int, interface{}) {
	var (
		httpErr *echo.HTTPError
		vErrs   validator.ValidationErrors
		valErr  *core.ValidationError
	)
	switch {
	case errors.As(err, &httpErr):
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		return httpErr.Code, httpErr.Message
	case errors.As(err, &vErrs):
		fldErrs := make(map[string]string, len(vErrs))
		for _, vErr := range vErrs {
			fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
		}
		return http.StatusBadRequest, fldErrs
	case errors.As(err, &valErr):
		if valErr.Fields != nil {
			fldErrs := make(map[string]string, len(valErr.Fields))
			for _, fErr := range valErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, valErr.Error()
	case errors.Is(err, core.ErrMissingCredential):
		return http.StatusUnauthorized, core.ErrMissingCredential.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, core.ErrScoringInProgress):
		return http.StatusConflict, core.ErrScoringInProgress.Error()
	case errors.Is(err, core.ErrOracleUnavailable):
		return http.StatusServiceUnavailable, core.ErrOracleUnavailable.Error()
	case errors.Is(err, assignment.ErrNotConfigured):
		return http.StatusNotImplemented, err.Error()
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}
