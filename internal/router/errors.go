package router

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/omamori-api/internal/apperr"
	"github.com/iliyamo/omamori-api/internal/response"
)

const msgRouteNotFound = "Route not found"

// HandleError is the Echo HTTPErrorHandler and the single place where a
// failure becomes a response.  Internal failures are always logged.
func (d *Dispatcher) HandleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	e, ok := apperr.As(err)
	if !ok {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			d.writeHTTPError(c, he)
			return
		}
		e = apperr.Internal(err)
	}
	status, body := d.failure(e)
	if e.Kind == apperr.KindInternal {
		d.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
		}).Error("unhandled failure")
	}
	d.write(c, status, e.Message, body)
}

func (d *Dispatcher) failure(e *apperr.Error) (int, any) {
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity, e.Fields
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized, nil
	case apperr.KindNotFound:
		return http.StatusNotFound, nil
	}
	if d.debug && e.Err != nil {
		return http.StatusInternalServerError, map[string]string{"details": e.Err.Error()}
	}
	return http.StatusInternalServerError, nil
}

// writeHTTPError handles errors raised by Echo itself.  A path that exists
// under another method is reported as a plain route miss.
func (d *Dispatcher) writeHTTPError(c echo.Context, he *echo.HTTPError) {
	switch he.Code {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		d.write(c, http.StatusNotFound, msgRouteNotFound, nil)
		return
	}
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	if he.Code >= http.StatusInternalServerError {
		d.log.WithError(he).Error("unhandled failure")
	}
	d.write(c, he.Code, msg, nil)
}

func (d *Dispatcher) write(c echo.Context, status int, msg string, errs any) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = response.Failure(c, status, msg, errs)
	}
	if err != nil {
		d.log.WithError(err).Warn("write error response")
	}
}
