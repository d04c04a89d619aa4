// Package router owns the route table and the dispatcher that binds it to
// Echo.  Routes name their target either as a direct handler or as a named
// action ("charms.store") resolved against the registered actions when the
// table is mounted, never by runtime lookup.
package router

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/omamori-api/internal/apperr"
	"github.com/iliyamo/omamori-api/internal/middleware"
)

// Route binds method + path to a handler.  When Handler is set it is used
// as is; otherwise Action names a registered action.  Auth routes require a
// bearer token before the handler runs.
type Route struct {
	Method  string
	Path    string
	Action  string
	Handler echo.HandlerFunc
	Auth    bool
}

// Dispatcher resolves routes to handlers and maps failures to responses.
type Dispatcher struct {
	actions map[string]echo.HandlerFunc
	log     logrus.FieldLogger
	debug   bool
}

// NewDispatcher builds a dispatcher.  In debug mode internal failures carry
// their underlying message in the response.
func NewDispatcher(log logrus.FieldLogger, debug bool) *Dispatcher {
	return &Dispatcher{actions: map[string]echo.HandlerFunc{}, log: log, debug: debug}
}

// Register makes h available to routes under name.
func (d *Dispatcher) Register(name string, h echo.HandlerFunc) {
	d.actions[name] = h
}

// Mount adds routes to e.  A route whose action is not registered still
// answers, with an internal error, and is reported in the returned list.
func (d *Dispatcher) Mount(e *echo.Echo, routes []Route) (unresolved []string) {
	auth := middleware.RequireBearer()
	for _, r := range routes {
		h := d.resolve(r)
		if h == nil {
			unresolved = append(unresolved, r.Action)
			d.log.WithFields(logrus.Fields{"method": r.Method, "path": r.Path, "action": r.Action}).
				Error("route action is not registered")
			h = unresolvedHandler(r.Action)
		}
		var mw []echo.MiddlewareFunc
		if r.Auth {
			mw = append(mw, auth)
		}
		e.Add(r.Method, r.Path, h, mw...)
	}
	return unresolved
}

func (d *Dispatcher) resolve(r Route) echo.HandlerFunc {
	if r.Handler != nil {
		return r.Handler
	}
	return d.actions[r.Action]
}

func unresolvedHandler(action string) echo.HandlerFunc {
	err := apperr.Internal(fmt.Errorf("action %q is not registered", action))
	return func(echo.Context) error { return err }
}
