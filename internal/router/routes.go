package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/omamori-api/internal/handler"
)

// Routes is the endpoint table.  metrics serves GET /metrics.
func Routes(metrics http.Handler) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/health", Handler: handler.Health},
		{Method: http.MethodGet, Path: "/metrics", Handler: echo.WrapHandler(metrics)},

		{Method: http.MethodPost, Path: "/accounts", Action: "accounts.store"},
		{Method: http.MethodGet, Path: "/accounts", Action: "accounts.index", Auth: true},
		{Method: http.MethodGet, Path: "/accounts/:id", Action: "accounts.show", Auth: true},
		{Method: http.MethodPost, Path: "/sessions", Action: "sessions.store"},

		{Method: http.MethodGet, Path: "/me", Action: "me.show", Auth: true},
		{Method: http.MethodPatch, Path: "/me", Action: "me.update", Auth: true},
		{Method: http.MethodDelete, Path: "/me", Action: "me.destroy", Auth: true},

		{Method: http.MethodPost, Path: "/charms", Action: "charms.store", Auth: true},
		{Method: http.MethodGet, Path: "/charms", Action: "charms.index", Auth: true},
		{Method: http.MethodGet, Path: "/charms/:id", Action: "charms.show", Auth: true},
		{Method: http.MethodPatch, Path: "/charms/:id", Action: "charms.update", Auth: true},
		{Method: http.MethodDelete, Path: "/charms/:id", Action: "charms.destroy", Auth: true},
		{Method: http.MethodPost, Path: "/charms/:id/duplicate", Action: "charms.duplicate", Auth: true},
		{Method: http.MethodPost, Path: "/charms/:id/publish", Action: "charms.publish", Auth: true},
		{Method: http.MethodPut, Path: "/charms/:id/back-message", Action: "charms.back_message", Auth: true},
	}
}

// RegisterActions registers every named action used by Routes.
func RegisterActions(d *Dispatcher, accounts *handler.AccountHandler, charms *handler.CharmHandler) {
	d.Register("accounts.store", accounts.Register)
	d.Register("accounts.index", accounts.Index)
	d.Register("accounts.show", accounts.Show)
	d.Register("sessions.store", accounts.Login)
	d.Register("me.show", accounts.Me)
	d.Register("me.update", accounts.UpdateMe)
	d.Register("me.destroy", accounts.DeleteMe)

	d.Register("charms.store", charms.Store)
	d.Register("charms.index", charms.Index)
	d.Register("charms.show", charms.Show)
	d.Register("charms.update", charms.Update)
	d.Register("charms.destroy", charms.Destroy)
	d.Register("charms.duplicate", charms.Duplicate)
	d.Register("charms.publish", charms.Publish)
	d.Register("charms.back_message", charms.BackMessage)
}

// NewServer builds the Echo instance: error handler, global middleware (in
// the order given, outermost first) and the mounted routes.
func NewServer(d *Dispatcher, routes []Route, mw ...echo.MiddlewareFunc) (*echo.Echo, []string) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = d.HandleError
	e.Use(mw...)
	unresolved := d.Mount(e, routes)
	return e, unresolved
}
