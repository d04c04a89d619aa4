package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/omamori-api/internal/account"
	"github.com/iliyamo/omamori-api/internal/middleware"
	"github.com/iliyamo/omamori-api/internal/model"
	"github.com/iliyamo/omamori-api/internal/repository"
	"github.com/iliyamo/omamori-api/internal/response"
)

// AccountService is the account logic as seen by the HTTP layer.
type AccountService interface {
	Register(ctx context.Context, in account.RegisterInput) (*model.Account, error)
	Login(ctx context.Context, in account.LoginInput) (*account.Session, error)
	List(ctx context.Context, token string, page, perPage int) (*repository.Page[model.Account], error)
	Get(ctx context.Context, token string, id uint64) (*model.Account, error)
	Me(ctx context.Context, token string) (*model.Account, error)
	UpdateMe(ctx context.Context, token string, in account.UpdateInput) (*model.Account, error)
	DeleteMe(ctx context.Context, token string) (*account.DeleteResult, error)
}

type AccountHandler struct {
	svc AccountService
}

func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Register handles POST /accounts.
func (h *AccountHandler) Register(c echo.Context) error {
	var in account.RegisterInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated, "Created", out)
}

// Login handles POST /sessions.
func (h *AccountHandler) Login(c echo.Context) error {
	var in account.LoginInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Logged in", out)
}

// Index handles GET /accounts?page=&per_page=.
func (h *AccountHandler) Index(c echo.Context) error {
	out, err := h.svc.List(c.Request().Context(), middleware.Token(c), queryInt(c, "page"), queryInt(c, "per_page"))
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "OK", out)
}

// Show handles GET /accounts/:id.
func (h *AccountHandler) Show(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Get(c.Request().Context(), middleware.Token(c), id)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "OK", out)
}

// Me handles GET /me.
func (h *AccountHandler) Me(c echo.Context) error {
	out, err := h.svc.Me(c.Request().Context(), middleware.Token(c))
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "OK", out)
}

// UpdateMe handles PATCH /me.
func (h *AccountHandler) UpdateMe(c echo.Context) error {
	var in account.UpdateInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.svc.UpdateMe(c.Request().Context(), middleware.Token(c), in)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Updated", out)
}

// DeleteMe handles DELETE /me.
func (h *AccountHandler) DeleteMe(c echo.Context) error {
	out, err := h.svc.DeleteMe(c.Request().Context(), middleware.Token(c))
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Deleted", out)
}
