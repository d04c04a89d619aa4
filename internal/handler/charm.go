package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/omamori-api/internal/charm"
	"github.com/iliyamo/omamori-api/internal/middleware"
	"github.com/iliyamo/omamori-api/internal/model"
	"github.com/iliyamo/omamori-api/internal/response"
)

// CharmService is the lifecycle engine as seen by the HTTP layer.
type CharmService interface {
	Create(ctx context.Context, token string, in charm.Input) (*model.Charm, error)
	Duplicate(ctx context.Context, token string, id uint64) (*model.Charm, error)
	Get(ctx context.Context, token string, id uint64) (*model.Charm, error)
	List(ctx context.Context, token string, q charm.ListQuery) (*charm.ListResult, error)
	Publish(ctx context.Context, token string, id uint64) (*model.Charm, error)
	Update(ctx context.Context, token string, id uint64, in charm.Input) (*model.Charm, error)
	Delete(ctx context.Context, token string, id uint64) (*charm.DeleteResult, error)
	SetBackMessage(ctx context.Context, token string, id uint64, in charm.Input) (*model.Charm, error)
}

type CharmHandler struct {
	svc CharmService
}

func NewCharmHandler(svc CharmService) *CharmHandler {
	return &CharmHandler{svc: svc}
}

// Store handles POST /charms.
func (h *CharmHandler) Store(c echo.Context) error {
	var in charm.Input
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.svc.Create(c.Request().Context(), middleware.Token(c), in)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated, "Created", out)
}

// Index handles GET /charms?page=&size=&status=&sort=.
func (h *CharmHandler) Index(c echo.Context) error {
	q := charm.ListQuery{
		Page:   queryInt(c, "page"),
		Size:   queryInt(c, "size"),
		Status: queryOptional(c, "status"),
		Sort:   queryOptional(c, "sort"),
	}
	out, err := h.svc.List(c.Request().Context(), middleware.Token(c), q)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "OK", out)
}

// Show handles GET /charms/:id.
func (h *CharmHandler) Show(c echo.Context) error {
	return h.byID(c, http.StatusOK, "OK", h.svc.Get)
}

// Duplicate handles POST /charms/:id/duplicate.
func (h *CharmHandler) Duplicate(c echo.Context) error {
	return h.byID(c, http.StatusCreated, "Duplicated", h.svc.Duplicate)
}

// Publish handles POST /charms/:id/publish.
func (h *CharmHandler) Publish(c echo.Context) error {
	return h.byID(c, http.StatusOK, "Published", h.svc.Publish)
}

// Update handles PATCH /charms/:id.
func (h *CharmHandler) Update(c echo.Context) error {
	return h.withBody(c, "Updated", h.svc.Update)
}

// BackMessage handles PUT /charms/:id/back-message.
func (h *CharmHandler) BackMessage(c echo.Context) error {
	return h.withBody(c, "Updated", h.svc.SetBackMessage)
}

// Destroy handles DELETE /charms/:id.
func (h *CharmHandler) Destroy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Delete(c.Request().Context(), middleware.Token(c), id)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Deleted", out)
}

func (h *CharmHandler) byID(c echo.Context, status int, msg string,
	op func(context.Context, string, uint64) (*model.Charm, error)) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := op(c.Request().Context(), middleware.Token(c), id)
	if err != nil {
		return err
	}
	return response.Success(c, status, msg, out)
}

func (h *CharmHandler) withBody(c echo.Context, msg string,
	op func(context.Context, string, uint64, charm.Input) (*model.Charm, error)) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in charm.Input
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := op(c.Request().Context(), middleware.Token(c), id, in)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, msg, out)
}
