package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/api/metrics"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// EditionHandler serves the magazine CMS.
type EditionHandler struct {
	service ports.EditionService
}

func NewEditionHandler(service ports.EditionService) *EditionHandler {
	return &EditionHandler{service: service}
}

// List handles GET /api/editions.
//
// @Summary      List every edition, newest number first
// @Tags         editions
// @Produce      json
// @Success      200  {array}   editionResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/editions [get]
func (h *EditionHandler) List(c echo.Context) error {
	editions, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]editionResponse, 0, len(editions))
	for i := range editions {
		out = append(out, toEditionResponse(&editions[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// GetPublished handles GET /api/editions/published.
//
// @Summary      Get the published edition
// @Tags         editions
// @Produce      json
// @Success      200  {object}  editionResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/editions/published [get]
func (h *EditionHandler) GetPublished(c echo.Context) error {
	edition, err := h.service.GetPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEditionResponse(edition))
}

// Upsert handles POST /api/editions.
//
// @Summary      Create or update an edition
// @Description  Content sections are sent flattened next to id, editionNumber and status. Use the publish route to publish.
// @Tags         editions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      editionResponse  true  "Edition"
// @Success      200   {object}  editionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/editions [post]
func (h *EditionHandler) Upsert(c echo.Context) error {
	var req editionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	edition, err := h.service.Upsert(c.Request().Context(), toEdition(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEditionResponse(edition))
}

// CreateDraft handles POST /api/editions/draft.
//
// @Summary      Start a new draft edition
// @Tags         editions
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  editionResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/editions/draft [post]
func (h *EditionHandler) CreateDraft(c echo.Context) error {
	edition, err := h.service.CreateDraft(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEditionResponse(edition))
}

// Publish handles POST /api/editions/:id/publish.
//
// @Summary      Publish an edition
// @Description  Every other edition goes back to draft.
// @Tags         editions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Edition id"
// @Success      200  {object}  editionResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/editions/{id}/publish [post]
func (h *EditionHandler) Publish(c echo.Context) error {
	edition, err := h.service.Publish(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	metrics.EditionsPublishedTotal.Inc()
	return c.JSON(http.StatusOK, toEditionResponse(edition))
}

// Delete handles DELETE /api/editions/:id.
//
// @Summary      Delete an edition
// @Tags         editions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Edition id"
// @Success      200  {object}  successResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/editions/{id} [delete]
func (h *EditionHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}
