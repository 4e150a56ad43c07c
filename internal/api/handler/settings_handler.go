package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/core/ports"
)

type SettingsHandler struct {
	service ports.SettingsService
}

func NewSettingsHandler(service ports.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Public handles GET /api/settings.
//
// @Summary      Get the public settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  publicSettingsResponse
// @Router       /api/settings [get]
func (h *SettingsHandler) Public(c echo.Context) error {
	s, err := h.service.Public(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPublicSettingsResponse(s))
}

// Get handles GET /api/admin/settings.
//
// @Summary      Get every setting
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  settingsResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/settings [get]
func (h *SettingsHandler) Get(c echo.Context) error {
	s, err := h.service.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSettingsResponse(s))
}

// Update handles POST /api/admin/settings.
//
// @Summary      Update settings
// @Description  Only the fields present in the body change.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateSettingsRequest  true  "Partial settings"
// @Success      200   {object}  updateSettingsResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /api/admin/settings [post]
func (h *SettingsHandler) Update(c echo.Context) error {
	var req updateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	s, err := h.service.Update(c.Request().Context(), toSettingsPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updateSettingsResponse{
		Message:  "settings updated successfully",
		Settings: toSettingsResponse(s),
	})
}
