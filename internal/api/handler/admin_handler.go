package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// AdminHandler serves admin sessions and role management.
type AdminHandler struct {
	service ports.AdminService
}

func NewAdminHandler(service ports.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// Verify handles POST /api/admin/verify.
//
// @Summary      Exchange the admin password for a token
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      verifyRequest  true  "Admin password"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/admin/verify [post]
func (h *AdminHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, err := h.service.VerifyPassword(c.Request().Context(), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Session handles GET /api/admin/session.
//
// @Summary      Describe the caller's session
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/admin/session [get]
func (h *AdminHandler) Session(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{Subject: p.Subject, Roles: toRolesResponse(p.Roles)})
}

// ListRoles handles GET /api/admin/roles.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   roleResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/roles [get]
func (h *AdminHandler) ListRoles(c echo.Context) error {
	roles, err := h.service.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRolesResponse(roles))
}

// CreateRole handles POST /api/admin/roles.
//
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "Role"
// @Success      201   {object}  roleResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/admin/roles [post]
func (h *AdminHandler) CreateRole(c echo.Context) error {
	var req createRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	role, err := h.service.CreateRole(c.Request().Context(), domain.Role{
		Name:        req.Name,
		Color:       req.Color,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRolesResponse([]domain.Role{*role})[0])
}

// DeleteRole handles DELETE /api/admin/roles/:id.
//
// @Summary      Delete a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  int  true  "Role id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/roles/{id} [delete]
func (h *AdminHandler) DeleteRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteRole(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignRole handles POST /api/admin/users/:username/roles.
//
// @Summary      Give a role to a user
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string             true  "Username"
// @Param        body      body      assignRoleRequest  true  "Role"
// @Success      200       {object}  userResponse
// @Failure      404       {object}  errorResponse
// @Router       /api/admin/users/{username}/roles [post]
func (h *AdminHandler) AssignRole(c echo.Context) error {
	var req assignRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.AssignRole(c.Request().Context(), c.Param("username"), uint(req.RoleID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// RevokeRole handles DELETE /api/admin/users/:username/roles/:roleId.
//
// @Summary      Take a role away from a user
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Param        roleId    path      int     true  "Role id"
// @Success      200       {object}  userResponse
// @Failure      404       {object}  errorResponse
// @Router       /api/admin/users/{username}/roles/{roleId} [delete]
func (h *AdminHandler) RevokeRole(c echo.Context) error {
	roleID, err := pathID(c, "roleId")
	if err != nil {
		return err
	}
	user, err := h.service.RevokeRole(c.Request().Context(), c.Param("username"), roleID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// IssueStaffToken handles POST /api/admin/users/:username/token.
//
// @Summary      Issue a CMS token carrying the user's roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  tokenResponse
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /api/admin/users/{username}/token [post]
func (h *AdminHandler) IssueStaffToken(c echo.Context) error {
	token, err := h.service.IssueStaffToken(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}
