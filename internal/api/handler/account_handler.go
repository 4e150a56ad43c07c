package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// AccountHandler serves registration and profile routes.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Register handles POST /api/register.
//
// @Summary      Register a participant
// @Description  Creates the user and assigns a unique six digit deposit code.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Username"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.Register(c.Request().Context(), req.Username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registerResponse{
		Message:  "user registered successfully",
		Username: user.Username,
		FPCode:   user.FPCode,
	})
}

// GetUser handles GET /api/user/:username.
//
// @Summary      Get a participant profile
// @Tags         accounts
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  userResponse
// @Failure      404       {object}  errorResponse
// @Failure      500       {object}  errorResponse
// @Router       /api/user/{username} [get]
func (h *AccountHandler) GetUser(c echo.Context) error {
	user, err := h.service.GetUser(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// SaveIBAN handles PUT /api/user/:username/iban.
//
// @Summary      Save the payout IBAN
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        username  path      string       true  "Username"
// @Param        body      body      ibanRequest  true  "IBAN"
// @Success      200       {object}  userResponse
// @Failure      400       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /api/user/{username}/iban [put]
func (h *AccountHandler) SaveIBAN(c echo.Context) error {
	var req ibanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.SaveIBAN(c.Request().Context(), c.Param("username"), req.IBAN)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// ListTransactions handles GET /api/user/:username/transactions.
//
// @Summary      List ledger transactions, newest first
// @Tags         accounts
// @Produce      json
// @Param        username  path      string  true   "Username"
// @Param        limit     query     int     false  "Maximum number of rows"
// @Success      200       {array}   transactionResponse
// @Failure      404       {object}  errorResponse
// @Router       /api/user/{username}/transactions [get]
func (h *AccountHandler) ListTransactions(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	txs, err := h.service.ListTransactions(c.Request().Context(), c.Param("username"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTransactionsResponse(txs))
}
