package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/api/metrics"
	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// WalletHandler serves the deposit webhook and withdrawals.
type WalletHandler struct {
	service ports.WalletService
}

func NewWalletHandler(service ports.WalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

// Deposit handles POST /api/deposit.
//
// @Summary      Credit a deposit (game server webhook)
// @Description  Authenticated by the apiKey stored in settings before the payload is validated. Resending the same reference is a no-op.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        body  body      depositRequest  true  "Deposit"
// @Success      200   {object}  depositResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/deposit [post]
func (h *WalletHandler) Deposit(c echo.Context) error {
	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.service.Deposit(c.Request().Context(), ports.DepositInput{
		Code:      req.Code,
		Amount:    string(req.Amount),
		APIKey:    req.APIKey,
		Reference: req.Reference,
	})
	if err != nil {
		metrics.LedgerOperationsTotal.WithLabelValues(string(domain.TxDeposit), ledgerResult(err)).Inc()
		return err
	}

	if res.Duplicate {
		metrics.LedgerOperationsTotal.WithLabelValues(string(domain.TxDeposit), "duplicate").Inc()
	} else {
		metrics.LedgerOperationsTotal.WithLabelValues(string(domain.TxDeposit), "ok").Inc()
		metrics.LedgerAmountTotal.WithLabelValues(string(domain.TxDeposit)).Add(res.Amount.InexactFloat64())
	}

	return c.JSON(http.StatusOK, depositResponse{
		Message:       "deposit successful",
		Status:        "success",
		TransactionID: res.TransactionID,
		Balance:       res.Balance.InexactFloat64(),
		Duplicate:     res.Duplicate,
	})
}

// Withdraw handles POST /api/frontend/withdraw.
//
// @Summary      Withdraw funds through the payout service
// @Description  The balance is only debited once the payout service accepts the request.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        body  body      withdrawRequest  true  "Withdrawal"
// @Success      200   {object}  withdrawResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/frontend/withdraw [post]
func (h *WalletHandler) Withdraw(c echo.Context) error {
	var req withdrawRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	start := time.Now()
	res, err := h.service.Withdraw(c.Request().Context(), ports.WithdrawInput{
		UserID: uint(req.UserID),
		Amount: req.Amount,
		IBAN:   req.IBAN,
	})
	result := ledgerResult(err)
	metrics.PayoutDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	metrics.LedgerOperationsTotal.WithLabelValues(string(domain.TxWithdraw), result).Inc()
	if err != nil {
		return err
	}
	metrics.LedgerAmountTotal.WithLabelValues(string(domain.TxWithdraw)).Add(req.Amount.InexactFloat64())

	return c.JSON(http.StatusOK, withdrawResponse{
		Message:       "withdraw successful",
		TransactionID: res.TransactionID,
		WithdrawID:    res.WithdrawID,
		NewBalance:    res.Balance.InexactFloat64(),
	})
}

// ledgerResult maps a wallet error to its metrics label.
func ledgerResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrPayoutUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrPayoutRejected), errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrUserNotFound):
		return "rejected"
	default:
		return "error"
	}
}
