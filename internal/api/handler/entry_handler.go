package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/api/metrics"
	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// HeaderContestWeek carries the week an entry listing belongs to.
const HeaderContestWeek = "X-Contest-Week"

// EntryHandler serves contest entry routes.
type EntryHandler struct {
	service ports.EntryService
}

func NewEntryHandler(service ports.EntryService) *EntryHandler {
	return &EntryHandler{service: service}
}

// Submit handles POST /api/entries.
//
// @Summary      Submit a car photo to the current week
// @Description  Charges the current entry fee.
// @Tags         entries
// @Accept       multipart/form-data
// @Produce      json
// @Param        user_id      formData  int     true   "Participant id"
// @Param        description  formData  string  false  "Caption"
// @Param        image        formData  file    true   "JPEG, PNG, GIF or WebP image"
// @Success      201          {object}  submitEntryResponse
// @Failure      400          {object}  errorResponse
// @Failure      404          {object}  errorResponse
// @Failure      500          {object}  errorResponse
// @Router       /api/entries [post]
func (h *EntryHandler) Submit(c echo.Context) error {
	var userID flexID
	if err := userID.UnmarshalParam(c.FormValue("user_id")); err != nil || userID == 0 {
		return domain.Invalid("user_id", "is required")
	}

	in := ports.SubmitEntryInput{
		UserID:      uint(userID),
		Description: c.FormValue("description"),
	}

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// left nil; the service reports the missing image
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	default:
		file, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		defer file.Close()
		in.ImageName = fh.Filename
		in.Image = file
	}

	entry, err := h.service.Submit(c.Request().Context(), in)
	if err != nil {
		return err
	}
	metrics.EntriesTotal.WithLabelValues("submitted").Inc()
	if entry.FeePaid.IsPositive() {
		metrics.LedgerOperationsTotal.WithLabelValues(string(domain.TxEntryFee), "ok").Inc()
		metrics.LedgerAmountTotal.WithLabelValues(string(domain.TxEntryFee)).Add(entry.FeePaid.InexactFloat64())
	}

	return c.JSON(http.StatusCreated, submitEntryResponse{
		Message: "entry successfully submitted",
		Entry:   toEntryResponse(*entry),
	})
}

// List handles GET /api/entries.
//
// @Summary      List the entries of a week
// @Description  The resolved week number is returned in the X-Contest-Week header.
// @Tags         entries
// @Produce      json
// @Param        week  query     int  false  "Week number, defaults to the current week"
// @Success      200   {array}   entryResponse
// @Header       200   {integer} X-Contest-Week  "Week of the listed entries"
// @Failure      400   {object}  errorResponse
// @Router       /api/entries [get]
func (h *EntryHandler) List(c echo.Context) error {
	week, entries, err := h.service.List(c.Request().Context(), optionalInt(c.QueryParam("week")))
	if err != nil {
		return err
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	c.Response().Header().Set(HeaderContestWeek, strconv.Itoa(week))
	return c.JSON(http.StatusOK, out)
}

// Cancel handles DELETE /api/entries/:id.
//
// @Summary      Cancel an entry and refund its fee
// @Description  user_id may be sent in the JSON body or as a query parameter.
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true   "Entry id"
// @Param        user_id  query     int                 false  "Owner id"
// @Param        body     body      cancelEntryRequest  false  "Owner id"
// @Success      200      {object}  cancelEntryResponse
// @Failure      400      {object}  errorResponse
// @Failure      401      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Router       /api/entries/{id} [delete]
func (h *EntryHandler) Cancel(c echo.Context) error {
	entryID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req cancelEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.UserID == 0 {
		return domain.Invalid("user_id", "is required")
	}

	res, err := h.service.Cancel(c.Request().Context(), entryID, uint(req.UserID))
	if err != nil {
		return err
	}
	metrics.EntriesTotal.WithLabelValues("cancelled").Inc()
	if res.Refunded.IsPositive() {
		metrics.LedgerOperationsTotal.WithLabelValues(string(domain.TxRefund), "ok").Inc()
		metrics.LedgerAmountTotal.WithLabelValues(string(domain.TxRefund)).Add(res.Refunded.InexactFloat64())
	}

	return c.JSON(http.StatusOK, cancelEntryResponse{
		Message:  "entry cancelled and entry fee refunded",
		EntryID:  res.EntryID,
		Refunded: res.Refunded.InexactFloat64(),
		Balance:  res.Balance.InexactFloat64(),
	})
}
