package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/api/metrics"
	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{service: service}
}

// Cast handles POST /api/vote.
//
// @Summary      Cast the weekly vote
// @Description  Each voter gets one vote per week.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Param        body  body      voteRequest  true  "Vote"
// @Success      201   {object}  castVoteResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/vote [post]
func (h *VoteHandler) Cast(c echo.Context) error {
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	vote, err := h.service.Cast(c.Request().Context(), ports.CastVoteInput{
		VoterID:    uint(req.VoterID),
		EntryID:    uint(req.EntryID),
		WeekNumber: req.WeekNumber,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			metrics.VotesTotal.WithLabelValues("already_voted").Inc()
		}
		return err
	}
	metrics.VotesTotal.WithLabelValues("accepted").Inc()

	return c.JSON(http.StatusCreated, castVoteResponse{
		Message: "vote cast successfully",
		Vote: voteResponse{
			ID:         vote.ID,
			VoterID:    vote.VoterID,
			EntryID:    vote.EntryID,
			WeekNumber: vote.WeekNumber,
			CreatedAt:  vote.CreatedAt,
		},
	})
}
