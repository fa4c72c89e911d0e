package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/jlebervet/mail-manager/internal/api/middleware"
	"github.com/jlebervet/mail-manager/internal/api/response"
	"github.com/jlebervet/mail-manager/internal/services"
)

// StatsHandler handles dashboard statistics HTTP requests
type StatsHandler struct {
	stats services.StatsService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(stats services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Stats handles GET /api/stats
func (h *StatsHandler) Stats(c echo.Context) error {
	actor := middleware.AccountFromContext(c)

	stats, err := h.stats.Stats(c.Request().Context(), actor)
	if err != nil {
		return response.InternalError(c, "failed to compute stats")
	}
	return response.Success(c, stats)
}
