package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/service"
	"github.com/content-threads-api/internal/validation"
)

// StatsHandler handles the admin statistics endpoints
type StatsHandler struct {
	services *service.Services
	validate *validation.Validator
	log      zerolog.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(services *service.Services, log zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		services: services,
		validate: validation.NewValidator(),
		log:      log.With().Str("handler", "stats").Logger(),
	}
}

// List handles GET /v1/stats/comments
func (h *StatsHandler) List(c *gin.Context) {
	var filter models.StatFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, h.log, apperr.Wrap(apperr.KindInvalidInput, apperr.InvalidInput, "query parameters are malformed", err))
		return
	}

	records, err := h.services.Stats.Stats(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"records": records,
	})
}

// Rollup handles POST /v1/stats/comments/rollup
// Runs the aggregation for one month synchronously
func (h *StatsHandler) Rollup(c *gin.Context) {
	var req models.RollupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, errBadBody(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(c, h.log, err)
		return
	}

	// A client disconnect must not cancel the remaining tasks
	report, err := h.services.Scheduler.RunNow(context.WithoutCancel(c.Request.Context()), req.Year, req.Month)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("run_id", report.Run.ID).
		Str("requested_by", actorFrom(c).ID.Hex()).
		Str("status", string(report.Run.Status)).
		Msg("On-demand rollup finished")

	c.JSON(http.StatusOK, report)
}

// LatestRun handles GET /v1/stats/comments/runs/latest
func (h *StatsHandler) LatestRun(c *gin.Context) {
	run, err := h.services.Stats.LatestRun(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if run == nil {
		respondError(c, h.log, apperr.New(apperr.KindNotFound, apperr.NotFound, "no rollup has run yet"))
		return
	}
	c.JSON(http.StatusOK, run)
}
