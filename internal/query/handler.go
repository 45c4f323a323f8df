package query

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httperr "github.com/gridwatch-lab/gridwatch/internal/core/errors"
	"github.com/gridwatch-lab/gridwatch/internal/pipeline"
)

// RollupRunner triggers one pipeline pass. Satisfied by *pipeline.Pipeline.
type RollupRunner interface {
	Run(ctx context.Context, force bool) (pipeline.Report, error)
}

// Handler exposes the query service and the manual rollup trigger over HTTP.
type Handler struct {
	service *Service
	rollup  RollupRunner
}

// NewHandler creates the HTTP handler. rollup may be nil when the pipeline is
// disabled; the trigger endpoint then responds 404.
func NewHandler(service *Service, rollup RollupRunner) *Handler {
	return &Handler{service: service, rollup: rollup}
}

// RegisterRoutes registers the read API routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/readings/hourly", h.HandleQueryHourly)
	r.GET("/v1/devices", h.HandleListDevices)
	r.GET("/v1/summary", h.HandleSummary)
	r.DELETE("/v1/readings/hourly", h.HandleDeleteHourly)
	r.POST("/v1/rollup/run", h.HandleRunRollup)
}

// HandleQueryHourly handles GET /v1/readings/hourly
// Query parameters: period, device, start, end, date (dates as 2006-01-02).
func (h *Handler) HandleQueryHourly(c *gin.Context) {
	var params struct {
		Period string    `form:"period"`
		Device string    `form:"device"`
		Start  time.Time `form:"start" time_format:"2006-01-02"`
		End    time.Time `form:"end" time_format:"2006-01-02"`
		Date   time.Time `form:"date" time_format:"2006-01-02"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQuery,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	result, err := h.service.QueryHourly(c.Request.Context(), HourlyQuery{
		Period: params.Period,
		Device: params.Device,
		Start:  params.Start,
		End:    params.End,
		Date:   params.Date,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQuery,
				Message:   "Invalid hourly query",
				Details:   err.Error(),
			})
			return
		}
		slog.Error("[API] Hourly query failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query hourly readings",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleListDevices handles GET /v1/devices
func (h *Handler) HandleListDevices(c *gin.Context) {
	devices, err := h.service.ListDevices(c.Request.Context())
	if err != nil {
		slog.Error("[API] Device listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to list devices",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"devices": devices, "count": len(devices)})
}

// HandleSummary handles GET /v1/summary
func (h *Handler) HandleSummary(c *gin.Context) {
	summary, err := h.service.UsageSummary(c.Request.Context())
	if err != nil {
		slog.Error("[API] Usage summary failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to build usage summary",
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// HandleDeleteHourly handles DELETE /v1/readings/hourly
// Body: JSON array of {ids: [...], device_name: "..."}.
func (h *Handler) HandleDeleteHourly(c *gin.Context) {
	var batches []DeleteBatch
	if err := c.ShouldBindJSON(&batches); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid delete request body",
			Details:   err.Error(),
		})
		return
	}

	deleted, err := h.service.DeleteHourly(c.Request.Context(), batches)
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQuery,
				Message:   "Invalid delete request",
				Details:   err.Error(),
			})
			return
		}
		slog.Error("[API] Hourly delete failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to delete hourly readings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// HandleRunRollup handles POST /v1/rollup/run
// Query parameter force=true bypasses the daily idempotency guard.
func (h *Handler) HandleRunRollup(c *gin.Context) {
	if h.rollup == nil {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Rollup pipeline is disabled",
		})
		return
	}

	force := c.Query("force") == "true"
	report, err := h.rollup.Run(c.Request.Context(), force)
	if err != nil {
		slog.Error("[API] Manual rollup failed", "error", err, "forced", force)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Rollup run failed",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
