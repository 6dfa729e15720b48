package api

import (
	"errors"
	"sync"
	"time"

	"midas/internal/domain/models"
	"midas/internal/usecase"
	"midas/pkg/cache"
	xhttp "midas/pkg/http"
	xlogger "midas/pkg/logger"

	"github.com/labstack/echo/v4"
)

const verifyCacheKey = "verify:report"

// ReportHandler serves the outcome of the last ingestion run and
// on-demand table verification over HTTP.
type ReportHandler struct {
	logger   *xlogger.Logger
	verifier *usecase.Verifier
	cache    cache.Service
	cacheTTL time.Duration

	mu      sync.RWMutex
	lastRun *models.RunReport
}

func NewReportHandler(logger *xlogger.Logger, verifier *usecase.Verifier, c cache.Service, ttl time.Duration) *ReportHandler {
	return &ReportHandler{
		logger:   logger,
		verifier: verifier,
		cache:    c,
		cacheTTL: ttl,
	}
}

// SetRunReport stores the report of the latest ingestion run.
func (h *ReportHandler) SetRunReport(r *models.RunReport) {
	h.mu.Lock()
	h.lastRun = r
	h.mu.Unlock()
}

func (h *ReportHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	g.GET("/report", h.Report)
	g.GET("/verify", h.Verify)
}

func (h *ReportHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Report returns the last ingestion run report.
func (h *ReportHandler) Report(c echo.Context) error {
	h.mu.RLock()
	r := h.lastRun
	h.mu.RUnlock()
	if r == nil {
		return xhttp.NotFoundResponse(c, "no ingestion run completed yet")
	}
	return xhttp.SuccessResponse(c, r)
}

// Verify runs (or serves a cached) consistency check. An optional
// symbol+interval query pair narrows the check to a single table.
func (h *ReportHandler) Verify(c echo.Context) error {
	ctx := c.Request().Context()

	symbol := c.QueryParam("symbol")
	ivName := c.QueryParam("interval")
	if symbol != "" || ivName != "" {
		if symbol == "" || ivName == "" {
			return xhttp.BadRequestResponse(c, "symbol and interval must be given together")
		}
		iv, err := models.ParseInterval(ivName)
		if err != nil {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		tr, err := h.verifier.VerifyTable(ctx, symbol, iv)
		if err != nil {
			h.logger.Error("verify table failed", xlogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
		return xhttp.SuccessResponse(c, tr)
	}

	if h.cache != nil {
		var cached models.VerifyReport
		err := h.cache.Get(ctx, verifyCacheKey, &cached)
		if err == nil {
			return xhttp.SuccessResponse(c, &cached)
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("verify cache get failed", xlogger.Error(err))
		}
	}

	report, err := h.verifier.Run(ctx)
	if err != nil {
		h.logger.Error("verify run failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, verifyCacheKey, report, h.cacheTTL); err != nil {
			h.logger.Warn("verify cache set failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, report)
}
