package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/services"
)

// PipelineHandler exposes the scheduled jobs as authenticated endpoints so an
// external scheduler can trigger them.
type PipelineHandler struct {
	priceHistoryService services.PriceHistoryServicer
	dividendService     services.DividendServicer
	snapshotService     services.PortfolioSnapshotServicer
	now                 func() time.Time
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(
	priceHistoryService services.PriceHistoryServicer,
	dividendService services.DividendServicer,
	snapshotService services.PortfolioSnapshotServicer,
) *PipelineHandler {
	return &PipelineHandler{
		priceHistoryService: priceHistoryService,
		dividendService:     dividendService,
		snapshotService:     snapshotService,
		now:                 time.Now,
	}
}

// BackfillRequest represents the optional request payload for a backfill.
type BackfillRequest struct {
	Ticker string `json:"ticker" binding:"omitempty,ticker"`
	Days   int    `json:"days" binding:"omitempty,min=1,max=3650"`
}

// ComputeSnapshotsRequest represents the optional request payload for computing snapshots.
type ComputeSnapshotsRequest struct {
	RecordedAt *time.Time `json:"recorded_at"`
}

// bindOptionalJSON binds the body when one was sent.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}

// Backfill handles loading a year of history
// @Summary     Backfill price history
// @Description Fetch and store daily bars for every ledger ticker, or for one ticker when given. Defaults to 365 days.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string          true  "Pipeline API key"
// @Param       request   body     BackfillRequest false "Backfill parameters"
// @Success     200       {object} services.BatchResult "Batch result"
// @Failure     400       {object} ErrorResponse "Invalid input"
// @Failure     401       {object} ErrorResponse "Invalid API key"
// @Failure     503       {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/backfill [post]
func (h *PipelineHandler) Backfill(c *gin.Context) {
	var req BackfillRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	days := req.Days
	if days == 0 {
		days = services.BackfillDays
	}

	if ticker := strings.TrimSpace(req.Ticker); ticker != "" {
		count, err := h.priceHistoryService.FetchAndStore(c.Request.Context(), ticker, days)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, services.BatchResult{
			Total:   1,
			Success: 1,
			Results: []services.BatchItem{{Ticker: strings.ToUpper(ticker), Status: "ok", Count: count}},
		})
		return
	}

	result, err := h.priceHistoryService.UpdateAll(c.Request.Context(), days)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdatePrices handles the daily incremental price update
// @Summary     Update prices
// @Description Refresh the last few days of bars for every ledger ticker
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header   string true "Pipeline API key"
// @Success     200       {object} services.BatchResult "Batch result"
// @Failure     401       {object} ErrorResponse "Invalid API key"
// @Failure     503       {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/update-prices [post]
func (h *PipelineHandler) UpdatePrices(c *gin.Context) {
	result, err := h.priceHistoryService.UpdateAll(c.Request.Context(), services.UpdateDays)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncDividends handles recording new dividend events
// @Summary     Sync dividends
// @Description Record dividend events of held tickers, sized by the quantity held on the ex-date. Known events are skipped.
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header   string true "Pipeline API key"
// @Success     200       {object} services.DividendSyncResult "Sync result"
// @Failure     401       {object} ErrorResponse "Invalid API key"
// @Failure     503       {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/dividends [post]
func (h *PipelineHandler) SyncDividends(c *gin.Context) {
	result, err := h.dividendService.SyncDividends(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ComputeSnapshots handles computing and recording portfolio snapshots.
// @Summary     Compute portfolio snapshots
// @Description Compute and record a snapshot of every portfolio. recorded_at defaults to now.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key  header   string                  true  "Pipeline API key"
// @Param       request    body     ComputeSnapshotsRequest false "Snapshot parameters"
// @Success     200        {object} map[string]int          "Snapshots recorded count"
// @Failure     400        {object} ErrorResponse           "Invalid input"
// @Failure     401        {object} ErrorResponse           "Invalid API key"
// @Failure     503        {object} ErrorResponse           "Pipeline not configured"
// @Router      /pipeline/snapshots [post]
func (h *PipelineHandler) ComputeSnapshots(c *gin.Context) {
	var req ComputeSnapshotsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	recordedAt := h.now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	count, err := h.snapshotService.ComputeAndRecordSnapshots(c.Request.Context(), recordedAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots_recorded": count})
}

// Status reports how much price history is stored
// @Summary     Pipeline status
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header   string true "Pipeline API key"
// @Success     200       {object} services.PriceHistoryStatus "History status"
// @Failure     401       {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/status [get]
func (h *PipelineHandler) Status(c *gin.Context) {
	status, err := h.priceHistoryService.Status(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
