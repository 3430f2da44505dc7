package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/felipemaiocch/wenvest/internal/services"
)

// SummaryHandler serves portfolio valuation and the performance series.
type SummaryHandler struct {
	summaryService     services.SummaryServicer
	performanceService services.PerformanceServicer
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(summaryService services.SummaryServicer, performanceService services.PerformanceServicer) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService, performanceService: performanceService}
}

// GetSummary handles valuing a portfolio
// @Summary     Portfolio summary
// @Description Value every open position (live quote, then latest stored close, then average cost) and aggregate net worth, profit and allocation by asset type
// @Tags        portfolios
// @Produce     json
// @Param       id       path  string true  "Portfolio ID"
// @Param       currency query string false "Display currency (defaults to the portfolio base currency)"
// @Success     200 {object} services.PortfolioSummary "Portfolio summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/summary [get]
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.summaryService.GetPortfolioSummary(c.Request.Context(), portfolioID, strings.TrimSpace(c.Query("currency")))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetPerformance handles the daily performance series
// @Summary     Portfolio performance
// @Description Daily value, invested amount and return of a portfolio over the last N days
// @Tags        portfolios
// @Produce     json
// @Param       id   path  string true  "Portfolio ID"
// @Param       days query int    false "Window in days (default 365, max 3650)"
// @Success     200 {object} DataResponse{data=[]services.PerformancePoint} "Performance series"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/performance [get]
func (h *SummaryHandler) GetPerformance(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	days, err := parseDays(c, services.DefaultPerformanceDays, services.MaxPerformanceDays)
	if err != nil {
		respondWithError(c, err)
		return
	}

	points, err := h.performanceService.GetPortfolioPerformance(c.Request.Context(), portfolioID, days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: points})
}
