package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/services"
	"github.com/felipemaiocch/wenvest/internal/validator"
)

// AnalyticsHandler serves risk and performance analytics. Every result is
// wrapped as {"data": ...} and data is null when history is too short.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetMetrics handles the headline risk metrics of a portfolio
// @Summary     Portfolio risk metrics
// @Description Sharpe, beta against the benchmark, annualized volatility and Sortino. Weights are present-day position values.
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} DataResponse{data=services.PortfolioMetrics} "Metrics or null"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/analytics/metrics [get]
func (h *AnalyticsHandler) GetMetrics(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	metrics, err := h.analyticsService.CalculatePortfolioMetrics(c.Request.Context(), portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: metrics})
}

// GetDrawdown handles the maximum drawdown of a portfolio
// @Summary     Portfolio maximum drawdown
// @Description Drawdown of the weighted cumulative return index. Weights are present-day position values.
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} DataResponse{data=analytics.Drawdown} "Drawdown or null"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/analytics/drawdown [get]
func (h *AnalyticsHandler) GetDrawdown(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	drawdown, err := h.analyticsService.CalculateDrawdown(c.Request.Context(), portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: drawdown})
}

// GetRiskReturn handles the per-asset risk/return scatter
// @Summary     Risk/return by asset
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} DataResponse{data=[]analytics.RiskReturnPoint} "Points or null"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/analytics/risk-return [get]
func (h *AnalyticsHandler) GetRiskReturn(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	points, err := h.analyticsService.CalculateRiskReturn(c.Request.Context(), portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: points})
}

// GetCorrelation handles the correlation matrix of a portfolio's assets
// @Summary     Asset correlation matrix
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} DataResponse{data=analytics.Correlation} "Matrix or null"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/analytics/correlation [get]
func (h *AnalyticsHandler) GetCorrelation(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	matrix, err := h.analyticsService.CalculateCorrelationMatrix(c.Request.Context(), portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: matrix})
}

// GetVolatility handles the annualized volatility of one asset
// @Summary     Asset volatility
// @Tags        assets
// @Produce     json
// @Param       ticker path  string true  "Ticker"
// @Param       days   query int    false "Number of most recent trading sessions (default 30)"
// @Success     200 {object} DataResponse{data=number} "Volatility or null"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /assets/{ticker}/volatility [get]
func (h *AnalyticsHandler) GetVolatility(c *gin.Context) {
	ticker := c.Param("ticker")
	if !validator.IsTicker(ticker) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid ticker"))
		return
	}

	days, err := parseDays(c, services.DefaultVolatilityDays, services.MaxPerformanceDays)
	if err != nil {
		respondWithError(c, err)
		return
	}

	vol, err := h.analyticsService.CalculateVolatility(c.Request.Context(), ticker, days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: vol})
}
