package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/pagination"
	"github.com/felipemaiocch/wenvest/internal/services"
)

// DividendHandler serves recorded and estimated dividends.
type DividendHandler struct {
	dividendService services.DividendServicer
}

// NewDividendHandler creates a new DividendHandler.
func NewDividendHandler(dividendService services.DividendServicer) *DividendHandler {
	return &DividendHandler{dividendService: dividendService}
}

// GetDividends lists recorded dividends
// @Summary     Recorded dividends
// @Tags        dividends
// @Produce     json
// @Param       id        path  string true  "Portfolio ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       order     query string false "asc or desc by ex-date (default desc)"
// @Success     200 {object} pagination.PageResponse[models.Dividend] "Paginated dividends"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/dividends [get]
func (h *DividendHandler) GetDividends(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.dividendService.GetDividends(portfolioID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetEstimatedDividends estimates income from the last twelve months
// @Summary     Estimated dividends
// @Description Dividend events of the last 12 months scaled by the current quantity of each open position
// @Tags        dividends
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} DataResponse{data=[]services.EstimatedDividend} "Estimated dividends"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/dividends/estimated [get]
func (h *DividendHandler) GetEstimatedDividends(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	estimates, err := h.dividendService.GetEstimatedDividends(c.Request.Context(), portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: estimates})
}
