package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/services"
	"github.com/felipemaiocch/wenvest/internal/validator"
)

// AssetHandler serves per-asset market data: stored history, live quotes and
// search.
type AssetHandler struct {
	quoteService        services.QuoteServicer
	priceHistoryService services.PriceHistoryServicer
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(quoteService services.QuoteServicer, priceHistoryService services.PriceHistoryServicer) *AssetHandler {
	return &AssetHandler{quoteService: quoteService, priceHistoryService: priceHistoryService}
}

// QuoteMeta describes a batch quote response.
type QuoteMeta struct {
	Count     int `json:"count"`
	Requested int `json:"requested"`
}

// QuoteResponse is the batch quote payload.
type QuoteResponse struct {
	Data []marketdata.Quote `json:"data"`
	Meta QuoteMeta          `json:"meta"`
}

// GetHistory handles the stored daily bars of one asset
// @Summary     Asset price history
// @Description Daily bars for the last N days. Missing history is fetched from the provider and stored first.
// @Tags        assets
// @Produce     json
// @Param       ticker path  string true  "Ticker"
// @Param       days   query int    false "Window in days (default 365, max 3650)"
// @Success     200 {object} DataResponse{data=[]models.PriceHistory} "Daily bars"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /assets/{ticker}/history [get]
func (h *AssetHandler) GetHistory(c *gin.Context) {
	ticker := c.Param("ticker")
	if !validator.IsTicker(ticker) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid ticker"))
		return
	}

	days, err := parseDays(c, services.BackfillDays, services.MaxPerformanceDays)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rows, err := h.priceHistoryService.GetHistory(c.Request.Context(), ticker, days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: rows})
}

// SearchAssets handles asset search
// @Summary     Search assets
// @Description Search listed assets by name or symbol. A CNPJ query looks the fund up in the CVM registry.
// @Tags        assets
// @Produce     json
// @Param       q query string true "Search text or CNPJ"
// @Success     200 {object} DataResponse{data=[]marketdata.SearchResult} "Matches"
// @Failure     400 {object} ErrorResponse "Missing query"
// @Failure     502 {object} ErrorResponse "Provider unavailable"
// @Router      /assets/search [get]
func (h *AssetHandler) SearchAssets(c *gin.Context) {
	results, err := h.quoteService.SearchAssets(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: results})
}

// GetQuotes handles batch live quotes
// @Summary     Live quotes
// @Description Quotes for a comma-separated list of tickers. Tickers without a quote are left out.
// @Tags        assets
// @Produce     json
// @Param       tickers query string true "Comma-separated tickers (max 50)"
// @Success     200 {object} QuoteResponse "Quotes"
// @Failure     400 {object} ErrorResponse "Missing or too many tickers"
// @Router      /quote [get]
func (h *AssetHandler) GetQuotes(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("tickers"))
	if raw == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "tickers is required"))
		return
	}

	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}

	quotes, err := h.quoteService.GetQuotes(c.Request.Context(), tickers)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, QuoteResponse{
		Data: quotes,
		Meta: QuoteMeta{Count: len(quotes), Requested: len(tickers)},
	})
}
