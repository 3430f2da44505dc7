package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
	"github.com/felipemaiocch/wenvest/internal/services"
)

// TransactionHandler handles ledger requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for adding a ledger entry.
// Quantity and price accept JSON numbers or decimal strings.
type CreateTransactionRequest struct {
	Ticker   string                 `json:"ticker" binding:"required,ticker"`
	Type     models.TransactionType `json:"type" binding:"required,transaction_type"`
	Date     *string                `json:"date"`
	Quantity decimal.Decimal        `json:"quantity" swaggertype:"string"`
	Price    decimal.Decimal        `json:"price" swaggertype:"string"`
	Origin   string                 `json:"origin" binding:"max=50"`
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateTransaction handles adding an entry to a portfolio's ledger
// @Summary     Add a transaction
// @Description Append a BUY, SELL or DIVIDEND entry to the portfolio ledger. The date defaults to now.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id      path string                   true "Portfolio ID"
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.TransactionInput{
		Ticker:   req.Ticker,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    req.Price,
		Origin:   strings.TrimSpace(req.Origin),
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		input.Date = parsed
	}

	transaction, err := h.transactionService.AddTransaction(portfolioID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(models.AuditActionCreateTransaction, "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{
			"portfolio_id": portfolioID,
			"ticker":       transaction.Ticker,
			"type":         transaction.Type,
			"quantity":     transaction.Quantity.String(),
			"price":        transaction.Price.String(),
		})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions lists a portfolio's ledger
// @Summary     List portfolio transactions
// @Description Get a paginated, filterable list of a portfolio's ledger entries, newest first
// @Tags        transactions
// @Produce     json
// @Param       id        path  string true  "Portfolio ID"
// @Param       ticker    query string false "Filter by ticker"
// @Param       type      query string false "Filter by type (BUY, SELL, DIVIDEND)"
// @Param       from_date query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       order     query string false "asc or desc (default desc)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
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

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetTransactions(portfolioID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := strings.TrimSpace(c.Query("ticker")); v != "" {
		filter.Ticker = &v
	}

	var err error
	if filter.FromDate, err = queryTime(c, "from_date", false); err != nil {
		return filter, err
	}
	if filter.ToDate, err = queryTime(c, "to_date", false); err != nil {
		return filter, err
	}

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(strings.ToUpper(v))
		if !txType.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be BUY, SELL or DIVIDEND")
		}
		filter.Type = &txType
	}

	return filter, nil
}

// DeleteTransaction handles the deletion of a ledger entry
// @Summary     Delete transaction
// @Description Soft delete a ledger entry by ID
// @Tags        transactions
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(models.AuditActionDeleteTransaction, "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}
