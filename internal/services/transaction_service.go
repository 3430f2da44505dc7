package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/ledger"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
)

// transactionService handles the portfolio ledger.
type transactionService struct {
	db               *gorm.DB
	portfolioService PortfolioServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, portfolioService PortfolioServicer) TransactionServicer {
	return &transactionService{
		db:               db,
		portfolioService: portfolioService,
	}
}

// AddTransaction appends an entry to a portfolio's ledger. The ticker is
// upper-cased, total is quantity × price and origin defaults to Manual.
func (s *transactionService) AddTransaction(portfolioID string, input TransactionInput) (*models.Transaction, error) {
	if _, err := s.portfolioService.GetPortfolioByID(portfolioID); err != nil {
		return nil, err
	}

	input.Type = models.TransactionType(strings.ToUpper(strings.TrimSpace(string(input.Type))))
	if !input.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	ticker := ledger.NormalizeTicker(input.Ticker)
	if ticker == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ticker is required")
	}
	if !input.Quantity.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	}
	if input.Price.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price must not be negative")
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	origin := input.Origin
	if origin == "" {
		origin = models.DefaultOrigin
	}

	transaction := &models.Transaction{
		PortfolioID: portfolioID,
		Ticker:      ticker,
		Type:        input.Type,
		Date:        date.UTC(),
		Quantity:    input.Quantity,
		Price:       input.Price,
		Total:       input.Quantity.Mul(input.Price),
		Origin:      origin,
	}
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// GetTransactions retrieves a paginated, filtered list of a portfolio's
// transactions, newest first unless order=asc.
func (s *transactionService) GetTransactions(portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := s.portfolioService.GetPortfolioByID(portfolioID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("portfolio_id = ?", portfolioID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Sorted(page, "date"), pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Ticker != nil {
		q = q.Where("ticker = ?", ledger.NormalizeTicker(*f.Ticker))
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	return q
}

// GetTransactionByID retrieves a single ledger entry.
func (s *transactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetLedger returns every transaction of a portfolio in chronological order.
func (s *transactionService) GetLedger(portfolioID string) ([]models.Transaction, error) {
	if _, err := s.portfolioService.GetPortfolioByID(portfolioID); err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	if err := s.db.Where("portfolio_id = ?", portfolioID).
		Order("date ASC").Order("id ASC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ledger.Chronological(transactions), nil
}

// GetAllLedgers returns the chronological ledger of every live portfolio,
// keyed by portfolio ID.
func (s *transactionService) GetAllLedgers() (map[string][]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.Where("portfolio_id IN (?)", s.db.Model(&models.Portfolio{}).Select("id")).
		Order("date ASC").Order("id ASC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ledgers := make(map[string][]models.Transaction)
	for _, tx := range transactions {
		ledgers[tx.PortfolioID] = append(ledgers[tx.PortfolioID], tx)
	}
	return ledgers, nil
}

// DeleteTransaction removes an entry from the ledger.
func (s *transactionService) DeleteTransaction(transactionID string) error {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetTickers returns the distinct tickers of a portfolio's ledger, sorted.
func (s *transactionService) GetTickers(portfolioID string) ([]string, error) {
	if _, err := s.portfolioService.GetPortfolioByID(portfolioID); err != nil {
		return nil, err
	}

	var tickers []string
	if err := s.db.Model(&models.Transaction{}).
		Where("portfolio_id = ?", portfolioID).
		Distinct("ticker").Order("ticker").
		Pluck("ticker", &tickers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tickers, nil
}

// GetAllTickers returns the distinct tickers held in any live portfolio.
func (s *transactionService) GetAllTickers() ([]string, error) {
	var tickers []string
	if err := s.db.Model(&models.Transaction{}).
		Where("portfolio_id IN (?)", s.db.Model(&models.Portfolio{}).Select("id")).
		Distinct("ticker").Order("ticker").
		Pluck("ticker", &tickers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tickers, nil
}
