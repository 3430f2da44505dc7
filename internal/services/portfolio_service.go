package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
)

const defaultBaseCurrency = "BRL"

// portfolioService handles portfolio-related business logic.
type portfolioService struct {
	db *gorm.DB
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB) PortfolioServicer {
	return &portfolioService{db: db}
}

// CreatePortfolio creates a client portfolio. An empty base currency means BRL.
func (s *portfolioService) CreatePortfolio(name, portfolioType, baseCurrency string) (*models.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	portfolioType = strings.TrimSpace(portfolioType)
	if portfolioType == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type is required")
	}
	baseCurrency = strings.ToUpper(strings.TrimSpace(baseCurrency))
	if baseCurrency == "" {
		baseCurrency = defaultBaseCurrency
	}

	portfolio := &models.Portfolio{
		Name:         name,
		Type:         portfolioType,
		BaseCurrency: baseCurrency,
	}
	if err := s.db.Create(portfolio).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return portfolio, nil
}

// GetPortfolios lists portfolios, newest first unless order=asc.
func (s *portfolioService) GetPortfolios(page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error) {
	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.Portfolio{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var portfolios []models.Portfolio
	if err := s.db.Scopes(pagination.Sorted(page, "created_at"), pagination.Paginate(page)).
		Find(&portfolios).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(portfolios, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPortfolioByID retrieves a portfolio by ID.
func (s *portfolioService) GetPortfolioByID(portfolioID string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	if err := s.db.Where("id = ?", portfolioID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPortfolioNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &portfolio, nil
}

// DeletePortfolio soft-deletes a portfolio. Its ledger is kept.
func (s *portfolioService) DeletePortfolio(portfolioID string) error {
	result := s.db.Where("id = ?", portfolioID).Delete(&models.Portfolio{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrPortfolioNotFound
	}
	return nil
}
