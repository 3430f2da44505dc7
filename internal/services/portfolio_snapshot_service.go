package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/ledger"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
)

// portfolioSnapshotService handles portfolio snapshot operations.
type portfolioSnapshotService struct {
	db                 *gorm.DB
	portfolioService   PortfolioServicer
	transactionService TransactionServicer
	log                *zap.SugaredLogger
}

// NewPortfolioSnapshotService creates a new PortfolioSnapshotServicer.
func NewPortfolioSnapshotService(db *gorm.DB, portfolioService PortfolioServicer, transactionService TransactionServicer) PortfolioSnapshotServicer {
	return &portfolioSnapshotService{
		db:                 db,
		portfolioService:   portfolioService,
		transactionService: transactionService,
		log:                logger.Named("snapshots"),
	}
}

// ComputeAndRecordSnapshots values every live portfolio as of recordedAt
// and stores one snapshot each, replacing a snapshot already recorded at
// the same instant.
func (s *portfolioSnapshotService) ComputeAndRecordSnapshots(ctx context.Context, recordedAt time.Time) (int, error) {
	recordedAt = recordedAt.UTC()

	var portfolioIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Portfolio{}).
		Order("created_at ASC").
		Pluck("id", &portfolioIDs).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ledgers, err := s.transactionService.GetAllLedgers()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, portfolioID := range portfolioIDs {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		snapshot, err := s.computeSnapshot(ctx, portfolioID, ledgers[portfolioID], recordedAt)
		if err != nil {
			return count, err
		}

		// Upsert: check for existing snapshot at same portfolio+time
		var existing models.PortfolioSnapshot
		result := s.db.WithContext(ctx).Where("portfolio_id = ? AND recorded_at = ?", portfolioID, recordedAt).First(&existing)
		if result.Error == nil {
			if err := s.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
				"net_worth":  snapshot.NetWorth,
				"total_cost": snapshot.TotalCost,
				"profit":     snapshot.Profit,
			}).Error; err != nil {
				return count, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		} else {
			if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
				return count, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		count++
	}

	s.log.Infow("recorded portfolio snapshots", "count", count, "recorded_at", recordedAt)
	return count, nil
}

// computeSnapshot values the positions held at recordedAt with the latest
// stored close on or before it, or their average cost without one.
func (s *portfolioSnapshotService) computeSnapshot(ctx context.Context, portfolioID string, txs []models.Transaction, recordedAt time.Time) (*models.PortfolioSnapshot, error) {
	positions := ledger.Active(ledger.FoldAt(txs, recordedAt))

	tickers := make([]string, 0, len(positions))
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}
	closes, err := getLatestCloses(s.db.WithContext(ctx), tickers, recordedAt)
	if err != nil {
		return nil, err
	}

	netWorth := decimal.Zero
	totalCost := decimal.Zero
	for _, p := range positions {
		price := p.AveragePrice
		if c, ok := closes[p.Ticker]; ok && c > 0 {
			price = decimal.NewFromFloat(c)
		}
		netWorth = netWorth.Add(p.Quantity.Mul(price))
		totalCost = totalCost.Add(p.TotalCost)
	}
	netWorth = netWorth.Round(8)
	totalCost = totalCost.Round(8)

	return &models.PortfolioSnapshot{
		PortfolioID: portfolioID,
		RecordedAt:  recordedAt,
		NetWorth:    netWorth,
		TotalCost:   totalCost,
		Profit:      netWorth.Sub(totalCost),
	}, nil
}

// GetSnapshots returns paginated snapshots for a portfolio within a date range.
func (s *portfolioSnapshotService) GetSnapshots(
	portfolioID string,
	from, to time.Time,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.PortfolioSnapshot], error) {
	if _, err := s.portfolioService.GetPortfolioByID(portfolioID); err != nil {
		return nil, err
	}
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.PortfolioSnapshot{}).
		Where("portfolio_id = ? AND recorded_at >= ? AND recorded_at <= ?", portfolioID, from.UTC(), to.UTC())
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var snapshots []models.PortfolioSnapshot
	if err := base.Scopes(pagination.Sorted(page, "recorded_at"), pagination.Paginate(page)).
		Find(&snapshots).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(snapshots, page.Page, page.PageSize, totalItems)
	return &result, nil
}
