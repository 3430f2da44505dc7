package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/felipemaiocch/wenvest/internal/uuid"
)

// PortfolioSnapshot records a portfolio's valuation at a point in time.
// This is immutable time-series data: no Base embed, no soft deletes.
type PortfolioSnapshot struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	PortfolioID string          `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	RecordedAt  time.Time       `gorm:"not null;index" json:"recorded_at"`
	NetWorth    decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"net_worth" swaggertype:"string"`
	TotalCost   decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"total_cost" swaggertype:"string"`
	Profit      decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"profit" swaggertype:"string"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *PortfolioSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New()
	}
	return nil
}
