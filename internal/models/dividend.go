package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/felipemaiocch/wenvest/internal/uuid"
)

// Dividend is a recorded dividend credited to a portfolio position,
// sized by the quantity held on the ex-date.
type Dividend struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	PortfolioID string          `gorm:"type:uuid;not null;uniqueIndex:idx_dividends_dedupe" json:"portfolio_id"`
	Ticker      string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_dividends_dedupe" json:"ticker"`
	ExDate      time.Time       `gorm:"type:date;not null;uniqueIndex:idx_dividends_dedupe" json:"ex_date"`
	PaymentDate *time.Time      `gorm:"type:date" json:"payment_date"`
	Amount      decimal.Decimal `gorm:"type:numeric(24,8);not null;uniqueIndex:idx_dividends_dedupe" json:"amount" swaggertype:"string"`
	Quantity    decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"quantity" swaggertype:"string"`
	Total       decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"total" swaggertype:"string"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AmountScale is the number of decimal places kept by numeric(24,8) columns.
const AmountScale = 8

// DedupeKey identifies a dividend event within a portfolio and ticker. The
// amount is rounded to AmountScale so a provider value and the same value
// read back from the database produce one key.
func (d *Dividend) DedupeKey() string {
	return d.ExDate.Format("2006-01-02") + ":" + d.Amount.Round(AmountScale).String()
}

// BeforeCreate hook generates a UUIDv7 for new records
func (d *Dividend) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New()
	}
	return nil
}
