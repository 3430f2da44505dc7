package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/felipemaiocch/wenvest/internal/uuid"
)

// PriceHistory is one daily bar for a ticker.
// This is immutable time-series data: no Base embed, no soft deletes.
type PriceHistory struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Ticker    string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_price_history_ticker_date" json:"ticker"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_price_history_ticker_date" json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `gorm:"not null" json:"close"`
	Volume    int64     `json:"volume"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the singular table name used by the SQL migrations.
func (PriceHistory) TableName() string { return "price_history" }

// BeforeCreate hook generates a UUIDv7 for new records
func (p *PriceHistory) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New()
	}
	return nil
}
