package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of ledger entry.
type TransactionType string

const (
	TransactionTypeBuy      TransactionType = "BUY"
	TransactionTypeSell     TransactionType = "SELL"
	TransactionTypeDividend TransactionType = "DIVIDEND"
)

// Valid reports whether t is one of the known ledger entry kinds.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeBuy, TransactionTypeSell, TransactionTypeDividend:
		return true
	}
	return false
}

// DefaultOrigin tags transactions entered by hand.
const DefaultOrigin = "Manual"

// Transaction is one entry of a portfolio's append-only ledger.
type Transaction struct {
	Base
	PortfolioID string          `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	Ticker      string          `gorm:"type:varchar(20);not null;index" json:"ticker"`
	Type        TransactionType `gorm:"type:varchar(10);not null" json:"type"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Quantity    decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"quantity" swaggertype:"string"`
	Price       decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"price" swaggertype:"string"`
	Total       decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"total" swaggertype:"string"`
	Origin      string          `gorm:"type:varchar(50);not null;default:Manual" json:"origin"`
}
