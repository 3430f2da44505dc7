package models

// Portfolio is a client portfolio managed by an advisor.
type Portfolio struct {
	Base
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	Type         string `gorm:"type:varchar(50);not null" json:"type"`
	BaseCurrency string `gorm:"type:varchar(3);not null;default:BRL" json:"base_currency"`
}
