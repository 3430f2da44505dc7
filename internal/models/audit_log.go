package models

// AuditLog records mutations of the portfolio ledger.
type AuditLog struct {
	Base
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `gorm:"type:varchar(36)" json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}

// Audit actions.
const (
	AuditActionCreatePortfolio   = "CREATE_PORTFOLIO"
	AuditActionDeletePortfolio   = "DELETE_PORTFOLIO"
	AuditActionCreateTransaction = "CREATE_TRANSACTION"
	AuditActionDeleteTransaction = "DELETE_TRANSACTION"
)
