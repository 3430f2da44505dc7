// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/felipemaiocch/wenvest/internal/models"
)

// tickerRegex accepts exchange symbols such as PETR4, PETR4.SA, BRK-B and ^BVSP.
var tickerRegex = regexp.MustCompile(`^\^?[A-Za-z0-9]{1,12}([.\-=][A-Za-z0-9]{1,6})?$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("ticker", validateTicker)
	}
}

// validateISO4217 accepts currency codes known to go-money, case-insensitively.
func validateISO4217(fl validator.FieldLevel) bool {
	return IsCurrency(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(strings.ToUpper(fl.Field().String())).Valid()
}

func validateTicker(fl validator.FieldLevel) bool {
	return IsTicker(fl.Field().String())
}

// IsCurrency reports whether code is an ISO 4217 currency code.
func IsCurrency(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	return len(code) == 3 && money.GetCurrency(code) != nil
}

// IsTicker reports whether s looks like an exchange symbol.
func IsTicker(s string) bool {
	return tickerRegex.MatchString(strings.TrimSpace(s))
}
