// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/xemwebe/finql/internal/models"
)

var (
	// Two-letter country code, nine alphanumerics, one check digit.
	isinRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	// German securities identification number.
	wknRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers all custom validators with v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("iso_code", validateISOCode)
	_ = v.RegisterValidation("isin", validateISIN)
	_ = v.RegisterValidation("wkn", validateWKN)
	_ = v.RegisterValidation("asset_class", validateAssetClass)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("stock_name", validateStockName)
}

func validateISOCode(fl validator.FieldLevel) bool {
	_, ok := models.ParseISOCode(fl.Field().String())
	return ok
}

// validateISIN checks the format and the Luhn check digit of an ISIN.
func validateISIN(fl validator.FieldLevel) bool {
	isin := fl.Field().String()
	if !isinRegex.MatchString(isin) {
		return false
	}
	return isinChecksumValid(isin)
}

func isinChecksumValid(isin string) bool {
	// Letters expand to two digits (A=10 ... Z=35) before the Luhn check.
	digits := make([]int, 0, 24)
	for _, ch := range isin {
		if ch >= 'A' && ch <= 'Z' {
			n := int(ch-'A') + 10
			digits = append(digits, n/10, n%10)
		} else {
			digits = append(digits, int(ch-'0'))
		}
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func validateWKN(fl validator.FieldLevel) bool {
	return wknRegex.MatchString(fl.Field().String())
}

func validateAssetClass(fl validator.FieldLevel) bool {
	return models.AssetClass(fl.Field().String()).Valid()
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}

func validateStockName(fl validator.FieldLevel) bool {
	return models.ValidStockName(fl.Field().String())
}
