package models

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// AssetClass discriminates the subtype row that belongs to an asset.
type AssetClass string

const (
	AssetClassCurrency AssetClass = "currency"
	AssetClassStock    AssetClass = "stock"
)

// Valid reports whether c is a known asset class.
func (c AssetClass) Valid() bool {
	return c == AssetClassCurrency || c == AssetClassStock
}

// AssetRecord is the base row shared by all asset subtypes.
type AssetRecord struct {
	ID         int32      `gorm:"primaryKey" json:"id"`
	AssetClass AssetClass `gorm:"column:asset_class;not null" json:"asset_class"`
}

func (AssetRecord) TableName() string { return "assets" }

// Asset is either a *Currency or a *Stock.
type Asset interface {
	Class() AssetClass
	// AssetID returns the surrogate key, or 0 if the asset was never stored.
	AssetID() int32
	setAssetID(id int32)
}

// Currency is an asset identified by its ISO 4217 code.
type Currency struct {
	ID             int32  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ISOCode        string `gorm:"column:iso_code;not null;uniqueIndex" json:"iso_code"`
	RoundingDigits int32  `gorm:"column:rounding_digits;not null" json:"rounding_digits"`
}

func (Currency) TableName() string { return "currencies" }

func (c *Currency) Class() AssetClass   { return AssetClassCurrency }
func (c *Currency) AssetID() int32      { return c.ID }
func (c *Currency) setAssetID(id int32) { c.ID = id }

// Round rounds amount to the currency's number of minor-unit digits.
func (c *Currency) Round(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(c.RoundingDigits).InexactFloat64()
}

func (c *Currency) String() string { return c.ISOCode }

// DefaultRoundingDigits is used for currencies created without an explicit digit count.
const DefaultRoundingDigits int32 = 2

// ParseISOCode normalizes a currency code to upper case and checks that it
// consists of exactly three ASCII letters.
func ParseISOCode(code string) (string, bool) {
	if len(code) != 3 {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z') {
			return "", false
		}
	}
	return strings.ToUpper(code), true
}

// Stock is any non-currency instrument.
type Stock struct {
	ID   int32   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string  `gorm:"not null;uniqueIndex" json:"name"`
	WKN  *string `gorm:"column:wkn;uniqueIndex" json:"wkn,omitempty"`
	ISIN *string `gorm:"column:isin;uniqueIndex" json:"isin,omitempty"`
	Note *string `json:"note,omitempty"`
}

func (Stock) TableName() string { return "stocks" }

func (s *Stock) Class() AssetClass   { return AssetClassStock }
func (s *Stock) AssetID() int32      { return s.ID }
func (s *Stock) setAssetID(id int32) { s.ID = id }

// ValidStockName reports whether name can be stored as a stock name.
// Names of exactly three characters are reserved for currency codes.
func ValidStockName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n > 0 && n != 3
}

// SetAssetID records the key assigned when asset was stored.
func SetAssetID(asset Asset, id int32) {
	asset.setAssetID(id)
}
