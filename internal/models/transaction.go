package models

import (
	"database/sql/driver"
	"fmt"

	"gorm.io/datatypes"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeCash     TransactionType = "cash"
	TransactionTypeAsset    TransactionType = "asset"
	TransactionTypeDividend TransactionType = "dividend"
	TransactionTypeInterest TransactionType = "interest"
	TransactionTypeTax      TransactionType = "tax"
	TransactionTypeFee      TransactionType = "fee"
)

var transactionTypeCodes = map[TransactionType]string{
	TransactionTypeCash:     "c",
	TransactionTypeAsset:    "a",
	TransactionTypeDividend: "d",
	TransactionTypeInterest: "i",
	TransactionTypeTax:      "t",
	TransactionTypeFee:      "f",
}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	_, ok := transactionTypeCodes[t]
	return ok
}

// Value stores the type as its one-letter code.
func (t TransactionType) Value() (driver.Value, error) {
	code, ok := transactionTypeCodes[t]
	if !ok {
		return nil, fmt.Errorf("unknown transaction type %q", string(t))
	}
	return code, nil
}

// Scan reads a one-letter code.
func (t *TransactionType) Scan(value interface{}) error {
	var code string
	switch v := value.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	default:
		return fmt.Errorf("cannot scan %T into TransactionType", value)
	}
	for typ, c := range transactionTypeCodes {
		if c == code {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown transaction type code %q", code)
}

// Transaction is a ledger entry: a cash flow in one currency, optionally tied
// to an asset position or to another transaction (taxes and fees).
type Transaction struct {
	ID             int32           `gorm:"primaryKey" json:"id"`
	Type           TransactionType `gorm:"column:trans_type;not null" json:"type"`
	AssetID        *int32          `json:"asset_id,omitempty"`
	CashAmount     float64         `gorm:"not null" json:"cash_amount"`
	CashCurrencyID int32           `gorm:"column:cash_currency_id;not null" json:"cash_currency_id"`
	CashCurrency   Currency        `gorm:"foreignKey:CashCurrencyID" json:"cash_currency"`
	CashDate       datatypes.Date  `gorm:"not null" json:"cash_date"`
	RelatedTrans   *int32          `gorm:"column:related_trans" json:"related_trans,omitempty"`
	Position       *float64        `json:"position,omitempty"`
	Note           *string         `json:"note,omitempty"`
}

func (Transaction) TableName() string { return "transactions" }

// Validate checks the fields each transaction type requires.
func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", string(t.Type))
	}
	if t.CashCurrencyID == 0 {
		return fmt.Errorf("cash currency is required")
	}
	switch t.Type {
	case TransactionTypeAsset:
		if t.AssetID == nil || t.Position == nil {
			return fmt.Errorf("asset transaction requires asset_id and position")
		}
	case TransactionTypeDividend, TransactionTypeInterest:
		if t.AssetID == nil {
			return fmt.Errorf("%s transaction requires asset_id", t.Type)
		}
	}
	return nil
}
