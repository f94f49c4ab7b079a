package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xemwebe/finql/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestCurrency stores a currency with two rounding digits.
func CreateTestCurrency(t *testing.T, db *gorm.DB, isoCode string) *models.Currency {
	t.Helper()
	return CreateTestCurrencyWithDigits(t, db, isoCode, 2)
}

// CreateTestCurrencyWithDigits stores a currency with the given rounding digits.
func CreateTestCurrencyWithDigits(t *testing.T, db *gorm.DB, isoCode string, digits int32) *models.Currency {
	t.Helper()

	record := createTestAssetRecord(t, db, models.AssetClassCurrency)
	currency := &models.Currency{ID: record.ID, ISOCode: isoCode, RoundingDigits: digits}
	if err := db.Create(currency).Error; err != nil {
		t.Fatalf("failed to create test currency: %v", err)
	}
	return currency
}

// CreateTestStock stores a stock with a unique name and no WKN or ISIN.
func CreateTestStock(t *testing.T, db *gorm.DB) *models.Stock {
	t.Helper()
	return CreateTestStockWithName(t, db, fmt.Sprintf("Test Stock %d", nextID()))
}

// CreateTestStockWithName stores a stock with the given name.
func CreateTestStockWithName(t *testing.T, db *gorm.DB, name string) *models.Stock {
	t.Helper()

	record := createTestAssetRecord(t, db, models.AssetClassStock)
	stock := &models.Stock{ID: record.ID, Name: name}
	if err := db.Create(stock).Error; err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	return stock
}

func createTestAssetRecord(t *testing.T, db *gorm.DB, class models.AssetClass) *models.AssetRecord {
	t.Helper()

	record := &models.AssetRecord{AssetClass: class}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return record
}

// CreateTestTicker stores a ticker for assetID quoted in currencyID.
func CreateTestTicker(t *testing.T, db *gorm.DB, assetID, currencyID int32, priority int32) *models.Ticker {
	t.Helper()

	ticker := &models.Ticker{
		Name:       fmt.Sprintf("TICK%d", nextID()),
		AssetID:    assetID,
		Source:     "test",
		Priority:   priority,
		CurrencyID: currencyID,
		Factor:     1.0,
	}
	if err := db.Omit("Currency").Create(ticker).Error; err != nil {
		t.Fatalf("failed to create test ticker: %v", err)
	}
	return ticker
}

// CreateTestQuote stores a quote of tickerID at the given time.
func CreateTestQuote(t *testing.T, db *gorm.DB, tickerID int32, price float64, at time.Time) *models.Quote {
	t.Helper()

	quote := &models.Quote{TickerID: tickerID, Price: price, Time: at.UTC()}
	if err := db.Create(quote).Error; err != nil {
		t.Fatalf("failed to create test quote: %v", err)
	}
	return quote
}

// CreateTestTransaction stores a cash transaction of amount in currencyID.
func CreateTestTransaction(t *testing.T, db *gorm.DB, currencyID int32, amount float64) *models.Transaction {
	t.Helper()

	trans := &models.Transaction{
		Type:           models.TransactionTypeCash,
		CashAmount:     amount,
		CashCurrencyID: currencyID,
		CashDate:       datatypes.Date(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
	}
	if err := db.Omit("CashCurrency").Create(trans).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return trans
}
