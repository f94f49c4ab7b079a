package services

import (
	"context"
	"time"

	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/pagination"
)

// AssetServicer defines the contract for assets and their currency and stock subtypes.
type AssetServicer interface {
	InsertAsset(ctx context.Context, asset models.Asset) (int32, error)
	InsertAssetIfNew(ctx context.Context, asset models.Asset, rename bool) (int32, error)
	GetAssetID(ctx context.Context, asset models.Asset) (int32, error)
	GetAssetIDByName(ctx context.Context, name string) (int32, error)
	GetAssetIDByWKN(ctx context.Context, wkn string) (int32, error)
	GetAssetIDByISIN(ctx context.Context, isin string) (int32, error)
	GetAssetByID(ctx context.Context, id int32) (models.Asset, error)
	GetAssetByISIN(ctx context.Context, isin string) (*models.Stock, error)
	GetAllAssets(ctx context.Context) ([]models.Asset, error)
	UpdateAsset(ctx context.Context, asset models.Asset) error
	DeleteAsset(ctx context.Context, id int32) error

	GetAllCurrencies(ctx context.Context) ([]models.Currency, error)
	GetCurrencyByISO(ctx context.Context, isoCode string) (*models.Currency, error)
	GetOrNewCurrency(ctx context.Context, isoCode string) (*models.Currency, error)
	GetOrNewCurrencyWithDigits(ctx context.Context, isoCode string, digits int32) (*models.Currency, error)
	GetRoundingDigits(ctx context.Context, isoCode string) (int32, error)
	SetRoundingDigits(ctx context.Context, isoCode string, digits int32) error
}

// QuoteServicer defines the contract for tickers and their price time series.
type QuoteServicer interface {
	InsertTicker(ctx context.Context, ticker *models.Ticker) (int32, error)
	GetTickerID(ctx context.Context, name string) (int32, error)
	InsertIfNewTicker(ctx context.Context, ticker *models.Ticker) (int32, error)
	GetTickerByID(ctx context.Context, id int32) (*models.Ticker, error)
	GetAllTickers(ctx context.Context) ([]models.Ticker, error)
	GetAllTickersForSource(ctx context.Context, source string) ([]models.Ticker, error)
	GetAllTickersForAsset(ctx context.Context, assetID int32) ([]models.Ticker, error)
	UpdateTicker(ctx context.Context, ticker *models.Ticker) error
	DeleteTicker(ctx context.Context, id int32) error

	InsertQuote(ctx context.Context, quote *models.Quote) (int32, error)
	UpdateQuote(ctx context.Context, quote *models.Quote) error
	DeleteQuote(ctx context.Context, id int32) error

	GetLastQuoteBeforeByID(ctx context.Context, assetID int32, cutoff time.Time) (*models.Quote, *models.Currency, error)
	GetLastQuoteBefore(ctx context.Context, stockName string, cutoff time.Time) (*models.Quote, *models.Currency, error)
	GetLastFxQuoteBefore(ctx context.Context, isoCode string, cutoff time.Time) (*models.Quote, *models.Currency, error)
	GetQuotesInRangeByID(ctx context.Context, assetID int32, start, end time.Time) ([]models.Quote, error)
	GetAllQuotesForTicker(ctx context.Context, tickerID int32) ([]models.Quote, error)
	ListQuotesForTicker(ctx context.Context, tickerID int32, page pagination.PageRequest) (*pagination.PageResponse[models.Quote], error)

	RemoveDuplicates(ctx context.Context) (int64, error)
	FxRate(ctx context.Context, foreign, base string, at time.Time) (float64, error)
	InsertFxQuote(ctx context.Context, rate float64, foreign, base string, at time.Time) error
}

// TransactionServicer defines the contract for the transaction ledger.
type TransactionServicer interface {
	InsertTransaction(ctx context.Context, trans *models.Transaction) (int32, error)
	GetTransactionByID(ctx context.Context, id int32) (*models.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]models.Transaction, error)
	ListTransactions(ctx context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(ctx context.Context, trans *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int32) error
	GetRelatedTransactions(ctx context.Context, id int32) ([]models.Transaction, error)
	GetTransactionChain(ctx context.Context, id int32) ([]models.Transaction, error)
}

// ObjectServicer defines the contract for the keyed JSON document store.
type ObjectServicer interface {
	StoreObject(ctx context.Context, id string, v interface{}) error
	PutRawObject(ctx context.Context, id string, raw []byte) error
	GetObject(ctx context.Context, id string, dest interface{}) error
	GetRawObject(ctx context.Context, id string) ([]byte, error)
	DeleteObject(ctx context.Context, id string) error
}
