package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/pagination"
	"github.com/xemwebe/finql/internal/services"
	"github.com/xemwebe/finql/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

// --- shared helpers ---

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func strPtr(s string) *string { return &s }

// --- mock asset service ---

type mockAssetService struct {
	insertAssetFn       func(asset models.Asset) (int32, error)
	insertAssetIfNewFn  func(asset models.Asset, rename bool) (int32, error)
	getAssetIDByNameFn  func(name string) (int32, error)
	getAssetIDByWKNFn   func(wkn string) (int32, error)
	getAssetIDByISINFn  func(isin string) (int32, error)
	getAssetByIDFn      func(id int32) (models.Asset, error)
	getAllAssetsFn      func() ([]models.Asset, error)
	updateAssetFn       func(asset models.Asset) error
	deleteAssetFn       func(id int32) error
	getAllCurrenciesFn  func() ([]models.Currency, error)
	getCurrencyByISOFn  func(iso string) (*models.Currency, error)
	setRoundingDigitsFn func(iso string, digits int32) error
}

var _ services.AssetServicer = (*mockAssetService)(nil)

func (m *mockAssetService) InsertAsset(_ context.Context, asset models.Asset) (int32, error) {
	if m.insertAssetFn != nil {
		return m.insertAssetFn(asset)
	}
	models.SetAssetID(asset, 1)
	return 1, nil
}

func (m *mockAssetService) InsertAssetIfNew(_ context.Context, asset models.Asset, rename bool) (int32, error) {
	if m.insertAssetIfNewFn != nil {
		return m.insertAssetIfNewFn(asset, rename)
	}
	models.SetAssetID(asset, 1)
	return 1, nil
}

func (m *mockAssetService) GetAssetID(_ context.Context, _ models.Asset) (int32, error) {
	return 0, apperrors.ErrAssetNotFound
}

func (m *mockAssetService) GetAssetIDByName(_ context.Context, name string) (int32, error) {
	if m.getAssetIDByNameFn != nil {
		return m.getAssetIDByNameFn(name)
	}
	return 0, apperrors.ErrAssetNotFound
}

func (m *mockAssetService) GetAssetIDByWKN(_ context.Context, wkn string) (int32, error) {
	if m.getAssetIDByWKNFn != nil {
		return m.getAssetIDByWKNFn(wkn)
	}
	return 0, apperrors.ErrAssetNotFound
}

func (m *mockAssetService) GetAssetIDByISIN(_ context.Context, isin string) (int32, error) {
	if m.getAssetIDByISINFn != nil {
		return m.getAssetIDByISINFn(isin)
	}
	return 0, apperrors.ErrAssetNotFound
}

func (m *mockAssetService) GetAssetByID(_ context.Context, id int32) (models.Asset, error) {
	if m.getAssetByIDFn != nil {
		return m.getAssetByIDFn(id)
	}
	return nil, apperrors.ErrAssetNotFound
}

func (m *mockAssetService) GetAssetByISIN(_ context.Context, _ string) (*models.Stock, error) {
	return nil, apperrors.ErrAssetNotFound
}

func (m *mockAssetService) GetAllAssets(_ context.Context) ([]models.Asset, error) {
	if m.getAllAssetsFn != nil {
		return m.getAllAssetsFn()
	}
	return nil, nil
}

func (m *mockAssetService) UpdateAsset(_ context.Context, asset models.Asset) error {
	if m.updateAssetFn != nil {
		return m.updateAssetFn(asset)
	}
	return nil
}

func (m *mockAssetService) DeleteAsset(_ context.Context, id int32) error {
	if m.deleteAssetFn != nil {
		return m.deleteAssetFn(id)
	}
	return nil
}

func (m *mockAssetService) GetAllCurrencies(_ context.Context) ([]models.Currency, error) {
	if m.getAllCurrenciesFn != nil {
		return m.getAllCurrenciesFn()
	}
	return nil, nil
}

func (m *mockAssetService) GetCurrencyByISO(_ context.Context, iso string) (*models.Currency, error) {
	if m.getCurrencyByISOFn != nil {
		return m.getCurrencyByISOFn(iso)
	}
	return nil, apperrors.ErrCurrencyNotFound
}

func (m *mockAssetService) GetOrNewCurrency(_ context.Context, iso string) (*models.Currency, error) {
	return &models.Currency{ID: 1, ISOCode: iso, RoundingDigits: models.DefaultRoundingDigits}, nil
}

func (m *mockAssetService) GetOrNewCurrencyWithDigits(_ context.Context, iso string, digits int32) (*models.Currency, error) {
	return &models.Currency{ID: 1, ISOCode: iso, RoundingDigits: digits}, nil
}

func (m *mockAssetService) GetRoundingDigits(_ context.Context, _ string) (int32, error) {
	return models.DefaultRoundingDigits, nil
}

func (m *mockAssetService) SetRoundingDigits(_ context.Context, iso string, digits int32) error {
	if m.setRoundingDigitsFn != nil {
		return m.setRoundingDigitsFn(iso, digits)
	}
	return nil
}

// --- mock quote service ---

type mockQuoteService struct {
	insertTickerFn           func(ticker *models.Ticker) (int32, error)
	insertIfNewTickerFn      func(ticker *models.Ticker) (int32, error)
	getTickerByIDFn          func(id int32) (*models.Ticker, error)
	getAllTickersFn          func() ([]models.Ticker, error)
	getAllTickersForSourceFn func(source string) ([]models.Ticker, error)
	getAllTickersForAssetFn  func(assetID int32) ([]models.Ticker, error)
	updateTickerFn           func(ticker *models.Ticker) error
	deleteTickerFn           func(id int32) error
	insertQuoteFn            func(quote *models.Quote) (int32, error)
	updateQuoteFn            func(quote *models.Quote) error
	deleteQuoteFn            func(id int32) error
	lastQuoteByIDFn          func(assetID int32, cutoff time.Time) (*models.Quote, *models.Currency, error)
	lastQuoteFn              func(name string, cutoff time.Time) (*models.Quote, *models.Currency, error)
	lastFxQuoteFn            func(iso string, cutoff time.Time) (*models.Quote, *models.Currency, error)
	quotesInRangeFn          func(assetID int32, start, end time.Time) ([]models.Quote, error)
	listQuotesForTickerFn    func(tickerID int32, page pagination.PageRequest) (*pagination.PageResponse[models.Quote], error)
	removeDuplicatesFn       func() (int64, error)
	fxRateFn                 func(foreign, base string, at time.Time) (float64, error)
	insertFxQuoteFn          func(rate float64, foreign, base string, at time.Time) error
}

var _ services.QuoteServicer = (*mockQuoteService)(nil)

func (m *mockQuoteService) InsertTicker(_ context.Context, ticker *models.Ticker) (int32, error) {
	if m.insertTickerFn != nil {
		return m.insertTickerFn(ticker)
	}
	ticker.ID = 1
	return 1, nil
}

func (m *mockQuoteService) GetTickerID(_ context.Context, _ string) (int32, error) {
	return 0, apperrors.ErrTickerNotFound
}

func (m *mockQuoteService) InsertIfNewTicker(_ context.Context, ticker *models.Ticker) (int32, error) {
	if m.insertIfNewTickerFn != nil {
		return m.insertIfNewTickerFn(ticker)
	}
	ticker.ID = 1
	return 1, nil
}

func (m *mockQuoteService) GetTickerByID(_ context.Context, id int32) (*models.Ticker, error) {
	if m.getTickerByIDFn != nil {
		return m.getTickerByIDFn(id)
	}
	return nil, apperrors.ErrTickerNotFound
}

func (m *mockQuoteService) GetAllTickers(_ context.Context) ([]models.Ticker, error) {
	if m.getAllTickersFn != nil {
		return m.getAllTickersFn()
	}
	return nil, nil
}

func (m *mockQuoteService) GetAllTickersForSource(_ context.Context, source string) ([]models.Ticker, error) {
	if m.getAllTickersForSourceFn != nil {
		return m.getAllTickersForSourceFn(source)
	}
	return nil, nil
}

func (m *mockQuoteService) GetAllTickersForAsset(_ context.Context, assetID int32) ([]models.Ticker, error) {
	if m.getAllTickersForAssetFn != nil {
		return m.getAllTickersForAssetFn(assetID)
	}
	return nil, nil
}

func (m *mockQuoteService) UpdateTicker(_ context.Context, ticker *models.Ticker) error {
	if m.updateTickerFn != nil {
		return m.updateTickerFn(ticker)
	}
	return nil
}

func (m *mockQuoteService) DeleteTicker(_ context.Context, id int32) error {
	if m.deleteTickerFn != nil {
		return m.deleteTickerFn(id)
	}
	return nil
}

func (m *mockQuoteService) InsertQuote(_ context.Context, quote *models.Quote) (int32, error) {
	if m.insertQuoteFn != nil {
		return m.insertQuoteFn(quote)
	}
	quote.ID = 1
	return 1, nil
}

func (m *mockQuoteService) UpdateQuote(_ context.Context, quote *models.Quote) error {
	if m.updateQuoteFn != nil {
		return m.updateQuoteFn(quote)
	}
	return nil
}

func (m *mockQuoteService) DeleteQuote(_ context.Context, id int32) error {
	if m.deleteQuoteFn != nil {
		return m.deleteQuoteFn(id)
	}
	return nil
}

func (m *mockQuoteService) GetLastQuoteBeforeByID(_ context.Context, assetID int32, cutoff time.Time) (*models.Quote, *models.Currency, error) {
	if m.lastQuoteByIDFn != nil {
		return m.lastQuoteByIDFn(assetID, cutoff)
	}
	return nil, nil, apperrors.ErrQuoteNotFound
}

func (m *mockQuoteService) GetLastQuoteBefore(_ context.Context, name string, cutoff time.Time) (*models.Quote, *models.Currency, error) {
	if m.lastQuoteFn != nil {
		return m.lastQuoteFn(name, cutoff)
	}
	return nil, nil, apperrors.ErrQuoteNotFound
}

func (m *mockQuoteService) GetLastFxQuoteBefore(_ context.Context, iso string, cutoff time.Time) (*models.Quote, *models.Currency, error) {
	if m.lastFxQuoteFn != nil {
		return m.lastFxQuoteFn(iso, cutoff)
	}
	return nil, nil, apperrors.ErrQuoteNotFound
}

func (m *mockQuoteService) GetQuotesInRangeByID(_ context.Context, assetID int32, start, end time.Time) ([]models.Quote, error) {
	if m.quotesInRangeFn != nil {
		return m.quotesInRangeFn(assetID, start, end)
	}
	return nil, nil
}

func (m *mockQuoteService) GetAllQuotesForTicker(_ context.Context, _ int32) ([]models.Quote, error) {
	return nil, nil
}

func (m *mockQuoteService) ListQuotesForTicker(_ context.Context, tickerID int32, page pagination.PageRequest) (*pagination.PageResponse[models.Quote], error) {
	if m.listQuotesForTickerFn != nil {
		return m.listQuotesForTickerFn(tickerID, page)
	}
	resp := pagination.NewPageResponse([]models.Quote{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockQuoteService) RemoveDuplicates(_ context.Context) (int64, error) {
	if m.removeDuplicatesFn != nil {
		return m.removeDuplicatesFn()
	}
	return 0, nil
}

func (m *mockQuoteService) FxRate(_ context.Context, foreign, base string, at time.Time) (float64, error) {
	if m.fxRateFn != nil {
		return m.fxRateFn(foreign, base, at)
	}
	return 1, nil
}

func (m *mockQuoteService) InsertFxQuote(_ context.Context, rate float64, foreign, base string, at time.Time) error {
	if m.insertFxQuoteFn != nil {
		return m.insertFxQuoteFn(rate, foreign, base, at)
	}
	return nil
}

// --- mock transaction service ---

type mockTransactionService struct {
	insertTransactionFn  func(trans *models.Transaction) (int32, error)
	getTransactionByIDFn func(id int32) (*models.Transaction, error)
	listTransactionsFn   func(page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	updateTransactionFn  func(trans *models.Transaction) error
	deleteTransactionFn  func(id int32) error
	relatedFn            func(id int32) ([]models.Transaction, error)
	chainFn              func(id int32) ([]models.Transaction, error)
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func (m *mockTransactionService) InsertTransaction(_ context.Context, trans *models.Transaction) (int32, error) {
	if m.insertTransactionFn != nil {
		return m.insertTransactionFn(trans)
	}
	trans.ID = 1
	return 1, nil
}

func (m *mockTransactionService) GetTransactionByID(_ context.Context, id int32) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(id)
	}
	return nil, apperrors.ErrTransactionNotFound
}

func (m *mockTransactionService) GetAllTransactions(_ context.Context) ([]models.Transaction, error) {
	return nil, nil
}

func (m *mockTransactionService) ListTransactions(_ context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.listTransactionsFn != nil {
		return m.listTransactionsFn(page)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockTransactionService) UpdateTransaction(_ context.Context, trans *models.Transaction) error {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(trans)
	}
	return nil
}

func (m *mockTransactionService) DeleteTransaction(_ context.Context, id int32) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(id)
	}
	return nil
}

func (m *mockTransactionService) GetRelatedTransactions(_ context.Context, id int32) ([]models.Transaction, error) {
	if m.relatedFn != nil {
		return m.relatedFn(id)
	}
	return nil, nil
}

func (m *mockTransactionService) GetTransactionChain(_ context.Context, id int32) ([]models.Transaction, error) {
	if m.chainFn != nil {
		return m.chainFn(id)
	}
	return nil, apperrors.ErrTransactionNotFound
}

// --- mock object service ---

type mockObjectService struct {
	putRawObjectFn func(id string, raw []byte) error
	getRawObjectFn func(id string) ([]byte, error)
	deleteObjectFn func(id string) error
}

var _ services.ObjectServicer = (*mockObjectService)(nil)

func (m *mockObjectService) StoreObject(_ context.Context, _ string, _ interface{}) error {
	return nil
}

func (m *mockObjectService) PutRawObject(_ context.Context, id string, raw []byte) error {
	if m.putRawObjectFn != nil {
		return m.putRawObjectFn(id, raw)
	}
	return nil
}

func (m *mockObjectService) GetObject(_ context.Context, _ string, _ interface{}) error {
	return apperrors.ErrObjectNotFound
}

func (m *mockObjectService) GetRawObject(_ context.Context, id string) ([]byte, error) {
	if m.getRawObjectFn != nil {
		return m.getRawObjectFn(id)
	}
	return nil, apperrors.ErrObjectNotFound
}

func (m *mockObjectService) DeleteObject(_ context.Context, id string) error {
	if m.deleteObjectFn != nil {
		return m.deleteObjectFn(id)
	}
	return nil
}
