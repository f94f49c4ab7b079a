package services

import (
	"context"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/pagination"
)

// Exchange rates written by InsertFxQuote are stored under manual tickers.
const (
	FxQuoteSource   = "manual"
	FxQuotePriority = 10
)

// quoteService handles tickers and their quote time series.
type quoteService struct {
	db *gorm.DB
}

// NewQuoteService creates a new QuoteServicer.
func NewQuoteService(db *gorm.DB) QuoteServicer {
	return &quoteService{db: db}
}

// InsertTicker stores a new ticker and returns its id.
func (s *quoteService) InsertTicker(ctx context.Context, ticker *models.Ticker) (int32, error) {
	if err := validateTicker(ticker); err != nil {
		return 0, err
	}
	ticker.ID = 0

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(ticker).Error; err != nil {
		return 0, translateError(err, apperrors.ErrTickerNotFound, nil)
	}
	return ticker.ID, nil
}

// GetTickerID returns the id of the first ticker with the given name.
func (s *quoteService) GetTickerID(ctx context.Context, name string) (int32, error) {
	var ticker models.Ticker
	if err := s.db.WithContext(ctx).Select("id").Where("name = ?", name).Order("id ASC").Take(&ticker).Error; err != nil {
		return 0, translateError(err, apperrors.ErrTickerNotFound, nil)
	}
	return ticker.ID, nil
}

// InsertIfNewTicker returns the id of a stored ticker with the same name and
// source, or inserts the ticker.
func (s *quoteService) InsertIfNewTicker(ctx context.Context, ticker *models.Ticker) (int32, error) {
	var existing models.Ticker
	err := s.db.WithContext(ctx).Select("id").
		Where("name = ? AND source = ?", ticker.Name, ticker.Source).
		Order("id ASC").
		Take(&existing).Error
	if err == nil {
		ticker.ID = existing.ID
		return existing.ID, nil
	}
	if err = translateError(err, apperrors.ErrTickerNotFound, nil); !apperrors.IsNotFound(err) {
		return 0, err
	}
	return s.InsertTicker(ctx, ticker)
}

// GetTickerByID returns a ticker with its quote currency.
func (s *quoteService) GetTickerByID(ctx context.Context, id int32) (*models.Ticker, error) {
	var ticker models.Ticker
	if err := s.db.WithContext(ctx).Preload("Currency").Take(&ticker, id).Error; err != nil {
		return nil, translateError(err, apperrors.ErrTickerNotFound, nil)
	}
	return &ticker, nil
}

// GetAllTickers returns every ticker ordered by id.
func (s *quoteService) GetAllTickers(ctx context.Context) ([]models.Ticker, error) {
	return s.findTickers(ctx, nil)
}

// GetAllTickersForSource returns the tickers of one quote source.
func (s *quoteService) GetAllTickersForSource(ctx context.Context, source string) ([]models.Ticker, error) {
	return s.findTickers(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("source = ?", source) })
}

// GetAllTickersForAsset returns the tickers quoting one asset.
func (s *quoteService) GetAllTickersForAsset(ctx context.Context, assetID int32) ([]models.Ticker, error) {
	return s.findTickers(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("asset_id = ?", assetID) })
}

func (s *quoteService) findTickers(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.Ticker, error) {
	query := s.db.WithContext(ctx).Preload("Currency").Order("id ASC")
	if scope != nil {
		query = query.Scopes(scope)
	}

	var tickers []models.Ticker
	if err := query.Find(&tickers).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}
	return tickers, nil
}

// UpdateTicker overwrites a stored ticker.
func (s *quoteService) UpdateTicker(ctx context.Context, ticker *models.Ticker) error {
	if ticker.ID == 0 {
		return apperrors.ErrTickerNotFound
	}
	if err := validateTicker(ticker); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&models.Ticker{}).Where("id = ?", ticker.ID).Updates(map[string]interface{}{
		"name":        ticker.Name,
		"asset_id":    ticker.AssetID,
		"source":      ticker.Source,
		"priority":    ticker.Priority,
		"currency_id": ticker.CurrencyID,
		"factor":      ticker.Factor,
		"tz":          ticker.Tz,
		"cal":         ticker.Cal,
	})
	return translateError(requireRow(result, apperrors.ErrTickerNotFound), apperrors.ErrTickerNotFound, nil)
}

// DeleteTicker removes a ticker. Tickers that still have quotes cannot be deleted.
func (s *quoteService) DeleteTicker(ctx context.Context, id int32) error {
	result := s.db.WithContext(ctx).Delete(&models.Ticker{}, id)
	return translateError(requireRow(result, apperrors.ErrTickerNotFound), apperrors.ErrTickerNotFound, nil)
}

// InsertQuote appends a quote and returns its id.
func (s *quoteService) InsertQuote(ctx context.Context, quote *models.Quote) (int32, error) {
	if quote.TickerID == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker is required")
	}
	if quote.Time.IsZero() {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Quote time is required")
	}
	quote.ID = 0
	quote.Time = quote.Time.UTC()

	if err := s.db.WithContext(ctx).Create(quote).Error; err != nil {
		return 0, translateError(err, apperrors.ErrQuoteNotFound, nil)
	}
	return quote.ID, nil
}

// UpdateQuote corrects a stored quote.
func (s *quoteService) UpdateQuote(ctx context.Context, quote *models.Quote) error {
	if quote.ID == 0 {
		return apperrors.ErrQuoteNotFound
	}
	if quote.TickerID == 0 || quote.Time.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker and time are required")
	}
	quote.Time = quote.Time.UTC()

	result := s.db.WithContext(ctx).Model(&models.Quote{}).Where("id = ?", quote.ID).Updates(map[string]interface{}{
		"ticker_id": quote.TickerID,
		"price":     quote.Price,
		"time":      quote.Time,
		"volume":    quote.Volume,
	})
	return translateError(requireRow(result, apperrors.ErrQuoteNotFound), apperrors.ErrQuoteNotFound, nil)
}

// DeleteQuote removes a single quote.
func (s *quoteService) DeleteQuote(ctx context.Context, id int32) error {
	result := s.db.WithContext(ctx).Delete(&models.Quote{}, id)
	return translateError(requireRow(result, apperrors.ErrQuoteNotFound), apperrors.ErrQuoteNotFound, nil)
}

// latestQuoteRow is a quote joined with the currency of its ticker.
type latestQuoteRow struct {
	ID             int32     `gorm:"column:id"`
	TickerID       int32     `gorm:"column:ticker_id"`
	Price          float64   `gorm:"column:price"`
	Time           time.Time `gorm:"column:time"`
	Volume         *float64  `gorm:"column:volume"`
	CurrencyID     int32     `gorm:"column:currency_id"`
	ISOCode        string    `gorm:"column:iso_code"`
	RoundingDigits int32     `gorm:"column:rounding_digits"`
}

// lastQuoteBefore returns the newest quote at or before cutoff among the
// quotes selected by scope. At equal times the ticker with the lower priority
// value wins, then the lower quote id.
func (s *quoteService) lastQuoteBefore(ctx context.Context, cutoff time.Time, scope func(*gorm.DB) *gorm.DB) (*models.Quote, *models.Currency, error) {
	var row latestQuoteRow
	result := s.db.WithContext(ctx).
		Table("quotes q").
		Select("q.id, q.ticker_id, q.price, q.time, q.volume, c.id AS currency_id, c.iso_code, c.rounding_digits").
		Joins("JOIN ticker t ON t.id = q.ticker_id").
		Joins("JOIN currencies c ON c.id = t.currency_id").
		Scopes(scope).
		Where("q.time <= ?", cutoff.UTC()).
		Order("q.time DESC").
		Order("t.priority ASC").
		Order("q.id ASC").
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, nil, translateError(result.Error, nil, nil)
	}
	if result.RowsAffected == 0 {
		return nil, nil, apperrors.ErrQuoteNotFound
	}

	quote := &models.Quote{
		ID:       row.ID,
		TickerID: row.TickerID,
		Price:    row.Price,
		Time:     row.Time.UTC(),
		Volume:   row.Volume,
	}
	currency := &models.Currency{
		ID:             row.CurrencyID,
		ISOCode:        strings.TrimSpace(row.ISOCode),
		RoundingDigits: row.RoundingDigits,
	}
	return quote, currency, nil
}

// GetLastQuoteBeforeByID returns the latest quote of an asset at or before cutoff.
func (s *quoteService) GetLastQuoteBeforeByID(ctx context.Context, assetID int32, cutoff time.Time) (*models.Quote, *models.Currency, error) {
	return s.lastQuoteBefore(ctx, cutoff, func(db *gorm.DB) *gorm.DB {
		return db.Where("t.asset_id = ?", assetID)
	})
}

// GetLastQuoteBefore returns the latest quote of the named stock at or before cutoff.
func (s *quoteService) GetLastQuoteBefore(ctx context.Context, stockName string, cutoff time.Time) (*models.Quote, *models.Currency, error) {
	return s.lastQuoteBefore(ctx, cutoff, func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN stocks s ON s.id = t.asset_id").Where("s.name = ?", stockName)
	})
}

// GetLastFxQuoteBefore returns the latest quote of a currency, priced in the
// ticker's currency, at or before cutoff.
func (s *quoteService) GetLastFxQuoteBefore(ctx context.Context, isoCode string, cutoff time.Time) (*models.Quote, *models.Currency, error) {
	iso, ok := models.ParseISOCode(isoCode)
	if !ok {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Currency code must consist of three letters")
	}
	return s.lastQuoteBefore(ctx, cutoff, func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN currencies fx ON fx.id = t.asset_id").Where("fx.iso_code = ?", iso)
	})
}

// GetQuotesInRangeByID returns all quotes of an asset with start <= time <= end,
// newest first. Quotes at the same time are ordered by ticker priority.
func (s *quoteService) GetQuotesInRangeByID(ctx context.Context, assetID int32, start, end time.Time) ([]models.Quote, error) {
	if end.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Range end must not be before its start")
	}

	var quotes []models.Quote
	err := s.db.WithContext(ctx).
		Select("quotes.*").
		Joins("JOIN ticker t ON t.id = quotes.ticker_id").
		Where("t.asset_id = ? AND quotes.time >= ? AND quotes.time <= ?", assetID, start.UTC(), end.UTC()).
		Order("quotes.time DESC").
		Order("t.priority ASC").
		Order("quotes.id ASC").
		Find(&quotes).Error
	if err != nil {
		return nil, translateError(err, nil, nil)
	}
	return utcQuotes(quotes), nil
}

// GetAllQuotesForTicker returns every quote of a ticker, oldest first.
func (s *quoteService) GetAllQuotesForTicker(ctx context.Context, tickerID int32) ([]models.Quote, error) {
	var quotes []models.Quote
	err := s.db.WithContext(ctx).
		Where("ticker_id = ?", tickerID).
		Order("time ASC").
		Order("id ASC").
		Find(&quotes).Error
	if err != nil {
		return nil, translateError(err, nil, nil)
	}
	return utcQuotes(quotes), nil
}

// ListQuotesForTicker returns one page of a ticker's quotes, newest first.
func (s *quoteService) ListQuotesForTicker(ctx context.Context, tickerID int32, page pagination.PageRequest) (*pagination.PageResponse[models.Quote], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.WithContext(ctx).Model(&models.Quote{}).Where("ticker_id = ?", tickerID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}

	var quotes []models.Quote
	if err := base.Order("time DESC").Order("id ASC").Scopes(pagination.Paginate(page)).Find(&quotes).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}

	result := pagination.NewPageResponse(utcQuotes(quotes), page.Page, page.PageSize, totalItems)
	return &result, nil
}

// RemoveDuplicates deletes every quote for which a quote with a lower id and
// the same ticker, time and price exists, and returns the number deleted.
func (s *quoteService) RemoveDuplicates(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Exec(`DELETE FROM quotes WHERE id IN (
		SELECT q2.id FROM quotes q1
		JOIN quotes q2 ON q1.ticker_id = q2.ticker_id
			AND q1.time = q2.time
			AND q1.price = q2.price
			AND q1.id < q2.id
	)`)
	if result.Error != nil {
		return 0, translateError(result.Error, nil, nil)
	}
	return result.RowsAffected, nil
}

// FxRate returns the price of one unit of foreign in base at time at. Equal
// currencies convert at 1. Otherwise the latest quote of foreign whose ticker
// is priced in base is used.
func (s *quoteService) FxRate(ctx context.Context, foreign, base string, at time.Time) (float64, error) {
	foreignISO, ok := models.ParseISOCode(foreign)
	if !ok {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Currency code must consist of three letters")
	}
	baseISO, ok := models.ParseISOCode(base)
	if !ok {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Currency code must consist of three letters")
	}
	if foreignISO == baseISO {
		return 1.0, nil
	}

	quote, _, err := s.lastQuoteBefore(ctx, at, func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN currencies fx ON fx.id = t.asset_id").
			Where("fx.iso_code = ? AND c.iso_code = ?", foreignISO, baseISO)
	})
	if apperrors.IsNotFound(err) {
		return 0, apperrors.WithMessage(apperrors.ErrConversionFailed,
			"No exchange rate from "+foreignISO+" to "+baseISO)
	}
	if err != nil {
		return 0, err
	}
	return quote.Price, nil
}

// InsertFxQuote stores rate as the price of one unit of foreign in base at
// time at, together with the inverse quote of base in foreign. Missing
// currencies and their "FOREIGN/BASE" tickers are created on the way. All
// rows are written in one transaction.
func (s *quoteService) InsertFxQuote(ctx context.Context, rate float64, foreign, base string, at time.Time) error {
	foreignISO, ok := models.ParseISOCode(foreign)
	if !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Currency code must consist of three letters")
	}
	baseISO, ok := models.ParseISOCode(base)
	if !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Currency code must consist of three letters")
	}
	if foreignISO == baseISO {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Exchange rate needs two different currencies")
	}
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Exchange rate must be a positive number")
	}
	if at.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Quote time is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assets := &assetService{db: tx}
		quotes := &quoteService{db: tx}

		foreignCurrency, err := assets.GetOrNewCurrency(ctx, foreignISO)
		if err != nil {
			return err
		}
		baseCurrency, err := assets.GetOrNewCurrency(ctx, baseISO)
		if err != nil {
			return err
		}

		if err := quotes.insertFxLeg(ctx, foreignCurrency, baseCurrency, rate, at); err != nil {
			return err
		}
		return quotes.insertFxLeg(ctx, baseCurrency, foreignCurrency, 1/rate, at)
	})
	return translateError(err, nil, nil)
}

// insertFxLeg stores price as the quote of foreign in base.
func (s *quoteService) insertFxLeg(ctx context.Context, foreign, base *models.Currency, price float64, at time.Time) error {
	tickerID, err := s.InsertIfNewTicker(ctx, &models.Ticker{
		Name:       foreign.ISOCode + "/" + base.ISOCode,
		AssetID:    foreign.ID,
		Source:     FxQuoteSource,
		Priority:   FxQuotePriority,
		CurrencyID: base.ID,
		Factor:     models.DefaultTickerFactor,
	})
	if err != nil {
		return err
	}
	_, err = s.InsertQuote(ctx, &models.Quote{TickerID: tickerID, Price: price, Time: at})
	return err
}

func validateTicker(ticker *models.Ticker) error {
	if strings.TrimSpace(ticker.Name) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker name is required")
	}
	if strings.TrimSpace(ticker.Source) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker source is required")
	}
	if ticker.AssetID == 0 || ticker.CurrencyID == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker asset and currency are required")
	}
	if ticker.Factor == 0 {
		ticker.Factor = models.DefaultTickerFactor
	}
	return nil
}

func utcQuotes(quotes []models.Quote) []models.Quote {
	for i := range quotes {
		quotes[i].Time = quotes[i].Time.UTC()
	}
	return quotes
}
