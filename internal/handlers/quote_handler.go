package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/services"
)

// QuoteHandler handles tickers, quotes, and exchange rates.
type QuoteHandler struct {
	quoteService services.QuoteServicer
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quoteService services.QuoteServicer) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// TickerRequest represents the request payload for creating or updating a ticker.
type TickerRequest struct {
	Name       string   `json:"name" binding:"required,min=1,max=100"`
	AssetID    int32    `json:"asset_id" binding:"required,gt=0"`
	Source     string   `json:"source" binding:"required,min=1,max=50"`
	Priority   int32    `json:"priority"`
	CurrencyID int32    `json:"currency_id" binding:"required,gt=0"`
	Factor     *float64 `json:"factor" binding:"omitempty,gt=0"`
	Tz         *string  `json:"tz"`
	Cal        *string  `json:"cal"`
}

func (r TickerRequest) toTicker() *models.Ticker {
	ticker := &models.Ticker{
		Name:       r.Name,
		AssetID:    r.AssetID,
		Source:     r.Source,
		Priority:   r.Priority,
		CurrencyID: r.CurrencyID,
		Factor:     models.DefaultTickerFactor,
		Tz:         r.Tz,
		Cal:        r.Cal,
	}
	if r.Factor != nil {
		ticker.Factor = *r.Factor
	}
	return ticker
}

// QuoteRequest represents the request payload for creating or updating a quote.
type QuoteRequest struct {
	TickerID int32     `json:"ticker_id" binding:"required,gt=0"`
	Price    *float64  `json:"price" binding:"required"`
	Time     time.Time `json:"time" binding:"required"`
	Volume   *float64  `json:"volume" binding:"omitempty,gte=0"`
}

// FxQuoteRequest represents the request payload for storing an exchange rate.
type FxQuoteRequest struct {
	Foreign string    `json:"foreign" binding:"required,iso_code"`
	Base    string    `json:"base" binding:"required,iso_code,nefield=Foreign"`
	Rate    float64   `json:"rate" binding:"required,gt=0"`
	Time    time.Time `json:"time" binding:"required"`
}

func (r QuoteRequest) toQuote() *models.Quote {
	return &models.Quote{TickerID: r.TickerID, Price: *r.Price, Time: r.Time.UTC(), Volume: r.Volume}
}

// GetLatestQuote returns the newest quote of an asset at or before ?before=
// (default now) together with the currency it is priced in.
// @Summary     Get latest quote of an asset
// @Description Get the newest quote at or before the cutoff with the currency it is priced in
// @Tags        quotes
// @Produce     json
// @Param       id path int true "Asset ID"
// @Param       before query string false "RFC 3339 cutoff, URL-encoded (default now)"
// @Success     200 {object} map[string]interface{} "Quote and currency"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Quote not found"
// @Router      /assets/{id}/quotes/latest [get]
func (h *QuoteHandler) GetLatestQuote(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	before, err := parseTimeQuery(c, "before", time.Now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}

	quote, currency, err := h.quoteService.GetLastQuoteBeforeByID(c.Request.Context(), id, before)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": quote, "currency": currency})
}

// GetLatestQuoteByName is GetLatestQuote for a stock identified by ?name=.
// @Summary     Get latest quote by stock name
// @Description Get the newest quote of the named stock at or before the cutoff
// @Tags        quotes
// @Produce     json
// @Param       name query string true "Stock name"
// @Param       before query string false "RFC 3339 cutoff, URL-encoded (default now)"
// @Success     200 {object} map[string]interface{} "Quote and currency"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Quote not found"
// @Router      /quotes/latest [get]
func (h *QuoteHandler) GetLatestQuoteByName(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required"))
		return
	}
	before, err := parseTimeQuery(c, "before", time.Now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}

	quote, currency, err := h.quoteService.GetLastQuoteBefore(c.Request.Context(), name, before)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": quote, "currency": currency})
}

// GetQuotesInRange returns the quotes of an asset between ?from= and ?to=,
// newest first. A missing bound is open.
// @Summary     List quotes of an asset
// @Description Get the quotes of an asset between from and to, newest first
// @Tags        quotes
// @Produce     json
// @Param       id path int true "Asset ID"
// @Param       from query string false "RFC 3339 start, URL-encoded (default 1970-01-01)"
// @Param       to   query string false "RFC 3339 end, URL-encoded (default now)"
// @Success     200 {object} map[string][]models.Quote "Quotes"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /assets/{id}/quotes [get]
func (h *QuoteHandler) GetQuotesInRange(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	from, err := parseTimeQuery(c, "from", time.Unix(0, 0).UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := parseTimeQuery(c, "to", time.Now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}

	quotes, err := h.quoteService.GetQuotesInRangeByID(c.Request.Context(), id, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if quotes == nil {
		quotes = []models.Quote{}
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// GetLatestFxQuote returns the newest quote of the currency in the path.
// @Summary     Get latest fx quote
// @Description Get the newest quote of a currency at or before the cutoff
// @Tags        fx
// @Produce     json
// @Param       iso path string true "ISO 4217 code"
// @Param       before query string false "RFC 3339 cutoff, URL-encoded (default now)"
// @Success     200 {object} map[string]interface{} "Quote and currency"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Quote not found"
// @Router      /fx/{iso}/latest [get]
func (h *QuoteHandler) GetLatestFxQuote(c *gin.Context) {
	before, err := parseTimeQuery(c, "before", time.Now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}

	quote, currency, err := h.quoteService.GetLastFxQuoteBefore(c.Request.Context(), c.Param("iso"), before)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": quote, "currency": currency})
}

// GetFxRate returns the price of one unit of ?foreign= in ?base= at ?at=.
// @Summary     Get exchange rate
// @Description Get the price of one unit of foreign in base at the given time
// @Tags        fx
// @Produce     json
// @Param       foreign query string true "Foreign ISO code"
// @Param       base    query string true "Base ISO code"
// @Param       at      query string false "RFC 3339 time, URL-encoded (default now)"
// @Success     200 {object} map[string]interface{} "Exchange rate"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     422 {object} ErrorResponse "No exchange rate"
// @Router      /fx/rate [get]
func (h *QuoteHandler) GetFxRate(c *gin.Context) {
	foreign, base := c.Query("foreign"), c.Query("base")
	if foreign == "" || base == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "foreign and base are required"))
		return
	}
	at, err := parseTimeQuery(c, "at", time.Now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}

	rate, err := h.quoteService.FxRate(c.Request.Context(), foreign, base, at)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"foreign": foreign, "base": base, "at": at, "rate": rate})
}

// CreateFxQuote stores an exchange rate together with its inverse.
// @Summary     Store exchange rate
// @Description Store an exchange rate and its inverse, creating missing currencies and tickers
// @Tags        fx
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body FxQuoteRequest true "Exchange rate"
// @Success     201 {object} map[string]interface{} "Exchange rate stored"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /fx [post]
func (h *QuoteHandler) CreateFxQuote(c *gin.Context) {
	var req FxQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.quoteService.InsertFxQuote(c.Request.Context(), req.Rate, req.Foreign, req.Base, req.Time.UTC()); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"foreign": strings.ToUpper(req.Foreign),
		"base":    strings.ToUpper(req.Base),
		"time":    req.Time.UTC(),
		"rate":    req.Rate,
	})
}

// ListTickers returns all tickers, or those of ?source= when given.
// @Summary     List tickers
// @Description Get every ticker, optionally only those of one source
// @Tags        tickers
// @Produce     json
// @Param       source query string false "Quote source"
// @Success     200 {object} map[string][]models.Ticker "Tickers"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tickers [get]
func (h *QuoteHandler) ListTickers(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		tickers []models.Ticker
		err     error
	)
	if source := c.Query("source"); source != "" {
		tickers, err = h.quoteService.GetAllTickersForSource(ctx, source)
	} else {
		tickers, err = h.quoteService.GetAllTickers(ctx)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}
	if tickers == nil {
		tickers = []models.Ticker{}
	}
	c.JSON(http.StatusOK, gin.H{"tickers": tickers})
}

// GetTicker returns a single ticker with its quote currency.
// @Summary     Get ticker by ID
// @Description Get a single ticker with its quote currency
// @Tags        tickers
// @Produce     json
// @Param       id path int true "Ticker ID"
// @Success     200 {object} map[string]models.Ticker "Ticker details"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Ticker not found"
// @Router      /tickers/{id} [get]
func (h *QuoteHandler) GetTicker(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	ticker, err := h.quoteService.GetTickerByID(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker})
}

// CreateTicker stores a new ticker. With ?if_new=true a stored ticker with
// the same name and source is returned instead.
// @Summary     Create ticker
// @Description Store a new ticker. With if_new a ticker with the same name and source is returned
// @Tags        tickers
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body TickerRequest true "Ticker details"
// @Param       if_new query bool false "Return an existing match"
// @Success     201 {object} map[string]models.Ticker "Ticker created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Unknown asset or currency"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /tickers [post]
func (h *QuoteHandler) CreateTicker(c *gin.Context) {
	var req TickerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	ctx := c.Request.Context()
	ticker := req.toTicker()
	var err error
	if c.Query("if_new") == "true" {
		_, err = h.quoteService.InsertIfNewTicker(ctx, ticker)
	} else {
		_, err = h.quoteService.InsertTicker(ctx, ticker)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticker": ticker})
}

// UpdateTicker overwrites a stored ticker.
// @Summary     Update ticker
// @Description Overwrite a stored ticker
// @Tags        tickers
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path int true "Ticker ID"
// @Param       request body TickerRequest true "Ticker details"
// @Success     200 {object} map[string]models.Ticker "Ticker updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Ticker not found"
// @Failure     409 {object} ErrorResponse "Unknown asset or currency"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /tickers/{id} [put]
func (h *QuoteHandler) UpdateTicker(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TickerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	ticker := req.toTicker()
	ticker.ID = id
	if err := h.quoteService.UpdateTicker(c.Request.Context(), ticker); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker})
}

// DeleteTicker removes a ticker without quotes.
// @Summary     Delete ticker
// @Description Delete a ticker without quotes
// @Tags        tickers
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path int true "Ticker ID"
// @Success     200 {object} map[string]string "Ticker deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Ticker not found"
// @Failure     409 {object} ErrorResponse "Ticker still has quotes"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /tickers/{id} [delete]
func (h *QuoteHandler) DeleteTicker(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.quoteService.DeleteTicker(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticker deleted successfully"})
}

// ListTickerQuotes returns one page of a ticker's quotes, newest first.
// @Summary     List quotes of a ticker
// @Description Get one page of a ticker's quotes, newest first
// @Tags        tickers
// @Produce     json
// @Param       id path int true "Ticker ID"
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.Quote] "Paginated quotes"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tickers/{id}/quotes [get]
func (h *QuoteHandler) ListTickerQuotes(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.quoteService.ListQuotesForTicker(c.Request.Context(), id, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateQuote appends a quote to a ticker's time series.
// @Summary     Create quote
// @Description Append a quote to a ticker's time series
// @Tags        quotes
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body QuoteRequest true "Quote details"
// @Success     201 {object} map[string]models.Quote "Quote created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Unknown ticker"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /quotes [post]
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	quote := req.toQuote()
	if _, err := h.quoteService.InsertQuote(c.Request.Context(), quote); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quote": quote})
}

// UpdateQuote corrects a stored quote.
// @Summary     Update quote
// @Description Correct a stored quote
// @Tags        quotes
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path int true "Quote ID"
// @Param       request body QuoteRequest true "Quote details"
// @Success     200 {object} map[string]models.Quote "Quote updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Quote not found"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /quotes/{id} [put]
func (h *QuoteHandler) UpdateQuote(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	quote := req.toQuote()
	quote.ID = id
	if err := h.quoteService.UpdateQuote(c.Request.Context(), quote); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": quote})
}

// DeleteQuote removes a single quote.
// @Summary     Delete quote
// @Description Delete a single quote
// @Tags        quotes
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path int true "Quote ID"
// @Success     200 {object} map[string]string "Quote deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Quote not found"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /quotes/{id} [delete]
func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.quoteService.DeleteQuote(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quote deleted successfully"})
}

// RemoveDuplicates deletes repeated quotes and reports how many were removed.
// @Summary     Remove duplicate quotes
// @Description Delete quotes repeating the ticker, time and price of an older quote
// @Tags        quotes
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} map[string]int64 "Number of removed quotes"
// @Failure     500 {object} ErrorResponse "Server error"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /quotes/dedupe [post]
func (h *QuoteHandler) RemoveDuplicates(c *gin.Context) {
	removed, err := h.quoteService.RemoveDuplicates(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
