package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/pagination"
)

func setupQuoteRouter(handler *QuoteHandler) *gin.Engine {
	r := gin.New()
	r.GET("/assets/:id/quotes", handler.GetQuotesInRange)
	r.GET("/assets/:id/quotes/latest", handler.GetLatestQuote)
	r.GET("/quotes/latest", handler.GetLatestQuoteByName)
	r.GET("/fx/rate", handler.GetFxRate)
	r.POST("/fx", handler.CreateFxQuote)
	r.GET("/fx/:iso/latest", handler.GetLatestFxQuote)
	r.GET("/tickers", handler.ListTickers)
	r.GET("/tickers/:id", handler.GetTicker)
	r.GET("/tickers/:id/quotes", handler.ListTickerQuotes)
	r.POST("/tickers", handler.CreateTicker)
	r.PUT("/tickers/:id", handler.UpdateTicker)
	r.DELETE("/tickers/:id", handler.DeleteTicker)
	r.POST("/quotes", handler.CreateQuote)
	r.POST("/quotes/dedupe", handler.RemoveDuplicates)
	r.PUT("/quotes/:id", handler.UpdateQuote)
	r.DELETE("/quotes/:id", handler.DeleteQuote)
	return r
}

func TestQuoteHandler_GetLatestQuote(t *testing.T) {
	t.Run("passes_cutoff_and_returns_currency", func(t *testing.T) {
		var gotCutoff time.Time
		svc := &mockQuoteService{
			lastQuoteByIDFn: func(assetID int32, cutoff time.Time) (*models.Quote, *models.Currency, error) {
				gotCutoff = cutoff
				return &models.Quote{ID: 9, TickerID: 1, Price: 101.5, Time: cutoff.Add(-time.Hour)},
					&models.Currency{ID: 1, ISOCode: "EUR", RoundingDigits: 2}, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/assets/2/quotes/latest?before=2024-03-01T12:00:00%2B01:00", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		want := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
		if !gotCutoff.Equal(want) || gotCutoff.Location() != time.UTC {
			t.Errorf("expected UTC cutoff %v, got %v", want, gotCutoff)
		}
		result := parseJSON(t, rec)
		if result["quote"].(map[string]interface{})["price"] != 101.5 {
			t.Errorf("unexpected quote: %v", result["quote"])
		}
		if result["currency"].(map[string]interface{})["iso_code"] != "EUR" {
			t.Errorf("unexpected currency: %v", result["currency"])
		}
	})

	t.Run("accepts_unescaped_offset", func(t *testing.T) {
		var gotCutoff time.Time
		svc := &mockQuoteService{
			lastQuoteByIDFn: func(_ int32, cutoff time.Time) (*models.Quote, *models.Currency, error) {
				gotCutoff = cutoff
				return &models.Quote{}, &models.Currency{}, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/assets/2/quotes/latest?before=2024-03-01T12:00:00+01:00", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if want := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC); !gotCutoff.Equal(want) {
			t.Errorf("expected cutoff %v, got %v", want, gotCutoff)
		}
	})

	t.Run("defaults_cutoff_to_now", func(t *testing.T) {
		var gotCutoff time.Time
		svc := &mockQuoteService{
			lastQuoteByIDFn: func(_ int32, cutoff time.Time) (*models.Quote, *models.Currency, error) {
				gotCutoff = cutoff
				return &models.Quote{}, &models.Currency{}, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		before := time.Now()
		doRequest(r, "GET", "/assets/2/quotes/latest", "")

		if gotCutoff.Before(before.Add(-time.Second)) || gotCutoff.After(time.Now().Add(time.Second)) {
			t.Errorf("expected cutoff near now, got %v", gotCutoff)
		}
	})

	t.Run("returns_404_without_quotes", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "GET", "/assets/2/quotes/latest", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "QUOTE_NOT_FOUND")
	})

	t.Run("returns_400_for_bad_time", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "GET", "/assets/2/quotes/latest?before=yesterday", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestQuoteHandler_GetLatestQuoteByName(t *testing.T) {
	t.Run("requires_name", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "GET", "/quotes/latest", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("passes_name", func(t *testing.T) {
		var gotName string
		svc := &mockQuoteService{
			lastQuoteFn: func(name string, _ time.Time) (*models.Quote, *models.Currency, error) {
				gotName = name
				return &models.Quote{ID: 1}, &models.Currency{ISOCode: "EUR"}, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/quotes/latest?name=Apple%20Inc.", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotName != "Apple Inc." {
			t.Errorf("expected name=Apple Inc., got %q", gotName)
		}
	})
}

func TestQuoteHandler_GetQuotesInRange(t *testing.T) {
	t.Run("passes_bounds", func(t *testing.T) {
		var gotStart, gotEnd time.Time
		svc := &mockQuoteService{
			quotesInRangeFn: func(_ int32, start, end time.Time) ([]models.Quote, error) {
				gotStart, gotEnd = start, end
				return []models.Quote{{ID: 1}, {ID: 2}}, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/assets/2/quotes?from=2024-01-01T00:00:00Z&to=2024-02-01T00:00:00Z", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !gotStart.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) ||
			!gotEnd.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected bounds %v - %v", gotStart, gotEnd)
		}
		if n := len(parseJSON(t, rec)["quotes"].([]interface{})); n != 2 {
			t.Errorf("expected 2 quotes, got %d", n)
		}
	})

	t.Run("empty_range_is_empty_list", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "GET", "/assets/2/quotes", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if quotes, ok := parseJSON(t, rec)["quotes"].([]interface{}); !ok || len(quotes) != 0 {
			t.Errorf("expected empty quotes array, got %s", rec.Body.String())
		}
	})
}

func TestQuoteHandler_Fx(t *testing.T) {
	t.Run("rate", func(t *testing.T) {
		svc := &mockQuoteService{
			fxRateFn: func(foreign, base string, _ time.Time) (float64, error) {
				if foreign != "USD" || base != "EUR" {
					t.Errorf("unexpected pair %s/%s", foreign, base)
				}
				return 0.92, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/fx/rate?foreign=USD&base=EUR", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["rate"] != 0.92 {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("rate_requires_both_codes", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "GET", "/fx/rate?foreign=USD", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rate_returns_422_without_quotes", func(t *testing.T) {
		svc := &mockQuoteService{
			fxRateFn: func(string, string, time.Time) (float64, error) {
				return 0, apperrors.ErrConversionFailed
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/fx/rate?foreign=USD&base=JPY", "")

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CONVERSION_FAILED")
	})

	t.Run("latest", func(t *testing.T) {
		var gotISO string
		svc := &mockQuoteService{
			lastFxQuoteFn: func(iso string, _ time.Time) (*models.Quote, *models.Currency, error) {
				gotISO = iso
				return &models.Quote{Price: 1.08}, &models.Currency{ISOCode: "EUR"}, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/fx/usd/latest", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotISO != "usd" {
			t.Errorf("expected iso passed through, got %q", gotISO)
		}
	})
}

func TestQuoteHandler_Tickers(t *testing.T) {
	t.Run("list_by_source", func(t *testing.T) {
		svc := &mockQuoteService{
			getAllTickersFn: func() ([]models.Ticker, error) {
				t.Error("GetAllTickers should not be called")
				return nil, nil
			},
			getAllTickersForSourceFn: func(source string) ([]models.Ticker, error) {
				return []models.Ticker{{ID: 1, Source: source}}, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/tickers?source=yahoo", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if n := len(parseJSON(t, rec)["tickers"].([]interface{})); n != 1 {
			t.Errorf("expected 1 ticker, got %d", n)
		}
	})

	t.Run("get_missing", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "GET", "/tickers/5", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TICKER_NOT_FOUND")
	})

	t.Run("create_defaults_factor", func(t *testing.T) {
		var stored *models.Ticker
		svc := &mockQuoteService{
			insertTickerFn: func(ticker *models.Ticker) (int32, error) {
				stored = ticker
				ticker.ID = 4
				return 4, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "POST", "/tickers",
			`{"name":"BMW.DE","asset_id":2,"source":"yahoo","priority":10,"currency_id":1}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stored.Factor != models.DefaultTickerFactor {
			t.Errorf("expected default factor, got %v", stored.Factor)
		}
	})

	t.Run("create_if_new", func(t *testing.T) {
		called := false
		svc := &mockQuoteService{
			insertIfNewTickerFn: func(ticker *models.Ticker) (int32, error) {
				called = true
				ticker.ID = 4
				return 4, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "POST", "/tickers?if_new=true",
			`{"name":"BMW.DE","asset_id":2,"source":"yahoo","currency_id":1,"factor":0.01}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if !called {
			t.Error("expected InsertIfNewTicker to be called")
		}
	})

	t.Run("create_rejects_missing_fields", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "POST", "/tickers", `{"name":"BMW.DE","source":"yahoo"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("create_with_unknown_asset", func(t *testing.T) {
		svc := &mockQuoteService{
			insertTickerFn: func(*models.Ticker) (int32, error) { return 0, apperrors.ErrConstraintViolated },
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "POST", "/tickers",
			`{"name":"X","asset_id":99,"source":"yahoo","currency_id":1}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		var gotID int32
		svc := &mockQuoteService{
			updateTickerFn: func(ticker *models.Ticker) error {
				gotID = ticker.ID
				return nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "PUT", "/tickers/8",
			`{"name":"BMW.F","asset_id":2,"source":"yahoo","currency_id":1}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotID != 8 {
			t.Errorf("expected id=8, got %d", gotID)
		}
	})

	t.Run("delete_with_quotes", func(t *testing.T) {
		svc := &mockQuoteService{
			deleteTickerFn: func(int32) error { return apperrors.ErrConstraintViolated },
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "DELETE", "/tickers/8", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestQuoteHandler_ListTickerQuotes(t *testing.T) {
	t.Run("passes_page", func(t *testing.T) {
		var gotPage pagination.PageRequest
		svc := &mockQuoteService{
			listQuotesForTickerFn: func(_ int32, page pagination.PageRequest) (*pagination.PageResponse[models.Quote], error) {
				gotPage = page
				resp := pagination.NewPageResponse([]models.Quote{{ID: 1}}, page.Page, page.PageSize, 21)
				return &resp, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "GET", "/tickers/1/quotes?page=3&page_size=10", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotPage.Page != 3 || gotPage.PageSize != 10 {
			t.Errorf("unexpected page %+v", gotPage)
		}
		if parseJSON(t, rec)["total_pages"] != float64(3) {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("rejects_oversized_page", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "GET", "/tickers/1/quotes?page_size=5000", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestQuoteHandler_Quotes(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		var stored *models.Quote
		svc := &mockQuoteService{
			insertQuoteFn: func(quote *models.Quote) (int32, error) {
				stored = quote
				quote.ID = 11
				return 11, nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "POST", "/quotes",
			`{"ticker_id":1,"price":0,"time":"2024-03-01T17:30:00+01:00","volume":1200}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stored.Time.Location() != time.UTC || stored.Time.Hour() != 16 {
			t.Errorf("expected UTC time, got %v", stored.Time)
		}
	})

	t.Run("create_requires_price", func(t *testing.T) {
		r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

		rec := doRequest(r, "POST", "/quotes", `{"ticker_id":1,"time":"2024-03-01T17:30:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("update_missing", func(t *testing.T) {
		svc := &mockQuoteService{
			updateQuoteFn: func(*models.Quote) error { return apperrors.ErrQuoteNotFound },
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "PUT", "/quotes/3", `{"ticker_id":1,"price":2.5,"time":"2024-03-01T17:30:00Z"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		var gotID int32
		svc := &mockQuoteService{
			deleteQuoteFn: func(id int32) error {
				gotID = id
				return nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "DELETE", "/quotes/3", "")

		if rec.Code != http.StatusOK || gotID != 3 {
			t.Fatalf("expected 200 for id 3, got %d (id %d)", rec.Code, gotID)
		}
	})

	t.Run("dedupe", func(t *testing.T) {
		svc := &mockQuoteService{
			removeDuplicatesFn: func() (int64, error) { return 4, nil },
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "POST", "/quotes/dedupe", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["removed"] != float64(4) {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})
}

func TestQuoteHandler_CreateFxQuote(t *testing.T) {
	t.Run("returns_201", func(t *testing.T) {
		var (
			gotRate             float64
			gotForeign, gotBase string
			gotTime             time.Time
		)
		svc := &mockQuoteService{
			insertFxQuoteFn: func(rate float64, foreign, base string, at time.Time) error {
				gotRate, gotForeign, gotBase, gotTime = rate, foreign, base, at
				return nil
			},
		}
		r := setupQuoteRouter(NewQuoteHandler(svc))

		rec := doRequest(r, "POST", "/fx", `{"foreign":"usd","base":"EUR","rate":0.9,"time":"2024-03-01T12:00:00+01:00"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotRate != 0.9 || gotForeign != "usd" || gotBase != "EUR" {
			t.Errorf("unexpected arguments: %f %s %s", gotRate, gotForeign, gotBase)
		}
		if !gotTime.Equal(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)) || gotTime.Location() != time.UTC {
			t.Errorf("expected UTC time, got %v", gotTime)
		}
		if result := parseJSON(t, rec); result["foreign"] != "USD" || result["rate"] != 0.9 {
			t.Errorf("unexpected body: %v", result)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing_rate", `{"foreign":"USD","base":"EUR","time":"2024-03-01T12:00:00Z"}`},
		{"negative_rate", `{"foreign":"USD","base":"EUR","rate":-1,"time":"2024-03-01T12:00:00Z"}`},
		{"same_currency", `{"foreign":"USD","base":"USD","rate":1,"time":"2024-03-01T12:00:00Z"}`},
		{"bad_code", `{"foreign":"US","base":"EUR","rate":1,"time":"2024-03-01T12:00:00Z"}`},
		{"missing_time", `{"foreign":"USD","base":"EUR","rate":1}`},
	}
	for _, tt := range tests {
		t.Run("returns_400_"+tt.name, func(t *testing.T) {
			r := setupQuoteRouter(NewQuoteHandler(&mockQuoteService{}))

			rec := doRequest(r, "POST", "/fx", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}
}
