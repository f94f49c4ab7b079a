package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/services"
)

// AssetHandler handles assets and their currency and stock subtypes.
type AssetHandler struct {
	assetService services.AssetServicer
	quoteService services.QuoteServicer
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assetService services.AssetServicer, quoteService services.QuoteServicer) *AssetHandler {
	return &AssetHandler{assetService: assetService, quoteService: quoteService}
}

// AssetResponse is the wire form of an asset. Exactly one of Currency and
// Stock is set, matching AssetClass.
type AssetResponse struct {
	ID         int32             `json:"id"`
	AssetClass models.AssetClass `json:"asset_class"`
	Currency   *models.Currency  `json:"currency,omitempty"`
	Stock      *models.Stock     `json:"stock,omitempty"`
}

func newAssetResponse(asset models.Asset) AssetResponse {
	resp := AssetResponse{ID: asset.AssetID(), AssetClass: asset.Class()}
	switch a := asset.(type) {
	case *models.Currency:
		resp.Currency = a
	case *models.Stock:
		resp.Stock = a
	}
	return resp
}

// CreateCurrencyRequest represents the request payload for creating a currency.
type CreateCurrencyRequest struct {
	ISOCode        string `json:"iso_code" binding:"required,iso_code"`
	RoundingDigits *int32 `json:"rounding_digits" binding:"omitempty,min=0,max=18"`
}

// StockRequest represents the request payload for creating or updating a stock.
type StockRequest struct {
	Name string  `json:"name" binding:"required,stock_name"`
	WKN  *string `json:"wkn" binding:"omitempty,wkn"`
	ISIN *string `json:"isin" binding:"omitempty,isin"`
	Note *string `json:"note"`
}

func (r StockRequest) toStock() *models.Stock {
	return &models.Stock{Name: r.Name, WKN: r.WKN, ISIN: r.ISIN, Note: r.Note}
}

// RoundingDigitsRequest represents the request payload for changing a
// currency's rounding digits.
type RoundingDigitsRequest struct {
	RoundingDigits *int32 `json:"rounding_digits" binding:"required,min=0,max=18"`
}

// ListAssets returns every stored asset.
// @Summary     List assets
// @Description Get every stored asset with its currency or stock subtype
// @Tags        assets
// @Produce     json
// @Success     200 {object} map[string][]AssetResponse "All assets"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /assets [get]
func (h *AssetHandler) ListAssets(c *gin.Context) {
	assets, err := h.assetService.GetAllAssets(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		resp = append(resp, newAssetResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"assets": resp})
}

// GetAsset returns a single asset with its subtype.
// @Summary     Get asset by ID
// @Description Get a single asset with its subtype
// @Tags        assets
// @Produce     json
// @Param       id path int true "Asset ID"
// @Success     200 {object} map[string]AssetResponse "Asset details"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Router      /assets/{id} [get]
func (h *AssetHandler) GetAsset(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	asset, err := h.assetService.GetAssetByID(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": newAssetResponse(asset)})
}

// LookupAsset resolves a stock id by WKN, ISIN, or name. When several
// parameters are given the WKN wins over the ISIN, and the ISIN over the name.
// @Summary     Look up a stock
// @Description Resolve a stock ID by WKN, ISIN or name. WKN wins over ISIN, ISIN over name
// @Tags        assets
// @Produce     json
// @Param       wkn  query string false "WKN"
// @Param       isin query string false "ISIN"
// @Param       name query string false "Stock name"
// @Success     200 {object} map[string]int32 "Asset ID"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Router      /assets/lookup [get]
func (h *AssetHandler) LookupAsset(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		id  int32
		err error
	)
	switch {
	case c.Query("wkn") != "":
		id, err = h.assetService.GetAssetIDByWKN(ctx, c.Query("wkn"))
	case c.Query("isin") != "":
		id, err = h.assetService.GetAssetIDByISIN(ctx, c.Query("isin"))
	case c.Query("name") != "":
		id, err = h.assetService.GetAssetIDByName(ctx, c.Query("name"))
	default:
		err = apperrors.WithMessage(apperrors.ErrInvalidInput, "One of wkn, isin or name is required")
	}
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// ListAssetTickers returns the quote sources registered for an asset.
// @Summary     List tickers of an asset
// @Description Get the quote sources registered for an asset
// @Tags        assets
// @Produce     json
// @Param       id path int true "Asset ID"
// @Success     200 {object} map[string][]models.Ticker "Tickers"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Router      /assets/{id}/tickers [get]
func (h *AssetHandler) ListAssetTickers(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tickers, err := h.quoteService.GetAllTickersForAsset(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if tickers == nil {
		tickers = []models.Ticker{}
	}
	c.JSON(http.StatusOK, gin.H{"tickers": tickers})
}

// DeleteAsset removes an asset that is no longer referenced.
// @Summary     Delete asset
// @Description Delete an asset that no ticker or transaction refers to
// @Tags        assets
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path int true "Asset ID"
// @Success     200 {object} map[string]string "Asset deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Failure     409 {object} ErrorResponse "Asset still referenced"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /assets/{id} [delete]
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.assetService.DeleteAsset(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset deleted successfully"})
}

// ListCurrencies returns every stored currency.
// @Summary     List currencies
// @Description Get every stored currency
// @Tags        currencies
// @Produce     json
// @Success     200 {object} map[string][]models.Currency "All currencies"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /currencies [get]
func (h *AssetHandler) ListCurrencies(c *gin.Context) {
	currencies, err := h.assetService.GetAllCurrencies(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	if currencies == nil {
		currencies = []models.Currency{}
	}
	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}

// GetCurrency returns the currency with the ISO code in the path.
// @Summary     Get currency
// @Description Get the currency with the given ISO code
// @Tags        currencies
// @Produce     json
// @Param       iso path string true "ISO 4217 code"
// @Success     200 {object} map[string]models.Currency "Currency details"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Currency not found"
// @Router      /currencies/{iso} [get]
func (h *AssetHandler) GetCurrency(c *gin.Context) {
	currency, err := h.assetService.GetCurrencyByISO(c.Request.Context(), c.Param("iso"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": currency})
}

// CreateCurrency stores a new currency. An existing ISO code is a conflict.
// @Summary     Create currency
// @Description Store a new currency
// @Tags        currencies
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body CreateCurrencyRequest true "Currency details"
// @Success     201 {object} map[string]models.Currency "Currency created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Duplicate currency"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /currencies [post]
func (h *AssetHandler) CreateCurrency(c *gin.Context) {
	var req CreateCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	currency := &models.Currency{ISOCode: req.ISOCode, RoundingDigits: models.DefaultRoundingDigits}
	if req.RoundingDigits != nil {
		currency.RoundingDigits = *req.RoundingDigits
	}
	if _, err := h.assetService.InsertAsset(c.Request.Context(), currency); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"currency": currency})
}

// SetRoundingDigits changes the number of minor-unit digits of a currency.
// @Summary     Set rounding digits
// @Description Change the number of minor-unit digits of a currency
// @Tags        currencies
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       iso path string true "ISO 4217 code"
// @Param       request body RoundingDigitsRequest true "Rounding digits"
// @Success     200 {object} map[string]models.Currency "Currency updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Currency not found"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /currencies/{iso}/rounding-digits [put]
func (h *AssetHandler) SetRoundingDigits(c *gin.Context) {
	var req RoundingDigitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	ctx := c.Request.Context()
	if err := h.assetService.SetRoundingDigits(ctx, c.Param("iso"), *req.RoundingDigits); err != nil {
		respondWithError(c, err)
		return
	}
	currency, err := h.assetService.GetCurrencyByISO(ctx, c.Param("iso"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": currency})
}

// CreateStock stores a new stock. With ?if_new=true an already stored stock
// with the same WKN, ISIN, or name is returned instead; adding ?rename=true
// stores a stock whose name is taken under a suffixed name.
// @Summary     Create stock
// @Description Store a new stock. With if_new an existing match is returned, with rename a name clash stores it under the name with " (NEW)" appended
// @Tags        stocks
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body StockRequest true "Stock details"
// @Param       if_new query bool false "Return an existing match instead of failing"
// @Param       rename query bool false "Rename on a name clash (with if_new)"
// @Success     201 {object} map[string]models.Stock "Stock created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Duplicate stock"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /stocks [post]
func (h *AssetHandler) CreateStock(c *gin.Context) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	ctx := c.Request.Context()
	stock := req.toStock()
	var err error
	if c.Query("if_new") == "true" {
		_, err = h.assetService.InsertAssetIfNew(ctx, stock, c.Query("rename") == "true")
	} else {
		_, err = h.assetService.InsertAsset(ctx, stock)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stock": stock})
}

// UpdateStock overwrites the name, WKN, ISIN, and note of a stock.
// @Summary     Update stock
// @Description Overwrite the name, WKN, ISIN and note of a stock
// @Tags        stocks
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path int true "Stock ID"
// @Param       request body StockRequest true "Stock details"
// @Success     200 {object} map[string]models.Stock "Stock updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Stock not found"
// @Failure     409 {object} ErrorResponse "Duplicate stock"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /stocks/{id} [put]
func (h *AssetHandler) UpdateStock(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stock := req.toStock()
	stock.ID = id
	if err := h.assetService.UpdateAsset(c.Request.Context(), stock); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": stock})
}
