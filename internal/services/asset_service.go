package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/logger"
	"github.com/xemwebe/finql/internal/models"
)

// renameSuffix is appended to a stock name that collides with an existing one
// when InsertAssetIfNew is asked to rename.
const renameSuffix = " (NEW)"

// assetService handles assets and their currency and stock subtypes.
type assetService struct {
	db *gorm.DB
}

// NewAssetService creates a new AssetServicer.
func NewAssetService(db *gorm.DB) AssetServicer {
	return &assetService{db: db}
}

// InsertAsset stores the base asset row and its subtype row in one transaction
// and returns the new id. The id is also written back into asset.
func (s *assetService) InsertAsset(ctx context.Context, asset models.Asset) (int32, error) {
	if err := normalizeAsset(asset); err != nil {
		return 0, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.AssetRecord{AssetClass: asset.Class()}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		models.SetAssetID(asset, record.ID)
		return tx.Create(asset).Error
	})
	if err != nil {
		models.SetAssetID(asset, 0)
		return 0, translateError(err, apperrors.ErrAssetNotFound, apperrors.ErrDuplicateAsset)
	}

	return asset.AssetID(), nil
}

// InsertAssetIfNew returns the id of an already stored asset matching asset,
// or inserts it. With rename set, a stock whose name is already taken by a
// different stock is stored under "<name> (NEW)".
func (s *assetService) InsertAssetIfNew(ctx context.Context, asset models.Asset, rename bool) (int32, error) {
	id, err := s.GetAssetID(ctx, asset)
	if err == nil {
		models.SetAssetID(asset, id)
		return id, nil
	}
	if !apperrors.IsNotFound(err) {
		return 0, err
	}

	id, err = s.InsertAsset(ctx, asset)
	if err == nil {
		return id, nil
	}

	stock, isStock := asset.(*models.Stock)
	if !rename || !isStock || !apperrors.IsConflict(err) {
		return 0, err
	}

	logger.Get().Infow("Asset name already taken, storing under new name",
		"name", stock.Name, "new_name", stock.Name+renameSuffix)
	name := stock.Name
	stock.Name += renameSuffix
	id, err = s.InsertAsset(ctx, stock)
	if err != nil {
		stock.Name = name
		return 0, err
	}
	return id, nil
}

// GetAssetID finds the id of a stored asset by its natural key: the ISO code
// for currencies; the WKN, else the ISIN, else the name for stocks.
func (s *assetService) GetAssetID(ctx context.Context, asset models.Asset) (int32, error) {
	switch a := asset.(type) {
	case *models.Currency:
		currency, err := s.GetCurrencyByISO(ctx, a.ISOCode)
		if err != nil {
			return 0, err
		}
		return currency.ID, nil
	case *models.Stock:
		switch {
		case a.WKN != nil && *a.WKN != "":
			return s.GetAssetIDByWKN(ctx, *a.WKN)
		case a.ISIN != nil && *a.ISIN != "":
			return s.GetAssetIDByISIN(ctx, *a.ISIN)
		default:
			return s.GetAssetIDByName(ctx, a.Name)
		}
	default:
		return 0, apperrors.WithMessage(apperrors.ErrInvalidAsset, "Unknown asset type")
	}
}

// GetAssetIDByName returns the id of the stock with the given name.
func (s *assetService) GetAssetIDByName(ctx context.Context, name string) (int32, error) {
	return s.stockIDWhere(ctx, "name = ?", name)
}

// GetAssetIDByWKN returns the id of the stock with the given WKN.
func (s *assetService) GetAssetIDByWKN(ctx context.Context, wkn string) (int32, error) {
	return s.stockIDWhere(ctx, "wkn = ?", wkn)
}

// GetAssetIDByISIN returns the id of the stock with the given ISIN.
func (s *assetService) GetAssetIDByISIN(ctx context.Context, isin string) (int32, error) {
	return s.stockIDWhere(ctx, "isin = ?", isin)
}

func (s *assetService) stockIDWhere(ctx context.Context, query string, arg string) (int32, error) {
	var stock models.Stock
	if err := s.db.WithContext(ctx).Select("id").Where(query, arg).Take(&stock).Error; err != nil {
		return 0, translateError(err, apperrors.ErrAssetNotFound, nil)
	}
	return stock.ID, nil
}

// GetAssetByID loads an asset together with its subtype row.
func (s *assetService) GetAssetByID(ctx context.Context, id int32) (models.Asset, error) {
	db := s.db.WithContext(ctx)

	var record models.AssetRecord
	if err := db.Take(&record, id).Error; err != nil {
		return nil, translateError(err, apperrors.ErrAssetNotFound, nil)
	}

	var asset models.Asset
	switch record.AssetClass {
	case models.AssetClassCurrency:
		asset = &models.Currency{}
	case models.AssetClassStock:
		asset = &models.Stock{}
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInternalServer, "Unknown asset class "+string(record.AssetClass))
	}

	if err := db.Take(asset, id).Error; err != nil {
		return nil, translateError(err, apperrors.ErrAssetNotFound, nil)
	}
	return asset, nil
}

// GetAssetByISIN returns the stock with the given ISIN.
func (s *assetService) GetAssetByISIN(ctx context.Context, isin string) (*models.Stock, error) {
	var stock models.Stock
	if err := s.db.WithContext(ctx).Where("isin = ?", isin).Take(&stock).Error; err != nil {
		return nil, translateError(err, apperrors.ErrAssetNotFound, nil)
	}
	return &stock, nil
}

// GetAllAssets returns every stored asset ordered by id.
func (s *assetService) GetAllAssets(ctx context.Context) ([]models.Asset, error) {
	db := s.db.WithContext(ctx)

	var records []models.AssetRecord
	if err := db.Order("id ASC").Find(&records).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}

	var currencies []models.Currency
	if err := db.Find(&currencies).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}
	var stocks []models.Stock
	if err := db.Find(&stocks).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}

	byID := make(map[int32]models.Asset, len(currencies)+len(stocks))
	for i := range currencies {
		byID[currencies[i].ID] = &currencies[i]
	}
	for i := range stocks {
		byID[stocks[i].ID] = &stocks[i]
	}

	assets := make([]models.Asset, 0, len(records))
	for _, r := range records {
		asset, ok := byID[r.ID]
		if !ok || asset.Class() != r.AssetClass {
			logger.Get().Warnw("Asset without matching subtype row", "id", r.ID, "asset_class", r.AssetClass)
			continue
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// UpdateAsset overwrites the subtype row of a stored asset.
func (s *assetService) UpdateAsset(ctx context.Context, asset models.Asset) error {
	if asset.AssetID() == 0 {
		return apperrors.ErrAssetNotStored
	}
	if err := normalizeAsset(asset); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var result *gorm.DB
	switch a := asset.(type) {
	case *models.Currency:
		result = db.Model(&models.Currency{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"iso_code":        a.ISOCode,
			"rounding_digits": a.RoundingDigits,
		})
	case *models.Stock:
		result = db.Model(&models.Stock{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"name": a.Name,
			"wkn":  a.WKN,
			"isin": a.ISIN,
			"note": a.Note,
		})
	}

	return translateError(requireRow(result, apperrors.ErrAssetNotFound), apperrors.ErrAssetNotFound, apperrors.ErrDuplicateAsset)
}

// DeleteAsset removes the subtype row and the base row in one transaction.
// Assets still referenced by tickers or transactions cannot be deleted.
func (s *assetService) DeleteAsset(ctx context.Context, id int32) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.AssetRecord
		if err := tx.Take(&record, id).Error; err != nil {
			return err
		}

		switch record.AssetClass {
		case models.AssetClassCurrency:
			if err := tx.Delete(&models.Currency{}, id).Error; err != nil {
				return err
			}
		case models.AssetClassStock:
			if err := tx.Delete(&models.Stock{}, id).Error; err != nil {
				return err
			}
		}

		return requireRow(tx.Delete(&models.AssetRecord{}, id), apperrors.ErrAssetNotFound)
	})
	return translateError(err, apperrors.ErrAssetNotFound, nil)
}

// GetAllCurrencies returns every stored currency ordered by id.
func (s *assetService) GetAllCurrencies(ctx context.Context) ([]models.Currency, error) {
	var currencies []models.Currency
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&currencies).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}
	return currencies, nil
}

// GetCurrencyByISO returns the currency with the given ISO code.
func (s *assetService) GetCurrencyByISO(ctx context.Context, isoCode string) (*models.Currency, error) {
	iso, ok := models.ParseISOCode(isoCode)
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Currency code must consist of three letters")
	}

	var currency models.Currency
	if err := s.db.WithContext(ctx).Where("iso_code = ?", iso).Take(&currency).Error; err != nil {
		return nil, translateError(err, apperrors.ErrCurrencyNotFound, nil)
	}
	return &currency, nil
}

// GetOrNewCurrency returns the stored currency or creates it with the default
// number of rounding digits.
func (s *assetService) GetOrNewCurrency(ctx context.Context, isoCode string) (*models.Currency, error) {
	return s.GetOrNewCurrencyWithDigits(ctx, isoCode, models.DefaultRoundingDigits)
}

// GetOrNewCurrencyWithDigits returns the stored currency or creates it with
// the given number of rounding digits. An existing currency keeps its digits.
func (s *assetService) GetOrNewCurrencyWithDigits(ctx context.Context, isoCode string, digits int32) (*models.Currency, error) {
	currency, err := s.GetCurrencyByISO(ctx, isoCode)
	if err == nil {
		return currency, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	currency = &models.Currency{ISOCode: isoCode, RoundingDigits: digits}
	if _, err := s.InsertAsset(ctx, currency); err != nil {
		return nil, err
	}
	return currency, nil
}

// GetRoundingDigits returns the number of minor-unit digits of a currency.
func (s *assetService) GetRoundingDigits(ctx context.Context, isoCode string) (int32, error) {
	currency, err := s.GetCurrencyByISO(ctx, isoCode)
	if err != nil {
		return 0, err
	}
	return currency.RoundingDigits, nil
}

// SetRoundingDigits changes the number of minor-unit digits of a stored currency.
func (s *assetService) SetRoundingDigits(ctx context.Context, isoCode string, digits int32) error {
	iso, ok := models.ParseISOCode(isoCode)
	if !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Currency code must consist of three letters")
	}
	if digits < 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Rounding digits must not be negative")
	}

	result := s.db.WithContext(ctx).Model(&models.Currency{}).
		Where("iso_code = ?", iso).
		Update("rounding_digits", digits)
	return translateError(requireRow(result, apperrors.ErrCurrencyNotFound), apperrors.ErrCurrencyNotFound, nil)
}

// normalizeAsset validates an asset before it is written and canonicalizes
// its natural keys.
func normalizeAsset(asset models.Asset) error {
	switch a := asset.(type) {
	case *models.Currency:
		iso, ok := models.ParseISOCode(a.ISOCode)
		if !ok {
			return apperrors.WithMessage(apperrors.ErrInvalidAsset, "Currency code must consist of three letters")
		}
		if a.RoundingDigits < 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidAsset, "Rounding digits must not be negative")
		}
		a.ISOCode = iso
	case *models.Stock:
		a.Name = strings.TrimSpace(a.Name)
		if !models.ValidStockName(a.Name) {
			return apperrors.WithMessage(apperrors.ErrInvalidAsset,
				"Stock name must not be empty or exactly three characters long")
		}
		a.WKN = blankToNil(a.WKN)
		a.ISIN = blankToNil(a.ISIN)
		a.Note = blankToNil(a.Note)
	case nil:
		return apperrors.WithMessage(apperrors.ErrInvalidAsset, "Asset is required")
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidAsset, "Unknown asset type")
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
