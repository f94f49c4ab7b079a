package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestInsertAsset(t *testing.T) { eachBackend(t, testInsertAsset) }

func testInsertAsset(t *testing.T, setup func(*testing.T) *gorm.DB) {
	ctx := context.Background()

	t.Run("currency", func(t *testing.T) {
		db := setup(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		eur := &models.Currency{ISOCode: "eur", RoundingDigits: 2}
		id, err := svc.InsertAsset(ctx, eur)
		testutil.AssertNoError(t, err)

		if id == 0 || eur.ID != id {
			t.Fatalf("expected id to be written back, got id=%d asset.ID=%d", id, eur.ID)
		}
		if eur.ISOCode != "EUR" {
			t.Errorf("expected iso code to be upper-cased, got %s", eur.ISOCode)
		}

		var record models.AssetRecord
		testutil.AssertNoError(t, db.Take(&record, id).Error)
		if record.AssetClass != models.AssetClassCurrency {
			t.Errorf("expected asset class currency, got %s", record.AssetClass)
		}
	})

	t.Run("stock", func(t *testing.T) {
		db := setup(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		stock := &models.Stock{Name: "BASF SE", WKN: strPtr("BASF11"), ISIN: strPtr("DE000BASF111")}
		id, err := svc.InsertAsset(ctx, stock)
		testutil.AssertNoError(t, err)

		got, err := svc.GetAssetByID(ctx, id)
		testutil.AssertNoError(t, err)
		s, ok := got.(*models.Stock)
		if !ok {
			t.Fatalf("expected *models.Stock, got %T", got)
		}
		if s.Name != "BASF SE" || *s.WKN != "BASF11" || *s.ISIN != "DE000BASF111" {
			t.Errorf("unexpected stock %+v", s)
		}
		if s.Note != nil {
			t.Errorf("expected nil note, got %q", *s.Note)
		}
	})

	t.Run("duplicate_stock_name", func(t *testing.T) {
		db := setup(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		_, err := svc.InsertAsset(ctx, &models.Stock{Name: "Apple Inc."})
		testutil.AssertNoError(t, err)

		dup := &models.Stock{Name: "Apple Inc."}
		_, err = svc.InsertAsset(ctx, dup)
		testutil.AssertAppError(t, err, "DUPLICATE_ASSET")
		if dup.ID != 0 {
			t.Errorf("expected id to stay 0 after failed insert, got %d", dup.ID)
		}

		// The base row of the failed insert must have been rolled back.
		var count int64
		testutil.AssertNoError(t, db.Model(&models.AssetRecord{}).Count(&count).Error)
		if count != 1 {
			t.Errorf("expected 1 asset row, got %d", count)
		}
	})

	t.Run("duplicate_currency", func(t *testing.T) {
		db := setup(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		testutil.CreateTestCurrency(t, db, "USD")
		_, err := svc.InsertAsset(ctx, &models.Currency{ISOCode: "USD", RoundingDigits: 2})
		testutil.AssertAppError(t, err, "DUPLICATE_ASSET")
	})

	t.Run("three_character_stock_name", func(t *testing.T) {
		db := setup(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		_, err := svc.InsertAsset(ctx, &models.Stock{Name: "BMW"})
		testutil.AssertAppError(t, err, "INVALID_ASSET")
	})

	t.Run("invalid_iso_code", func(t *testing.T) {
		db := setup(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		for _, code := range []string{"EU", "EURO", "E1R", ""} {
			_, err := svc.InsertAsset(ctx, &models.Currency{ISOCode: code})
			testutil.AssertAppError(t, err, "INVALID_ASSET")
		}
	})
}

func TestInsertAssetIfNew(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_existing_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		id, err := svc.InsertAsset(ctx, &models.Stock{Name: "Siemens AG", ISIN: strPtr("DE0007236101")})
		testutil.AssertNoError(t, err)

		again, err := svc.InsertAssetIfNew(ctx, &models.Stock{Name: "Siemens", ISIN: strPtr("DE0007236101")}, false)
		testutil.AssertNoError(t, err)
		if again != id {
			t.Errorf("expected existing id %d, got %d", id, again)
		}
	})

	t.Run("renames_on_name_clash", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		_, err := svc.InsertAsset(ctx, &models.Stock{Name: "Deutsche Bank", ISIN: strPtr("DE0005140008")})
		testutil.AssertNoError(t, err)

		clash := &models.Stock{Name: "Deutsche Bank", ISIN: strPtr("US2515251069")}
		id, err := svc.InsertAssetIfNew(ctx, clash, true)
		testutil.AssertNoError(t, err)

		got, err := svc.GetAssetByID(ctx, id)
		testutil.AssertNoError(t, err)
		if name := got.(*models.Stock).Name; name != "Deutsche Bank (NEW)" {
			t.Errorf("expected renamed stock, got %q", name)
		}
	})

	t.Run("keeps_name_when_rename_fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		testutil.CreateTestStockWithName(t, db, "Commerzbank")
		testutil.CreateTestStockWithName(t, db, "Commerzbank (NEW)")

		clash := &models.Stock{Name: "Commerzbank", ISIN: strPtr("DE000CBK1001")}
		_, err := svc.InsertAssetIfNew(ctx, clash, true)
		testutil.AssertAppError(t, err, "DUPLICATE_ASSET")
		if clash.Name != "Commerzbank" || clash.ID != 0 {
			t.Errorf("expected the caller's stock to be unchanged, got %+v", clash)
		}
	})

	t.Run("conflict_without_rename", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		_, err := svc.InsertAsset(ctx, &models.Stock{Name: "Allianz", ISIN: strPtr("DE0008404005")})
		testutil.AssertNoError(t, err)

		_, err = svc.InsertAssetIfNew(ctx, &models.Stock{Name: "Allianz", ISIN: strPtr("XX0008404005")}, false)
		testutil.AssertAppError(t, err, "DUPLICATE_ASSET")
	})
}

func TestGetAssetID(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAssetService(db)

	usd := testutil.CreateTestCurrency(t, db, "USD")
	stockID, err := svc.InsertAsset(ctx, &models.Stock{Name: "Adidas", WKN: strPtr("A1EWWW"), ISIN: strPtr("DE000A1EWWW0")})
	testutil.AssertNoError(t, err)

	tests := []struct {
		name  string
		asset models.Asset
		want  int32
	}{
		{"currency_by_iso", &models.Currency{ISOCode: "usd"}, usd.ID},
		{"stock_by_wkn", &models.Stock{Name: "other", WKN: strPtr("A1EWWW")}, stockID},
		{"stock_by_isin", &models.Stock{Name: "other", ISIN: strPtr("DE000A1EWWW0")}, stockID},
		{"stock_by_name", &models.Stock{Name: "Adidas"}, stockID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetAssetID(ctx, tt.asset)
			testutil.AssertNoError(t, err)
			if got != tt.want {
				t.Errorf("expected id %d, got %d", tt.want, got)
			}
		})
	}

	t.Run("unknown_wkn", func(t *testing.T) {
		_, err := svc.GetAssetID(ctx, &models.Stock{Name: "Adidas", WKN: strPtr("000000")})
		testutil.AssertAppError(t, err, "ASSET_NOT_FOUND")
	})

	t.Run("unknown_name", func(t *testing.T) {
		_, err := svc.GetAssetIDByName(ctx, "Puma")
		testutil.AssertAppError(t, err, "ASSET_NOT_FOUND")
	})
}

func TestGetAllAssets(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAssetService(db)

	eur := testutil.CreateTestCurrency(t, db, "EUR")
	stock := testutil.CreateTestStock(t, db)
	jpy := testutil.CreateTestCurrencyWithDigits(t, db, "JPY", 0)

	assets, err := svc.GetAllAssets(ctx)
	testutil.AssertNoError(t, err)

	if len(assets) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(assets))
	}
	wantIDs := []int32{eur.ID, stock.ID, jpy.ID}
	wantClasses := []models.AssetClass{models.AssetClassCurrency, models.AssetClassStock, models.AssetClassCurrency}
	for i, a := range assets {
		if a.AssetID() != wantIDs[i] {
			t.Errorf("asset %d: expected id %d, got %d", i, wantIDs[i], a.AssetID())
		}
		if a.Class() != wantClasses[i] {
			t.Errorf("asset %d: expected class %s, got %s", i, wantClasses[i], a.Class())
		}
	}
}

func TestUpdateAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("stock", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		stock := &models.Stock{Name: "Old Name", Note: strPtr("keep me")}
		_, err := svc.InsertAsset(ctx, stock)
		testutil.AssertNoError(t, err)

		stock.Name = "New Name"
		stock.Note = nil
		stock.WKN = strPtr("123456")
		testutil.AssertNoError(t, svc.UpdateAsset(ctx, stock))

		got, err := svc.GetAssetByID(ctx, stock.ID)
		testutil.AssertNoError(t, err)
		s := got.(*models.Stock)
		if s.Name != "New Name" || s.Note != nil || s.WKN == nil || *s.WKN != "123456" {
			t.Errorf("unexpected stock after update: %+v", s)
		}
	})

	t.Run("not_stored", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		err := svc.UpdateAsset(ctx, &models.Stock{Name: "Nowhere"})
		testutil.AssertAppError(t, err, "ASSET_NOT_STORED")
	})

	t.Run("missing_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		err := svc.UpdateAsset(ctx, &models.Stock{ID: 999, Name: "Nowhere"})
		testutil.AssertAppError(t, err, "ASSET_NOT_FOUND")
	})
}

func TestDeleteAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("removes_both_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		stock := testutil.CreateTestStock(t, db)
		testutil.AssertNoError(t, svc.DeleteAsset(ctx, stock.ID))

		_, err := svc.GetAssetByID(ctx, stock.ID)
		testutil.AssertAppError(t, err, "ASSET_NOT_FOUND")

		var count int64
		testutil.AssertNoError(t, db.Model(&models.Stock{}).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected stock row to be deleted, %d left", count)
		}
	})

	t.Run("referenced_by_ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		eur := testutil.CreateTestCurrency(t, db, "EUR")
		stock := testutil.CreateTestStock(t, db)
		testutil.CreateTestTicker(t, db, stock.ID, eur.ID, 1)

		err := svc.DeleteAsset(ctx, eur.ID)
		testutil.AssertAppError(t, err, "CONSTRAINT_VIOLATION")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		err := svc.DeleteAsset(ctx, 42)
		testutil.AssertAppError(t, err, "ASSET_NOT_FOUND")
	})
}

func TestCurrencies(t *testing.T) {
	ctx := context.Background()

	t.Run("get_or_new_creates_once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		first, err := svc.GetOrNewCurrency(ctx, "chf")
		testutil.AssertNoError(t, err)
		if first.ISOCode != "CHF" || first.RoundingDigits != 2 {
			t.Errorf("unexpected new currency %+v", first)
		}

		second, err := svc.GetOrNewCurrencyWithDigits(ctx, "CHF", 4)
		testutil.AssertNoError(t, err)
		if second.ID != first.ID || second.RoundingDigits != 2 {
			t.Errorf("expected existing currency to be returned unchanged, got %+v", second)
		}

		all, err := svc.GetAllCurrencies(ctx)
		testutil.AssertNoError(t, err)
		if len(all) != 1 {
			t.Errorf("expected 1 currency, got %d", len(all))
		}
	})

	t.Run("rounding_digits", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		testutil.CreateTestCurrencyWithDigits(t, db, "JPY", 0)

		digits, err := svc.GetRoundingDigits(ctx, "JPY")
		testutil.AssertNoError(t, err)
		if digits != 0 {
			t.Errorf("expected 0 digits, got %d", digits)
		}

		testutil.AssertNoError(t, svc.SetRoundingDigits(ctx, "JPY", 1))
		digits, err = svc.GetRoundingDigits(ctx, "JPY")
		testutil.AssertNoError(t, err)
		if digits != 1 {
			t.Errorf("expected 1 digit after update, got %d", digits)
		}
	})

	t.Run("rounding_digits_absent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAssetService(db)

		_, err := svc.GetRoundingDigits(ctx, "GBP")
		testutil.AssertAppError(t, err, "CURRENCY_NOT_FOUND")

		err = svc.SetRoundingDigits(ctx, "GBP", 2)
		testutil.AssertAppError(t, err, "CURRENCY_NOT_FOUND")
	})
}
