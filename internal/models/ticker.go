package models

import "time"

// Ticker maps an asset to a quote source. Priority orders competing sources
// for the same asset: lower values win.
type Ticker struct {
	ID         int32    `gorm:"primaryKey" json:"id"`
	Name       string   `gorm:"not null" json:"name"`
	AssetID    int32    `gorm:"not null" json:"asset_id"`
	Source     string   `gorm:"not null" json:"source"`
	Priority   int32    `gorm:"not null" json:"priority"`
	CurrencyID int32    `gorm:"not null" json:"currency_id"`
	Currency   Currency `gorm:"foreignKey:CurrencyID" json:"currency"`
	// Factor scales raw vendor prices, e.g. 0.01 for prices quoted in cents.
	Factor float64 `gorm:"not null" json:"factor"`
	Tz     *string `json:"tz,omitempty"`
	Cal    *string `json:"cal,omitempty"`
}

func (Ticker) TableName() string { return "ticker" }

// DefaultTickerFactor is applied when a ticker is stored without a factor.
const DefaultTickerFactor = 1.0

// Quote is a single price observation of a ticker.
type Quote struct {
	ID       int32     `gorm:"primaryKey" json:"id"`
	TickerID int32     `gorm:"not null" json:"ticker_id"`
	Price    float64   `gorm:"not null" json:"price"`
	Time     time.Time `gorm:"not null" json:"time"`
	Volume   *float64  `json:"volume,omitempty"`
}

func (Quote) TableName() string { return "quotes" }
