package models

import "time"

// Company is the insider dataset's issuer, keyed by ticker as the natural key.
type Company struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner is the reporting insider (person or institution), keyed by name.
type Owner struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Title         *string   `json:"title,omitempty"`
	IsInstitution bool      `json:"isInstitution"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// InsiderTransaction is one SEC Form-4 row. Quantity, SharesHeld, Owned and
// Value keep the source's display text; ValueNumeric is the cleaned number.
type InsiderTransaction struct {
	ID              int64     `json:"id"`
	TransactionDate time.Time `json:"transactionDate"`
	TradeDate       time.Time `json:"tradeDate"`
	TransactionType string    `json:"transactionType"`
	LastPrice       *float64  `json:"lastPrice,omitempty"`
	Quantity        string    `json:"quantity"`
	SharesHeld      string    `json:"sharesHeld"`
	Owned           string    `json:"owned"`
	Value           string    `json:"value"`
	ValueNumeric    float64   `json:"valueNumeric"`
	CompanyID       int64     `json:"companyId"`
	OwnerID         int64     `json:"ownerId"`
	HashID          string    `json:"hashId,omitempty"` // dedup key derived from the natural fields
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
