package models

import (
	"encoding/json"
	"time"
)

// Trade is a single disclosed congressional transaction. Optional fields are
// pointers so the reconciler can tell "not provided" apart from a real value
// and leave stored columns untouched on update.
type Trade struct {
	ID             string          `json:"id"`
	PoliticianID   string          `json:"politicianId"`
	IssuerID       string          `json:"issuerId"`
	TradedAt       time.Time       `json:"tradedAt"`
	PublishedAt    *time.Time      `json:"publishedAt,omitempty"`
	Type           string          `json:"type"`  // "buy" or "sell"; free text otherwise
	Owner          string          `json:"owner"` // self/spouse/joint/undisclosed/unknown
	FiledAfterDays *int64          `json:"filedAfterDays,omitempty"`
	SizeMin        *float64        `json:"sizeMin,omitempty"`
	SizeMax        *float64        `json:"sizeMax,omitempty"`
	Price          *float64        `json:"price,omitempty"`
	SourceURL      string          `json:"sourceUrl,omitempty"`
	Raw            json.RawMessage `json:"raw"` // opaque audit blob, never inspected
	CreatedAt      time.Time       `json:"createdAt"`
}

// Politician is a referenced entity, auto-created when a Trade names an
// unknown politician ID.
type Politician struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Party   *string `json:"party,omitempty"`
	Chamber *string `json:"chamber,omitempty"`
	State   *string `json:"state,omitempty"`
}

// Issuer is the company/security a Trade references.
type Issuer struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Ticker  *string `json:"ticker,omitempty"`
	Sector  *string `json:"sector,omitempty"`
	Country *string `json:"country,omitempty"`
}
