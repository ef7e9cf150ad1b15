package domain

import (
	"time"
)

// ProductFieldCount is the number of positional cells a product row maps to.
const ProductFieldCount = 9

// ProductRecord holds one row of the product inventory table.
// Field order is the order of the output document.
type ProductRecord struct {
	ID           string `json:"ID"`
	SKU          string `json:"SKU"`
	Category     string `json:"Category"`
	Manufacturer string `json:"Manufacturer"`
	Price        string `json:"Price"`
	Description  string `json:"Description"`
	Size         string `json:"Size"`
	Warranty     string `json:"Warranty"`
	Item         string `json:"Item"`
}

// RecordFromCells maps cell texts positionally onto a ProductRecord.
// It reports false for an empty row. Missing trailing cells stay empty and
// cells past the ninth are ignored.
func RecordFromCells(cells []string) (ProductRecord, bool) {
	if len(cells) == 0 {
		return ProductRecord{}, false
	}
	var padded [ProductFieldCount]string
	copy(padded[:], cells)
	return ProductRecord{
		ID:           padded[0],
		SKU:          padded[1],
		Category:     padded[2],
		Manufacturer: padded[3],
		Price:        padded[4],
		Description:  padded[5],
		Size:         padded[6],
		Warranty:     padded[7],
		Item:         padded[8],
	}, true
}

// PageBatch is the set of records read from one rendering of the table.
type PageBatch []ProductRecord

// SessionState is a serialized browser session (cookies) and when it was captured.
type SessionState struct {
	Blob       []byte
	CapturedAt time.Time
}

// Expired reports whether the state is older than maxAge. A zero maxAge never expires.
func (s *SessionState) Expired(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(s.CapturedAt) > maxAge
}

// NavigationStep is one click in the disclosure menu.
type NavigationStep struct {
	Label    string        `mapstructure:"label" json:"label"`
	Selector string        `mapstructure:"selector" json:"selector,omitempty"` // overrides the text selector built from Label
	Marker   string        `mapstructure:"marker" json:"marker,omitempty"`     // selector that proves the click worked
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout,omitempty"`
}

// Credentials is the login pair submitted to the dashboard form.
type Credentials struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}
