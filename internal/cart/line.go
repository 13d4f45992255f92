package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one row of the cart, in guest and authenticated mode alike.
//
// Key is unique within a State. Positive keys are real catalog product ids.
// Negative keys are synthetic: -abs(listingID) for a tree-adoption listing,
// chosen so products (always positive ids upstream) and listings share one
// keyspace without collision and the listing id stays recoverable by
// negation.
type Line struct {
	Key           int64           `json:"key"`
	Slug          string          `json:"slug,omitempty"`
	DisplayName   string          `json:"displayName"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	UnitLabel     string          `json:"unitLabel,omitempty"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	StockCeiling  int             `json:"stockCeiling"`
	Quantity      int             `json:"quantity"`
	AdoptionYears int             `json:"adoptionYears,omitempty"`
}

// IsTree reports whether the line is backed by a tree-adoption listing.
func (l Line) IsTree() bool {
	return l.Key < 0
}

// State is the single source of truth the UI renders, whether it was built
// locally or derived from the server.
type State struct {
	Lines        []Line    `json:"lines"`
	LastModified time.Time `json:"lastModified"`
}

// Clone returns a deep copy; Lines of the copy may be mutated freely.
func (s State) Clone() State {
	lines := make([]Line, len(s.Lines))
	copy(lines, s.Lines)
	return State{Lines: lines, LastModified: s.LastModified}
}

// Count is the sum of all line quantities.
func (s State) Count() int {
	total := 0
	for _, line := range s.Lines {
		total += line.Quantity
	}
	return total
}

// Total is the sum of quantity times unit price over all lines.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// QuantityOf returns the quantity of the line at key, or 0.
func (s State) QuantityOf(key int64) int {
	for _, line := range s.Lines {
		if line.Key == key {
			return line.Quantity
		}
	}
	return 0
}

func (s State) indexOf(key int64) int {
	for i, line := range s.Lines {
		if line.Key == key {
			return i
		}
	}
	return -1
}

// KeyForListing maps a listing id into the synthetic negative keyspace.
func KeyForListing(listingID int64) int64 {
	if listingID < 0 {
		listingID = -listingID
	}
	return -listingID
}

// ListingIDFromKey recovers the listing id from a synthetic key.
func ListingIDFromKey(key int64) (int64, bool) {
	if key >= 0 {
		return 0, false
	}
	return -key, true
}
