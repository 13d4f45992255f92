package api

import "github.com/shopspring/decimal"

// ServerCartItem is one line of the backend's authoritative cart. A line is
// backed either by a catalog product or by a tree-adoption listing; the
// backend signals which by populating ProductID or ListingID.
type ServerCartItem struct {
	LineItemID      int64           `json:"lineItemId"`
	ProductID       int64           `json:"productId,omitempty"`
	ListingID       int64           `json:"listingId,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	ProductName     string          `json:"productName"`
	ProductImageURL string          `json:"productImageUrl,omitempty"`
	Years           int             `json:"years,omitempty"`
}

// ServerCart is the backend cart payload. A cart with no items doubles as
// the empty-cart marker.
type ServerCart struct {
	Items []ServerCartItem `json:"items"`
}

func (c ServerCart) Empty() bool {
	return len(c.Items) == 0
}

// ProductSummary carries the catalog fields used to enrich product lines.
type ProductSummary struct {
	UnitLabel    string `json:"unitLabel"`
	StockCeiling int    `json:"stockCeiling"`
}
