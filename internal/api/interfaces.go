package api

import "context"

// CartAPI is the authenticated cart surface of the storefront backend.
type CartAPI interface {
	FetchCart(ctx context.Context) (ServerCart, error)
	AddProduct(ctx context.Context, productID int64, quantity int) error
	AddListing(ctx context.Context, listingID int64, quantity, years int) error
	// UpdateLine changes the quantity of a backend line item; years is
	// carried for tree-adoption lines and ignored by the backend otherwise.
	// A years of 0 means "leave unchanged".
	UpdateLine(ctx context.Context, lineItemID int64, quantity, years int) error
	RemoveLine(ctx context.Context, lineItemID int64) error
}

// CatalogAPI is the read-only catalog surface used for listing resolution
// and best-effort line enrichment.
type CatalogAPI interface {
	// ResolveListingID maps an adoption post to its sellable listing.
	// A post without a listing reports ok=false with a nil error.
	ResolveListingID(ctx context.Context, postID int64) (listingID int64, ok bool, err error)
	ProductSummary(ctx context.Context, productID int64) (ProductSummary, error)
}
