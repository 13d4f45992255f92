package cart

import (
	"context"
	"time"

	"github.com/arbolmarket/cartsync/internal/api"
	"github.com/arbolmarket/cartsync/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Kind tags which backend resource a mapping points at. The decision is made
// once here, at the mapper boundary, and never re-inspected downstream.
type Kind string

const (
	KindProduct Kind = "Product"
	KindTree    Kind = "Tree"
)

const treeUnitLabel = "tree"

// Mapping links a cart key to the backend's own line-item id, which the
// update and remove calls require. Mappings live in memory only and are
// rebuilt on every server-cart fetch.
type Mapping struct {
	Key           int64
	LineItemID    int64
	Kind          Kind
	AdoptionYears int
}

// MapServerCart translates the backend cart payload into the client's
// unified line shape plus the key-to-line-item mapping table.
//
// A line counts as a tree when it carries a positive listing id and no
// positive product id. A line carrying BOTH positive ids falls through to
// Product; the upstream system leaves that combination undefined and this
// branch pins the inherited behavior.
func MapServerCart(payload api.ServerCart) (State, map[int64]Mapping) {
	state := State{Lines: make([]Line, 0, len(payload.Items))}
	mappings := make(map[int64]Mapping, len(payload.Items))

	for _, item := range payload.Items {
		isTree := item.ListingID > 0 && item.ProductID <= 0

		var key int64
		if isTree {
			key = KeyForListing(item.ListingID)
		} else {
			key = item.ProductID
		}

		line := Line{
			Key:         key,
			DisplayName: item.ProductName,
			ImageURL:    item.ProductImageURL,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		}
		kind := KindProduct
		if isTree {
			kind = KindTree
			line.UnitLabel = treeUnitLabel
			// The server is authoritative on tree availability; no local cap.
			line.StockCeiling = 0
			line.AdoptionYears = item.Years
			if line.AdoptionYears < 1 {
				line.AdoptionYears = 1
			}
		}

		// Server payloads should not repeat keys; if one does, fold the
		// quantities so the key-uniqueness invariant holds locally.
		if i := state.indexOf(key); i >= 0 {
			state.Lines[i].Quantity += item.Quantity
		} else {
			state.Lines = append(state.Lines, line)
		}

		mappings[key] = Mapping{
			Key:           key,
			LineItemID:    item.LineItemID,
			Kind:          kind,
			AdoptionYears: item.Years,
		}
	}

	return state, mappings
}

// Enricher fills catalog display fields into product lines after a server
// fetch. Enrichment is best-effort: any failure leaves the line with its
// blank defaults and never fails the hydration.
type Enricher struct {
	catalog     api.CatalogAPI
	logger      *logger.Logger
	concurrency int
	timeout     time.Duration
	failed      func() // metrics hook, may be nil
}

func NewEnricher(catalog api.CatalogAPI, logg *logger.Logger, concurrency int, timeout time.Duration, failed func()) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{
		catalog:     catalog,
		logger:      logg,
		concurrency: concurrency,
		timeout:     timeout,
		failed:      failed,
	}
}

// Enrich returns a copy of state with blank product unit labels and stock
// ceilings filled from the catalog where lookups succeed.
func (e *Enricher) Enrich(ctx context.Context, state State) State {
	enriched := state.Clone()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)

	for i := range enriched.Lines {
		line := &enriched.Lines[i]
		if line.IsTree() || line.Key <= 0 || line.UnitLabel != "" {
			continue
		}
		group.Go(func() error {
			summary, err := e.catalog.ProductSummary(ctx, line.Key)
			if err != nil {
				if e.failed != nil {
					e.failed()
				}
				if e.logger != nil {
					e.logger.Debug(e.logger.WithCartKey(ctx, line.Key), "product enrichment skipped")
				}
				return nil
			}
			line.UnitLabel = summary.UnitLabel
			line.StockCeiling = summary.StockCeiling
			return nil
		})
	}

	// Workers only ever return nil; failures are swallowed per line.
	_ = group.Wait()
	return enriched
}
