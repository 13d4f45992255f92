package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arbolmarket/cartsync/internal/api"
	"github.com/arbolmarket/cartsync/pkg/config"
	pkgerrors "github.com/arbolmarket/cartsync/pkg/errors"
	"github.com/arbolmarket/cartsync/pkg/kv"
	"github.com/arbolmarket/cartsync/pkg/logger"
	"github.com/shopspring/decimal"
)

type sessionControl interface {
	Install(ctx context.Context, token, userID string) error
	Clear(ctx context.Context)
	Token() (string, bool)
}

// Service is the cart operation surface used by UI code. Guest mutations
// apply locally; authenticated mutations go to the server and always end
// with a full re-fetch-and-replace, never an incremental patch.
type Service interface {
	State() State
	Count() int
	Total() decimal.Decimal
	QuantityOf(key int64) int

	AddProduct(ctx context.Context, candidate ProductCandidate, quantity int) error
	AddListing(ctx context.Context, candidate ListingCandidate, quantity int) error
	UpdateQuantity(ctx context.Context, key int64, quantity int) error
	RemoveLine(ctx context.Context, key int64) error
	Clear(ctx context.Context) error

	OnLogin(ctx context.Context, token, userID string) error
	OnLogout(ctx context.Context) error
}

// ProductCandidate carries the catalog fields a guest add needs to render
// the line locally. Authenticated adds only use the id; the server round
// trip supplies the rest.
type ProductCandidate struct {
	ProductID    int64
	DisplayName  string
	ImageURL     string
	UnitLabel    string
	UnitPrice    decimal.Decimal
	StockCeiling int
}

// ListingCandidate describes a tree-adoption add. Authenticated adds use
// the listing id; guest adds use the post id, encoded into the line slug so
// the login merge can replay it.
type ListingCandidate struct {
	ListingID   int64
	PostID      int64
	DisplayName string
	ImageURL    string
	UnitPrice   decimal.Decimal
	Years       int
}

// ServiceParams bundles the dependency stack for NewService.
type ServiceParams struct {
	Container *Container
	Session   sessionControl
	CartAPI   api.CartAPI
	Catalog   api.CatalogAPI
	Store     *kv.Store
	Logger    *logger.Logger
	Metrics   *Metrics
	Config    config.CartConfig
}

type service struct {
	container *Container
	session   sessionControl
	cartAPI   api.CartAPI
	catalog   api.CatalogAPI
	store     *kv.Store
	logger    *logger.Logger
	metrics   *Metrics
	enricher  *Enricher
	backupTTL time.Duration

	mu       sync.Mutex
	mappings map[int64]Mapping
}

// NewService builds the cart engine backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Container == nil {
		return nil, fmt.Errorf("cart container required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session control required")
	}
	if params.CartAPI == nil {
		return nil, fmt.Errorf("cart api required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog api required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("persisted store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	backupTTL := params.Config.GuestBackupTTL
	if backupTTL <= 0 {
		backupTTL = 7 * 24 * time.Hour
	}

	return &service{
		container: params.Container,
		session:   params.Session,
		cartAPI:   params.CartAPI,
		catalog:   params.Catalog,
		store:     params.Store,
		logger:    params.Logger,
		metrics:   params.Metrics,
		enricher: NewEnricher(
			params.Catalog,
			params.Logger,
			params.Config.EnrichConcurrency,
			params.Config.EnrichTimeout,
			params.Metrics.IncEnrichFailure,
		),
		backupTTL: backupTTL,
		mappings:  map[int64]Mapping{},
	}, nil
}

func (s *service) State() State { return s.container.Snapshot() }

func (s *service) Count() int { return s.container.Count() }

func (s *service) Total() decimal.Decimal { return s.container.Total() }

func (s *service) QuantityOf(key int64) int { return s.container.QuantityOf(key) }

func (s *service) AddProduct(ctx context.Context, candidate ProductCandidate, quantity int) error {
	if candidate.ProductID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if quantity < 1 {
		quantity = 1
	}

	if !s.authenticated() {
		return s.container.AddLine(ctx, Line{
			Key:          candidate.ProductID,
			DisplayName:  candidate.DisplayName,
			ImageURL:     candidate.ImageURL,
			UnitLabel:    candidate.UnitLabel,
			UnitPrice:    candidate.UnitPrice,
			StockCeiling: candidate.StockCeiling,
		}, quantity, 0)
	}

	if err := s.cartAPI.AddProduct(ctx, candidate.ProductID, quantity); err != nil {
		// Local state untouched; there is no optimistic update to roll back.
		return err
	}
	return s.hydrate(ctx)
}

func (s *service) AddListing(ctx context.Context, candidate ListingCandidate, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	years := candidate.Years
	if years < 1 {
		years = 1
	}

	if s.authenticated() {
		if candidate.ListingID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "listing id must be positive")
		}
		if err := s.cartAPI.AddListing(ctx, candidate.ListingID, quantity, years); err != nil {
			return err
		}
		return s.hydrate(ctx)
	}

	if candidate.PostID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "post id must be positive")
	}
	return s.container.AddLine(ctx, Line{
		Key:         KeyForListing(candidate.PostID),
		Slug:        AdoptionSlug(candidate.PostID, years),
		DisplayName: candidate.DisplayName,
		ImageURL:    candidate.ImageURL,
		UnitLabel:   treeUnitLabel,
		UnitPrice:   candidate.UnitPrice,
	}, quantity, years)
}

func (s *service) UpdateQuantity(ctx context.Context, key int64, quantity int) error {
	if !s.authenticated() {
		return s.container.SetQuantity(ctx, key, quantity)
	}
	if quantity <= 0 {
		return s.RemoveLine(ctx, key)
	}

	mapping, ok, err := s.ensureLineItemID(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		s.dropMutation(ctx, key, "update")
		return nil
	}

	years := 0
	if mapping.Kind == KindTree {
		years = mapping.AdoptionYears
		if years < 1 {
			years = 1
		}
	}
	if err := s.cartAPI.UpdateLine(ctx, mapping.LineItemID, quantity, years); err != nil {
		return err
	}
	return s.hydrate(ctx)
}

func (s *service) RemoveLine(ctx context.Context, key int64) error {
	if !s.authenticated() {
		return s.container.RemoveLine(ctx, key)
	}

	mapping, ok, err := s.ensureLineItemID(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		s.dropMutation(ctx, key, "remove")
		return nil
	}

	if err := s.cartAPI.RemoveLine(ctx, mapping.LineItemID); err != nil {
		return err
	}
	return s.hydrate(ctx)
}

func (s *service) Clear(ctx context.Context) error {
	return s.container.Clear(ctx)
}

// ensureLineItemID resolves the backend line-item id for key, forcing one
// re-fetch-and-remap cycle when the first lookup misses.
func (s *service) ensureLineItemID(ctx context.Context, key int64) (Mapping, bool, error) {
	if mapping, ok := s.mappingFor(key); ok {
		return mapping, true, nil
	}
	if err := s.hydrate(ctx); err != nil {
		return Mapping{}, false, err
	}
	mapping, ok := s.mappingFor(key)
	return mapping, ok, nil
}

// hydrate fetches the server cart, replaces local state with it, and
// rebuilds the mapping table. Enrichment runs after the replacement so a
// failed lookup can never block the un-enriched cart from landing.
func (s *service) hydrate(ctx context.Context) error {
	payload, err := s.cartAPI.FetchCart(ctx)
	if err != nil {
		return err
	}

	state, mappings := MapServerCart(payload)
	if err := s.container.ReplaceAll(ctx, state.Lines); err != nil {
		return err
	}
	s.setMappings(mappings)
	s.metrics.IncHydration()

	enriched := s.enricher.Enrich(ctx, state)
	return s.container.ReplaceAll(ctx, enriched.Lines)
}

func (s *service) authenticated() bool {
	_, ok := s.session.Token()
	return ok
}

func (s *service) mappingFor(key int64) (Mapping, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mapping, ok := s.mappings[key]
	return mapping, ok
}

func (s *service) setMappings(mappings map[int64]Mapping) {
	if mappings == nil {
		mappings = map[int64]Mapping{}
	}
	s.mu.Lock()
	s.mappings = mappings
	s.mu.Unlock()
}

func (s *service) dropMutation(ctx context.Context, key int64, op string) {
	s.metrics.IncDroppedMutation()
	ctx = s.logger.WithCartKey(ctx, key)
	s.logger.Warn(ctx, fmt.Sprintf("no backend line item for cart key, %s dropped", op))
}
