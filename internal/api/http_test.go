package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arbolmarket/cartsync/pkg/config"
	pkgerrors "github.com/arbolmarket/cartsync/pkg/errors"
	"github.com/arbolmarket/cartsync/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *Session) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	session := NewSession(nil)
	logg := logger.New(logger.Options{ServiceName: "api-test", Output: &bytes.Buffer{}})
	client, err := NewHTTPClient(config.APIConfig{BaseURL: server.URL, Timeout: 5 * time.Second}, session, logg)
	require.NoError(t, err)
	return client, session
}

func TestFetchCartSendsAuthAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string

	router := chi.NewRouter()
	router.Get("/cart", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		_ = json.NewEncoder(w).Encode(ServerCart{Items: []ServerCartItem{{
			LineItemID:  9001,
			ProductID:   501,
			Quantity:    2,
			UnitPrice:   decimal.NewFromFloat(12.50),
			ProductName: "Olive Oil 500ml",
		}}})
	})

	client, session := newTestClient(t, router)
	require.NoError(t, session.Install(context.Background(), "tok-abc", "user-1"))

	cart, err := client.FetchCart(context.Background())
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, int64(9001), cart.Items[0].LineItemID)
	require.True(t, cart.Items[0].UnitPrice.Equal(decimal.NewFromFloat(12.50)))

	require.Equal(t, "Bearer tok-abc", gotAuth)
	require.NotEmpty(t, gotRequestID)
}

func TestAddProductPostsBody(t *testing.T) {
	var got addProductRequest

	router := chi.NewRouter()
	router.Post("/cart/items", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, router)
	require.NoError(t, client.AddProduct(context.Background(), 501, 3))
	require.Equal(t, addProductRequest{ProductID: 501, Quantity: 3}, got)
}

func TestAddListingPostsYears(t *testing.T) {
	var got addListingRequest

	router := chi.NewRouter()
	router.Post("/cart/tree-items", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	client, _ := newTestClient(t, router)
	require.NoError(t, client.AddListing(context.Background(), 77, 1, 2))
	require.Equal(t, addListingRequest{ListingID: 77, Quantity: 1, Years: 2}, got)
}

func TestUpdateLineOmitsZeroYears(t *testing.T) {
	var raw map[string]any

	router := chi.NewRouter()
	router.Patch("/cart/items/{lineItemID}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "9001", chi.URLParam(r, "lineItemID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, router)
	require.NoError(t, client.UpdateLine(context.Background(), 9001, 4, 0))
	require.Equal(t, float64(4), raw["quantity"])
	_, hasYears := raw["years"]
	require.False(t, hasYears, "years must be omitted when zero")
}

func TestRemoveLineHitsDelete(t *testing.T) {
	var hit bool

	router := chi.NewRouter()
	router.Delete("/cart/items/{lineItemID}", func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, router)
	require.NoError(t, client.RemoveLine(context.Background(), 9001))
	require.True(t, hit)
}

func TestResolveListingIDAbsentOn404(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/posts/{postID}/listing", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "postID") == "77" {
			_ = json.NewEncoder(w).Encode(listingResolution{ListingID: 310})
			return
		}
		http.NotFound(w, r)
	})

	client, _ := newTestClient(t, router)

	id, ok, err := client.ResolveListingID(context.Background(), 77)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(310), id)

	_, ok, err = client.ResolveListingID(context.Background(), 78)
	require.NoError(t, err)
	require.False(t, ok, "a post without a listing resolves to absent, not an error")
}

func TestErrorMapping(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/cart", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	router.Get("/products/{productID}/summary", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, router)

	_, err := client.FetchCart(context.Background())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	_, err = client.ProductSummary(context.Background(), 42)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency), "got %v", err)
}
