package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arbolmarket/cartsync/pkg/config"
	pkgerrors "github.com/arbolmarket/cartsync/pkg/errors"
	"github.com/arbolmarket/cartsync/pkg/logger"
	"github.com/google/uuid"
)

var (
	errSessionRequired = errors.New("api session is required")
	errLoggerRequired  = errors.New("api logger is required")
)

// HTTPClient implements CartAPI and CatalogAPI against the storefront
// backend. Authentication rides the Session; guest calls go out without a
// bearer token and the backend answers with 401 where auth is required.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  *logger.Logger
}

// NewHTTPClient validates the configuration and builds the api client.
func NewHTTPClient(cfg config.APIConfig, session *Session, logg *logger.Logger) (*HTTPClient, error) {
	if session == nil {
		return nil, errSessionRequired
	}
	if logg == nil {
		return nil, errLoggerRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base url is required")
	}
	return &HTTPClient{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		session: session,
		logger:  logg,
	}, nil
}

type addProductRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type addListingRequest struct {
	ListingID int64 `json:"listingId"`
	Quantity  int   `json:"quantity"`
	Years     int   `json:"years"`
}

type updateLineRequest struct {
	Quantity int  `json:"quantity"`
	Years    *int `json:"years,omitempty"`
}

type listingResolution struct {
	ListingID int64 `json:"listingId"`
}

func (c *HTTPClient) FetchCart(ctx context.Context) (ServerCart, error) {
	var cart ServerCart
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &cart); err != nil {
		return ServerCart{}, err
	}
	return cart, nil
}

func (c *HTTPClient) AddProduct(ctx context.Context, productID int64, quantity int) error {
	return c.do(ctx, http.MethodPost, "/cart/items", addProductRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, nil)
}

func (c *HTTPClient) AddListing(ctx context.Context, listingID int64, quantity, years int) error {
	return c.do(ctx, http.MethodPost, "/cart/tree-items", addListingRequest{
		ListingID: listingID,
		Quantity:  quantity,
		Years:     years,
	}, nil)
}

func (c *HTTPClient) UpdateLine(ctx context.Context, lineItemID int64, quantity, years int) error {
	body := updateLineRequest{Quantity: quantity}
	if years > 0 {
		body.Years = &years
	}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/cart/items/%d", lineItemID), body, nil)
}

func (c *HTTPClient) RemoveLine(ctx context.Context, lineItemID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/items/%d", lineItemID), nil, nil)
}

func (c *HTTPClient) ResolveListingID(ctx context.Context, postID int64) (int64, bool, error) {
	var resolved listingResolution
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d/listing", postID), nil, &resolved)
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if resolved.ListingID <= 0 {
		return 0, false, nil
	}
	return resolved.ListingID, true, nil
}

func (c *HTTPClient) ProductSummary(ctx context.Context, productID int64) (ProductSummary, error) {
	var summary ProductSummary
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/summary", productID), nil, &summary); err != nil {
		return ProductSummary{}, err
	}
	return summary, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, method, path); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s %s", method, path))
	}
	return nil
}

func (c *HTTPClient) checkStatus(resp *http.Response, method, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, msg)
	case http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.New(pkgerrors.CodeValidation, msg)
	case http.StatusConflict:
		return pkgerrors.New(pkgerrors.CodeConflict, msg)
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
}
