package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arbolmarket/cartsync/pkg/kv"
	"github.com/shopspring/decimal"
)

const (
	cartStateKey      = "cart"
	backupKey         = "guestCartBackup"
	backupExpiryField = "expiresAt"
)

// Container guards the in-memory cart state and writes it through to the
// persisted store after every transition.
type Container struct {
	mu    sync.Mutex
	state State
	store *kv.Store
	now   func() time.Time
}

func NewContainer(store *kv.Store) (*Container, error) {
	if store == nil {
		return nil, errors.New("persisted store required")
	}
	return &Container{store: store, now: time.Now}, nil
}

// Load hydrates the container from the persisted cart entry, if one exists.
func (c *Container) Load(ctx context.Context) error {
	var state State
	found, err := c.store.Read(ctx, cartStateKey, kv.ReadOptions{}, &state)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	return nil
}

// AddLine inserts candidate or, when a line with the same key exists,
// increases its quantity. Quantities clamp to the line's stock ceiling; a
// ceiling of 0 means uncapped (catalog items whose stock is not yet known).
// A positive years overwrites the line's adoption years.
func (c *Container) AddLine(ctx context.Context, candidate Line, quantity, years int) error {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.state.indexOf(candidate.Key); i >= 0 {
		line := &c.state.Lines[i]
		line.Quantity = clampQuantity(line.Quantity+quantity, line.StockCeiling)
		if years > 0 {
			line.AdoptionYears = years
			// The slug encodes the adoption years for the login replay,
			// so it moves with them.
			if candidate.Slug != "" {
				line.Slug = candidate.Slug
			}
		}
	} else {
		candidate.Quantity = clampQuantity(quantity, candidate.StockCeiling)
		if years > 0 {
			candidate.AdoptionYears = years
		}
		c.state.Lines = append(c.state.Lines, candidate)
	}

	return c.persistLocked(ctx)
}

// SetQuantity updates the quantity of the line at key. A quantity of 0 or
// less deletes the line; a quantity above a positive stock ceiling clamps.
func (c *Container) SetQuantity(ctx context.Context, key int64, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.state.indexOf(key)
	if i < 0 {
		return nil
	}
	if quantity <= 0 {
		c.state.Lines = append(c.state.Lines[:i], c.state.Lines[i+1:]...)
	} else {
		c.state.Lines[i].Quantity = clampQuantity(quantity, c.state.Lines[i].StockCeiling)
	}

	return c.persistLocked(ctx)
}

// RemoveLine deletes the line at key. Removing an absent key is a no-op,
// not an error.
func (c *Container) RemoveLine(ctx context.Context, key int64) error {
	return c.SetQuantity(ctx, key, 0)
}

// ReplaceAll swaps in a new line list wholesale, used after any server
// round-trip.
func (c *Container) ReplaceAll(ctx context.Context, lines []Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Lines = append([]Line(nil), lines...)
	return c.persistLocked(ctx)
}

// Clear empties the line list.
func (c *Container) Clear(ctx context.Context) error {
	return c.ReplaceAll(ctx, nil)
}

// Snapshot returns a copy of the current state.
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Count is the sum of all quantities.
func (c *Container) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Count()
}

// Total is the sum of quantity times unit price.
func (c *Container) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Total()
}

// QuantityOf returns the quantity at key, or 0.
func (c *Container) QuantityOf(key int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.QuantityOf(key)
}

func (c *Container) persistLocked(ctx context.Context) error {
	c.state.LastModified = c.now()
	return c.store.Write(ctx, cartStateKey, c.state, kv.WriteOptions{})
}

func clampQuantity(quantity, ceiling int) int {
	if ceiling > 0 && quantity > ceiling {
		quantity = ceiling
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}
