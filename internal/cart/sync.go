package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/arbolmarket/cartsync/pkg/kv"
	"go.uber.org/multierr"
)

var errNoListingForPost = errors.New("no listing resolves for post")

// OnLogin reacts to an authentication event: it backs up the guest cart,
// installs the session, replays the guest lines into the server cart one at
// a time, and replaces local state with the freshly fetched server cart.
//
// The backup is written before anything else so a merge failure cannot lose
// the guest's cart. The replay is deliberately sequential: every add mutates
// shared server-side cart state, and ordering (last write wins on duplicate
// listing adds) is easier to reason about than interleaved writes. The cost
// is latency proportional to guest cart size, paid once per login.
func (s *service) OnLogin(ctx context.Context, token, userID string) error {
	guest := s.container.Snapshot()

	if err := s.store.Write(ctx, backupKey, guest, kv.WriteOptions{
		TTL:         s.backupTTL,
		ExpiryField: backupExpiryField,
	}); err != nil {
		return fmt.Errorf("backing up guest cart: %w", err)
	}

	if err := s.session.Install(ctx, token, userID); err != nil {
		return fmt.Errorf("installing session: %w", err)
	}

	var skipped error
	for _, line := range guest.Lines {
		if postID, years, ok := ParseAdoptionSlug(line.Slug); ok {
			listingID, found, err := s.catalog.ResolveListingID(ctx, postID)
			if err == nil && !found {
				err = errNoListingForPost
			}
			if err == nil {
				err = s.cartAPI.AddListing(ctx, listingID, line.Quantity, years)
			}
			if err != nil {
				s.metrics.IncSkippedLine()
				skipped = multierr.Append(skipped, fmt.Errorf("adoption post %d: %w", postID, err))
				continue
			}
			s.metrics.IncMergedLine()
			continue
		}

		if line.Key > 0 {
			if err := s.cartAPI.AddProduct(ctx, line.Key, line.Quantity); err != nil {
				s.metrics.IncSkippedLine()
				skipped = multierr.Append(skipped, fmt.Errorf("product %d: %w", line.Key, err))
				continue
			}
			s.metrics.IncMergedLine()
		}
		// A negative key without a parseable slug has no server identity
		// to replay; it is dropped from the merge.
	}

	if skipped != nil {
		s.logger.Warn(ctx, fmt.Sprintf("login merge skipped %d guest line(s): %v", len(multierr.Errors(skipped)), skipped))
	}

	return s.hydrate(ctx)
}

// OnLogout discards server-derived state and restores the latest guest
// snapshot, or an empty cart when none survives. Whatever was added while
// authenticated stays on the server, owned by that account; no merge back.
func (s *service) OnLogout(ctx context.Context) error {
	// Clear the token first so no further authenticated call can leak.
	s.session.Clear(ctx)
	s.setMappings(nil)

	var backup State
	found, err := s.store.Read(ctx, backupKey, kv.ReadOptions{ExpiryField: backupExpiryField}, &backup)
	if err != nil {
		return err
	}
	if !found {
		return s.container.Clear(ctx)
	}
	return s.container.ReplaceAll(ctx, backup.Lines)
}
