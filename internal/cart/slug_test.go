package cart

import "testing"

func TestParseAdoptionSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slug     string
		postID   int64
		years    int
		ok       bool
	}{
		{slug: "adopt-77", postID: 77, years: 1, ok: true},
		{slug: "adopt-77-y1", postID: 77, years: 1, ok: true},
		{slug: "adopt-77-y3", postID: 77, years: 3, ok: true},
		{slug: "adopt-104-y0", postID: 104, years: 1, ok: true},
		{slug: "adopt--5", ok: false},
		{slug: "adopt-", ok: false},
		{slug: "adopt-abc", ok: false},
		{slug: "adopt-7-yx", ok: false},
		{slug: "product-77", ok: false},
		{slug: "", ok: false},
	}

	for _, tt := range tests {
		postID, years, ok := ParseAdoptionSlug(tt.slug)
		if ok != tt.ok {
			t.Fatalf("slug %q: expected ok=%v got %v", tt.slug, tt.ok, ok)
		}
		if !tt.ok {
			continue
		}
		if postID != tt.postID || years != tt.years {
			t.Fatalf("slug %q: expected post=%d years=%d, got post=%d years=%d",
				tt.slug, tt.postID, tt.years, postID, years)
		}
	}
}

func TestAdoptionSlugRoundtrip(t *testing.T) {
	t.Parallel()

	if got := AdoptionSlug(77, 1); got != "adopt-77" {
		t.Fatalf("single-year slug should omit the suffix, got %q", got)
	}
	if got := AdoptionSlug(77, 3); got != "adopt-77-y3" {
		t.Fatalf("unexpected multi-year slug %q", got)
	}

	for _, years := range []int{1, 2, 10} {
		postID, parsedYears, ok := ParseAdoptionSlug(AdoptionSlug(42, years))
		if !ok || postID != 42 || parsedYears != years {
			t.Fatalf("roundtrip failed for years=%d: post=%d years=%d ok=%v", years, postID, parsedYears, ok)
		}
	}
}

func TestSyntheticKeyRoundtrip(t *testing.T) {
	t.Parallel()

	for _, listingID := range []int64{1, 77, 999999} {
		key := KeyForListing(listingID)
		if key >= 0 {
			t.Fatalf("synthetic keys must be negative, got %d", key)
		}
		recovered, ok := ListingIDFromKey(key)
		if !ok || recovered != listingID {
			t.Fatalf("expected listing %d back, got %d ok=%v", listingID, recovered, ok)
		}
	}

	// Product ids are always positive upstream, so they can never land in
	// the synthetic keyspace.
	if _, ok := ListingIDFromKey(501); ok {
		t.Fatal("positive keys must not decode as listings")
	}
}
