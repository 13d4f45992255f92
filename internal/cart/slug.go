package cart

import (
	"fmt"
	"strconv"
	"strings"
)

const slugPrefix = "adopt-"

// AdoptionSlug encodes an adoption post into the guest-line identity,
// "adopt-<postID>" or "adopt-<postID>-y<years>" when years exceeds one.
// The login merge recognizes this encoding to replay guest tree lines
// against the server.
func AdoptionSlug(postID int64, years int) string {
	if years > 1 {
		return fmt.Sprintf("%s%d-y%d", slugPrefix, postID, years)
	}
	return fmt.Sprintf("%s%d", slugPrefix, postID)
}

// ParseAdoptionSlug decodes a guest-line identity. Years defaults to 1 when
// the suffix is missing or non-positive. Anything that does not match the
// encoding reports ok=false.
func ParseAdoptionSlug(slug string) (postID int64, years int, ok bool) {
	rest, found := strings.CutPrefix(slug, slugPrefix)
	if !found || rest == "" {
		return 0, 0, false
	}

	years = 1
	if idx := strings.LastIndex(rest, "-y"); idx >= 0 {
		parsed, err := strconv.Atoi(rest[idx+2:])
		if err != nil {
			return 0, 0, false
		}
		if parsed > 0 {
			years = parsed
		}
		rest = rest[:idx]
	}

	postID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || postID <= 0 {
		return 0, 0, false
	}
	return postID, years, true
}
