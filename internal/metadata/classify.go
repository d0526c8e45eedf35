// Package metadata implements the resolution core: classifying raw queries
// into source identifiers, fanning fetches out across the catalog adapters,
// merging the per-source records into one canonical game, and diffing edited
// values into minimal tri-state update payloads.
package metadata

import (
	"regexp"
	"strings"

	"galhub/pkg/models"
)

var (
	vndbIDPattern  = regexp.MustCompile(`(?i)^v\d+$`)
	ymgalIDPattern = regexp.MustCompile(`(?i)^ga\d+$`)
	bgmIDPattern   = regexp.MustCompile(`^\d+$`)
)

// Classify partitions a raw query string into at most one source identifier.
// Precedence is fixed and order matters: VNDB's v-prefix, then YMGal's
// ga-prefix, then bare digits as a Bangumi subject id. A string matching
// nothing yields an empty set and is treated as a name query upstream.
//
// Pure digits are always routed to Bangumi even though IsYmgalID would accept
// them too; see IsYmgalID.
func Classify(input string) models.IDSet {
	q := strings.TrimSpace(input)
	switch {
	case vndbIDPattern.MatchString(q):
		return models.IDSet{VndbID: q}
	case ymgalIDPattern.MatchString(q):
		return models.IDSet{YmgalID: q[2:]}
	case bgmIDPattern.MatchString(q):
		return models.IDSet{BgmID: q}
	default:
		return models.IDSet{}
	}
}

// IsIDQuery reports whether the input looks like any recognized id format.
// It accepts exactly the three patterns Classify recognizes.
func IsIDQuery(input string) bool {
	return !Classify(input).Empty()
}

// IsYmgalID reports whether the input is acceptable as a YMGal id on its own:
// a ga-prefixed or purely numeric string. Note the overlap with Bangumi ids:
// Classify always wins with Bangumi for bare digits, which can misroute a
// numeric YMGal id typed without its prefix. That precedence is intentional
// and must not change.
func IsYmgalID(input string) bool {
	q := strings.TrimSpace(input)
	return ymgalIDPattern.MatchString(q) || bgmIDPattern.MatchString(q)
}
