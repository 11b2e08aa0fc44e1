// Package referral models the materialized-path encoding of the referral
// tree. A user's path is the ordered chain of ancestor ids ending with the
// user's own id ("7.42.99": 99 was referred by 42, who was referred by 7).
// Root users carry just their own id. The path is written exactly once, right
// after the user row gets its id, and never mutated.
package referral

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter separates ids inside the persisted path column.
const Delimiter = "."

// ErrMalformedPath reports a path with an empty or non-numeric segment.
// Callers treat it as "no ancestors" but must log it: a user row with a
// broken path is a provisioning bug, not a reason to block their deposit.
var ErrMalformedPath = errors.New("malformed referral path")

// Path is the decoded ancestry chain, root first, owner last.
type Path []uint64

// Parse decodes the persisted path column. A blank path is valid and decodes
// to an empty Path (root users created before path backfill, or no path at
// all). Any empty or non-numeric segment yields ErrMalformedPath.
func Parse(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	segs := strings.Split(s, Delimiter)
	p := make(Path, 0, len(segs))

	for _, seg := range segs {
		id, err := strconv.ParseUint(seg, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: segment %q in %q", ErrMalformedPath, seg, s)
		}

		p = append(p, id)
	}

	return p, nil
}

// Root returns the path of a user with no referrer.
func Root(id uint64) Path {
	return Path{id}
}

// Child returns the path of a user referred by the owner of p.
func (p Path) Child(id uint64) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)

	return append(child, id)
}

// Owner returns the trailing segment, the id of the user the path belongs to.
// Zero for an empty path.
func (p Path) Owner() uint64 {
	if len(p) == 0 {
		return 0
	}

	return p[len(p)-1]
}

// Ancestors returns the ancestor ids nearest first (immediate referrer at
// index 0), truncated to at most limit entries. A root or empty path has no
// ancestors. No padding: fewer ancestors than limit yields a shorter slice.
func (p Path) Ancestors(limit int) []uint64 {
	if len(p) < 2 || limit <= 0 {
		return nil
	}

	chain := p[:len(p)-1] // drop self

	n := len(chain)
	if n > limit {
		n = limit
	}

	out := make([]uint64, 0, n)
	for i := len(chain) - 1; i >= len(chain)-n; i-- {
		out = append(out, chain[i])
	}

	return out
}

// String renders the persisted encoding. Empty path renders as "".
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}

	var b strings.Builder
	for i, id := range p {
		if i > 0 {
			b.WriteString(Delimiter)
		}
		b.WriteString(strconv.FormatUint(id, 10))
	}

	return b.String()
}
