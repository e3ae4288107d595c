// Package sqlguard is the textual gate between untrusted query text and the store.
//
// It is a substring heuristic, not a parser: a banned word inside an identifier
// (updated_at, dropoff) is rejected, and it makes no claim against deliberately
// obfuscated input. Only values returned by Filter can be executed.
package sqlguard

import (
	"fmt"
	"strings"

	errx "github.com/urbanbot/server/internal/core/error"
)

// DefaultRowLimit caps queries that carry no LIMIT of their own.
const DefaultRowLimit = 100

var bannedTokens = []string{"delete", "update", "drop", "insert", "alter"}

// SafeQuery is query text that passed Filter. The zero value is not executable.
type SafeQuery struct {
	text string
}

// String returns the sanitized query text.
func (q SafeQuery) String() string {
	return q.text
}

// Valid reports whether q was produced by Filter.
func (q SafeQuery) Valid() bool {
	return q.text != ""
}

// Filter applies the default row limit.
func Filter(raw string) (SafeQuery, error) {
	return FilterWithLimit(raw, DefaultRowLimit)
}

// FilterWithLimit finds the first "select", drops any preamble before it,
// rejects banned statements and appends a LIMIT clause when none is present.
func FilterWithLimit(raw string, limit int) (SafeQuery, error) {
	p := indexFold(raw, "select")
	if p == -1 {
		return SafeQuery{}, errx.Unsafe("no select statement")
	}
	s := raw[p:]
	lowered := strings.ToLower(s)

	for _, b := range bannedTokens {
		if strings.Contains(lowered, b) {
			return SafeQuery{}, errx.Unsafe(fmt.Sprintf("banned token %q", b))
		}
	}

	if !strings.Contains(lowered, "limit") {
		if limit <= 0 {
			limit = DefaultRowLimit
		}
		s += fmt.Sprintf(" LIMIT %d", limit)
	}
	return SafeQuery{text: s}, nil
}

// indexFold is a case-insensitive strings.Index for an ASCII needle. It
// returns a byte offset into s.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// MustFilter is for compile-time constant queries; it panics on rejection.
func MustFilter(raw string) SafeQuery {
	q, err := Filter(raw)
	if err != nil {
		panic(fmt.Sprintf("sqlguard: %q: %v", raw, err))
	}
	return q
}
