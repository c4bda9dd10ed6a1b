package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyQuery is returned when the search term is blank after trimming.
var ErrEmptyQuery = errors.New("search: empty query")

var imdbIDPattern = regexp.MustCompile(`^tt\d+$`)

// Query is a validated search request. Term is trimmed but keeps its case,
// since that is what gets sent upstream.
type Query struct {
	Term string
	Page int
}

// Key identifies a cache slot. Queries that differ only in case or
// surrounding whitespace share a key.
type Key struct {
	Term string
	Page int
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.Term, k.Page)
}

// NewQuery trims raw and rejects it when nothing is left. Pages below 1 are
// treated as the first page.
func NewQuery(raw string, page int) (Query, error) {
	term := strings.TrimSpace(raw)
	if term == "" {
		return Query{}, ErrEmptyQuery
	}
	if page < 1 {
		page = 1
	}
	return Query{Term: term, Page: page}, nil
}

func (q Query) Key() Key {
	return Key{Term: strings.ToLower(q.Term), Page: q.Page}
}

// IsIDLookup reports whether the term is an exact IMDb identifier such as
// "tt0372784" rather than free text.
func (q Query) IsIDLookup() bool {
	return imdbIDPattern.MatchString(q.Term)
}
