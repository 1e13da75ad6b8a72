/*
Package index holds the immutable, pre-normalized view over a reference address set.

An Index is built once from a slice of records: every street is normalized, lower-cased and
stored next to the original record at the same position. Positions are stable for the life of
the Index, so retrievers and rankers refer to records by position instead of copying them.

Registry publishes one Index per dataset id and makes sure concurrent callers trigger at most
one build. When the underlying data changes the dataset is invalidated and rebuilt wholesale.
*/
package index

import (
	"sort"
	"strings"

	"github.com/bastiangx/addrserve/pkg/normalize"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Entry pairs a raw record with its normalized street.
// Bare is Street without its street-type word.
type Entry struct {
	Record Record
	Street string
	Bare   string
}

// Index is safe for concurrent reads; it is never mutated after Build returns.
type Index struct {
	entries []Entry
	streets []string
	bare    []string
	byID    map[int64]int
	tokens  *patricia.Trie
}

// Build normalizes every record and indexes its street tokens.
// A nil normalizer falls back to the uncached package functions.
func Build(records []Record, n *normalize.Normalizer) *Index {
	idx := &Index{
		entries: make([]Entry, len(records)),
		streets: make([]string, len(records)),
		bare:    make([]string, len(records)),
		byID:    make(map[int64]int, len(records)),
		tokens:  patricia.NewTrie(),
	}

	for pos, rec := range records {
		street := strings.TrimSpace(streetKey(n, rec.Street))
		bare := normalize.StripType(street)
		idx.entries[pos] = Entry{Record: rec, Street: street, Bare: bare}
		idx.streets[pos] = street
		idx.bare[pos] = bare
		if _, dup := idx.byID[rec.ID]; !dup {
			idx.byID[rec.ID] = pos
		}
		idx.addTokens(pos, street)
	}
	return idx
}

func streetKey(n *normalize.Normalizer, street string) string {
	if n == nil {
		return normalize.Key(street)
	}
	return n.Key(street)
}

// addTokens records pos under every distinct token of street.
// Positions arrive in increasing order, so each list stays sorted.
func (x *Index) addTokens(pos int, street string) {
	seen := make(map[string]struct{}, 4)
	for _, tok := range strings.Fields(street) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}

		key := patricia.Prefix(tok)
		if item := x.tokens.Get(key); item != nil {
			x.tokens.Set(key, append(item.([]int), pos))
			continue
		}
		x.tokens.Insert(key, []int{pos})
	}
}

// Len returns the number of indexed records.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// Entry returns the entry at pos. It panics if pos is out of range.
func (x *Index) Entry(pos int) *Entry {
	return &x.entries[pos]
}

// Street returns the normalized street at pos.
func (x *Index) Street(pos int) string {
	return x.streets[pos]
}

// Bare returns the normalized street at pos without its street-type word.
func (x *Index) Bare(pos int) string {
	return x.bare[pos]
}

// Streets returns the normalized streets in index order. Callers must not modify it.
func (x *Index) Streets() []string {
	return x.streets
}

// Position returns the index position of the record with the given id.
func (x *Index) Position(id int64) (int, bool) {
	pos, ok := x.byID[id]
	return pos, ok
}

// TokenPrefix returns, in ascending order, the positions whose normalized street
// has at least one token starting with prefix.
func (x *Index) TokenPrefix(prefix string) []int {
	prefix = strings.ToLower(prefix)
	if prefix == "" || x.Len() == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	var out []int
	_ = x.tokens.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		for _, pos := range item.([]int) {
			if _, ok := seen[pos]; ok {
				continue
			}
			seen[pos] = struct{}{}
			out = append(out, pos)
		}
		return nil
	})
	sort.Ints(out)
	return out
}
