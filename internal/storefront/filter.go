package storefront

import (
	"strings"
	"sync"

	"github.com/masad40/next-sc/internal/catalog"
)

// Filter returns the items whose name or description contains term, ignoring
// case and surrounding whitespace. A blank term returns items unchanged.
func Filter(items []catalog.Item, term string) []catalog.Item {
	term = normalizeTerm(term)
	if term == "" {
		return items
	}

	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), term) ||
			strings.Contains(strings.ToLower(it.Description), term) {
			out = append(out, it)
		}
	}
	return out
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Searcher memoises the last Filter result. It recomputes only when the
// catalog version or the normalised term differs from the previous call.
// Returned slices are shared and must not be modified.
type Searcher struct {
	mu         sync.Mutex
	valid      bool
	version    string
	term       string
	result     []catalog.Item
	recomputes uint64
}

func (s *Searcher) Search(c Catalog, term string) []catalog.Item {
	term = normalizeTerm(term)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.valid && s.version == c.Version && s.term == term {
		return s.result
	}

	s.result = Filter(c.Items, term)
	s.version, s.term, s.valid = c.Version, term, true
	s.recomputes++
	return s.result
}

// Recomputes reports how many times Search actually ran the filter.
func (s *Searcher) Recomputes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputes
}
