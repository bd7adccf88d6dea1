package storefront_test

import (
	"testing"

	"github.com/masad40/next-sc/internal/catalog"
	"github.com/masad40/next-sc/internal/storefront"
)

func names(items []catalog.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestFilter_PhoneMatchesNameCaseInsensitive(t *testing.T) {
	got := names(storefront.Filter(catalog.SeedItems(), "  PHONE "))
	if len(got) != 2 || got[0] != "Phone" || got[1] != "Iphone 17 pro max" {
		t.Fatalf("got=%v", got)
	}
}

func TestFilter_OneMatch(t *testing.T) {
	got := names(storefront.Filter(catalog.SeedItems(), "laptop"))
	if len(got) != 1 || got[0] != "Laptop" {
		t.Fatalf("got=%v", got)
	}
}

func TestFilter_MatchesDescription(t *testing.T) {
	got := names(storefront.Filter(catalog.SeedItems(), "gddr7"))
	if len(got) != 1 || got[0] != "MSI GeForce RTX 5090 " {
		t.Fatalf("got=%v", got)
	}
}

func TestFilter_NoMatchIsEmpty(t *testing.T) {
	got := storefront.Filter(catalog.SeedItems(), "zzz-nothing")
	if got == nil || len(got) != 0 {
		t.Fatalf("got=%#v want empty non-nil", got)
	}
}

func TestFilter_BlankTermIsIdentity(t *testing.T) {
	src := catalog.SeedItems()
	for _, term := range []string{"", "   "} {
		got := storefront.Filter(src, term)
		if len(got) != len(src) || &got[0] != &src[0] {
			t.Fatalf("term=%q did not return the source slice", term)
		}
	}
}

func TestSearcher_Memoises(t *testing.T) {
	var s storefront.Searcher
	c := storefront.Catalog{Items: catalog.SeedItems(), Version: `"v1"`}

	first := s.Search(c, "phone")
	s.Search(c, " Phone ")
	if s.Recomputes() != 1 {
		t.Fatalf("recomputes=%d want=1", s.Recomputes())
	}
	if len(first) != 2 {
		t.Fatalf("len=%d", len(first))
	}

	s.Search(c, "laptop")
	if s.Recomputes() != 2 {
		t.Fatalf("term change: recomputes=%d want=2", s.Recomputes())
	}

	c.Version = `"v2"`
	c.Items = append(c.Items, catalog.Item{ID: 9, Name: "Gaming Laptop"})
	got := s.Search(c, "laptop")
	if s.Recomputes() != 3 {
		t.Fatalf("version change: recomputes=%d want=3", s.Recomputes())
	}
	if len(got) != 2 {
		t.Fatalf("stale result: %v", names(got))
	}
}
