package storefront_test

import (
	"testing"

	"github.com/masad40/next-sc/internal/storefront"
)

func TestFormatPrice(t *testing.T) {
	cases := map[float64]string{
		0:         "0 BDT",
		99:        "99 BDT",
		20000:     "20,000 BDT",
		1234567.5: "1,234,567.5 BDT",
		10.25:     "10.25 BDT",
		-1500:     "-1,500 BDT",
	}
	for in, want := range cases {
		if got := storefront.FormatPrice(in); got != want {
			t.Fatalf("FormatPrice(%v)=%q want %q", in, got, want)
		}
	}
}
