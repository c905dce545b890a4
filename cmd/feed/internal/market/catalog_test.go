package market_test

import (
	"reflect"
	"testing"

	"github.com/tickerhub/stock-ticker/cmd/feed/internal/market"
)

func TestCatalog_OrderAndLookup(t *testing.T) {
	c := market.NewCatalog(
		[]string{"GOOG", "AAPL", "TSLA"},
		map[string]float64{"AAPL": 150, "GOOG": 175.50, "TSLA": 700},
	)

	want := []string{"GOOG", "AAPL", "TSLA"}
	if got := c.Symbols(); !reflect.DeepEqual(got, want) {
		t.Errorf("Symbols() = %v, want %v", got, want)
	}

	if !c.IsValid("GOOG") {
		t.Error("GOOG should be valid")
	}
	if c.IsValid("FAKE") {
		t.Error("FAKE should not be valid")
	}

	base, ok := c.BasePrice("GOOG")
	if !ok || base != 175.50 {
		t.Errorf("BasePrice(GOOG) = %v, %v", base, ok)
	}
}

func TestCatalog_SkipsUnpricedAndDuplicateTickers(t *testing.T) {
	c := market.NewCatalog(
		[]string{"AAPL", "NOPRICE", "NEG", "AAPL"},
		map[string]float64{"AAPL": 150, "NEG": -5},
	)

	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
	if c.IsValid("NOPRICE") || c.IsValid("NEG") {
		t.Error("unpriced tickers must not enter the catalog")
	}
}
