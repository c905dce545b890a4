package market

// Catalog is the fixed registry of tradable symbols and their base reference
// prices. It is built once at startup and read-only afterwards; iteration
// order follows the configured ticker order.
type Catalog struct {
	order []string
	base  map[string]float64
}

// NewCatalog builds a catalog from an ordered ticker list and the base price
// map. Tickers without a base price (or with a non-positive one) are skipped.
func NewCatalog(tickers []string, basePrices map[string]float64) *Catalog {
	c := &Catalog{base: make(map[string]float64, len(tickers))}
	for _, sym := range tickers {
		price, ok := basePrices[sym]
		if !ok || price <= 0 {
			continue
		}
		if _, dup := c.base[sym]; dup {
			continue
		}
		c.order = append(c.order, sym)
		c.base[sym] = price
	}
	return c
}

// Symbols returns the catalog's symbols in broadcast order.
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// IsValid reports whether the symbol exists in the catalog. Every component
// uses this as a guard before touching per-symbol state.
func (c *Catalog) IsValid(symbol string) bool {
	_, ok := c.base[symbol]
	return ok
}

// BasePrice returns the mean-reversion reference price for a symbol.
func (c *Catalog) BasePrice(symbol string) (float64, bool) {
	p, ok := c.base[symbol]
	return p, ok
}

// Size returns the number of catalog symbols.
func (c *Catalog) Size() int { return len(c.order) }
