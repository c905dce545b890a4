package market

import (
	"math"
	"sync"
	"time"

	"github.com/tickerhub/stock-ticker/pkg/models"
)

const (
	// warm-up simulation used to seed the initial price and history
	warmupSteps    = 100
	seedVolatility = 0.4
	seedReversion  = 0.05

	// steady-state tick process
	tickVolatility = 0.2
	tickReversion  = 0.02

	// no price ever drops below this floor
	floorPrice = 10.00
)

// priceState guards one symbol's current price so unrelated symbols never
// contend on a shared lock.
type priceState struct {
	mu    sync.RWMutex
	value float64
}

// Engine owns the per-symbol current price and advances it with a
// mean-reverting random walk. Writes happen only on the dispatcher's tick
// path; reads may come from any connection handler. The state map is built
// once from the catalog and never mutated, so it needs no lock of its own.
type Engine struct {
	catalog *Catalog
	rand    Rand
	clock   Clock
	states  map[string]*priceState
}

func NewEngine(catalog *Catalog, rnd Rand, clock Clock) *Engine {
	e := &Engine{
		catalog: catalog,
		rand:    rnd,
		clock:   clock,
		states:  make(map[string]*priceState, catalog.Size()),
	}
	for _, sym := range catalog.Symbols() {
		base, _ := catalog.BasePrice(sym)
		e.states[sym] = &priceState{value: base}
	}
	return e
}

// Seed runs the warm-up walk for every symbol and appends the intermediate
// values to history with synthetic timestamps stepping back into the past at
// the given interval, so new clients see a populated chart immediately. The
// final warm-up value becomes the symbol's starting price.
func (e *Engine) Seed(history *History, interval time.Duration) {
	now := e.clock.Now()

	for _, sym := range e.catalog.Symbols() {
		base, _ := e.catalog.BasePrice(sym)
		price := base
		for i := 0; i < warmupSteps; i++ {
			price = e.step(price, base, seedVolatility, seedReversion)
			ts := now.Add(-time.Duration(warmupSteps-1-i) * interval)
			history.Append(sym, models.Tick{Code: sym, Price: price, Timestamp: ts.UnixMilli()})
		}

		st := e.states[sym]
		st.mu.Lock()
		st.value = price
		st.mu.Unlock()
	}
}

// Advance moves the symbol's price one steady-state step and returns the
// resulting tick. Returns false for symbols outside the catalog. Only the
// dispatcher calls Advance, so the random source is never shared.
func (e *Engine) Advance(symbol string) (models.Tick, bool) {
	base, ok := e.catalog.BasePrice(symbol)
	if !ok {
		return models.Tick{}, false
	}
	st := e.states[symbol]

	st.mu.Lock()
	next := e.step(st.value, base, tickVolatility, tickReversion)
	st.value = next
	st.mu.Unlock()

	return models.Tick{Code: symbol, Price: next, Timestamp: e.clock.Now().UnixMilli()}, true
}

// Price returns the symbol's current live price.
func (e *Engine) Price(symbol string) (float64, bool) {
	st, ok := e.states[symbol]
	if !ok {
		return 0, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.value, true
}

// Prices returns a copy of every symbol's current price.
func (e *Engine) Prices() map[string]float64 {
	out := make(map[string]float64, len(e.states))
	for sym, st := range e.states {
		st.mu.RLock()
		out[sym] = st.value
		st.mu.RUnlock()
	}
	return out
}

// step applies one mean-reverting move: symmetric uniform noise plus a pull
// back toward the base price, floored and rounded to cents.
func (e *Engine) step(current, base, volatility, reversion float64) float64 {
	noise := (e.rand.Float64()*2 - 1) * volatility
	pull := (base - current) * reversion
	next := current + noise + pull
	if next < floorPrice {
		next = floorPrice
	}
	return round2(next)
}

func round2(p float64) float64 {
	return math.Round(p*100) / 100
}
