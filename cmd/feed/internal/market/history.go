package market

import (
	"sync"

	"github.com/tickerhub/stock-ticker/pkg/models"
)

// HistorySize is the per-symbol ring capacity.
const HistorySize = 100

// ring is one symbol's bounded tick sequence with its own lock, so readers
// of one symbol never wait on writes to another.
type ring struct {
	mu    sync.RWMutex
	ticks []models.Tick
}

// History keeps the last HistorySize ticks per catalog symbol, oldest
// evicted first. Append runs only on the dispatcher's tick path; Snapshot
// may be called concurrently by any connection handler and always observes
// a consistent sequence (copy under the symbol's lock). The ring map is
// fixed at construction and never mutated.
type History struct {
	rings map[string]*ring
}

func NewHistory(catalog *Catalog) *History {
	h := &History{rings: make(map[string]*ring, catalog.Size())}
	for _, sym := range catalog.Symbols() {
		h.rings[sym] = &ring{ticks: make([]models.Tick, 0, HistorySize)}
	}
	return h
}

// Append pushes a tick onto the symbol's sequence, evicting the oldest entry
// once the ring is full. Unknown symbols are ignored.
func (h *History) Append(symbol string, tick models.Tick) {
	r, ok := h.rings[symbol]
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ticks = append(r.ticks, tick)
	if len(r.ticks) > HistorySize {
		r.ticks = r.ticks[len(r.ticks)-HistorySize:]
	}
}

// Snapshot returns a copy of the symbol's full chronological sequence.
func (h *History) Snapshot(symbol string) []models.Tick {
	r, ok := h.rings[symbol]
	if !ok {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Tick, len(r.ticks))
	copy(out, r.ticks)
	return out
}

// Len returns the current number of ticks stored for a symbol.
func (h *History) Len(symbol string) int {
	r, ok := h.rings[symbol]
	if !ok {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ticks)
}
