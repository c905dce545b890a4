package market_test

import (
	"sync"
	"testing"

	"github.com/tickerhub/stock-ticker/cmd/feed/internal/market"
	"github.com/tickerhub/stock-ticker/pkg/models"
)

func newHistory() *market.History {
	catalog := market.NewCatalog(
		[]string{"AAPL", "TSLA"},
		map[string]float64{"AAPL": 150, "TSLA": 700},
	)
	return market.NewHistory(catalog)
}

func TestHistory_EvictsOldestAtCapacity(t *testing.T) {
	h := newHistory()

	for i := 0; i < 150; i++ {
		h.Append("AAPL", models.Tick{Code: "AAPL", Price: 150, Timestamp: int64(i)})
	}

	if got := h.Len("AAPL"); got != market.HistorySize {
		t.Fatalf("Len = %d, want %d", got, market.HistorySize)
	}

	ticks := h.Snapshot("AAPL")
	if ticks[0].Timestamp != 50 {
		t.Errorf("oldest retained tick = %d, want 50", ticks[0].Timestamp)
	}
	if ticks[len(ticks)-1].Timestamp != 149 {
		t.Errorf("newest retained tick = %d, want 149", ticks[len(ticks)-1].Timestamp)
	}
}

func TestHistory_SnapshotIsIsolated(t *testing.T) {
	h := newHistory()
	h.Append("AAPL", models.Tick{Code: "AAPL", Price: 150, Timestamp: 1})

	snap := h.Snapshot("AAPL")
	snap[0].Price = 0

	if h.Snapshot("AAPL")[0].Price != 150 {
		t.Error("mutating a snapshot leaked into the buffer")
	}
}

func TestHistory_UnknownSymbol(t *testing.T) {
	h := newHistory()

	// Appends outside the catalog are dropped.
	h.Append("FAKE", models.Tick{Code: "FAKE", Price: 1, Timestamp: 1})

	if got := h.Snapshot("FAKE"); len(got) != 0 {
		t.Errorf("Snapshot of unknown symbol = %v, want empty", got)
	}
	if got := h.Len("FAKE"); got != 0 {
		t.Errorf("Len of unknown symbol = %d, want 0", got)
	}
}

func TestHistory_ConcurrentAppendAndSnapshot(t *testing.T) {
	// Run with `go test -race ./...`
	h := newHistory()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Append("TSLA", models.Tick{Code: "TSLA", Price: 700, Timestamp: int64(i)})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := h.Snapshot("TSLA")
				if len(snap) > market.HistorySize {
					t.Errorf("snapshot length %d exceeds capacity", len(snap))
					return
				}
			}
		}()
	}

	wg.Wait()
}
