package hub_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tickerhub/stock-ticker/cmd/feed/internal/hub"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/market"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/protocol"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/testutils"
	"github.com/tickerhub/stock-ticker/pkg/models"
)

func dispatcherFixture(pub hub.TickPublisher) (*hub.Dispatcher, fixture, *market.Catalog) {
	catalog := market.NewCatalog(
		[]string{"AAPL", "GOOG", "TSLA", "AMZN", "MSFT"},
		map[string]float64{"AAPL": 150, "GOOG": 175.50, "TSLA": 700, "AMZN": 3400, "MSFT": 310},
	)
	engine := market.NewEngine(catalog, &testutils.StubRand{}, testutils.StubClock{T: time.Unix(1700000000, 0)})
	history := market.NewHistory(catalog)
	store := testutils.NewMockAccountStore()
	h := hub.NewHub(catalog, engine, history, store, zap.NewNop())
	d := hub.NewDispatcher(catalog, engine, history, h, pub, zap.NewNop(), time.Second)
	return d, fixture{hub: h, store: store, engine: engine, history: history}, catalog
}

func TestTick_DeliversOnlyToGroupMembers(t *testing.T) {
	d, f, catalog := dispatcherFixture(nil)

	member := testutils.NewMockClient("member")
	idle := testutils.NewMockClient("idle")

	f.hub.HandleCommand(member, envelope(t, protocol.EventJoinFeed, protocol.SubscribePayload{StockCode: "GOOG"}))

	d.Tick(context.Background())

	if got := member.BroadcastCount(); got != 1 {
		t.Errorf("member received %d updates, want 1", got)
	}
	if got := idle.BroadcastCount(); got != 0 {
		t.Errorf("idle connection received %d updates, want 0", got)
	}

	member.Mu.Lock()
	frame := member.RawBytes[0]
	member.Mu.Unlock()
	if !strings.Contains(frame, `"event":"priceUpdate"`) || !strings.Contains(frame, `"code":"GOOG"`) {
		t.Errorf("unexpected frame: %s", frame)
	}

	// Every catalog symbol advanced and was recorded, subscribed or not.
	for _, sym := range catalog.Symbols() {
		if f.history.Len(sym) != 1 {
			t.Errorf("history for %s = %d entries, want 1", sym, f.history.Len(sym))
		}
	}
}

func TestTick_HistoryNeverExceedsCapacity(t *testing.T) {
	d, f, catalog := dispatcherFixture(nil)

	for i := 0; i < market.HistorySize+50; i++ {
		d.Tick(context.Background())
	}

	for _, sym := range catalog.Symbols() {
		if got := f.history.Len(sym); got != market.HistorySize {
			t.Errorf("history for %s = %d, want %d", sym, got, market.HistorySize)
		}
	}
}

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(ctx context.Context, tick models.Tick) error {
	p.calls++
	return errors.New("broker unavailable")
}

func TestTick_PublisherFailureDoesNotAbortDelivery(t *testing.T) {
	pub := &failingPublisher{}
	d, f, catalog := dispatcherFixture(pub)

	member := testutils.NewMockClient("member")
	f.hub.HandleCommand(member, envelope(t, protocol.EventJoinFeed, protocol.SubscribePayload{StockCode: "MSFT"}))

	d.Tick(context.Background())

	if pub.calls != catalog.Size() {
		t.Errorf("publisher calls = %d, want %d", pub.calls, catalog.Size())
	}
	if member.BroadcastCount() != 1 {
		t.Error("export failure must not block delivery to subscribers")
	}
	for _, sym := range catalog.Symbols() {
		if f.history.Len(sym) != 1 {
			t.Errorf("export failure must not abort the tick for %s", sym)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	catalog := market.NewCatalog([]string{"AAPL"}, map[string]float64{"AAPL": 150})
	engine := market.NewEngine(catalog, &testutils.StubRand{}, market.RealClock{})
	history := market.NewHistory(catalog)
	h := hub.NewHub(catalog, engine, history, testutils.NewMockAccountStore(), zap.NewNop())
	d := hub.NewDispatcher(catalog, engine, history, h, nil, zap.NewNop(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop on context cancellation")
	}

	if history.Len("AAPL") == 0 {
		t.Error("dispatcher never ticked before cancellation")
	}
}
