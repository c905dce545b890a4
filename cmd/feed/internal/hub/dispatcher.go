package hub

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tickerhub/stock-ticker/cmd/feed/internal/market"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/protocol"
	"github.com/tickerhub/stock-ticker/pkg/models"
)

// TickPublisher exports ticks to an external stream. Optional; failures are
// logged and never interrupt delivery.
type TickPublisher interface {
	Publish(ctx context.Context, tick models.Tick) error
}

// Dispatcher advances every catalog symbol on a fixed period and fans the
// resulting ticks out to each symbol's group. A single goroutine owns the
// loop, so ticks never overlap.
type Dispatcher struct {
	catalog   *market.Catalog
	engine    *market.Engine
	history   *market.History
	hub       *Hub
	publisher TickPublisher
	logger    *zap.Logger
	interval  time.Duration
}

func NewDispatcher(catalog *market.Catalog, engine *market.Engine, history *market.History, h *Hub, publisher TickPublisher, logger *zap.Logger, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		catalog:   catalog,
		engine:    engine,
		history:   history,
		hub:       h,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
	}
}

// Run drives the tick loop until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Dispatcher started", zap.Duration("interval", d.interval), zap.Int("symbols", d.catalog.Size()))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick processes one full pass over the catalog: advance, record, deliver.
// A failure for one symbol or one subscriber never aborts the rest.
func (d *Dispatcher) Tick(ctx context.Context) {
	for _, sym := range d.catalog.Symbols() {
		tick, ok := d.engine.Advance(sym)
		if !ok {
			continue
		}

		d.history.Append(sym, tick)

		payload, err := json.Marshal(protocol.Message{Event: protocol.EventPriceUpdate, Payload: tick})
		if err != nil {
			d.logger.Error("Tick marshal failed", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		d.hub.Broadcast(sym, payload)

		if d.publisher != nil {
			if err := d.publisher.Publish(ctx, tick); err != nil {
				d.logger.Warn("Tick export failed", zap.String("symbol", sym), zap.Error(err))
			}
		}
	}
}
