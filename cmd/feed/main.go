package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gobwas/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tickerhub/stock-ticker/cmd/feed/internal/gateway"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/hub"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/market"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/publisher"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/repository"
	"github.com/tickerhub/stock-ticker/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	interval := time.Duration(cfg.Market.TickIntervalMs) * time.Millisecond

	catalog := market.NewCatalog(cfg.Market.Tickers, cfg.Market.BasePrices)
	if catalog.Size() == 0 {
		logger.Fatal("Instrument catalog is empty")
	}

	engine := market.NewEngine(catalog, market.NewRand(), market.RealClock{})
	history := market.NewHistory(catalog)
	engine.Seed(history, interval)
	logger.Info("Market seeded", zap.Strings("symbols", catalog.Symbols()))

	store, err := newAccountStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize account store", zap.Error(err))
	}
	defer store.Close()

	wsHub := hub.NewHub(catalog, engine, history, store, logger)

	var tickPublisher hub.TickPublisher
	var kafkaPub *publisher.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub = publisher.New(publisher.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), logger)
		tickPublisher = kafkaPub
		logger.Info("Kafka tick export enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := hub.NewDispatcher(catalog, engine, history, wsHub, tickPublisher, logger, interval)
	go dispatcher.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}

		client := gateway.NewClient(conn, wsHub, logger)
		client.Start()
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancel()
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("Error closing Kafka writer", zap.Error(err))
		}
	}
	srv.Shutdown(context.Background())
	logger.Info("Shutdown Complete")
}

func newAccountStore(cfg *config.Config, logger *zap.Logger) (repository.AccountStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		logger.Info("Using Postgres account store", zap.String("host", cfg.Postgres.Host))
		return repository.NewPostgresStore(cfg.Postgres.DSN())
	default:
		logger.Info("Using Redis account store", zap.String("addr", cfg.Redis.Addr))
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return repository.NewRedisStore(rdb), nil
	}
}
