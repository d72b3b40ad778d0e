package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/scentlab/storefront/internal/config"
	kafkax "github.com/scentlab/storefront/internal/kafka"
	"github.com/scentlab/storefront/internal/orders"
	"github.com/scentlab/storefront/internal/postgres"
	"github.com/scentlab/storefront/internal/redisx"
	"github.com/scentlab/storefront/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stockwatch.Service{
		Repo:        &stockwatch.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName,
	}

	topics := []string{orders.TopicStockDiscrepancy, orders.TopicOrderPaid}

	var wg sync.WaitGroup
	for _, topic := range topics {
		c := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StockwatchGroup, topic, cfg.StockwatchWorkers)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			log.Printf("stockwatch consuming %s", topic)
			if err := c.Start(ctx, svc.HandleEvent); err != nil {
				log.Printf("consumer %s stopped: %v", topic, err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down...")
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
}
