package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/scentlab/storefront/internal/catalog"
	"github.com/scentlab/storefront/internal/checkout"
	"github.com/scentlab/storefront/internal/config"
	"github.com/scentlab/storefront/internal/httpx"
	kafkax "github.com/scentlab/storefront/internal/kafka"
	"github.com/scentlab/storefront/internal/orders"
	"github.com/scentlab/storefront/internal/payment"
	"github.com/scentlab/storefront/internal/postgres"
	"github.com/scentlab/storefront/internal/ratelimit"
	"github.com/scentlab/storefront/internal/recaptcha"
	"github.com/scentlab/storefront/internal/redisx"
	"github.com/scentlab/storefront/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		catalogStore    catalog.Store
		orderStore      orders.Store
		rdb             *redis.Client
		checkoutLimiter ratelimit.Limiter
		cartLimiter     ratelimit.Limiter
		producers       []*kafkax.Producer
	)

	newProducer := func(topic string) *kafkax.Producer {
		p := kafkax.NewProducer(cfg.KafkaBrokers, topic, 1024)
		p.Start(ctx)
		producers = append(producers, p)
		return p
	}

	var checkoutProd, paidProd, discProd *kafkax.Producer

	switch cfg.StoreBackend {
	case "memory":
		log.Println("using in-memory stores (seeded demo catalog)")
		mem := catalog.NewMemoryStore()
		mem.Seed()
		catalogStore = mem
		orderStore = orders.NewMemoryStore()
		checkoutLimiter = ratelimit.NewMemoryLimiter(cfg.CheckoutRateLimit, time.Hour)
		cartLimiter = ratelimit.NewMemoryLimiter(cfg.CartRateLimit, time.Hour)
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		if err := postgres.RunMigrations(cfg.PostgresDSN, cfg.MigrationsPath); err != nil {
			log.Fatalf("migrations: %v", err)
		}

		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()

		catalogStore = &catalog.Repo{DB: db}
		orderStore = &orders.Repo{DB: db}
		checkoutLimiter = &ratelimit.RedisLimiter{RDB: rdb, Scope: "checkout", Limit: cfg.CheckoutRateLimit, Window: time.Hour}
		cartLimiter = &ratelimit.RedisLimiter{RDB: rdb, Scope: "cart", Limit: cfg.CartRateLimit, Window: time.Hour}

		checkoutProd = newProducer(orders.TopicCheckoutCreated)
		paidProd = newProducer(orders.TopicOrderPaid)
		discProd = newProducer(orders.TopicStockDiscrepancy)
	}

	var captcha recaptcha.Verifier
	if cfg.RecaptchaSecretKey != "" {
		captcha = recaptcha.NewClient(cfg.RecaptchaSecretKey, cfg.RecaptchaThreshold)
	} else {
		log.Println("RECAPTCHA_SECRET_KEY not set, bot defense disabled")
	}

	svc := &checkout.Service{
		Catalog: catalogStore,
		Orders:  orderStore,
		Gateway: payment.NewStripeClient(cfg.StripeAPIURL, cfg.StripeSecretKey),
		Captcha: captcha,
		Limiter: checkoutLimiter,
		Pricing: checkout.PricingConfig{
			FreeShippingCents: cfg.FreeShippingCents,
			FlatShippingCents: cfg.FlatShippingCents,
		},
		Producer:    checkoutProd,
		Currency:    cfg.Currency,
		PublicURL:   cfg.PublicURL,
		ServiceName: cfg.ServiceName,
	}

	rec := &webhook.Reconciler{
		Catalog:             catalogStore,
		Orders:              orderStore,
		Redis:               rdb,
		PaidProducer:        paidProd,
		DiscrepancyProducer: discProd,
		Secret:              cfg.StripeWebhookSecret,
		Tolerance:           cfg.WebhookTolerance,
		ServiceName:         cfg.ServiceName,
	}

	router := httpx.NewRouter()
	sh := &httpx.ShopHandler{
		Checkout:    svc,
		Catalog:     catalogStore,
		Orders:      orderStore,
		Redis:       rdb,
		CartLimiter: cartLimiter,
	}
	sh.Register(router)
	wh := &httpx.WebhookHandler{Reconciler: rec}
	wh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	cancel()
}
