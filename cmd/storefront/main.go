package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/racoonius-programmer/levelup-storefront/internal/api"
	"github.com/racoonius-programmer/levelup-storefront/internal/cart"
	"github.com/racoonius-programmer/levelup-storefront/internal/catalog"
	"github.com/racoonius-programmer/levelup-storefront/internal/orders"
	"github.com/racoonius-programmer/levelup-storefront/internal/pricing"
	"github.com/racoonius-programmer/levelup-storefront/internal/session"
	"github.com/racoonius-programmer/levelup-storefront/pkg/broadcast"
	"github.com/racoonius-programmer/levelup-storefront/pkg/config"
	"github.com/racoonius-programmer/levelup-storefront/pkg/logger"
	"github.com/racoonius-programmer/levelup-storefront/pkg/metrics"
	"github.com/racoonius-programmer/levelup-storefront/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	clientID := cfg.App.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithClientID(ctx, clientID)

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	reqMetrics := metrics.NewRequestMetrics(prometheus.DefaultRegisterer)

	restClient, err := api.NewClient(cfg.API, logg, reqMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create rest client", err)
		os.Exit(1)
	}

	catalogClient, err := catalog.NewClient(restClient)
	if err != nil {
		logg.Error(ctx, "failed to create catalog client", err)
		os.Exit(1)
	}

	ordersClient, err := orders.NewClient(restClient)
	if err != nil {
		logg.Error(ctx, "failed to create orders client", err)
		os.Exit(1)
	}

	sessions, err := session.NewManager(redisClient, clientID, cfg.Store.SessionTTL, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	basket, err := cart.NewAggregator(redisClient, clientID, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart", err)
		os.Exit(1)
	}
	basket.Hydrate(ctx)

	policy, err := pricing.NewPolicy(cfg.Pricing.DiscountPercent)
	if err != nil {
		logg.Error(ctx, "failed to create pricing policy", err)
		os.Exit(1)
	}

	var publisher *broadcast.Publisher
	if cfg.Broadcast.Enabled {
		publisher, err = broadcast.NewPublisher(redisClient, cfg.Broadcast.Channel, clientID)
		if err != nil {
			logg.Error(ctx, "failed to create broadcast publisher", err)
			os.Exit(1)
		}
	}

	var controller *orders.Controller
	if publisher != nil {
		controller, err = orders.NewController(ordersClient, publisher, logg)
	} else {
		controller, err = orders.NewController(ordersClient, nil, logg)
	}
	if err != nil {
		logg.Error(ctx, "failed to create order controller", err)
		os.Exit(1)
	}

	if products, err := catalogClient.List(ctx); err != nil {
		logg.Error(ctx, "initial catalog fetch failed", err)
	} else {
		logg.Info(logg.WithField(ctx, "products", len(products)), "catalog loaded")
	}

	if identity := sessions.Current(ctx); identity != nil {
		uctx := logg.WithUserID(ctx, identity.Username)
		if policy.Discounted(identity) {
			logg.Info(uctx, "lifetime discount active for this session")
		}
		if err := controller.LoadByUser(uctx, identity.Username); err != nil {
			logg.Error(uctx, "initial order load failed", err)
		}
	}

	if !cfg.Broadcast.Enabled {
		logg.Info(ctx, "cross-tab sync disabled, waiting for shutdown")
		<-ctx.Done()
		return
	}

	listener, err := orders.NewListener(clientID, sessions, redisClient, redisClient,
		cfg.Broadcast.DedupeTTL, controller, logg)
	if err != nil {
		logg.Error(ctx, "failed to create order listener", err)
		os.Exit(1)
	}

	subscriber, err := broadcast.NewSubscriber(redisClient, cfg.Broadcast.Channel, logg)
	if err != nil {
		logg.Error(ctx, "failed to create broadcast subscriber", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "channel", cfg.Broadcast.Channel), "storefront running")
	if err := subscriber.Run(ctx, listener.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "broadcast subscriber stopped unexpectedly", err)
		os.Exit(1)
	}
}
