package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/promo"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting storefront service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// MySQL
	store, err := repository.NewMySQLStore(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	defer store.Close()

	// Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	// MongoDB
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoRepo.Close(ctx)
	}()

	ctx := context.Background()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	// Notification fan-out with actor-backed retry
	bot := notify.NewBotClient(&cfg.Bot, logger.Named("bot"))
	dispatcher, err := notify.StartRetryDispatcher(bot, mongoRepo, cfg.Bot.MaxRetries, logger)
	if err != nil {
		logger.Fatal("Failed to start retry dispatcher", zap.Error(err))
	}
	defer dispatcher.Shutdown()
	notifier := notify.NewNotifier(bot, cfg.Bot.AdminChatIDs, dispatcher, logger.Named("notifier"))

	// Domain services
	carts := cart.NewStore(redisRepo, cfg.Cart.TTL)
	promos := promo.NewResolver(promo.NewStoreSource(store), redisRepo, 5*time.Minute)
	orderService := orders.NewService(store, carts, promos, redisRepo, notifier, redisRepo, logger.Named("orders"))

	cards := payment.NewCardClient(&cfg.Payments.CardAPI, logger.Named("card-api"))
	quickpay := payment.NewQuickpay(&cfg.Payments.Quickpay)
	bank := payment.NewBankTransfer(store, notifier, redisRepo, logger.Named("bank-transfer"))
	confirmer := payment.NewConfirmer(store, cards, notifier, mongoRepo, redisRepo, logger.Named("confirm"))

	// Gateway
	gw := gateway.NewGateway(cfg, logger, gateway.Deps{
		Store:     store,
		Redis:     redisRepo,
		Audit:     mongoRepo,
		Carts:     carts,
		Orders:    orderService,
		Promos:    promos,
		Quickpay:  quickpay,
		Cards:     cards,
		Bank:      bank,
		Confirmer: confirmer,
	})
	gw.SetupRoutes()

	// Optional etcd registration
	var registry *discovery.Registry
	instance := &discovery.Instance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if cfg.Etcd.Enabled {
		registry, err = discovery.NewRegistry(&cfg.Etcd)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without registration", zap.Error(err))
		} else if err := registry.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register instance", zap.Error(err))
		} else {
			logger.Info("Instance registered in etcd",
				zap.String("name", cfg.Server.Name),
				zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
		}
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	if registry != nil {
		if err := registry.Deregister(ctx, instance); err != nil {
			logger.Error("Failed to deregister instance", zap.Error(err))
		}
		registry.Close()
	}

	logger.Info("Service stopped")
}
