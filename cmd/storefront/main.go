package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/account"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cache"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cart"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/catalog"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/checkout"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/config"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/health"
	h "github.com/malcomtyk21/IS2108-Project-Auroramart/internal/http"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/orders"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/publisher"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/recommend"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/repository"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/pkg/logger"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	telemetry.Setup()

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront exited with error", zap.Error(err))
	}
	log.Info("storefront exited")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("failed to close store", zap.Error(err))
		}
	}()

	cartCache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	scorer, err := openScorer(cfg, log)
	if err != nil {
		return err
	}

	timeout := cfg.RequestTimeout
	orderSvc := orders.NewService(st, log)
	router := h.NewRouter(h.Handlers{
		Products: h.NewProductHandler(catalog.NewService(st, scorer, log), timeout, log),
		Cart:     h.NewCartHandler(cart.NewCartService(st, cartCache, scorer, log), timeout, log),
		Checkout: h.NewCheckoutHandler(checkout.NewService(st, cartCache, log), timeout, log),
		Orders:   h.NewOrdersHandler(orderSvc, timeout, log),
		Admin:    h.NewAdminOrdersHandler(orderSvc, timeout, log),
		Accounts: h.NewAccountHandler(account.NewService(st, log), timeout, log),
		Store:    st,
	}, timeout, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	healthSrv := health.NewServer(st, cfg.HealthInterval, log)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("storefront starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := healthSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	wg.Add(1)
	go func() {
		defer wg.Done()
		healthSrv.Watch(bgCtx)
	}()

	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(st, log, cfg.KafkaBrokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(bgCtx)
		}()
		log.Info("outbox publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		log.Info("KAFKA_BROKERS not set, outbox publisher disabled")
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down storefront...")
	case runErr = <-errCh:
		log.Error("server failed, shutting down", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown", zap.Error(err))
	}
	healthSrv.Stop()
	cancelBg()
	wg.Wait()

	return runErr
}

func openStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(cfg.CheckoutLockTimeout), nil
	}

	creds := cfg.Credentials()
	repo, err := repository.NewRepository(creds, cfg.CheckoutLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := repo.RunMigrations(creds); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return repo, nil
}

func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.CartCache, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, cart cache disabled")
		return cache.NoopCache{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	return cache.NewRedisCache(client), func() { _ = client.Close() }, nil
}

func openScorer(cfg *config.Config, log *zap.Logger) (recommend.Scorer, error) {
	if cfg.RecommendationRulesPath == "" {
		log.Info("RECOMMENDATION_RULES_PATH not set, recommendations disabled")
		return recommend.NoopScorer{}, nil
	}

	metric, err := recommend.ParseMetric(cfg.RecommendationMetric)
	if err != nil {
		return nil, err
	}
	rules, err := recommend.LoadRules(cfg.RecommendationRulesPath, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendation rules: %w", err)
	}
	return recommend.NewGuarded(rules, cfg.RecommendationTimeout, log), nil
}
