package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nft-ticket-marketplace/config"
	"nft-ticket-marketplace/internal/cache"
	"nft-ticket-marketplace/internal/chain"
	"nft-ticket-marketplace/internal/database"
	"nft-ticket-marketplace/internal/handler"
	"nft-ticket-marketplace/internal/queue"
	"nft-ticket-marketplace/internal/repository"
	"nft-ticket-marketplace/internal/service"
	"nft-ticket-marketplace/internal/status"
	"nft-ticket-marketplace/internal/wallet"
	"nft-ticket-marketplace/internal/worker"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.Server.LogLevel)
	defer logger.Sync()
	log := logger.L

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	// 沒有設定私鑰時以唯讀模式啟動
	var signer chain.Signer
	if cfg.Chain.WalletPrivateKey != "" {
		keySigner, err := chain.NewKeySigner(cfg.Chain.WalletPrivateKey)
		if err != nil {
			log.Fatal("Failed to load wallet key", zap.Error(err))
		}
		signer = keySigner
	} else {
		log.Warn("WALLET_PRIVATE_KEY not set, write operations are disabled")
	}

	contracts, err := chain.NewContracts(&cfg.Chain)
	if err != nil {
		log.Fatal("Invalid contract configuration", zap.Error(err))
	}
	client, err := chain.Dial(ctx, &cfg.Chain, contracts, signer)
	if err != nil {
		log.Fatal("Failed to connect to chain", zap.Error(err))
	}
	defer client.Close()

	session := wallet.Open(ctx, signer, client)
	defer session.Close()

	ticketCache := cache.NewRedisTicketCache(rdb, cfg.Cache.TicketTTL, cfg.Cache.RegistrationTTL)
	ticketRepository := repository.NewTicketRepository(client, contracts, ticketCache, cfg.Chain.LogLookbackBlocks, logger.WithComponent("repository"))
	activityRepository := repository.NewActivityRepository(pool)

	activityQueue, err := newActivityQueue(ctx, cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize activity queue", zap.Error(err))
	}
	if err := worker.NewActivityWorker(activityRepository, activityQueue).Start(ctx); err != nil {
		log.Fatal("Failed to start activity worker", zap.Error(err))
	}

	refresher, err := worker.NewCatalogRefresher(ticketRepository, cfg.Server.RefreshInterval)
	if err != nil {
		log.Fatal("Failed to create catalog refresher", zap.Error(err))
	}
	if err := refresher.Start(ctx); err != nil {
		log.Fatal("Failed to start catalog refresher", zap.Error(err))
	}
	defer func() {
		if err := refresher.Stop(); err != nil {
			log.Warn("Failed to stop catalog refresher", zap.Error(err))
		}
	}()

	engine := status.NewEngine(logger.WithComponent("status"))
	catalogService := service.NewCatalogService(ticketRepository, activityRepository, engine, time.Now)
	txService := service.NewTxService(client, contracts, session, ticketRepository, activityQueue, engine, time.Now)

	if err := handler.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.NewEventHandler(catalogService, txService, session.Viewer).RegisterRoutes(router)
	handler.NewListingHandler(catalogService, txService).RegisterRoutes(router)
	handler.NewTxHandler(txService).RegisterRoutes(router)
	handler.NewWalletHandler(session, catalogService, txService).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr), zap.Bool("wallet_connected", session.Connected()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

func newActivityQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client) (queue.ActivityQueue, error) {
	switch cfg.Queue.Backend {
	case "redis":
		return queue.NewRedisStreamActivityQueue(ctx, rdb, cfg.Queue.ConsumerID, nil)
	default:
		return queue.NewMemoryActivityQueue(cfg.Queue.BufferSize), nil
	}
}
