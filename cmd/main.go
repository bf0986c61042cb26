package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vrflottery/internal/config"
	"vrflottery/internal/handlers"
	"vrflottery/internal/keeper"
	"vrflottery/internal/notifier"
	"vrflottery/internal/oracle"
	"vrflottery/internal/scheduler"
	"vrflottery/internal/services"
	"vrflottery/internal/store"
	"vrflottery/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

type closableNotifier interface {
	services.Notifier
	Close() error
}

func main() {
	// 1. Load configuration from LOTTERY_* environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	// 2. Initialize logging
	logOut := io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
		if err != nil {
			logger.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	defer logger.Init("lottery", cfg.LogVerbose || cfg.LogFile == "", false, logOut).Close()
	logger.Infof("Loaded config: %s", cfg)

	// 3. Open the settlement history and the event notifier
	repo, err := store.NewSettlementRepository(cfg.Datadir)
	if err != nil {
		logger.Fatalf("Failed to open settlement store: %v", err)
	}
	defer repo.Close()

	var events closableNotifier = notifier.LogNotifier{}
	if cfg.RedisAddr != "" {
		rn, err := notifier.NewRedisNotifier(cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			logger.Fatalf("Failed to create notifier: %v", err)
		}
		events = rn
	}
	defer events.Close()

	// 4. Build the payout wallet and the randomness oracle
	var payouts services.Transferer
	switch cfg.WalletType {
	case config.WalletHTTP:
		payouts, err = wallet.NewHTTPWallet(cfg.WalletURL, cfg.WalletToken)
		if err != nil {
			logger.Fatalf("Failed to create wallet: %v", err)
		}
	default:
		payouts = wallet.NewMemoryBank()
	}

	sched := scheduler.NewScheduler()

	var (
		randomness  services.RandomnessOracle
		coordinator *oracle.LocalCoordinator
	)
	switch cfg.OracleType {
	case config.OracleHTTP:
		randomness, err = oracle.NewHTTPCoordinator(cfg.OracleURL, cfg.OracleToken)
		if err != nil {
			logger.Fatalf("Failed to create oracle: %v", err)
		}
	default:
		coordinator = oracle.NewLocalCoordinator(cfg.CoordinatorAddress, localSeed(cfg.LocalSeed))
		if cfg.LocalFulfillDelay > 0 {
			coordinator.AutoFulfill(sched, cfg.LocalFulfillDelay)
		}
		randomness = coordinator
	}

	// 5. Initialize the Lottery Service
	lotteryService := services.NewLotteryService(
		services.Config{
			EntranceFee:        cfg.EntranceFee,
			Interval:           cfg.TimeInterval,
			CoordinatorAddress: cfg.CoordinatorAddress,
			Randomness:         cfg.RandomnessRequest(),
		},
		randomness,
		payouts,
		services.WithNotifier(events),
		services.WithRepository(repo),
	)
	if coordinator != nil {
		coordinator.AddConsumer(lotteryService)
	}

	// 6. Initialize the HTTP Handler and the Gin router
	httpHandler := handlers.NewHTTPHandler(lotteryService, cfg.CoordinatorAddress, cfg.CoordinatorToken)
	if coordinator != nil {
		httpHandler.WithLocalOracle(coordinator)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// 7. Register public routes
	httpHandler.RegisterPublicRoutes(r)

	// 8. Group routes that require the coordinator token and apply middleware
	coordinatorRoutes := r.Group("/v1/vrf")
	coordinatorRoutes.Use(httpHandler.CoordinatorMiddleware())
	httpHandler.RegisterCoordinatorRoutes(coordinatorRoutes)

	// 9. Start the keeper that closes rounds once the interval elapsed
	if cfg.KeeperInterval > 0 {
		if err := keeper.New(lotteryService, cfg.KeeperInterval).Start(sched); err != nil {
			logger.Fatalf("Failed to start keeper: %v", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 10. Run the server until interrupted
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
	go func() {
		logger.Infof("Server starting on http://localhost:%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
}

// localSeed falls back to a random seed so local words differ between runs.
func localSeed(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		logger.Fatalf("Failed to generate local oracle seed: %v", err)
	}
	return seed
}
