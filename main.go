package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rewards-dashboard/config"
	"rewards-dashboard/handlers"
	"rewards-dashboard/middleware"
	"rewards-dashboard/services"
	"rewards-dashboard/store"
	"rewards-dashboard/store/memory"
	"rewards-dashboard/utils"
	"rewards-dashboard/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
)

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("⚠️  Using in-memory storage; data is lost on restart")
		return memory.New(), nil
	}
	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, err
	}
	return store.NewGormStore(db), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	config.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	opts := services.Options{
		Rewards:        cfg.Rewards,
		Lottery:        cfg.Lottery,
		AdminWallets:   cfg.AdminWalletList(),
		AdminBypassKey: cfg.AdminBypassKey,
		CacheTTL:       cfg.LeaderboardCacheTTL,
	}

	if cfg.RedisURL != "" {
		cache, err := services.NewRedisLeaderboardCache(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("⚠️  Redis unavailable, leaderboard served uncached")
		} else {
			defer cache.Close()
			opts.Cache = cache
		}
	}

	if cfg.R2.Enabled() {
		uploader, err := utils.NewR2Uploader(ctx, utils.R2Settings{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
			CDNBaseURL:      cfg.R2.CDNBaseURL,
		})
		if err != nil {
			log.Fatalf("failed to initialize R2 client: %v", err)
		}
		opts.Uploader = uploader
	} else {
		log.Warn("⚠️  R2 not configured, image uploads disabled")
	}

	svc := services.New(st, opts)
	limiter := middleware.NewRateLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst)

	app := fiber.New(fiber.Config{
		BodyLimit: utils.MaxImageBytes + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Origins(),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + middleware.HeaderWallet + ", " + middleware.HeaderAdminKey,
		MaxAge:       86400,
	}))

	handlers.Setup(app, svc, limiter)

	sched, err := workers.NewScheduler(workers.Jobs{
		Lottery:         svc.Lottery,
		LotterySchedule: cfg.Lottery.Schedule,
		Leaderboard:     svc.Leaderboard,
		Sessions:        svc.Extension,
		RateLimiter:     limiter,
	})
	if err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	sched.Start()

	go func() {
		log.Infof("🚀 Rewards dashboard listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	if err := sched.Shutdown(); err != nil {
		log.WithError(err).Warn("scheduler shutdown")
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
}
