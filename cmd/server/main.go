package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sukanto01899/captcha-backend/internal/airdrop"
	"github.com/Sukanto01899/captcha-backend/internal/captcha"
	"github.com/Sukanto01899/captcha-backend/internal/chain"
	"github.com/Sukanto01899/captcha-backend/internal/claims"
	"github.com/Sukanto01899/captcha-backend/internal/config"
	"github.com/Sukanto01899/captcha-backend/internal/database"
	"github.com/Sukanto01899/captcha-backend/internal/handlers"
	"github.com/Sukanto01899/captcha-backend/internal/middleware"
	"github.com/Sukanto01899/captcha-backend/internal/reputation"
	"github.com/Sukanto01899/captcha-backend/internal/signer"
	"github.com/Sukanto01899/captcha-backend/pkg/logger"
	"github.com/Sukanto01899/captcha-backend/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	markers := newMarkerStore(cfg)

	chainClient, err := dialChain(cfg.Chain)
	if err != nil {
		log.Fatalf("chain client initialization failed: %v", err)
	}

	var vaultSigner *signer.Signer
	if cfg.Signer.PrivateKey != "" {
		vaultSigner, err = signer.New(cfg.Signer.PrivateKey, cfg.Chain.ChainID)
		if err != nil {
			log.Fatalf("signer initialization failed: %v", err)
		}
		logger.Info("signer_ready", map[string]interface{}{
			"address": vaultSigner.Address().Hex(),
		})
	} else {
		logger.Warn("signer_disabled", map[string]interface{}{
			"reason": "SERVER_PRIVATE_KEY not set, voucher endpoints will refuse",
		})
	}

	engine := captcha.NewEngine(cfg.Captcha.Secret, cfg.Captcha.TTL)
	provider := reputation.NewNeynarClient(cfg.Neynar.BaseURL, cfg.Neynar.APIKey, cfg.Neynar.Timeout)

	checker := airdrop.NewChecker(chainClient, vaultSigner, airdrop.Contracts{
		AirdropClaim: common.HexToAddress(cfg.Chain.AirdropClaimContract),
		PointsToken:  common.HexToAddress(cfg.Chain.PointsTokenContract),
		HumanID:      common.HexToAddress(cfg.Chain.HumanIDContract),
	})

	captchaHandler := handlers.NewCaptchaHandler(db, engine, markers)
	scoreHandler := handlers.NewScoreHandler(db, provider, chainClient, cfg.Chain.ReadTimeout)
	usersHandler := handlers.NewUsersHandler(db)
	signatureHandler := handlers.NewSignatureHandler(
		markers, chainClient, vaultSigner,
		common.HexToAddress(cfg.Chain.PointsClaimContract),
		cfg.Airdrop.PointsAmount,
	)
	airdropHandler := handlers.NewAirdropHandler(db, checker, cfg.Airdrop)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Server.AdminFid, cfg.Server.AllowHeaderIdentity)

	app := fiber.New(fiber.Config{BodyLimit: 1 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	captchaRoutes := api.Group("/captcha")
	captchaRoutes.Get("/", captchaHandler.Issue)
	captchaRoutes.Post("/verify", authMiddleware.OptionalIdentity, captchaHandler.Verify)

	api.Get("/user", usersHandler.Get)
	api.Post("/user/score", authMiddleware.OptionalIdentity, scoreHandler.Refresh)

	api.Post("/signature/points-claim", authMiddleware.RequireIdentity, signatureHandler.PointsClaim)

	airdropRoutes := api.Group("/airdrop")
	airdropRoutes.Post("/eligibility", authMiddleware.RequireIdentity, airdropHandler.Eligibility)
	airdropRoutes.Get("/config", airdropHandler.GetConfig)
	airdropRoutes.Post("/config", authMiddleware.RequireIdentity, authMiddleware.AdminOnly, airdropHandler.UpdateConfig)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"chain_id":    cfg.Chain.ChainID,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

// newMarkerStore connects to redis, accepting either a redis:// URL or a bare
// host:port. Development falls back to the in-process store when redis is
// unreachable; production refuses to start without it.
func newMarkerStore(cfg *config.Config) claims.Store {
	opts := &redis.Options{Addr: cfg.Redis.URL}
	if strings.Contains(cfg.Redis.URL, "://") {
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cfg.Environment == "production" {
			log.Fatalf("redis connection failed: %v", err)
		}
		logger.Warn("redis_unavailable", map[string]interface{}{
			"error":    err.Error(),
			"fallback": "in-memory claim markers",
		})
		return claims.NewMemoryStore()
	}
	return claims.NewRedisStore(client)
}

func dialChain(cfg config.ChainConfig) (*chain.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return chain.Dial(ctx, cfg.RPCURL)
}
