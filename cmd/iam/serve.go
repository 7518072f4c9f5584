package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/layer-3/barong-iam/adapters/captcha"
	"github.com/layer-3/barong-iam/adapters/events"
	"github.com/layer-3/barong-iam/adapters/hasher"
	"github.com/layer-3/barong-iam/adapters/store"
	"github.com/layer-3/barong-iam/adapters/tokenizer"
	"github.com/layer-3/barong-iam/adapters/users/sqlite"
	"github.com/layer-3/barong-iam/internal/logger"
	"github.com/layer-3/barong-iam/ports"
	"github.com/layer-3/barong-iam/service"
	httptransport "github.com/layer-3/barong-iam/transport/http"
)

var bcryptCost int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&bcryptCost, "bcrypt-cost", 0, "bcrypt cost for the dummy hash (default bcrypt.DefaultCost)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	kv := store.NewRedisStore(redisClient)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = kv.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	db, err := sqlite.New(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	pingCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
	err = db.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	var publisher ports.EventPublisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		streamPub, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			logger.NewWatermillLogger(log.Named("watermill")),
		)
		if err != nil {
			return fmt.Errorf("failed to create redis stream publisher: %w", err)
		}
		wp := events.NewWatermillPublisher(streamPub, cfg.Events.Topic)
		defer wp.Close()
		publisher = wp
	}

	tk := tokenizer.NewJWTTokenizer([]byte(cfg.JWT.Secret), tokenizer.WithIssuer(cfg.JWT.Issuer))
	tokens := service.NewTokenService(tk, kv, service.TokenConfig{
		AccessTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTTL: cfg.JWT.RefreshTokenTTL,
	}, log)
	captchas := service.NewCaptchaService(kv,
		captcha.NewPNGRenderer(cfg.Captcha.Width, cfg.Captcha.Height),
		service.CaptchaConfig{Length: cfg.Captcha.Length, TTL: cfg.Captcha.TTL},
		log,
	)
	verifier := service.NewCredentialVerifier(db, hasher.NewBcryptHasher(bcryptCost), log)
	authService := service.NewAuthService(captchas, verifier, tokens, publisher, log)

	if log.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.SetupRouter(authService, verifier, cfg.CORS, log)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
