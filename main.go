package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dlrandrade/Multiverso-do-Impacto/config"
	"github.com/dlrandrade/Multiverso-do-Impacto/handler"
	"github.com/dlrandrade/Multiverso-do-Impacto/middleware"
	"github.com/dlrandrade/Multiverso-do-Impacto/model"
	"github.com/dlrandrade/Multiverso-do-Impacto/service"
	"github.com/dlrandrade/Multiverso-do-Impacto/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg := config.New()

	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting hero composer server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keyColor, err := service.ParseKeyColor(cfg.Keying.KeyColor)
	if err != nil {
		utils.Logger.Fatal("invalid keying configuration", zap.Error(err))
	}

	var generator service.HeroGenerator
	gemini, err := service.NewGeminiGenerator(ctx, &cfg.Generator)
	if err != nil {
		utils.Logger.Warn("image generator unavailable", zap.Error(err))
		generator = service.UnavailableGenerator{Reason: err}
	} else {
		generator = gemini
	}

	redisService := service.NewRedisService(&cfg.Redis)
	if err := redisService.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
		generator = service.NewCachedGenerator(generator, redisService)
	}
	defer redisService.Close()

	defaultBackground := service.ConfiguredBackground(cfg.Background.DefaultSource)
	if defaultBackground.Path != "" {
		if _, err := os.Stat(defaultBackground.Path); err != nil {
			utils.Logger.Warn("default background not found", zap.String("path", defaultBackground.Path))
		}
	}

	machine := service.NewMachine(service.Defaults{
		Background:   defaultBackground,
		Keying:       model.KeyingParameters{KeyColor: keyColor, Tolerance: cfg.Keying.Tolerance},
		SurfaceWidth: cfg.Composition.SurfaceWidth,
		InitialScale: cfg.Composition.InitialScale,
	})
	runner := service.NewRunner(generator, service.NewHTTPBackgroundLoader(&cfg.Background))
	store := service.NewSessionStore(machine, runner)
	defer store.CloseAll()
	go store.RunSweeper(ctx, cfg.Session.SweepInterval, cfg.Session.MaxIdle)

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  Version,
			"sessions": store.Len(),
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	handler.NewSessionHandler(cfg, store).Register(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Error("server shutdown failed", zap.Error(err))
	}
}
