package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/singleflight"

	"github.com/yoockh/mockview/config"
	"github.com/yoockh/mockview/internal/api/handlers"
	"github.com/yoockh/mockview/internal/api/middleware"
	"github.com/yoockh/mockview/internal/api/routes"
	"github.com/yoockh/mockview/internal/cache"
	"github.com/yoockh/mockview/internal/events"
	"github.com/yoockh/mockview/internal/logger"
	"github.com/yoockh/mockview/internal/providers/interview"
	"github.com/yoockh/mockview/internal/services"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.LoadInterview()
	if err != nil {
		log.WithError(err).Fatal("config error")
	}

	// Redis is optional: without it events and reports stay in this process
	var (
		bus         events.Bus        = events.NewMemoryBus()
		reportCache cache.ReportCache = cache.Nop{}
	)
	switch err := config.InitRedis(); {
	case err == nil:
		bus = events.NewRedisBus(config.RedisClient)
		reportCache = cache.NewRedisCache(config.RedisClient, cfg.ReportCacheTTL)
		log.Info("Redis connected")
	case errors.Is(err, config.ErrRedisNotConfigured):
		log.Info("Redis not configured, using in-process events")
	default:
		log.WithError(err).Fatal("Redis init error")
	}

	client := interview.NewHTTPClient(cfg.APIURL, nil)
	opts := services.Options{
		RequestTimeout: cfg.RequestTimeout,
		AnswerTimeout:  cfg.AnswerTimeout,
	}
	flight := &singleflight.Group{}

	lifecycle := services.NewLifecycleService(client, bus, log, flight, opts)
	turns := services.NewTurnService(client, bus, log, opts)
	reports := services.NewReportService(client, reportCache, log, flight, opts)
	sessions := services.NewSessionService(client, lifecycle, log)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Interview:    handlers.NewInterviewHandler(sessions),
		Session:      handlers.NewSessionHandler(sessions, lifecycle),
		Conversation: handlers.NewConversationHandler(sessions, turns),
		Report:       handlers.NewReportHandler(sessions, reports),
		WS:           handlers.NewWSHandler(sessions, lifecycle, turns, bus, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
	if config.RedisClient != nil {
		_ = config.RedisClient.Close()
	}
	log.Info("gateway stopped")
}
