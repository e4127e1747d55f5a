package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nandanugg/route-guardian/config"
	"github.com/nandanugg/route-guardian/module/core"
	"github.com/nandanugg/route-guardian/module/core/service"
)

func main() {
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgres(ctx, cfg)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := core.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		logger.Fatal("rabbitmq", zap.Error(err))
	}
	defer func() { _ = amqpConn.Close() }()

	// resubscribe after a reconnect once the module exists
	var module atomic.Pointer[core.Module]
	mqttClient, err := config.NewMQTT(cfg, logger, func(mqtt.Client) {
		if m := module.Load(); m != nil {
			if err := m.StartSubscribers(); err != nil {
				logger.Error("resubscribe", zap.Error(err))
			}
		}
	})
	if err != nil {
		logger.Fatal("mqtt", zap.Error(err))
	}
	defer mqttClient.Disconnect(250)

	reg := config.NewRegistry()

	coreModule, err := core.Build(core.Params{
		DB:              db,
		AMQPConn:        amqpConn,
		MQTTClient:      mqttClient,
		Registerer:      reg,
		Logger:          logger,
		Tuning:          tuningFrom(cfg),
		DispatchTimeout: cfg.AlertDispatchTimeout(),
		Location:        cfg.Location(),
		Chat: core.ChatParams{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.AIChatTimeout(),
		},
	})
	if err != nil {
		logger.Fatal("core module", zap.Error(err))
	}
	module.Store(coreModule)

	if err := coreModule.StartSubscribers(); err != nil {
		logger.Fatal("start subscribers", zap.Error(err))
	}

	loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("config reload rejected", zap.Error(err))
			return
		}
		coreModule.Sessions.ApplyTuning(tuningFrom(next))
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	config.NewHealthChecker(db, amqpConn, mqttClient).Register(r)
	config.RegisterMetrics(r, reg)
	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := coreModule.StopSubscribers(); err != nil {
		logger.Warn("stop subscribers", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := coreModule.Sessions.Wait(shutdownCtx); err != nil {
		logger.Warn("alert dispatch drain", zap.Error(err))
	}
}

func tuningFrom(cfg *config.Config) service.Tuning {
	return service.Tuning{
		DeviationRadius: cfg.DeviationRadiusMeters,
		AlertCooldown:   cfg.AlertCooldown(),
		ShareInterval:   cfg.GuardianShareInterval(),
	}
}
