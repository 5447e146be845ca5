package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beidao-data/internal/config"
	"beidao-data/internal/database"
	httpapi "beidao-data/internal/http"
	"beidao-data/internal/logger"
	beidaomqtt "beidao-data/internal/mqtt"
	"beidao-data/internal/repository"
	"beidao-data/internal/service"
	"beidao-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "beidao-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 仓储：DB 可用走 Postgres，否则回退内存（本地联调）
	var (
		db          *sql.DB
		devicesRepo repository.DevicesRepository
		usersRepo   repository.UsersRepository
		logsRepo    repository.PostureLogsRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			if err := database.Bootstrap(d); err != nil {
				log.Fatal("failed to bootstrap schema", zap.Error(err))
			}
			db = d
			log.Info("DB enabled for beidao-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		devicesRepo = repository.NewPostgresDevicesRepo(db)
		usersRepo = repository.NewPostgresUsersRepo(db)
		logsRepo = repository.NewPostgresPostureLogsRepo(db)
	} else {
		memDevices := repository.NewMemoryDevicesRepo()
		devicesRepo = memDevices
		usersRepo = repository.NewMemoryUsersRepo(memDevices)
		logsRepo = repository.NewMemoryPostureLogsRepo()
	}

	// 统计缓存：Redis 不可用时回退内存
	var kv store.KV
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err == nil {
		kv = store.NewRedisKV(redisClient)
	} else {
		log.Warn("Redis unreachable, falling back to memory cache", zap.Error(err))
		kv = store.NewMemoryKV()
	}

	authService := service.NewAuthService(usersRepo, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.AccessExpiry,
		RefreshExpiry: cfg.JWT.RefreshExpiry,
	}, log)
	deviceService := service.NewDeviceService(devicesRepo, log)
	bindingService := service.NewBindingService(devicesRepo, log)
	pairingService := service.NewPairingService(devicesRepo, log)
	postureService := service.NewPostureService(logsRepo, log)
	statsService := service.NewStatsService(logsRepo, kv, log)
	userService := service.NewUserService(usersRepo, log)

	if err := authService.EnsureAdmin(context.Background(), cfg.Admin.Phone, cfg.Admin.Password); err != nil {
		log.Warn("failed to seed admin user", zap.Error(err))
	}

	var otaClient *service.OTAClient
	if cfg.OTA.BaseURL != "" {
		otaClient = service.NewOTAClient(cfg.OTA.BaseURL, cfg.OTA.APIKey, log)
	}

	router := httpapi.NewRouter(log)
	auth := httpapi.NewAuthMiddleware(authService)
	router.RegisterHealthRoute()
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authService, log))
	router.RegisterDeviceRoutes(httpapi.NewDeviceHandler(deviceService, pairingService, otaClient, log), auth)
	router.RegisterUserRoutes(httpapi.NewUserHandler(userService, bindingService, log), auth)
	router.RegisterPostureRoutes(httpapi.NewPostureHandler(postureService, statsService, log), auth)

	// MQTT 接入（可选）
	var mqttClient *beidaomqtt.Client
	if cfg.MQTT.Enabled {
		client, err := beidaomqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Warn("MQTT enabled but connection failed", zap.Error(err))
		} else {
			mqttClient = client
			broker := beidaomqtt.NewDeviceBroker(deviceService, postureService, log)
			for _, topic := range []string{cfg.MQTT.StatusTopic, cfg.MQTT.EventTopic} {
				if err := client.Subscribe(topic, 1, broker.HandleMessage); err != nil {
					log.Error("failed to subscribe", zap.String("topic", topic), zap.Error(err))
				}
			}
			log.Info("MQTT ingest started", zap.String("broker", cfg.MQTT.Broker))
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = redisClient.Close()
	if db != nil {
		_ = database.Close(db)
	}
}
