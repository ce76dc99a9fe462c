package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/infrastructure/cache"
	"marketplace/internal/infrastructure/database"
	"marketplace/internal/infrastructure/mq"
	"marketplace/internal/job"
	"marketplace/pkg/idgen"
	"marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	workerID := flag.Int64("worker-id", 1, "雪花算法机器ID")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := idgen.Init(*workerID); err != nil {
		log.Fatal().Err(err).Msg("初始化 ID 生成器失败")
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("初始化数据库失败")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("初始化 Redis 失败")
		}
		defer redisClient.Close()
	}

	// Kafka 未启用时消息留在本地消息表中
	if cfg.Kafka.Enabled {
		producer, err := mq.NewKafkaProducer(&cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Msg("初始化 Kafka 失败")
		}
		defer producer.Close()

		outboxSender := job.NewOutboxSender(db, producer, cfg, log)
		go outboxSender.Start(ctx)
		defer outboxSender.Stop()
	}

	router := handler.SetupRouter(db, redisClient, cfg, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("服务启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("服务启动失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("正在关闭服务...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("服务关闭异常")
	}

	log.Info().Msg("服务已关闭")
}
