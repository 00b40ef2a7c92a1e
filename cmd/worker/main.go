package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/Ansingh0305/BroCab/config"
	"github.com/Ansingh0305/BroCab/internal/cache"
	"github.com/Ansingh0305/BroCab/internal/kafka"
	"github.com/Ansingh0305/BroCab/internal/locker"
	"github.com/Ansingh0305/BroCab/internal/logging"
	"github.com/Ansingh0305/BroCab/internal/notify"
	"github.com/Ansingh0305/BroCab/internal/repository"
	"github.com/Ansingh0305/BroCab/internal/service/notifications"
	"github.com/Ansingh0305/BroCab/internal/service/rides"
)

// The worker does two things: it materializes notification rows from the
// events topic, and it sweeps rides whose date has passed.
func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FilterCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	dispatcher := notify.NewKafkaDispatcher(producer, cfg.Kafka.NotificationsTopic, logger)

	rideRepo := repository.NewRideRepository(pool)
	involvementRepo := repository.NewInvolvementRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	notificationService := notifications.NewNotificationService(notificationRepo, logger,
		notifications.WithDeduper(redisCache))
	rideService := rides.NewRideService(rideRepo, involvementRepo, locker.New(), dispatcher, logger,
		rides.WithFilterCache(redisCache))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event notify.Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				logger.Warn("skipping undecodable event", "err", err)
				return nil
			}
			return notificationService.RecordEvent(ctx, event)
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", "err", err)
		}
	}()

	sweep := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer sweep.Stop()

	for {
		select {
		case <-sweep.C:
			today := time.Now().Format("2006-01-02")
			count, err := rideService.CompleteExpired(ctx, today)
			if err != nil {
				logger.Error("expiry sweep failed", "err", err)
				continue
			}
			if count > 0 {
				logger.Info("completed expired rides", "count", count)
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}
