package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ansingh0305/BroCab/config"
	"github.com/Ansingh0305/BroCab/internal/bootstrap"
	"github.com/Ansingh0305/BroCab/internal/cache"
	"github.com/Ansingh0305/BroCab/internal/geo"
	"github.com/Ansingh0305/BroCab/internal/kafka"
	"github.com/Ansingh0305/BroCab/internal/locker"
	"github.com/Ansingh0305/BroCab/internal/logging"
	"github.com/Ansingh0305/BroCab/internal/notify"
	"github.com/Ansingh0305/BroCab/internal/repository"
	"github.com/Ansingh0305/BroCab/internal/service/booking"
	"github.com/Ansingh0305/BroCab/internal/service/involvement"
	"github.com/Ansingh0305/BroCab/internal/service/notifications"
	"github.com/Ansingh0305/BroCab/internal/service/rides"
)

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
	requestRepo := repository.NewRequestRepository(pool)
	involvementRepo := repository.NewInvolvementRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	keyed := locker.New()
	lockTTL := time.Duration(cfg.Booking.RideLockTTLSeconds) * time.Second

	rideService := rides.NewRideService(rideRepo, involvementRepo, keyed, dispatcher, logger,
		rides.WithFilterCache(redisCache))
	bookingService := booking.NewBookingService(rideRepo, requestRepo, involvementRepo, keyed, dispatcher, logger,
		booking.WithRideLocks(redisCache, lockTTL))
	involvementService := involvement.NewInvolvementService(involvementRepo, keyed, dispatcher, logger)
	notificationService := notifications.NewNotificationService(notificationRepo, logger)
	geoService := geo.NewService(cfg.Geo.NominatimURL, cfg.Geo.OSRMURL, logger,
		geo.WithGeocodeCache(redisCache))

	services := bootstrap.Services{
		Rides:         rideService,
		Booking:       bookingService,
		Involvement:   involvementService,
		Notifications: notificationService,
		Routes:        geoService,
	}
	if err := bootstrap.Run(ctx, cfg, services, logger); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
