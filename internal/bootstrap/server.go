package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Ansingh0305/BroCab/api"
	"github.com/Ansingh0305/BroCab/config"
	"github.com/Ansingh0305/BroCab/internal/service/booking"
	"github.com/Ansingh0305/BroCab/internal/service/involvement"
	"github.com/Ansingh0305/BroCab/internal/service/notifications"
	"github.com/Ansingh0305/BroCab/internal/service/rides"
)

// Services bundles everything the HTTP layer serves.
type Services struct {
	Rides         rides.RideUseCase
	Booking       booking.BookingUseCase
	Involvement   involvement.InvolvementUseCase
	Notifications notifications.NotificationUseCase
	Routes        api.RouteEstimator
}

// Run starts the HTTP server and blocks until the context is cancelled
// or the server fails.
func Run(ctx context.Context, cfg *config.Config, services Services, log *slog.Logger) error {
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(cfg, services),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("http server listening", "address", cfg.HTTP.Address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(cfg *config.Config, services Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), api.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFile("/swagger/openapi.json", cfg.HTTP.SwaggerDir+"/openapi.json")
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/openapi.json"),
		)))
	}

	authed := router.Group("/", api.RequireUser())
	rideHandler := api.NewRideHandler(services.Rides)
	if services.Routes != nil {
		rideHandler = rideHandler.WithRouteEstimator(services.Routes)
	}
	rideHandler.Register(authed)
	api.NewRequestHandler(services.Booking).Register(authed)
	api.NewInvolvementHandler(services.Involvement).Register(authed)
	api.NewNotificationHandler(services.Notifications).Register(authed)

	return router
}
