package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/marketconnect/marketconnect/internal/config"
	"github.com/marketconnect/marketconnect/internal/es"
	"github.com/marketconnect/marketconnect/internal/handlers"
	"github.com/marketconnect/marketconnect/internal/handlers/cart"
	"github.com/marketconnect/marketconnect/internal/handlers/order"
	"github.com/marketconnect/marketconnect/internal/logging"
	"github.com/marketconnect/marketconnect/internal/middleware/ratelimit"
	"github.com/marketconnect/marketconnect/internal/mykafka"
	"github.com/marketconnect/marketconnect/internal/service/checkout"
	httpserver "github.com/marketconnect/marketconnect/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		logger.Error("database init failed", "error", err)
		os.Exit(1)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	if len(jwtSecret) == 0 {
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			logger.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, events disabled")
	}

	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			logger.Error("elasticsearch init failed", "error", err)
			os.Exit(1)
		}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: "products"}
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{configuration.FRONTEND_ORIGIN},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	if configuration.REDIS_ADDR != "" {
		rdb := ratelimit.NewClient(configuration.REDIS_ADDR)
		e.Use(ratelimit.Middleware(rdb, configuration.RATE_LIMIT,
			time.Duration(configuration.RATE_WINDOW_SEC)*time.Second))
	} else {
		logger.Warn("REDIS_ADDR not set, rate limiting disabled")
	}

	checkoutSvc := &checkout.Service{DB: db}

	deps := httpserver.Deps{
		DB:              db,
		JWTSecret:       jwtSecret,
		VendorHandler:   &handlers.VendorHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		CustomerHandler: &handlers.CustomerHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		SearchHandler:   searchHandler,
		CartHandler:     &cart.CartHandler{DB: db, Producer: prod},
		OrderHandler:    &order.OrderHandler{DB: db, Checkout: checkoutSvc, Producer: prod},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db handle error", "error", err)
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
