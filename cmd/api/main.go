package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/golfdiscount/wsi-automation-api/internal/application"
	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	"github.com/golfdiscount/wsi-automation-api/internal/infrastructure/dufferscorner"
	"github.com/golfdiscount/wsi-automation-api/internal/infrastructure/magento"
	mongoRepo "github.com/golfdiscount/wsi-automation-api/internal/infrastructure/mongodb"
	sftpTransport "github.com/golfdiscount/wsi-automation-api/internal/infrastructure/sftp"
	"github.com/golfdiscount/wsi-automation-api/pkg/kafka"
	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
	"github.com/golfdiscount/wsi-automation-api/pkg/middleware"
	"github.com/golfdiscount/wsi-automation-api/pkg/mongodb"
	"github.com/golfdiscount/wsi-automation-api/pkg/tracing"
)

const serviceName = "wsi-automation-api"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting wsi-automation-api")

	config := loadConfig()
	ctx := context.Background()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	producer := kafka.NewProducer(config.Kafka)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	config.Dufferscorner.Metrics = m
	config.Magento.Metrics = m
	config.SFTP.Metrics = m

	repo := mongoRepo.NewPickTicketRepository(mongoClient.Database())
	feeds := dufferscorner.NewClient(config.Dufferscorner)
	prices := magento.NewClient(config.Magento)
	transport := sftpTransport.NewClient(config.SFTP)

	pickTicketService := application.NewPickTicketService(
		repo,
		feeds,
		prices,
		transport,
		producer,
		domain.NewSplitter(),
		logger,
		m,
	)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	v1 := router.Group("/api/v1")
	{
		tickets := v1.Group("/picktickets")
		{
			tickets.POST("", createPickTicketHandler(pickTicketService, logger))
			tickets.POST("/batch", batchUploadHandler(pickTicketService, logger))
			tickets.GET("", listPickTicketsHandler(pickTicketService, logger))
			tickets.GET("/:number", getPickTicketHandler(pickTicketService, logger))
			tickets.GET("/order/:orderNumber", getByOrderNumberHandler(pickTicketService, logger))
		}
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

type addressRequest struct {
	Name    string `json:"name" binding:"required"`
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	Country string `json:"country" binding:"required"`
	Zip     string `json:"zip" binding:"required"`
}

type lineItemRequest struct {
	SKU         string `json:"sku" binding:"required" validate:"sku"`
	Units       int    `json:"units" binding:"required,min=1"`
	UnitsToShip int    `json:"unitsToShip" binding:"omitempty,min=1"`
}

type createPickTicketRequest struct {
	OrderNumber    string            `json:"orderNumber" binding:"required"`
	Store          int               `json:"store"`
	Customer       addressRequest    `json:"customer" binding:"required"`
	Recipient      addressRequest    `json:"recipient" binding:"required"`
	ShippingMethod string            `json:"shippingMethod" binding:"required" validate:"shipping_method"`
	OrderDate      time.Time         `json:"orderDate" binding:"required"`
	LineItems      []lineItemRequest `json:"lineItems" binding:"required,min=1,dive"`
}

func createPickTicketHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req createPickTicketRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		if appErr := middleware.ValidateStruct(&req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		store := req.Store
		if store == 0 {
			store = 1
		}

		cmd := application.IngestOrderCommand{
			OrderNumber:    req.OrderNumber,
			Store:          store,
			Customer:       application.AddressInput(req.Customer),
			Recipient:      application.AddressInput(req.Recipient),
			ShippingMethod: req.ShippingMethod,
			OrderDate:      req.OrderDate,
			Channel:        domain.ChannelAPI,
			LineItems:      lineItemsFromRequest(req.LineItems),
		}

		result, err := service.IngestOrders(c.Request.Context(), application.ModeInteractive,
			[]application.IngestOrderCommand{cmd})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

// batchUploadHandler accepts a raw interchange CSV body, the format
// sales channels drop for batch orders.
func batchUploadHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			responder.RespondBadRequest("failed to read request body")
			return
		}
		if len(body) == 0 {
			responder.RespondBadRequest("empty batch file")
			return
		}

		result, err := service.IngestCSV(c.Request.Context(), string(body))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func getPickTicketHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		ticket, err := service.GetByPickTicketNumber(c.Request.Context(), c.Param("number"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, ticket)
	}
}

func getByOrderNumberHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		tickets, err := service.GetByOrderNumber(c.Request.Context(), c.Param("orderNumber"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, tickets)
	}
}

func listPickTicketsHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

		tickets, err := service.List(c.Request.Context(), application.ListPickTicketsQuery{
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, tickets)
	}
}

func lineItemsFromRequest(items []lineItemRequest) []application.LineItemInput {
	lines := make([]application.LineItemInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, application.LineItemInput{
			SKU:         item.SKU,
			Units:       item.Units,
			UnitsToShip: item.UnitsToShip,
		})
	}
	return lines
}

// Config holds application configuration
type Config struct {
	ServerAddr    string
	MongoDB       *mongodb.Config
	Kafka         *kafka.Config
	Dufferscorner dufferscorner.Config
	Magento       magento.Config
	SFTP          sftpTransport.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "wsi"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
		Dufferscorner: dufferscorner.Config{
			BaseURL: getEnv("DUFFERSCORNER_URL", "https://www.dufferscorner.com"),
		},
		Magento: magento.Config{
			BaseURL:     getEnv("MAGENTO_URL", ""),
			AccessToken: getEnv("MAGENTO_TOKEN", ""),
		},
		SFTP: sftpTransport.Config{
			Host:     getEnv("WSI_SFTP_HOST", ""),
			Port:     getEnvInt("WSI_SFTP_PORT", 22),
			Username: getEnv("WSI_SFTP_USER", ""),
			Password: getEnv("WSI_SFTP_PASSWORD", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
