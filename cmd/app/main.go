package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dispatch/cmd"
	httpin "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/events"
	"dispatch/internal/adapters/out/kafka"
	"dispatch/internal/adapters/out/postgres/locationrepo"
	"dispatch/internal/adapters/out/postgres/orderrepo"
	"dispatch/internal/adapters/out/postgres/paymentrepo"
	"dispatch/internal/adapters/out/postgres/riderrepo"
	"dispatch/internal/adapters/out/postgres/statuslogrepo"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config, err := loadConfig()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	gormDB, err := openDatabase(config)
	if err != nil {
		logger.Error("Database connection failed", "error", err)
		os.Exit(1)
	}

	producer, err := openProducer(config, logger)
	if err != nil {
		logger.Error("Kafka connection failed", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
	}

	var broker events.BrokerProducer
	if producer != nil {
		broker = producer
	}
	root := cmd.NewCompositionRoot(config, gormDB, broker, logger)

	jobManager := root.CreateJobManager()
	if err := jobManager.StartAll(); err != nil {
		logger.Error("Job startup failed", "error", err)
		os.Exit(1)
	}
	defer jobManager.StopAll()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "Healthy")
	})

	server := httpin.NewServer(root.HTTPHandlers(), root.Hub())
	server.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(fmt.Sprintf("0.0.0.0:%s", config.HTTPPort)))
}

func loadConfig() (cmd.Config, error) {
	// Missing .env is fine in environments that inject variables directly.
	_ = godotenv.Load(".env")

	config := cmd.Config{
		HTTPPort:   envOr("HTTP_PORT", "8080"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     envOr("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSslMode:  envOr("DB_SSLMODE", "disable"),

		KafkaHost:             os.Getenv("KAFKA_HOST"),
		KafkaOrderEventsTopic: envOr("KAFKA_ORDER_EVENTS_TOPIC", "order-events"),

		PaystackSecretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:    os.Getenv("PAYSTACK_BASE_URL"),
		PaymentCurrency:    envOr("PAYMENT_CURRENCY", "NGN"),
		PaymentCallbackURL: os.Getenv("PAYMENT_CALLBACK_URL"),

		AssignmentTimeout: minutesOr("ASSIGNMENT_TIMEOUT_MINUTES", 30),
		MaxDispatchRadius: floatOr("MAX_DISPATCH_RADIUS_KM", 15),
		LocationStaleness: minutesOr("LOCATION_STALENESS_MINUTES", 10),
		HistoryRetention:  24 * time.Hour * time.Duration(intOr("HISTORY_RETENTION_DAYS", 30)),
	}

	if config.DBHost == "" || config.DBName == "" {
		return cmd.Config{}, fmt.Errorf("DB_HOST and DB_NAME are required")
	}
	if config.PaystackSecretKey == "" {
		return cmd.Config{}, fmt.Errorf("PAYSTACK_SECRET_KEY is required")
	}

	return config, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intOr(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func minutesOr(key string, fallback int) time.Duration {
	return time.Duration(intOr(key, fallback)) * time.Minute
}

func floatOr(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func openDatabase(config cmd.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword,
		config.DBName, config.DBSslMode)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := gormDB.AutoMigrate(
		&orderrepo.OrderDTO{},
		&riderrepo.RiderDTO{},
		&paymentrepo.PaymentDTO{},
		&statuslogrepo.StatusLogDTO{},
		&locationrepo.LocationDTO{},
	); err != nil {
		return nil, err
	}

	return gormDB, nil
}

// openProducer returns nil when KAFKA_HOST is unset: broker delivery is
// optional and local setups run without it.
func openProducer(config cmd.Config, logger *slog.Logger) (*kafka.SaramaProducer, error) {
	if config.KafkaHost == "" {
		return nil, nil
	}
	return kafka.NewSaramaProducer(
		[]string{config.KafkaHost}, config.KafkaOrderEventsTopic, logger)
}
