package cmd

import "time"

// Config carries everything the composition root needs, loaded from the
// environment by cmd/app.
type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	KafkaHost             string
	KafkaOrderEventsTopic string

	PaystackSecretKey  string
	PaystackBaseURL    string
	PaymentCurrency    string
	PaymentCallbackURL string

	AssignmentTimeout time.Duration
	MaxDispatchRadius float64
	LocationStaleness time.Duration
	HistoryRetention  time.Duration
}
