package config

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN               string
	MongoURI            string
	RedisAddr           string
	RabbitURL           string
	GatewayBaseURL      string
	GatewayClientID     string
	GatewayClientSecret string
	ReturnURLBase       string
	PlatformAdminID     uuid.UUID
	PendingBookingTTL   time.Duration
	OTLPEndpoint        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	pendingTTL, _ := time.ParseDuration(os.Getenv("PENDING_BOOKING_TTL"))
	if pendingTTL == 0 {
		pendingTTL = 30 * time.Minute
	}

	adminID, _ := uuid.Parse(os.Getenv("PLATFORM_ADMIN_ID"))

	return &Config{
		DBDSN:               os.Getenv("DB_DSN"),
		MongoURI:            os.Getenv("MONGO_URI"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RabbitURL:           os.Getenv("RABBIT_URL"),
		GatewayBaseURL:      os.Getenv("GATEWAY_BASE_URL"),
		GatewayClientID:     os.Getenv("GATEWAY_CLIENT_ID"),
		GatewayClientSecret: os.Getenv("GATEWAY_CLIENT_SECRET"),
		ReturnURLBase:       os.Getenv("RETURN_URL_BASE"),
		PlatformAdminID:     adminID,
		PendingBookingTTL:   pendingTTL,
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
