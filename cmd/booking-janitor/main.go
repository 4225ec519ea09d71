// booking-janitor reaps PENDING bookings that never settled: the payment
// session expired at the gateway and no webhook will ever arrive. It
// applies the same compensation as a failed order creation, so no
// orphaned pending state accumulates.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventgate/booking-core/internal/adapters/crdb"
	"github.com/eventgate/booking-core/internal/adapters/rabbit"
	"github.com/eventgate/booking-core/internal/config"
	"github.com/eventgate/booking-core/internal/domain"
	"github.com/eventgate/booking-core/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	janitor := NewJanitor(repo, rabbitPub, logger, cfg.PendingBookingTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go janitor.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown booking janitor")
}

type Janitor struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
	ttl       time.Duration
}

func NewJanitor(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger, ttl time.Duration) *Janitor {
	return &Janitor{repo: repo, rabbitPub: rabbitPub, logger: logger, ttl: ttl}
}

func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stale, err := j.repo.GetStalePendingBookings(ctx, now.Add(-j.ttl), 100)
			if err != nil {
				j.logger.Error("failed to load stale bookings", err)
				continue
			}
			for _, b := range stale {
				if err := j.reapWithRetry(ctx, b); err != nil {
					j.logger.WithField("booking_id", b.ID.String()).Error("failed to reap booking after retries: ", err)
				}
			}
		}
	}
}

func (j *Janitor) reapWithRetry(ctx context.Context, b domain.Booking) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if err := j.reap(ctx, b); err != nil {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("failed after %d retries", maxRetries)
}

func (j *Janitor) reap(ctx context.Context, b domain.Booking) error {
	// One transaction decides: a payment completed meanwhile means the
	// webhook won and the booking stays for settlement.
	reaped, err := j.repo.ReapPendingBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	if !reaped {
		return nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"booking_id":     b.ID,
		"booking_number": b.BookingNumber,
	})
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}
	return j.rabbitPub.Publish(ctx, "booking.expired", msg)
}
