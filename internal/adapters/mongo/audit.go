package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eventgate/booking-core/internal/domain"
	"github.com/eventgate/booking-core/internal/observability"
)

// AuditLogger records settlement outcomes for reconciliation. It sits
// outside the settlement transaction; a failed audit write is logged, not
// escalated.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("settlement_audit"),
		logger: logger,
	}
}

type SettlementAudit struct {
	ID             uuid.UUID `bson:"_id"`
	BookingID      uuid.UUID `bson:"booking_id"`
	BookingNumber  string    `bson:"booking_number"`
	GatewayOrderID string    `bson:"gateway_order_id"`
	TicketCount    int       `bson:"ticket_count"`
	HostCredit     float64   `bson:"host_credit"`
	AdminCredit    float64   `bson:"admin_credit"`
	ReferralCredit float64   `bson:"referral_credit"`
	Duplicate      bool      `bson:"duplicate"`
	Timestamp      time.Time `bson:"timestamp"`
}

func (a *AuditLogger) LogSettlement(ctx context.Context, booking domain.Booking, gatewayOrderID string, hostCredit, adminCredit, referralCredit float64, duplicate bool) error {
	doc := SettlementAudit{
		ID:             uuid.New(),
		BookingID:      booking.ID,
		BookingNumber:  booking.BookingNumber,
		GatewayOrderID: gatewayOrderID,
		TicketCount:    booking.TicketCount,
		HostCredit:     hostCredit,
		AdminCredit:    adminCredit,
		ReferralCredit: referralCredit,
		Duplicate:      duplicate,
		Timestamp:      time.Now(),
	}
	_, err := a.coll.InsertOne(ctx, doc)
	if err != nil {
		a.logger.Error("failed to insert settlement audit", err)
		return err
	}
	return nil
}

func (a *AuditLogger) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]SettlementAudit, error) {
	cur, err := a.coll.Find(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []SettlementAudit
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
