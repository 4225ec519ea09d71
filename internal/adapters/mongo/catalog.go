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

// CatalogRepository is the read model for events and their ticket
// packages. The booking pipeline never writes here apart from test and
// seeding helpers.
type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("events"),
		logger: logger,
	}
}

type EventDoc struct {
	ID                 uuid.UUID    `bson:"_id"`
	Title              string       `bson:"title"`
	Venue              string       `bson:"venue"`
	Date               time.Time    `bson:"date"`
	HostID             uuid.UUID    `bson:"host_id"`
	HostName           string       `bson:"host_name"`
	HostEmail          string       `bson:"host_email"`
	HostFeeOverride    *float64     `bson:"host_fee_override,omitempty"`
	ReferralPercentage float64      `bson:"referral_percentage"`
	Packages           []PackageDoc `bson:"packages"`
	CreatedAt          time.Time    `bson:"created_at"`
	UpdatedAt          time.Time    `bson:"updated_at"`
}

type PackageDoc struct {
	ID            uuid.UUID `bson:"_id"`
	Name          string    `bson:"name"`
	Price         float64   `bson:"price"`
	MaxPerBooking int       `bson:"max_per_booking"`
}

func (c *CatalogRepository) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	var doc EventDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get event", err)
		return nil, err
	}
	return doc.toDomain(), nil
}

func (c *CatalogRepository) CreateEvent(ctx context.Context, doc EventDoc) error {
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()
	_, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		c.logger.Error("failed to create event", err)
		return err
	}
	return nil
}

func (d *EventDoc) toDomain() *domain.Event {
	ev := &domain.Event{
		ID:                 d.ID,
		Title:              d.Title,
		Venue:              d.Venue,
		Date:               d.Date,
		HostID:             d.HostID,
		HostName:           d.HostName,
		HostEmail:          d.HostEmail,
		HostFeeOverride:    d.HostFeeOverride,
		ReferralPercentage: d.ReferralPercentage,
	}
	for _, p := range d.Packages {
		ev.Packages = append(ev.Packages, domain.Package{
			ID:            p.ID,
			Name:          p.Name,
			Price:         p.Price,
			MaxPerBooking: p.MaxPerBooking,
		})
	}
	return ev
}
