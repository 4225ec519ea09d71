package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/eventgate/booking-core/internal/adapters/crdb"
	"github.com/eventgate/booking-core/internal/domain"
)

const schema = `
	CREATE DATABASE IF NOT EXISTS bsc;
	CREATE TABLE IF NOT EXISTS bsc.users (
		id UUID PRIMARY KEY,
		name TEXT,
		email TEXT,
		phone TEXT,
		wallet_balance NUMERIC DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS bsc.bookings (
		id UUID PRIMARY KEY,
		booking_number TEXT UNIQUE,
		status TEXT CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELLED')),
		ticket_count INT,
		total_amount NUMERIC,
		user_id UUID,
		event_id UUID,
		package_id UUID,
		referral_link_id UUID,
		created_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS bsc.ticket_intents (
		id UUID PRIMARY KEY,
		booking_id UUID UNIQUE,
		items_json JSONB,
		created_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS bsc.payments (
		id UUID PRIMARY KEY,
		booking_id UUID UNIQUE,
		gateway_order_id TEXT,
		gateway_payment_id TEXT,
		status TEXT CHECK (status IN ('PENDING', 'COMPLETED')),
		amount NUMERIC,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS bsc.tickets (
		id UUID PRIMARY KEY,
		ticket_number TEXT UNIQUE,
		qr_token TEXT,
		holder_name TEXT,
		holder_age INT,
		holder_phone TEXT,
		price NUMERIC,
		user_id UUID,
		event_id UUID,
		package_id UUID,
		booking_id UUID,
		created_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS bsc.referral_links (
		id UUID PRIMARY KEY,
		code TEXT UNIQUE,
		event_id UUID,
		referrer_id UUID
	);
	CREATE TABLE IF NOT EXISTS bsc.referrals (
		id UUID PRIMARY KEY,
		referrer_id UUID,
		referred_user_id UUID,
		referral_link_id UUID,
		commission NUMERIC,
		commission_paid BOOL,
		UNIQUE (referrer_id, referred_user_id, referral_link_id)
	);
	CREATE TABLE IF NOT EXISTS bsc.fee_settings (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	CREATE TABLE IF NOT EXISTS bsc.outbox (
		id UUID PRIMARY KEY,
		booking_id UUID,
		event_type TEXT,
		payload_json BYTES,
		created_at TIMESTAMPTZ DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT CHECK (status IN ('NEW', 'PUBLISHED')),
		dedupe_key TEXT
	);
`

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/bsc?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	return pool
}

func TestRepository_BookingLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(newTestPool(t))

	b := domain.NewBooking(uuid.New(), uuid.New(), uuid.New(), 2, 2460, nil)
	intent := domain.NewTicketIntent(b.ID, []domain.IntentItem{
		{PackageID: b.PackageID, Quantity: 2, Holders: []domain.TicketHolder{
			{Name: "Asha", Age: 25, Phone: "9999999999"},
			{Name: "Ravi", Age: 31, Phone: "8888888888"},
		}},
	})

	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := repo.CreateBooking(ctx, tx, b); err != nil {
			return err
		}
		return repo.CreateTicketIntent(ctx, tx, intent)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fetched, err := repo.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.BookingPending || fetched.TicketCount != 2 {
		t.Errorf("fetched booking %v with %d tickets, want PENDING with 2", fetched.Status, fetched.TicketCount)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		loaded, err := repo.GetTicketIntent(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if len(loaded.Items) != 1 || len(loaded.Items[0].Holders) != 2 {
			t.Errorf("intent did not round-trip: %+v", loaded.Items)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.ConfirmBooking(ctx, tx, b.ID)
	})
	if err != nil {
		t.Fatalf("expected confirmation to succeed, got %v", err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.ConfirmBooking(ctx, tx, b.ID)
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("re-confirming must conflict, got %v", err)
	}

	// Deleting a confirmed booking is a no-op: compensation only removes
	// PENDING rows.
	if err := repo.DeleteBooking(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetBooking(ctx, b.ID); err != nil {
		t.Errorf("confirmed booking must survive DeleteBooking, got %v", err)
	}
}

func TestRepository_CompletePayment_SingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(newTestPool(t))

	bookingID := uuid.New()
	if err := repo.CreatePayment(ctx, domain.NewPayment(bookingID, "cf_order_1", 2460)); err != nil {
		t.Fatal(err)
	}

	var first, second bool
	err := repo.WithTx(ctx, func(tx pgx.Tx) (err error) {
		first, err = repo.CompletePayment(ctx, tx, bookingID, "cf_pay_1")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Error("first completion must win")
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) (err error) {
		second, err = repo.CompletePayment(ctx, tx, bookingID, "cf_pay_1")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if second {
		t.Error("second completion must observe COMPLETED and lose")
	}

	p, err := repo.GetPaymentByBooking(ctx, bookingID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.PaymentCompleted || p.GatewayPaymentID != "cf_pay_1" {
		t.Errorf("payment = %v/%q, want COMPLETED/cf_pay_1", p.Status, p.GatewayPaymentID)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := repo.CompletePayment(ctx, tx, uuid.New(), "cf_pay_x")
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown booking, got %v", err)
	}
}

func TestRepository_CreditWallet(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(newTestPool(t))

	host := domain.User{ID: uuid.New(), Name: "Host", Email: "host@example.com", Phone: "7777777777"}
	if err := repo.CreateUser(ctx, host); err != nil {
		t.Fatal(err)
	}

	for _, amount := range []float64{846, 846} {
		err := repo.WithTx(ctx, func(tx pgx.Tx) error {
			return repo.CreditWallet(ctx, tx, host.ID, amount)
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	u, err := repo.GetUser(ctx, host.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.WalletBalance != 1692 {
		t.Errorf("wallet = %v, want 1692", u.WalletBalance)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreditWallet(ctx, tx, uuid.New(), 10)
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("crediting an unknown user must fail, got %v", err)
	}
}

func TestRepository_UpsertReferral_Aggregates(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(newTestPool(t))

	link := domain.ReferralLink{ID: uuid.New(), Code: "FRIEND10", EventID: uuid.New(), ReferrerID: uuid.New()}
	if err := repo.CreateReferralLink(ctx, link); err != nil {
		t.Fatal(err)
	}
	referred := uuid.New()

	for i := 0; i < 2; i++ {
		ref := domain.Referral{
			ID:             uuid.New(),
			ReferrerID:     link.ReferrerID,
			ReferredUserID: referred,
			ReferralLinkID: link.ID,
			Commission:     94,
		}
		err := repo.WithTx(ctx, func(tx pgx.Tx) error {
			return repo.UpsertReferral(ctx, tx, ref)
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	ref, err := repo.GetReferral(ctx, link.ReferrerID, referred, link.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ref.Commission != 188 || !ref.CommissionPaid {
		t.Errorf("referral = %v/%v, want 188/paid", ref.Commission, ref.CommissionPaid)
	}

	fetched, err := repo.GetReferralLinkByCode(ctx, "FRIEND10")
	if err != nil {
		t.Fatal(err)
	}
	if fetched.ID != link.ID {
		t.Errorf("lookup by code returned %s, want %s", fetched.ID, link.ID)
	}
}

func TestRepository_TicketsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(newTestPool(t))

	// Several rows through one transaction: a pgx.Tx serves one statement
	// at a time, so the batch must land without tripping the connection.
	b := domain.NewBooking(uuid.New(), uuid.New(), uuid.New(), 5, 6150, nil)
	var tickets []domain.Ticket
	for seq := 1; seq <= 5; seq++ {
		holder := domain.TicketHolder{Name: "Holder", Age: 20 + seq, Phone: "9999999999"}
		tickets = append(tickets, domain.NewTicket(b, b.PackageID, holder, seq, 1230))
	}

	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateTickets(ctx, tx, tickets)
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := repo.CountTicketsByBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("ticket count = %d, want 5", n)
	}

	listed, err := repo.ListTicketsByBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 5 || listed[0].TicketNumber != b.BookingNumber+"-T001" || listed[4].TicketNumber != b.BookingNumber+"-T005" {
		t.Errorf("unexpected ticket listing %+v", listed)
	}
}

func TestRepository_ReapPendingBooking(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(newTestPool(t))

	stage := func(t *testing.T) domain.Booking {
		t.Helper()
		b := domain.NewBooking(uuid.New(), uuid.New(), uuid.New(), 1, 1230, nil)
		intent := domain.NewTicketIntent(b.ID, []domain.IntentItem{
			{PackageID: b.PackageID, Quantity: 1, Holders: []domain.TicketHolder{{Name: "Asha", Age: 25, Phone: "9999999999"}}},
		})
		err := repo.WithTx(ctx, func(tx pgx.Tx) error {
			if err := repo.CreateBooking(ctx, tx, b); err != nil {
				return err
			}
			return repo.CreateTicketIntent(ctx, tx, intent)
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := repo.CreatePayment(ctx, domain.NewPayment(b.ID, "cf_"+b.BookingNumber, 1230)); err != nil {
			t.Fatal(err)
		}
		return b
	}

	// Still PENDING: the reap removes booking and intent.
	stale := stage(t)
	reaped, err := repo.ReapPendingBooking(ctx, stale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reaped {
		t.Error("stale pending booking must be reaped")
	}
	if _, err := repo.GetBooking(ctx, stale.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("reaped booking still readable: %v", err)
	}

	// Payment completed meanwhile: the reap must leave everything alone.
	settled := stage(t)
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := repo.CompletePayment(ctx, tx, settled.ID, "cf_pay_1")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	reaped, err = repo.ReapPendingBooking(ctx, settled.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reaped {
		t.Error("booking with a completed payment must not be reaped")
	}
	if _, err := repo.GetBooking(ctx, settled.ID); err != nil {
		t.Errorf("booking must survive for settlement, got %v", err)
	}
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := repo.GetTicketIntent(ctx, tx, settled.ID)
		return err
	})
	if err != nil {
		t.Errorf("intent must survive for settlement, got %v", err)
	}
}

func TestRepository_OutboxDrain(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(newTestPool(t))

	rec := crdb.NewOutboxRecord(uuid.New(), "booking.confirmed", []byte(`{"ok":true}`))
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.InsertOutbox(ctx, tx, rec)
	})
	if err != nil {
		t.Fatal(err)
	}

	pending, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != rec.ID || pending[0].EventType != "booking.confirmed" {
		t.Fatalf("unexpected pending records %+v", pending)
	}

	if err := repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
		t.Fatal(err)
	}

	pending, err = repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("published records must not be returned, got %d", len(pending))
	}

	age, err := repo.OldestUnpublishedAge(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if age != 0 {
		t.Errorf("lag = %v with an empty backlog, want 0", age)
	}
}

func TestRepository_FeeSettings(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(newTestPool(t))

	if _, err := repo.GetFeeSetting(ctx, "user_fee_percentage"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unset key, got %v", err)
	}

	if err := repo.UpsertFeeSetting(ctx, "user_fee_percentage", "5"); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertFeeSetting(ctx, "user_fee_percentage", "7.5"); err != nil {
		t.Fatal(err)
	}

	v, err := repo.GetFeeSetting(ctx, "user_fee_percentage")
	if err != nil {
		t.Fatal(err)
	}
	if v != "7.5" {
		t.Errorf("value = %q, want 7.5", v)
	}
}
