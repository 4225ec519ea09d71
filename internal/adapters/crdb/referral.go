package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/eventgate/booking-core/internal/domain"
)

func (r *Repository) GetReferralLinkByCode(ctx context.Context, code string) (*domain.ReferralLink, error) {
	var link domain.ReferralLink
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, event_id, referrer_id
		FROM referral_links WHERE code = $1
	`, code).Scan(&link.ID, &link.Code, &link.EventID, &link.ReferrerID)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *Repository) GetReferralLink(ctx context.Context, id uuid.UUID) (*domain.ReferralLink, error) {
	var link domain.ReferralLink
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, event_id, referrer_id
		FROM referral_links WHERE id = $1
	`, id).Scan(&link.ID, &link.Code, &link.EventID, &link.ReferrerID)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *Repository) CreateReferralLink(ctx context.Context, link domain.ReferralLink) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO referral_links (id, code, event_id, referrer_id)
		VALUES ($1, $2, $3, $4)
	`, link.ID, link.Code, link.EventID, link.ReferrerID)
	return err
}

// UpsertReferral keeps one aggregate row per (referrer, referred user,
// link) triple; a second completed booking through the same link adds to
// the existing commission.
func (r *Repository) UpsertReferral(ctx context.Context, tx pgx.Tx, ref domain.Referral) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO referrals (id, referrer_id, referred_user_id, referral_link_id, commission, commission_paid)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (referrer_id, referred_user_id, referral_link_id)
		DO UPDATE SET commission = referrals.commission + EXCLUDED.commission, commission_paid = true
	`, ref.ID, ref.ReferrerID, ref.ReferredUserID, ref.ReferralLinkID, ref.Commission)
	return err
}

func (r *Repository) GetReferral(ctx context.Context, referrerID, referredUserID, linkID uuid.UUID) (*domain.Referral, error) {
	var ref domain.Referral
	err := r.pool.QueryRow(ctx, `
		SELECT id, referrer_id, referred_user_id, referral_link_id, commission, commission_paid
		FROM referrals WHERE referrer_id = $1 AND referred_user_id = $2 AND referral_link_id = $3
	`, referrerID, referredUserID, linkID).Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredUserID, &ref.ReferralLinkID, &ref.Commission, &ref.CommissionPaid)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
