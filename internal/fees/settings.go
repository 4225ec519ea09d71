package fees

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/eventgate/booking-core/internal/domain"
)

// Setting keys as stored in the fee_settings table.
const (
	KeyUserFee     = "user_fee_percentage"
	KeyHostFee     = "host_fee_percentage"
	KeyPlatformFee = "platform_fee_percentage"
	KeyCGST        = "cgst_percentage"
	KeySGST        = "sgst_percentage"
)

// Defaults apply when a setting is absent from storage.
var Defaults = map[string]float64{
	KeyUserFee:     5,
	KeyHostFee:     10,
	KeyPlatformFee: 0,
	KeyCGST:        9,
	KeySGST:        9,
}

// SettingsStore is the key -> string lookup backed by storage.
type SettingsStore interface {
	GetFeeSetting(ctx context.Context, key string) (string, error)
}

// LoadRates resolves the configured percentages, applying the host's
// custom host-fee override when set. The referral rate is filled in by the
// caller per booking.
func LoadRates(ctx context.Context, store SettingsStore, hostFeeOverride *float64) (Rates, error) {
	var r Rates
	var err error
	if r.UserFee, err = lookup(ctx, store, KeyUserFee); err != nil {
		return Rates{}, err
	}
	if r.HostFee, err = lookup(ctx, store, KeyHostFee); err != nil {
		return Rates{}, err
	}
	if hostFeeOverride != nil {
		r.HostFee = *hostFeeOverride
	}
	if r.PlatformFee, err = lookup(ctx, store, KeyPlatformFee); err != nil {
		return Rates{}, err
	}
	if r.CGST, err = lookup(ctx, store, KeyCGST); err != nil {
		return Rates{}, err
	}
	if r.SGST, err = lookup(ctx, store, KeySGST); err != nil {
		return Rates{}, err
	}
	return r, nil
}

func lookup(ctx context.Context, store SettingsStore, key string) (float64, error) {
	raw, err := store.GetFeeSetting(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return Defaults[key], nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "fee setting %s is not numeric", key)
	}
	return v, nil
}

// ValidatePercentage guards administrator updates.
func ValidatePercentage(key, raw string) error {
	if _, ok := Defaults[key]; !ok {
		return errors.Wrapf(domain.ErrInvalidInput, "unknown fee setting %q", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errors.Wrapf(domain.ErrInvalidInput, "fee setting %s must be numeric", key)
	}
	if v < 0 || v > 100 {
		return errors.Wrapf(domain.ErrInvalidInput, "fee setting %s must be between 0 and 100", key)
	}
	return nil
}
