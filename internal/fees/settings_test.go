package fees

import (
	"context"
	"testing"

	"github.com/eventgate/booking-core/internal/domain"
)

type mapStore map[string]string

func (m mapStore) GetFeeSetting(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func TestLoadRates_Defaults(t *testing.T) {
	r, err := LoadRates(context.Background(), mapStore{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.UserFee != Defaults[KeyUserFee] || r.HostFee != Defaults[KeyHostFee] || r.CGST != Defaults[KeyCGST] {
		t.Errorf("expected defaults, got %+v", r)
	}
	if r.Referral != 0 {
		t.Errorf("referral rate should start at 0, got %v", r.Referral)
	}
}

func TestLoadRates_HostOverride(t *testing.T) {
	override := 6.0
	r, err := LoadRates(context.Background(), mapStore{KeyHostFee: "12"}, &override)
	if err != nil {
		t.Fatal(err)
	}
	if r.HostFee != 6 {
		t.Errorf("host override should win over stored setting, got %v", r.HostFee)
	}
}

func TestLoadRates_StoredValues(t *testing.T) {
	store := mapStore{
		KeyUserFee:     "5",
		KeyHostFee:     "6",
		KeyPlatformFee: "1.5",
		KeyCGST:        "9",
		KeySGST:        "9",
	}
	r, err := LoadRates(context.Background(), store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.PlatformFee != 1.5 {
		t.Errorf("platform fee = %v, want 1.5", r.PlatformFee)
	}
}

func TestLoadRates_Malformed(t *testing.T) {
	_, err := LoadRates(context.Background(), mapStore{KeyUserFee: "five"}, nil)
	if err == nil {
		t.Fatal("expected error for non-numeric setting")
	}
}

func TestValidatePercentage(t *testing.T) {
	if err := ValidatePercentage(KeyUserFee, "12.5"); err != nil {
		t.Errorf("12.5 should be valid: %v", err)
	}
	if err := ValidatePercentage(KeyUserFee, "101"); err == nil {
		t.Error("101 should be rejected")
	}
	if err := ValidatePercentage(KeyUserFee, "-1"); err == nil {
		t.Error("-1 should be rejected")
	}
	if err := ValidatePercentage("mystery_percentage", "10"); err == nil {
		t.Error("unknown key should be rejected")
	}
	if err := ValidatePercentage(KeyCGST, "abc"); err == nil {
		t.Error("non-numeric value should be rejected")
	}
}
