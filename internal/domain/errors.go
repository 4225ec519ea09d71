package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrPackageNotFound      = errors.New("package not found")
	ErrInvalidReferralCode  = errors.New("invalid referral code")
	ErrOrderCreationFailed  = errors.New("order creation failed")
)
