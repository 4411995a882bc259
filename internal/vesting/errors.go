package vesting

import "errors"

// Engine errors. Callers match them with errors.Is; the engine wraps them
// with context but never retries.
var (
	// ErrAlreadyExists is returned when a derived address is already occupied.
	ErrAlreadyExists = errors.New("vesting: account already exists")

	// ErrInvalidSchedule is returned for schedules violating
	// start <= cliff <= end, start < end, or the amount limit.
	ErrInvalidSchedule = errors.New("vesting: invalid schedule")

	// ErrUnauthorized is returned when the caller is not allowed to act on the record.
	ErrUnauthorized = errors.New("vesting: unauthorized")

	// ErrNothingToClaim is returned when the vested amount is fully withdrawn.
	ErrNothingToClaim = errors.New("vesting: nothing to claim")

	// ErrInsufficientCustody is returned when the pool custody cannot cover a claim.
	ErrInsufficientCustody = errors.New("vesting: insufficient custody balance")

	// ErrDerivationFailure is returned when no valid program address exists for the seeds.
	ErrDerivationFailure = errors.New("vesting: address derivation failed")

	// ErrInvalidInput is returned for malformed keys, names or amounts.
	ErrInvalidInput = errors.New("vesting: invalid input")

	// ErrPoolNotFound is returned when the referenced pool does not exist.
	ErrPoolNotFound = errors.New("vesting: pool not found")

	// ErrScheduleNotFound is returned when the referenced schedule does not exist.
	ErrScheduleNotFound = errors.New("vesting: schedule not found")
)
