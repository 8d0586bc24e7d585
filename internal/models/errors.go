package models

import "errors"

// Domain errors returned by the constraint engine and the assignment manager.
// Storage backends return raw driver errors; the engine wraps anything that is
// not one of these as ErrStorageUnavailable.
var (
	ErrAssignmentLimitExceeded = errors.New("store already has 2 sellers assigned")
	ErrStoreFinalized          = errors.New("store is finalized")
	ErrSellerNotAssigned       = errors.New("seller is not assigned to store")
	ErrDuplicateTaxIdentifier  = errors.New("duplicate tax identifier")
	ErrUnknownSeller           = errors.New("unknown seller")
	ErrUnknownStore            = errors.New("unknown store")
	ErrStorageUnavailable      = errors.New("storage unavailable")
	ErrNotConfirmed            = errors.New("operation not confirmed")
)

// IsDomain reports whether err carries one of the domain sentinels.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrAssignmentLimitExceeded,
		ErrStoreFinalized,
		ErrSellerNotAssigned,
		ErrDuplicateTaxIdentifier,
		ErrUnknownSeller,
		ErrUnknownStore,
		ErrNotConfirmed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
