package domain

import "errors"

// Every error leaving the order service wraps exactly one of these.
var (
	ErrValidation          = errors.New("validation_error")
	ErrNotFound            = errors.New("not_found")
	ErrPaymentVerification = errors.New("payment_verification_failed")
	ErrInvalidTransition   = errors.New("invalid_state_transition")
	ErrUpstreamGateway     = errors.New("upstream_gateway_error")
	ErrPersistence         = errors.New("persistence_error")
)

var kinds = []error{
	ErrValidation,
	ErrNotFound,
	ErrPaymentVerification,
	ErrInvalidTransition,
	ErrUpstreamGateway,
	ErrPersistence,
}

// Kind returns the sentinel err wraps, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
