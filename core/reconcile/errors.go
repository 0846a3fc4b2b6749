package reconcile

import "errors"

var (
	// ErrFetchFailed wraps a feed that could not be fetched or parsed.
	ErrFetchFailed = errors.New("feed fetch failed")
	// ErrPersistence wraps a failed save; the store keeps its previous state.
	ErrPersistence = errors.New("failed to persist reservations")
	// ErrMalformedRecord describes a stored row with unusable dates or fields.
	ErrMalformedRecord = errors.New("malformed reservation record")
	// ErrUnconfirmedRemoval is returned when a plan removes a reservation the
	// caller did not confirm. Nothing is saved.
	ErrUnconfirmedRemoval = errors.New("plan removes unconfirmed reservations")
)
