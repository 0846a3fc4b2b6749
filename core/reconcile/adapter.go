package reconcile

import "context"

// Store loads and saves the full reservation set.
type Store interface {
	// Load returns the current set. An empty store yields an empty set, not an error.
	Load(ctx context.Context) (*ReservationSet, error)
	// Save replaces the stored set atomically.
	Save(ctx context.Context, set *ReservationSet) error
}

// FeedSource supplies the bookings one cabin's upstream calendar reports.
type FeedSource interface {
	Fetch(ctx context.Context, cabin Cabin) ([]ExternalBooking, error)
}

// FeedSourceFunc adapts a function to FeedSource.
type FeedSourceFunc func(ctx context.Context, cabin Cabin) ([]ExternalBooking, error)

// Fetch calls f.
func (f FeedSourceFunc) Fetch(ctx context.Context, cabin Cabin) ([]ExternalBooking, error) {
	return f(ctx, cabin)
}
