package reservation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cabin-manager/core/database"
	"cabin-manager/core/reconcile"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	colibri  = reconcile.Cabin{Name: "Colibri", FeedURL: "https://example.com/colibri.ics"}
	peperina = reconcile.Cabin{Name: "Peperina", FeedURL: "https://example.com/peperina.ics"}
)

func testSpec() *reconcile.Spec {
	n := 0
	return &reconcile.Spec{
		Cabins:     []reconcile.Cabin{colibri, peperina},
		Policy:     reconcile.DefaultPolicy(),
		Classifier: reconcile.Classifier{SentinelGuest: "Airbnb Guest", Marker: "Airbnb"},
		Location:   time.UTC,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

func testConfig() Config {
	return Config{NightlyRate: 150, Currency: "ARS", UpcomingLimit: 3, BatchSize: 2}
}

func date(s string) reconcile.Date {
	d, err := reconcile.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	repo := NewRepository(db, 2, zap.NewNop())
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

// feedsOf serves fixed bookings per cabin name; a cabin mapped to an error fails.
type feedsOf map[string]any

func (f feedsOf) Fetch(ctx context.Context, cabin reconcile.Cabin) ([]reconcile.ExternalBooking, error) {
	switch v := f[cabin.Name].(type) {
	case error:
		return nil, v
	case []reconcile.ExternalBooking:
		return v, nil
	default:
		return nil, nil
	}
}

func newTestService(t *testing.T, source reconcile.FeedSource) (*Service, *Repository) {
	t.Helper()
	repo := newTestRepository(t)
	svc := NewService(repo, testSpec(), source, testConfig(), zap.NewNop())
	svc.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc, repo
}

func ptr[T any](v T) *T { return &v }
