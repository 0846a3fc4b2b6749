package integrity

import (
	"context"
	"errors"
	"testing"
	"time"

	"cabin-manager/core/reconcile"
	"cabin-manager/feature/integrity/checks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryStore keeps the set in memory and counts saves.
type memoryStore struct {
	set     *reconcile.ReservationSet
	loadErr error
	saves   int
}

func (m *memoryStore) Load(ctx context.Context) (*reconcile.ReservationSet, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.set.Clone(), nil
}

func (m *memoryStore) Save(ctx context.Context, set *reconcile.ReservationSet) error {
	m.saves++
	m.set = set.Clone()
	return nil
}

type fakeMigrator struct {
	calls int
	err   error
}

func (f *fakeMigrator) Migrate(ctx context.Context) error {
	f.calls++
	return f.err
}

func date(s string) reconcile.Date {
	d, err := reconcile.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testSpec() *reconcile.Spec {
	return &reconcile.Spec{
		Cabins:     []reconcile.Cabin{{Name: "Colibri", FeedURL: "https://example.com/c.ics"}, {Name: "Peperina"}},
		Classifier: reconcile.Classifier{SentinelGuest: "Airbnb Guest", Marker: "Airbnb"},
		Location:   time.UTC,
	}
}

func legacySet() *reconcile.ReservationSet {
	return reconcile.NewReservationSet(
		reconcile.Reservation{
			ID: "a", GuestName: "Ana", Resource: "Colibri",
			CheckIn: date("2025-07-01"), CheckOut: date("2025-07-04"), Nights: 3,
		},
		reconcile.Reservation{
			ID: "b", GuestName: "Airbnb Guest", Resource: "Peperina",
			CheckIn: date("2025-07-01"), CheckOut: date("2025-07-04"), Nights: 3,
		},
	)
}

func TestService_FixReservations(t *testing.T) {
	store := &memoryStore{set: legacySet()}
	svc := NewService(store, testSpec(), Options{}, zap.NewNop())

	report, err := svc.CheckReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Untagged)

	n, err := svc.FixReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, reconcile.SourceManual, store.set.Reservations[0].Source)
	assert.Equal(t, reconcile.SourceExternalSync, store.set.Reservations[1].Source)

	// Nothing left to tag, so nothing is saved.
	n, err = svc.FixReservations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, store.saves)
}

func TestService_LoadError(t *testing.T) {
	svc := NewService(&memoryStore{loadErr: errors.New("disk")}, testSpec(), Options{}, nil)

	_, err := svc.CheckReservations(context.Background())
	assert.Error(t, err)
	_, err = svc.FixReservations(context.Background())
	assert.Error(t, err)
}

func TestService_FixSchema(t *testing.T) {
	svc := NewService(&memoryStore{}, testSpec(), Options{}, nil)
	assert.Error(t, svc.FixSchema(context.Background()))

	m := &fakeMigrator{}
	svc = NewService(&memoryStore{}, testSpec(), Options{Migrator: m}, nil)
	assert.NoError(t, svc.FixSchema(context.Background()))
	assert.Equal(t, 1, m.calls)
}

func TestService_CheckAll(t *testing.T) {
	svc := NewService(&memoryStore{set: legacySet()}, testSpec(), Options{}, nil)
	report := svc.CheckAll(context.Background())

	res, ok := report["reservations"].(*checks.ReservationReport)
	require.True(t, ok)
	assert.Equal(t, 2, res.Total)

	// No database or storage wired: reported, not fatal.
	assert.Equal(t, "error", report["schema"].(map[string]any)["status"])
	assert.Equal(t, "error", report["calendar"].(map[string]any)["status"])
	assert.Equal(t, []string{"Peperina"}, report["feeds"].(map[string]any)["missing"])
}
