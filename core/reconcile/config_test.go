package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_CabinList(t *testing.T) {
	cfg := Config{
		Cabins: "Colibri, Peperina,colibrí",
		Feeds:  "Peperina=https://example.com/p.ics, Quebracho=https://example.com/q.ics",
	}

	cabins, err := cfg.CabinList()
	require.NoError(t, err)
	assert.Equal(t, []Cabin{
		{Name: "Colibri"},
		{Name: "Peperina", FeedURL: "https://example.com/p.ics"},
		{Name: "Quebracho", FeedURL: "https://example.com/q.ics"},
	}, cabins)
}

func TestConfig_CabinList_InvalidFeed(t *testing.T) {
	tests := []string{"Colibri", "=https://x", "Colibri="}
	for _, feeds := range tests {
		t.Run(feeds, func(t *testing.T) {
			_, err := Config{Feeds: feeds}.CabinList()
			assert.Error(t, err)
		})
	}
}

func TestConfig_Spec(t *testing.T) {
	cfg := Config{
		Cabins:        "Colibri",
		Timezone:      "UTC",
		MinNights:     3,
		MaxNights:     14,
		HorizonMonths: 2,
		Placeholders:  "Bloqueado",
		Marker:        "Airbnb",
		SentinelGuest: "Airbnb Guest",
	}

	spec, err := cfg.Spec(5*time.Second, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Colibri"}, spec.CabinNames())
	assert.Equal(t, 3, spec.Policy.MinNights)
	assert.Equal(t, 14, spec.Policy.MaxNights)
	assert.Equal(t, 2, spec.Policy.HorizonMonths)
	assert.False(t, spec.Policy.HasUsableGuestName("bloqueado"))
	assert.Equal(t, 5*time.Second, spec.FetchTimeout)
	assert.Equal(t, 2, spec.FetchWorkers)
	assert.Equal(t, time.UTC, spec.Location)

	cabin, ok := spec.Cabin("COLIBRÍ")
	assert.True(t, ok)
	assert.Equal(t, "Colibri", cabin.Name)
	_, ok = spec.Cabin("Peperina")
	assert.False(t, ok)
}

func TestConfig_Spec_Defaults(t *testing.T) {
	spec, err := Config{}.Spec(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMinNights, spec.Policy.MinNights)
	assert.Equal(t, DefaultMaxNights, spec.Policy.MaxNights)
	assert.Equal(t, DefaultHorizonMonths, spec.Policy.HorizonMonths)
}

func TestConfig_Spec_Errors(t *testing.T) {
	_, err := Config{Timezone: "Mars/Olympus_Mons"}.Spec(0, 0)
	assert.Error(t, err)

	_, err = Config{MinNights: 10, MaxNights: 5}.Spec(0, 0)
	assert.Error(t, err)
}
