package reconcile

import (
	"fmt"
	"strings"
	"time"

	"cabin-manager/core/normalize"
)

// Config holds configuration for reconciliation passes.
type Config struct {
	// Feeds maps cabins to their iCal export, as "Name=URL,Name=URL".
	Feeds string `mapstructure:"feeds" default:""`
	// Cabins lists bookable cabins, including ones without a feed.
	Cabins string `mapstructure:"cabins" default:"Colibri,Peperina"`
	// Cron is the schedule of automatic passes.
	Cron string `mapstructure:"cron" default:"0 * * * *"`
	// MinNights is the shortest admitted stay.
	MinNights int `mapstructure:"min_nights" default:"2"`
	// MaxNights is the longest admitted stay.
	MaxNights int `mapstructure:"max_nights" default:"31"`
	// HorizonMonths bounds how far ahead bookings are admitted.
	HorizonMonths int `mapstructure:"horizon_months" default:"7"`
	// Placeholders adds comma separated summaries that carry no guest name.
	Placeholders string `mapstructure:"placeholders" default:""`
	// Timezone is the IANA zone "today" is evaluated in.
	Timezone string `mapstructure:"timezone" default:"America/Argentina/Cordoba"`
	// Marker identifies synced rows in legacy notes and prefixes new ones.
	Marker string `mapstructure:"marker" default:"Airbnb"`
	// SentinelGuest is the guest name legacy syncs used for synced rows.
	SentinelGuest string `mapstructure:"sentinel_guest" default:"Airbnb Guest"`
}

// CabinList returns the configured cabins in order: the Cabins list first,
// then any cabin that only appears in Feeds.
func (c Config) CabinList() ([]Cabin, error) {
	var cabins []Cabin
	seen := make(map[string]int)

	for _, name := range splitList(c.Cabins) {
		key := normalize.Fold(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = len(cabins)
		cabins = append(cabins, Cabin{Name: name})
	}

	for _, pair := range splitList(c.Feeds) {
		name, url, ok := strings.Cut(pair, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid feed entry %q, expected Name=URL", pair)
		}
		key := normalize.Fold(name)
		if i, ok := seen[key]; ok {
			cabins[i].FeedURL = url
			continue
		}
		seen[key] = len(cabins)
		cabins = append(cabins, Cabin{Name: name, FeedURL: url})
	}

	return cabins, nil
}

// Spec builds the pass specification from the configuration.
func (c Config) Spec(fetchTimeout time.Duration, fetchWorkers int) (*Spec, error) {
	cabins, err := c.CabinList()
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if c.Timezone != "" {
		loc, err = time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}

	minNights, maxNights, horizon := c.MinNights, c.MaxNights, c.HorizonMonths
	if minNights <= 0 {
		minNights = DefaultMinNights
	}
	if maxNights <= 0 {
		maxNights = DefaultMaxNights
	}
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}
	if minNights > maxNights {
		return nil, fmt.Errorf("min_nights %d exceeds max_nights %d", minNights, maxNights)
	}

	return &Spec{
		Cabins:       cabins,
		Policy:       NewPolicy(minNights, maxNights, horizon, splitList(c.Placeholders)...),
		Classifier:   Classifier{SentinelGuest: c.SentinelGuest, Marker: c.Marker},
		FetchTimeout: fetchTimeout,
		FetchWorkers: fetchWorkers,
		Location:     loc,
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
