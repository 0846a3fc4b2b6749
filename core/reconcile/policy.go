package reconcile

import (
	"strings"

	"cabin-manager/core/normalize"
)

const (
	DefaultMinNights     = 2
	DefaultMaxNights     = 31
	DefaultHorizonMonths = 7
)

// placeholderPhrases are feed summaries that carry no guest identity,
// stored folded.
var placeholderPhrases = []string{
	"booking",
	"guest",
	"airbnb",
	"airbnb booking",
	"airbnb guest",
	"reserved",
	"not available",
	"airbnb (not available)",
	"blocked",
	"unavailable",
}

// Policy holds the admission rules for feed bookings. It has no state
// beyond its configuration and all methods are pure.
type Policy struct {
	MinNights     int
	MaxNights     int
	HorizonMonths int

	placeholders map[string]struct{}
}

// NewPolicy returns a policy with the given bounds. Extra placeholder
// phrases are added to the built-in set.
func NewPolicy(minNights, maxNights, horizonMonths int, extraPlaceholders ...string) Policy {
	p := Policy{
		MinNights:     minNights,
		MaxNights:     maxNights,
		HorizonMonths: horizonMonths,
		placeholders:  make(map[string]struct{}, len(placeholderPhrases)+len(extraPlaceholders)),
	}
	for _, phrase := range placeholderPhrases {
		p.placeholders[phrase] = struct{}{}
	}
	for _, phrase := range extraPlaceholders {
		if folded := normalize.Fold(phrase); folded != "" {
			p.placeholders[folded] = struct{}{}
		}
	}
	return p
}

// DefaultPolicy returns the 2..31 nights, 7 months ahead policy.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultMinNights, DefaultMaxNights, DefaultHorizonMonths)
}

// HasUsableGuestName reports whether summary names a real guest.
func (p Policy) HasUsableGuestName(summary string) bool {
	if strings.TrimSpace(summary) == "" {
		return false
	}
	folded := normalize.Fold(summary)
	if p.placeholders == nil {
		for _, phrase := range placeholderPhrases {
			if folded == phrase {
				return false
			}
		}
		return true
	}
	_, placeholder := p.placeholders[folded]
	return !placeholder
}

// NightsInRange reports whether the stay length lies within [MinNights, MaxNights].
func (p Policy) NightsInRange(start, end Date) bool {
	nights := start.DaysUntil(end)
	return nights >= p.MinNights && nights <= p.MaxNights
}

// WithinHorizon reports whether start is no later than HorizonMonths after today.
// The cutoff day itself is admitted.
func (p Policy) WithinHorizon(start, today Date) bool {
	return !start.After(today.AddMonths(p.HorizonMonths))
}

// Evaluate applies the rules in order and returns the first reason a booking is refused.
func (p Policy) Evaluate(b ExternalBooking, today Date) (SkipReason, bool) {
	if !p.HasUsableGuestName(b.Summary) {
		return SkipNoGuestName, false
	}
	if !p.NightsInRange(b.Start, b.End) {
		if b.Nights() < p.MinNights {
			return SkipTooShort, false
		}
		return SkipTooLong, false
	}
	if !p.WithinHorizon(b.Start, today) {
		return SkipBeyondHorizon, false
	}
	return "", true
}
