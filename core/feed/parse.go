package feed

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"cabin-manager/core/reconcile"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"
)

// Parse reads the VEVENTs of an iCal payload as bookings of resource.
//
// Only the day part of DTSTART/DTEND is kept, whether the feed uses DATE or
// DATE-TIME values. An event without DTEND lasts one day. Events whose
// dates cannot be read are logged and skipped; the rest of the feed is kept.
func Parse(resource string, body []byte, logger *zap.Logger) ([]reconcile.ExternalBooking, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty iCal body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse iCal: %w", err)
	}

	bookings := make([]reconcile.ExternalBooking, 0)
	for _, ev := range cal.Events() {
		b, err := parseEvent(resource, ev)
		if err != nil {
			if logger != nil {
				logger.Warn("Skipping unreadable feed event", zap.String("cabin", resource), zap.Error(err))
			}
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func parseEvent(resource string, ev *ical.VEvent) (reconcile.ExternalBooking, error) {
	startProp := ev.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || startProp.Value == "" {
		return reconcile.ExternalBooking{}, errors.New("missing DTSTART")
	}
	start, err := parseICSDate(startProp.Value)
	if err != nil {
		return reconcile.ExternalBooking{}, fmt.Errorf("DTSTART: %w", err)
	}

	end := start.AddDays(1)
	if endProp := ev.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil && endProp.Value != "" {
		if end, err = parseICSDate(endProp.Value); err != nil {
			return reconcile.ExternalBooking{}, fmt.Errorf("DTEND: %w", err)
		}
	}

	summary := ""
	if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = strings.TrimSpace(p.Value)
	}

	return reconcile.ExternalBooking{
		Resource: resource,
		Start:    start,
		End:      end,
		Summary:  summary,
	}, nil
}

// parseICSDate reads the YYYYMMDD prefix of a DATE or DATE-TIME value.
func parseICSDate(v string) (reconcile.Date, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return reconcile.Date{}, fmt.Errorf("invalid date value %q", v)
	}
	return reconcile.ParseDate(v[:8])
}
