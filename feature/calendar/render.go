package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cabin-manager/core/reconcile"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//Cabaña Reservations//EN"

// RenderOptions controls the generated document.
type RenderOptions struct {
	Name      string
	UIDDomain string
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// Render builds an iCalendar document with one all-day event per reservation.
func Render(exports []reconcile.Export, opts RenderOptions) []byte {
	domain := opts.UIDDomain
	if domain == "" {
		domain = "cabana.com"
	}
	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	used := make(map[string]int, len(exports))
	for _, e := range exports {
		base := eventUID(e, domain)
		uid := base
		if n := used[base]; n > 0 {
			// Same guest and check-in in two cabins.
			uid = strings.Replace(base, "@", "-"+strconv.Itoa(n+1)+"@", 1)
		}
		used[base]++

		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(e.CheckIn.Time())
		end := e.CheckOut
		if !e.CheckIn.Before(end) {
			// All-day DTEND must follow DTSTART.
			end = e.CheckIn.AddDays(1)
		}
		ev.SetAllDayEndAt(end.Time())
		ev.SetSummary(fmt.Sprintf("Reserva: %s - %s", e.GuestName, e.Resource))
		ev.SetDescription(description(e))
		ev.SetLocation(e.Resource + " - Cabaña")
		ev.SetStatus(ical.ObjectStatusConfirmed)
		ev.SetProperty(ical.ComponentPropertyTransp, "OPAQUE")
	}

	return []byte(cal.Serialize())
}

// eventUID is stable across renders so clients update events in place.
func eventUID(e reconcile.Export, domain string) string {
	guest := strings.ReplaceAll(strings.TrimSpace(e.GuestName), " ", "-")
	guest = strings.ReplaceAll(guest, ",", "")
	return fmt.Sprintf("reservation-%s-%s@%s", guest, e.CheckIn.Compact(), domain)
}

func description(e reconcile.Export) string {
	lines := []string{
		"Huésped: " + e.GuestName,
		"Cabaña: " + e.Resource,
		"Noches: " + strconv.Itoa(e.Nights),
		"Total: $" + amount(e.Pricing.Total),
		"Pagado: $" + amount(e.Pricing.Paid),
	}
	if e.Pricing.AltTotal != 0 {
		lines = append(lines, fmt.Sprintf("Total %s: %s", e.Pricing.AltCurrency, amount(e.Pricing.AltTotal)))
	}
	if p := strings.TrimSpace(e.Phone); p != "" {
		lines = append(lines, "Teléfono: "+p)
	}
	if n := strings.TrimSpace(e.Notes); n != "" {
		lines = append(lines, "Notas: "+n)
	}
	return strings.Join(lines, "\n")
}

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
