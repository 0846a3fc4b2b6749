// Package integrity audits the reservation store and its surroundings.
//
// Sync and manual operations tolerate bad data: a malformed row is kept and
// an overlapping legacy pair is left alone. This package surfaces those
// problems so they can be fixed by hand.
//
// # Checks Provided
//
//   - Reservations: malformed rows, overlapping stays in one cabin, cabins that are not configured, duplicate IDs and rows without a source tag.
//   - Schema: the reservations table against the GORM model (missing columns, explicit types).
//   - Calendar: the calendar object published to object storage.
//   - Feeds: configured cabins that have no feed URL.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/reservations : Reservation audit (supports ?fix=true to persist source tags).
//   - GET /integrity/schema : Schema check (supports ?fix=true to migrate).
//   - GET /integrity/calendar : Published calendar check.
//   - GET /integrity/feeds : Cabins without a feed.
package integrity
