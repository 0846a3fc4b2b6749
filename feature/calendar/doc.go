// Package calendar exports reservations as an iCalendar subscription feed.
//
// Render turns the well-formed reservations of a set into all-day VEVENTs
// with stable UIDs, so calendar clients update events in place instead of
// duplicating them. The Service renders from a Source (the reservation
// service) and fans the document out to Publishers:
//
//   - storage: uploads to an object storage bucket (core/storage).
//   - file: writes one or more local paths atomically.
//   - git: commits the file to a pages checkout and pushes it.
//
// OnCommit is registered as a reservation hook; it republishes in the
// background after each committed change. Call Wait before exiting.
package calendar
