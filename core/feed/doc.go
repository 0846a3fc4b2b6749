// Package feed downloads and parses the per-cabin iCal exports.
//
// Fetcher implements reconcile.FeedSource. Requests are paced with a token
// bucket and made conditional with ETag/Last-Modified validators kept in a
// Cache (disk or redis). A 304 reuses the cached body; any other non-2xx
// status or network error is a failure, never a silent fallback to cached
// data, so the engine keeps the cabin's reservations untouched.
//
// Parse keeps only the day part of DTSTART/DTEND and skips events whose
// dates cannot be read.
package feed
