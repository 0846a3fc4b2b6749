// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber app; this package defines the port,
// API key, read timeout and the timezone cron schedules run in.
//
// # Usage
//
// This package is embedded by core/config and read by cmd/start.go.
package server
