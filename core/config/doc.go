// Package config provides configuration management for the cabin manager.
//
// It utilizes Viper for loading configuration from environment variables,
// an optional config.yaml and a .env file. Defaults come from the `default`
// struct tags of each partial configuration.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, timezone
//   - Database: driver (sqlite or mysql) and connection details
//   - Storage: S3/MinIO credentials for calendar publishing
//   - Log: level and format
//   - Sync: cabins, feed URLs, policy bounds and schedule
//   - Feed: fetch timeout, concurrency and conditional GET cache
//   - Reservation: nightly rate, currency, store selection
//   - Calendar: publishers and their targets
//
// Nested keys map to environment variables by replacing dots with
// underscores, so sync.feeds is read from SYNC_FEEDS.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
