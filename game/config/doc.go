// Package config provides server configuration for the pairing broker.
//
// The config package handles:
//   - Built-in defaults for every setting
//   - Loading overrides from a TOML file
//   - Validation of the merged result
//
// Configuration Format:
//
// Only keys present in the file override defaults:
//
//	host = "0.0.0.0"
//	port = 3000
//	static_dir = "public"
//	send_buffer = 256
//	max_message_size = 512
//	write_wait = "10s"
//	pong_wait = "60s"
//	allowed_origins = ["https://example.com"]
//
//	[ngrok]
//	enabled = true
//	domain = "broker.ngrok.app"
//
// Environment variables and command-line flags are applied on top of the file
// by the caller.
//
// Usage:
//
//	cfg, err := config.Load("pairbroker.toml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config
