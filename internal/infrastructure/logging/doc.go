// Package logging provides structured logging for Hearth.
//
// It wraps log/slog so every component emits the same shape of record:
// JSON in production, text during development, with service and version
// attached to every entry.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log bearer tokens, MQTT passwords, or the InfluxDB token.
package logging
