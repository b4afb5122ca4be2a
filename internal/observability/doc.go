// Package observability builds the zap loggers used across the service.
//
// JSON output is the default for deployed environments; text output uses the
// zap console encoder for local development. Secrets are never logged by the
// callers, only key names and lengths.
package observability
