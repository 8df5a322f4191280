// Package config loads and validates the aggregator configuration from
// a YAML file with environment variable overrides (prefix INV_).
//
// Secrets (the OAuth client secret) are accepted from the environment
// only; they are never read from or written to the config file.
package config
