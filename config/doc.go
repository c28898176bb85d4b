// Package config loads the gate configuration from a YAML file and
// environment variables (SERVER_ADDRESS overrides server.address, and so on)
// and validates it. Inline rules under rules.static use the same schema as
// rule files.
package config
