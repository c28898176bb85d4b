// Package rulesource provides the places breaker rules can be read from.
// Every type here satisfies rulestore.Source.
//
//   - Empty: no rules; the breaker passes everything through.
//   - Static: a fixed list, used for demos and inline configuration.
//   - File: a YAML, JSON or TOML file with a top-level "rules" list.
//   - HTTP: a URL answering GET with a JSON rule list.
//   - Redis: a JSON rule list stored under a key, optionally per host.
package rulesource
