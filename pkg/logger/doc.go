// Package logger builds the application's slog logger: JSON records in
// production, text everywhere else, each tagged with the environment.
package logger
