// Package logger provides zerolog constructors shared by feedboard binaries.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New constructs a JSON logger writing to stdout. The role label tells apart
// log lines from the different long-running components (api, outbox, relay).
func New(role string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Str("role", role).
		Timestamp().
		Logger()
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
