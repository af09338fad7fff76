// Package dcmlog is the toolkit's package-level logging seam: a single
// zerolog.Logger that embedding applications may reconfigure, following
// the teacher's pattern of a package-global logger set once at startup
// and read thereafter.
package dcmlog

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var current atomic.Value // holds zerolog.Logger

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger().
		Level(zerolog.WarnLevel)
	current.Store(l)
}

// Logger returns the active logger. Safe for concurrent use.
func Logger() zerolog.Logger {
	return current.Load().(zerolog.Logger)
}

// SetLogger replaces the active logger. Applications call this once
// during startup to redirect or re-level library diagnostics; library
// code itself never calls this.
func SetLogger(l zerolog.Logger) {
	current.Store(l)
}

// Debug is shorthand for Logger().Debug().
func Debug() *zerolog.Event { return Logger().Debug() }

// Warn is shorthand for Logger().Warn().
func Warn() *zerolog.Event { return Logger().Warn() }

// Error is shorthand for Logger().Error().
func Error() *zerolog.Event { return Logger().Error() }
