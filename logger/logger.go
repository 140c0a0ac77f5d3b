package logger

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Log is the wrapper's process-wide logger. Until Setup is called it writes
// warnings and errors to stderr.
var Log = New(os.Stderr, false)

// Options selects where the wrapper logs and how much.
type Options struct {
	// Debug enables debug-level output.
	Debug bool
	// File, if set, receives the log instead of stderr.
	File string
}

// New builds a console logger on w. Each logger carries its own run id so
// the lines of parallel wrapper processes can be told apart in a shared log.
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", "cc_wrapper").
		Str("run", uuid.NewString()).
		Logger()
}

// Setup replaces Log according to opts.
func Setup(opts Options) {
	var w io.Writer = os.Stderr
	if opts.File != "" {
		logFile, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			w = logFile
		}
	}
	Log = New(w, opts.Debug)
}

// TrackTime logs how long the named step took since start.
func TrackTime(start time.Time, name string) {
	Log.Debug().Dur("elapsed", time.Since(start)).Msgf("%s completed", name)
}
