// Package wrapper runs one intercepted compiler invocation: the real build
// step first, then its LLVM IR shadow, then the database update.
package wrapper

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/Bal0sk/diffkemp/config"
	"github.com/Bal0sk/diffkemp/database"
	"github.com/Bal0sk/diffkemp/interceptor"
	"github.com/Bal0sk/diffkemp/logger"
	"github.com/Bal0sk/diffkemp/process"
)

// Exit codes of the wrapper.
const (
	ExitOK = 0
	// ExitBuildFailed is returned only when the real compiler fails.
	ExitBuildFailed = 1
)

// Wrapper holds the collaborators of a run. The zero value is not usable;
// use New.
type Wrapper struct {
	Runner process.Runner
	// OpenSink returns the database for the configured path.
	OpenSink func(path string) database.Sink
	// Stdout receives the debug echo of the shadow command.
	Stdout io.Writer
	Getwd  func() (string, error)
	Exists func(string) bool
	// SetupLog configures logging once the configuration is known.
	SetupLog func(logger.Options)
}

// New returns a Wrapper that runs real processes and appends to the
// database file on disk.
func New() *Wrapper {
	return &Wrapper{
		Runner: &process.Exec{},
		OpenSink: func(path string) database.Sink {
			return database.NewFile(path)
		},
		Stdout:   os.Stdout,
		Getwd:    os.Getwd,
		Exists:   database.Exists,
		SetupLog: logger.Setup,
	}
}

// Run handles one invocation. args are the process arguments without the
// program name: wrapper options, the "--" separator, then the compiler
// arguments. The returned value is the process exit code.
func (w *Wrapper) Run(args []string) int {
	defer logger.TrackTime(time.Now(), "cc_wrapper")

	cfg, forwarded, cfgErr := config.Resolve(args)
	if w.SetupLog != nil {
		w.SetupLog(logger.Options{Debug: cfg.Debug, File: cfg.LogFile})
	}
	log := &logger.Log
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("ignoring defaults file")
	}
	log.Debug().Strs("args", forwarded).Str("compiler", cfg.Compiler).Msg("original command intercepted")

	if err := w.Runner.Run(cfg.Compiler, forwarded); err != nil {
		log.Warn().Err(err).Msg("original build command failed")
		return ExitBuildFailed
	}

	dir, err := w.Getwd()
	if err != nil {
		log.Warn().Err(err).Msg("cannot determine working directory, skipping LLVM IR build")
		return ExitOK
	}

	opts := interceptor.OptionsFromConfig(cfg, dir)
	opts.Exists = w.Exists
	res := interceptor.Classify(forwarded, opts)
	if !res.Run() {
		log.Debug().Str("reason", string(res.Skip)).Msg("no LLVM IR build step")
		return ExitOK
	}

	if cfg.Debug {
		cmdline := shellquote.Join(append([]string{res.Binary}, res.Args...)...)
		fmt.Fprintf(w.Stdout, "Wrapper calling: %s\n", cmdline)
	}

	if err := w.Runner.Run(res.Binary, res.Args); err != nil {
		log.Warn().Err(err).Stringer("tool", res.Tool).Msg("clang failed")
		return ExitOK
	}

	n, err := w.OpenSink(cfg.DBFile).Append(res.Records)
	if err != nil {
		log.Warn().Err(err).Str("db", cfg.DBFile).Msg("cannot record LLVM IR files")
		return ExitOK
	}
	log.Debug().Int("recorded", n).Int("derived", len(res.Records)).Msg("database updated")
	return ExitOK
}
