// Package process runs the real and shadow compilers as child processes.
package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner runs a program to completion. A nil error means the program
// exited normally with status 0.
type Runner interface {
	Run(program string, args []string) error
}

// Error reports a program that could not be started, was killed by a
// signal, or exited with a non-zero status.
type Error struct {
	Program string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Program, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Exec runs programs with os/exec. Nil streams default to the wrapper's
// own stdin, stdout and stderr, so the child talks to the build system
// directly.
type Exec struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Dir is the child's working directory; empty means the current one.
	Dir string
}

// Run starts program, searching PATH when it has no slash, and waits for it.
func (e *Exec) Run(program string, args []string) error {
	cmd := exec.Command(program, args...)
	cmd.Dir = e.Dir
	cmd.Stdin = orReader(e.Stdin, os.Stdin)
	cmd.Stdout = orWriter(e.Stdout, os.Stdout)
	cmd.Stderr = orWriter(e.Stderr, os.Stderr)
	if err := cmd.Run(); err != nil {
		return &Error{Program: program, Err: err}
	}
	return nil
}

func orReader(r, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

func orWriter(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
