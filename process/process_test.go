//go:build unix

package process

import (
	"bytes"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	tests := []struct {
		name    string
		program string
		args    []string
		wantErr bool
	}{
		{name: "exit zero", program: "sh", args: []string{"-c", "exit 0"}},
		{name: "non-zero exit", program: "sh", args: []string{"-c", "exit 3"}, wantErr: true},
		{name: "killed by signal", program: "sh", args: []string{"-c", "kill -9 $$"}, wantErr: true},
		{name: "spawn failure", program: "/nonexistent/cc_wrapper-test-binary", wantErr: true},
		{name: "empty program", program: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Exec{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
			err := r.Run(tt.program, tt.args)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.program, perr.Program)
		})
	}
}

func TestExecRunStreams(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	var stdout, stderr bytes.Buffer
	r := &Exec{Stdin: bytes.NewBufferString("in"), Stdout: &stdout, Stderr: &stderr}

	err := r.Run("sh", []string{"-c", "cat; echo err >&2"})
	require.NoError(t, err)
	assert.Equal(t, "in", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestExecRunDir(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	var stdout bytes.Buffer
	r := &Exec{Stdout: &stdout, Stderr: &bytes.Buffer{}, Dir: dir}

	require.NoError(t, r.Run("sh", []string{"-c", "touch marker && ls"}))
	assert.Equal(t, "marker\n", stdout.String())
}
