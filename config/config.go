// Package config resolves the wrapper's own options from the command line
// and an optional YAML defaults file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Separator ends the wrapper's own options. Everything after it is forwarded
// to the compilers untouched.
const Separator = "--"

// DefaultCompiler is the real compiler run when no "cc" key is given.
const DefaultCompiler = "gcc"

// EnvConfigFile names an explicit YAML defaults file.
const EnvConfigFile = "CC_WRAPPER_CONFIG"

// defaultsFile is looked up in the XDG config directories.
const defaultsFile = "cc_wrapper/config.yaml"

// Option keys.
const (
	KeyDBFile        = "dbf"
	KeyClang         = "clang"
	KeyClangAppend   = "cla"
	KeyClangDrop     = "cld"
	KeyDebug         = "debug"
	KeyLLVMLink      = "llink"
	KeyLLVMDis       = "lldis"
	KeyNoOptOverride = "noo"
	KeyCompiler      = "cc"
	KeyLogFile       = "log"
)

// Config is the resolved wrapper configuration. Missing keys leave the
// zero value in place.
type Config struct {
	DBFile        string
	Clang         string
	ClangAppend   []string
	ClangDrop     []string
	Debug         bool
	LLVMLink      string
	LLVMDis       string
	NoOptOverride bool
	Compiler      string
	LogFile       string
}

// Split separates the wrapper's key=value options from the forwarded
// compiler arguments. Keys may carry any number of leading
// non-alphanumeric characters ("--dbf=x", "-dbf=x"). Options without "="
// are ignored, as is a key that is empty after trimming.
func Split(args []string) (map[string]string, []string) {
	opts := make(map[string]string)
	for i, arg := range args {
		if arg == Separator {
			forwarded := make([]string, len(args)-i-1)
			copy(forwarded, args[i+1:])
			return opts, forwarded
		}
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		key = strings.TrimLeftFunc(key, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if key == "" {
			continue
		}
		opts[key] = value
	}
	return opts, nil
}

// FromMap builds a Config from raw options. Unknown keys are ignored.
func FromMap(opts map[string]string) Config {
	cfg := Config{
		DBFile:        opts[KeyDBFile],
		Clang:         opts[KeyClang],
		ClangAppend:   SplitList(opts[KeyClangAppend]),
		ClangDrop:     SplitList(opts[KeyClangDrop]),
		Debug:         opts[KeyDebug] == "2",
		LLVMLink:      opts[KeyLLVMLink],
		LLVMDis:       opts[KeyLLVMDis],
		NoOptOverride: opts[KeyNoOptOverride] == "1",
		Compiler:      opts[KeyCompiler],
		LogFile:       opts[KeyLogFile],
	}
	if cfg.Compiler == "" {
		cfg.Compiler = DefaultCompiler
	}
	return cfg
}

// SplitList splits a comma separated list. An empty string is an empty list.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Resolve turns the wrapper's arguments (without the program name) into a
// Config and the forwarded compiler arguments. Values from the defaults
// file are overridden by the command line. A broken defaults file is
// reported through the returned error; the Config is usable regardless.
func Resolve(args []string) (Config, []string, error) {
	opts, forwarded := Split(args)

	var fileErr error
	if path, ok := DefaultsPath(); ok {
		defaults, err := LoadDefaults(path)
		if err != nil {
			fileErr = err
		}
		for k, v := range defaults {
			if _, set := opts[k]; !set {
				opts[k] = v
			}
		}
	}
	return FromMap(opts), forwarded, fileErr
}

// DefaultsPath returns the defaults file to read, if any.
func DefaultsPath() (string, bool) {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path, true
	}
	path, err := xdg.SearchConfigFile(defaultsFile)
	if err != nil {
		return "", false
	}
	return path, true
}

// LoadDefaults reads a flat YAML mapping of option keys to values. A file
// that does not exist yields no defaults and no error.
func LoadDefaults(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read defaults %s: %w", path, err)
	}
	defaults := make(map[string]string)
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	return defaults, nil
}
