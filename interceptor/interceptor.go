// Package interceptor derives the shadow LLVM IR build step from a C
// compiler command line.
//
// Given the arguments a build system passed to the C compiler, Classify
// decides whether the step compiles, links, or should be left alone,
// rewrites object names to their IR counterparts, picks between clang and
// llvm-link, and lists the IR files the step is expected to produce.
package interceptor

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/Bal0sk/diffkemp/config"
	"github.com/Bal0sk/diffkemp/database"
)

// File suffixes the classifier recognizes.
const (
	SuffixIR      = ".ll"
	SuffixIRWhole = ".llw"
	SuffixSource  = ".c"
)

var objectSuffixes = []string{".o", ".lo", ".ko"}

// Tool is the shadow program chosen for a step.
type Tool int

const (
	// ToolCompiler is the IR-emitting compiler (clang).
	ToolCompiler Tool = iota
	// ToolLinker is the IR linker (llvm-link).
	ToolLinker
)

func (t Tool) String() string {
	if t == ToolLinker {
		return "linker"
	}
	return "compiler"
}

// SkipReason explains why no shadow step runs. The empty reason means the
// step runs.
type SkipReason string

const (
	SkipNone     SkipReason = ""
	SkipNotIR    SkipReason = "output is neither .ll nor .llw"
	SkipConftest SkipReason = "conftest probe"
	SkipNoSource SkipReason = "compiling without C sources"
)

// Options carries the parts of the wrapper configuration the classifier
// needs.
type Options struct {
	Clang         string
	LLVMLink      string
	Append        []string
	Drop          []string
	NoOptOverride bool
	// Dir is the working directory records are resolved against.
	Dir string
	// Exists decides which llvm-link inputs are kept. Defaults to
	// database.Exists.
	Exists func(string) bool
}

// OptionsFromConfig builds classifier options for a step run in dir.
func OptionsFromConfig(cfg config.Config, dir string) Options {
	return Options{
		Clang:         cfg.Clang,
		LLVMLink:      cfg.LLVMLink,
		Append:        cfg.ClangAppend,
		Drop:          cfg.ClangDrop,
		NoOptOverride: cfg.NoOptOverride,
		Dir:           dir,
		Exists:        database.Exists,
	}
}

// Result is the shadow step derived from one compiler invocation.
type Result struct {
	// Skip is set when no shadow step should run.
	Skip SkipReason
	Tool Tool
	// Binary is the configured path of Tool.
	Binary string
	// Args is the final argument vector for Binary.
	Args []string
	// Linking is false when the invocation carries -c.
	Linking bool
	// OutputFile is the rewritten value following -o, if any.
	OutputFile string
	// Records lists the IR files the shadow step should produce.
	Records []database.Record
}

// Run reports whether the shadow step should run.
func (r Result) Run() bool { return r.Skip == SkipNone }

// state is threaded through the single pass over the arguments.
type state struct {
	linking            bool
	containsSource     bool
	linkingWithSources bool
	outputFile         string
	tool               Tool
	args               []string
}

// Classify inspects the forwarded compiler arguments and derives the shadow
// step. It does not modify args and, apart from the llvm-link input check,
// does not touch the filesystem.
func Classify(args []string, opts Options) Result {
	exists := opts.Exists
	if exists == nil {
		exists = database.Exists
	}

	kept := make([]bool, len(args))
	var forwarded []string
	for i, arg := range args {
		if slices.Contains(opts.Drop, arg) {
			continue
		}
		kept[i] = true
		forwarded = append(forwarded, arg)
	}

	st := state{
		linking: !slices.Contains(forwarded, "-c"),
		tool:    ToolCompiler,
	}

	for i, arg := range args {
		if !kept[i] {
			continue
		}

		isObject := hasObjectSuffix(arg)
		isSource := strings.HasSuffix(arg, SuffixSource)
		st.containsSource = st.containsSource || isSource

		switch {
		case i > 0 && args[i-1] == "-o":
			if isObject && !st.linking {
				// Compiling to an object file: emit IR in its place.
				arg = replaceSuffix(arg, SuffixIR)
			}
			if !isObject && st.linking {
				arg += SuffixIRWhole
			}
			st.outputFile = arg
		case isObject && st.linking:
			// Object input to a link: llvm-link takes its IR instead.
			arg = replaceSuffix(arg, SuffixIR)
			st.tool = ToolLinker
		case isSource && st.linking:
			st.linkingWithSources = true
		}
		st.args = append(st.args, arg)
	}

	if st.linkingWithSources && st.tool == ToolLinker {
		// Compiling and linking in one step: clang cannot take the IR of
		// the objects, so fall back to compiling the sources only.
		st.tool = ToolCompiler
		st.args = slices.DeleteFunc(st.args, func(a string) bool {
			return strings.HasSuffix(a, SuffixIR)
		})
	}

	res := Result{
		Tool:       st.tool,
		Linking:    st.linking,
		OutputFile: st.outputFile,
	}
	if res.Skip = skipReason(st, forwarded); res.Skip != SkipNone {
		return res
	}

	res.Records = records(st, opts.Dir)
	if st.tool == ToolLinker {
		res.Binary = opts.LLVMLink
		res.Args = linkerArgs(st.args, exists)
	} else {
		res.Binary = opts.Clang
		res.Args = compilerArgs(st.args, opts)
	}
	return res
}

func skipReason(st state, forwarded []string) SkipReason {
	if st.outputFile != "" &&
		!strings.HasSuffix(st.outputFile, SuffixIR) &&
		!strings.HasSuffix(st.outputFile, SuffixIRWhole) {
		return SkipNotIR
	}
	if st.outputFile == "conftest"+SuffixIR ||
		st.outputFile == "conftest"+SuffixIRWhole ||
		slices.Contains(forwarded, "conftest"+SuffixSource) {
		return SkipConftest
	}
	if !st.linking && !st.containsSource {
		return SkipNoSource
	}
	return SkipNone
}

func records(st state, dir string) []database.Record {
	if st.outputFile != "" {
		kind := database.KindObject
		if st.tool == ToolLinker {
			kind = database.KindIR
		}
		return []database.Record{{Kind: kind, Path: resolve(dir, st.outputFile)}}
	}
	if st.linking {
		return nil
	}

	// No -o: mirror the compiler's default output naming.
	var recs []database.Record
	for _, arg := range st.args {
		if strings.HasSuffix(arg, SuffixSource) {
			continue
		}
		name := strings.TrimSuffix(arg, filepath.Ext(arg)) + SuffixIR
		recs = append(recs, database.Record{Kind: database.KindObject, Path: resolve(dir, name)})
	}
	return recs
}

// DefaultClangFlags returns the flags making clang emit debuggable textual
// IR. With optimize set, -O1 is forced while LLVM's own passes stay off.
func DefaultClangFlags(optimize bool) []string {
	flags := []string{"-S", "-emit-llvm", "-g", "-fdebug-macro", "-Wno-format-security"}
	if optimize {
		flags = append(flags, "-O1", "-Xclang", "-disable-llvm-passes")
	}
	return flags
}

func compilerArgs(args []string, opts Options) []string {
	out := make([]string, 0, len(args)+8+len(opts.Append))
	out = append(out, args...)
	// clang honors the last optimization level given, so the defaults go
	// before the user's extra flags.
	out = append(out, DefaultClangFlags(!opts.NoOptOverride)...)
	out = append(out, opts.Append...)
	return out
}

func linkerArgs(args []string, exists func(string) bool) []string {
	out := []string{"-S"}
	afterOutput := false
	for _, arg := range args {
		switch {
		case afterOutput:
			out = append(out, arg)
			afterOutput = false
		case arg == "-o":
			out = append(out, arg)
			afterOutput = true
		case strings.HasSuffix(arg, SuffixIR) || strings.HasSuffix(arg, SuffixIRWhole):
			// IR of objects built from assembly is never produced.
			if exists(arg) {
				out = append(out, arg)
			}
		}
	}
	return out
}

func hasObjectSuffix(arg string) bool {
	for _, s := range objectSuffixes {
		if strings.HasSuffix(arg, s) {
			return true
		}
	}
	return false
}

func replaceSuffix(name, suffix string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i] + suffix
	}
	return name + suffix
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

