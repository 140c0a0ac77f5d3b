// Package database records produced LLVM IR files in the line-oriented
// database shared by all wrapper processes of a build.
//
// Each line is "<kind>:<absolute path>", where kind is "o" for files that
// take the place of a compiled object and "f" for IR produced by linking.
package database

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Kind tags a record.
type Kind byte

const (
	// KindObject marks IR emitted by the compiler in place of an object file.
	KindObject Kind = 'o'
	// KindIR marks an intermediate IR file produced by the IR linker.
	KindIR Kind = 'f'
)

func (k Kind) String() string { return string(rune(k)) }

func (k Kind) valid() bool { return k == KindObject || k == KindIR }

// Record is a single database entry.
type Record struct {
	Kind Kind
	Path string
}

// String returns the record as it appears in the database, without the
// trailing newline.
func (r Record) String() string {
	return r.Kind.String() + ":" + r.Path
}

// Sink accepts records produced by one wrapper run. Append returns how many
// records were kept.
type Sink interface {
	Append(records []Record) (int, error)
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// File appends records to a database file on disk.
type File struct {
	Path string
	// Exists filters records before writing. Defaults to the package Exists.
	Exists func(string) bool
}

// NewFile returns a sink appending to the database at path.
func NewFile(path string) *File {
	return &File{Path: path, Exists: Exists}
}

// Append opens the database for appending, creating it if needed, and
// writes every record whose file exists. Each line goes out in a single
// write so concurrent appenders never interleave partial lines; the batch
// is additionally held under an advisory lock where the platform has one.
func (f *File) Append(records []Record) (int, error) {
	db, err := os.OpenFile(f.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("cannot open DB file for append: %w", err)
	}
	defer db.Close()

	unlock := lock(db)
	defer unlock()

	exists := f.Exists
	if exists == nil {
		exists = Exists
	}

	written := 0
	for _, r := range records {
		if !exists(r.Path) {
			continue
		}
		if _, err := db.Write([]byte(r.String() + "\n")); err != nil {
			return written, fmt.Errorf("write %s: %w", f.Path, err)
		}
		written++
	}
	return written, nil
}

// Memory is an in-memory Sink.
type Memory struct {
	// Exists filters records; nil keeps everything.
	Exists func(string) bool

	mu      sync.Mutex
	records []Record
}

// Append implements Sink.
func (m *Memory) Append(records []Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range records {
		if m.Exists != nil && !m.Exists(r.Path) {
			continue
		}
		m.records = append(m.records, r)
		n++
	}
	return n, nil
}

// Records returns a copy of everything appended so far.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// ParseError describes a malformed database line.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: malformed record %q", e.Line, e.Text)
}

// ParseRecord parses one database line.
func ParseRecord(line string) (Record, bool) {
	if len(line) < 3 || line[1] != ':' {
		return Record{}, false
	}
	r := Record{Kind: Kind(line[0]), Path: line[2:]}
	if !r.Kind.valid() {
		return Record{}, false
	}
	return r, true
}

// Read parses a database. Blank lines are skipped. Reading stops at the
// first malformed line, which is returned as a *ParseError along with the
// records read before it.
func Read(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}
		rec, ok := ParseRecord(text)
		if !ok {
			return records, &ParseError{Line: line, Text: text}
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, err
	}
	return records, nil
}

// ReadFile parses the database at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Unique drops repeated records, keeping the first occurrence.
func Unique(records []Record) []Record {
	seen := make(map[Record]bool, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
