package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("; ModuleID\n"), 0644))
	return path
}

func TestFileAppendKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	present := touch(t, filepath.Join(dir, "a.ll"))
	linked := touch(t, filepath.Join(dir, "app.llw"))
	missing := filepath.Join(dir, "b.ll")
	dbPath := filepath.Join(dir, "db")

	n, err := NewFile(dbPath).Append([]Record{
		{Kind: KindObject, Path: present},
		{Kind: KindObject, Path: missing},
		{Kind: KindIR, Path: linked},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "o:"+present+"\nf:"+linked+"\n", string(data))
}

func TestFileAppendAppends(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db")
	require.NoError(t, os.WriteFile(dbPath, []byte("o:/old/x.ll\n"), 0644))
	f := touch(t, filepath.Join(dir, "new.ll"))

	_, err := NewFile(dbPath).Append([]Record{{Kind: KindObject, Path: f}})
	require.NoError(t, err)

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "o:/old/x.ll\no:"+f+"\n", string(data))
}

func TestFileAppendCreatesEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")

	n, err := NewFile(dbPath).Append(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.FileExists(t, dbPath)
}

func TestFileAppendOpenFailure(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "no", "such", "dir", "db")

	n, err := NewFile(dbPath).Append([]Record{{Kind: KindObject, Path: "/"}})
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestFileAppendConcurrent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db")

	const writers = 16
	const perWriter = 20
	var want []string
	batches := make([][]Record, writers)
	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			// Long paths make torn lines visible if writes were split.
			name := fmt.Sprintf("w%02d-%02d-%s.ll", w, i, strings.Repeat("x", 200))
			path := touch(t, filepath.Join(dir, name))
			batches[w] = append(batches[w], Record{Kind: KindObject, Path: path})
			want = append(want, "o:"+path)
		}
		// One stale record per writer must be dropped.
		batches[w] = append(batches[w], Record{Kind: KindIR, Path: filepath.Join(dir, fmt.Sprintf("gone%d.llw", w))})
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(batch []Record) {
			defer wg.Done()
			n, err := NewFile(dbPath).Append(batch)
			assert.NoError(t, err)
			assert.Equal(t, perWriter, n)
		}(batches[w])
	}
	wg.Wait()

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"))
	got := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestMemory(t *testing.T) {
	m := &Memory{Exists: func(p string) bool { return p != "/missing.ll" }}

	n, err := m.Append([]Record{
		{Kind: KindObject, Path: "/a.ll"},
		{Kind: KindObject, Path: "/missing.ll"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []Record{{Kind: KindObject, Path: "/a.ll"}}, m.Records())
}

func TestRead(t *testing.T) {
	input := "o:/src/a.ll\n\nf:/src/app.llw\no:/src/a.ll\n"

	records, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Kind: KindObject, Path: "/src/a.ll"},
		{Kind: KindIR, Path: "/src/app.llw"},
		{Kind: KindObject, Path: "/src/a.ll"},
	}, records)

	assert.Equal(t, []Record{
		{Kind: KindObject, Path: "/src/a.ll"},
		{Kind: KindIR, Path: "/src/app.llw"},
	}, Unique(records))
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantRecs int
	}{
		{name: "unknown kind", input: "o:/a.ll\nx:/b.ll\n", wantLine: 2, wantRecs: 1},
		{name: "missing colon", input: "o/a.ll\n", wantLine: 1},
		{name: "empty path", input: "f:\n", wantLine: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Read(strings.NewReader(tt.input))
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.wantLine, perr.Line)
			assert.Len(t, records, tt.wantRecs)
		})
	}
}

func TestRecordString(t *testing.T) {
	assert.Equal(t, "o:/x/a.ll", Record{Kind: KindObject, Path: "/x/a.ll"}.String())
	assert.Equal(t, "f:/x/app.llw", Record{Kind: KindIR, Path: "/x/app.llw"}.String())
}
