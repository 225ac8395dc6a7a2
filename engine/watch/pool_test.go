package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// writeFile creates a file under dir with the given modification time.
func writeFile(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("@fragment fn fs_main() {}"), 0o644))
	touch(t, path, mod)
	return path
}

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestFirstPollRecordsBaselineSilently(t *testing.T) {
	dir := t.TempDir()
	p := NewPool()
	p.Watch(writeFile(t, dir, "a.wgsl", epoch))
	p.Watch(writeFile(t, dir, "b.wgsl", epoch))

	assert.Empty(t, p.Poll())
	assert.Empty(t, p.Poll(), "unchanged files never report")
}

func TestSingleChangeReportsOnce(t *testing.T) {
	dir := t.TempDir()
	p := NewPool()
	a := p.Watch(writeFile(t, dir, "a.wgsl", epoch))
	path := writeFile(t, dir, "b.wgsl", epoch)
	b := p.Watch(path)
	require.Empty(t, p.Poll())

	touch(t, path, epoch.Add(time.Second))

	reports := p.Poll()
	require.Len(t, reports, 1)
	assert.Equal(t, ChangeReport{ID: b, Path: path, Kind: Modified}, reports[0])
	assert.NotEqual(t, a, reports[0].ID)
	assert.Empty(t, p.Poll(), "baseline moved to the new time")
}

func TestOlderModTimeStillReports(t *testing.T) {
	dir := t.TempDir()
	p := NewPool()
	path := writeFile(t, dir, "a.wgsl", epoch)
	id := p.Watch(path)
	require.Empty(t, p.Poll())

	touch(t, path, epoch.Add(-time.Hour))
	reports := p.Poll()
	require.Len(t, reports, 1)
	assert.Equal(t, id, reports[0].ID)
}

func TestReportsInIDOrder(t *testing.T) {
	dir := t.TempDir()
	p := newPool(WithWorkerPool(4))
	t.Cleanup(p.close)

	var paths []string
	var ids []int
	for _, name := range []string{"d.wgsl", "c.wgsl", "b.wgsl", "a.wgsl", "e.wgsl", "f.wgsl"} {
		path := writeFile(t, dir, name, epoch)
		paths = append(paths, path)
		ids = append(ids, p.Watch(path))
	}
	require.Empty(t, p.Poll())

	for _, path := range paths {
		touch(t, path, epoch.Add(time.Minute))
	}
	reports := p.Poll()
	require.Len(t, reports, len(ids))
	for i, r := range reports {
		assert.Equal(t, ids[i], r.ID)
		assert.Equal(t, paths[i], r.Path)
	}
}

func TestStatFailureKeepsBaseline(t *testing.T) {
	dir := t.TempDir()
	p := NewPool()
	path := writeFile(t, dir, "a.wgsl", epoch)
	p.Watch(path)
	require.Empty(t, p.Poll())

	require.NoError(t, os.Remove(path))
	assert.Empty(t, p.Poll(), "missing file does not report")

	writeFile(t, dir, "a.wgsl", epoch)
	assert.Empty(t, p.Poll(), "restored with the same time")

	touch(t, path, epoch.Add(time.Second))
	assert.Len(t, p.Poll(), 1)
}

func TestMissingFileGetsBaselineWhenItAppears(t *testing.T) {
	dir := t.TempDir()
	p := NewPool()
	path := filepath.Join(dir, "later.wgsl")
	p.Watch(path)

	assert.Empty(t, p.Poll())
	writeFile(t, dir, "later.wgsl", epoch)
	assert.Empty(t, p.Poll(), "first successful stat is the baseline")
	touch(t, path, epoch.Add(time.Second))
	assert.Len(t, p.Poll(), 1)
}

func TestUnwatch(t *testing.T) {
	dir := t.TempDir()
	p := NewPool()
	path := writeFile(t, dir, "a.wgsl", epoch)
	id := p.Watch(path)
	require.Equal(t, 1, p.Len())

	got, ok := p.Path(id)
	assert.True(t, ok)
	assert.Equal(t, path, got)

	p.Unwatch(id + 100)
	assert.Equal(t, 1, p.Len(), "unknown id is ignored")

	p.Unwatch(id)
	assert.Equal(t, 0, p.Len())
	_, ok = p.Path(id)
	assert.False(t, ok)
	assert.Empty(t, p.Poll())

	assert.NotEqual(t, id, p.Watch(path), "ids are not reused")
}

func TestWorkerPoolStatsConcurrently(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	stat := func(path string) (time.Time, error) {
		mu.Lock()
		defer mu.Unlock()
		seen[path]++
		if path == "missing" {
			return time.Time{}, errors.New("not found")
		}
		return epoch.Add(time.Duration(seen[path]) * time.Second), nil
	}

	p := newPool(WithWorkerPool(3), WithStatFunc(stat))
	t.Cleanup(p.close)
	for _, path := range []string{"a", "b", "missing", "c"} {
		p.Watch(path)
	}

	assert.Empty(t, p.Poll())
	reports := p.Poll()
	require.Len(t, reports, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{reports[0].Path, reports[1].Path, reports[2].Path})
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "missing": 2, "c": 2}, seen)
}
