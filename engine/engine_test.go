package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/Carmen-Shannon/retort/engine/gpu"
	"github.com/Carmen-Shannon/retort/engine/gpu/gputest"
	"github.com/Carmen-Shannon/retort/engine/renderer"
	"github.com/Carmen-Shannon/retort/engine/renderer/shader"
	"github.com/Carmen-Shannon/retort/engine/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redShader = `//@retort:include vertex_output

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

const blueShader = `//@retort:include vertex_output

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(0.0, 0.0, input.uv.y, 1.0);
}
`

const brokenShader = `//@retort:include vertex_output

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 1.0, 1.0)
`

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeWindow struct {
	polls     int
	closeAt   int
	titles    []string
	onKeyDown func(uint32)
	pending   []uint32
}

func (w *fakeWindow) PollEvents() {
	w.polls++
	for _, k := range w.pending {
		w.onKeyDown(k)
	}
	w.pending = nil
}

func (w *fakeWindow) IsRunning() bool {
	return w.closeAt == 0 || w.polls < w.closeAt
}

func (w *fakeWindow) SetTitle(title string) {
	w.titles = append(w.titles, title)
}

func (w *fakeWindow) SetKeyDownCallback(callback func(uint32)) {
	w.onKeyDown = callback
}

type harness struct {
	engine  Engine
	device  *gputest.Device
	window  *fakeWindow
	watcher watch.Watcher
	path    string
	mod     time.Time
}

func newHarness(t *testing.T, initial string) *harness {
	t.Helper()
	prev := gpu.SetFatalHandler(func(err error) { panic(err) })
	t.Cleanup(func() { gpu.SetFatalHandler(prev) })

	device := gputest.New(3)
	r, err := renderer.NewRenderer(device, shader.NewCompiler())
	require.NoError(t, err)

	h := &harness{
		device:  device,
		window:  &fakeWindow{},
		watcher: watch.NewWatcher(watch.NewQueue(), watch.WithInterval(time.Hour), watch.WithNotify(false)),
		path:    filepath.Join(t.TempDir(), "preview.wgsl"),
		mod:     epoch,
	}
	h.write(t, initial)

	h.engine, err = NewEngine(h.window, r, WithWatcher(h.watcher))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.engine.Close() })
	return h
}

// write replaces the shader file and moves its modification time forward.
func (h *harness) write(t *testing.T, source string) {
	t.Helper()
	require.NoError(t, os.WriteFile(h.path, []byte(source), 0o644))
	h.mod = h.mod.Add(time.Second)
	require.NoError(t, os.Chtimes(h.path, h.mod, h.mod))
}

// edit writes source and waits until the watcher has queued the change.
func (h *harness) edit(t *testing.T, source string) {
	t.Helper()
	h.write(t, source)
	require.NoError(t, h.watcher.Sync())
	require.Equal(t, 1, h.watcher.Queue().Len())
}

func (h *harness) tick(t *testing.T, n int) {
	t.Helper()
	for range n {
		require.NoError(t, h.engine.Tick())
	}
}

func (h *harness) lastPipeline() gpu.Handle {
	return h.device.Submissions[len(h.device.Submissions)-1].Pipeline
}

func TestHotReloadValidEdit(t *testing.T) {
	h := newHarness(t, redShader)
	require.NoError(t, h.engine.Open(h.path))
	assert.Equal(t, h.path, h.engine.Renderer().FragmentFilename())
	h.tick(t, 3)
	red := h.lastPipeline()

	h.edit(t, blueShader)
	h.tick(t, 1)

	blue := h.engine.Renderer().Pipeline().Handle()
	assert.NotEqual(t, red, blue)
	assert.Equal(t, blue, h.lastPipeline(), "the reloading frame already draws with the new pipeline")
	assert.False(t, h.device.IsLive(red))
	assert.Empty(t, h.engine.Overlay().Entries())

	h.tick(t, renderer.MaxFramesInFlight)
	assert.Equal(t, 0, h.watcher.Queue().Len())
	assert.Empty(t, h.device.Violations)
}

func TestHotReloadInvalidEditKeepsPipeline(t *testing.T) {
	h := newHarness(t, redShader)
	require.NoError(t, h.engine.Open(h.path))
	h.tick(t, 2)
	red := h.engine.Renderer().Pipeline().Handle()
	live := h.device.LiveTotal()

	h.edit(t, brokenShader)
	h.tick(t, 3)

	assert.Equal(t, red, h.engine.Renderer().Pipeline().Handle())
	assert.Equal(t, red, h.lastPipeline())
	assert.Equal(t, live, h.device.LiveTotal())
	entries := h.engine.Overlay().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, h.path, entries[0].Filename)
	assert.Contains(t, entries[0].Message, h.path)
	assert.Contains(t, h.engine.Overlay().Status(), "1 errors")

	h.edit(t, blueShader)
	h.tick(t, 1)
	assert.NotEqual(t, red, h.lastPipeline(), "a fixed file is picked up")
	assert.Equal(t, h.path, h.engine.Overlay().Status())
	assert.Len(t, h.engine.Overlay().Entries(), 1)
	assert.Empty(t, h.device.Violations)
}

func TestOpenInvalidShaderStillWatches(t *testing.T) {
	h := newHarness(t, brokenShader)

	err := h.engine.Open(h.path)
	var ce *shader.CompilationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, shader.DefaultFragmentFilename, h.engine.Renderer().FragmentFilename())
	assert.Equal(t, h.path, h.engine.ActivePath())
	h.tick(t, 2)

	h.edit(t, redShader)
	h.tick(t, 1)
	assert.Equal(t, h.path, h.engine.Renderer().FragmentFilename())
}

func TestOpenReplacesWatchedFile(t *testing.T) {
	h := newHarness(t, redShader)
	require.NoError(t, h.engine.Open(h.path))

	other := filepath.Join(filepath.Dir(h.path), "other.wgsl")
	require.NoError(t, os.WriteFile(other, []byte(blueShader), 0o644))
	require.NoError(t, h.engine.Open(other))
	assert.Equal(t, other, h.engine.Renderer().FragmentFilename())
	handle := h.engine.Renderer().Pipeline().Handle()

	// the first file is no longer watched
	h.write(t, redShader)
	require.NoError(t, h.watcher.Sync())
	h.tick(t, 2)
	assert.Equal(t, handle, h.engine.Renderer().Pipeline().Handle())
	assert.Equal(t, 0, h.watcher.Queue().Len())
}

// refusingWatcher fails Watch once refuse is set.
type refusingWatcher struct {
	watch.Watcher
	refuse bool
}

func (w *refusingWatcher) Watch(path string) (int, error) {
	if w.refuse {
		return 0, errors.New("watch refused")
	}
	return w.Watcher.Watch(path)
}

func TestOpenWatchFailureForgetsPreviousFile(t *testing.T) {
	prev := gpu.SetFatalHandler(func(err error) { panic(err) })
	t.Cleanup(func() { gpu.SetFatalHandler(prev) })

	r, err := renderer.NewRenderer(gputest.New(3), shader.NewCompiler())
	require.NoError(t, err)
	window := &fakeWindow{}
	watcher := &refusingWatcher{Watcher: watch.NewWatcher(watch.NewQueue(), watch.WithInterval(time.Hour), watch.WithNotify(false))}
	e, err := NewEngine(window, r, WithWatcher(watcher))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	dir := t.TempDir()
	path := filepath.Join(dir, "preview.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(redShader), 0o644))
	require.NoError(t, e.Open(path))
	handle := r.Pipeline().Handle()

	watcher.refuse = true
	require.Error(t, e.Open(filepath.Join(dir, "other.wgsl")))
	assert.Empty(t, e.ActivePath())

	// F5 has nothing to reload
	require.NoError(t, os.WriteFile(path, []byte(blueShader), 0o644))
	window.pending = []uint32{common.KeyF5}
	require.NoError(t, e.Tick())
	assert.Equal(t, handle, r.Pipeline().Handle())
}

func TestAtMostOneReportPerTick(t *testing.T) {
	h := newHarness(t, redShader)
	require.NoError(t, h.engine.Open(h.path))

	h.edit(t, blueShader)
	h.write(t, redShader)
	require.NoError(t, h.watcher.Sync())
	require.Equal(t, 2, h.watcher.Queue().Len())

	h.tick(t, 1)
	assert.Equal(t, 1, h.watcher.Queue().Len())
	h.tick(t, 1)
	assert.Equal(t, 0, h.watcher.Queue().Len())
	assert.Empty(t, h.device.Violations)
}

func TestEscapeTogglesOverlayAndTitle(t *testing.T) {
	h := newHarness(t, redShader)
	h.tick(t, 1)
	require.NotEmpty(t, h.window.titles)
	assert.Equal(t, "Retort | FPS: 0", h.window.titles[0])
	drawn := h.engine.Overlay().FramesDrawn()

	h.window.pending = []uint32{common.KeyEsc}
	h.tick(t, 2)
	assert.False(t, h.engine.Overlay().Enabled())
	assert.Equal(t, drawn, h.engine.Overlay().FramesDrawn())

	h.window.pending = []uint32{common.KeyEsc}
	h.tick(t, 1)
	assert.True(t, h.engine.Overlay().Enabled())
	assert.Equal(t, drawn+1, h.engine.Overlay().FramesDrawn())
}

func TestRunStopsWhenWindowCloses(t *testing.T) {
	h := newHarness(t, redShader)
	h.window.closeAt = 5

	require.NoError(t, h.engine.Run())
	assert.Equal(t, uint64(5), h.engine.Renderer().FrameCount())
	assert.Equal(t, 0, h.device.LiveTotal(), "Run releases the renderer")
	_, err := h.watcher.Watch(h.path)
	assert.ErrorIs(t, err, watch.ErrClosed)
	require.NoError(t, h.engine.Close())
}

func TestQuitStopsRun(t *testing.T) {
	h := newHarness(t, redShader)
	h.engine.Quit()
	h.engine.Quit()

	require.NoError(t, h.engine.Run())
	assert.Equal(t, uint64(0), h.engine.Renderer().FrameCount())
}

func TestFrameDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), frameDuration(0))
	assert.Equal(t, time.Duration(0), frameDuration(-5))
	assert.Equal(t, 16666666*time.Nanosecond, frameDuration(60))
	assert.Equal(t, 40*time.Millisecond, frameDuration(25))
}

func TestReloadAndClearLogKeys(t *testing.T) {
	h := newHarness(t, brokenShader)
	require.Error(t, h.engine.Open(h.path))
	require.Len(t, h.engine.Overlay().Entries(), 1)

	// F5 rebuilds from disk without waiting for the watcher
	require.NoError(t, os.WriteFile(h.path, []byte(redShader), 0o644))
	h.window.pending = []uint32{common.KeyF5}
	h.tick(t, 1)
	assert.Equal(t, h.path, h.engine.Renderer().FragmentFilename())

	h.window.pending = []uint32{common.KeyC}
	h.tick(t, 1)
	assert.Empty(t, h.engine.Overlay().Entries())
}
