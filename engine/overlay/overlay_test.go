package overlay

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/retort/engine/gpu"
	"github.com/Carmen-Shannon/retort/engine/gpu/gputest"
	"github.com/Carmen-Shannon/retort/engine/renderer"
	"github.com/Carmen-Shannon/retort/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	enabled  bool
	busy     bool
	hook     func(renderer.FrameStats)
	fps      int
	filename string
}

func (f *fakeTarget) SetOverlayEnabled(enabled bool) error {
	if f.busy {
		return renderer.ErrFrameInProgress
	}
	f.enabled = enabled
	return nil
}

func (f *fakeTarget) OverlayEnabled() bool                          { return f.enabled }
func (f *fakeTarget) SetOverlayHook(hook func(renderer.FrameStats)) { f.hook = hook }
func (f *fakeTarget) FPS() int                                      { return f.fps }
func (f *fakeTarget) FragmentFilename() string                      { return f.filename }

func TestInitAndTeardown(t *testing.T) {
	target := &fakeTarget{}
	c := NewContext()

	assert.ErrorIs(t, c.Toggle(), ErrNotInitialized)
	require.NoError(t, c.Init(target, true))
	assert.True(t, c.Enabled())
	require.NotNil(t, target.hook)

	target.hook(renderer.FrameStats{FrameIndex: 3, FrameCount: 4})
	assert.Equal(t, uint64(1), c.FramesDrawn())
	assert.Equal(t, 3, c.LastFrame().FrameIndex)

	c.Teardown()
	assert.Nil(t, target.hook)
	assert.False(t, c.Enabled())
	c.Teardown()
}

func TestToggleRespectsFrameGuard(t *testing.T) {
	target := &fakeTarget{}
	c := NewContext()
	require.NoError(t, c.Init(target, true))

	require.NoError(t, c.Toggle())
	assert.False(t, c.Enabled())

	target.busy = true
	assert.ErrorIs(t, c.Toggle(), renderer.ErrFrameInProgress)
	assert.False(t, c.Enabled())

	target.busy = false
	require.NoError(t, c.SetEnabled(true))
	assert.True(t, c.Enabled())
}

func TestInitDuringFrameFails(t *testing.T) {
	target := &fakeTarget{busy: true}
	c := NewContext()

	assert.ErrorIs(t, c.Init(target, true), renderer.ErrFrameInProgress)
	assert.Nil(t, target.hook)
}

func TestLogIsBounded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewContext(WithLogCapacity(3), WithClock(func() time.Time { return now }))

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		c.Log("x.wgsl", msg)
	}

	entries := c.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"c", "d", "e"}, []string{entries[0].Message, entries[1].Message, entries[2].Message})
	assert.Equal(t, "12:00:00 x.wgsl: e", entries[2].String())

	c.ClearLog()
	assert.Empty(t, c.Entries())
	c.LogError("y.wgsl", errors.New("boom"))
	assert.Equal(t, "boom", c.Entries()[0].Message)
}

func TestDrawBuildsTitleAndStatus(t *testing.T) {
	target := &fakeTarget{fps: 59, filename: "plasma.wgsl"}
	c := NewContext()
	assert.Equal(t, "Retort", c.Draw(), "unbound context only has the title")

	require.NoError(t, c.Init(target, true))
	assert.Equal(t, "Retort | FPS: 59", c.Draw())
	assert.Equal(t, "plasma.wgsl", c.Status())

	c.Log("plasma.wgsl", "expected ';'")
	c.Draw()
	assert.Equal(t, "plasma.wgsl | 1 errors | expected ';'", c.Status())

	c.Loaded("plasma.wgsl")
	c.Draw()
	assert.Equal(t, "plasma.wgsl", c.Status(), "a successful load clears the error summary")
	assert.Len(t, c.Entries(), 1)

	c.Log("plasma.wgsl", "unknown identifier")
	c.Draw()
	assert.Equal(t, "plasma.wgsl | 2 errors | unknown identifier", c.Status())

	c2 := NewContext(WithTitle("Preview"))
	require.NoError(t, c2.Init(target, false))
	assert.Equal(t, "Preview | FPS: 59", c2.Title())
}

func TestContextDrivesRenderer(t *testing.T) {
	prev := gpu.SetFatalHandler(func(err error) { panic(err) })
	t.Cleanup(func() { gpu.SetFatalHandler(prev) })

	device := gputest.New(3)
	r, err := renderer.NewRenderer(device, shader.NewCompiler())
	require.NoError(t, err)

	c := NewContext()
	require.NoError(t, c.Init(r, true))
	for range 3 {
		require.NoError(t, r.BeginFrame())
		c.Draw()
		require.NoError(t, r.EndFrame())
	}
	assert.Equal(t, uint64(3), c.FramesDrawn())

	require.NoError(t, c.Toggle())
	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.EndFrame())
	assert.Equal(t, uint64(3), c.FramesDrawn())

	c.Teardown()
	r.Release()
	assert.Equal(t, 0, device.LiveTotal())
}
