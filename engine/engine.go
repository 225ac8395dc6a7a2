package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/Carmen-Shannon/retort/engine/overlay"
	"github.com/Carmen-Shannon/retort/engine/renderer"
	"github.com/Carmen-Shannon/retort/engine/renderer/shader"
	"github.com/Carmen-Shannon/retort/engine/watch"
)

// Window is the part of the platform window the host loop needs.
type Window interface {
	PollEvents()
	IsRunning() bool
	SetTitle(title string)
	SetKeyDownCallback(callback func(keyCode uint32))
}

// engine implements the Engine interface.
// Runs the render thread loop and connects the watcher, renderer and overlay.
type engine struct {
	window   Window
	renderer renderer.Renderer
	overlay  *overlay.Context
	watcher  watch.Watcher

	overlayEnabled bool

	// active shader file; activeID is 0 when nothing is watched
	activeID   int
	activePath string

	title string

	quitChannel chan struct{}
	quitOnce    sync.Once
	closeOnce   sync.Once

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the preview host. It owns the watcher and the overlay context, drives the renderer
// once per iteration and hot-reloads the open shader when it changes on disk.
type Engine interface {
	// Open loads the fragment shader at path and watches it for changes. A shader that does
	// not compile is logged to the overlay and the previous pipeline keeps rendering; the file
	// is still watched so a fixed version is picked up.
	//
	// Parameters:
	//   - path: the WGSL file to load
	//
	// Returns:
	//   - error: the read, compile or pipeline error, or watch.ErrClosed
	Open(path string) error

	// Tick runs one loop iteration: poll input, apply at most one change report, then render
	// one frame with the overlay.
	Tick() error

	// Run calls Tick until the window closes or Quit is called, then releases the watcher,
	// the overlay and the renderer.
	Run() error

	// Quit makes Run return after the current iteration. Safe to call more than once.
	Quit()

	// Close releases the watcher, the overlay and the renderer. Run calls it on exit.
	Close() error

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// ActivePath returns the path of the open shader, or "" before the first Open.
	ActivePath() string

	// Overlay returns the overlay context bound to the renderer.
	Overlay() *overlay.Context

	// Renderer returns the renderer driven by the loop.
	Renderer() renderer.Renderer
}

// NewEngine creates a host loop over w and r. Escape toggles the overlay, F5 reloads the open
// shader and C clears the compile log.
//
// Parameters:
//   - w: the window providing input and the title bar
//   - r: the renderer the loop drives; the engine releases it on Close
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the overlay cannot be bound to the renderer
func NewEngine(w Window, r renderer.Renderer, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		window:         w,
		renderer:       r,
		overlayEnabled: true,
		quitChannel:    make(chan struct{}),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.overlay == nil {
		e.overlay = overlay.NewContext()
	}
	if e.watcher == nil {
		e.watcher = watch.NewWatcher(watch.NewQueue())
	}
	if err := e.overlay.Init(r, e.overlayEnabled); err != nil {
		_ = e.watcher.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	w.SetKeyDownCallback(e.handleKey)

	return e, nil
}

// handleKey runs during PollEvents, outside any frame.
func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case common.KeyEsc:
		if err := e.overlay.Toggle(); err != nil {
			common.Logger().Warn("[Engine] overlay toggle failed", "error", err)
		}
	case common.KeyF5:
		if e.activePath != "" {
			_ = e.load(e.activePath)
		}
	case common.KeyC:
		e.overlay.ClearLog()
	}
}

func (e *engine) Open(path string) error {
	if e.activeID != 0 {
		if err := e.watcher.Unwatch(e.activeID); err != nil {
			return err
		}
		e.activeID = 0
		e.activePath = ""
	}

	id, err := e.watcher.Watch(path)
	if err != nil {
		return err
	}
	e.activeID = id
	e.activePath = path
	// baseline now, so an edit made right after Open is reported
	if err := e.watcher.Sync(); err != nil {
		return err
	}

	common.Logger().Info("[Engine] opened shader", "file", path, "id", id)
	return e.load(path)
}

// load reads path and swaps it in as the fragment shader. Failures go to the overlay log.
func (e *engine) load(path string) error {
	source, err := shader.LoadSource(path)
	if err == nil {
		err = e.renderer.SetFragmentShader(path, source)
	}
	if err != nil {
		e.overlay.LogError(path, err)
		common.Logger().Warn("[Engine] shader not loaded, keeping previous pipeline", "file", path, "error", err)
		return err
	}
	e.overlay.Loaded(path)
	return nil
}

func (e *engine) Tick() error {
	e.window.PollEvents()

	// one report per iteration; the rest stay queued for the next frames
	if report, ok := e.watcher.Queue().TryPop(); ok {
		if report.ID == e.activeID {
			common.Logger().Debug("[Engine] change detected, reloading", "file", report.Path)
			// failures are in the overlay log and the previous pipeline keeps rendering
			_ = e.load(report.Path)
		}
	}

	if err := e.renderer.BeginFrame(); err != nil {
		return err
	}
	if e.renderer.IsFrameInProgress() {
		if title := e.overlay.Draw(); title != e.title {
			e.title = title
			e.window.SetTitle(title)
		}
	}
	return e.renderer.EndFrame()
}

func (e *engine) Run() error {
	defer e.Close()

	for e.window.IsRunning() {
		select {
		case <-e.quitChannel:
			return nil
		default:
		}

		start := time.Now()
		if err := e.Tick(); err != nil {
			return err
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return nil
}

// Quit signals Run to return. Uses sync.Once so the channel is only closed once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.watcher.Close()
		e.overlay.Teardown()
		e.renderer.Release()
		common.Logger().Info("[Engine] closed", "frames", e.renderer.FrameCount())
	})
	return err
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) ActivePath() string {
	return e.activePath
}

func (e *engine) Overlay() *overlay.Context {
	return e.overlay
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}
