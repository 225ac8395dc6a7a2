package engine

import (
	"github.com/Carmen-Shannon/retort/engine/overlay"
	"github.com/Carmen-Shannon/retort/engine/watch"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithWatcher sets the watcher used for hot reload rather than letting the engine start one
// with default settings. The engine closes it on Close.
//
// Parameters:
//   - w: a running Watcher
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWatcher(w watch.Watcher) EngineBuilderOption {
	return func(e *engine) {
		e.watcher = w
	}
}

// WithOverlay sets a pre-configured, unbound overlay context.
//
// Parameters:
//   - c: the overlay context; the engine binds it to the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOverlay(c *overlay.Context) EngineBuilderOption {
	return func(e *engine) {
		e.overlay = c
	}
}

// WithOverlayEnabled sets whether the overlay is shown at startup. It is shown by default.
func WithOverlayEnabled(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.overlayEnabled = enabled
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}
