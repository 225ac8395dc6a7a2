package watch

import "time"

// WatcherBuilderOption is a functional option applied to a watcher during construction via NewWatcher.
type WatcherBuilderOption func(*watcher)

// WithInterval sets the poll period. Non-positive values keep DefaultInterval.
//
// Parameters:
//   - interval: the time between polls
//
// Returns:
//   - WatcherBuilderOption: a function that applies the interval to a watcher
func WithInterval(interval time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithPoolOptions forwards options to the pool owned by the watcher.
func WithPoolOptions(opts ...PoolBuilderOption) WatcherBuilderOption {
	return func(w *watcher) {
		w.poolOptions = append(w.poolOptions, opts...)
	}
}

// WithNotify enables or disables the fsnotify wake-up. When disabled the watcher only polls on its ticker.
func WithNotify(enabled bool) WatcherBuilderOption {
	return func(w *watcher) {
		w.useNotify = enabled
	}
}
