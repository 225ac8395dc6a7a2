package watch

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is the poll period of a Watcher built without WithInterval.
const DefaultInterval = 250 * time.Millisecond

// ErrClosed is returned by Watcher methods called after Close.
var ErrClosed = errors.New("watch: watcher closed")

// Watcher polls a Pool on its own goroutine and pushes change reports into a Queue.
type Watcher interface {
	// Watch schedules path to be watched and returns its id immediately. The baseline is
	// recorded on the watcher's next poll.
	//
	// Parameters:
	//   - path: the file to watch
	//
	// Returns:
	//   - int: the id carried by reports for this file
	//   - error: ErrClosed if the watcher is closed
	Watch(path string) (int, error)

	// Unwatch schedules the entry with the given id for removal.
	Unwatch(id int) error

	// Sync blocks until every request sent before it has been applied and one poll has run.
	Sync() error

	// Queue returns the queue reports are pushed into.
	Queue() *Queue

	// Close stops the goroutine, waits for it to exit, then stops the stat workers and releases
	// the fsnotify watcher.
	// It is safe to call more than once.
	Close() error
}

type commandOp int

const (
	opWatch commandOp = iota
	opUnwatch
	opSync
)

type command struct {
	op   commandOp
	id   int
	path string
	done chan struct{}
}

type watcher struct {
	pool     *pool
	queue    *Queue
	interval time.Duration

	poolOptions []PoolBuilderOption
	useNotify   bool
	notify      *fsnotify.Watcher
	// dirs counts watched entries per directory registered with notify
	dirs map[string]int

	commands chan command
	quit     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

var _ Watcher = &watcher{}

// NewWatcher starts a watcher goroutine that pushes into queue.
//
// Parameters:
//   - queue: the queue receiving change reports
//   - options: functional options applied in order
//
// Returns:
//   - Watcher: the running watcher
func NewWatcher(queue *Queue, options ...WatcherBuilderOption) Watcher {
	w := &watcher{
		queue:     queue,
		interval:  DefaultInterval,
		useNotify: true,
		dirs:      make(map[string]int),
		commands:  make(chan command, 16),
		quit:      make(chan struct{}),
	}
	for _, option := range options {
		option(w)
	}
	if w.queue == nil {
		w.queue = NewQueue()
	}
	w.pool = newPool(w.poolOptions...)

	if w.useNotify {
		n, err := fsnotify.NewWatcher()
		if err != nil {
			common.Logger().Warn("[Watch] fsnotify unavailable, polling only", "error", err)
		} else {
			w.notify = n
		}
	}

	w.wg.Add(1)
	go w.run()
	return w
}

func (w *watcher) Queue() *Queue {
	return w.queue
}

func (w *watcher) send(cmd command) error {
	select {
	case <-w.quit:
		return ErrClosed
	default:
	}
	select {
	case w.commands <- cmd:
		return nil
	case <-w.quit:
		return ErrClosed
	}
}

func (w *watcher) Watch(path string) (int, error) {
	id := w.pool.reserve()
	if err := w.send(command{op: opWatch, id: id, path: path}); err != nil {
		return 0, err
	}
	return id, nil
}

func (w *watcher) Unwatch(id int) error {
	return w.send(command{op: opUnwatch, id: id})
}

func (w *watcher) Sync() error {
	done := make(chan struct{})
	if err := w.send(command{op: opSync, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-w.quit:
		return ErrClosed
	}
}

func (w *watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.quit)
		w.wg.Wait()
		w.pool.close()
		if w.notify != nil {
			err = w.notify.Close()
		}
		common.Logger().Debug("[Watch] watcher closed")
	})
	return err
}

func (w *watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.notify != nil {
		events, errs = w.notify.Events, w.notify.Errors
	}

	for {
		select {
		case <-w.quit:
			return
		case cmd := <-w.commands:
			w.apply(cmd)
		case <-ticker.C:
			w.poll()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if w.isWatched(ev.Name) {
				w.poll()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			common.Logger().Warn("[Watch] fsnotify error", "error", err)
		}
	}
}

func (w *watcher) apply(cmd command) {
	switch cmd.op {
	case opWatch:
		w.pool.add(cmd.id, cmd.path)
		w.addDir(cmd.path)
		common.Logger().Debug("[Watch] watching", "id", cmd.id, "path", cmd.path)
	case opUnwatch:
		if path, ok := w.pool.Path(cmd.id); ok {
			w.pool.Unwatch(cmd.id)
			w.removeDir(path)
			common.Logger().Debug("[Watch] unwatched", "id", cmd.id, "path", path)
		}
	case opSync:
		w.poll()
		close(cmd.done)
	}
}

func (w *watcher) poll() {
	reports := w.pool.Poll()
	for _, r := range reports {
		common.Logger().Debug("[Watch] change detected", "id", r.ID, "path", r.Path)
	}
	w.queue.Push(reports...)
}

// isWatched reports whether name is the path of any entry.
func (w *watcher) isWatched(name string) bool {
	name = filepath.Clean(name)
	for _, e := range w.pool.entries {
		if filepath.Clean(e.path) == name {
			return true
		}
	}
	return false
}

func (w *watcher) addDir(path string) {
	if w.notify == nil {
		return
	}
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.notify.Add(dir); err != nil {
			common.Logger().Warn("[Watch] cannot watch directory, polling only", "dir", dir, "error", err)
			return
		}
	}
	w.dirs[dir]++
}

func (w *watcher) removeDir(path string) {
	if w.notify == nil {
		return
	}
	dir := filepath.Dir(path)
	n, ok := w.dirs[dir]
	if !ok {
		return
	}
	if n > 1 {
		w.dirs[dir] = n - 1
		return
	}
	delete(w.dirs, dir)
	if err := w.notify.Remove(dir); err != nil {
		common.Logger().Debug("[Watch] directory remove failed", "dir", dir, "error", err)
	}
}
