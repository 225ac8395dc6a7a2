package overlay

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/Carmen-Shannon/retort/engine/renderer"
)

// DefaultLogCapacity is the number of compile log entries kept by a Context built without WithLogCapacity.
const DefaultLogCapacity = 64

// ErrNotInitialized is returned by Context methods that need a target before Init was called.
var ErrNotInitialized = errors.New("overlay: context not initialized")

// Target is the part of the renderer the overlay drives.
type Target interface {
	SetOverlayEnabled(enabled bool) error
	OverlayEnabled() bool
	SetOverlayHook(hook func(renderer.FrameStats))
	FPS() int
	FragmentFilename() string
}

// LogEntry is one line of the compile log.
type LogEntry struct {
	Time     time.Time
	Filename string
	Message  string
}

func (e LogEntry) String() string {
	return fmt.Sprintf("%s %s: %s", e.Time.Format("15:04:05"), e.Filename, e.Message)
}

// Context is the overlay state of one renderer. It is owned by the host and must be bound with
// Init before use and released with Teardown before the renderer is released.
type Context struct {
	target Target

	title    string
	capacity int
	clock    func() time.Time

	// log is a ring; head is the index of the oldest entry once the ring is full
	log  []LogEntry
	head int
	// failing is set by Log and cleared by Loaded
	failing bool

	last   renderer.FrameStats
	drawn  uint64
	status string
}

// NewContext creates an unbound overlay Context.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - *Context: the new context
func NewContext(options ...ContextBuilderOption) *Context {
	c := &Context{
		capacity: DefaultLogCapacity,
		clock:    time.Now,
	}
	for _, option := range options {
		option(c)
	}
	c.title = common.Coalesce(c.title, "Retort")
	c.capacity = max(c.capacity, 1)
	return c
}

// Init binds the context to target and installs the per-frame hook.
//
// Parameters:
//   - target: the renderer the overlay draws into
//   - enabled: the initial overlay state
//
// Returns:
//   - error: an error if the renderer is in the middle of a frame
func (c *Context) Init(target Target, enabled bool) error {
	if err := target.SetOverlayEnabled(enabled); err != nil {
		return fmt.Errorf("overlay: init: %w", err)
	}
	c.target = target
	target.SetOverlayHook(c.record)
	common.Logger().Debug("[Overlay] initialized", "enabled", enabled)
	return nil
}

// Teardown removes the hook from the bound target. It is a no-op on an unbound context.
func (c *Context) Teardown() {
	if c.target == nil {
		return
	}
	c.target.SetOverlayHook(nil)
	c.target = nil
	common.Logger().Debug("[Overlay] torn down", "frames", c.drawn)
}

func (c *Context) record(stats renderer.FrameStats) {
	c.last = stats
	c.drawn++
}

func (c *Context) Enabled() bool {
	return c.target != nil && c.target.OverlayEnabled()
}

func (c *Context) SetEnabled(enabled bool) error {
	if c.target == nil {
		return ErrNotInitialized
	}
	return c.target.SetOverlayEnabled(enabled)
}

// Toggle flips the overlay state.
func (c *Context) Toggle() error {
	if c.target == nil {
		return ErrNotInitialized
	}
	enabled := !c.target.OverlayEnabled()
	if err := c.target.SetOverlayEnabled(enabled); err != nil {
		return err
	}
	common.Logger().Info("[Overlay] toggled", "enabled", enabled)
	return nil
}

// Log appends an entry to the compile log, dropping the oldest entry when the log is full.
//
// Parameters:
//   - filename: the shader the message refers to
//   - message: the diagnostic
func (c *Context) Log(filename, message string) {
	entry := LogEntry{Time: c.clock(), Filename: filename, Message: message}
	c.failing = true
	if len(c.log) < c.capacity {
		c.log = append(c.log, entry)
		return
	}
	c.log[c.head] = entry
	c.head = (c.head + 1) % c.capacity
}

// LogError appends err to the compile log.
func (c *Context) LogError(filename string, err error) {
	c.Log(filename, err.Error())
}

// Entries returns the compile log, oldest first.
func (c *Context) Entries() []LogEntry {
	out := make([]LogEntry, 0, len(c.log))
	out = append(out, c.log[c.head:]...)
	return append(out, c.log[:c.head]...)
}

func (c *Context) ClearLog() {
	c.log = c.log[:0]
	c.head = 0
	c.failing = false
}

// Loaded marks filename as compiled. The status line drops the error summary until the next
// Log, while the entries stay in the log.
func (c *Context) Loaded(filename string) {
	c.failing = false
	common.Logger().Debug("[Overlay] shader loaded", "file", filename)
}

// Draw builds the overlay for the frame in progress and returns the window title.
//
// Returns:
//   - string: the window title, "<title> | FPS: N"
func (c *Context) Draw() string {
	if c.target == nil {
		return c.title
	}
	c.status = c.target.FragmentFilename()
	if n := len(c.log); n > 0 && c.failing {
		latest := c.log[(c.head+n-1)%n]
		c.status = fmt.Sprintf("%s | %d errors | %s", c.status, n, latest.Message)
	}
	return c.Title()
}

// Title returns "<title> | FPS: N" for the bound target's current frame rate.
func (c *Context) Title() string {
	fps := 0
	if c.target != nil {
		fps = c.target.FPS()
	}
	return fmt.Sprintf("%s | FPS: %d", c.title, fps)
}

// Status returns the status line built by the last Draw.
func (c *Context) Status() string {
	return c.status
}

// LastFrame returns the stats of the last frame submitted with the overlay enabled.
func (c *Context) LastFrame() renderer.FrameStats {
	return c.last
}

// FramesDrawn returns the number of frames submitted with the overlay enabled.
func (c *Context) FramesDrawn() uint64 {
	return c.drawn
}
