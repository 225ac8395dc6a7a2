package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/retort/common"
)

// Profiler tracks frame timing and memory statistics for performance monitoring.
// It measures the delta between consecutive ticks and counts frames over a rolling
// update interval, publishing the count as the FPS once the interval elapses.
type Profiler struct {
	now            func() time.Time
	frameCount     int
	fps            int
	deltaTime      float32
	lastTick       time.Time
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	readMemStats   bool
}

// ProfilerOption is a functional option applied to a Profiler during construction.
type ProfilerOption func(*Profiler)

// WithClock replaces the time source. Tests use it to drive ticks deterministically.
//
// Parameters:
//   - now: the function returning the current time
//
// Returns:
//   - ProfilerOption: a function that applies the clock to a profiler
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithUpdateInterval sets how long frames are counted before FPS is published.
func WithUpdateInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithMemStats enables reading runtime memory statistics at every interval rollover.
// The statistics are logged at debug level.
func WithMemStats(enabled bool) ProfilerOption {
	return func(p *Profiler) {
		p.readMemStats = enabled
	}
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - opts: variadic list of ProfilerOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	start := p.now()
	p.lastTick = start
	p.lastTime = start
	return p
}

// Tick should be called once per frame to track frame timing.
// It updates the delta time and, once the update interval has elapsed, publishes the frame
// count of the interval as the FPS and resets the counter.
//
// Returns:
//   - bool: true if the interval rolled over this tick, false otherwise
func (p *Profiler) Tick() bool {
	currentTime := p.now()
	p.deltaTime = float32(currentTime.Sub(p.lastTick).Seconds())
	p.lastTick = currentTime

	p.frameCount++
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	p.fps = p.frameCount
	if p.readMemStats {
		p.logMemStats(elapsed)
	}
	p.frameCount = 0
	p.lastTime = currentTime
	return true
}

// FPS returns the number of frames counted in the last completed interval.
//
// Returns:
//   - int: frames per interval, 0 until the first interval completes
func (p *Profiler) FPS() int {
	return p.fps
}

// DeltaTime returns the time between the two most recent ticks in seconds.
//
// Returns:
//   - float32: seconds elapsed between the last two ticks
func (p *Profiler) DeltaTime() float32 {
	return p.deltaTime
}

func (p *Profiler) logMemStats(elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	common.Logger().Debug("[Profiler] frame stats",
		"fps", p.fps,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_us", lastPauseUs,
		"gc_max_us", maxPauseUs,
		"sys_mb", sysMB)

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
