package watch

import (
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ChangeKind classifies a ChangeReport.
type ChangeKind int

const (
	// Modified means the file's modification time differs from its baseline.
	Modified ChangeKind = iota
)

func (k ChangeKind) String() string {
	switch k {
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// ChangeReport describes one detected change of a watched file.
type ChangeReport struct {
	ID   int
	Path string
	Kind ChangeKind
}

// Pool is a set of watched files compared against their last seen modification time.
type Pool interface {
	// Watch adds path to the pool and returns its id. The file is not touched until the next Poll.
	//
	// Parameters:
	//   - path: the file to watch
	//
	// Returns:
	//   - int: the id identifying the entry in reports and in Unwatch
	Watch(path string) int

	// Unwatch removes the entry with the given id. Unknown ids are ignored.
	Unwatch(id int)

	// Poll stats every entry and returns one report per entry whose modification time changed
	// since the previous successful stat, in ascending id order. The first successful stat of an
	// entry records its baseline and never reports. A failed stat never reports and leaves the
	// baseline unchanged.
	//
	// Returns:
	//   - []ChangeReport: the detected changes, possibly empty
	Poll() []ChangeReport

	// Len returns the number of watched entries.
	Len() int

	// Path returns the path watched under id.
	Path(id int) (string, bool)
}

type entry struct {
	path        string
	baseline    time.Time
	hasBaseline bool
}

type statResult struct {
	modTime time.Time
	err     error
}

type pool struct {
	nextID  atomic.Int64
	entries map[int]*entry

	// lanes, when set, run the stats of one Poll concurrently. Each lane is a single worker
	// pool so that Stop reaches its one worker.
	lanes []worker.DynamicWorkerPool
	stat  func(path string) (time.Time, error)
}

var _ Pool = &pool{}

// NewPool creates an empty Pool.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - Pool: the new pool
func NewPool(options ...PoolBuilderOption) Pool {
	return newPool(options...)
}

func newPool(options ...PoolBuilderOption) *pool {
	p := &pool{
		entries: make(map[int]*entry),
		stat:    modTime,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// reserve allocates an id without adding an entry. It is safe to call from any goroutine.
func (p *pool) reserve() int {
	return int(p.nextID.Add(1))
}

func (p *pool) add(id int, path string) {
	p.entries[id] = &entry{path: path}
}

func (p *pool) Watch(path string) int {
	id := p.reserve()
	p.add(id, path)
	return id
}

func (p *pool) Unwatch(id int) {
	delete(p.entries, id)
}

func (p *pool) Len() int {
	return len(p.entries)
}

func (p *pool) Path(id int) (string, bool) {
	e, ok := p.entries[id]
	if !ok {
		return "", false
	}
	return e.path, true
}

func (p *pool) Poll() []ChangeReport {
	if len(p.entries) == 0 {
		return nil
	}

	ids := make([]int, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	results := p.statAll(ids)

	var reports []ChangeReport
	for i, id := range ids {
		e, res := p.entries[id], results[i]
		if res.err != nil {
			continue
		}
		if !e.hasBaseline {
			e.baseline = res.modTime
			e.hasBaseline = true
			continue
		}
		if !res.modTime.Equal(e.baseline) {
			e.baseline = res.modTime
			reports = append(reports, ChangeReport{ID: id, Path: e.path, Kind: Modified})
		}
	}
	return reports
}

// statAll stats the entries of ids, through the worker pool when one is configured.
// results[i] belongs to ids[i].
func (p *pool) statAll(ids []int) []statResult {
	results := make([]statResult, len(ids))
	if len(p.lanes) == 0 || len(ids) == 1 {
		for i, id := range ids {
			results[i].modTime, results[i].err = p.stat(p.entries[id].path)
		}
		return results
	}

	// per-poll barrier; the worker pool's Wait only returns once its workers idle out
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		path := p.entries[id].path
		p.lanes[i%len(p.lanes)].SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				results[i].modTime, results[i].err = p.stat(path)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return results
}

// close stops the stat workers. The pool must not be polled afterwards.
func (p *pool) close() {
	for _, lane := range p.lanes {
		lane.Stop()
	}
	p.lanes = nil
}
