package gpu

// Handle identifies a device object. Handles are small integers handed out by an Arena;
// the zero Handle is the null handle and never refers to a live object.
type Handle uint32

// NullHandle is the zero Handle.
const NullHandle Handle = 0

// Kind classifies the object a Handle refers to.
type Kind int

const (
	KindSemaphore Kind = iota + 1
	KindFence
	KindSwapchain
	KindImage
	KindImageView
	KindFramebuffer
	KindCommandPool
	KindCommandBuffer
	KindShaderModule
	KindPipelineLayout
	KindRenderPass
	KindPipeline
)

func (k Kind) String() string {
	switch k {
	case KindSemaphore:
		return "semaphore"
	case KindFence:
		return "fence"
	case KindSwapchain:
		return "swapchain"
	case KindImage:
		return "image"
	case KindImageView:
		return "image view"
	case KindFramebuffer:
		return "framebuffer"
	case KindCommandPool:
		return "command pool"
	case KindCommandBuffer:
		return "command buffer"
	case KindShaderModule:
		return "shader module"
	case KindPipelineLayout:
		return "pipeline layout"
	case KindRenderPass:
		return "render pass"
	case KindPipeline:
		return "pipeline"
	default:
		return "unknown"
	}
}

// Arena owns backend objects keyed by Handle. Handles are allocated from a monotonically
// increasing counter and are never reused during the arena's lifetime, so comparing two
// handles is an identity comparison.
//
// An Arena is not safe for concurrent use; every device object is owned by the render thread.
type Arena[T any] struct {
	next  Handle
	items map[Handle]arenaItem[T]
}

type arenaItem[T any] struct {
	kind  Kind
	value T
}

// NewArena creates an empty Arena.
//
// Returns:
//   - *Arena[T]: the new arena
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{items: make(map[Handle]arenaItem[T])}
}

// Insert stores value under a fresh handle.
//
// Parameters:
//   - kind: the object kind recorded with the value
//   - value: the backend object
//
// Returns:
//   - Handle: the new non-null handle
func (a *Arena[T]) Insert(kind Kind, value T) Handle {
	a.next++
	a.items[a.next] = arenaItem[T]{kind: kind, value: value}
	return a.next
}

// Get returns the value stored under h if it is live and of the expected kind.
//
// Parameters:
//   - h: the handle to look up
//   - kind: the kind the caller expects
//
// Returns:
//   - T: the stored value, or the zero value
//   - error: ErrorInvalidHandle if h is null, unknown, released, or of another kind
func (a *Arena[T]) Get(h Handle, kind Kind) (T, error) {
	item, ok := a.items[h]
	if !ok || item.kind != kind {
		var zero T
		return zero, ErrorInvalidHandle
	}
	return item.value, nil
}

// Set replaces the value of a live handle, keeping its kind.
//
// Returns:
//   - error: ErrorInvalidHandle if h is not live
func (a *Arena[T]) Set(h Handle, value T) error {
	item, ok := a.items[h]
	if !ok {
		return ErrorInvalidHandle
	}
	item.value = value
	a.items[h] = item
	return nil
}

// Kind returns the kind of a live handle.
//
// Returns:
//   - Kind: the recorded kind
//   - bool: false if h is not live
func (a *Arena[T]) Kind(h Handle) (Kind, bool) {
	item, ok := a.items[h]
	return item.kind, ok
}

// Remove releases h and returns the value it held. Removing a dead handle is a no-op.
//
// Returns:
//   - T: the value that was stored
//   - bool: true if h was live
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	item, ok := a.items[h]
	if ok {
		delete(a.items, h)
	}
	return item.value, ok
}

// Len returns the number of live handles.
func (a *Arena[T]) Len() int {
	return len(a.items)
}

// Count returns the number of live handles of the given kind.
func (a *Arena[T]) Count(kind Kind) int {
	n := 0
	for _, item := range a.items {
		if item.kind == kind {
			n++
		}
	}
	return n
}

// Each calls fn for every live handle of the given kind. Order is unspecified.
func (a *Arena[T]) Each(kind Kind, fn func(h Handle, value T)) {
	for h, item := range a.items {
		if item.kind == kind {
			fn(h, item.value)
		}
	}
}
