// Package gputest provides an in-memory gpu.Device for exercising frame and pipeline logic
// without a GPU. The device completes work lazily: a submitted fence stays pending until it
// is waited on or the device goes idle, which lets tests observe ordering mistakes that a
// real driver would turn into corruption. Every such mistake is recorded in Violations.
package gputest

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/retort/engine/gpu"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// DefaultFormat is the Format reported by swapchains of a new Device.
const DefaultFormat gpu.Format = 23

// Submission records one queue submission.
type Submission struct {
	Fence       gpu.Handle
	ImageIndex  int
	Pipeline    gpu.Handle
	Framebuffer gpu.Handle
}

type object struct {
	// fence
	signaled bool
	pending  bool
	pipeline gpu.Handle

	// semaphore reuses signaled

	// image / image view / framebuffer
	imageIndex int
	swapchain  gpu.Handle
	extent     gpu.Extent

	// command pool
	buffers []gpu.Handle

	// command buffer
	pool   gpu.Handle
	record *gpu.DrawDescriptor

	// shader module
	stage gpu.ShaderStage
}

// Device is a fake gpu.Device. The zero value is not usable; call New.
type Device struct {
	objects *gpu.Arena[*object]

	imageCount int
	format     gpu.Format
	extent     gpu.Extent
	nextImage  int

	acquireResults []error
	presentResults []error
	pipelineErrs   []error

	imageOwner map[int]gpu.Handle

	// Calls is the ordered list of method names invoked on the device.
	Calls []string

	// Submissions is the ordered list of queue submissions.
	Submissions []Submission

	// Presented is the ordered list of presented image indices.
	Presented []int

	// Violations lists every ordering or lifetime rule the caller broke.
	Violations []string

	// WaitIdleCount counts WaitIdle calls.
	WaitIdleCount int

	// SwapchainsCreated counts CreateSwapchain calls.
	SwapchainsCreated int

	// LastOldSwapchain is the handle passed to the most recent CreateSwapchain.
	LastOldSwapchain gpu.Handle
}

var _ gpu.Device = &Device{}

// New creates a fake device whose swapchains have imageCount images.
//
// Parameters:
//   - imageCount: the number of presentable images per swapchain
//
// Returns:
//   - *Device: the fake device
func New(imageCount int) *Device {
	return &Device{
		objects:    gpu.NewArena[*object](),
		imageCount: imageCount,
		format:     DefaultFormat,
		extent:     gpu.Extent{Width: 1280, Height: 720},
		imageOwner: make(map[int]gpu.Handle),
	}
}

// SetImageCount changes the image count of swapchains created from now on.
func (d *Device) SetImageCount(n int) {
	d.imageCount = n
}

// SetExtent changes the extent of swapchains created from now on.
func (d *Device) SetExtent(extent gpu.Extent) {
	d.extent = extent
}

// QueueAcquireResult makes a future AcquireNextImage call return err. Queued results are
// consumed in order; when none are queued the call succeeds.
func (d *Device) QueueAcquireResult(err error) {
	d.acquireResults = append(d.acquireResults, err)
}

// QueuePresentResult makes a future Present call return err.
func (d *Device) QueuePresentResult(err error) {
	d.presentResults = append(d.presentResults, err)
}

// QueuePipelineError makes a future CreateGraphicsPipeline call fail with err.
func (d *Device) QueuePipelineError(err error) {
	d.pipelineErrs = append(d.pipelineErrs, err)
}

// Live returns the number of live objects of the given kind.
func (d *Device) Live(kind gpu.Kind) int {
	return d.objects.Count(kind)
}

// LiveTotal returns the number of live objects of every kind.
func (d *Device) LiveTotal() int {
	return d.objects.Len()
}

// IsLive reports whether h refers to a live object.
func (d *Device) IsLive(h gpu.Handle) bool {
	_, ok := d.objects.Kind(h)
	return ok
}

// PendingFences returns the number of fences submitted but not yet completed.
func (d *Device) PendingFences() int {
	n := 0
	d.objects.Each(gpu.KindFence, func(_ gpu.Handle, o *object) {
		if o.pending {
			n++
		}
	})
	return n
}

func (d *Device) violate(format string, args ...any) {
	d.Violations = append(d.Violations, fmt.Sprintf(format, args...))
}

func (d *Device) get(h gpu.Handle, kind gpu.Kind) (*object, error) {
	return d.objects.Get(h, kind)
}

func (d *Device) complete(o *object) {
	o.pending = false
	o.signaled = true
}

func (d *Device) CreateSemaphore() (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreateSemaphore")
	return d.objects.Insert(gpu.KindSemaphore, &object{}), nil
}

func (d *Device) CreateFence(signaled bool) (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreateFence")
	return d.objects.Insert(gpu.KindFence, &object{signaled: signaled}), nil
}

func (d *Device) WaitForFences(fences ...gpu.Handle) error {
	d.Calls = append(d.Calls, "WaitForFences")
	for _, h := range fences {
		if h == gpu.NullHandle {
			continue
		}
		f, err := d.get(h, gpu.KindFence)
		if err != nil {
			return err
		}
		switch {
		case f.pending:
			d.complete(f)
		case !f.signaled:
			d.violate("wait on fence %d that is unsignaled with no pending work", h)
		}
	}
	return nil
}

func (d *Device) ResetFences(fences ...gpu.Handle) error {
	d.Calls = append(d.Calls, "ResetFences")
	for _, h := range fences {
		f, err := d.get(h, gpu.KindFence)
		if err != nil {
			return err
		}
		if f.pending {
			d.violate("reset of in-flight fence %d", h)
		}
		f.signaled = false
	}
	return nil
}

func (d *Device) WaitIdle() error {
	d.Calls = append(d.Calls, "WaitIdle")
	d.WaitIdleCount++
	d.objects.Each(gpu.KindFence, func(_ gpu.Handle, o *object) {
		if o.pending {
			d.complete(o)
		}
	})
	return nil
}

func (d *Device) CreateSwapchain(old gpu.Handle) (gpu.SwapchainInfo, error) {
	d.Calls = append(d.Calls, "CreateSwapchain")
	if old != gpu.NullHandle {
		if _, err := d.get(old, gpu.KindSwapchain); err != nil {
			return gpu.SwapchainInfo{}, err
		}
	}
	d.SwapchainsCreated++
	d.LastOldSwapchain = old
	d.nextImage = 0
	clear(d.imageOwner)

	sc := d.objects.Insert(gpu.KindSwapchain, &object{extent: d.extent})
	images := make([]gpu.Handle, d.imageCount)
	for i := range images {
		images[i] = d.objects.Insert(gpu.KindImage, &object{imageIndex: i, swapchain: sc})
	}
	return gpu.SwapchainInfo{
		Swapchain: sc,
		Images:    images,
		Format:    d.format,
		Extent:    d.extent,
	}, nil
}

func (d *Device) CreateImageView(image gpu.Handle, format gpu.Format) (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreateImageView")
	img, err := d.get(image, gpu.KindImage)
	if err != nil {
		return gpu.NullHandle, err
	}
	if format != d.format {
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	return d.objects.Insert(gpu.KindImageView, &object{imageIndex: img.imageIndex, swapchain: img.swapchain}), nil
}

func (d *Device) AcquireNextImage(swapchain, signal gpu.Handle) (uint32, error) {
	d.Calls = append(d.Calls, "AcquireNextImage")
	if _, err := d.get(swapchain, gpu.KindSwapchain); err != nil {
		return 0, err
	}
	sem, err := d.get(signal, gpu.KindSemaphore)
	if err != nil {
		return 0, err
	}

	var result error
	if len(d.acquireResults) > 0 {
		result = d.acquireResults[0]
		d.acquireResults = d.acquireResults[1:]
	}
	if result != nil && result != gpu.Suboptimal {
		return 0, result
	}

	if sem.signaled {
		d.violate("acquire into semaphore %d that is already signaled", signal)
	}
	sem.signaled = true

	idx := d.nextImage
	d.nextImage = (d.nextImage + 1) % d.imageCount
	return uint32(idx), result
}

func (d *Device) Present(swapchain gpu.Handle, imageIndex uint32, wait ...gpu.Handle) error {
	d.Calls = append(d.Calls, "Present")
	if _, err := d.get(swapchain, gpu.KindSwapchain); err != nil {
		return err
	}
	for _, h := range wait {
		sem, err := d.get(h, gpu.KindSemaphore)
		if err != nil {
			return err
		}
		if !sem.signaled {
			d.violate("present waits on unsignaled semaphore %d", h)
		}
		sem.signaled = false
	}

	var result error
	if len(d.presentResults) > 0 {
		result = d.presentResults[0]
		d.presentResults = d.presentResults[1:]
	}
	if result == nil || result == gpu.Suboptimal {
		d.Presented = append(d.Presented, int(imageIndex))
	}
	return result
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreateShaderModule")
	if len(desc.Code) == 0 || desc.Code[0] != spirvMagic {
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	return d.objects.Insert(gpu.KindShaderModule, &object{stage: desc.Stage}), nil
}

func (d *Device) CreatePipelineLayout(string) (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreatePipelineLayout")
	return d.objects.Insert(gpu.KindPipelineLayout, &object{}), nil
}

func (d *Device) CreateRenderPass(desc *gpu.RenderPassDescriptor) (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreateRenderPass")
	if desc.Format == gpu.FormatUndefined {
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	return d.objects.Insert(gpu.KindRenderPass, &object{}), nil
}

func (d *Device) CreateGraphicsPipeline(desc *gpu.PipelineDescriptor) (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreateGraphicsPipeline")
	if len(d.pipelineErrs) > 0 {
		err := d.pipelineErrs[0]
		d.pipelineErrs = d.pipelineErrs[1:]
		if err != nil {
			return gpu.NullHandle, err
		}
	}
	if _, err := d.get(desc.Layout, gpu.KindPipelineLayout); err != nil {
		return gpu.NullHandle, err
	}
	if _, err := d.get(desc.RenderPass, gpu.KindRenderPass); err != nil {
		return gpu.NullHandle, err
	}
	vs, err := d.get(desc.VertexModule, gpu.KindShaderModule)
	if err != nil {
		return gpu.NullHandle, err
	}
	fs, err := d.get(desc.FragmentModule, gpu.KindShaderModule)
	if err != nil {
		return gpu.NullHandle, err
	}
	if vs.stage != gpu.StageVertex || fs.stage != gpu.StageFragment {
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	return d.objects.Insert(gpu.KindPipeline, &object{}), nil
}

func (d *Device) CreateFramebuffer(renderPass, view gpu.Handle, extent gpu.Extent) (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreateFramebuffer")
	if _, err := d.get(renderPass, gpu.KindRenderPass); err != nil {
		return gpu.NullHandle, err
	}
	v, err := d.get(view, gpu.KindImageView)
	if err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.Insert(gpu.KindFramebuffer, &object{imageIndex: v.imageIndex, extent: extent}), nil
}

func (d *Device) CreateCommandPool() (gpu.Handle, error) {
	d.Calls = append(d.Calls, "CreateCommandPool")
	return d.objects.Insert(gpu.KindCommandPool, &object{}), nil
}

func (d *Device) AllocateCommandBuffers(pool gpu.Handle, count int) ([]gpu.Handle, error) {
	d.Calls = append(d.Calls, "AllocateCommandBuffers")
	p, err := d.get(pool, gpu.KindCommandPool)
	if err != nil {
		return nil, err
	}
	buffers := make([]gpu.Handle, count)
	for i := range buffers {
		buffers[i] = d.objects.Insert(gpu.KindCommandBuffer, &object{pool: pool})
	}
	p.buffers = append(p.buffers, buffers...)
	return buffers, nil
}

func (d *Device) RecordDraw(commandBuffer gpu.Handle, desc *gpu.DrawDescriptor) error {
	d.Calls = append(d.Calls, "RecordDraw")
	cb, err := d.get(commandBuffer, gpu.KindCommandBuffer)
	if err != nil {
		return err
	}
	if _, err := d.get(desc.Pipeline, gpu.KindPipeline); err != nil {
		return err
	}
	if _, err := d.get(desc.Framebuffer, gpu.KindFramebuffer); err != nil {
		return err
	}
	record := *desc
	cb.record = &record
	return nil
}

func (d *Device) Submit(info *gpu.SubmitInfo, fence gpu.Handle) error {
	d.Calls = append(d.Calls, "Submit")
	for _, h := range info.WaitSemaphores {
		sem, err := d.get(h, gpu.KindSemaphore)
		if err != nil {
			return err
		}
		if !sem.signaled {
			d.violate("submit waits on unsignaled semaphore %d", h)
		}
		sem.signaled = false
	}

	var f *object
	if fence != gpu.NullHandle {
		var err error
		if f, err = d.get(fence, gpu.KindFence); err != nil {
			return err
		}
		if f.signaled || f.pending {
			d.violate("submit with fence %d that is not reset", fence)
		}
	}

	for _, h := range info.CommandBuffers {
		cb, err := d.get(h, gpu.KindCommandBuffer)
		if err != nil {
			return err
		}
		if cb.record == nil {
			d.violate("submit of unrecorded command buffer %d", h)
			continue
		}
		if !d.IsLive(cb.record.Pipeline) {
			d.violate("submit references destroyed pipeline %d", cb.record.Pipeline)
		}
		fb, err := d.get(cb.record.Framebuffer, gpu.KindFramebuffer)
		if err != nil {
			d.violate("submit references destroyed framebuffer %d", cb.record.Framebuffer)
			continue
		}

		if owner, ok := d.imageOwner[fb.imageIndex]; ok && owner != fence {
			if o, err := d.get(owner, gpu.KindFence); err == nil && o.pending {
				d.violate("image %d reused while fence %d is still in flight", fb.imageIndex, owner)
			}
		}
		d.imageOwner[fb.imageIndex] = fence

		d.Submissions = append(d.Submissions, Submission{
			Fence:       fence,
			ImageIndex:  fb.imageIndex,
			Pipeline:    cb.record.Pipeline,
			Framebuffer: cb.record.Framebuffer,
		})
		if f != nil {
			f.pipeline = cb.record.Pipeline
		}
	}

	for _, h := range info.SignalSemaphores {
		sem, err := d.get(h, gpu.KindSemaphore)
		if err != nil {
			return err
		}
		sem.signaled = true
	}
	if f != nil {
		f.pending = true
	}
	return nil
}

func (d *Device) Destroy(handles ...gpu.Handle) {
	d.Calls = append(d.Calls, "Destroy")
	for _, h := range handles {
		kind, ok := d.objects.Kind(h)
		if !ok {
			continue
		}
		switch kind {
		case gpu.KindPipeline:
			d.objects.Each(gpu.KindFence, func(fh gpu.Handle, f *object) {
				if f.pending && f.pipeline == h {
					d.violate("pipeline %d destroyed while fence %d is in flight", h, fh)
				}
			})
		case gpu.KindFence:
			if f, _ := d.get(h, gpu.KindFence); f != nil && f.pending {
				d.violate("fence %d destroyed while in flight", h)
			}
		case gpu.KindCommandPool:
			p, _ := d.get(h, gpu.KindCommandPool)
			for _, cb := range p.buffers {
				d.objects.Remove(cb)
			}
		case gpu.KindSwapchain:
			var images []gpu.Handle
			d.objects.Each(gpu.KindImage, func(ih gpu.Handle, img *object) {
				if img.swapchain == h {
					images = append(images, ih)
				}
			})
			slices.Sort(images)
			for _, ih := range images {
				d.objects.Remove(ih)
			}
		}
		d.objects.Remove(h)
	}
}
