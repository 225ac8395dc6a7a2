package wgpu_backend

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/Carmen-Shannon/retort/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

type fenceState struct {
	signaled bool
	pending  bool
}

type moduleState struct {
	module     *wgpu.ShaderModule
	entryPoint string
}

type framebufferState struct {
	renderPass gpu.Handle
	imageIndex int
	extent     gpu.Extent
}

// object is one arena entry. Only the fields matching the handle's kind are set.
type object struct {
	fence       *fenceState
	imageIndex  int
	swapchain   gpu.Handle
	module      *moduleState
	layout      *wgpu.PipelineLayout
	renderPass  *gpu.RenderPassDescriptor
	pipeline    *wgpu.RenderPipeline
	framebuffer *framebufferState
	buffers     []gpu.Handle
	record      *gpu.DrawDescriptor
}

type wgpuDevice struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	size func() (width, height int)

	presentMode          PresentMode
	forceFallbackAdapter bool
	imageCount           int

	objects *gpu.Arena[*object]

	configured gpu.Extent
	format     wgpu.TextureFormat

	current      *wgpu.Texture
	currentIndex int
	nextImage    int
}

var _ Device = &wgpuDevice{}

// NewDevice creates a WebGPU instance, surface, adapter, and device for the given surface.
// It panics when no adapter or device can be obtained, since nothing can be drawn without one.
//
// Parameters:
//   - surfaceDescriptor: the platform-specific surface descriptor from the window
//   - size: returns the current framebuffer size in pixels; consulted on every swapchain build
//   - options: functional options (present mode, fallback adapter, image count)
//
// Returns:
//   - Device: the ready device
func NewDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, size func() (width, height int), options ...BackendBuilderOption) Device {
	runtime.LockOSThread()

	d := &wgpuDevice{
		instance:    wgpu.CreateInstance(nil),
		size:        size,
		presentMode: PresentModeVSync,
		imageCount:  DefaultImageCount,
		objects:     gpu.NewArena[*object](),
	}
	for _, opt := range options {
		opt(d)
	}

	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		panic(err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Retort Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	common.Logger().Info("[WGPU] device ready", "imageCount", d.imageCount, "fallback", d.forceFallbackAdapter)
	return d
}

func (d *wgpuDevice) wgpuPresentMode() wgpu.PresentMode {
	switch d.presentMode {
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		return wgpu.PresentModeFifo
	}
}

func (d *wgpuDevice) surfaceExtent() gpu.Extent {
	w, h := d.size()
	return gpu.Extent{Width: uint32(max(w, 1)), Height: uint32(max(h, 1))}
}

func (d *wgpuDevice) CreateSemaphore() (gpu.Handle, error) {
	return d.objects.Insert(gpu.KindSemaphore, &object{}), nil
}

func (d *wgpuDevice) CreateFence(signaled bool) (gpu.Handle, error) {
	return d.objects.Insert(gpu.KindFence, &object{fence: &fenceState{signaled: signaled}}), nil
}

// drain blocks until the queue is empty and completes every pending fence.
func (d *wgpuDevice) drain() {
	d.device.Poll(true, nil)
	d.objects.Each(gpu.KindFence, func(_ gpu.Handle, o *object) {
		if o.fence.pending {
			o.fence.pending = false
			o.fence.signaled = true
		}
	})
}

func (d *wgpuDevice) WaitForFences(fences ...gpu.Handle) error {
	for _, h := range fences {
		if h == gpu.NullHandle {
			continue
		}
		o, err := d.objects.Get(h, gpu.KindFence)
		if err != nil {
			return err
		}
		if o.fence.pending {
			d.drain()
		}
	}
	return nil
}

func (d *wgpuDevice) ResetFences(fences ...gpu.Handle) error {
	for _, h := range fences {
		o, err := d.objects.Get(h, gpu.KindFence)
		if err != nil {
			return err
		}
		o.fence.signaled = false
	}
	return nil
}

func (d *wgpuDevice) WaitIdle() error {
	d.drain()
	return nil
}

func (d *wgpuDevice) CreateSwapchain(old gpu.Handle) (gpu.SwapchainInfo, error) {
	if old != gpu.NullHandle {
		if _, err := d.objects.Get(old, gpu.KindSwapchain); err != nil {
			return gpu.SwapchainInfo{}, err
		}
	}
	if d.current != nil {
		d.current.Release()
		d.current = nil
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return gpu.SwapchainInfo{}, gpu.ErrorSurfaceLost
	}
	d.format = capabilities.Formats[0]
	extent := d.surfaceExtent()

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.format,
		Width:       extent.Width,
		Height:      extent.Height,
		PresentMode: d.wgpuPresentMode(),
		AlphaMode:   capabilities.AlphaModes[0],
	})
	d.configured = extent
	d.nextImage = 0

	sc := d.objects.Insert(gpu.KindSwapchain, &object{})
	images := make([]gpu.Handle, d.imageCount)
	for i := range images {
		images[i] = d.objects.Insert(gpu.KindImage, &object{imageIndex: i, swapchain: sc})
	}

	common.Logger().Debug("[WGPU] surface configured", "width", extent.Width, "height", extent.Height)
	return gpu.SwapchainInfo{
		Swapchain: sc,
		Images:    images,
		Format:    gpu.Format(d.format),
		Extent:    extent,
	}, nil
}

func (d *wgpuDevice) CreateImageView(image gpu.Handle, format gpu.Format) (gpu.Handle, error) {
	img, err := d.objects.Get(image, gpu.KindImage)
	if err != nil {
		return gpu.NullHandle, err
	}
	if wgpu.TextureFormat(format) != d.format {
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	return d.objects.Insert(gpu.KindImageView, &object{imageIndex: img.imageIndex}), nil
}

func (d *wgpuDevice) AcquireNextImage(swapchain, signal gpu.Handle) (uint32, error) {
	if _, err := d.objects.Get(swapchain, gpu.KindSwapchain); err != nil {
		return 0, err
	}
	if _, err := d.objects.Get(signal, gpu.KindSemaphore); err != nil {
		return 0, err
	}
	if d.surfaceExtent() != d.configured {
		return 0, gpu.ErrorOutOfDate
	}
	if d.current != nil {
		return 0, gpu.ErrorValidationFailed
	}

	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		common.Logger().Debug("[WGPU] surface texture unavailable", "error", err)
		return 0, gpu.ErrorOutOfDate
	}
	d.current = tex
	d.currentIndex = d.nextImage
	d.nextImage = (d.nextImage + 1) % d.imageCount
	return uint32(d.currentIndex), nil
}

func (d *wgpuDevice) Present(swapchain gpu.Handle, imageIndex uint32, _ ...gpu.Handle) error {
	if _, err := d.objects.Get(swapchain, gpu.KindSwapchain); err != nil {
		return err
	}
	if d.current == nil || int(imageIndex) != d.currentIndex {
		return gpu.ErrorValidationFailed
	}

	d.surface.Present()
	d.current.Release()
	d.current = nil

	if d.surfaceExtent() != d.configured {
		return gpu.Suboptimal
	}
	return nil
}

// spirvBytes flattens SPIR-V words into the little-endian byte stream WebGPU consumes.
func spirvBytes(words []uint32) []byte {
	code := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(code[i*4:], w)
	}
	return code
}

func (d *wgpuDevice) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.Handle, error) {
	if len(desc.Code) == 0 {
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		SPIRVDescriptor: &wgpu.ShaderModuleSPIRVDescriptor{
			Code: spirvBytes(desc.Code),
		},
	})
	if err != nil {
		common.Logger().Warn("[WGPU] shader module rejected", "label", desc.Label, "error", err)
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	return d.objects.Insert(gpu.KindShaderModule, &object{module: &moduleState{module: module, entryPoint: desc.EntryPoint}}), nil
}

func (d *wgpuDevice) CreatePipelineLayout(label string) (gpu.Handle, error) {
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: label,
	})
	if err != nil {
		return gpu.NullHandle, fmt.Errorf("create pipeline layout %q: %w", label, gpu.ErrorInitializationFailed)
	}
	return d.objects.Insert(gpu.KindPipelineLayout, &object{layout: layout}), nil
}

func (d *wgpuDevice) CreateRenderPass(desc *gpu.RenderPassDescriptor) (gpu.Handle, error) {
	if desc.Format == gpu.FormatUndefined {
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	rp := *desc
	return d.objects.Insert(gpu.KindRenderPass, &object{renderPass: &rp}), nil
}

func toWGPUTopology(t gpu.Topology) wgpu.PrimitiveTopology {
	switch t {
	case gpu.TopologyTriangleList:
		return wgpu.PrimitiveTopologyTriangleList
	default:
		return wgpu.PrimitiveTopologyTriangleStrip
	}
}

func toWGPUCullMode(c gpu.CullMode) wgpu.CullMode {
	switch c {
	case gpu.CullModeFront:
		return wgpu.CullModeFront
	case gpu.CullModeBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func toWGPUFrontFace(f gpu.FrontFace) wgpu.FrontFace {
	if f == gpu.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func toWGPUWriteMask(m gpu.ColorWriteMask) wgpu.ColorWriteMask {
	var out wgpu.ColorWriteMask
	if m&gpu.ColorWriteMaskRed != 0 {
		out |= wgpu.ColorWriteMaskRed
	}
	if m&gpu.ColorWriteMaskGreen != 0 {
		out |= wgpu.ColorWriteMaskGreen
	}
	if m&gpu.ColorWriteMaskBlue != 0 {
		out |= wgpu.ColorWriteMaskBlue
	}
	if m&gpu.ColorWriteMaskAlpha != 0 {
		out |= wgpu.ColorWriteMaskAlpha
	}
	return out
}

func (d *wgpuDevice) CreateGraphicsPipeline(desc *gpu.PipelineDescriptor) (gpu.Handle, error) {
	layout, err := d.objects.Get(desc.Layout, gpu.KindPipelineLayout)
	if err != nil {
		return gpu.NullHandle, err
	}
	rp, err := d.objects.Get(desc.RenderPass, gpu.KindRenderPass)
	if err != nil {
		return gpu.NullHandle, err
	}
	vs, err := d.objects.Get(desc.VertexModule, gpu.KindShaderModule)
	if err != nil {
		return gpu.NullHandle, err
	}
	fs, err := d.objects.Get(desc.FragmentModule, gpu.KindShaderModule)
	if err != nil {
		return gpu.NullHandle, err
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     vs.module.module,
			EntryPoint: vs.module.entryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs.module.module,
			EntryPoint: fs.module.entryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpu.TextureFormat(rp.renderPass.Format),
					WriteMask: toWGPUWriteMask(desc.WriteMask),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  toWGPUTopology(desc.Topology),
			FrontFace: toWGPUFrontFace(desc.FrontFace),
			CullMode:  toWGPUCullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		common.Logger().Warn("[WGPU] render pipeline rejected", "label", desc.Label, "error", err)
		return gpu.NullHandle, gpu.ErrorValidationFailed
	}
	return d.objects.Insert(gpu.KindPipeline, &object{pipeline: created}), nil
}

func (d *wgpuDevice) CreateFramebuffer(renderPass, view gpu.Handle, extent gpu.Extent) (gpu.Handle, error) {
	if _, err := d.objects.Get(renderPass, gpu.KindRenderPass); err != nil {
		return gpu.NullHandle, err
	}
	v, err := d.objects.Get(view, gpu.KindImageView)
	if err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.Insert(gpu.KindFramebuffer, &object{framebuffer: &framebufferState{
		renderPass: renderPass,
		imageIndex: v.imageIndex,
		extent:     extent,
	}}), nil
}

func (d *wgpuDevice) CreateCommandPool() (gpu.Handle, error) {
	return d.objects.Insert(gpu.KindCommandPool, &object{}), nil
}

func (d *wgpuDevice) AllocateCommandBuffers(pool gpu.Handle, count int) ([]gpu.Handle, error) {
	p, err := d.objects.Get(pool, gpu.KindCommandPool)
	if err != nil {
		return nil, err
	}
	buffers := make([]gpu.Handle, count)
	for i := range buffers {
		buffers[i] = d.objects.Insert(gpu.KindCommandBuffer, &object{})
	}
	p.buffers = append(p.buffers, buffers...)
	return buffers, nil
}

func (d *wgpuDevice) RecordDraw(commandBuffer gpu.Handle, desc *gpu.DrawDescriptor) error {
	cb, err := d.objects.Get(commandBuffer, gpu.KindCommandBuffer)
	if err != nil {
		return err
	}
	record := *desc
	cb.record = &record
	return nil
}

// encode replays a recorded draw into a fresh command buffer targeting the acquired texture.
func (d *wgpuDevice) encode(record *gpu.DrawDescriptor) (*wgpu.CommandBuffer, error) {
	rp, err := d.objects.Get(record.RenderPass, gpu.KindRenderPass)
	if err != nil {
		return nil, err
	}
	pl, err := d.objects.Get(record.Pipeline, gpu.KindPipeline)
	if err != nil {
		return nil, err
	}
	fb, err := d.objects.Get(record.Framebuffer, gpu.KindFramebuffer)
	if err != nil {
		return nil, err
	}
	if fb.framebuffer.imageIndex != d.currentIndex {
		return nil, gpu.ErrorValidationFailed
	}

	view, err := d.current.CreateView(nil)
	if err != nil {
		return nil, gpu.ErrorOutOfDate
	}
	defer view.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, gpu.ErrorOutOfDeviceMemory
	}
	defer encoder.Release()

	clearColor := rp.renderPass.ClearColor
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: clearColor[0], G: clearColor[1], B: clearColor[2], A: clearColor[3],
				},
			},
		},
	})
	pass.SetPipeline(pl.pipeline)
	pass.SetViewport(0, 0, float32(record.Extent.Width), float32(record.Extent.Height), 0, 1)
	pass.SetScissorRect(0, 0, record.Extent.Width, record.Extent.Height)
	pass.Draw(record.VertexCount, 1, 0, 0)
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, gpu.ErrorValidationFailed
	}
	return cmd, nil
}

func (d *wgpuDevice) Submit(info *gpu.SubmitInfo, fence gpu.Handle) error {
	var f *object
	if fence != gpu.NullHandle {
		var err error
		if f, err = d.objects.Get(fence, gpu.KindFence); err != nil {
			return err
		}
	}
	if d.current == nil {
		return gpu.ErrorValidationFailed
	}

	for _, h := range info.CommandBuffers {
		cb, err := d.objects.Get(h, gpu.KindCommandBuffer)
		if err != nil {
			return err
		}
		if cb.record == nil {
			continue
		}
		cmd, err := d.encode(cb.record)
		if err != nil {
			return err
		}
		d.queue.Submit(cmd)
		cmd.Release()
	}

	if f != nil {
		f.fence.signaled = false
		f.fence.pending = true
	}
	return nil
}

func (d *wgpuDevice) Destroy(handles ...gpu.Handle) {
	for _, h := range handles {
		kind, ok := d.objects.Kind(h)
		if !ok {
			continue
		}
		o, _ := d.objects.Remove(h)
		switch kind {
		case gpu.KindShaderModule:
			o.module.module.Release()
		case gpu.KindPipelineLayout:
			o.layout.Release()
		case gpu.KindPipeline:
			o.pipeline.Release()
		case gpu.KindCommandPool:
			for _, cb := range o.buffers {
				d.objects.Remove(cb)
			}
		case gpu.KindSwapchain:
			var images []gpu.Handle
			d.objects.Each(gpu.KindImage, func(ih gpu.Handle, img *object) {
				if img.swapchain == h {
					images = append(images, ih)
				}
			})
			for _, ih := range images {
				d.objects.Remove(ih)
			}
		}
	}
}

func (d *wgpuDevice) Release() {
	d.drain()

	var live []gpu.Handle
	for _, kind := range []gpu.Kind{gpu.KindPipeline, gpu.KindPipelineLayout, gpu.KindShaderModule} {
		d.objects.Each(kind, func(h gpu.Handle, _ *object) {
			live = append(live, h)
		})
	}
	d.Destroy(live...)

	if d.current != nil {
		d.current.Release()
		d.current = nil
	}
	d.queue.Release()
	d.device.Release()
	d.surface.Release()
	d.adapter.Release()
	d.instance.Release()
}
