// Command retort opens a window that renders a WGSL fragment shader over the whole surface and
// reloads it whenever the file changes on disk.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/Carmen-Shannon/retort/engine"
	"github.com/Carmen-Shannon/retort/engine/gpu/wgpu_backend"
	"github.com/Carmen-Shannon/retort/engine/overlay"
	"github.com/Carmen-Shannon/retort/engine/profiler"
	"github.com/Carmen-Shannon/retort/engine/renderer"
	"github.com/Carmen-Shannon/retort/engine/renderer/shader"
	"github.com/Carmen-Shannon/retort/engine/watch"
	"github.com/Carmen-Shannon/retort/engine/window"
	"github.com/spf13/cobra"
)

type options struct {
	vsync           bool
	fallbackAdapter bool
	width           int
	height          int
	pollInterval    time.Duration
	frameLimit      float64
	statWorkers     int
	validate        bool
	defines         map[string]string
	verbose         bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "retort [shader.wgsl]",
		Short: "Live preview of a WGSL fragment shader",
		Long: "retort renders a fragment shader over a full-screen quad and recompiles it every time the file\n" +
			"is saved. Compile errors are shown in the overlay while the last good shader keeps rendering.\n" +
			"Press Escape to toggle the overlay.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return run(opts, path)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.vsync, "vsync", true, "present with vertical sync; false presents uncapped")
	f.BoolVar(&opts.fallbackAdapter, "fallback-adapter", false, "force the software (fallback) adapter")
	f.IntVar(&opts.width, "width", 1280, "initial window width in pixels")
	f.IntVar(&opts.height, "height", 720, "initial window height in pixels")
	f.DurationVar(&opts.pollInterval, "poll-interval", watch.DefaultInterval, "how often the shader file is checked for changes")
	f.Float64Var(&opts.frameLimit, "frame-limit", 0, "maximum frames per second, 0 for no limit")
	f.IntVar(&opts.statWorkers, "stat-workers", 0, "stat watched files on this many goroutines, 0 or 1 to stat inline")
	f.BoolVar(&opts.validate, "validate", false, "validate the shader IR before generating SPIR-V")
	f.StringToStringVarP(&opts.defines, "define", "D", nil, "predefine a @retort define, NAME=VALUE")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	return cmd
}

func run(opts *options, path string) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	title := "Retort"
	if path != "" {
		title = common.Coalesce(filepath.Base(path), title)
	}

	win := window.NewWindow(
		window.WithTitle(title),
		window.WithWidth(opts.width),
		window.WithHeight(opts.height),
	)
	defer win.Close()

	presentMode := wgpu_backend.PresentModeVSync
	if !opts.vsync {
		presentMode = wgpu_backend.PresentModeUncapped
	}
	device := wgpu_backend.NewDevice(win.SurfaceDescriptor(), win.Size,
		wgpu_backend.WithPresentMode(presentMode),
		wgpu_backend.WithForceSoftwareRenderer(opts.fallbackAdapter),
	)
	defer device.Release()

	compilerOptions := []shader.CompilerBuilderOption{shader.WithValidation(opts.validate)}
	for name, value := range opts.defines {
		compilerOptions = append(compilerOptions, shader.WithDefine(name, value))
	}

	r, err := renderer.NewRenderer(device, shader.NewCompiler(compilerOptions...),
		renderer.WithLabel("retort"),
		renderer.WithProfiler(profiler.NewProfiler(profiler.WithMemStats(opts.verbose))),
	)
	if err != nil {
		return fmt.Errorf("retort: %w", err)
	}

	watcher := watch.NewWatcher(watch.NewQueue(),
		watch.WithInterval(opts.pollInterval),
		watch.WithPoolOptions(watch.WithWorkerPool(opts.statWorkers)),
	)

	e, err := engine.NewEngine(win, r,
		engine.WithWatcher(watcher),
		engine.WithOverlay(overlay.NewContext(overlay.WithTitle(title))),
		engine.WithRenderFrameLimit(opts.frameLimit),
	)
	if err != nil {
		_ = watcher.Close()
		r.Release()
		return fmt.Errorf("retort: %w", err)
	}

	if path != "" {
		if err := e.Open(path); err != nil {
			// the builtin gradient keeps rendering and the file stays watched
			common.Logger().Warn("[Retort] initial shader failed", "file", path, "error", err)
		}
	}

	common.Logger().Info("[Retort] running", "images", r.ImageCount(), "format", uint32(r.Format()))
	return e.Run()
}
