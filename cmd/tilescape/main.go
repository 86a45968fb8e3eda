package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Carmen-Shannon/tilescape/engine"
	"github.com/Carmen-Shannon/tilescape/engine/config"
	"github.com/Carmen-Shannon/tilescape/engine/feed"
	"github.com/Carmen-Shannon/tilescape/engine/host"
	"github.com/Carmen-Shannon/tilescape/engine/renderer"
	"github.com/Carmen-Shannon/tilescape/engine/transport"
	"github.com/Carmen-Shannon/tilescape/engine/window"
	"github.com/Carmen-Shannon/tilescape/engine/world"
	"github.com/pkg/errors"
)

func main() {
	var configPath, policy, snapshots, addr, exportPath string
	var headless, debug, printConfig bool
	var fps, forceFPS float64
	flag.StringVar(&configPath, "config", "", "Path to a YAML settings file")
	flag.BoolVar(&headless, "headless", false, "Run without a window or GPU")
	flag.Float64Var(&fps, "fps", 0, "Target frame rate, 0 keeps the configured value")
	flag.Float64Var(&forceFPS, "force-fps", 0, "Feed the animator a fixed frame time of 1/force-fps")
	flag.StringVar(&policy, "policy", "", "Timestep policy: substep or clamp")
	flag.StringVar(&snapshots, "snapshots", "", "Comma separated snapshot files, directories or globs to replay")
	flag.StringVar(&addr, "addr", "", "Serve websocket and HTTP endpoints on this address")
	flag.StringVar(&exportPath, "export", "", "Write the final scene as binary glTF to this path on exit")
	flag.BoolVar(&debug, "debug", false, "Log reconciliation plans")
	flag.BoolVar(&printConfig, "print-config", false, "Print the effective settings and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			cfg.Renderer.Headless = headless
		case "fps":
			cfg.Scheduler.TargetFPS = fps
		case "force-fps":
			cfg.Scheduler.ForcedFPS = forceFPS
		case "policy":
			cfg.Animator.Policy = policy
		case "addr":
			cfg.Server.Addr = addr
		case "debug":
			cfg.Debug = debug
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(errors.Wrap(err, "flags"))
	}
	if printConfig {
		if err := cfg.Write(os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := newEngine(cfg)

	if cfg.Server.Addr != "" {
		srv := transport.NewServer(eng, transport.WithAddr(cfg.Server.Addr))
		eng.OnFPS(srv.PublishFPS)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Printf("[Main] Server stopped: %v", err)
				stop()
			}
		}()
	}
	if cfg.Debug {
		eng.OnFPS(func(fps float64) { log.Printf("[Main] FPS %.1f", fps) })
	}

	if snapshots != "" {
		paths, err := feed.Expand(strings.Split(snapshots, ","))
		if err != nil {
			log.Fatal(err)
		}
		f := feed.NewFeed(
			feed.WithWorkers(cfg.Feed.Workers),
			feed.WithQueue(cfg.Feed.Queue),
			feed.WithInterval(cfg.Feed.Interval),
			feed.WithBuilder(world.NewBuilder(cfg.WorldOptions()...)),
		)
		defer f.Close()
		go func() {
			if _, err := f.Play(ctx, paths, func(s feed.Snapshot) { eng.Submit(s.Descriptor) }); err != nil {
				log.Printf("[Main] Playback stopped: %v", err)
			}
		}()
	}

	if err := eng.Run(ctx); err != nil {
		log.Printf("[Main] Loop stopped: %v", err)
	}

	if exportPath != "" {
		if err := writeExport(eng, exportPath); err != nil {
			log.Fatal(err)
		}
		log.Printf("[Main] Wrote %s", exportPath)
	}
}

func newEngine(cfg config.Config) engine.Engine {
	options := []engine.EngineBuilderOption{
		engine.WithCacheOptions(cfg.CacheOptions()...),
		engine.WithReconcilerOptions(cfg.ReconcilerOptions()...),
		engine.WithAnimatorOptions(cfg.AnimatorOptions()...),
		engine.WithSchedulerOptions(cfg.SchedulerOptions()...),
		engine.WithWorldOptions(cfg.WorldOptions()...),
		engine.WithStepSeconds(cfg.World.StepSeconds),
	}

	presentMode := renderer.PresentModeVSync
	if strings.EqualFold(cfg.Renderer.PresentMode, "uncapped") {
		presentMode = renderer.PresentModeUncapped
	}
	rendererOptions := []renderer.RendererBuilderOption{
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Renderer.MSAA)),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.Software),
	}

	if cfg.Renderer.Headless {
		rendererOptions = append(rendererOptions, renderer.WithSize(cfg.Renderer.Width, cfg.Renderer.Height))
		return engine.NewEngine(append(options,
			engine.WithLoop(host.NewHeadless()),
			engine.WithRenderer(renderer.NewHeadlessRenderer(rendererOptions...)),
		)...)
	}

	win := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithIdleWait(cfg.Window.IdleWait),
	)
	eng := engine.NewEngine(append(options,
		engine.WithLoop(win),
		engine.WithRenderer(renderer.NewRenderer(renderer.BackendTypeWGPU, win, rendererOptions...)),
	)...)
	win.SetResizeCallback(eng.Resize)
	return eng
}

func writeExport(eng engine.Engine, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := eng.Export(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
