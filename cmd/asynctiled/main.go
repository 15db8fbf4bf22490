// Command asynctiled is the offline entry point for the tiled compute
// subsystem: with no flags it renders a fixed pair of PNGs (a flat clear
// pass and a Mandelbrot pass) to /tmp; with -config it instead runs the
// interactive coordinator path against an ebiten window and writes no PNGs.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/fractaltile/asynctiled/config"
	"github.com/fractaltile/asynctiled/coordinator"
	"github.com/fractaltile/asynctiled/launcher"
	"github.com/fractaltile/asynctiled/mandelbrot"
	"github.com/fractaltile/asynctiled/presenter/ebitenpresenter"
	"github.com/fractaltile/asynctiled/telemetry"
	"github.com/fractaltile/asynctiled/tile"
)

const (
	framebufferWidth  = 2048
	framebufferHeight = 1536
	clearPNGPath      = "/tmp/async_tiled-clear.png"
	mandelbrotPNGPath = "/tmp/async_tiled-mandelbrot.png"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; when set, runs the interactive coordinator against a window instead of the offline PNG pair")
	maxIters := flag.Int("maxiters", 0, "override the Mandelbrot iteration budget (0 = use config/default)")
	tileSize := flag.Int("tile-size", 0, "override the square tile size in pixels (0 = use config/default)")
	mqttBroker := flag.String("mqtt-broker", "", "optional MQTT broker address for generation-complete telemetry")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *maxIters > 0 {
		cfg.MaxIterations = *maxIters
	}
	if *tileSize > 0 {
		cfg.TileWidth, cfg.TileHeight = uint16(*tileSize), uint16(*tileSize)
	}
	if *mqttBroker != "" {
		if cfg.MQTT == nil {
			cfg.MQTT = &config.MQTTConfig{}
		}
		cfg.MQTT.Broker = *mqttBroker
	}

	var emitter telemetry.Emitter = telemetry.NoOp{}
	if cfg.MQTT != nil && cfg.MQTT.Broker != "" {
		mq := telemetry.NewMQTTEmitter(cfg.MQTT)
		if err := mq.Connect(); err != nil {
			slog.Error("mqtt connect failed, continuing without telemetry", "error", err)
		} else {
			defer mq.Disconnect()
			emitter = mq
		}
	}

	if *configPath == "" {
		if err := renderOfflinePair(cfg, emitter); err != nil {
			slog.Error("offline render failed", "error", err)
			os.Exit(1)
		}
		slog.Info("wrote offline PNG pair", "clear", clearPNGPath, "mandelbrot", mandelbrotPNGPath)
		return
	}

	if err := runInteractive(cfg); err != nil {
		slog.Error("interactive session failed", "error", err)
		os.Exit(1)
	}
}

// renderOfflinePair writes two fixed-path PNGs at 2048x1536 to /tmp and
// reports a telemetry event for the Mandelbrot generation.
func renderOfflinePair(cfg *config.Config, emitter telemetry.Emitter) error {
	spec := tile.TileSpec{
		Format:      tile.RGBA8888,
		TileWidth:   cfg.TileWidth,
		TileHeight:  cfg.TileHeight,
		StrideBytes: tile.RoundUpToCacheline(framebufferWidth*4, cfg.CachelineLength),
	}
	grid := tile.GridDims{
		TilesX: framebufferWidth / int(spec.TileWidth),
		TilesY: framebufferHeight / int(spec.TileHeight),
	}

	clearKernel := func(spec tile.TileSpec, t tile.Tile) tile.Tile {
		for y := 0; y < int(spec.TileHeight); y++ {
			row := t.RowAddress(spec, y)
			for x := 0; x < int(spec.TileWidth); x++ {
				o := x * 4
				row[o+0], row[o+1], row[o+2], row[o+3] = 192, 224, 255, 255
			}
		}
		return t
	}
	if err := renderToPNG(spec, grid, clearKernel, clearPNGPath); err != nil {
		return fmt.Errorf("clear pass: %w", err)
	}

	var newest atomic.Uint32
	kernel := mandelbrot.New(
		mandelbrot.Bounds{Left: cfg.Bounds.Left, Right: cfg.Bounds.Right, Top: cfg.Bounds.Top, Bottom: cfg.Bounds.Bottom},
		cfg.MaxIterations, framebufferWidth, framebufferHeight, 0, &newest,
	)
	if err := renderToPNG(spec, grid, kernel, mandelbrotPNGPath); err != nil {
		return fmt.Errorf("mandelbrot pass: %w", err)
	}

	if err := emitter.EmitGenerationComplete(telemetry.Event{
		Transaction: 0,
		TileCount:   grid.Count(),
		Width:       cfg.Bounds.Right - cfg.Bounds.Left,
		Height:      cfg.Bounds.Top - cfg.Bounds.Bottom,
	}); err != nil {
		slog.Warn("telemetry emit failed", "error", err)
	}
	return nil
}

func renderToPNG(spec tile.TileSpec, grid tile.GridDims, kernel launcher.Kernel, path string) error {
	w, h := tile.PixelDims(spec, grid)
	fb := tile.NewFramebuffer(w, h, 1)

	_, handles, err := launcher.Launch(context.Background(), spec, grid, fb, kernel)
	if err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	for _, handle := range handles {
		<-handle
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcOff := y * fb.StrideBytes
		dstOff := y * img.Stride
		copy(img.Pix[dstOff:dstOff+w*4], fb.Pix[srcOff:srcOff+w*4])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

// runInteractive drives the ZoomCoordinator against an ebiten window,
// signal-aware so Ctrl-C shuts the coordinator down before exiting.
func runInteractive(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("received shutdown signal")
		cancel()
	}()

	grid := tile.GridDims{TilesX: 16, TilesY: 12}
	spec := tile.TileSpec{
		Format:      tile.RGBA8888,
		TileWidth:   cfg.TileWidth,
		TileHeight:  cfg.TileHeight,
		StrideBytes: tile.RoundUpToCacheline(int(cfg.TileWidth)*grid.TilesX*4, cfg.CachelineLength),
	}

	pres := ebitenpresenter.New(1)
	coord := coordinator.New(pres, spec, grid, cfg.MaxIterations, cfg.CachelineLength, slog.Default())
	coord.Init(1024, 768)

	return pres.Run("asynctiled", 1024, 768, func() error {
		select {
		case <-ctx.Done():
			coord.Shutdown()
			return ctx.Err()
		default:
			return nil
		}
	})
}
