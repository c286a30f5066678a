// Command circlerender renders circle scenes frame by frame and writes PNG
// frames, per-frame telemetry and a timing summary.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/circles"
	"github.com/gogpu/circles/config"
	"github.com/gogpu/circles/internal/device"
	"github.com/gogpu/circles/scene"
	"github.com/gogpu/circles/telemetry"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("circlerender failed", "error", err)
		os.Exit(1)
	}
}

// options are the command-line flags. Flags left unset keep the value from
// the configuration file.
type options struct {
	configPath  string
	scene       string
	particles   int
	width       int
	height      int
	frames      int
	output      string
	preview     float64
	telemetry   string
	device      string
	listDevices bool
	verbose     bool
	bench       bool
}

func parseFlags(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	o := &options{}
	fs := flag.NewFlagSet("circlerender", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	fs.StringVar(&o.scene, "scene", "", fmt.Sprintf("Scene name %v", scene.Names()))
	fs.IntVar(&o.particles, "n", 0, "Particle count for resizable scenes (0 = scene default)")
	fs.IntVar(&o.width, "width", 0, "Image width")
	fs.IntVar(&o.height, "height", 0, "Image height")
	fs.IntVar(&o.frames, "frames", 0, "Number of frames to render")
	fs.StringVar(&o.output, "out", "", "Directory for PNG frames (empty = none)")
	fs.Float64Var(&o.preview, "preview", 0, "Scale of written PNG frames")
	fs.StringVar(&o.telemetry, "telemetry", "", "Directory for frames.csv and config snapshot")
	fs.StringVar(&o.device, "device", "", "Device backend: none, noop or vulkan")
	fs.BoolVar(&o.listDevices, "list-devices", false, "List adapters of the device backend and exit")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")
	fs.BoolVar(&o.bench, "bench", false, "Skip PNG output and report timings only")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// apply overlays explicitly set flags onto cfg.
func (o *options) apply(cfg *config.Config, set map[string]bool) {
	if set["scene"] {
		cfg.Scene.Name = o.scene
	}
	if set["n"] {
		cfg.Scene.Particles = o.particles
	}
	if set["width"] {
		cfg.Render.Width = o.width
	}
	if set["height"] {
		cfg.Render.Height = o.height
	}
	if set["frames"] {
		cfg.Run.Frames = o.frames
	}
	if set["out"] {
		cfg.Run.Output = o.output
	}
	if set["preview"] {
		cfg.Run.Preview = o.preview
	}
	if set["telemetry"] {
		cfg.Run.Telemetry = o.telemetry
	}
	if set["device"] {
		cfg.Device.Backend = o.device
	}
	if o.bench {
		cfg.Run.Output = ""
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	o, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	circles.SetLogger(logger)
	defer circles.SetLogger(nil)

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.apply(cfg, set)

	p := message.NewPrinter(language.English)
	if o.listDevices {
		return listDevices(p, stdout, cfg.Device.Backend)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return render(cfg, p, stdout, logger)
}

func listDevices(p *message.Printer, w io.Writer, backend string) error {
	if backend == config.BackendNone {
		backend = config.BackendNoop
	}
	adapters, err := device.Enumerate(backend)
	if err != nil {
		return err
	}
	for i, a := range adapters {
		p.Fprintf(w, "%d: %s (%s, %s) backend=%s driver=%s\n",
			i, a.Name, a.Vendor, a.DeviceType, a.Backend, a.Driver)
	}
	return nil
}

func render(cfg *config.Config, p *message.Printer, stdout io.Writer, logger *slog.Logger) error {
	r, err := circles.New(cfg.Render.Width, cfg.Render.Height, cfg.Scene.Name, circles.ConfigOptions(cfg)...)
	if err != nil {
		return err
	}
	defer r.Close()

	if cfg.Run.Output != "" {
		if err := os.MkdirAll(cfg.Run.Output, 0o755); err != nil { //nolint:gosec // output directory
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	writer, err := telemetry.NewWriter(cfg.Run.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			logger.Warn("closing telemetry", "error", cerr)
		}
	}()
	if writer != nil {
		if err := cfg.WriteYAML(filepath.Join(writer.Dir(), "config.yaml")); err != nil {
			return err
		}
	}

	perf := telemetry.NewPerfCollector(max(cfg.Run.Frames, 1))
	for frame := range cfg.Run.Frames {
		perf.StartFrame()
		perf.StartPhase(telemetry.PhaseAdvance)
		if err := r.Advance(); err != nil {
			return err
		}
		perf.StartPhase(telemetry.PhaseClear)
		if err := r.Clear(); err != nil {
			return err
		}
		perf.StartPhase(telemetry.PhaseRender)
		if err := r.Render(); err != nil {
			return err
		}
		perf.StartPhase(telemetry.PhaseReadBack)
		img, err := r.Image()
		if err != nil {
			return err
		}
		sample := perf.EndFrame()

		st := r.Stats()
		rec := telemetry.FrameRecord{
			Scene:      r.Scene().String(),
			Strategy:   st.Strategy,
			Particles:  st.Particles,
			Tiles:      st.Tiles,
			Covered:    st.Covered,
			Candidates: st.Candidates,
		}
		rec.Fill(sample)
		if err := writer.Write(rec); err != nil {
			return err
		}

		if cfg.Run.Output != "" {
			path := filepath.Join(cfg.Run.Output, fmt.Sprintf("frame_%04d.png", frame))
			if err := img.SavePNG(path, cfg.Run.Preview); err != nil {
				return err
			}
		}
	}

	perf.Stats().LogStats(logger)
	sum := telemetry.Summarize(perf.Durations())
	p.Fprintf(stdout, "%s: %d particles, %dx%d, %d frames on %s\n",
		r.Scene(), r.Store().Len(), r.Width(), r.Height(), sum.Frames, r.DeviceName())
	p.Fprintf(stdout, "frame ms: mean %.3f stddev %.3f p50 %.3f p95 %.3f min %.3f max %.3f\n",
		sum.Mean, sum.StdDev, sum.P50, sum.P95, sum.Min, sum.Max)
	if sum.Frames > 0 {
		st := r.Stats()
		p.Fprintf(stdout, "last frame: %s, %d of %d tiles covered, %d candidates\n",
			st.Strategy, st.Covered, st.Tiles, st.Candidates)
	}
	return nil
}
