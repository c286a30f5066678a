// Package config loads renderer and run configuration from YAML.
//
// Defaults are embedded in the binary; a user file overrides only the keys
// it sets.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/circles/scene"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Device backends.
const (
	BackendNone   = "none"
	BackendNoop   = "noop"
	BackendVulkan = "vulkan"
)

// Config holds all configuration parameters.
type Config struct {
	Render RenderConfig `yaml:"render"`
	Scene  SceneConfig  `yaml:"scene"`
	Run    RunConfig    `yaml:"run"`
	Device DeviceConfig `yaml:"device"`
}

// RenderConfig holds image and rasterizer settings.
type RenderConfig struct {
	Width             int `yaml:"width"`
	Height            int `yaml:"height"`
	Workers           int `yaml:"workers"`            // 0 = GOMAXPROCS
	Lanes             int `yaml:"lanes"`              // Lanes per tile group
	FallbackThreshold int `yaml:"fallback_threshold"` // Below this, circles are drawn one by one
	MaxPixels         int `yaml:"max_pixels"`         // Largest accepted width*height
}

// SceneConfig selects the scene.
type SceneConfig struct {
	Name      string `yaml:"name"`
	Particles int    `yaml:"particles"` // 0 = scene default
	Seed      uint64 `yaml:"seed"`
}

// RunConfig controls the CLI frame loop.
type RunConfig struct {
	Frames    int     `yaml:"frames"`
	Output    string  `yaml:"output"`    // Directory for PNG frames; empty disables
	Preview   float64 `yaml:"preview"`   // Scale of written frames
	Telemetry string  `yaml:"telemetry"` // Directory for frames.csv; empty disables
}

// DeviceConfig selects the device backend.
type DeviceConfig struct {
	Backend string `yaml:"backend"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads the embedded defaults and overlays the file at path, if any.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	r := c.Render
	check(r.Width > 0 && r.Height > 0, "render size %dx%d", r.Width, r.Height)
	check(r.Workers >= 0, "render.workers %d", r.Workers)
	check(r.Lanes >= 0, "render.lanes %d", r.Lanes)
	check(r.MaxPixels >= 0, "render.max_pixels %d", r.MaxPixels)
	check(c.Scene.Particles >= 0, "scene.particles %d", c.Scene.Particles)
	check(c.Run.Frames >= 0, "run.frames %d", c.Run.Frames)
	check(c.Run.Preview > 0, "run.preview %g", c.Run.Preview)
	check(c.Device.Backend == BackendNone || c.Device.Backend == BackendNoop || c.Device.Backend == BackendVulkan,
		"device.backend %q", c.Device.Backend)

	if _, err := scene.Parse(c.Scene.Name); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SceneID returns the parsed scene identifier.
func (c *Config) SceneID() (scene.ID, error) {
	return scene.Parse(c.Scene.Name)
}

// WriteYAML saves the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // config snapshot is not secret
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
