package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config collects everything one editing/export run needs. Values come
// from an optional YAML file overlaid by command-line flags; flags win.
type Config struct {
	BaseDir      string `yaml:"base_dir"`      // recordings root
	RecordingDir string `yaml:"recording_dir"` // explicit recording, overrides discovery
	OutputPath   string `yaml:"output_path"`

	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	FPS         int    `yaml:"fps"`
	Format      string `yaml:"format"` // mp4, mp4_hevc
	BitrateKbps int    `yaml:"bitrate_kbps"`

	Aspect   string  `yaml:"aspect"` // 16:9, 1:1, 9:16
	MaxZoom  float64 `yaml:"max_zoom"`
	RampInS  float64 `yaml:"ramp_in_s"`
	RampOutS float64 `yaml:"ramp_out_s"`

	BuildVersion string `yaml:"-"`
}

// Default returns the configuration used when no file and no flags are given.
func Default() Config {
	return Config{
		BaseDir:     defaultBaseDir(),
		Width:       1920,
		Height:      1080,
		FPS:         30,
		Format:      "mp4",
		BitrateKbps: 8000,
		Aspect:      "16:9",
		MaxZoom:     2.0,
		RampInS:     0.4,
		RampOutS:    0.4,
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects geometry and parameters the pipeline cannot encode.
func (c Config) Validate() error {
	if c.Width < 2 || c.Height < 2 {
		return fmt.Errorf("output size %dx%d too small", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	switch c.Aspect {
	case "16:9", "1:1", "9:16":
	default:
		return fmt.Errorf("unknown aspect %q (want 16:9, 1:1 or 9:16)", c.Aspect)
	}
	switch c.Format {
	case "mp4", "mp4_hevc":
	default:
		return fmt.Errorf("unknown format %q (want mp4 or mp4_hevc)", c.Format)
	}
	if c.MaxZoom <= 1 {
		return fmt.Errorf("max_zoom must exceed 1, got %g", c.MaxZoom)
	}
	return nil
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "recordings"
	}
	return home + "/recordings"
}
