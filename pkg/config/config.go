// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/framerec/pkg/orchestrator"
	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// Config represents the full configuration for framerec.
type Config struct {
	// Output
	OutputPath string `yaml:"output"`
	OutputDir  string `yaml:"output_dir"`

	// Source
	Source SourceConfig `yaml:"source"`

	// Encoding
	FPS              int    `yaml:"fps"`
	Bitrate          int    `yaml:"bitrate"`
	Codec            string `yaml:"codec"`
	Layout           string `yaml:"layout"`
	KeyFrameInterval int    `yaml:"keyframe_interval"` // seconds
	FragmentSamples  int    `yaml:"fragment_samples"`
	FFmpegPath       string `yaml:"ffmpeg_path"`

	// Pipeline
	QueueSize       int    `yaml:"queue_size"`
	DropPolicy      string `yaml:"drop_policy"`
	SubmitTimeoutMs int    `yaml:"submit_timeout_ms"`
	InputSlots      int    `yaml:"input_slots"`
	OutputSlots     int    `yaml:"output_slots"`
	InputTimeoutMs  int    `yaml:"input_timeout_ms"`
	DrainTimeoutMs  int    `yaml:"drain_timeout_ms"`
	StopTimeoutMs   int    `yaml:"stop_timeout_ms"`

	// Reporting
	NotifyUDP string `yaml:"notify_udp"`
	Summary   string `yaml:"summary"`
	LogLevel  string `yaml:"log_level"`
}

// SourceConfig selects and shapes the capture source.
type SourceConfig struct {
	Kind        string `yaml:"kind"` // synthetic, dir or raw
	Input       string `yaml:"input"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Frames      int    `yaml:"frames"`
	PixelFormat string `yaml:"pixel_format"`
	Realtime    bool   `yaml:"realtime"`
	Background  string `yaml:"background"`
	Foreground  string `yaml:"foreground"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Kind:        "synthetic",
			Width:       640,
			Height:      480,
			Frames:      90,
			PixelFormat: "rgba",
			Background:  "#1a1a2e",
			Foreground:  "#4ade80",
		},

		FPS:              30,
		Bitrate:          2_000_000,
		Codec:            "h264",
		Layout:           "yuv420p",
		KeyFrameInterval: 1,
		FragmentSamples:  60,

		QueueSize:       64,
		DropPolicy:      "backpressure",
		SubmitTimeoutMs: 50,
		InputSlots:      4,
		OutputSlots:     8,
		InputTimeoutMs:  20,
		DrainTimeoutMs:  20,
		StopTimeoutMs:   10_000,

		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.FPS <= 0:
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	case c.Bitrate <= 0:
		return fmt.Errorf("bitrate must be positive, got %d", c.Bitrate)
	case c.Codec != "h264":
		return fmt.Errorf("codec %q is not supported, only h264", c.Codec)
	case c.KeyFrameInterval < 0:
		return fmt.Errorf("keyframe_interval must not be negative, got %d", c.KeyFrameInterval)
	case c.QueueSize < 0:
		return fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize)
	}
	if _, ok := pipeline.ParseChromaLayout(c.Layout); !ok {
		return fmt.Errorf("layout %q is not supported, use yuv420p or nv12", c.Layout)
	}
	if _, ok := ports.ParseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not supported, use debug, info, warn, error or quiet", c.LogLevel)
	}
	if _, ok := orchestrator.ParsePolicy(c.DropPolicy); !ok {
		return fmt.Errorf("drop_policy %q is not supported, use backpressure or drop-oldest", c.DropPolicy)
	}

	switch c.Source.Kind {
	case "synthetic", "dir", "raw":
	default:
		return fmt.Errorf("source kind %q is not supported", c.Source.Kind)
	}
	if c.Source.Kind != "synthetic" && c.Source.Input == "" {
		return fmt.Errorf("source %s needs an input", c.Source.Kind)
	}
	if c.Source.Width <= 0 || c.Source.Height <= 0 || c.Source.Width%2 != 0 || c.Source.Height%2 != 0 {
		return fmt.Errorf("%w: %dx%d", pipeline.ErrInvalidFrameGeometry, c.Source.Width, c.Source.Height)
	}
	if pipeline.ParsePixelFormat(c.Source.PixelFormat) == pipeline.PixelFormatUnknown {
		return fmt.Errorf("%w: %q", pipeline.ErrUnsupportedPixelFormat, c.Source.PixelFormat)
	}
	return nil
}

// OutputFile returns the configured output path, or video_<unix millis>.mp4
// inside OutputDir when none is set.
func (c Config) OutputFile(now time.Time) string {
	if c.OutputPath != "" {
		return c.OutputPath
	}
	name := fmt.Sprintf("video_%d.mp4", now.UnixMilli())
	return filepath.Join(c.OutputDir, name)
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	layout, _ := pipeline.ParseChromaLayout(c.Layout)
	policy, _ := orchestrator.ParsePolicy(c.DropPolicy)

	return orchestrator.Config{
		OutputPath: c.OutputFile(time.Now()),

		FPS:              c.FPS,
		Bitrate:          c.Bitrate,
		Codec:            c.Codec,
		Layout:           layout,
		KeyFrameInterval: time.Duration(c.KeyFrameInterval) * time.Second,
		FragmentSamples:  c.FragmentSamples,

		QueueSize:     c.QueueSize,
		Policy:        policy,
		SubmitTimeout: millis(c.SubmitTimeoutMs),

		InputSlots:   c.InputSlots,
		OutputSlots:  c.OutputSlots,
		InputTimeout: millis(c.InputTimeoutMs),
		DrainTimeout: millis(c.DrainTimeoutMs),
		StopTimeout:  millis(c.StopTimeoutMs),
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ParseColor parses "#rrggbb" or "rrggbb". Anything else is black.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.Black
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
