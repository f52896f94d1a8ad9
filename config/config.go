package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	commonerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/rhythm"
	"github.com/sirupsen/logrus"
)

var ErrInvalidConfig = errors.New("invalid config")

// Transport kinds.
const (
	TransportNone = "none"
	TransportOSC  = "osc"
	TransportWAV  = "wav"
)

// Transport selects the audio engine playback follows.
type Transport struct {
	Kind      string  `toml:"kind"`
	OSCHost   string  `toml:"osc_host"`
	OSCPort   int     `toml:"osc_port"`
	WAVPath   string  `toml:"wav_path"`
	BaseTempo float64 `toml:"base_tempo"`
}

// Remote configures the OSC control server. An empty Listen disables it.
type Remote struct {
	Listen string `toml:"listen"`
}

// Config represents options that configure a timeline and its host
type Config struct {
	Tempo         float64              `toml:"tempo"`
	TimeSignature rhythm.TimeSignature `toml:"time_signature"`

	// Render loop cadence in frames per second
	FPS int `toml:"fps"`

	Loop        bool    `toml:"loop"`
	SnapToGrid  bool    `toml:"snap_to_grid"`
	Subdivision float64 `toml:"subdivision"`

	// Zoom of any ruler drawn over the timeline
	PixelsPerSecond float64 `toml:"pixels_per_second"`

	// The duration is max(MinDuration, last event + DurationPadding)
	MinDuration     float64 `toml:"min_duration"`
	DurationPadding float64 `toml:"duration_padding"`

	DriftToleranceMS   int `toml:"drift_tolerance_ms"`
	ResyncIntervalMS   int `toml:"resync_interval_ms"`
	TransportTimeoutMS int `toml:"transport_timeout_ms"`

	LogLevel string `toml:"log_level"`

	Transport Transport `toml:"transport"`
	Remote    Remote    `toml:"remote"`
}

// NewConfig creates a Config with reasonable defaults for real usage
func NewConfig() Config {
	return Config{
		Tempo:              rhythm.DefaultTempo,
		TimeSignature:      rhythm.CommonTime,
		FPS:                60,
		Subdivision:        rhythm.DefaultSubdivision,
		PixelsPerSecond:    100,
		MinDuration:        10,
		DurationPadding:    2,
		DriftToleranceMS:   10,
		ResyncIntervalMS:   250,
		TransportTimeoutMS: 2000,
		LogLevel:           logrus.InfoLevel.String(),
		Transport: Transport{
			Kind:      TransportNone,
			OSCHost:   "127.0.0.1",
			OSCPort:   9000,
			BaseTempo: rhythm.DefaultTempo,
		},
	}
}

// LoadFile reads a TOML file over the defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, commonerrors.WithStackTrace(err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, commonerrors.WithStackTrace(fmt.Errorf("%s: %w", path, err))
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown keys
// are an error.
func Parse(data []byte) (Config, error) {
	cfg := NewConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := rhythm.ValidateTempo(c.Tempo); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.TimeSignature.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	positive := map[string]float64{
		"fps":                  float64(c.FPS),
		"subdivision":          c.Subdivision,
		"pixels_per_second":    c.PixelsPerSecond,
		"drift_tolerance_ms":   float64(c.DriftToleranceMS),
		"resync_interval_ms":   float64(c.ResyncIntervalMS),
		"transport_timeout_ms": float64(c.TransportTimeoutMS),
	}
	for name, v := range positive {
		if !scale.Finite(v) || v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, name, v)
		}
	}
	if !scale.Finite(c.MinDuration) || c.MinDuration < 0 {
		return fmt.Errorf("%w: min_duration must not be negative, got %v", ErrInvalidConfig, c.MinDuration)
	}
	if !scale.Finite(c.DurationPadding) || c.DurationPadding < 0 {
		return fmt.Errorf("%w: duration_padding must not be negative, got %v", ErrInvalidConfig, c.DurationPadding)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Transport.Kind {
	case TransportNone, "":
	case TransportOSC:
		if c.Transport.OSCHost == "" || c.Transport.OSCPort <= 0 || c.Transport.OSCPort > 65535 {
			return fmt.Errorf("%w: osc transport needs osc_host and osc_port", ErrInvalidConfig)
		}
	case TransportWAV:
		if c.Transport.WAVPath == "" {
			return fmt.Errorf("%w: wav transport needs wav_path", ErrInvalidConfig)
		}
		if err := rhythm.ValidateTempo(c.Transport.BaseTempo); err != nil {
			return fmt.Errorf("%w: base_tempo: %v", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport.Kind)
	}
	return nil
}

func (c Config) DriftTolerance() time.Duration {
	return time.Duration(c.DriftToleranceMS) * time.Millisecond
}

func (c Config) ResyncInterval() time.Duration {
	return time.Duration(c.ResyncIntervalMS) * time.Millisecond
}

func (c Config) TransportTimeout() time.Duration {
	return time.Duration(c.TransportTimeoutMS) * time.Millisecond
}
