package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/integrators"
)

const (
	DefaultCameraDistance = 1e4
	DefaultInclination    = 60.0
	DefaultFOV            = 16.0
	DefaultPixels         = 32
	DefaultRingRadius     = 5.2
	DefaultAxisAngle      = 90.0
	DefaultOrbitRadius    = 3.0
)

// Source kinds.
const (
	SourcePhoton   = "photon"
	SourceParticle = "particle"
	SourceOrbit    = "orbit"
	SourceImage    = "image"
	SourceAxis     = "axis"
	SourceRing     = "ring"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Name      string          `yaml:"name,omitempty"`
	Spacetime SpacetimeConfig `yaml:"spacetime"`
	Source    SourceConfig    `yaml:"source"`
	Camera    CameraConfig    `yaml:"camera"`
	Image     ImageConfig     `yaml:"image"`
	Integrate IntegrateConfig `yaml:"integrate"`
}

type SpacetimeConfig struct {
	Spin        float64 `yaml:"spin"`
	Charge      float64 `yaml:"charge"`
	Penetrating bool    `yaml:"penetrating"`
	Precision   string  `yaml:"precision"`
}

type SourceConfig struct {
	Kind   string     `yaml:"kind"`
	X      [4]float64 `yaml:"x"`
	V      [4]float64 `yaml:"v"`
	Radius float64    `yaml:"radius"` // orbit radius
}

type CameraConfig struct {
	Distance      float64 `yaml:"distance"`
	Inclination   float64 `yaml:"inclination"`
	PositionAngle float64 `yaml:"position_angle"`
}

// ImageConfig describes the pixel layout of image, axis and ring sources.
type ImageConfig struct {
	FOV    float64 `yaml:"fov"`
	N      int     `yaml:"n"`
	Alpha0 float64 `yaml:"alpha0"`
	Beta0  float64 `yaml:"beta0"`
	Angle  float64 `yaml:"angle"`  // axis position angle, degrees
	Radius float64 `yaml:"radius"` // ring radius
}

// IntegrateConfig drives the integration calls. A nil L extends by the
// session default; a non-empty Sample is evaluated after the extension.
type IntegrateConfig struct {
	L       *float64           `yaml:"L,omitempty"`
	Samples int                `yaml:"samples"`
	Sample  []float64          `yaml:"sample,omitempty"`
	Stepper string             `yaml:"stepper"`
	Params  map[string]float64 `yaml:"params,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Spacetime: SpacetimeConfig{
			Spin:      0.9,
			Precision: "float64",
		},
		Source: SourceConfig{
			Kind:   SourceOrbit,
			Radius: DefaultOrbitRadius,
		},
		Camera: CameraConfig{
			Distance:    DefaultCameraDistance,
			Inclination: DefaultInclination,
		},
		Image: ImageConfig{
			FOV:    DefaultFOV,
			N:      DefaultPixels,
			Angle:  DefaultAxisAngle,
			Radius: DefaultRingRadius,
		},
		Integrate: IntegrateConfig{
			Stepper: "rk45",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// UsesCamera reports whether the source is traced from the camera screen.
func (c *Config) UsesCamera() bool {
	switch c.Source.Kind {
	case SourceImage, SourceAxis, SourceRing:
		return true
	}
	return false
}

func (c *Config) Validate() error {
	st := c.Spacetime
	if !finite(st.Spin) || !finite(st.Charge) || st.Charge < 0 {
		return fmt.Errorf("%w: spin=%g charge=%g", ErrInvalidConfig, st.Spin, st.Charge)
	}
	if _, err := dynamo.ParsePrecision(st.Precision); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := integrators.ByName(c.Integrate.Stepper); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Source.Kind {
	case SourcePhoton, SourceParticle:
	case SourceOrbit:
		if !(c.Source.Radius > 1) {
			return fmt.Errorf("%w: orbit radius %g", ErrInvalidConfig, c.Source.Radius)
		}
	case SourceImage, SourceAxis, SourceRing:
		if !(c.Camera.Distance > 0) {
			return fmt.Errorf("%w: camera distance %g", ErrInvalidConfig, c.Camera.Distance)
		}
		if c.Image.N <= 0 {
			return fmt.Errorf("%w: %d pixels", ErrInvalidConfig, c.Image.N)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source.Kind)
	}

	if c.Integrate.Samples < 0 {
		return fmt.Errorf("%w: samples %d", ErrInvalidConfig, c.Integrate.Samples)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
