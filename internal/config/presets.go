package config

import "sort"

func ptr(v float64) *float64 { return &v }

var Presets = map[string]*Config{
	"orbit": {
		Spacetime: SpacetimeConfig{Spin: 0.9, Precision: "float64"},
		Source:    SourceConfig{Kind: SourceOrbit, Radius: 3},
		Integrate: IntegrateConfig{L: ptr(100), Stepper: "rk45"},
	},
	"plunge": {
		Spacetime: SpacetimeConfig{Spin: 0.5, Precision: "float64"},
		Source: SourceConfig{
			Kind: SourceParticle,
			X:    [4]float64{0, 10, 0, 0},
			V:    [4]float64{1, -0.1, 0.2, 0},
		},
		Integrate: IntegrateConfig{L: ptr(200), Stepper: "rk45"},
	},
	"flyby": {
		Spacetime: SpacetimeConfig{Spin: 0.7, Precision: "float64"},
		Source: SourceConfig{
			Kind: SourcePhoton,
			X:    [4]float64{0, 50, 6, 0},
			V:    [4]float64{1, -1, 0, 0},
		},
		Integrate: IntegrateConfig{L: ptr(100), Stepper: "rk45"},
	},
	"image": {
		Spacetime: SpacetimeConfig{Spin: 0.9, Precision: "float32"},
		Source:    SourceConfig{Kind: SourceImage},
		Camera:    CameraConfig{Distance: 1e4, Inclination: 60},
		Image:     ImageConfig{FOV: 16, N: 16},
		Integrate: IntegrateConfig{Stepper: "rk45"},
	},
	"axis": {
		Spacetime: SpacetimeConfig{Spin: 0.9, Precision: "float64"},
		Source:    SourceConfig{Kind: SourceAxis},
		Camera:    CameraConfig{Distance: 1e3, Inclination: 17},
		Image:     ImageConfig{FOV: 16, N: 32, Angle: 90},
		Integrate: IntegrateConfig{Stepper: "rk45"},
	},
	"ring": {
		Spacetime: SpacetimeConfig{Spin: 0, Precision: "float64"},
		Source:    SourceConfig{Kind: SourceRing},
		Camera:    CameraConfig{Distance: 1e3, Inclination: 60},
		Image:     ImageConfig{Radius: 5.2, N: 32},
		Integrate: IntegrateConfig{Stepper: "rk45"},
	},
	"naked": {
		Spacetime: SpacetimeConfig{Spin: 0.9, Charge: 0.6, Precision: "float64"},
		Source: SourceConfig{
			Kind: SourcePhoton,
			X:    [4]float64{0, 20, 0, 1},
			V:    [4]float64{1, -1, 0.05, 0},
		},
		Integrate: IntegrateConfig{L: ptr(60), Stepper: "rk45"},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	if cfg.Integrate.L != nil {
		c.Integrate.L = ptr(*cfg.Integrate.L)
	}
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
