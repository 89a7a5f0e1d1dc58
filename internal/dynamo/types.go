package dynamo

import (
	"fmt"
	"math"
	"strings"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Vec4 is a spacetime vector (t, x, y, z) in Kerr-Schild Cartesian coordinates.
type Vec4 [4]float64

// Tangent is a point of the tangent bundle: a position and a velocity.
type Tangent struct {
	X Vec4
	V Vec4
}

// StateDim is the length of a flattened Tangent.
const StateDim = 8

func (p Tangent) State() State {
	s := make(State, StateDim)
	copy(s[:4], p.X[:])
	copy(s[4:], p.V[:])
	return s
}

func TangentOf(s State) Tangent {
	var p Tangent
	copy(p.X[:], s[:4])
	copy(p.V[:], s[4:8])
	return p
}

func (p Tangent) IsValid() bool {
	return State(p.X[:]).IsValid() && State(p.V[:]).IsValid()
}

// Batch is a row-major array of tangents. A nil Shape is a single element.
type Batch struct {
	Shape []int
	Elems []Tangent
}

func NewBatch(shape ...int) Batch {
	return Batch{Shape: append([]int(nil), shape...), Elems: make([]Tangent, size(shape))}
}

func (b Batch) Len() int { return len(b.Elems) }

func (b Batch) Rank() int { return len(b.Shape) }

func (b Batch) Clone() Batch {
	c := Batch{Shape: append([]int(nil), b.Shape...), Elems: make([]Tangent, len(b.Elems))}
	copy(c.Elems, b.Elems)
	return c
}

// At returns the element at the given multi-index.
func (b Batch) At(idx ...int) Tangent {
	return b.Elems[offset(b.Shape, idx)]
}

// Grid is a row-major array of scalars, used for screen-plane offsets.
type Grid struct {
	Shape []int
	Data  []float64
}

func NewGrid(shape ...int) Grid {
	return Grid{Shape: append([]int(nil), shape...), Data: make([]float64, size(shape))}
}

func (g Grid) Len() int { return len(g.Data) }

func (g Grid) At(idx ...int) float64 {
	return g.Data[offset(g.Shape, idx)]
}

func (g Grid) Set(v float64, idx ...int) {
	g.Data[offset(g.Shape, idx)] = v
}

func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func offset(shape, idx []int) int {
	if len(idx) != len(shape) {
		panic(fmt.Sprintf("dynamo: index rank %d, shape rank %d", len(idx), len(shape)))
	}
	off := 0
	for i, d := range shape {
		off = off*d + idx[i]
	}
	return off
}

// Params is an open set of named numeric control parameters.
type Params map[string]float64

// Over returns a copy of p with every key of over written on top.
func (p Params) Over(over Params) Params {
	out := make(Params, len(p)+len(over))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Under returns a copy of p with the keys of defaults filled in where p has none.
func (p Params) Under(defaults Params) Params {
	return defaults.Over(p)
}

func (p Params) Get(name string, fallback float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return fallback
}

// Precision selects the floating-point width states are kept at.
type Precision int

const (
	Float64 Precision = iota
	Float32
)

func (p Precision) Round(v float64) float64 {
	if p == Float32 {
		return float64(float32(v))
	}
	return v
}

func (p Precision) RoundVec(v Vec4) Vec4 {
	for i := range v {
		v[i] = p.Round(v[i])
	}
	return v
}

func (p Precision) String() string {
	if p == Float32 {
		return "float32"
	}
	return "float64"
}

func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(s) {
	case "", "float64", "f64", "double":
		return Float64, nil
	case "float32", "f32", "single":
		return Float32, nil
	}
	return Float64, fmt.Errorf("unknown precision: %s", s)
}

// System is an ODE dX/dλ = f(X, λ).
type System interface {
	Derive(x State, lambda float64) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, lambda, h float64) State
}

// AdaptiveIntegrator also returns the suggested next step and the error
// ratio of the step just taken; a ratio above one means it should be rejected.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, lambda, h, tol float64) (State, float64, float64)
}
