package grrt

// Span selects what an integration call does: Extend grows the stored
// trajectory, Sample queries it. A nil Span extends by the stored L.
type Span interface {
	span()
}

type Extend struct {
	Amount float64
}

type Sample struct {
	Lambdas []float64
}

func (Extend) span() {}
func (Sample) span() {}
