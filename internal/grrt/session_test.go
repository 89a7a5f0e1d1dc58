package grrt_test

import (
	"context"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/geode"
	"github.com/san-kum/geodesim/internal/grrt"
	"github.com/san-kum/geodesim/internal/tangent"
)

type recorder struct {
	infos    []string
	warnings []string
}

func (r *recorder) Debug(v ...interface{})                 {}
func (r *recorder) Debugf(format string, v ...interface{}) {}
func (r *recorder) Info(v ...interface{})                  { r.infos = append(r.infos, fmt.Sprint(v...)) }
func (r *recorder) Infof(format string, v ...interface{}) {
	r.infos = append(r.infos, fmt.Sprintf(format, v...))
}
func (r *recorder) Warning(v ...interface{}) { r.warnings = append(r.warnings, fmt.Sprint(v...)) }
func (r *recorder) Warningf(format string, v ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, v...))
}
func (r *recorder) Error(v ...interface{})                 {}
func (r *recorder) Errorf(format string, v ...interface{}) {}

func residual(s *grrt.Session, p dynamo.Tangent, kind tangent.Kind) float64 {
	return tangent.New(s.Metric()).Residual(p.X, p.V, kind)
}

var _ = Describe("Session", func() {
	var (
		ctx context.Context
		log *recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		log = &recorder{}
	})

	Describe("horizon geometry", func() {
		DescribeTable("radial coordinate matches the horizon radius",
			func(spin, charge float64) {
				s, err := grrt.New(spin, charge, grrt.WithLogger(log))
				Expect(err).NotTo(HaveOccurred())

				want := 1 + math.Sqrt(1-spin*spin-charge*charge)
				reh, ok := s.Horizon()
				Expect(ok).To(BeTrue())
				Expect(reh).To(BeNumerically("~", want, 1e-12))

				rc := s.Radius()
				Expect(rc.Of(dynamo.Vec4{0, math.Sqrt(reh*reh + spin*spin), 0, 0})).To(BeNumerically("~", reh, 1e-12))
				Expect(rc.Of(dynamo.Vec4{0, 0, 0, reh})).To(BeNumerically("~", reh, 1e-12))
				Expect(log.infos).To(ContainElement(fmt.Sprintf("radius of outer event horizon: %g", want)))
			},
			Entry("Schwarzschild", 0.0, 0.0),
			Entry("Kerr", 0.9, 0.0),
			Entry("retrograde Kerr", -0.7, 0.0),
			Entry("Reissner-Nordstrom", 0.0, 0.5),
			Entry("Kerr-Newman", 0.6, 0.5),
			Entry("extremal", 1.0, 0.0),
		)

		It("drops the horizon for penetrating charts", func() {
			s, err := grrt.New(0.5, 0, grrt.WithHorizonPenetrating(), grrt.WithLogger(log))
			Expect(err).NotTo(HaveOccurred())
			_, ok := s.Horizon()
			Expect(ok).To(BeFalse())
			Expect(log.infos).To(ContainElement("horizon penetrating"))

			Expect(s.SetPhoton(dynamo.Vec4{0, 10, 0, 0}, dynamo.Vec4{1, -1, 0, 0})).To(Succeed())
			_, err = s.Integrate(ctx, grrt.Extend{})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Integrator().Config().Filter).To(Equal(grrt.RingFilter{
				Distance: grrt.OblateDistance{Spin: 0.5},
				Eps:      1e-2,
			}))
		})

		It("stops at the ring singularity when there is no horizon", func() {
			s, err := grrt.New(0.9, 0.6, grrt.WithLogger(log))
			Expect(err).NotTo(HaveOccurred())
			reh, ok := s.Horizon()
			Expect(ok).To(BeFalse())
			Expect(math.IsNaN(reh)).To(BeTrue())
			Expect(log.infos).To(ContainElement("there is no event horizon"))

			Expect(s.SetPhoton(dynamo.Vec4{0, 10, 0, 0}, dynamo.Vec4{1, -1, 0, 0})).To(Succeed())
			_, err = s.Integrate(ctx, grrt.Extend{})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Integrator().Config().Filter).To(Equal(grrt.RingFilter{
				Distance: grrt.OblateDistance{Spin: 0.9},
				Eps:      1e-2,
			}))
		})

		It("rejects negative and non-finite parameters", func() {
			_, err := grrt.New(0.5, -0.1, grrt.WithLogger(log))
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
			_, err = grrt.New(math.NaN(), 0, grrt.WithLogger(log))
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	Describe("initial conditions", func() {
		var s *grrt.Session

		BeforeEach(func() {
			var err error
			s, err = grrt.New(0.7, 0.2, grrt.WithLogger(log))
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("particles are unit timelike",
			func(v dynamo.Vec4) {
				Expect(s.SetParticle(dynamo.Vec4{0, 10, 3, 2}, v)).To(Succeed())
				b, ok := s.PendingBatch()
				Expect(ok).To(BeTrue())
				Expect(b.Shape).To(BeEmpty())
				Expect(residual(s, b.Elems[0], tangent.Timelike)).To(BeNumerically("~", 0, 1e-9))
			},
			Entry("slow", dynamo.Vec4{1, 0.1, 0.2, 0}),
			Entry("rescaled", dynamo.Vec4{50, 5, 10, 0}),
			Entry("at rest", dynamo.Vec4{3, 0, 0, 0}),
			Entry("zero time component", dynamo.Vec4{0, 0.3, 0, 0}),
			Entry("spacelike seed", dynamo.Vec4{0.1, 1, 1, 1}),
			Entry("null seed", dynamo.Vec4{1, 1, 1, 1}),
		)

		It("keeps the spatial velocity of a particle", func() {
			Expect(s.SetParticle(dynamo.Vec4{0, 10, 3, 2}, dynamo.Vec4{0.1, 1, 1, 1})).To(Succeed())
			b, _ := s.PendingBatch()
			Expect(b.Elems[0].V[1:]).To(Equal([]float64{1, 1, 1}))
			Expect(b.Elems[0].V[0]).To(BeNumerically(">", 0))
		})

		DescribeTable("photons are null",
			func(v dynamo.Vec4) {
				Expect(s.SetPhoton(dynamo.Vec4{0, 10, 3, 2}, v)).To(Succeed())
				b, _ := s.PendingBatch()
				Expect(residual(s, b.Elems[0], tangent.Null)).To(BeNumerically("~", 0, 1e-9))
			},
			Entry("inward", dynamo.Vec4{1, -1, 0, 0}),
			Entry("oblique", dynamo.Vec4{0, 0.3, -2, 5}),
			Entry("timelike seed", dynamo.Vec4{10, 0.01, 0, 0}),
		)

		It("keeps the previous batch when a constraint cannot be met", func() {
			s, err := grrt.New(0, 0, grrt.WithLogger(log))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetPhoton(dynamo.Vec4{0, 10, 0, 0}, dynamo.Vec4{1, -1, 0, 0})).To(Succeed())
			before, _ := s.PendingBatch()

			// inside the horizon a slow radial velocity has no timelike completion
			err = s.SetParticle(dynamo.Vec4{0, 1, 0, 0}, dynamo.Vec4{1, 0.5, 0, 0})
			Expect(err).To(MatchError(tangent.ErrUnattainable))
			var cerr *tangent.ConstraintError
			Expect(err).To(BeAssignableToTypeOf(cerr))

			after, _ := s.PendingBatch()
			Expect(after).To(Equal(before))
		})

		It("merges defaults under existing keys", func() {
			s, err := grrt.New(0, 0, grrt.WithLogger(log), grrt.WithDefaults(dynamo.Params{"L": 7}))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.SetPhoton(dynamo.Vec4{0, 10, 0, 0}, dynamo.Vec4{1, -1, 0, 0})).To(Succeed())
			Expect(s.Defaults()).To(Equal(dynamo.Params{"L": 7, "h": 1}))

			s.SetCamera(1e3, 30, 0)
			Expect(s.Defaults()).To(Equal(dynamo.Params{"L": 7, "h": 1}))
		})

		It("stages the spherical photon orbit", func() {
			Expect(s.SetSphericalOrbit(3)).To(Succeed())
			b, _ := s.PendingBatch()
			Expect(b.Elems[0].X[1]).To(Equal(3.0))
			Expect(residual(s, b.Elems[0], tangent.Null)).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("pixel batching", func() {
		var s *grrt.Session

		BeforeEach(func() {
			var err error
			s, err = grrt.New(0.9, 0, grrt.WithLogger(log), grrt.WithWorkers(4))
			Expect(err).NotTo(HaveOccurred())
		})

		It("needs a camera", func() {
			Expect(s.SetPixels(dynamo.NewGrid(2), dynamo.NewGrid(2))).To(MatchError(grrt.ErrNoCamera))
			Expect(s.Pending()).To(BeFalse())
		})

		It("needs matching shapes", func() {
			s.SetCamera(1e3, 60, 0)
			Expect(s.SetPixels(dynamo.NewGrid(2, 3), dynamo.NewGrid(3, 2))).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("keeps the grid shape and maps pixels independently", func() {
			s.SetCamera(1e3, 45, 30)

			a, b := dynamo.NewGrid(2, 3), dynamo.NewGrid(2, 3)
			for i := range a.Data {
				a.Data[i] = float64(i) - 2.5
				b.Data[i] = 0.5 * float64(i*i)
			}
			Expect(s.SetPixels(a, b)).To(Succeed())
			first, _ := s.PendingBatch()
			Expect(first.Shape).To(Equal([]int{2, 3}))

			n := a.Len()
			ra, rb := dynamo.NewGrid(2, 3), dynamo.NewGrid(2, 3)
			for i := 0; i < n; i++ {
				ra.Data[n-1-i] = a.Data[i]
				rb.Data[n-1-i] = b.Data[i]
			}
			Expect(s.SetPixels(ra, rb)).To(Succeed())
			second, _ := s.PendingBatch()
			for i := 0; i < n; i++ {
				Expect(second.Elems[n-1-i]).To(Equal(first.Elems[i]))
			}
		})

		It("builds the camera image", func() {
			s.SetCamera(1e4, 60, 0)
			Expect(s.SetImage(16, 4, 0, 0)).To(Succeed())

			b, ok := s.PendingBatch()
			Expect(ok).To(BeTrue())
			Expect(b.Shape).To(Equal([]int{4, 4}))
			for _, p := range b.Elems {
				Expect(residual(s, p, tangent.Null)).To(BeNumerically("~", 0, 1e-9))
			}

			d := s.Defaults()
			Expect(d["L"]).To(Equal(-2e4))
			Expect(d["h"]).To(Equal(7500.0))
		})

		It("builds axes and rings", func() {
			s.SetCamera(1e3, 60, 0)
			Expect(s.SetAxis(16, 5, 90, 0)).To(Succeed())
			b, _ := s.PendingBatch()
			Expect(b.Shape).To(Equal([]int{5}))

			Expect(s.SetRing(5.2, 8)).To(Succeed())
			b, _ = s.PendingBatch()
			Expect(b.Shape).To(Equal([]int{8}))

			Expect(s.SetImage(16, 0, 0, 0)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(s.SetRing(5.2, -1)).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	Describe("integration", func() {
		var s *grrt.Session

		photon := func() {
			Expect(s.SetPhoton(dynamo.Vec4{0, 20, 0, 0}, dynamo.Vec4{1, 0.2, 1, 0.1})).To(Succeed())
		}

		BeforeEach(func() {
			var err error
			s, err = grrt.New(0.5, 0, grrt.WithLogger(log), grrt.WithWorkers(1))
			Expect(err).NotTo(HaveOccurred())
		})

		It("fails before any initial conditions", func() {
			_, err := s.Integrate(ctx, nil)
			Expect(err).To(MatchError(grrt.ErrNoInitialConditions))
			_, err = s.Integrate(ctx, grrt.Sample{Lambdas: []float64{1}})
			Expect(err).To(MatchError(grrt.ErrNoInitialConditions))
		})

		It("consumes the staged batch once", func() {
			photon()
			Expect(s.Pending()).To(BeTrue())

			r, err := s.Integrate(ctx, grrt.Extend{Amount: 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Lambdas).To(Equal([]float64{0}))
			Expect(s.Pending()).To(BeFalse())
			built := s.Integrator()

			r, err = s.Integrate(ctx, grrt.Extend{Amount: 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Lambdas).To(HaveLen(1))
			Expect(s.Pending()).To(BeFalse())
			Expect(s.Integrator()).To(BeIdenticalTo(built))

			photon()
			_, err = s.Integrate(ctx, grrt.Extend{Amount: 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Integrator()).NotTo(BeIdenticalTo(built))
		})

		It("extends by the stored L by default", func() {
			photon()
			r, err := s.Integrate(ctx, nil, grrt.WithParam("L", 3), grrt.WithSteps(6))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Lambdas).To(HaveLen(7))
			Expect(r.Lambdas[6]).To(Equal(3.0))
		})

		It("samples without touching the record", func() {
			photon()
			_, err := s.Integrate(ctx, grrt.Extend{Amount: 5})
			Expect(err).NotTo(HaveOccurred())
			before := s.Integrator().Record()

			r, err := s.Integrate(ctx, grrt.Sample{Lambdas: []float64{2.5, 1}})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Lambdas).To(Equal([]float64{2.5, 1}))
			Expect(r.States).To(HaveLen(2))
			Expect(s.Integrator().Record()).To(Equal(before))

			r, err = s.Integrate(ctx, grrt.Extend{Amount: 1}, grrt.WithSteps(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Lambdas[:len(before.Lambdas)]).To(Equal(before.Lambdas))
			Expect(r.States[len(before.States)-1]).To(Equal(before.Final()))
		})

		It("warns about overrides once the integrator exists", func() {
			photon()
			_, err := s.Integrate(ctx, grrt.Extend{Amount: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(log.warnings).To(BeEmpty())

			filter := geode.FilterFunc(func(float64, dynamo.Tangent) bool { return false })
			_, err = s.Integrate(ctx, grrt.Extend{Amount: 1}, grrt.WithParam("eps", 1), grrt.WithFilter(filter))
			Expect(err).NotTo(HaveOccurred())
			Expect(log.warnings).To(ConsistOf("ignoring 2 overrides: integrator already built"))
			Expect(s.Integrator().Halted()).To(Equal([]bool{false}))
		})

		It("installs a lower bound only when asked", func() {
			photon()
			_, err := s.Integrate(ctx, grrt.Extend{})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Integrator().Config().HLower).To(BeNil())

			photon()
			_, err = s.Integrate(ctx, grrt.Extend{}, grrt.WithParam("fhlower", 0.05))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Integrator().Config().HLower).To(Equal(grrt.LowerBound{H: 0.05}))
			Expect(s.Integrator().Config().HUpper).To(Equal(grrt.UpperBound{
				Radius: grrt.RadialCoordinate{Spin: 0.5},
				Factor: 0.75,
			}))
		})

		It("halts the a=0.9 spherical orbit outside the horizon", func() {
			s, err := grrt.New(0.9, 0, grrt.WithLogger(log))
			Expect(err).NotTo(HaveOccurred())
			reh, _ := s.Horizon()
			Expect(reh).To(BeNumerically("~", 1.4359, 1e-4))

			Expect(s.SetSphericalOrbit(3)).To(Succeed())
			r, err := s.Integrate(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Lambdas[len(r.Lambdas)-1]).To(Equal(100.0))

			rc := s.Radius()
			for _, b := range r.States {
				Expect(rc.Of(b.Elems[0].X)).To(BeNumerically(">=", reh+0.01))
			}
		})
	})
})
