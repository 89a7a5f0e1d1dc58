// Package analysis characterizes the stability of geodesics.
//
// Photon orbits near the photon sphere are unstable: nearby rays separate
// exponentially in the affine parameter. [LyapunovExponent] estimates that
// rate by integrating a reference geodesic next to a displaced copy:
//
//	sys := spacetime.Geodesic{Metric: spacetime.NewKerrSchild(0, 0)}
//	rate := analysis.LyapunovExponent(sys, integrators.NewRK4(), x0, 0.05, 30, 1e-7)
package analysis
