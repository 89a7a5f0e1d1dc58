// Package dynamo provides the shared primitives for geodesic integration.
//
// The package defines the fundamental types used by every other package:
//
//   - [State]: flattened ODE state vector
//   - [Vec4], [Tangent]: a spacetime position and velocity
//   - [Batch], [Grid]: row-major arrays of tangents and of scalars
//   - [Params]: named numeric control parameters with shallow merging
//   - [System], [Integrator], [AdaptiveIntegrator]: ODE and stepper interfaces
//
// # Example
//
//	b := dynamo.NewBatch(4, 4)
//	err := dynamo.ParallelFor(ctx, b.Len(), 1, 0, func(ctx context.Context, lo, hi int) error {
//		for i := lo; i < hi; i++ {
//			b.Elems[i] = seed(i)
//		}
//		return nil
//	})
//
// # Thread Safety
//
// Batch and Grid are plain values. Concurrent writers must touch disjoint
// indices, which is what [ParallelFor] guarantees for its chunks.
package dynamo
