// Package tensor is the in-process tensor capability used by steps.
//
// Dense holds an n-dimensional array of real or complex elements in
// row-major order. Contractions and sums use index strings in the usual
// Einstein notation: each letter names one axis, letters absent from the
// result are summed over, and a letter repeated inside one operand selects
// a diagonal.
//
//	// C[ik] = 1.0 * sum_j A[ij] * B[jk] + 0.0 * C[ik]
//	err := tensor.Contract(1.0, a, "ij", b, "jk", 0.0, c, "ik")
//
// Dry describes a tensor that a dry run would create: element kind and
// shape only, with the byte footprint it would need.
package tensor
