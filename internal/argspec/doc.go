// Package argspec declares the typed input and output contract of a step
// and resolves the arguments a plan supplies against it.
//
// A Spec is built once per step type from Slots:
//
//	argspec.MustNew(
//		[]*argspec.Slot{
//			argspec.Ref("Data", "tensor to measure", realTensor, complexTensor).Required(),
//			argspec.Value("scale", "factor", value.TypeOf[float64]()).Default(1.0).Positive(),
//		},
//		[]*argspec.Slot{argspec.Ref("Norm", "result", value.TypeOf[float64]())},
//	)
//
// Bind validates a step's arguments, collecting every problem rather than
// stopping at the first, and returns Bindings the step reads from.
package argspec
