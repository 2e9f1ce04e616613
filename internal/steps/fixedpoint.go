package steps

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/mixer"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/tensor"
	"github.com/roach88/orca/internal/value"
)

// fixedPoint solves x = M·x + b by successive substitution, accelerated
// by a mixer. The mixer lives and dies with the step instance.
type fixedPoint struct {
	args          step.Arguments
	mixer         mixer.Mixer
	maxIterations int64
	tolerance     float64
}

func fixedPointIteration(mixers *mixer.Registry) step.Definition {
	return step.Definition{
		Name:    "FixedPointIteration",
		Summary: "Iterates x = Matrix·x + Vector until the residual is below tolerance.",
		Spec: argspec.MustNew(
			[]*argspec.Slot{
				argspec.Ref("Matrix", "Square iteration matrix; its spectral radius must be below one.", realTensor).Required(),
				argspec.Ref("Vector", "Constant term.", realTensor).Required(),
				argspec.Ref("Initial", "Starting point; zero when omitted.", realTensor),
				argspec.Value("mixer", "Mixing strategy.", textType).Default("linear"),
				argspec.Value("mixingRatio", "Weight of the newest iterate in linear mixing.", realType).
					Default(1).Satisfies("in (0, 1]", func(v any) bool {
						r := v.(float64)
						return r > 0 && r <= 1
					}),
				argspec.Value("maxResidua", "History length of diis mixing.", integerType).Default(4).Positive(),
				argspec.Value("maxIterations", "Iteration limit.", integerType).Default(100).Positive(),
				argspec.Value("tolerance", "Convergence threshold on the residual norm.", realType).Default(1e-10).Positive(),
			},
			[]*argspec.Slot{
				argspec.Ref("Solution", "The fixed point.", realTensor).Required(),
				argspec.Ref("Iterations", "Number of iterations performed.", integerType),
				argspec.Ref("Residual", "Norm of the final residual.", realType),
			},
		),
		New: func(args step.Arguments) (step.Step, error) {
			name, err := constant[string](args, "mixer")
			if err != nil {
				return nil, err
			}
			opts := mixer.DefaultOptions()
			if opts.Ratio, err = constant[float64](args, "mixingRatio"); err != nil {
				return nil, err
			}
			residua, err := constant[int64](args, "maxResidua")
			if err != nil {
				return nil, err
			}
			opts.MaxResidua = int(residua)
			m, err := mixers.Create(name, opts)
			if err != nil {
				return nil, err
			}
			f := &fixedPoint{args: args, mixer: m}
			if f.maxIterations, err = constant[int64](args, "maxIterations"); err != nil {
				return nil, err
			}
			if f.tolerance, err = constant[float64](args, "tolerance"); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// dimension checks the shapes of Matrix, Vector and Initial agree and
// returns the problem size.
func (f *fixedPoint) dimension(s *value.Store) (int, error) {
	m, err := f.args.InputMeta(s, "Matrix")
	if err != nil {
		return 0, err
	}
	if len(m.Shape) != 2 || m.Shape[0] != m.Shape[1] {
		return 0, fmt.Errorf("%w: Matrix must be square, has shape %v", tensor.ErrShape, m.Shape)
	}
	n := m.Shape[0]
	for _, name := range []string{"Vector", "Initial"} {
		if !f.args.Bound(name) {
			continue
		}
		v, err := f.args.InputMeta(s, name)
		if err != nil {
			return 0, err
		}
		if len(v.Shape) != 1 || v.Shape[0] != n {
			return 0, fmt.Errorf("%w: %s must have shape [%d], has %v", tensor.ErrShape, name, n, v.Shape)
		}
	}
	return n, nil
}

func (f *fixedPoint) DryRun(_ context.Context, s *value.Store) error {
	n, err := f.dimension(s)
	if err != nil {
		return err
	}
	meta, err := tensorMeta(false, []int{n})
	if err != nil {
		return err
	}
	if err := f.args.DeclareOutput(s, "Solution", meta); err != nil {
		return err
	}
	if err := f.args.DeclareOutput(s, "Iterations", value.Meta{Type: integerType}); err != nil {
		return err
	}
	return f.args.DeclareOutput(s, "Residual", value.Meta{Type: realType})
}

func (f *fixedPoint) Run(ctx context.Context, s *value.Store) error {
	n, err := f.dimension(s)
	if err != nil {
		return err
	}
	matrix, err := readTensor(f.args, s, "Matrix")
	if err != nil {
		return err
	}
	b, err := readTensor(f.args, s, "Vector")
	if err != nil {
		return err
	}
	x := make([]float64, n)
	if f.args.Bound("Initial") {
		if x, err = readTensor(f.args, s, "Initial"); err != nil {
			return err
		}
	}

	m := mat.NewDense(n, n, matrix)
	bv := mat.NewVecDense(n, b)
	logger := f.args.Logger()
	var (
		iterations int64
		residual   float64
		converged  bool
	)
	for iterations < f.maxIterations && !converged {
		if err := ctx.Err(); err != nil {
			return err
		}
		iterations++
		var fx mat.VecDense
		fx.MulVec(m, mat.NewVecDense(n, x))
		fx.AddVec(&fx, bv)
		next := fx.RawVector().Data
		r := make([]float64, n)
		floats.SubTo(r, next, x)
		residual = floats.Norm(r, 2)
		logger.Debug("iteration", "n", iterations, "residual", residual)

		if residual < f.tolerance {
			x, converged = next, true
			break
		}
		if err := f.mixer.Push(next, r); err != nil {
			return err
		}
		if x, err = f.mixer.Next(); err != nil {
			return err
		}
	}

	solution, err := tensor.New[float64](n)
	if err != nil {
		return err
	}
	if err := solution.Write(x); err != nil {
		return err
	}
	if err := f.args.SetOutput(s, "Solution", solution); err != nil {
		return err
	}
	if err := f.args.SetOutput(s, "Iterations", iterations); err != nil {
		return err
	}
	if err := f.args.SetOutput(s, "Residual", residual); err != nil {
		return err
	}
	if !converged {
		return fmt.Errorf("%w after %d iterations (residual %g)", errNotConverged, iterations, residual)
	}
	logger.Info("converged", "iterations", iterations, "residual", residual)
	return nil
}

func readTensor(args step.Arguments, s *value.Store, name string) ([]float64, error) {
	t, err := step.Input[*tensor.Dense[float64]](args, s, name)
	if err != nil {
		return nil, err
	}
	return t.Read()
}
