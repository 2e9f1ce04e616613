package steps

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/step"
	"github.com/roach88/orca/internal/tensor"
	"github.com/roach88/orca/internal/value"
)

// shaped is shared by the steps that create a tensor from constant
// dimensions.
type shaped struct {
	args      step.Arguments
	shape     []int
	isComplex bool
}

func newShaped(args step.Arguments) (shaped, error) {
	dims, err := constant[[]int64](args, "dimensions")
	if err != nil {
		return shaped{}, err
	}
	isComplex, err := constant[bool](args, "complex")
	if err != nil {
		return shaped{}, err
	}
	return shaped{args: args, shape: shapeOf(dims), isComplex: isComplex}, nil
}

func (t shaped) DryRun(_ context.Context, s *value.Store) error {
	meta, err := tensorMeta(t.isComplex, t.shape)
	if err != nil {
		return fmt.Errorf("%s: %w", t.args.Step(), err)
	}
	return t.args.DeclareOutput(s, "Result", meta)
}

func shapeSlots() []*argspec.Slot {
	return []*argspec.Slot{
		argspec.Value("dimensions", "Extent of every axis.", dimensionsType).
			Default([]any{5, 5, 5, 5}).Positive(),
		argspec.Value("complex", "Create a complex instead of a real tensor.", booleanType).
			Default(false),
	}
}

// GenerateRandomTensor

type randomTensor struct {
	shaped
	seed int64
}

func generateRandomTensor() step.Definition {
	return step.Definition{
		Name:    "GenerateRandomTensor",
		Summary: "Creates a tensor filled with normally distributed random numbers.",
		Spec: argspec.MustNew(
			append(shapeSlots(),
				argspec.Value("seed", "Seed of the random generator.", integerType).Default(0)),
			[]*argspec.Slot{
				argspec.Ref("Result", "The random tensor.", anyTensor...).Required(),
			},
		),
		New: func(args step.Arguments) (step.Step, error) {
			sh, err := newShaped(args)
			if err != nil {
				return nil, err
			}
			seed, err := step.Literal[int64](args, "seed")
			if err != nil {
				return nil, err
			}
			return &randomTensor{shaped: sh, seed: seed}, nil
		},
	}
}

func (r *randomTensor) Run(_ context.Context, s *value.Store) error {
	rng := tensor.NewRand(uint64(r.seed))
	var t any
	if r.isComplex {
		c, err := tensor.New[complex128](r.shape...)
		if err != nil {
			return err
		}
		if err := c.Fill(rng); err != nil {
			return err
		}
		t = c
	} else {
		d, err := tensor.New[float64](r.shape...)
		if err != nil {
			return err
		}
		if err := d.Fill(rng); err != nil {
			return err
		}
		t = d
	}
	return r.args.SetOutput(s, "Result", t)
}

// ZeroTensor

type zero struct{ shaped }

func zeroTensor() step.Definition {
	return step.Definition{
		Name:    "ZeroTensor",
		Summary: "Creates a tensor with all elements zero.",
		Spec: argspec.MustNew(
			shapeSlots(),
			[]*argspec.Slot{argspec.Ref("Result", "The zero tensor.", anyTensor...).Required()},
		),
		New: func(args step.Arguments) (step.Step, error) {
			sh, err := newShaped(args)
			if err != nil {
				return nil, err
			}
			return &zero{shaped: sh}, nil
		},
	}
}

func (z *zero) Run(_ context.Context, s *value.Store) error {
	t, err := newTensor(z.isComplex, z.shape)
	if err != nil {
		return err
	}
	return z.args.SetOutput(s, "Result", t)
}

// TensorNorm

type norm struct{ args step.Arguments }

func tensorNorm() step.Definition {
	return step.Definition{
		Name:    "TensorNorm",
		Summary: "Computes the Frobenius norm of a tensor.",
		Spec: argspec.MustNew(
			[]*argspec.Slot{argspec.Ref("Data", "The tensor to measure.", anyTensor...).Required()},
			[]*argspec.Slot{argspec.Ref("Norm", "Square root of the sum of squared magnitudes.", realType)},
		),
		New: func(args step.Arguments) (step.Step, error) { return &norm{args: args}, nil },
	}
}

func (n *norm) DryRun(_ context.Context, s *value.Store) error {
	return n.args.DeclareOutput(s, "Norm", value.Meta{Type: realType})
}

func (n *norm) Run(_ context.Context, s *value.Store) error {
	t, err := lookupTensor(n.args, s, "Data")
	if err != nil {
		return err
	}
	var result float64
	switch x := t.(type) {
	case *tensor.Dense[float64]:
		result, err = x.FrobeniusNorm()
	case *tensor.Dense[complex128]:
		result, err = x.FrobeniusNorm()
	}
	if err != nil {
		return err
	}
	key, _ := n.args.Key("Data")
	n.args.Logger().Info("tensor norm", "key", key, "norm", result)
	return n.args.SetOutput(s, "Norm", result)
}

// TensorContraction

type contraction struct {
	args       step.Arguments
	ia, ib, ic string
}

func indexSlot(name, doc string) *argspec.Slot {
	return argspec.Value(name, doc, textType).Required().
		Satisfies("letters only", func(v any) bool {
			return !strings.ContainsAny(v.(string), " ,;$")
		})
}

func tensorContraction() step.Definition {
	return step.Definition{
		Name:    "TensorContraction",
		Summary: "Computes Result[ResultIndex] = alpha * A[AIndex] * B[BIndex] + beta * Result, summing over indices absent from ResultIndex.",
		Spec: argspec.MustNew(
			[]*argspec.Slot{
				argspec.Ref("A", "Left operand.", anyTensor...).Required(),
				argspec.Ref("B", "Right operand.", anyTensor...).Required(),
				indexSlot("AIndex", "One letter per axis of A."),
				indexSlot("BIndex", "One letter per axis of B."),
				indexSlot("ResultIndex", "One letter per axis of Result."),
				argspec.Value("alpha", "Factor of the product.", realType).Default(1),
				argspec.Value("beta", "Factor of the existing Result; 0 overwrites it.", realType).Default(0),
			},
			[]*argspec.Slot{argspec.Ref("Result", "The contracted tensor.", anyTensor...).Required()},
		),
		New: func(args step.Arguments) (step.Step, error) {
			c := &contraction{args: args}
			var err error
			if c.ia, err = constant[string](args, "AIndex"); err != nil {
				return nil, err
			}
			if c.ib, err = constant[string](args, "BIndex"); err != nil {
				return nil, err
			}
			if c.ic, err = constant[string](args, "ResultIndex"); err != nil {
				return nil, err
			}
			for _, r := range c.ic {
				if !strings.ContainsRune(c.ia, r) && !strings.ContainsRune(c.ib, r) {
					return nil, fmt.Errorf("%w: ResultIndex %q: index %q appears in neither operand", argspec.ErrInvalidValue, c.ic, string(r))
				}
			}
			return c, nil
		},
	}
}

// operandMetas checks A and B exist with the same element kind.
func operandMetas(args step.Arguments, s *value.Store) (a, b value.Meta, isComplex bool, err error) {
	a, ca, err := tensorInputMeta(args, s, "A")
	if err != nil {
		return a, b, false, err
	}
	b, cb, err := tensorInputMeta(args, s, "B")
	if err != nil {
		return a, b, false, err
	}
	if ca != cb {
		return a, b, false, fmt.Errorf("%s: %w: A is %s, B is %s", args.Step(), value.ErrTypeMismatch, a.Type, b.Type)
	}
	return a, b, ca, nil
}

func (c *contraction) DryRun(_ context.Context, s *value.Store) error {
	a, b, isComplex, err := operandMetas(c.args, s)
	if err != nil {
		return err
	}
	shape, err := tensor.ContractShape(a.Shape, c.ia, b.Shape, c.ib, c.ic)
	if err != nil {
		return fmt.Errorf("%s: %w", c.args.Step(), err)
	}
	meta, err := tensorMeta(isComplex, shape)
	if err != nil {
		return fmt.Errorf("%s: %w", c.args.Step(), err)
	}
	return c.args.DeclareOutput(s, "Result", meta)
}

func (c *contraction) Run(_ context.Context, s *value.Store) error {
	alpha, err := step.Input[float64](c.args, s, "alpha")
	if err != nil {
		return err
	}
	beta, err := step.Input[float64](c.args, s, "beta")
	if err != nil {
		return err
	}
	a, err := lookupTensor(c.args, s, "A")
	if err != nil {
		return err
	}
	b, err := lookupTensor(c.args, s, "B")
	if err != nil {
		return err
	}
	switch at := a.(type) {
	case *tensor.Dense[float64]:
		bt, ok := b.(*tensor.Dense[float64])
		if !ok {
			return fmt.Errorf("%w: A is real, B is not", value.ErrTypeMismatch)
		}
		return runContraction(c, s, alpha, at, bt, beta)
	case *tensor.Dense[complex128]:
		bt, ok := b.(*tensor.Dense[complex128])
		if !ok {
			return fmt.Errorf("%w: A is complex, B is not", value.ErrTypeMismatch)
		}
		return runContraction(c, s, complex(alpha, 0), at, bt, complex(beta, 0))
	}
	return nil
}

func runContraction[F tensor.Element](c *contraction, s *value.Store, alpha F, a, b *tensor.Dense[F], beta F) error {
	shape, err := tensor.ContractShape(a.Shape(), c.ia, b.Shape(), c.ib, c.ic)
	if err != nil {
		return err
	}
	result, err := resultTensor(c.args, s, shape, beta)
	if err != nil {
		return err
	}
	if err := tensor.Contract(alpha, a, c.ia, b, c.ib, beta, result, c.ic); err != nil {
		return err
	}
	return c.args.SetOutput(s, "Result", result)
}

// resultTensor returns the tensor Contract writes into. With a non-zero
// beta the current Result accumulates, copied first when it is also an
// operand since Contract refuses aliasing. Otherwise Result starts at zero.
func resultTensor[F tensor.Element](args step.Arguments, s *value.Store, shape []int, beta F) (*tensor.Dense[F], error) {
	key, ok := args.Key("Result")
	if !ok || beta == 0 {
		return tensor.New[F](shape...)
	}
	existing, err := value.Get[*tensor.Dense[F]](s, key)
	if err != nil || !slices.Equal(existing.Shape(), shape) {
		return tensor.New[F](shape...)
	}
	if !isOperand(args, key) {
		return existing, nil
	}
	data, err := existing.Read()
	if err != nil {
		return nil, err
	}
	c, err := tensor.New[F](shape...)
	if err != nil {
		return nil, err
	}
	return c, c.Write(data)
}

// isOperand reports whether key is bound to input A or B.
func isOperand(args step.Arguments, key string) bool {
	for _, name := range []string{"A", "B"} {
		if k, ok := args.Key(name); ok && k == key {
			return true
		}
	}
	return false
}

// TensorSum

type sum struct {
	args       step.Arguments
	ia, ib, ic string
}

func tensorSum() step.Definition {
	return step.Definition{
		Name:    "TensorSum",
		Summary: "Computes Result[ResultIndex] = AFactor * A[AIndex] + BFactor * B[BIndex].",
		Spec: argspec.MustNew(
			[]*argspec.Slot{
				argspec.Ref("A", "First term.", anyTensor...).Required(),
				argspec.Ref("B", "Second term.", anyTensor...).Required(),
				indexSlot("AIndex", "One letter per axis of A."),
				indexSlot("BIndex", "One letter per axis of B."),
				indexSlot("ResultIndex", "One letter per axis of Result."),
				argspec.Value("AFactor", "Factor of A.", realType).Default(1),
				argspec.Value("BFactor", "Factor of B.", realType).Default(1),
			},
			[]*argspec.Slot{argspec.Ref("Result", "The sum.", anyTensor...).Required()},
		),
		New: func(args step.Arguments) (step.Step, error) {
			t := &sum{args: args}
			var err error
			if t.ia, err = constant[string](args, "AIndex"); err != nil {
				return nil, err
			}
			if t.ib, err = constant[string](args, "BIndex"); err != nil {
				return nil, err
			}
			if t.ic, err = constant[string](args, "ResultIndex"); err != nil {
				return nil, err
			}
			for _, r := range t.ic {
				if !strings.ContainsRune(t.ia, r) || !strings.ContainsRune(t.ib, r) {
					return nil, fmt.Errorf("%w: ResultIndex %q: index %q must appear in both AIndex and BIndex", argspec.ErrInvalidValue, t.ic, string(r))
				}
			}
			return t, nil
		},
	}
}

func (t *sum) DryRun(_ context.Context, s *value.Store) error {
	a, b, isComplex, err := operandMetas(t.args, s)
	if err != nil {
		return err
	}
	shape, err := tensor.ContractShape(a.Shape, t.ia, b.Shape, t.ib, t.ic)
	if err != nil {
		return fmt.Errorf("%s: %w", t.args.Step(), err)
	}
	meta, err := tensorMeta(isComplex, shape)
	if err != nil {
		return fmt.Errorf("%s: %w", t.args.Step(), err)
	}
	return t.args.DeclareOutput(s, "Result", meta)
}

func (t *sum) Run(_ context.Context, s *value.Store) error {
	fa, err := step.Input[float64](t.args, s, "AFactor")
	if err != nil {
		return err
	}
	fb, err := step.Input[float64](t.args, s, "BFactor")
	if err != nil {
		return err
	}
	a, err := lookupTensor(t.args, s, "A")
	if err != nil {
		return err
	}
	b, err := lookupTensor(t.args, s, "B")
	if err != nil {
		return err
	}
	switch at := a.(type) {
	case *tensor.Dense[float64]:
		bt, ok := b.(*tensor.Dense[float64])
		if !ok {
			return fmt.Errorf("%w: A is real, B is not", value.ErrTypeMismatch)
		}
		return runSum(t, s, fa, at, fb, bt)
	case *tensor.Dense[complex128]:
		bt, ok := b.(*tensor.Dense[complex128])
		if !ok {
			return fmt.Errorf("%w: A is complex, B is not", value.ErrTypeMismatch)
		}
		return runSum(t, s, complex(fa, 0), at, complex(fb, 0), bt)
	}
	return nil
}

func runSum[F tensor.Element](t *sum, s *value.Store, fa F, a *tensor.Dense[F], fb F, b *tensor.Dense[F]) error {
	shape, err := tensor.ContractShape(a.Shape(), t.ia, b.Shape(), t.ib, t.ic)
	if err != nil {
		return err
	}
	// Sum overwrites its result, so it may not alias an operand.
	result, err := tensor.New[F](shape...)
	if err != nil {
		return err
	}
	if err := tensor.Sum(fa, a, t.ia, fb, b, t.ib, result, t.ic); err != nil {
		return err
	}
	return t.args.SetOutput(s, "Result", result)
}
