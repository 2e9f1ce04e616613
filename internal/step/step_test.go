package step

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orca/internal/argspec"
	"github.com/roach88/orca/internal/value"
)

var (
	realType = value.TypeOf[float64]()
	textType = value.TypeOf[string]()
)

// double writes 2*In to Out.
type double struct{ args Arguments }

func (d *double) DryRun(_ context.Context, s *value.Store) error {
	return d.args.DeclareOutput(s, "Out", value.Meta{Type: realType})
}

func (d *double) Run(_ context.Context, s *value.Store) error {
	x, err := Input[float64](d.args, s, "In")
	if err != nil {
		return err
	}
	return d.args.SetOutput(s, "Out", 2*x)
}

func doubleDef() Definition {
	return Definition{
		Name:    "Double",
		Summary: "Multiplies by two.",
		Spec: argspec.MustNew(
			[]*argspec.Slot{argspec.Value("In", "number", realType).Required()},
			[]*argspec.Slot{argspec.Ref("Out", "twice the number", realType)},
		),
		New: func(args Arguments) (Step, error) { return &double{args: args}, nil },
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(doubleDef()))

	def, err := r.Lookup("double")
	require.NoError(t, err)
	assert.Equal(t, "Double", def.Name)

	err = r.Register(Definition{Name: "DOUBLE", Spec: def.Spec, New: def.New})
	assert.ErrorIs(t, err, ErrDuplicateRegistration)

	_, err = r.Lookup("DoesNotExist")
	assert.ErrorIs(t, err, ErrUnknownStepType)

	assert.Error(t, r.Register(Definition{Name: "Broken"}))
	assert.Equal(t, []string{"Double"}, r.Names())
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.MustRegister(doubleDef(), doubleDef()) })
}

func TestCreateAndRunWithLiteral(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(doubleDef())

	inst, err := r.Create("Double", map[string]any{"In": 21}, map[string]any{"Out": "y"})
	require.NoError(t, err)

	s := value.NewStore()
	require.NoError(t, inst.Step.DryRun(context.Background(), s))
	v, err := s.Lookup("y")
	require.NoError(t, err)
	assert.Equal(t, value.Declared, v.Stage())

	require.NoError(t, inst.Step.Run(context.Background(), s))
	y, err := value.Get[float64](s, "y")
	require.NoError(t, err)
	assert.Equal(t, 42.0, y)
}

func TestCreateWithReferenceInput(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(doubleDef())

	inst, err := r.Create("Double", map[string]any{"In": "$x"}, map[string]any{"Out": "y"})
	require.NoError(t, err)

	s := value.NewStore()
	assert.ErrorIs(t, inst.Args.CheckInputs(s), value.ErrNotFound)

	require.NoError(t, value.Set(s, "x", 1.5))
	require.NoError(t, inst.Args.CheckInputs(s))
	require.NoError(t, inst.Step.Run(context.Background(), s))

	y, err := value.Get[float64](s, "y")
	require.NoError(t, err)
	assert.Equal(t, 3.0, y)
}

func TestCheckInputsTypeMismatch(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(doubleDef())
	inst, err := r.Create("Double", map[string]any{"In": "$x"}, nil)
	require.NoError(t, err)

	s := value.NewStore()
	require.NoError(t, value.Set(s, "x", "text"))
	assert.ErrorIs(t, inst.Args.CheckInputs(s), value.ErrTypeMismatch)
}

func TestCreateRejectsBadArgumentsWithoutTouchingStore(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(doubleDef())

	_, err := r.Create("Double", map[string]any{"In": "abc", "Extra": 1}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, argspec.ErrTypeMismatch)
	assert.ErrorIs(t, err, argspec.ErrUnknownName)

	_, err = r.Create("Double", nil, nil)
	assert.ErrorIs(t, err, argspec.ErrMissingRequired)
}

func TestOptionalOutputSkipped(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(doubleDef())
	inst, err := r.Create("Double", map[string]any{"In": 1}, nil)
	require.NoError(t, err)

	s := value.NewStore()
	require.NoError(t, inst.Step.Run(context.Background(), s))
	assert.Equal(t, 0, s.Len())
}

func TestOutputTypeChecked(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(doubleDef())
	inst, err := r.Create("Double", map[string]any{"In": 1}, map[string]any{"Out": "y"})
	require.NoError(t, err)

	s := value.NewStore()
	err = inst.Args.SetOutput(s, "Out", "not a number")
	assert.ErrorIs(t, err, value.ErrTypeMismatch)
	assert.False(t, s.Has("y"))

	err = inst.Args.DeclareOutput(s, "Out", value.Meta{Type: textType})
	assert.ErrorIs(t, err, value.ErrTypeMismatch)
}

func TestLiteralAccessors(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(doubleDef())
	inst, err := r.Create("Double", map[string]any{"In": 4}, nil)
	require.NoError(t, err)

	v, err := Literal[float64](inst.Args, "in")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	_, err = Literal[int64](inst.Args, "In")
	assert.ErrorIs(t, err, value.ErrTypeMismatch)

	_, err = Literal[float64](inst.Args, "Out")
	assert.ErrorIs(t, err, ErrNotBound)
	assert.False(t, inst.Args.Bound("Out"))
}

func TestDefinitionDoc(t *testing.T) {
	doc := doubleDef().Doc()
	assert.Contains(t, doc, "Double\n  Multiplies by two.\n")
	assert.Contains(t, doc, "twice the number")
}
