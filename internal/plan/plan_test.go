package plan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	p, err := LoadFile(filepath.Join("testdata", "norm.yaml"))
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	gen := p.Steps[0]
	assert.Equal(t, "GenerateRandomTensor", gen.Name)
	assert.Equal(t, []any{4, 4}, gen.In["dimensions"])
	assert.Equal(t, 7, gen.In["seed"])
	assert.Equal(t, "$X", gen.Out["Result"])
	assert.Equal(t, "random start", gen.Note)
	assert.Equal(t, 1, gen.Position)
	assert.Equal(t, 2, gen.Line)

	norm := p.Steps[1]
	assert.Equal(t, 2, norm.Position)
	assert.Equal(t, "n", norm.Out["Norm"])
	assert.Equal(t, "2 (TensorNorm)", norm.Label())
	assert.Equal(t, filepath.Join("testdata", "norm.yaml"), p.Source)
}

func TestParseCUEMatchesYAML(t *testing.T) {
	y, err := LoadFile(filepath.Join("testdata", "norm.yaml"))
	require.NoError(t, err)
	c, err := LoadFile(filepath.Join("testdata", "norm.cue"))
	require.NoError(t, err)

	hy, err := Hash(y)
	require.NoError(t, err)
	hc, err := Hash(c)
	require.NoError(t, err)
	assert.Equal(t, hy, hc)
}

func TestDisabledStepsAreDropped(t *testing.T) {
	p, err := Parse([]byte(`
- name: Nop
- name: Nop
  disable: true
- name: Exit
  enable: false
- name: Echo
  in: {text: hi}
  fallible: true
`))
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	assert.Equal(t, 2, p.Disabled)
	assert.Equal(t, 4, p.Steps[1].Position)
	assert.True(t, p.Steps[1].Fallible)
}

func TestParseAcceptsStepsMapping(t *testing.T) {
	p, err := Parse([]byte("steps:\n  - name: Nop\n"))
	require.NoError(t, err)
	assert.Len(t, p.Steps, 1)

	p, err = Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
}

func TestSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		step int
	}{
		{"missing name", "- in: {a: 1}\n", 1},
		{"unknown field", "- name: Nop\n- name: Nop\n  bogus: 1\n", 2},
		{"non-string output", "- name: Nop\n  out: {Result: 3}\n", 1},
		{"nested mapping input", "- name: Nop\n  in: {a: {b: 1}}\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchema)

			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.step, se.Step)
			assert.NotContains(t, se.Field, "#")
			assert.Positive(t, se.Line)
		})
	}
}

func TestSchemaErrorLocatesField(t *testing.T) {
	_, err := Parse([]byte("- name: Nop\n- name: Nop\n  bogus: 1\n"))

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Step)
	assert.Equal(t, "bogus", se.Field)
	assert.GreaterOrEqual(t, se.Line, 2)
	assert.Contains(t, se.Error(), "step 2")
}

func TestStepLines(t *testing.T) {
	y, err := Parse([]byte("- name: Nop\n\n- name: Echo\n  in: {text: hi}\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, []int{y.Steps[0].Line, y.Steps[1].Line})

	m, err := Parse([]byte("steps:\n  - name: Nop\n  - name: Exit\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, []int{m.Steps[0].Line, m.Steps[1].Line})

	c, err := LoadFile(filepath.Join("testdata", "norm.cue"))
	require.NoError(t, err)
	assert.Equal(t, []int{6, 12}, []int{c.Steps[0].Line, c.Steps[1].Line})
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseCUERequiresSteps(t *testing.T) {
	_, err := ParseCUE("x.cue", []byte("other: 1\n"))
	assert.ErrorIs(t, err, ErrSchema)
}

func TestHash(t *testing.T) {
	base := New(
		Step{Name: "Nop"},
		Step{Name: "Scale", In: map[string]any{"alpha": 2, "Data": "$X"}},
	)
	h1, err := Hash(base)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	t.Run("float integral equals int", func(t *testing.T) {
		p := New(Step{Name: "Nop"}, Step{Name: "Scale", In: map[string]any{"Data": "$X", "alpha": 2.0}})
		h, err := Hash(p)
		require.NoError(t, err)
		assert.Equal(t, h1, h)
	})

	t.Run("disabled steps ignored", func(t *testing.T) {
		p := New(
			Step{Name: "Nop"},
			Step{Name: "Exit", Disable: true},
			Step{Name: "Scale", In: map[string]any{"alpha": 2, "Data": "$X"}},
		)
		h, err := Hash(p)
		require.NoError(t, err)
		assert.Equal(t, h1, h)
	})

	t.Run("argument change", func(t *testing.T) {
		p := New(Step{Name: "Nop"}, Step{Name: "Scale", In: map[string]any{"alpha": 3, "Data": "$X"}})
		h, err := Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, h1, h)
	})
}

func TestMarshalCanonical(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"b": []any{1, 0.5, true},
		"a": "café <x>",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"café <x>","b":[1,0.5,true]}`, string(data))

	_, err = MarshalCanonical(map[string]any{"a": nil})
	assert.Error(t, err)
}
