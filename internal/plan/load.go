package plan

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/parser"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource []byte

// LoadFile reads a plan, choosing the format by extension: .yaml and
// .yml are YAML, .cue is CUE.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var p *Plan
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		p, err = parseYAML(path, data)
	case ".cue":
		p, err = ParseCUE(path, data)
	default:
		return nil, fmt.Errorf("%w: %s (want .yaml, .yml or .cue)", ErrFormat, path)
	}
	if err != nil {
		return nil, err
	}
	p.Source = path
	return p, nil
}

// Parse reads a YAML plan.
func Parse(data []byte) (*Plan, error) {
	return parseYAML("plan.yaml", data)
}

func parseYAML(filename string, data []byte) (*Plan, error) {
	f, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	ctx := cuecontext.New()
	v := ctx.BuildFile(f)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	switch v.Kind() {
	case cue.NullKind:
		// An empty document is an empty plan.
		return &Plan{}, nil
	case cue.StructKind:
		// A mapping document may carry the list under `steps`, like CUE
		// plans do.
		steps := v.LookupPath(cue.ParsePath("steps"))
		if !steps.Exists() {
			return &Plan{}, nil
		}
		v = steps
	}
	return decode(ctx, filename, v, stepLines(f))
}

// ParseCUE reads a CUE plan: a file with a top-level `steps` list.
func ParseCUE(filename string, data []byte) (*Plan, error) {
	f, err := parser.ParseFile(filename, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	ctx := cuecontext.New()
	v := ctx.BuildFile(f)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	steps := v.LookupPath(cue.ParsePath("steps"))
	if !steps.Exists() {
		return nil, &SchemaError{File: filename, Field: "steps", Message: "a CUE plan needs a top-level steps list"}
	}
	return decode(ctx, filename, steps, stepLines(f))
}

// decode checks v against #Plan and decodes the descriptors. lines holds
// the source line of each descriptor, when known.
func decode(ctx *cue.Context, filename string, v cue.Value, lines []int) (*Plan, error) {
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Plan")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, schemaErrors(filename, lines, err)
	}

	var steps []Step
	if err := unified.Decode(&steps); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	for i := range steps {
		if i < len(lines) {
			steps[i].Line = lines[i]
		}
	}
	return New(steps...), nil
}

// stepLines returns the line of every element of the step list literal
// in f: the document itself for a YAML list, or the `steps` field.
func stepLines(f *ast.File) []int {
	var list *ast.ListLit
	for _, d := range f.Decls {
		switch d := d.(type) {
		case *ast.EmbedDecl:
			if l, ok := d.Expr.(*ast.ListLit); ok {
				list = l
			}
		case *ast.Field:
			if name, _, err := ast.LabelName(d.Label); err == nil && name == "steps" {
				if l, ok := d.Value.(*ast.ListLit); ok {
					list = l
				}
			}
		}
	}
	if list == nil {
		return nil
	}
	lines := make([]int, len(list.Elts))
	for i, e := range list.Elts {
		lines[i] = e.Pos().Line()
	}
	return lines
}

// schemaErrors converts CUE errors to SchemaErrors, one per violation.
func schemaErrors(filename string, lines []int, err error) error {
	var errs []error
	seen := map[string]bool{}
	for _, e := range cueerrors.Errors(err) {
		se := &SchemaError{File: filename}
		path := e.Path()
		for len(path) > 0 && strings.HasPrefix(path[0], "#") {
			path = path[1:]
		}
		if len(path) > 0 {
			if n, convErr := strconv.Atoi(path[0]); convErr == nil {
				se.Step = n + 1
				path = path[1:]
			}
		}
		se.Field = strings.Join(path, ".")
		format, args := e.Msg()
		se.Message = fmt.Sprintf(format, args...)
		for _, pos := range cueerrors.Positions(e) {
			if pos.Filename() == filename && pos.Line() > se.Line {
				se.Line = pos.Line()
			}
		}
		if se.Line == 0 && se.Step > 0 && se.Step <= len(lines) {
			se.Line = lines[se.Step-1]
		}
		key := se.Error()
		if seen[key] {
			continue
		}
		seen[key] = true
		errs = append(errs, se)
	}
	if len(errs) == 0 {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return errors.Join(errs...)
}
