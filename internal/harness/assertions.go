package harness

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/roach88/orca/internal/engine"
	"github.com/roach88/orca/internal/value"
)

// relTol is the relative tolerance of numeric equals.
const relTol = 1e-9

func checkError(r *Result, want *ErrorExpectation, err error) {
	switch {
	case want == nil && err == nil:
		return
	case want == nil:
		r.AddError("unexpected error: %v", err)
		return
	case err == nil:
		r.AddError("expected %s error, run succeeded", want.Kind)
		return
	}

	if got := engine.Kind(err); got != want.Kind {
		r.AddError("error kind: expected %s, got %s (%v)", want.Kind, got, err)
	}
	if want.Phase != "" {
		phase, ok := engine.PhaseOf(err)
		if !ok {
			phase = engine.PhaseLoad
		}
		if string(phase) != want.Phase {
			r.AddError("error phase: expected %s, got %s", want.Phase, phase)
		}
	}
	if want.Step != 0 {
		var se *engine.StepError
		switch {
		case !errors.As(err, &se):
			r.AddError("error step: expected step %d, error names no step", want.Step)
		case se.Index != want.Step:
			r.AddError("error step: expected step %d, got step %d (%s)", want.Step, se.Index, se.Step)
		}
	}
}

func checkReport(r *Result, want Expectations, s *value.Store) {
	rep := r.Report
	if rep == nil {
		return
	}
	if want.Status != "" && rep.Status != want.Status {
		r.AddError("status: expected %s, got %s", want.Status, rep.Status)
	}
	if want.Steps != nil && len(rep.Steps) != *want.Steps {
		r.AddError("steps: expected %d step reports, got %d", *want.Steps, len(rep.Steps))
	}
	for _, key := range sortedKeys(want.Values) {
		checkValue(r, key, want.Values[key], s)
	}
}

func checkValue(r *Result, key string, want ValueExpectation, s *value.Store) {
	got, ok := r.Report.Value(key)
	if !ok {
		r.AddError("value %s: not in store", key)
		return
	}
	if want.Type != "" && got.Type != want.Type {
		r.AddError("value %s: type: expected %s, got %s", key, want.Type, got.Type)
	}
	if want.Stage != "" && got.Stage != want.Stage {
		r.AddError("value %s: stage: expected %s, got %s", key, want.Stage, got.Stage)
	}
	if want.Shape != nil && !slices.Equal(got.Shape, want.Shape) {
		r.AddError("value %s: shape: expected %v, got %v", key, want.Shape, got.Shape)
	}
	if want.Min == nil && want.Max == nil && want.Equals == nil {
		return
	}

	payload, err := payloadOf(s, key)
	if err != nil {
		r.AddError("value %s: %v", key, err)
		return
	}
	if want.Min != nil || want.Max != nil {
		x, ok := toFloat(payload)
		switch {
		case !ok:
			r.AddError("value %s: min/max need a number, got %T", key, payload)
		case want.Min != nil && x < *want.Min:
			r.AddError("value %s: %g is below min %g", key, x, *want.Min)
		case want.Max != nil && x > *want.Max:
			r.AddError("value %s: %g is above max %g", key, x, *want.Max)
		}
	}
	if want.Equals != nil && !equal(payload, want.Equals) {
		r.AddError("value %s: expected %v, got %v", key, want.Equals, payload)
	}
}

func payloadOf(s *value.Store, key string) (any, error) {
	if s == nil {
		return nil, errors.New("no payloads in a dry run")
	}
	v, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	if v.Stage() != value.Allocated {
		return nil, fmt.Errorf("%w: %s", value.ErrNotAllocated, v.Stage())
	}
	return v.Payload(), nil
}

// equal compares a payload with a YAML-decoded expectation: numbers by
// relative tolerance, lists element-wise, anything else exactly.
func equal(got, want any) bool {
	if g, ok := toFloat(got); ok {
		w, ok := toFloat(want)
		return ok && closeTo(g, w)
	}
	gv, wv := reflect.ValueOf(got), reflect.ValueOf(want)
	if gv.Kind() == reflect.Slice && wv.Kind() == reflect.Slice {
		if gv.Len() != wv.Len() {
			return false
		}
		for i := 0; i < gv.Len(); i++ {
			if !equal(gv.Index(i).Interface(), wv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(got, want)
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= relTol*math.Max(1, math.Abs(b))
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
