package argspec

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Doc renders the argument documentation of a step.
func (s *Spec) Doc() string {
	var sb strings.Builder
	section := func(title string, slots []*Slot) {
		fmt.Fprintf(&sb, "%s:\n", title)
		if len(slots) == 0 {
			sb.WriteString("  (none)\n")
			return
		}
		tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
		for _, slot := range slots {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", slot.name, slot.TypeNames(), slot.usage(), slot.doc)
		}
		tw.Flush()
	}
	section("Inputs", s.inputs)
	section("Outputs", s.outputs)
	return sb.String()
}

func (s *Slot) usage() string {
	var parts []string
	switch {
	case s.required:
		parts = append(parts, "required")
	case s.hasDefault:
		parts = append(parts, fmt.Sprintf("default %v", s.def))
	default:
		parts = append(parts, "optional")
	}
	for _, c := range s.checks {
		parts = append(parts, c.desc)
	}
	return strings.Join(parts, ", ")
}
