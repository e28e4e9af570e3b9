package keys

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grovetools/kar/pkg/karabiner"
)

// modifierOrder fixes the order modifiers are written in a trigger so that
// {"shift","command"} and {"command","shift"} compare equal.
var modifierOrder = map[string]int{
	"fn":            0,
	"command":       1,
	"left_command":  2,
	"right_command": 3,
	"control":       4,
	"left_control":  5,
	"right_control": 6,
	"option":        7,
	"left_option":   8,
	"right_option":  9,
	"shift":         10,
	"left_shift":    11,
	"right_shift":   12,
	"caps_lock":     13,
}

// NormalizeModifiers returns mods sorted into canonical order without
// duplicates. Unknown names sort last, alphabetically.
func NormalizeModifiers(mods []string) []string {
	seen := make(map[string]bool, len(mods))
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iKnown := modifierOrder[out[i]]
		oj, jKnown := modifierOrder[out[j]]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// CanonicalTrigger renders a from event as a stable string. Mandatory
// modifiers prefix the key; optional modifiers do not change what triggers
// the manipulator and are left out. Chord keys keep their declared order
// because strict chords depend on it.
func CanonicalTrigger(from karabiner.FromEvent) string {
	if from.IsSimultaneous() {
		keys := make([]string, 0, len(from.Simultaneous))
		for _, k := range from.Simultaneous {
			keys = append(keys, k.KeyCode)
		}
		return strings.Join(keys, "+")
	}

	var mandatory []string
	if from.Modifiers != nil {
		mandatory = NormalizeModifiers(from.Modifiers.Mandatory)
	}
	return strings.Join(append(mandatory, from.KeyCode), "+")
}

// DescribeOutput summarizes a to-event list for display.
func DescribeOutput(events []karabiner.ToEvent) string {
	if len(events) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, describeEvent(e))
	}
	return strings.Join(parts, ", ")
}

func describeEvent(e karabiner.ToEvent) string {
	switch {
	case e.KeyCode != "":
		return strings.Join(append(NormalizeModifiers(e.Modifiers), e.KeyCode), "+")
	case e.ConsumerKeyCode != "":
		return e.ConsumerKeyCode
	case e.PointingButton != "":
		return strings.Join(append(NormalizeModifiers(e.Modifiers), e.PointingButton), "+")
	case e.ShellCommand != "":
		return "shell: " + e.ShellCommand
	case e.SetVariable != nil:
		return fmt.Sprintf("%s=%v", e.SetVariable.Name, e.SetVariable.Value)
	case e.MouseKey != nil:
		return "mouse_key"
	default:
		return "?"
	}
}

// describeCondition renders a condition for the Context column.
func describeCondition(c karabiner.Condition) string {
	switch c.Type {
	case karabiner.ConditionFrontmostAppIf:
		return "app=" + strings.Join(c.BundleIdentifiers, "|")
	case karabiner.ConditionFrontmostAppUnless:
		return "app!=" + strings.Join(c.BundleIdentifiers, "|")
	case karabiner.ConditionVariableIf:
		return fmt.Sprintf("%s=%v", c.Name, c.Value)
	case karabiner.ConditionVariableUnless:
		return fmt.Sprintf("%s!=%v", c.Name, c.Value)
	default:
		return c.Type
	}
}
