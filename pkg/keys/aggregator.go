package keys

import (
	"sort"
	"strings"

	"github.com/grovetools/kar/pkg/karabiner"
)

// Extract lists the bindings of every manipulator in rules. Layers are
// recognised from the compiled output alone: a chord whose to events set a
// variable to 1 and whose to_after_key_up sets it back to 0 arms that layer,
// and a variable_if test for an armed variable with value 1 gates a
// manipulator on it.
func Extract(rules []karabiner.Rule) []Binding {
	layers := armedLayers(rules)

	var bindings []Binding
	for _, rule := range rules {
		for _, m := range rule.Manipulators {
			b := Binding{
				Layer:   BaseLayer,
				Trigger: CanonicalTrigger(m.From),
				Output:  DescribeOutput(m.To),
				Rule:    rule.Description,
			}

			if name, ok := armsLayer(m); ok {
				b.Arms = true
				b.Layer = name
				b.Output = DescribeOutput(withoutLayerSet(m.To, name))
			}

			var context []string
			for _, c := range m.Conditions {
				if name, ok := layerGate(c, layers); ok && !b.Arms {
					b.Layer = name
					continue
				}
				context = append(context, describeCondition(c))
			}
			sort.Strings(context)
			b.Context = strings.Join(context, " ")

			bindings = append(bindings, b)
		}
	}
	return bindings
}

// Layers returns the layer names found in bindings, base first and the rest
// sorted.
func Layers(bindings []Binding) []string {
	seen := map[string]bool{}
	var names []string
	for _, b := range bindings {
		if b.Layer == BaseLayer || seen[b.Layer] {
			continue
		}
		seen[b.Layer] = true
		names = append(names, b.Layer)
	}
	sort.Strings(names)
	return append([]string{BaseLayer}, names...)
}

func armedLayers(rules []karabiner.Rule) map[string]bool {
	layers := make(map[string]bool)
	for _, rule := range rules {
		for _, m := range rule.Manipulators {
			if name, ok := armsLayer(m); ok {
				layers[name] = true
			}
		}
	}
	return layers
}

func armsLayer(m karabiner.Manipulator) (string, bool) {
	if !m.From.IsSimultaneous() || m.From.SimultaneousOptions == nil {
		return "", false
	}
	resets := map[string]bool{}
	for _, e := range m.From.SimultaneousOptions.ToAfterKeyUp {
		if e.SetVariable != nil && isNumber(e.SetVariable.Value, 0) {
			resets[e.SetVariable.Name] = true
		}
	}
	for _, e := range m.To {
		if e.SetVariable != nil && isNumber(e.SetVariable.Value, 1) && resets[e.SetVariable.Name] {
			return e.SetVariable.Name, true
		}
	}
	return "", false
}

func layerGate(c karabiner.Condition, layers map[string]bool) (string, bool) {
	if c.Type != karabiner.ConditionVariableIf || !layers[c.Name] || !isNumber(c.Value, 1) {
		return "", false
	}
	return c.Name, true
}

func withoutLayerSet(events []karabiner.ToEvent, layer string) []karabiner.ToEvent {
	out := make([]karabiner.ToEvent, 0, len(events))
	for _, e := range events {
		if e.SetVariable != nil && e.SetVariable.Name == layer {
			continue
		}
		out = append(out, e)
	}
	return out
}

// isNumber compares a decoded or constructed JSON number against want.
func isNumber(v any, want int) bool {
	switch n := v.(type) {
	case int:
		return n == want
	case int64:
		return n == int64(want)
	case float64:
		return n == float64(want)
	default:
		return false
	}
}
