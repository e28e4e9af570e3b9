package keys

import (
	"sort"
)

// DetectConflicts finds triggers bound more than once within the same layer
// and context. Bindings in different layers or under different conditions
// are not conflicts because they never compete for the same key press. The
// manipulators that arm a layer are skipped: they repeat the output of the
// layer's own binding for that key.
func DetectConflicts(bindings []Binding) []Conflict {
	type scope struct {
		layer   string
		context string
		trigger string
	}

	usage := make(map[scope][]Binding)
	var order []scope
	for _, b := range bindings {
		if b.Arms || b.Trigger == "" {
			continue
		}
		s := scope{b.Layer, b.Context, b.Trigger}
		if _, ok := usage[s]; !ok {
			order = append(order, s)
		}
		usage[s] = append(usage[s], b)
	}

	var conflicts []Conflict
	for _, s := range order {
		usages := usage[s]
		if len(usages) < 2 {
			continue
		}
		// The same rule repeating the same output is a harmless duplicate.
		seen := make(map[string]bool)
		var unique []Binding
		for _, u := range usages {
			id := u.Rule + "\x00" + u.Output
			if !seen[id] {
				seen[id] = true
				unique = append(unique, u)
			}
		}
		if len(unique) > 1 {
			conflicts = append(conflicts, Conflict{
				Trigger:  s.trigger,
				Layer:    s.layer,
				Context:  s.context,
				Bindings: unique,
			})
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Layer != conflicts[j].Layer {
			return conflicts[i].Layer < conflicts[j].Layer
		}
		return conflicts[i].Trigger < conflicts[j].Trigger
	})

	return conflicts
}

// GroupConflictsByLayer returns conflicts organized by layer.
func GroupConflictsByLayer(conflicts []Conflict) map[string][]Conflict {
	result := make(map[string][]Conflict)
	for _, c := range conflicts {
		result[c.Layer] = append(result[c.Layer], c)
	}
	return result
}

// CountBindings returns the number of non-arming bindings in layer.
func CountBindings(bindings []Binding, layer string) int {
	count := 0
	for _, b := range bindings {
		if b.Layer == layer && !b.Arms {
			count++
		}
	}
	return count
}
