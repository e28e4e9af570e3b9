package keys

import (
	"sort"
	"strings"
)

// MatrixRow is a single trigger and what it does in each layer.
type MatrixRow struct {
	Trigger string            `json:"trigger"`
	Layers  map[string]string `json:"layers"`
	// Conditional is true when at least one cell only applies under a
	// condition.
	Conditional bool `json:"conditional,omitempty"`
}

// MatrixReport is the layer by trigger view of a set of bindings.
type MatrixReport struct {
	Rows   []MatrixRow `json:"rows"`
	Layers []string    `json:"layers"`
}

// BuildMatrix creates a matrix showing what each trigger does in each layer.
// Bindings under a condition are shown with the condition in brackets, and
// several bindings for one cell are joined with " | ".
func BuildMatrix(bindings []Binding) MatrixReport {
	rowMap := make(map[string]*MatrixRow)
	cells := make(map[string]map[string][]string)

	for _, b := range bindings {
		if b.Arms {
			continue
		}
		row := rowMap[b.Trigger]
		if row == nil {
			row = &MatrixRow{Trigger: b.Trigger, Layers: make(map[string]string)}
			rowMap[b.Trigger] = row
			cells[b.Trigger] = make(map[string][]string)
		}
		cell := b.Output
		if b.Context != "" {
			cell += " [" + b.Context + "]"
			row.Conditional = true
		}
		cells[b.Trigger][b.Layer] = append(cells[b.Trigger][b.Layer], cell)
	}

	report := MatrixReport{Layers: Layers(bindings)}
	for trigger, row := range rowMap {
		for layer, values := range cells[trigger] {
			row.Layers[layer] = strings.Join(values, " | ")
		}
		report.Rows = append(report.Rows, *row)
	}

	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].Trigger < report.Rows[j].Trigger
	})

	return report
}
