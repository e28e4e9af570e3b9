// Package keys inspects compiled rules: it lists every trigger with the
// layer and context it fires in, reports triggers bound more than once, and
// lays the bindings out as a layer by key matrix.
package keys

// BaseLayer names bindings that are not gated on a simlayer.
const BaseLayer = "base"

// Binding is one trigger as the daemon will see it.
type Binding struct {
	Layer   string `json:"layer"`             // simlayer name, or BaseLayer
	Context string `json:"context,omitempty"` // non-layer conditions, e.g. "app=com.apple.Terminal"
	Trigger string `json:"trigger"`           // canonical trigger, e.g. "command+shift+k" or "j+k"
	Output  string `json:"output"`            // short description of the to events
	Rule    string `json:"rule"`              // description of the rule that produced it
	// Arms is true for the manipulator that switches its layer on.
	Arms bool `json:"arms,omitempty"`
}

// Conflict is a trigger bound to different outputs within the same layer and
// context. Later manipulators with the same trigger never fire, so one of the
// bindings is dead.
type Conflict struct {
	Trigger  string    `json:"trigger"`
	Layer    string    `json:"layer"`
	Context  string    `json:"context,omitempty"`
	Bindings []Binding `json:"bindings"`
}
