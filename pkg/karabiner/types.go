// Package karabiner models the subset of the Karabiner-Elements configuration
// schema that kar generates, and merges generated rules into karabiner.json.
//
// Optional fields are tagged omitzero so that an unset value is left out of the
// document while an explicitly empty list (for example "mandatory": []) is kept.
package karabiner

// Parameter keys understood by the daemon.
const (
	ParamSimultaneousThreshold = "basic.simultaneous_threshold_milliseconds"
	ParamToIfAloneTimeout      = "basic.to_if_alone_timeout_milliseconds"
	ParamToIfHeldDownThreshold = "basic.to_if_held_down_threshold_milliseconds"
	ParamToDelayedActionDelay  = "basic.to_delayed_action_delay_milliseconds"
)

// Simultaneous option values.
const (
	OrderInsensitive   = "insensitive"
	OrderStrict        = "strict"
	OrderStrictInverse = "strict_inverse"
	KeyUpWhenAny       = "any"
	KeyUpWhenAll       = "all"
)

// Condition types.
const (
	ConditionVariableIf         = "variable_if"
	ConditionVariableUnless     = "variable_unless"
	ConditionFrontmostAppIf     = "frontmost_application_if"
	ConditionFrontmostAppUnless = "frontmost_application_unless"
)

const (
	ManipulatorTypeBasic = "basic"
	ModifierAny          = "any"
)

// Rule is one entry of complex_modifications.rules.
type Rule struct {
	Description  string        `json:"description"`
	Manipulators []Manipulator `json:"manipulators"`
}

// Manipulator is a "basic" event matcher.
type Manipulator struct {
	Type         string                 `json:"type"`
	From         FromEvent              `json:"from"`
	To           []ToEvent              `json:"to,omitzero"`
	ToIfAlone    []ToEvent              `json:"to_if_alone,omitzero"`
	ToIfHeldDown []ToEvent              `json:"to_if_held_down,omitzero"`
	ToAfterKeyUp []ToEvent              `json:"to_after_key_up,omitzero"`
	Conditions   []Condition            `json:"conditions,omitzero"`
	Parameters   *ManipulatorParameters `json:"parameters,omitzero"`
}

// ManipulatorParameters overrides the profile-wide timing parameters for a
// single manipulator.
type ManipulatorParameters struct {
	SimultaneousThreshold *int `json:"basic.simultaneous_threshold_milliseconds,omitzero"`
	ToIfAloneTimeout      *int `json:"basic.to_if_alone_timeout_milliseconds,omitzero"`
	ToIfHeldDownThreshold *int `json:"basic.to_if_held_down_threshold_milliseconds,omitzero"`
}

// FromEvent is either a key_code event or a simultaneous chord. Exactly one of
// KeyCode and Simultaneous is set.
type FromEvent struct {
	KeyCode             string               `json:"key_code,omitzero"`
	Simultaneous        []SimultaneousKey    `json:"simultaneous,omitzero"`
	SimultaneousOptions *SimultaneousOptions `json:"simultaneous_options,omitzero"`
	Modifiers           *FromModifiers       `json:"modifiers,omitzero"`
}

// IsSimultaneous reports whether the event is a chord.
func (f FromEvent) IsSimultaneous() bool {
	return len(f.Simultaneous) > 0
}

// SimultaneousKey is one member of a chord.
type SimultaneousKey struct {
	KeyCode string `json:"key_code"`
}

// SimultaneousOptions tunes chord detection.
type SimultaneousOptions struct {
	DetectKeyDownUninterruptedly *bool     `json:"detect_key_down_uninterruptedly,omitzero"`
	KeyDownOrder                 string    `json:"key_down_order,omitzero"`
	KeyUpOrder                   string    `json:"key_up_order,omitzero"`
	KeyUpWhen                    string    `json:"key_up_when,omitzero"`
	ToAfterKeyUp                 []ToEvent `json:"to_after_key_up,omitzero"`
}

// FromModifiers lists the modifiers that must or may be held.
type FromModifiers struct {
	Mandatory []string `json:"mandatory,omitzero"`
	Optional  []string `json:"optional,omitzero"`
}

// AnyModifiers matches the key regardless of held modifiers.
func AnyModifiers() *FromModifiers {
	return &FromModifiers{Optional: []string{ModifierAny}}
}

// ToEvent is one output event. Exactly one of the event fields is set.
type ToEvent struct {
	KeyCode         string       `json:"key_code,omitzero"`
	ConsumerKeyCode string       `json:"consumer_key_code,omitzero"`
	PointingButton  string       `json:"pointing_button,omitzero"`
	ShellCommand    string       `json:"shell_command,omitzero"`
	SetVariable     *SetVariable `json:"set_variable,omitzero"`
	MouseKey        *MouseKey    `json:"mouse_key,omitzero"`
	Modifiers       []string     `json:"modifiers,omitzero"`
	Lazy            *bool        `json:"lazy,omitzero"`
	Repeat          *bool        `json:"repeat,omitzero"`
}

// SetVariable writes a daemon variable.
type SetVariable struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// MouseKey moves the pointer or scrolls. Only supplied fields are written.
type MouseKey struct {
	X               *int     `json:"x,omitzero"`
	Y               *int     `json:"y,omitzero"`
	VerticalWheel   *int     `json:"vertical_wheel,omitzero"`
	HorizontalWheel *int     `json:"horizontal_wheel,omitzero"`
	SpeedMultiplier *float64 `json:"speed_multiplier,omitzero"`
}

// Condition gates a manipulator. Conditions in a list are ANDed.
type Condition struct {
	Type              string   `json:"type"`
	Name              string   `json:"name,omitzero"`
	Value             any      `json:"value,omitempty"`
	BundleIdentifiers []string `json:"bundle_identifiers,omitzero"`
	FilePaths         []string `json:"file_paths,omitzero"`
}

// VariableIf returns a variable_if condition.
func VariableIf(name string, value any) Condition {
	return Condition{Type: ConditionVariableIf, Name: name, Value: value}
}

// FrontmostApplicationIf returns a frontmost_application_if condition for the
// given bundle identifiers.
func FrontmostApplicationIf(bundleIDs ...string) Condition {
	return Condition{Type: ConditionFrontmostAppIf, BundleIdentifiers: bundleIDs}
}

// SetVariableEvent returns a to-event that assigns value to the named variable.
func SetVariableEvent(name string, value any) ToEvent {
	return ToEvent{SetVariable: &SetVariable{Name: name, Value: value}}
}

// SimpleModification is one entry of a profile's simple_modifications list.
type SimpleModification struct {
	From SimpleModificationKey   `json:"from"`
	To   []SimpleModificationKey `json:"to"`
}

// SimpleModificationKey names a single key.
type SimpleModificationKey struct {
	KeyCode string `json:"key_code"`
}
