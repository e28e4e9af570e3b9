package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FromKind discriminates the shapes a mapping trigger can take.
type FromKind int

const (
	fromUnset FromKind = iota
	// FromSimple is a bare key name: "j".
	FromSimple
	// FromWithModifiers is {"key": "j", "modifiers": [...], "optional": [...]}.
	FromWithModifiers
	// FromSimultaneous is a chord: ["j", "k"].
	FromSimultaneous
)

// String returns a human-readable kind name.
func (k FromKind) String() string {
	switch k {
	case FromSimple:
		return "simple"
	case FromWithModifiers:
		return "with_modifiers"
	case FromSimultaneous:
		return "simultaneous"
	default:
		return "unset"
	}
}

// FromKey is the trigger side of a mapping.
type FromKey struct {
	Kind FromKind
	// Key is set for FromSimple and FromWithModifiers.
	Key string
	// Modifiers are the mandatory modifiers; nil when not declared.
	Modifiers Modifiers
	// Optional are the optional modifiers; nil when not declared.
	Optional []string
	// Keys is set for FromSimultaneous.
	Keys []string
}

// UnmarshalJSON implements json.Unmarshaler. The variant is chosen by the
// JSON shape: string, object with "key", or array of strings.
func (f *FromKey) UnmarshalJSON(data []byte) error {
	switch shapeOf(data) {
	case '"':
		var key string
		if err := json.Unmarshal(data, &key); err != nil {
			return err
		}
		*f = FromKey{Kind: FromSimple, Key: key}
	case '{':
		var raw struct {
			Key       *string   `json:"key"`
			Modifiers Modifiers `json:"modifiers"`
			Optional  []string  `json:"optional"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("from: %w", err)
		}
		if raw.Key == nil {
			return fmt.Errorf("from: %w", errMissingField("key"))
		}
		*f = FromKey{Kind: FromWithModifiers, Key: *raw.Key, Modifiers: raw.Modifiers, Optional: raw.Optional}
	case '[':
		var keys []string
		if err := json.Unmarshal(data, &keys); err != nil {
			return fmt.Errorf("from: simultaneous keys must be strings: %w", err)
		}
		*f = FromKey{Kind: FromSimultaneous, Keys: keys}
	default:
		return errors.New(`from: expected a key name, an object with "key", or an array of key names`)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FromKey) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FromSimple:
		return json.Marshal(f.Key)
	case FromWithModifiers:
		return json.Marshal(struct {
			Key       string    `json:"key"`
			Modifiers Modifiers `json:"modifiers,omitzero"`
			Optional  []string  `json:"optional,omitzero"`
		}{f.Key, f.Modifiers, f.Optional})
	case FromSimultaneous:
		return json.Marshal(f.Keys)
	default:
		return nil, errors.New("from: unset")
	}
}

func (f FromKey) validate() error {
	switch f.Kind {
	case FromSimple, FromWithModifiers:
		if f.Key == "" {
			return errors.New("key must not be empty")
		}
	case FromSimultaneous:
		if len(f.Keys) < 2 {
			return fmt.Errorf("simultaneous keys need at least 2 entries, got %d", len(f.Keys))
		}
		for _, k := range f.Keys {
			if k == "" {
				return errors.New("simultaneous key must not be empty")
			}
		}
	default:
		return errors.New("missing trigger")
	}
	return nil
}

// ToKind discriminates the shapes a mapping output can take.
type ToKind int

const (
	toUnset ToKind = iota
	// ToSimple is a bare key name: "escape".
	ToSimple
	// ToWithModifiers is {"key": "c", "modifiers": "command"}.
	ToWithModifiers
	// ToShell is {"shell": "open -a Safari"}.
	ToShell
	// ToMouseKey is {"mouse_key": {"y": 1536}}.
	ToMouseKey
	// ToPointingButton is {"pointing_button": "button1"}.
	ToPointingButton
	// ToMultiple is an ordered list of outputs.
	ToMultiple
)

// String returns a human-readable kind name.
func (k ToKind) String() string {
	switch k {
	case ToSimple:
		return "simple"
	case ToWithModifiers:
		return "with_modifiers"
	case ToShell:
		return "shell"
	case ToMouseKey:
		return "mouse_key"
	case ToPointingButton:
		return "pointing_button"
	case ToMultiple:
		return "multiple"
	default:
		return "unset"
	}
}

// ToKey is the output side of a mapping.
type ToKey struct {
	Kind ToKind
	// Key is set for ToSimple and ToWithModifiers.
	Key string
	// Modifiers applies to ToWithModifiers and ToPointingButton; nil when not
	// declared.
	Modifiers      Modifiers
	Shell          string
	MouseKey       *MouseKey
	PointingButton string
	// Items is set for ToMultiple.
	Items []ToKey
}

// MouseKey moves the pointer or scrolls. Unset fields stay unset.
type MouseKey struct {
	X               *int     `json:"x,omitempty"`
	Y               *int     `json:"y,omitempty"`
	VerticalWheel   *int     `json:"vertical_wheel,omitempty"`
	HorizontalWheel *int     `json:"horizontal_wheel,omitempty"`
	SpeedMultiplier *float64 `json:"speed_multiplier,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. Objects are told apart by the
// first present field out of "key", "shell", "mouse_key" and
// "pointing_button", in that order.
func (t *ToKey) UnmarshalJSON(data []byte) error {
	switch shapeOf(data) {
	case '"':
		var key string
		if err := json.Unmarshal(data, &key); err != nil {
			return err
		}
		*t = ToKey{Kind: ToSimple, Key: key}
	case '{':
		var raw struct {
			Key            *string   `json:"key"`
			Modifiers      Modifiers `json:"modifiers"`
			Shell          *string   `json:"shell"`
			MouseKey       *MouseKey `json:"mouse_key"`
			PointingButton *string   `json:"pointing_button"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("to: %w", err)
		}
		switch {
		case raw.Key != nil:
			*t = ToKey{Kind: ToWithModifiers, Key: *raw.Key, Modifiers: raw.Modifiers}
		case raw.Shell != nil:
			*t = ToKey{Kind: ToShell, Shell: *raw.Shell}
		case raw.MouseKey != nil:
			*t = ToKey{Kind: ToMouseKey, MouseKey: raw.MouseKey}
		case raw.PointingButton != nil:
			*t = ToKey{Kind: ToPointingButton, PointingButton: *raw.PointingButton, Modifiers: raw.Modifiers}
		default:
			return errors.New(`to: object needs one of "key", "shell", "mouse_key" or "pointing_button"`)
		}
	case '[':
		var items []ToKey
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []ToKey{}
		}
		*t = ToKey{Kind: ToMultiple, Items: items}
	default:
		return errors.New("to: expected a key name, an object, or an array of outputs")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t ToKey) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case ToSimple:
		return json.Marshal(t.Key)
	case ToWithModifiers:
		return json.Marshal(struct {
			Key       string    `json:"key"`
			Modifiers Modifiers `json:"modifiers,omitzero"`
		}{t.Key, t.Modifiers})
	case ToShell:
		return json.Marshal(struct {
			Shell string `json:"shell"`
		}{t.Shell})
	case ToMouseKey:
		return json.Marshal(struct {
			MouseKey *MouseKey `json:"mouse_key"`
		}{t.MouseKey})
	case ToPointingButton:
		return json.Marshal(struct {
			PointingButton string    `json:"pointing_button"`
			Modifiers      Modifiers `json:"modifiers,omitzero"`
		}{t.PointingButton, t.Modifiers})
	case ToMultiple:
		return json.Marshal(t.Items)
	default:
		return nil, errors.New("to: unset")
	}
}

func (t ToKey) validate() error {
	switch t.Kind {
	case ToSimple, ToWithModifiers:
		if t.Key == "" {
			return errors.New("key must not be empty")
		}
	case ToShell:
		if t.Shell == "" {
			return errors.New("shell command must not be empty")
		}
	case ToMouseKey:
	case ToPointingButton:
		if t.PointingButton == "" {
			return errors.New("pointing_button must not be empty")
		}
	case ToMultiple:
		for i, item := range t.Items {
			if err := item.validate(); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	default:
		return errors.New("missing output")
	}
	return nil
}

// Modifiers is a modifier list that may be written as a single string or a
// list of strings. A nil value means the field was not declared.
type Modifiers []string

// UnmarshalJSON implements json.Unmarshaler.
func (m *Modifiers) UnmarshalJSON(data []byte) error {
	switch shapeOf(data) {
	case 'n':
		*m = nil
	case '"':
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*m = Modifiers{single}
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("modifiers: %w", err)
		}
		if list == nil {
			list = []string{}
		}
		*m = list
	default:
		return errors.New("modifiers: expected a modifier name or a list of modifier names")
	}
	return nil
}

// ConditionKind discriminates rule conditions.
type ConditionKind int

const (
	conditionUnset ConditionKind = iota
	// ConditionApp matches the frontmost application's bundle identifier.
	ConditionApp
	// ConditionVariable matches a daemon variable's value.
	ConditionVariable
)

// Condition restricts when a rule applies.
type Condition struct {
	Kind     ConditionKind
	App      string
	Variable string
	Value    any
}

// UnmarshalJSON implements json.Unmarshaler. {"app": ...} is tried first,
// then {"variable": ..., "value": ...}.
func (c *Condition) UnmarshalJSON(data []byte) error {
	if shapeOf(data) != '{' {
		return errors.New(`condition: expected {"app": ...} or {"variable": ..., "value": ...}`)
	}
	var raw struct {
		App      *string         `json:"app"`
		Variable *string         `json:"variable"`
		Value    json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("condition: %w", err)
	}
	switch {
	case raw.App != nil:
		*c = Condition{Kind: ConditionApp, App: *raw.App}
	case raw.Variable != nil:
		if raw.Value == nil {
			return fmt.Errorf("condition: %w", errMissingField("value"))
		}
		var value any
		if err := json.Unmarshal(raw.Value, &value); err != nil {
			return fmt.Errorf("condition: %w", err)
		}
		if value == nil {
			return errors.New("condition: value must not be null")
		}
		*c = Condition{Kind: ConditionVariable, Variable: *raw.Variable, Value: value}
	default:
		return errors.New(`condition: expected {"app": ...} or {"variable": ..., "value": ...}`)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Condition) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ConditionApp:
		return json.Marshal(struct {
			App string `json:"app"`
		}{c.App})
	case ConditionVariable:
		return json.Marshal(struct {
			Variable string `json:"variable"`
			Value    any    `json:"value"`
		}{c.Variable, c.Value})
	default:
		return nil, errors.New("condition: unset")
	}
}

// shapeOf returns the first significant byte of a JSON value: '"', '{', '[',
// 'n' for null, or 0 for anything else.
func shapeOf(data []byte) byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0
	}
	switch trimmed[0] {
	case '"', '{', '[', 'n':
		return trimmed[0]
	default:
		return 0
	}
}
