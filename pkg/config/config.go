// Package config defines the simplified keyboard configuration that users
// write, and decodes it from the JSON value produced by evaluating their
// config script.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Profile-wide timing defaults in milliseconds.
const (
	DefaultAlone = 80
	DefaultSim   = 200
)

// SchemaError reports input that does not match the config schema.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config at %s: %v", e.Path, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Config is the root of a user configuration.
type Config struct {
	Profile   ProfileSettings      `json:"profile"`
	Simlayers map[string]Simlayer  `json:"simlayers,omitempty"`
	Simple    []SimpleModification `json:"simple,omitempty"`
	Rules     []Rule               `json:"rules,omitempty"`
}

// ProfileSettings holds global timing fallbacks.
type ProfileSettings struct {
	// Alone is the to_if_alone timeout in milliseconds.
	Alone int `json:"alone" jsonschema:"minimum=0,default=80"`
	// Sim is the simultaneous key detection threshold in milliseconds.
	Sim int `json:"sim" jsonschema:"minimum=0,default=200"`
}

// Simlayer is a momentary layer activated by holding Key together with
// another key.
type Simlayer struct {
	Key       string `json:"key" jsonschema:"required,description=Key that activates the layer while held"`
	Threshold *int   `json:"threshold,omitempty" jsonschema:"minimum=0,description=Simultaneous threshold in milliseconds"`
}

// SimpleModification is a one-to-one key substitution.
type SimpleModification struct {
	From string `json:"from" jsonschema:"required"`
	To   string `json:"to" jsonschema:"required"`
}

// Rule groups mappings under a description, an optional simlayer and an
// optional condition.
type Rule struct {
	Description string     `json:"description" jsonschema:"required"`
	Layer       string     `json:"layer,omitempty" jsonschema:"description=Name of a simlayer"`
	Condition   *Condition `json:"condition,omitempty"`
	Mappings    []Mapping  `json:"mappings" jsonschema:"required"`
}

// Mapping binds one trigger to its outputs.
type Mapping struct {
	From      FromKey `json:"from" jsonschema:"required"`
	To        ToKey   `json:"to" jsonschema:"required"`
	ToIfAlone *ToKey  `json:"to_if_alone,omitempty"`
	ToIfHeld  *ToKey  `json:"to_if_held,omitempty"`
}

// Parse decodes and validates a config. The input must be a JSON object.
func Parse(data []byte) (*Config, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &SchemaError{Err: errors.New("top-level value must be an object")}
	}

	var cfg Config
	if err := json.Unmarshal(trimmed, &cfg); err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return nil, schemaErr
		}
		return nil, &SchemaError{Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UnmarshalJSON implements json.Unmarshaler. Rules, simlayers and simple
// modifications are decoded one at a time so that errors carry their
// position in the document. An empty array stands for an empty profile or
// simlayers table, since config languages such as Lua cannot tell an empty
// table from an empty list.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw struct {
		Profile   json.RawMessage   `json:"profile"`
		Simlayers json.RawMessage   `json:"simlayers"`
		Simple    []json.RawMessage `json:"simple"`
		Rules     []json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	cfg := Config{Profile: ProfileSettings{Alone: DefaultAlone, Sim: DefaultSim}}
	if !isAbsent(raw.Profile) && !isEmptyArray(raw.Profile) {
		if err := json.Unmarshal(raw.Profile, &cfg.Profile); err != nil {
			return &SchemaError{Path: "profile", Err: err}
		}
	}

	var simlayers map[string]json.RawMessage
	if !isAbsent(raw.Simlayers) {
		if isEmptyArray(raw.Simlayers) {
			simlayers = map[string]json.RawMessage{}
		} else if err := json.Unmarshal(raw.Simlayers, &simlayers); err != nil {
			return &SchemaError{Path: "simlayers", Err: err}
		}
	}

	if simlayers != nil {
		cfg.Simlayers = make(map[string]Simlayer, len(simlayers))
		for name, msg := range simlayers {
			var layer Simlayer
			if err := json.Unmarshal(msg, &layer); err != nil {
				return &SchemaError{Path: fmt.Sprintf("simlayers.%s", name), Err: err}
			}
			cfg.Simlayers[name] = layer
		}
	}

	for i, msg := range raw.Simple {
		var mod SimpleModification
		if err := json.Unmarshal(msg, &mod); err != nil {
			return &SchemaError{Path: fmt.Sprintf("simple[%d]", i), Err: err}
		}
		cfg.Simple = append(cfg.Simple, mod)
	}

	for i, msg := range raw.Rules {
		var rule Rule
		if err := json.Unmarshal(msg, &rule); err != nil {
			return &SchemaError{Path: fmt.Sprintf("rules[%d]", i), Err: err}
		}
		cfg.Rules = append(cfg.Rules, rule)
	}

	*c = cfg
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Omitted fields take the
// package defaults.
func (p *ProfileSettings) UnmarshalJSON(data []byte) error {
	var raw struct {
		Alone *int `json:"alone"`
		Sim   *int `json:"sim"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Alone = DefaultAlone
	p.Sim = DefaultSim
	if raw.Alone != nil {
		p.Alone = *raw.Alone
	}
	if raw.Sim != nil {
		p.Sim = *raw.Sim
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Simlayer) UnmarshalJSON(data []byte) error {
	type plain Simlayer
	var raw struct {
		plain
		Key *string `json:"key"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Key == nil {
		return errMissingField("key")
	}
	*s = Simlayer(raw.plain)
	s.Key = *raw.Key
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *SimpleModification) UnmarshalJSON(data []byte) error {
	var raw struct {
		From *string `json:"from"`
		To   *string `json:"to"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.From == nil {
		return errMissingField("from")
	}
	if raw.To == nil {
		return errMissingField("to")
	}
	*m = SimpleModification{From: *raw.From, To: *raw.To}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw struct {
		Description *string           `json:"description"`
		Layer       *string           `json:"layer"`
		Condition   *Condition        `json:"condition"`
		Mappings    []json.RawMessage `json:"mappings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Description == nil {
		return errMissingField("description")
	}
	if raw.Mappings == nil {
		return errMissingField("mappings")
	}

	rule := Rule{
		Description: *raw.Description,
		Condition:   raw.Condition,
		Mappings:    make([]Mapping, 0, len(raw.Mappings)),
	}
	if raw.Layer != nil {
		rule.Layer = *raw.Layer
	}
	for i, msg := range raw.Mappings {
		var m Mapping
		if err := json.Unmarshal(msg, &m); err != nil {
			return fmt.Errorf("mappings[%d]: %w", i, err)
		}
		rule.Mappings = append(rule.Mappings, m)
	}
	*r = rule
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw struct {
		From      *FromKey `json:"from"`
		To        *ToKey   `json:"to"`
		ToIfAlone *ToKey   `json:"to_if_alone"`
		ToIfHeld  *ToKey   `json:"to_if_held"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.From == nil {
		return errMissingField("from")
	}
	if raw.To == nil {
		return errMissingField("to")
	}
	*m = Mapping{
		From:      *raw.From,
		To:        *raw.To,
		ToIfAlone: raw.ToIfAlone,
		ToIfHeld:  raw.ToIfHeld,
	}
	return nil
}

func isAbsent(msg json.RawMessage) bool {
	return len(msg) == 0 || shapeOf(msg) == 'n'
}

func isEmptyArray(msg json.RawMessage) bool {
	return bytes.Equal(bytes.Join(bytes.Fields(msg), nil), []byte("[]"))
}

func errMissingField(name string) error {
	return fmt.Errorf("missing field %q", name)
}

// Validate checks constraints that decoding alone does not enforce.
func (c *Config) Validate() error {
	if c.Profile.Alone < 0 {
		return &SchemaError{Path: "profile.alone", Err: errors.New("must not be negative")}
	}
	if c.Profile.Sim < 0 {
		return &SchemaError{Path: "profile.sim", Err: errors.New("must not be negative")}
	}
	for name, layer := range c.Simlayers {
		if layer.Key == "" {
			return &SchemaError{Path: fmt.Sprintf("simlayers.%s.key", name), Err: errors.New("must not be empty")}
		}
		if layer.Threshold != nil && *layer.Threshold < 0 {
			return &SchemaError{Path: fmt.Sprintf("simlayers.%s.threshold", name), Err: errors.New("must not be negative")}
		}
	}
	for i, mod := range c.Simple {
		if mod.From == "" || mod.To == "" {
			return &SchemaError{Path: fmt.Sprintf("simple[%d]", i), Err: errors.New("from and to must not be empty")}
		}
	}
	for i, rule := range c.Rules {
		for j, m := range rule.Mappings {
			path := fmt.Sprintf("rules[%d].mappings[%d]", i, j)
			if err := m.From.validate(); err != nil {
				return &SchemaError{Path: path + ".from", Err: err}
			}
			if err := m.To.validate(); err != nil {
				return &SchemaError{Path: path + ".to", Err: err}
			}
			if m.ToIfAlone != nil {
				if err := m.ToIfAlone.validate(); err != nil {
					return &SchemaError{Path: path + ".to_if_alone", Err: err}
				}
			}
			if m.ToIfHeld != nil {
				if err := m.ToIfHeld.validate(); err != nil {
					return &SchemaError{Path: path + ".to_if_held", Err: err}
				}
			}
		}
	}
	return nil
}
