// Package schema generates the JSON Schema of the kar config format, for
// editor completion and validation of JSON and YAML configs.
package schema

import (
	"encoding/json"
	"reflect"

	"github.com/grovetools/kar/pkg/config"
	"github.com/invopop/jsonschema"
)

const (
	// ID is the canonical identifier of the generated schema.
	ID          = "https://grovetools.dev/schemas/kar.schema.json"
	toKeyDefRef = "#/$defs/ToKey"
)

var (
	fromKeyType   = reflect.TypeOf(config.FromKey{})
	toKeyType     = reflect.TypeOf(config.ToKey{})
	modifiersType = reflect.TypeOf(config.Modifiers{})
	conditionType = reflect.TypeOf(config.Condition{})
)

// Generate reflects the config types into a schema. The variant types, whose
// JSON shape depends on the value, are described with oneOf.
func Generate() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper:                     mapVariant,
	}

	s := r.Reflect(&config.Config{})
	s.ID = ID
	s.Title = "kar configuration"
	s.Description = "Simplified Karabiner-Elements configuration compiled by kar."
	if s.Definitions == nil {
		s.Definitions = jsonschema.Definitions{}
	}
	s.Definitions["ToKey"] = toKeySchema()
	return s
}

// JSON returns the indented schema document.
func JSON() ([]byte, error) {
	data, err := json.MarshalIndent(Generate(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func mapVariant(t reflect.Type) *jsonschema.Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case fromKeyType:
		return fromKeySchema()
	case toKeyType:
		return &jsonschema.Schema{Ref: toKeyDefRef}
	case modifiersType:
		return modifiersSchema()
	case conditionType:
		return conditionSchema()
	default:
		return nil
	}
}

func stringSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func stringListSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
}

func objectSchema(required []string, props ...propertyDef) *jsonschema.Schema {
	properties := jsonschema.NewProperties()
	for _, p := range props {
		properties.Set(p.name, p.schema)
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

type propertyDef struct {
	name   string
	schema *jsonschema.Schema
}

func modifiersSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			stringListSchema(),
		},
	}
}

func fromKeySchema() *jsonschema.Schema {
	chord := stringListSchema()
	minItems := uint64(2)
	chord.MinItems = &minItems
	chord.Description = "Keys pressed together"

	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			stringSchema("Key code"),
			objectSchema([]string{"key"},
				propertyDef{"key", stringSchema("Key code")},
				propertyDef{"modifiers", modifiersSchema()},
				propertyDef{"optional", stringListSchema()},
			),
			chord,
		},
	}
}

func toKeySchema() *jsonschema.Schema {
	integer := func() *jsonschema.Schema { return &jsonschema.Schema{Type: "integer"} }
	mouse := objectSchema(nil,
		propertyDef{"x", integer()},
		propertyDef{"y", integer()},
		propertyDef{"vertical_wheel", integer()},
		propertyDef{"horizontal_wheel", integer()},
		propertyDef{"speed_multiplier", &jsonschema.Schema{Type: "number"}},
	)

	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			stringSchema("Key code"),
			objectSchema([]string{"key"},
				propertyDef{"key", stringSchema("Key code")},
				propertyDef{"modifiers", modifiersSchema()},
			),
			objectSchema([]string{"shell"},
				propertyDef{"shell", stringSchema("Shell command")},
			),
			objectSchema([]string{"mouse_key"},
				propertyDef{"mouse_key", mouse},
			),
			objectSchema([]string{"pointing_button"},
				propertyDef{"pointing_button", stringSchema("Pointing button, e.g. button1")},
				propertyDef{"modifiers", modifiersSchema()},
			),
			{
				Type:        "array",
				Items:       &jsonschema.Schema{Ref: toKeyDefRef},
				Description: "Outputs sent in order",
			},
		},
	}
}

func conditionSchema() *jsonschema.Schema {
	value := &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "number"},
			{Type: "boolean"},
		},
	}
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			objectSchema([]string{"app"},
				propertyDef{"app", stringSchema("Bundle identifier regular expression")},
			),
			objectSchema([]string{"variable", "value"},
				propertyDef{"variable", stringSchema("Variable name")},
				propertyDef{"value", value},
			),
		},
	}
}
