package keys

import (
	"io"
	"testing"

	"github.com/grovetools/kar/pkg/compiler"
	"github.com/grovetools/kar/pkg/config"
	"github.com/grovetools/kar/pkg/karabiner"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) []karabiner.Rule {
	t.Helper()
	cfg, err := config.Parse([]byte(src))
	require.NoError(t, err)
	l := logrus.New()
	l.SetOutput(io.Discard)
	rules, err := compiler.Compile(cfg, compiler.Options{Logger: logrus.NewEntry(l)})
	require.NoError(t, err)
	return rules
}

const layeredConfig = `{
	"simlayers": {"nav": {"key": "f"}, "sym": {"key": "d"}},
	"rules": [
		{"description": "base", "mappings": [
			{"from": "caps_lock", "to": "escape"},
			{"from": {"key": "k", "modifiers": ["shift", "command"]}, "to": "up_arrow"}
		]},
		{"description": "nav", "layer": "nav", "mappings": [
			{"from": "j", "to": "down_arrow"},
			{"from": "k", "to": "up_arrow"}
		]},
		{"description": "sym", "layer": "sym", "mappings": [
			{"from": "j", "to": {"key": "9", "modifiers": "shift"}}
		]},
		{"description": "terminal", "condition": {"app": "com.apple.Terminal"}, "mappings": [
			{"from": "caps_lock", "to": "left_control"}
		]}
	]
}`

func TestExtract(t *testing.T) {
	bindings := Extract(compile(t, layeredConfig))
	require.Len(t, bindings, 9)

	assert.Equal(t, Binding{Layer: BaseLayer, Trigger: "caps_lock", Output: "escape", Rule: "base"}, bindings[0])
	assert.Equal(t, Binding{Layer: BaseLayer, Trigger: "command+shift+k", Output: "up_arrow", Rule: "base"}, bindings[1])

	assert.Equal(t, Binding{Layer: "nav", Trigger: "j", Output: "down_arrow", Rule: "nav"}, bindings[2])
	assert.Equal(t, Binding{Layer: "nav", Trigger: "f+j", Output: "down_arrow", Rule: "nav", Arms: true}, bindings[3])

	assert.Equal(t, Binding{Layer: "sym", Trigger: "j", Output: "shift+9", Rule: "sym"}, bindings[6])

	assert.Equal(t, Binding{Layer: BaseLayer, Context: "app=com.apple.Terminal", Trigger: "caps_lock", Output: "left_control", Rule: "terminal"}, bindings[8])
}

func TestExtractPlainVariableConditionIsContext(t *testing.T) {
	bindings := Extract(compile(t, `{"rules": [
		{"description": "vim", "condition": {"variable": "mode", "value": 1}, "mappings": [{"from": "h", "to": "left_arrow"}]}
	]}`))

	require.Len(t, bindings, 1)
	assert.Equal(t, BaseLayer, bindings[0].Layer)
	assert.Equal(t, "mode=1", bindings[0].Context)
}

func TestDetectConflicts(t *testing.T) {
	t.Run("NoConflictsAcrossLayersOrContexts", func(t *testing.T) {
		conflicts := DetectConflicts(Extract(compile(t, layeredConfig)))
		assert.Empty(t, conflicts)
	})

	t.Run("SameTriggerTwiceInALayer", func(t *testing.T) {
		rules := compile(t, `{
			"simlayers": {"nav": {"key": "f"}},
			"rules": [
				{"description": "one", "layer": "nav", "mappings": [{"from": "j", "to": "down_arrow"}]},
				{"description": "two", "layer": "nav", "mappings": [{"from": "j", "to": "page_down"}]},
				{"description": "base", "mappings": [
					{"from": {"key": "a", "modifiers": ["shift", "command"]}, "to": "b"},
					{"from": {"key": "a", "modifiers": ["command", "shift"]}, "to": "c"}
				]}
			]
		}`)

		conflicts := DetectConflicts(Extract(rules))
		require.Len(t, conflicts, 2)

		assert.Equal(t, BaseLayer, conflicts[0].Layer)
		assert.Equal(t, "command+shift+a", conflicts[0].Trigger)
		require.Len(t, conflicts[0].Bindings, 2)

		assert.Equal(t, "nav", conflicts[1].Layer)
		assert.Equal(t, "j", conflicts[1].Trigger)
		assert.Equal(t, []string{"one", "two"}, []string{conflicts[1].Bindings[0].Rule, conflicts[1].Bindings[1].Rule})

		grouped := GroupConflictsByLayer(conflicts)
		assert.Len(t, grouped["nav"], 1)
		assert.Len(t, grouped[BaseLayer], 1)
	})

	t.Run("IdenticalDuplicateIsIgnored", func(t *testing.T) {
		rules := compile(t, `{"rules": [
			{"description": "r", "mappings": [{"from": "a", "to": "b"}, {"from": "a", "to": "b"}]}
		]}`)
		assert.Empty(t, DetectConflicts(Extract(rules)))
	})
}

func TestCountBindings(t *testing.T) {
	bindings := Extract(compile(t, layeredConfig))
	assert.Equal(t, 3, CountBindings(bindings, BaseLayer))
	assert.Equal(t, 2, CountBindings(bindings, "nav"))
	assert.Equal(t, 1, CountBindings(bindings, "sym"))
}

func TestBuildMatrix(t *testing.T) {
	matrix := BuildMatrix(Extract(compile(t, layeredConfig)))

	assert.Equal(t, []string{BaseLayer, "nav", "sym"}, matrix.Layers)

	var triggers []string
	for _, row := range matrix.Rows {
		triggers = append(triggers, row.Trigger)
	}
	assert.Equal(t, []string{"caps_lock", "command+shift+k", "j", "k"}, triggers)

	caps := matrix.Rows[0]
	assert.Equal(t, "escape | left_control [app=com.apple.Terminal]", caps.Layers[BaseLayer])
	assert.True(t, caps.Conditional)

	j := matrix.Rows[2]
	assert.Equal(t, map[string]string{"nav": "down_arrow", "sym": "shift+9"}, j.Layers)
	assert.False(t, j.Conditional)
}

func TestNormalizeModifiers(t *testing.T) {
	assert.Equal(t, []string{"command", "option", "shift"}, NormalizeModifiers([]string{"shift", "option", "command", "shift"}))
	assert.Equal(t, []string{"fn", "left_control", "hyper"}, NormalizeModifiers([]string{"hyper", "left_control", "fn"}))
	assert.Empty(t, NormalizeModifiers(nil))
}

func TestDescribeOutput(t *testing.T) {
	assert.Equal(t, "(none)", DescribeOutput(nil))
	assert.Equal(t, "shell: open -a Safari, command+shift+c, nav=1", DescribeOutput([]karabiner.ToEvent{
		{ShellCommand: "open -a Safari"},
		{KeyCode: "c", Modifiers: []string{"shift", "command"}},
		karabiner.SetVariableEvent("nav", 1),
	}))
}
