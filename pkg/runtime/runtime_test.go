package runtime

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/kar/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietOptions() Options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Options{Logger: logrus.NewEntry(l)}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const expectedJSON = `{
	"profile": {"sim": 150},
	"simlayers": {"nav": {"key": "f"}},
	"simple": [{"from": "caps_lock", "to": "left_control"}],
	"rules": [{
		"description": "nav",
		"layer": "nav",
		"mappings": [
			{"from": "j", "to": "down_arrow"},
			{"from": {"key": "h", "modifiers": ["shift"]}, "to": [{"key": "left_arrow", "modifiers": "option"}]},
			{"from": ["j", "k"], "to": "escape"}
		]
	}]
}`

func TestEvaluateStaticFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "json",
			file:    "config.json",
			content: expectedJSON,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
profile:
  sim: 150
simlayers:
  nav:
    key: f
simple:
  - from: caps_lock
    to: left_control
rules:
  - description: nav
    layer: nav
    mappings:
      - from: j
        to: down_arrow
      - from: {key: h, modifiers: [shift]}
        to:
          - key: left_arrow
            modifiers: option
      - from: [j, k]
        to: escape
`,
		},
		{
			name: "toml",
			file: "config.toml",
			content: `
simple = [{ from = "caps_lock", to = "left_control" }]

[profile]
sim = 150

[simlayers.nav]
key = "f"

[[rules]]
description = "nav"
layer = "nav"
mappings = [
  { from = "j", to = "down_arrow" },
  { from = { key = "h", modifiers = ["shift"] }, to = [{ key = "left_arrow", modifiers = "option" }] },
  { from = ["j", "k"], to = "escape" },
]
`,
		},
		{
			name: "lua",
			file: "config.lua",
			content: `
local nav = {
  { from = "j", to = "down_arrow" },
  { from = { key = "h", modifiers = { "shift" } }, to = { { key = "left_arrow", modifiers = "option" } } },
  { from = { "j", "k" }, to = "escape" },
}

return {
  profile = { sim = 150 },
  simlayers = { nav = { key = "f" } },
  simple = { { from = "caps_lock", to = "left_control" } },
  rules = {
    { description = "nav", layer = "nav", mappings = nav },
  },
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			data, err := Evaluate(context.Background(), path, quietOptions())
			require.NoError(t, err)
			assert.JSONEq(t, expectedJSON, string(data))
		})
	}
}

func TestEvaluateLuaHelpers(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.lua", `
return {
  rules = {
    {
      description = "launchers",
      mappings = {
        { from = "a", to = kar.shell("say hi") },
        { from = "b", to = kar.km("Tile Left") },
        { from = "c", to = kar.open("/Applications/Safari.app") },
        { from = "d", to = kar.open_url("https://example.com") },
        { from = "e", to = kar.raycast("raycast/clipboard-history/clipboard-history") },
        { from = "f", to = kar.zed("~/notes") },
        { from = "g", to = kar.alfred("com.example.wf", "search", "go") },
      },
    },
  },
}
`)

	data, err := Evaluate(context.Background(), path, quietOptions())
	require.NoError(t, err)
	assert.JSONEq(t, `{"rules": [{"description": "launchers", "mappings": [
		{"from": "a", "to": {"shell": "say hi"}},
		{"from": "b", "to": {"shell": "osascript -e 'tell application \"Keyboard Maestro Engine\" to do script \"Tile Left\"'"}},
		{"from": "c", "to": {"shell": "open \"/Applications/Safari.app\""}},
		{"from": "d", "to": {"shell": "open \"https://example.com\""}},
		{"from": "e", "to": {"shell": "open -g \"raycast://extensions/raycast/clipboard-history/clipboard-history\""}},
		{"from": "f", "to": {"shell": "open -a /Applications/Zed.app \"$HOME/notes\""}},
		{"from": "g", "to": {"shell": "osascript -e 'tell application id \"com.runningwithcrayons.Alfred\" to run trigger \"search\" in workflow \"com.example.wf\" with argument \"go\"'"}}
	]}]}`, string(data))
}

func TestEvaluateLuaValues(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.lua", `
return {
  profile = { alone = 100 },
  rules = {},
  extra = { ratio = 1.5, flag = true },
}
`)

	data, err := Evaluate(context.Background(), path, quietOptions())
	require.NoError(t, err)
	assert.JSONEq(t, `{"profile": {"alone": 100}, "rules": [], "extra": {"ratio": 1.5, "flag": true}}`, string(data))
}

func TestEvaluateLuaEmptyTables(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.lua", `
return {
  profile = {},
  simlayers = {},
  simple = {},
  rules = {},
}
`)

	data, err := Evaluate(context.Background(), path, quietOptions())
	require.NoError(t, err)

	cfg, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSim, cfg.Profile.Sim)
	assert.Empty(t, cfg.Simlayers)
	assert.Empty(t, cfg.Rules)
}

func TestEvaluateLuaErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax error", `return {`},
		{"runtime error", `error("boom")`},
		{"not a table", `return 42`},
		{"nothing returned", `local x = 1`},
		{"function value", `return { rules = function() end }`},
		{"mixed table", `return { "a", b = 1 }`},
		{"bad helper argument", `return { to = kar.shell({}) }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.lua", tt.content)
			_, err := Evaluate(context.Background(), path, quietOptions())
			assert.Error(t, err)
		})
	}
}

func TestEvaluateStaticErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad yaml", "config.yaml", "rules: [\n"},
		{"bad toml", "config.toml", "rules = [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := Evaluate(context.Background(), path, quietOptions())
			assert.Error(t, err)
		})
	}
}

func TestEvaluateMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.ts")
	_, err := Evaluate(context.Background(), path, quietOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
	assert.Contains(t, err.Error(), "absent.ts")
}

func TestEvaluateUnsupportedFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.xml", "<config/>")
	_, err := Evaluate(context.Background(), path, quietOptions())

	var formatErr *UnsupportedFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, ".xml", formatErr.Ext)
}

func TestEvaluateYAMLNonStringKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "simlayers:\n  1:\n    key: f\n")
	data, err := Evaluate(context.Background(), path, quietOptions())
	require.NoError(t, err)
	assert.JSONEq(t, `{"simlayers": {"1": {"key": "f"}}}`, string(data))
}
