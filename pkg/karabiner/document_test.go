package karabiner

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "global": {"show_in_menu_bar": false, "future_flag": 7},
  "profiles": [
    {
      "name": "Default",
      "selected": false,
      "virtual_hid_keyboard": {"keyboard_type_v2": "ansi"},
      "simple_modifications": [
        {"from": {"key_code": "caps_lock"}, "to": [{"key_code": "escape"}]}
      ]
    },
    {
      "name": "kar",
      "selected": true,
      "devices": [{"identifiers": {"vendor_id": 1452}, "ignore": false}],
      "simple_modifications": [
        {"from": {"key_code": "right_command"}, "to": [{"key_code": "f18"}]}
      ],
      "complex_modifications": {
        "parameters": {"basic.simultaneous_threshold_milliseconds": 50},
        "rules": [
          {"description": "old", "manipulators": [{"type": "basic", "from": {"key_code": "a"}, "to": [{"key_code": "b"}]}]}
        ]
      }
    }
  ]
}`

func decodeGeneric(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func profileByName(t *testing.T, doc map[string]any, name string) map[string]any {
	t.Helper()
	for _, p := range doc["profiles"].([]any) {
		profile := p.(map[string]any)
		if profile["name"] == name {
			return profile
		}
	}
	t.Fatalf("profile %q not found", name)
	return nil
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)
	require.Len(t, doc.Profiles, 2)

	assert.Equal(t, "Default", doc.Profiles[0].Name)
	selected, err := doc.Profiles[0].Selected()
	require.NoError(t, err)
	assert.False(t, selected)
	selected, err = doc.Profiles[1].Selected()
	require.NoError(t, err)
	assert.True(t, selected)

	rules, err := doc.Profiles[1].Rules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "old", rules[0].Description)
	assert.Equal(t, "a", rules[0].Manipulators[0].From.KeyCode)

	mods, err := doc.Profiles[1].SimpleModifications()
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "right_command", mods[0].From.KeyCode)
}

func TestParseDocumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"null", `null`},
		{"array", `[]`},
		{"missing profiles", `{"global": {}}`},
		{"profiles not a list", `{"profiles": {}}`},
		{"profile name not a string", `{"profiles": [{"name": 3}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	t.Run("ReplacesRulesAndSimpleModifications", func(t *testing.T) {
		doc, err := ParseDocument([]byte(sampleDocument))
		require.NoError(t, err)

		rules := []Rule{{
			Description:  "new",
			Manipulators: []Manipulator{{Type: ManipulatorTypeBasic, From: FromEvent{KeyCode: "j"}, To: []ToEvent{{KeyCode: "escape"}}}},
		}}
		simple := []SimpleModification{{
			From: SimpleModificationKey{KeyCode: "caps_lock"},
			To:   []SimpleModificationKey{{KeyCode: "left_control"}},
		}}
		require.NoError(t, doc.UpdateProfile("kar", rules, simple))

		data, err := doc.Encode()
		require.NoError(t, err)
		out := decodeGeneric(t, data)

		kar := profileByName(t, out, "kar")
		complexMods := kar["complex_modifications"].(map[string]any)
		gotRules := complexMods["rules"].([]any)
		require.Len(t, gotRules, 1)
		assert.Equal(t, "new", gotRules[0].(map[string]any)["description"])
		assert.Equal(t, map[string]any{"basic.simultaneous_threshold_milliseconds": float64(50)}, complexMods["parameters"])

		gotSimple := kar["simple_modifications"].([]any)
		require.Len(t, gotSimple, 1)
		assert.Equal(t, "caps_lock", gotSimple[0].(map[string]any)["from"].(map[string]any)["key_code"])
	})

	t.Run("EmptySimpleModificationsKeepExisting", func(t *testing.T) {
		doc, err := ParseDocument([]byte(sampleDocument))
		require.NoError(t, err)

		require.NoError(t, doc.UpdateProfile("kar", nil, nil))

		data, err := doc.Encode()
		require.NoError(t, err)
		kar := profileByName(t, decodeGeneric(t, data), "kar")

		assert.Equal(t, []any{}, kar["complex_modifications"].(map[string]any)["rules"])
		gotSimple := kar["simple_modifications"].([]any)
		require.Len(t, gotSimple, 1)
		assert.Equal(t, "right_command", gotSimple[0].(map[string]any)["from"].(map[string]any)["key_code"])
	})

	t.Run("UnknownFieldsPassThrough", func(t *testing.T) {
		doc, err := ParseDocument([]byte(sampleDocument))
		require.NoError(t, err)
		require.NoError(t, doc.UpdateProfile("kar", nil, nil))

		data, err := doc.Encode()
		require.NoError(t, err)
		out := decodeGeneric(t, data)
		orig := decodeGeneric(t, []byte(sampleDocument))

		assert.Equal(t, orig["global"], out["global"])
		assert.Equal(t, profileByName(t, orig, "Default"), profileByName(t, out, "Default"))

		kar := profileByName(t, out, "kar")
		origKar := profileByName(t, orig, "kar")
		assert.Equal(t, origKar["devices"], kar["devices"])
		assert.Equal(t, true, kar["selected"])
	})

	t.Run("MissingComplexModificationsIsCreated", func(t *testing.T) {
		doc, err := ParseDocument([]byte(`{"profiles": [{"name": "kar"}]}`))
		require.NoError(t, err)
		require.NoError(t, doc.UpdateProfile("kar", []Rule{{Description: "r", Manipulators: []Manipulator{}}}, nil))

		rules, err := doc.Profiles[0].Rules()
		require.NoError(t, err)
		require.Len(t, rules, 1)

		mods, err := doc.Profiles[0].SimpleModifications()
		require.NoError(t, err)
		assert.Nil(t, mods)
	})

	t.Run("ProfileNotFound", func(t *testing.T) {
		doc, err := ParseDocument([]byte(sampleDocument))
		require.NoError(t, err)

		err = doc.UpdateProfile("missing", nil, nil)
		var notFound *ProfileNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "missing", notFound.Name)
		assert.Equal(t, []string{"Default", "kar"}, notFound.Available)
		assert.Contains(t, err.Error(), "profile 'missing' not found")
	})
}

func TestUpdateFile(t *testing.T) {
	t.Run("WritesDocument", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "karabiner.json")
		require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0600))

		rules := []Rule{{Description: "new", Manipulators: []Manipulator{}}}
		updated, err := UpdateFile(path, "kar", rules, nil)
		require.NoError(t, err)
		assert.Equal(t, "kar", updated.Name)

		doc, err := ReadFile(path)
		require.NoError(t, err)
		kar, err := doc.Profile("kar")
		require.NoError(t, err)
		got, err := kar.Rules()
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "new", got[0].Description)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary file should not be left behind")
	})

	t.Run("MissingProfileLeavesFileUntouched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "karabiner.json")
		require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0644))

		_, err := UpdateFile(path, "nope", []Rule{{Description: "x"}}, nil)
		var notFound *ProfileNotFoundError
		require.ErrorAs(t, err, &notFound)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, sampleDocument, string(data))
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := UpdateFile(filepath.Join(t.TempDir(), "absent.json"), "kar", nil, nil)
		assert.Error(t, err)
	})

	t.Run("SymlinkIsKept", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on windows")
		}
		dir := t.TempDir()
		dotfiles := filepath.Join(dir, "dotfiles")
		require.NoError(t, os.Mkdir(dotfiles, 0755))
		target := filepath.Join(dotfiles, "karabiner.json")
		require.NoError(t, os.WriteFile(target, []byte(sampleDocument), 0644))
		link := filepath.Join(dir, "karabiner.json")
		require.NoError(t, os.Symlink(target, link))

		rules := []Rule{{Description: "linked", Manipulators: []Manipulator{}}}
		_, err := UpdateFile(link, "kar", rules, nil)
		require.NoError(t, err)

		info, err := os.Lstat(link)
		require.NoError(t, err)
		assert.True(t, info.Mode()&os.ModeSymlink != 0, "link should still be a symlink")

		doc, err := ReadFile(target)
		require.NoError(t, err)
		kar, err := doc.Profile("kar")
		require.NoError(t, err)
		got, err := kar.Rules()
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "linked", got[0].Description)

		entries, err := os.ReadDir(dotfiles)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary file should not be left behind")
	})
}

func TestParseDocumentRejectsNullProfile(t *testing.T) {
	_, err := ParseDocument([]byte(`{"profiles": [null, {"name": "kar"}]}`))
	assert.ErrorContains(t, err, "profiles[0]: must be an object")
}

func TestSelectedInvalidValue(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"profiles": [{"name": "kar", "selected": "yes"}]}`))
	require.NoError(t, err)
	_, err = doc.Profiles[0].Selected()
	assert.Error(t, err)
}

func TestEncodeKeepsShellCommandsUnescaped(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"global": {"note": "a&b <c>"},
		"profiles": [{"name": "kar", "selected": true}]
	}`))
	require.NoError(t, err)

	rules := []Rule{{
		Description: "shell",
		Manipulators: []Manipulator{{
			Type: ManipulatorTypeBasic,
			From: FromEvent{KeyCode: "o"},
			To:   []ToEvent{{ShellCommand: "open 'a&b' > /tmp/<x>"}},
		}},
	}}
	require.NoError(t, doc.UpdateProfile("kar", rules, nil))

	data, err := doc.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"shell_command": "open 'a&b' > /tmp/<x>"`)
	assert.Contains(t, string(data), `"note": "a&b <c>"`)
	assert.NotContains(t, string(data), `\u0026`)
}
