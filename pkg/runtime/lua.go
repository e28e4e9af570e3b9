package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

// evaluateLua runs a Lua config in a fresh state. The chunk must return a
// table. Helpers that build shell outputs are available under the global
// "kar", and modules next to the config can be loaded with require.
func evaluateLua(path string) ([]byte, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerHelpers(state)
	prependPackagePath(state, filepath.Dir(path))

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", path, err)
	}
	if state.TypeOf(-1) != lua.TypeTable {
		return nil, fmt.Errorf("%s must return a table, got %s", path, lua.TypeNameOf(state, -1))
	}

	value, err := luaToGo(state, -1)
	state.Pop(1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return json.Marshal(value)
}

func prependPackagePath(state *lua.State, dir string) {
	state.Global("package")
	if !state.IsTable(-1) {
		state.Pop(1)
		return
	}
	state.PushString(filepath.Join(dir, "?.lua") + ";")
	state.Field(-2, "path")
	state.Concat(2)
	state.SetField(-2, "path")
	state.Pop(1)
}

var helperFunctions = []lua.RegistryFunction{
	{Name: "shell", Function: shellHelper},
	{Name: "km", Function: keyboardMaestroHelper},
	{Name: "open", Function: openHelper},
	{Name: "open_url", Function: openHelper},
	{Name: "zed", Function: zedHelper},
	{Name: "alfred", Function: alfredHelper},
	{Name: "raycast", Function: raycastHelper},
}

func registerHelpers(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, helperFunctions, 0)
	state.SetGlobal("kar")
}

// pushShell leaves {shell = command} on the stack.
func pushShell(state *lua.State, command string) int {
	state.NewTable()
	state.PushString(command)
	state.SetField(-2, "shell")
	return 1
}

func shellHelper(state *lua.State) int {
	return pushShell(state, lua.CheckString(state, 1))
}

func keyboardMaestroHelper(state *lua.State) int {
	macro := lua.CheckString(state, 1)
	return pushShell(state, fmt.Sprintf(`osascript -e 'tell application "Keyboard Maestro Engine" to do script "%s"'`, macro))
}

func openHelper(state *lua.State) int {
	return pushShell(state, fmt.Sprintf(`open "%s"`, lua.CheckString(state, 1)))
}

func zedHelper(state *lua.State) int {
	path := lua.CheckString(state, 1)
	if strings.HasPrefix(path, "~/") {
		path = "$HOME" + path[1:]
	}
	return pushShell(state, fmt.Sprintf(`open -a /Applications/Zed.app "%s"`, path))
}

func alfredHelper(state *lua.State) int {
	workflow := lua.CheckString(state, 1)
	trigger := lua.CheckString(state, 2)
	arg := lua.OptString(state, 3, "")
	argPart := ""
	if arg != "" {
		argPart = fmt.Sprintf(` with argument "%s"`, arg)
	}
	return pushShell(state, fmt.Sprintf(`osascript -e 'tell application id "com.runningwithcrayons.Alfred" to run trigger "%s" in workflow "%s"%s'`, trigger, workflow, argPart))
}

func raycastHelper(state *lua.State) int {
	return pushShell(state, fmt.Sprintf(`open -g "raycast://extensions/%s"`, lua.CheckString(state, 1)))
}

func luaToGo(state *lua.State, index int) (any, error) {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value, nil
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value), nil
	case lua.TypeBoolean:
		return state.ToBoolean(index), nil
	case lua.TypeNil:
		return nil, nil
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil, fmt.Errorf("cannot convert Lua %s to JSON", lua.TypeNameOf(state, index))
	}
}

// tableToGo converts a sequence (keys 1..n) to a slice and any other table to
// a map. An empty table becomes an empty slice, since every list in a config
// may legitimately be empty while maps are usually omitted.
func tableToGo(state *lua.State, index int) (any, error) {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			value, err := luaToGo(state, -1)
			state.Pop(1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			result = append(result, value)
		}
		return result, nil
	}

	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) (map[string]any, error) {
	output := make(map[string]any)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) != lua.TypeString {
			state.Pop(2)
			return nil, fmt.Errorf("table mixes list entries with named fields")
		}
		key, _ := state.ToString(-2)
		value, err := luaToGo(state, -1)
		if err != nil {
			state.Pop(2)
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		output[key] = value
		state.Pop(1)
	}
	return output, nil
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}
