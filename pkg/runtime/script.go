package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
)

// scriptRuntime describes an external JavaScript runtime able to import a
// TypeScript module and print its default export.
type scriptRuntime struct {
	name       string
	minVersion string
	evalArgs   func(source string) []string
}

var scriptRuntimes = []scriptRuntime{
	{
		name: RuntimeDeno,
		// --ext for deno eval arrived in 1.31.
		minVersion: "1.31.0",
		evalArgs: func(source string) []string {
			return []string{"eval", "--ext=ts", source}
		},
	},
	{
		name:       RuntimeBun,
		minVersion: "1.0.0",
		evalArgs: func(source string) []string {
			return []string{"eval", source}
		},
	},
}

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// ErrNoRuntime is returned when neither deno nor bun is installed.
var ErrNoRuntime = errors.New("no TypeScript runtime found. Install Deno or Bun:\n  curl -fsSL https://deno.land/install.sh | sh\n  curl -fsSL https://bun.sh/install | bash")

// ScriptError carries the stderr of a failed config script.
type ScriptError struct {
	Runtime string
	Stderr  string
	Err     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s failed to evaluate config: %v\n%s", e.Runtime, e.Err, e.Stderr)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// VersionError is returned when the installed runtime is too old.
type VersionError struct {
	Runtime  string
	Found    string
	Required string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s %s is too old, kar needs %s or newer", e.Runtime, e.Found, e.Required)
}

func evaluateScript(ctx context.Context, path, forced string, log *logrus.Entry) ([]byte, error) {
	rt, bin, err := detectRuntime(forced)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(ctx, rt, bin); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"runtime": rt.name, "binary": bin}).Debug("Running config script")

	cmd := exec.CommandContext(ctx, bin, rt.evalArgs(wrapperSource(path))...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ScriptError{Runtime: rt.name, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return bytes.TrimSpace(stdout.Bytes()), nil
}

func detectRuntime(forced string) (scriptRuntime, string, error) {
	if forced != "" && forced != RuntimeAuto {
		for _, rt := range scriptRuntimes {
			if rt.name == forced {
				bin, err := lookPath(rt.name)
				if err != nil {
					return scriptRuntime{}, "", fmt.Errorf("runtime %s not found in PATH: %w", forced, err)
				}
				return rt, bin, nil
			}
		}
		return scriptRuntime{}, "", fmt.Errorf("unknown runtime %q (expected %s, %s or %s)", forced, RuntimeAuto, RuntimeDeno, RuntimeBun)
	}

	for _, rt := range scriptRuntimes {
		if bin, err := lookPath(rt.name); err == nil {
			return rt, bin, nil
		}
	}
	return scriptRuntime{}, "", ErrNoRuntime
}

func checkVersion(ctx context.Context, rt scriptRuntime, bin string) error {
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return fmt.Errorf("failed to read %s version: %w", rt.name, err)
	}
	found, err := parseVersion(string(out))
	if err != nil {
		return fmt.Errorf("failed to parse %s version: %w", rt.name, err)
	}
	constraint, err := semver.NewConstraint(">= " + rt.minVersion)
	if err != nil {
		return err
	}
	if !constraint.Check(found) {
		return &VersionError{Runtime: rt.name, Found: found.String(), Required: rt.minVersion}
	}
	return nil
}

// parseVersion finds the first semantic version on the first line of a
// --version banner. It accepts "deno 1.46.3 (stable, release, aarch64)" and
// a bare "1.1.29".
func parseVersion(banner string) (*semver.Version, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(banner), "\n")
	for _, field := range strings.Fields(line) {
		if v, err := semver.NewVersion(field); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no version in %q", line)
}

// wrapperSource imports the config module's default export and prints it as
// JSON.
func wrapperSource(path string) string {
	return fmt.Sprintf("import config from %s;\nconsole.log(JSON.stringify(config));\n", strconv.Quote("file://"+path))
}
