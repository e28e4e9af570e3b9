// Package runtime turns a user's config file into the JSON value that
// config.Parse consumes. TypeScript and JavaScript configs run under an
// external runtime, Lua configs run in-process, and static formats are
// converted directly.
package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/kar/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Runtime names accepted by Options.Runtime.
const (
	RuntimeAuto = "auto"
	RuntimeDeno = "deno"
	RuntimeBun  = "bun"
)

// Options controls evaluation.
type Options struct {
	// Runtime forces a script runtime. Empty or RuntimeAuto tries deno first
	// and then bun.
	Runtime string
	Logger  *logrus.Entry
}

// UnsupportedFormatError is returned for a config file extension kar cannot
// evaluate.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported config format %q for %s (expected .ts, .js, .mts, .lua, .json, .yaml, .yml or .toml)", e.Ext, e.Path)
}

// Evaluate runs or reads the config at path and returns its JSON value.
func Evaluate(ctx context.Context, path string, opts Options) ([]byte, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewLogger("runtime")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("config file not found: %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(abs))
	log.WithFields(logrus.Fields{"path": abs, "format": ext}).Debug("Evaluating config")

	switch ext {
	case ".ts", ".mts", ".js", ".mjs":
		return evaluateScript(ctx, abs, opts.Runtime, log)
	case ".lua":
		return evaluateLua(abs)
	case ".json":
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", abs, err)
		}
		return data, nil
	case ".yaml", ".yml":
		return evaluateYAML(abs)
	case ".toml":
		return evaluateTOML(abs)
	default:
		return nil, &UnsupportedFormatError{Path: path, Ext: ext}
	}
}
