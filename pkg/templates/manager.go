// Package templates holds the starter configs written by kar init.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"github.com/grovetools/kar/pkg/config"
)

//go:embed files
var templateFiles embed.FS

// Format selects the language of a starter config.
type Format string

const (
	FormatTS   Format = "ts"
	FormatLua  Format = "lua"
	FormatYAML Format = "yaml"
)

// Formats lists the supported starter formats, default first.
var Formats = []Format{FormatTS, FormatLua, FormatYAML}

const typesTemplate = "types/index.ts.tmpl"

// ExistsError is returned when a starter would overwrite an existing config.
type ExistsError struct {
	Path string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("config already exists at %s", e.Path)
}

type Manager struct {
	templates map[string]*template.Template
}

// TemplateData fills in the starter configs.
type TemplateData struct {
	Alone    int
	Sim      int
	Layer    string
	LayerKey string
}

// DefaultData returns the values used by kar init.
func DefaultData() TemplateData {
	return TemplateData{
		Alone:    config.DefaultAlone,
		Sim:      config.DefaultSim,
		Layer:    "nav",
		LayerKey: "f",
	}
}

func NewManager() *Manager {
	m := &Manager{
		templates: make(map[string]*template.Template),
	}
	m.loadTemplates()
	return m
}

func (m *Manager) loadTemplates() {
	err := fs.WalkDir(templateFiles, "files", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := templateFiles.ReadFile(p)
		if err != nil {
			return err
		}
		name := p[len("files/"):]
		tmpl, err := template.New(name).Parse(string(content))
		if err != nil {
			panic(fmt.Sprintf("failed to parse template %s: %v", name, err))
		}
		m.templates[name] = tmpl
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("failed to load templates: %v", err))
	}
}

// Render executes the named template.
func (m *Manager) Render(templateName string, data TemplateData) ([]byte, error) {
	tmpl, ok := m.templates[templateName]
	if !ok {
		return nil, fmt.Errorf("template %s not found", templateName)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", templateName, err)
	}
	return buf.Bytes(), nil
}

func (m *Manager) GenerateFile(templateName, outputPath string, data TemplateData) error {
	content, err := m.Render(templateName, data)
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(outputPath, content, 0644)
}

// ConfigTemplate returns the template name of the starter config for format.
func ConfigTemplate(format Format) (string, error) {
	for _, f := range Formats {
		if f == format {
			return "config." + string(format) + ".tmpl", nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (want ts, lua or yaml)", format)
}

// Install writes the starter config for format into dir and returns the
// paths it created. The TypeScript starter also gets its type definitions.
// An existing config of any supported format is never overwritten.
func (m *Manager) Install(dir string, format Format, data TemplateData) ([]string, error) {
	name, err := ConfigTemplate(format)
	if err != nil {
		return nil, err
	}

	for _, f := range Formats {
		existing := filepath.Join(dir, "config."+string(f))
		if _, err := os.Stat(existing); err == nil {
			return nil, &ExistsError{Path: existing}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	targets := []string{name}
	if format == FormatTS {
		targets = append(targets, typesTemplate)
	}

	var written []string
	for _, t := range targets {
		out := filepath.Join(dir, filepath.FromSlash(trimTemplateExt(t)))
		if err := m.GenerateFile(t, out, data); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", out, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func trimTemplateExt(name string) string {
	return name[:len(name)-len(path.Ext(name))]
}
