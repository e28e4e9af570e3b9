package karabiner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	fieldProfiles             = "profiles"
	fieldName                 = "name"
	fieldSelected             = "selected"
	fieldSimpleModifications  = "simple_modifications"
	fieldComplexModifications = "complex_modifications"
	fieldRules                = "rules"
)

// ProfileNotFoundError is returned when the requested profile does not exist.
type ProfileNotFoundError struct {
	Name      string
	Available []string
}

func (e *ProfileNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("profile '%s' not found", e.Name)
	}
	return fmt.Sprintf("profile '%s' not found (available: %v)", e.Name, e.Available)
}

// Document is a karabiner.json file. Only the profiles list is interpreted;
// every other top-level field is carried through unchanged.
type Document struct {
	Profiles []*Profile
	fields   map[string]json.RawMessage
}

// Profile is one entry of the profiles list. The name is decoded eagerly, the
// rule and simple modification lists on demand. All other fields, including
// ones kar does not know about, are written back exactly as they were read.
type Profile struct {
	Name   string
	fields map[string]json.RawMessage
}

// ParseDocument decodes a karabiner.json document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse karabiner.json: %w", err)
	}
	return &doc, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("document must be a JSON object")
	}

	raw, ok := fields[fieldProfiles]
	if !ok {
		return fmt.Errorf("missing field %q", fieldProfiles)
	}
	var profiles []*Profile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return fmt.Errorf("%s: %w", fieldProfiles, err)
	}
	for i, p := range profiles {
		if p == nil {
			return fmt.Errorf("%s[%d]: must be an object", fieldProfiles, i)
		}
	}
	delete(fields, fieldProfiles)

	d.Profiles = profiles
	d.fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.fields)+1)
	for k, v := range d.fields {
		out[k] = v
	}
	profiles := d.Profiles
	if profiles == nil {
		profiles = []*Profile{}
	}
	out[fieldProfiles] = profiles
	return marshal(out)
}

// Profile returns the profile with the given name.
func (d *Document) Profile(name string) (*Profile, error) {
	var names []string
	for _, p := range d.Profiles {
		if p.Name == name {
			return p, nil
		}
		names = append(names, p.Name)
	}
	return nil, &ProfileNotFoundError{Name: name, Available: names}
}

// UpdateProfile replaces the named profile's complex modification rules with
// rules. The simple modification list is replaced only when simple is
// non-empty, so substitutions managed elsewhere survive a config that declares
// none.
func (d *Document) UpdateProfile(name string, rules []Rule, simple []SimpleModification) error {
	profile, err := d.Profile(name)
	if err != nil {
		return err
	}
	if err := profile.SetRules(rules); err != nil {
		return err
	}
	if len(simple) > 0 {
		if err := profile.SetSimpleModifications(simple); err != nil {
			return err
		}
	}
	return nil
}

// Encode renders the document the way the daemon writes it: two-space
// indentation and a trailing newline.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// marshal is json.Marshal without HTML escaping, so shell commands such as
// "open 'a&b'" are written the way the daemon writes them.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Profile) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("profile must be a JSON object")
	}
	var name string
	if raw, ok := fields[fieldName]; ok {
		if err := json.Unmarshal(raw, &name); err != nil {
			return fmt.Errorf("profile %s: %w", fieldName, err)
		}
	}
	p.Name = name
	p.fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Profile) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.fields)+1)
	for k, v := range p.fields {
		out[k] = v
	}
	if _, ok := p.fields[fieldName]; ok || p.Name != "" {
		name, err := marshal(p.Name)
		if err != nil {
			return nil, err
		}
		out[fieldName] = name
	}
	return marshal(out)
}

// Selected reports whether the profile is the active one. A missing or null
// field means not selected.
func (p *Profile) Selected() (bool, error) {
	var selected bool
	if raw, ok := p.fields[fieldSelected]; ok {
		if err := json.Unmarshal(raw, &selected); err != nil {
			return false, fmt.Errorf("profile %s: %w", fieldSelected, err)
		}
	}
	return selected, nil
}

// Rules decodes the profile's complex_modifications.rules.
func (p *Profile) Rules() ([]Rule, error) {
	complexMods, err := p.complexModifications()
	if err != nil {
		return nil, err
	}
	var rules []Rule
	if raw, ok := complexMods[fieldRules]; ok {
		if err := json.Unmarshal(raw, &rules); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", fieldComplexModifications, fieldRules, err)
		}
	}
	return rules, nil
}

// SetRules replaces complex_modifications.rules, keeping every sibling field
// (parameters and anything newer) of complex_modifications intact.
func (p *Profile) SetRules(rules []Rule) error {
	complexMods, err := p.complexModifications()
	if err != nil {
		return err
	}
	if rules == nil {
		rules = []Rule{}
	}
	raw, err := marshal(rules)
	if err != nil {
		return err
	}
	complexMods[fieldRules] = raw

	encoded, err := marshal(complexMods)
	if err != nil {
		return err
	}
	p.ensureFields()
	p.fields[fieldComplexModifications] = encoded
	return nil
}

// SimpleModifications decodes the profile's simple_modifications list.
func (p *Profile) SimpleModifications() ([]SimpleModification, error) {
	var mods []SimpleModification
	if raw, ok := p.fields[fieldSimpleModifications]; ok {
		if err := json.Unmarshal(raw, &mods); err != nil {
			return nil, fmt.Errorf("%s: %w", fieldSimpleModifications, err)
		}
	}
	return mods, nil
}

// SetSimpleModifications replaces the simple_modifications list.
func (p *Profile) SetSimpleModifications(mods []SimpleModification) error {
	if mods == nil {
		mods = []SimpleModification{}
	}
	raw, err := marshal(mods)
	if err != nil {
		return err
	}
	p.ensureFields()
	p.fields[fieldSimpleModifications] = raw
	return nil
}

func (p *Profile) complexModifications() (map[string]json.RawMessage, error) {
	complexMods := make(map[string]json.RawMessage)
	raw, ok := p.fields[fieldComplexModifications]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return complexMods, nil
	}
	if err := json.Unmarshal(raw, &complexMods); err != nil {
		return nil, fmt.Errorf("%s: %w", fieldComplexModifications, err)
	}
	return complexMods, nil
}

func (p *Profile) ensureFields() {
	if p.fields == nil {
		p.fields = make(map[string]json.RawMessage)
	}
}

// ReadFile loads a karabiner.json document from path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteFile encodes doc and replaces path with it. The new content is written
// to a temporary file next to the real file and renamed into place so readers
// never observe a partial document. A symlinked path keeps its link: the file
// it points to is the one replaced.
func WriteFile(path string, doc *Document) error {
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode karabiner.json: %w", err)
	}

	path, err = resolveTarget(path)
	if err != nil {
		return err
	}

	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".karabiner-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// resolveTarget follows symlinks in path. A path that does not exist yet is
// returned as given.
func resolveTarget(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		if _, lerr := os.Lstat(path); lerr == nil {
			return "", fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to resolve %s: %w", path, err)
}

// UpdateFile reads the document at path, updates the named profile and writes
// the document back once. Any failure before the final write leaves the file
// untouched. The updated profile is returned.
func UpdateFile(path, profile string, rules []Rule, simple []SimpleModification) (*Profile, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := doc.UpdateProfile(profile, rules, simple); err != nil {
		return nil, err
	}
	if err := WriteFile(path, doc); err != nil {
		return nil, err
	}
	return doc.Profile(profile)
}
