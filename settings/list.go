// Package settings is the typed key/value store behind both the launcher-wide
// options and each profile's overrides.
//
// A List holds only explicitly set values.  Reads fall through to the parent
// list (profile → global) and finally to the key's declared default, so a
// read never fails.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownKey = errors.New("unknown setting")
	ErrBadValue   = errors.New("invalid setting value")
)

// List is safe for concurrent use.
type List struct {
	mu     sync.RWMutex
	values map[string]any
	parent *List
}

// New returns an empty list that falls back to parent (which may be nil).
func New(parent *List) *List {
	return &List{values: make(map[string]any), parent: parent}
}

// Parent returns the fallback list.
func (l *List) Parent() *List {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.parent
}

// SetParent replaces the fallback list.
func (l *List) SetParent(p *List) {
	l.mu.Lock()
	l.parent = p
	l.mu.Unlock()
}

func (l *List) lookup(name string) (any, bool) {
	for cur := l; cur != nil; {
		cur.mu.RLock()
		v, ok := cur.values[name]
		next := cur.parent
		cur.mu.RUnlock()
		if ok {
			return v, true
		}
		cur = next
	}
	return nil, false
}

// Bool returns the effective value of k.
func (l *List) Bool(k BoolKey) bool {
	if v, ok := l.lookup(k.Name); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return k.Default
}

// Int returns the effective value of k.
func (l *List) Int(k IntKey) int {
	if v, ok := l.lookup(k.Name); ok {
		if i, ok := toInt(v); ok {
			return i
		}
	}
	return k.Default
}

// String returns the effective value of k.
func (l *List) String(k StringKey) string {
	if v, ok := l.lookup(k.Name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return k.Default
}

func (l *List) set(name string, v any) {
	l.mu.Lock()
	l.values[name] = v
	l.mu.Unlock()
}

func (l *List) SetBool(k BoolKey, v bool)       { l.set(k.Name, v) }
func (l *List) SetInt(k IntKey, v int)          { l.set(k.Name, v) }
func (l *List) SetString(k StringKey, v string) { l.set(k.Name, v) }

// Unset removes a local override so reads fall through again.
func (l *List) Unset(name string) {
	l.mu.Lock()
	delete(l.values, name)
	l.mu.Unlock()
}

// IsSet reports whether name has a local override.
func (l *List) IsSet(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.values[name]
	return ok
}

// Parse sets a recognized key from its textual form, as sent by the HTTP API
// or the command line.
func (l *List) Parse(name, raw string) error {
	d, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}
	switch d.Kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrBadValue, name, raw)
		}
		l.set(name, b)
	case KindInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrBadValue, name, raw)
		}
		l.set(name, i)
	default:
		l.set(name, raw)
	}
	return nil
}

// Effective returns the resolved value of every recognized key.
func (l *List) Effective() map[string]any {
	out := make(map[string]any, len(defs))
	for _, d := range defs {
		switch d.Kind {
		case KindBool:
			out[d.Name] = l.Bool(BoolKey{d.Name, d.Default.(bool)})
		case KindInt:
			out[d.Name] = l.Int(IntKey{d.Name, d.Default.(int)})
		default:
			out[d.Name] = l.String(StringKey{d.Name, d.Default.(string)})
		}
	}
	return out
}

// Overrides returns a copy of the locally set values.
func (l *List) Overrides() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]any, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

// Load reads a YAML settings file into a new list.  A missing or unreadable
// file yields an empty list; the returned error is informational and the
// list is always usable.
func Load(path string, parent *List) (*List, error) {
	l := New(parent)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return l, fmt.Errorf("failed to read settings: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return l, fmt.Errorf("failed to parse settings: %w", err)
	}
	for k, v := range raw {
		if d, ok := Lookup(k); ok && !kindMatches(d.Kind, v) {
			continue
		}
		if i, ok := toInt(v); ok {
			v = i
		}
		l.values[k] = v
	}
	return l, nil
}

// Save writes the local overrides to path atomically.
func (l *List) Save(path string) error {
	overrides := l.Overrides()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		var val yaml.Node
		if err := val.Encode(overrides[k]); err != nil {
			return fmt.Errorf("failed to encode %s: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func kindMatches(k Kind, v any) bool {
	switch k {
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindInt:
		_, ok := toInt(v)
		return ok
	default:
		_, ok := v.(string)
		return ok
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
