// Package jsondoc reads loosely typed provider JSON with default substitution.
//
// Every accessor tolerates absent keys, nulls and mismatched types by returning
// the zero value of the requested type. Each substitution is recorded as a gap
// on the root document so callers can report what the payload was missing.
package jsondoc

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	sonic "github.com/bytedance/sonic"
)

// Document is a JSON object plus the path it was reached by.
type Document struct {
	node map[string]any
	path string
	gaps *gapLog
}

// Entry is one element of a collection. Key is the map key for keyed
// collections and the decimal index for lists.
type Entry struct {
	Key string
	Doc Document
}

type gapLog struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (g *gapLog) add(path string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.paths == nil {
		g.paths = make(map[string]struct{})
	}
	g.paths[path] = struct{}{}
	g.mu.Unlock()
}

// Parse decodes raw as a JSON object. A JSON null decodes to an empty document.
func Parse(raw []byte) (Document, error) {
	var node map[string]any
	if err := sonic.Unmarshal(raw, &node); err != nil {
		return Document{}, err
	}
	return FromMap(node), nil
}

func FromMap(node map[string]any) Document {
	if node == nil {
		node = map[string]any{}
	}
	return Document{node: node, gaps: &gapLog{}}
}

func (d Document) IsEmpty() bool { return len(d.node) == 0 }

func (d Document) Has(key string) bool {
	v, ok := d.node[key]
	return ok && v != nil
}

// Keys lists the keys of the object in natural key order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.node))
	for k := range d.node {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return NaturalLess(keys[i], keys[j]) })
	return keys
}

// Raw exposes the underlying map. Callers must not mutate it.
func (d Document) Raw() map[string]any { return d.node }

// Gaps lists every path that was read but absent, in sorted order.
func (d Document) Gaps() []string {
	if d.gaps == nil {
		return nil
	}
	d.gaps.mu.Lock()
	defer d.gaps.mu.Unlock()
	out := make([]string, 0, len(d.gaps.paths))
	for p := range d.gaps.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (d Document) child(key string) string {
	if d.path == "" {
		return key
	}
	return d.path + "." + key
}

func (d Document) lookup(key string) (any, bool) {
	v, ok := d.node[key]
	if !ok || v == nil {
		d.gaps.add(d.child(key))
		return nil, false
	}
	return v, true
}

func (d Document) wrap(node map[string]any, path string) Document {
	if node == nil {
		node = map[string]any{}
	}
	return Document{node: node, path: path, gaps: d.gaps}
}

// Object returns the nested object at key, or an empty document.
func (d Document) Object(key string) Document {
	v, ok := d.lookup(key)
	if !ok {
		return d.wrap(nil, d.child(key))
	}
	m, ok := v.(map[string]any)
	if !ok {
		d.gaps.add(d.child(key))
	}
	return d.wrap(m, d.child(key))
}

// Entries normalizes a collection served either as a list or as a keyed map
// into one ordered sequence. Keyed maps are ordered by natural key order, so
// "bat_2" precedes "bat_10". Non-object elements are skipped.
func (d Document) Entries(key string) []Entry {
	v, ok := d.lookup(key)
	if !ok {
		return nil
	}
	base := d.child(key)

	switch typed := v.(type) {
	case []any:
		out := make([]Entry, 0, len(typed))
		for i, item := range typed {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			idx := strconv.Itoa(i)
			out = append(out, Entry{Key: idx, Doc: d.wrap(m, base+"["+idx+"]")})
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return NaturalLess(keys[i], keys[j]) })
		out := make([]Entry, 0, len(keys))
		for _, k := range keys {
			m, ok := typed[k].(map[string]any)
			if !ok {
				continue
			}
			out = append(out, Entry{Key: k, Doc: d.wrap(m, base+"."+k)})
		}
		return out
	default:
		d.gaps.add(base)
		return nil
	}
}

// Objects is Entries without the keys.
func (d Document) Objects(key string) []Document {
	entries := d.Entries(key)
	out := make([]Document, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Doc)
	}
	return out
}

func (d Document) String(key string) string {
	v, ok := d.lookup(key)
	if !ok {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		d.gaps.add(d.child(key))
		return ""
	}
}

func (d Document) Int(key string) int {
	return int(d.Int64(key))
}

func (d Document) Int64(key string) int64 {
	v, ok := d.lookup(key)
	if !ok {
		return 0
	}
	n, ok := asInt64(v)
	if !ok {
		d.gaps.add(d.child(key))
	}
	return n
}

func (d Document) Float(key string) float64 {
	v, ok := d.lookup(key)
	if !ok {
		return 0
	}
	f, ok := asFloat64(v)
	if !ok {
		d.gaps.add(d.child(key))
	}
	return f
}

func (d Document) Bool(key string) bool {
	v, ok := d.lookup(key)
	if !ok {
		return false
	}
	switch typed := v.(type) {
	case bool:
		return typed
	case float64:
		return typed != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			d.gaps.add(d.child(key))
			return false
		}
		return parsed
	default:
		d.gaps.add(d.child(key))
		return false
	}
}

func asInt64(v any) (int64, bool) {
	switch typed := v.(type) {
	case float64:
		return int64(typed), true
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case string:
		s := strings.TrimSpace(typed)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	case bool:
		if typed {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case int64:
		return float64(typed), true
	case int:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
