// Package configdoc models the externally supplied IPC configuration document:
// a read-only tree of named objects and string fields.
package configdoc

import (
	"fmt"
	"sort"
	"strings"
)

// Problem classifies why a field could not be read.
type Problem string

const (
	ProblemMissing   Problem = "missing"
	ProblemWrongType Problem = "wrong type"
	ProblemEmpty     Problem = "empty"
)

// FieldError reports a field that is absent, of the wrong type, or empty.
type FieldError struct {
	Path    string
	Problem Problem
	// Got names the JSON type found, for ProblemWrongType.
	Got string
}

func (e *FieldError) Error() string {
	if e.Problem == ProblemWrongType {
		return fmt.Sprintf("%s: %s (got %s)", e.Path, e.Problem, e.Got)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Problem)
}

// Document is an immutable configuration tree. A nil *Document means no
// document was supplied.
type Document struct {
	root   map[string]any
	source string
}

// FromMap wraps an already materialized tree. The map is copied, so later
// changes by the caller are not observed.
func FromMap(tree map[string]any, source string) *Document {
	return &Document{root: copyTree(tree), source: source}
}

// Source describes where the document came from (file path or "inline").
func (d *Document) Source() string {
	return d.source
}

// Root returns the top-level object node.
func (d *Document) Root() Node {
	return Node{value: d.root}
}

// Node is a position in the document tree.
type Node struct {
	path  []string
	value any
}

// Path is the dotted path of the node; "" for the root.
func (n Node) Path() string {
	return strings.Join(n.path, ".")
}

func (n Node) child(key string) []string {
	p := make([]string, len(n.path)+1)
	copy(p, n.path)
	p[len(n.path)] = key
	return p
}

func (n Node) get(key string) (any, []string, error) {
	path := n.child(key)
	obj, ok := n.value.(map[string]any)
	if !ok {
		return nil, path, &FieldError{Path: n.Path(), Problem: ProblemWrongType, Got: typeName(n.value)}
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, path, &FieldError{Path: strings.Join(path, "."), Problem: ProblemMissing}
	}
	return v, path, nil
}

// Has reports whether key is present (and not null) under this node.
func (n Node) Has(key string) bool {
	_, _, err := n.get(key)
	return err == nil
}

// Object returns the object stored under key.
func (n Node) Object(key string) (Node, error) {
	v, path, err := n.get(key)
	if err != nil {
		return Node{}, err
	}
	if _, ok := v.(map[string]any); !ok {
		return Node{}, &FieldError{Path: strings.Join(path, "."), Problem: ProblemWrongType, Got: typeName(v)}
	}
	return Node{path: path, value: v}, nil
}

// String returns the non-empty string stored under key.
func (n Node) String(key string) (string, error) {
	v, path, err := n.get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &FieldError{Path: strings.Join(path, "."), Problem: ProblemWrongType, Got: typeName(v)}
	}
	if s == "" {
		return "", &FieldError{Path: strings.Join(path, "."), Problem: ProblemEmpty}
	}
	return s, nil
}

// Keys lists the keys of an object node in sorted order.
func (n Node) Keys() []string {
	obj, ok := n.value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, uint64, uint32:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func copyTree(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyTree(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	default:
		return v
	}
}
