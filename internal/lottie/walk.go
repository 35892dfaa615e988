// internal/lottie/walk.go
package lottie

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxDepth bounds document nesting for parsing and walking.
const DefaultMaxDepth = 512

// Path locates a node by the keys and array indices leading to it from the root.
type Path []string

// String joins the segments with "." and escapes "." and "\" inside segments.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		for _, r := range seg {
			if r == '.' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Child returns a new path with seg appended. The receiver is not modified.
func (p Path) Child(seg ...string) Path {
	out := make(Path, 0, len(p)+len(seg))
	out = append(out, p...)
	return append(out, seg...)
}

// ParsePath is the inverse of Path.String.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	var (
		path    Path
		current strings.Builder
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			path = append(path, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("invalid path %q: trailing escape", s)
	}
	return append(path, current.String()), nil
}

// Visit describes one node reached by Walk.
type Visit struct {
	Node      *Node
	ParentKey string
	Parent    *Node
	Path      Path
	Depth     int
}

// VisitFunc is called once per object or array node. Returning an error stops the walk.
type VisitFunc func(v Visit) error

// Walk visits every object and array under root in pre-order. Object members
// are visited in document order and array elements by index; the ParentKey of
// an array element is its decimal index. Scalars are not visited.
func Walk(root *Node, maxDepth int, fn VisitFunc) error {
	_, err := Fold(root, maxDepth, struct{}{}, func(acc struct{}, v Visit) (struct{}, error) {
		return acc, fn(v)
	})
	return err
}

// Fold walks root in the same order as Walk, threading acc through every
// visit and returning its final value.
func Fold[T any](root *Node, maxDepth int, acc T, fn func(T, Visit) (T, error)) (T, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return fold(Visit{Node: root, Path: Path{}}, maxDepth, acc, fn)
}

func fold[T any](v Visit, maxDepth int, acc T, fn func(T, Visit) (T, error)) (T, error) {
	kind := v.Node.Kind()
	if kind != KindObject && kind != KindArray {
		return acc, nil
	}
	if v.Depth >= maxDepth {
		return acc, ErrRecursionLimit
	}
	acc, err := fn(acc, v)
	if err != nil {
		return acc, err
	}

	switch kind {
	case KindObject:
		for _, m := range v.Node.members {
			child := Visit{
				Node:      m.Value,
				ParentKey: m.Key,
				Parent:    v.Node,
				Path:      v.Path.Child(m.Key),
				Depth:     v.Depth + 1,
			}
			if acc, err = fold(child, maxDepth, acc, fn); err != nil {
				return acc, err
			}
		}
	case KindArray:
		for i, item := range v.Node.items {
			key := strconv.Itoa(i)
			child := Visit{
				Node:      item,
				ParentKey: key,
				Parent:    v.Node,
				Path:      v.Path.Child(key),
				Depth:     v.Depth + 1,
			}
			if acc, err = fold(child, maxDepth, acc, fn); err != nil {
				return acc, err
			}
		}
	}
	return acc, nil
}
