// internal/lottie/node.go
package lottie

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind identifies which variant a Node holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Member is one key/value pair of an object node.
type Member struct {
	Key   string
	Value *Node
}

// Node is a parsed JSON value. Objects keep their members in document order
// and numbers keep their original text, so untouched values re-serialize
// exactly as they were read.
type Node struct {
	kind    Kind
	boolean bool
	number  json.Number
	text    string
	items   []*Node
	members []Member
}

func NewNull() *Node { return &Node{kind: KindNull} }

func NewBool(v bool) *Node { return &Node{kind: KindBool, boolean: v} }

func NewString(v string) *Node { return &Node{kind: KindString, text: v} }

// NewNumber formats v with the shortest representation that round-trips.
func NewNumber(v float64) *Node {
	return &Node{kind: KindNumber, number: json.Number(strconv.FormatFloat(v, 'f', -1, 64))}
}

func NewArray(items ...*Node) *Node {
	return &Node{kind: KindArray, items: items}
}

func NewObject(members ...Member) *Node {
	return &Node{kind: KindObject, members: members}
}

func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

func (n *Node) IsObject() bool { return n.Kind() == KindObject }

func (n *Node) IsArray() bool { return n.Kind() == KindArray }

// Len returns the number of array elements or object members.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindArray:
		return len(n.items)
	case KindObject:
		return len(n.members)
	default:
		return 0
	}
}

// Index returns the i-th array element, or nil when out of range.
func (n *Node) Index(i int) *Node {
	if n.Kind() != KindArray || i < 0 || i >= len(n.items) {
		return nil
	}
	return n.items[i]
}

// Items returns the array elements. The slice must not be modified.
func (n *Node) Items() []*Node {
	if n.Kind() != KindArray {
		return nil
	}
	return n.items
}

// Members returns the object members in document order. The slice must not be modified.
func (n *Node) Members() []Member {
	if n.Kind() != KindObject {
		return nil
	}
	return n.members
}

// Get returns the value stored under key, or nil.
func (n *Node) Get(key string) *Node {
	if n.Kind() != KindObject {
		return nil
	}
	for _, m := range n.members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Set replaces the value under key in place, or appends a new member.
func (n *Node) Set(key string, value *Node) {
	if n.Kind() != KindObject {
		return
	}
	for i := range n.members {
		if n.members[i].Key == key {
			n.members[i].Value = value
			return
		}
	}
	n.members = append(n.members, Member{Key: key, Value: value})
}

// SetIndex replaces the i-th array element.
func (n *Node) SetIndex(i int, value *Node) {
	if n.Kind() != KindArray || i < 0 || i >= len(n.items) {
		return
	}
	n.items[i] = value
}

// Float returns the numeric value of a number node.
func (n *Node) Float() (float64, bool) {
	if n.Kind() != KindNumber {
		return 0, false
	}
	v, err := n.number.Float64()
	if err != nil {
		return 0, false
	}
	return v, true
}

// Text returns the value of a string node.
func (n *Node) Text() (string, bool) {
	if n.Kind() != KindString {
		return "", false
	}
	return n.text, true
}

// Bool returns the value of a bool node.
func (n *Node) Bool() (bool, bool) {
	if n.Kind() != KindBool {
		return false, false
	}
	return n.boolean, true
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{kind: n.kind, boolean: n.boolean, number: n.number, text: n.text}
	if n.items != nil {
		out.items = make([]*Node, len(n.items))
		for i, item := range n.items {
			out.items[i] = item.Clone()
		}
	}
	if n.members != nil {
		out.members = make([]Member, len(n.members))
		for i, m := range n.members {
			out.members[i] = Member{Key: m.Key, Value: m.Value.Clone()}
		}
	}
	return out
}

// Equal reports whether two nodes are structurally equal. Numbers compare by
// value, objects compare member by member in order.
func (n *Node) Equal(other *Node) bool {
	if n.Kind() != other.Kind() {
		return false
	}
	switch n.Kind() {
	case KindNull:
		return true
	case KindBool:
		return n.boolean == other.boolean
	case KindString:
		return n.text == other.text
	case KindNumber:
		if n.number == other.number {
			return true
		}
		a, okA := n.Float()
		b, okB := other.Float()
		return okA && okB && a == b
	case KindArray:
		if len(n.items) != len(other.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(n.members) != len(other.members) {
			return false
		}
		for i := range n.members {
			if n.members[i].Key != other.members[i].Key || !n.members[i].Value.Equal(other.members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Parse decodes a JSON document. Nesting deeper than DefaultMaxDepth fails
// with ErrRecursionLimit.
func Parse(data []byte) (*Node, error) {
	return ParseDepth(data, DefaultMaxDepth)
}

// ParseDepth is Parse with an explicit nesting limit.
func ParseDepth(data []byte, maxDepth int) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeValue(dec, 0, maxDepth)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedDocument)
	}
	return n, nil
}

func decodeValue(dec *json.Decoder, depth, maxDepth int) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformedDocument)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth >= maxDepth {
			return nil, ErrRecursionLimit
		}
		switch t {
		case '{':
			obj := &Node{kind: KindObject, members: []Member{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("%w: object key is not a string", ErrMalformedDocument)
				}
				value, err := decodeValue(dec, depth+1, maxDepth)
				if err != nil {
					return nil, err
				}
				obj.Set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
			}
			return obj, nil
		case '[':
			arr := &Node{kind: KindArray, items: []*Node{}}
			for dec.More() {
				value, err := decodeValue(dec, depth+1, maxDepth)
				if err != nil {
					return nil, err
				}
				arr.items = append(arr.items, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("%w: unexpected delimiter %q", ErrMalformedDocument, t)
		}
	case json.Number:
		return &Node{kind: KindNumber, number: t}, nil
	case string:
		return &Node{kind: KindString, text: t}, nil
	case bool:
		return &Node{kind: KindBool, boolean: t}, nil
	case nil:
		return &Node{kind: KindNull}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected token %v", ErrMalformedDocument, tok)
	}
}

func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	switch n.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.boolean))
	case KindNumber:
		buf.WriteString(n.number.String())
	case KindString:
		if err := encodeString(buf, n.text); err != nil {
			return err
		}
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range n.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
