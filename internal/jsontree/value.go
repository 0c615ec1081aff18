// Package jsontree is a closed tagged-union representation of arbitrary JSON documents.
//
// Object members keep their document order so that walks are deterministic.
package jsontree

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Member is a single key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	num     json.Number
	str     string
	items   []Value
	members []Member
}

// NullValue returns a null value.
func NullValue() Value { return Value{} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// NumberValue wraps a number literal.
func NumberValue(n json.Number) Value { return Value{kind: Number, num: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, str: s} }

// ArrayValue wraps a list of values.
func ArrayValue(items ...Value) Value { return Value{kind: Array, items: items} }

// ObjectValue wraps ordered members.
func ObjectValue(members ...Member) Value { return Value{kind: Object, members: members} }

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null (including the zero Value).
func (v Value) IsNull() bool { return v.kind == Null }

// AsBool returns the bool payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsNumber returns the raw number literal.
func (v Value) AsNumber() (json.Number, bool) { return v.num, v.kind == Number }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == String }

// Items returns array elements.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.items
}

// Members returns object members in document order.
func (v Value) Members() []Member {
	if v.kind != Object {
		return nil
	}
	return v.members
}

// Get returns the first member with the given key.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.Members() {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// GetFold returns the first member whose key matches case-insensitively.
func (v Value) GetFold(key string) (Value, bool) {
	for _, m := range v.Members() {
		if strings.EqualFold(m.Key, key) {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Path follows nested object keys. Missing segments yield (null, false).
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// First returns the first present, non-null member among keys.
func (v Value) First(keys ...string) (Value, bool) {
	for _, k := range keys {
		if got, ok := v.Get(k); ok && !got.IsNull() {
			return got, true
		}
	}
	return Value{}, false
}

// Text returns the payload of a string value, or the literal of a number.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case String:
		return v.str, true
	case Number:
		return v.num.String(), true
	}
	return "", false
}

// Int64 reads an integer from a number or a decimal-digit string.
func (v Value) Int64() (int64, bool) {
	s, ok := v.Text()
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
