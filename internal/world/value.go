// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindInvalid Kind = iota
	KindBool
	KindString
	KindInt
	KindObject
	KindOptObject
	KindObjectSet
	KindList
	KindCode
)

var kindNames = map[Kind]string{
	KindBool:      "bool",
	KindString:    "str",
	KindInt:       "int",
	KindObject:    "obj",
	KindOptObject: "objopt",
	KindObjectSet: "objset",
	KindList:      "list",
	KindCode:      "code",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// ParseKind parses the name produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindInvalid, typeMismatch("unknown value kind %q", s)
}

// Value is a property value. The zero Value is invalid; use the constructors.
// Values are treated as immutable once stored; mutation goes through
// SetAtPath on a copy owned by the caller.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string
	o    ulid.ULID
	set  []ulid.ULID
	list []Value
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Obj returns a single object reference.
func Obj(id ulid.ULID) Value { return Value{kind: KindObject, o: id} }

// OptObj returns an optional object reference; None means absent.
func OptObj(id ulid.ULID) Value { return Value{kind: KindOptObject, o: id} }

// ObjSet returns a set of object references. Duplicates are dropped and
// first-insertion order is kept.
func ObjSet(ids ...ulid.ULID) Value {
	set := make([]ulid.ULID, 0, len(ids))
	seen := make(map[ulid.ULID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		set = append(set, id)
	}
	return Value{kind: KindObjectSet, set: set}
}

// List returns a list value holding copies of vs.
func List(vs ...Value) Value {
	list := make([]Value, len(vs))
	for i, v := range vs {
		list[i] = v.Clone()
	}
	return Value{kind: KindList, list: list}
}

// Code returns an opaque code block value.
func Code(src string) Value { return Value{kind: KindCode, s: src} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Valid reports whether v was built by a constructor.
func (v Value) Valid() bool { return v.kind != KindInvalid }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.wrongKind(KindBool)
	}
	return v.b, nil
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.wrongKind(KindString)
	}
	return v.s, nil
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, v.wrongKind(KindInt)
	}
	return v.i, nil
}

// AsObject returns the reference held by an obj or objopt value.
func (v Value) AsObject() (ulid.ULID, error) {
	if v.kind != KindObject && v.kind != KindOptObject {
		return None, v.wrongKind(KindObject)
	}
	return v.o, nil
}

// AsObjectSet returns a copy of the references held by v.
func (v Value) AsObjectSet() ([]ulid.ULID, error) {
	if v.kind != KindObjectSet {
		return nil, v.wrongKind(KindObjectSet)
	}
	return append([]ulid.ULID(nil), v.set...), nil
}

// AsList returns a deep copy of the elements held by v.
func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, v.wrongKind(KindList)
	}
	return List(v.list...).list, nil
}

// AsCode returns the source held by a code value.
func (v Value) AsCode() (string, error) {
	if v.kind != KindCode {
		return "", v.wrongKind(KindCode)
	}
	return v.s, nil
}

// Len returns the number of elements of a list or objset, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindObjectSet:
		return len(v.set)
	default:
		return 0
	}
}

func (v Value) wrongKind(want Kind) error {
	return typeMismatch("expected %s value, got %s", want, v.kind)
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := v
	if v.set != nil {
		out.set = append([]ulid.ULID(nil), v.set...)
	}
	if v.list != nil {
		out.list = make([]Value, len(v.list))
		for i, e := range v.list {
			out.list[i] = e.Clone()
		}
	}
	return out
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindString, KindCode:
		return v.s == o.s
	case KindObject, KindOptObject:
		return v.o == o.o
	case KindObjectSet:
		if len(v.set) != len(o.set) {
			return false
		}
		for i := range v.set {
			if v.set[i] != o.set[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// SetAtPath replaces the element addressed by path inside nested lists.
// An index equal to the current length appends; a larger one is E_RANGE.
// Every step but the last must land on a list, otherwise E_TYPE.
// On error v is left unchanged.
func (v *Value) SetAtPath(path []int, nv Value) error {
	if len(path) == 0 {
		return errWith(CodeInvalidArgument).Errorf("empty list path")
	}
	if !nv.Valid() {
		return typeMismatch("cannot store an invalid value")
	}
	updated, err := setAt(*v, path, nv)
	if err != nil {
		return err
	}
	*v = updated
	return nil
}

func setAt(cur Value, path []int, nv Value) (Value, error) {
	if cur.kind != KindList {
		return cur, typeMismatch("cannot index into %s value", cur.kind)
	}
	idx := path[0]
	if idx < 0 || idx > len(cur.list) {
		return cur, rangeError(idx, len(cur.list))
	}
	out := cur.Clone()
	if len(path) == 1 {
		if idx == len(out.list) {
			out.list = append(out.list, nv.Clone())
		} else {
			out.list[idx] = nv.Clone()
		}
		return out, nil
	}
	if idx == len(out.list) {
		return cur, rangeError(idx, len(cur.list))
	}
	child, err := setAt(out.list[idx], path[1:], nv)
	if err != nil {
		return cur, err
	}
	out.list[idx] = child
	return out, nil
}

// SetTyped returns nv if it has the same kind as v, else E_TYPE.
func (v Value) SetTyped(nv Value) (Value, error) {
	if v.kind != nv.kind {
		return v, typeMismatch("cannot replace %s value with %s", v.kind, nv.kind)
	}
	return nv.Clone(), nil
}

// References returns every object referenced by v, including nested lists.
// None is never reported.
func (v Value) References() []ulid.ULID {
	var refs []ulid.ULID
	v.walkRefs(func(id ulid.ULID) {
		if id != None {
			refs = append(refs, id)
		}
	})
	return refs
}

func (v Value) walkRefs(fn func(ulid.ULID)) {
	switch v.kind {
	case KindObject, KindOptObject:
		fn(v.o)
	case KindObjectSet:
		for _, id := range v.set {
			fn(id)
		}
	case KindList:
		for _, e := range v.list {
			e.walkRefs(fn)
		}
	}
}

// ReplaceRef rewrites references to gone: obj values point at fallback,
// objopt values become absent, and sets drop the member.
func (v Value) ReplaceRef(gone, fallback ulid.ULID) Value {
	switch v.kind {
	case KindObject:
		if v.o == gone {
			return Obj(fallback)
		}
	case KindOptObject:
		if v.o == gone {
			return OptObj(None)
		}
	case KindObjectSet:
		kept := make([]ulid.ULID, 0, len(v.set))
		for _, id := range v.set {
			if id != gone {
				kept = append(kept, id)
			}
		}
		return Value{kind: KindObjectSet, set: kept}
	case KindList:
		out := Value{kind: KindList, list: make([]Value, len(v.list))}
		for i, e := range v.list {
			out.list[i] = e.ReplaceRef(gone, fallback)
		}
		return out
	}
	return v
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return strconv.Quote(v.s)
	case KindCode:
		return "<code>"
	case KindObject, KindOptObject:
		if v.o == None {
			return "#none"
		}
		return "#" + v.o.String()
	case KindObjectSet:
		parts := make([]string, len(v.set))
		for i, id := range v.set {
			parts[i] = "#" + id.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

type valueJSON struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes v as {"kind": ..., "value": ...}.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindBool:
		payload = v.b
	case KindInt:
		payload = v.i
	case KindString, KindCode:
		payload = v.s
	case KindObject:
		payload = v.o.String()
	case KindOptObject:
		if v.o != None {
			payload = v.o.String()
		}
	case KindObjectSet:
		ids := make([]string, len(v.set))
		for i, id := range v.set {
			ids[i] = id.String()
		}
		payload = ids
	case KindList:
		payload = v.list
	default:
		return nil, typeMismatch("cannot encode invalid value")
	}
	out := valueJSON{Kind: v.kind.String()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, oops.Wrapf(err, "encode %s value", v.kind)
		}
		out.Value = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return oops.Wrapf(err, "decode value")
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return err
	}
	decode := func(dst any) error {
		if len(in.Value) == 0 {
			return typeMismatch("%s value is missing its payload", kind)
		}
		if err := json.Unmarshal(in.Value, dst); err != nil {
			return oops.Wrapf(err, "decode %s payload", kind)
		}
		return nil
	}

	switch kind {
	case KindBool:
		var b bool
		err = decode(&b)
		*v = Bool(b)
	case KindInt:
		var i int64
		err = decode(&i)
		*v = Int(i)
	case KindString:
		var s string
		err = decode(&s)
		*v = Str(s)
	case KindCode:
		var s string
		err = decode(&s)
		*v = Code(s)
	case KindObject:
		var s string
		if err = decode(&s); err == nil {
			var id ulid.ULID
			id, err = parseRef(s)
			*v = Obj(id)
		}
	case KindOptObject:
		id := None
		if len(in.Value) > 0 && string(in.Value) != "null" {
			var s string
			if err = decode(&s); err == nil {
				id, err = parseRef(s)
			}
		}
		*v = OptObj(id)
	case KindObjectSet:
		var ss []string
		if err = decode(&ss); err == nil {
			ids := make([]ulid.ULID, 0, len(ss))
			for _, s := range ss {
				id, perr := parseRef(s)
				if perr != nil {
					return perr
				}
				ids = append(ids, id)
			}
			*v = ObjSet(ids...)
		}
	case KindList:
		var list []Value
		err = decode(&list)
		*v = Value{kind: KindList, list: list}
		if v.list == nil {
			v.list = []Value{}
		}
	}
	return err
}

func parseRef(s string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return None, errWith(CodeInvalidArgument).With("reference", s).Wrapf(err, "invalid object reference")
	}
	return id, nil
}

// JSONSchema describes the encoded form of a Value.
func (Value) JSONSchema() *jsonschema.Schema {
	kinds := make([]any, 0, len(kindNames))
	for k := KindBool; k <= KindCode; k++ {
		kinds = append(kinds, k.String())
	}
	props := jsonschema.NewProperties()
	props.Set("kind", &jsonschema.Schema{Type: "string", Enum: kinds})
	props.Set("value", &jsonschema.Schema{
		Description: "payload; shape depends on kind",
	})
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"kind"},
	}
}

// FormatValue renders v for display to players.
func FormatValue(v Value) string {
	if v.kind == KindString {
		return v.s
	}
	return fmt.Sprint(v)
}
