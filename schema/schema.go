// Copyright 2025 The mongodbee Authors
// SPDX-License-Identifier: Apache-2.0
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package schema implements the schema adapter (spec.md §4.1): a structural
description of a document, canonicalization into a flat dot-path form for
equality and hashing, document validation against a schema, and synthesis
of a native (JSON-Schema-like) validator document for server-side
enforcement.

# Overview

A Schema is a tree of Fields. Every Field carries a Kind (string, number,
boolean, date, null, object, array, union, literal, enum, record) plus an
optional Constraints set. Two schemas are considered equal exactly when
their canonical flattened dot-path -> leaf-type maps are equal, regardless
of field declaration order or nesting representation details.
*/
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Kind enumerates the field kinds this adapter understands.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindDate    Kind = "date"
	KindNull    Kind = "null"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindUnion   Kind = "union"
	KindLiteral Kind = "literal"
	KindEnum    Kind = "enum"
	KindRecord  Kind = "record"
)

// Constraints bundles the per-field validation constraints from spec.md §3.
type Constraints struct {
	Min         *float64
	Max         *float64
	MinLength   *int
	MaxLength   *int
	Pattern     string
	NonEmpty    bool
	Length      *int
	Optional    bool // wraps the field as optional (may be absent)
	Nullable    bool // wraps the field as nullable (may be explicit null)
}

// Field is one node in a Schema tree.
type Field struct {
	Kind Kind

	// Object / Record children.
	Properties map[string]Field // for KindObject
	KeyPattern string            // for KindRecord: regex the key must match
	ValueType  *Field            // for KindRecord: schema of each value

	// Array
	Items *Field // for KindArray: schema of each element

	// Union
	Options []Field // for KindUnion

	// Literal / Enum
	Literal  any      // for KindLiteral
	EnumVals []string // for KindEnum

	Constraints Constraints
}

// Schema is a named root field (normally KindObject) describing a
// document shape.
type Schema struct {
	Root Field
}

// New constructs a Schema rooted at an object with the given properties.
func New(properties map[string]Field) Schema {
	return Schema{Root: Field{Kind: KindObject, Properties: properties}}
}

// LeafType is the canonical representation of one dot-path's type,
// combining its Kind with the constraints that govern it, used as the
// comparison unit for Equal.
type LeafType struct {
	Kind        Kind
	Optional    bool
	Nullable    bool
	Literal     any
	EnumVals    string // sorted, joined for comparability
	KeyPattern  string
}

func (l LeafType) String() string {
	return fmt.Sprintf("%s(opt=%v,null=%v,lit=%v,enum=%s,key=%s)",
		l.Kind, l.Optional, l.Nullable, l.Literal, l.EnumVals, l.KeyPattern)
}

// KeysOf returns the canonical flattened dot-path -> leaf-type map for a
// schema, per spec.md §4.1 ("keysOf(schema) -> set of dot paths").
// Wildcard array indices are represented by the path segment "[]" and
// record wildcard keys by "{}", so two arrays/records of equal element
// schema produce identical leaf entries regardless of length or key set.
func KeysOf(s Schema) map[string]LeafType {
	out := make(map[string]LeafType)
	flatten("", s.Root, out)
	return out
}

func flatten(prefix string, f Field, out map[string]LeafType) {
	switch f.Kind {
	case KindObject:
		names := make([]string, 0, len(f.Properties))
		for name := range f.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child := f.Properties[name]
			path := name
			if prefix != "" {
				path = prefix + "." + name
			}
			flatten(path, child, out)
		}
		if len(f.Properties) == 0 {
			out[joinLeaf(prefix)] = leafOf(f)
		}
	case KindArray:
		path := joinLeaf(prefix, "[]")
		if f.Items != nil {
			flatten(path, *f.Items, out)
		} else {
			out[path] = leafOf(f)
		}
	case KindRecord:
		path := joinLeaf(prefix, "{}")
		if f.ValueType != nil {
			flatten(path, *f.ValueType, out)
		} else {
			out[path] = leafOf(f)
		}
	default:
		out[joinLeaf(prefix)] = leafOf(f)
	}
}

func joinLeaf(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}

func leafOf(f Field) LeafType {
	enum := append([]string(nil), f.EnumVals...)
	sort.Strings(enum)
	return LeafType{
		Kind:       f.Kind,
		Optional:   f.Constraints.Optional,
		Nullable:   f.Constraints.Nullable,
		Literal:    f.Literal,
		EnumVals:   strings.Join(enum, ","),
		KeyPattern: f.KeyPattern,
	}
}

// Equal implements spec.md's "flat-key equality": two schemas are equal
// iff their flattened dot-path -> leaf-type sets are identical.
func Equal(a, b Schema) bool {
	ka, kb := KeysOf(a), KeysOf(b)
	if len(ka) != len(kb) {
		return false
	}
	for path, leaf := range ka {
		other, ok := kb[path]
		if !ok || other != leaf {
			return false
		}
	}
	return true
}

// Diff returns the dot-paths present only in a, only in b, and those
// present in both but with a differing leaf type — used by
// chainvalidate to produce remediation hints.
type Diff struct {
	OnlyInA, OnlyInB []string
	Changed          []string
}

func DiffSchemas(a, b Schema) Diff {
	ka, kb := KeysOf(a), KeysOf(b)
	var d Diff
	for path, la := range ka {
		lb, ok := kb[path]
		if !ok {
			d.OnlyInA = append(d.OnlyInA, path)
			continue
		}
		if la != lb {
			d.Changed = append(d.Changed, path)
		}
	}
	for path := range kb {
		if _, ok := ka[path]; !ok {
			d.OnlyInB = append(d.OnlyInB, path)
		}
	}
	sort.Strings(d.OnlyInA)
	sort.Strings(d.OnlyInB)
	sort.Strings(d.Changed)
	return d
}

// Canonicalize returns a deep copy of s whose EnumVals slices are
// sorted, so two structurally equal schemas that list enum values in a
// different order produce deeply equal Go values (stable for
// hashing/caching).
func Canonicalize(s Schema) Schema {
	return Schema{Root: canonicalizeField(s.Root)}
}

func canonicalizeField(f Field) Field {
	out := f
	if f.Properties != nil {
		out.Properties = make(map[string]Field, len(f.Properties))
		for name, child := range f.Properties {
			out.Properties[name] = canonicalizeField(child)
		}
	}
	if f.Items != nil {
		item := canonicalizeField(*f.Items)
		out.Items = &item
	}
	if f.ValueType != nil {
		vt := canonicalizeField(*f.ValueType)
		out.ValueType = &vt
	}
	if f.Options != nil {
		out.Options = make([]Field, len(f.Options))
		for i, opt := range f.Options {
			out.Options[i] = canonicalizeField(opt)
		}
	}
	if f.EnumVals != nil {
		out.EnumVals = append([]string(nil), f.EnumVals...)
		sort.Strings(out.EnumVals)
	}
	return out
}

// Hash returns a stable string hash of a canonicalized schema, suitable
// as a map key or cache key.
func Hash(s Schema) string {
	keys := KeysOf(Canonicalize(s))
	paths := make([]string, 0, len(keys))
	for p := range keys {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "%s=%s;", p, keys[p])
	}
	return b.String()
}
