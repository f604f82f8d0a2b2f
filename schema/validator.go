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

package schema

import "sort"

// ToNativeValidator synthesizes the JSON-Schema-like document described in
// spec.md §6, suitable for installation via the database's
// modifyCollection({validator: ...}) capability.
func ToNativeValidator(s Schema) map[string]any {
	return fieldToValidator(s.Root)
}

func fieldToValidator(f Field) map[string]any {
	doc := map[string]any{}

	switch f.Kind {
	case KindObject:
		doc["bsonType"] = "object"
		props := map[string]any{}
		required := []string{}
		names := make([]string, 0, len(f.Properties))
		for name := range f.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child := f.Properties[name]
			props[name] = fieldToValidator(child)
			if !child.Constraints.Optional {
				required = append(required, name)
			}
		}
		doc["properties"] = props
		if len(required) > 0 {
			doc["required"] = required
		}
		doc["additionalProperties"] = true
	case KindArray:
		doc["bsonType"] = "array"
		if f.Items != nil {
			doc["items"] = fieldToValidator(*f.Items)
		}
		if f.Constraints.MinLength != nil {
			doc["minItems"] = *f.Constraints.MinLength
		}
		if f.Constraints.MaxLength != nil {
			doc["maxItems"] = *f.Constraints.MaxLength
		}
		if f.Constraints.NonEmpty {
			doc["minItems"] = 1
		}
	case KindRecord:
		doc["bsonType"] = "object"
		if f.ValueType != nil && f.KeyPattern != "" {
			doc["patternProperties"] = map[string]any{
				f.KeyPattern: fieldToValidator(*f.ValueType),
			}
		}
		doc["additionalProperties"] = f.KeyPattern == ""
	case KindUnion:
		opts := make([]any, len(f.Options))
		for i, opt := range f.Options {
			opts[i] = fieldToValidator(opt)
		}
		doc["anyOf"] = opts
	case KindLiteral:
		doc["enum"] = []any{f.Literal}
	case KindEnum:
		vals := make([]any, len(f.EnumVals))
		for i, v := range f.EnumVals {
			vals[i] = v
		}
		doc["enum"] = vals
	case KindString:
		doc["bsonType"] = "string"
		applyStringConstraints(doc, f.Constraints)
	case KindNumber:
		doc["bsonType"] = []string{"int", "long", "double", "decimal"}
		if f.Constraints.Min != nil {
			doc["minimum"] = *f.Constraints.Min
		}
		if f.Constraints.Max != nil {
			doc["maximum"] = *f.Constraints.Max
		}
	case KindBoolean:
		doc["bsonType"] = "bool"
	case KindDate:
		doc["bsonType"] = "date"
	case KindNull:
		doc["bsonType"] = "null"
	}

	if f.Constraints.Nullable {
		doc = wrapNullable(doc)
	}
	return doc
}

func applyStringConstraints(doc map[string]any, c Constraints) {
	doc["bsonType"] = "string"
	if c.MinLength != nil {
		doc["minLength"] = *c.MinLength
	}
	if c.NonEmpty {
		doc["minLength"] = 1
	}
	if c.MaxLength != nil {
		doc["maxLength"] = *c.MaxLength
	}
	if c.Length != nil {
		doc["minLength"] = *c.Length
		doc["maxLength"] = *c.Length
	}
	if c.Pattern != "" {
		doc["pattern"] = c.Pattern
	}
}

func wrapNullable(doc map[string]any) map[string]any {
	bsonType := doc["bsonType"]
	types := []any{}
	switch v := bsonType.(type) {
	case string:
		types = append(types, v, "null")
	case []string:
		for _, t := range v {
			types = append(types, t)
		}
		types = append(types, "null")
	default:
		return map[string]any{"anyOf": []any{doc, map[string]any{"bsonType": "null"}}}
	}
	out := map[string]any{}
	for k, v := range doc {
		out[k] = v
	}
	out["bsonType"] = types
	return out
}

// IndexHint describes one recommended index derived from a schema's
// constraints, consumed by the live applier's index-sync step
// (spec.md §4.7).
type IndexHint struct {
	Name   string
	Fields []string // compound key order
	Unique bool
	Sparse bool
}

// DescribeIndex walks s's top-level properties in name order and
// proposes a single-field, non-unique index ("idx_<name>") for every
// NonEmpty string field, sparse when the field is Optional. Record and
// array fields, nested fields and all other kinds get no hint; uniqueness
// is never inferred.
func DescribeIndex(s Schema) []IndexHint {
	var hints []IndexHint
	if s.Root.Kind != KindObject {
		return hints
	}
	names := make([]string, 0, len(s.Root.Properties))
	for name := range s.Root.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := s.Root.Properties[name]
		if f.Kind == KindRecord || f.Kind == KindArray {
			continue
		}
		if f.Constraints.NonEmpty && f.Kind == KindString {
			hints = append(hints, IndexHint{
				Name:   "idx_" + name,
				Fields: []string{name},
				Sparse: f.Constraints.Optional,
			})
		}
	}
	return hints
}
