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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }

func userSchema() Schema {
	return New(map[string]Field{
		"name": {Kind: KindString, Constraints: Constraints{NonEmpty: true, MaxLength: intPtr(64)}},
		"age":  {Kind: KindNumber, Constraints: Constraints{Min: strPtr(0)}},
		"tags": {Kind: KindArray, Items: &Field{Kind: KindString}},
	})
}

func TestEqualIgnoresDeclarationOrder(t *testing.T) {
	a := New(map[string]Field{
		"name": {Kind: KindString},
		"age":  {Kind: KindNumber},
	})
	b := New(map[string]Field{
		"age":  {Kind: KindNumber},
		"name": {Kind: KindString},
	})
	assert.True(t, Equal(a, b))
}

func TestEqualDetectsLeafChange(t *testing.T) {
	a := userSchema()
	b := userSchema()
	age := b.Root.Properties["age"]
	age.Kind = KindString
	b.Root.Properties["age"] = age

	assert.False(t, Equal(a, b))
}

func TestKeysOfFlattensArraysAndRecords(t *testing.T) {
	s := New(map[string]Field{
		"items": {Kind: KindArray, Items: &Field{Kind: KindString}},
		"meta":  {Kind: KindRecord, KeyPattern: "^[a-z]+$", ValueType: &Field{Kind: KindNumber}},
	})
	keys := KeysOf(s)
	_, hasItems := keys["items.[]"]
	_, hasMeta := keys["meta.{}"]
	assert.True(t, hasItems)
	assert.True(t, hasMeta)
}

func TestDiffSchemasReportsAddedRemovedChanged(t *testing.T) {
	a := New(map[string]Field{
		"name": {Kind: KindString},
		"old":  {Kind: KindString},
	})
	b := New(map[string]Field{
		"name": {Kind: KindNumber},
		"new":  {Kind: KindBoolean},
	})
	d := DiffSchemas(a, b)
	assert.Contains(t, d.OnlyInA, "old")
	assert.Contains(t, d.OnlyInB, "new")
	assert.Contains(t, d.Changed, "name")
}

func TestHashStableAcrossDeclarationOrder(t *testing.T) {
	a := New(map[string]Field{"x": {Kind: KindString}, "y": {Kind: KindNumber}})
	b := New(map[string]Field{"y": {Kind: KindNumber}, "x": {Kind: KindString}})
	assert.Equal(t, Hash(a), Hash(b))
}

func TestValidateCollectsAllIssues(t *testing.T) {
	s := userSchema()
	doc := map[string]any{
		"name": "",
		"age":  -5.0,
		"tags": []any{"ok", 5},
	}
	issues := Validate(doc, s)
	require.NotEmpty(t, issues)
	assert.GreaterOrEqual(t, len(issues), 3)
}

func TestValidateOptionalFieldMayBeAbsent(t *testing.T) {
	s := New(map[string]Field{
		"nickname": {Kind: KindString, Constraints: Constraints{Optional: true}},
	})
	assert.True(t, Ok(map[string]any{}, s))
}

func TestMergeConstraintsMinMaxPattern(t *testing.T) {
	a := Constraints{Min: strPtr(5), Max: strPtr(100), Pattern: "^a"}
	b := Constraints{Min: strPtr(1), Max: strPtr(50), Pattern: "z$"}

	merged := MergeConstraints(a, b)
	assert.Equal(t, 5.0, *merged.Min)
	assert.Equal(t, 50.0, *merged.Max)
	assert.Equal(t, "(?=^a)(?=z$)", merged.Pattern)
}

func TestMergeConstraintsHandlesNilSide(t *testing.T) {
	a := Constraints{}
	b := Constraints{MinLength: intPtr(3)}
	merged := MergeConstraints(a, b)
	require.NotNil(t, merged.MinLength)
	assert.Equal(t, 3, *merged.MinLength)
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	s := userSchema()
	once := Canonicalize(s)
	twice := Canonicalize(once)
	assert.Equal(t, Hash(once), Hash(twice))
}

func TestToNativeValidatorProducesBsonTypeAndRequired(t *testing.T) {
	s := userSchema()
	doc := ToNativeValidator(s)
	assert.Equal(t, "object", doc["bsonType"])
	required, ok := doc["required"].([]string)
	require.True(t, ok)
	assert.Contains(t, required, "name")
	assert.Contains(t, required, "age")
	assert.Contains(t, required, "tags")
}

func TestDescribeIndexFlagsNonEmptyStrings(t *testing.T) {
	s := userSchema()
	hints := DescribeIndex(s)
	found := false
	for _, h := range hints {
		if h.Name == "idx_name" {
			found = true
		}
	}
	assert.True(t, found)
}
