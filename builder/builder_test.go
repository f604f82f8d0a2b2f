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

package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/schema"
	"github.com/diister-dev/mongodbee/simulate"
)

func defs() SchemasDefinition {
	return SchemasDefinition{
		Collections: map[string]schema.Schema{
			"users": schema.New(map[string]schema.Field{
				"name": {Kind: schema.KindString},
			}),
		},
		MultiModels: map[string]map[string]schema.Schema{
			"tenant": {
				"user": schema.New(map[string]schema.Field{"email": {Kind: schema.KindString}}),
			},
		},
	}
}

func TestCreateCollectionSetsLossy(t *testing.T) {
	b := NewBuilder(defs())
	require.NoError(t, b.CreateCollection("users"))
	m := b.Compile()
	assert.True(t, m.Lossy)
	assert.False(t, m.Irreversible)
	assert.Equal(t, ir.TagCreateCollection, m.Operations[0].Tag)
}

func TestCreateCollectionMissingSchemaFailsAtBuildTime(t *testing.T) {
	b := NewBuilder(defs())
	err := b.CreateCollection("ghosts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema not found")
}

func TestTransformPropagatesIrreversible(t *testing.T) {
	b := NewBuilder(defs())
	up := func(d bson.M) (bson.M, error) { return d, nil }
	require.NoError(t, b.TransformCollection("users", up, up, TransformOptions{Irreversible: true}))
	m := b.Compile()
	assert.True(t, m.Irreversible)
}

func TestCompileIsIdempotent(t *testing.T) {
	b := NewBuilder(defs())
	require.NoError(t, b.CreateCollection("users"))
	first := b.Compile()
	second := b.Compile()
	assert.Same(t, first, second)
}

func TestMultiModelInstanceOperations(t *testing.T) {
	b := NewBuilder(defs())
	require.NoError(t, b.CreateMultimodelInstance("tenant_a", "tenant"))
	require.NoError(t, b.SeedMultimodelInstanceType("tenant_a", "tenant", "user", []bson.M{{"email": "a@b.com"}}))
	m := b.Compile()
	require.Len(t, m.Operations, 2)
	assert.Equal(t, ir.TagCreateMultimodelInstance, m.Operations[0].Tag)
	assert.Equal(t, ir.TagSeedMultimodelInstanceType, m.Operations[1].Tag)
}

func TestMarkAsMultimodelRequiresKnownModel(t *testing.T) {
	b := NewBuilder(defs())
	err := b.MarkAsMultimodel("users", "unknown")
	require.Error(t, err)
}

func TestSeedCollectionStampsMissingIDAtBuildTime(t *testing.T) {
	b := NewBuilder(defs())
	require.NoError(t, b.SeedCollection("users", []bson.M{{"name": "Alice"}}))
	m := b.Compile()
	doc := m.Operations[0].Documents[0]
	require.Contains(t, doc, "_id")
	assert.NotEmpty(t, doc["_id"])

	// Compile is cached, so re-fetching must return the identical
	// stamped id rather than minting a new one per call.
	again := b.Compile()
	assert.Equal(t, doc["_id"], again.Operations[0].Documents[0]["_id"])
}

func TestSeedCollectionKeepsExplicitID(t *testing.T) {
	b := NewBuilder(defs())
	require.NoError(t, b.SeedCollection("users", []bson.M{{"_id": "explicit-1", "name": "Alice"}}))
	m := b.Compile()
	assert.Equal(t, "explicit-1", m.Operations[0].Documents[0]["_id"])
}

// TestSeedOnlyMigrationWithoutExplicitIDsIsReversible guards against
// stamping _id at dispatch time instead of build time: if forward and
// reverse disagreed on the seeded ids, a seed-only migration whose
// documents omit _id would come back ProveReversible=false even though
// nothing about it is actually irreversible.
func TestSeedOnlyMigrationWithoutExplicitIDsIsReversible(t *testing.T) {
	b := NewBuilder(defs())
	require.NoError(t, b.SeedCollection("users", []bson.M{
		{"name": "Alice"},
		{"name": "Bob"},
	}))
	m := b.Compile()
	require.Len(t, m.Operations, 1)

	sim := simulate.NewSimulator()
	pre := simulate.NewState()
	pre.Collections["users"] = []bson.M{}
	after, _, err := sim.Apply(pre, m.Operations)
	require.NoError(t, err)
	require.Len(t, after.Collections["users"], 2)

	report, err := sim.ProveReversible(pre, after, m)
	require.NoError(t, err)
	assert.True(t, report.Reversible, "%v", report.Diff)
}
