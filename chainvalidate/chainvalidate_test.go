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

package chainvalidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/builder"
	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/schema"
)

func usersV1() builder.SchemasDefinition {
	return builder.SchemasDefinition{
		Collections: map[string]schema.Schema{
			"users": schema.New(map[string]schema.Field{"name": {Kind: schema.KindString}}),
		},
	}
}

func usersV2() builder.SchemasDefinition {
	return builder.SchemasDefinition{
		Collections: map[string]schema.Schema{
			"users": schema.New(map[string]schema.Field{
				"name": {Kind: schema.KindString},
				"age":  {Kind: schema.KindNumber},
			}),
		},
	}
}

func TestValidateChainCatchesUnguardedSchemaChange(t *testing.T) {
	root := &chain.MigrationDefinition{
		ID: "1", Parent: chain.RootParent, Defs: usersV1(),
		Migrate: func(b *builder.Builder) error { return b.CreateCollection("users") },
	}
	child := &chain.MigrationDefinition{
		ID: "2", Parent: "1", Defs: usersV2(),
		Migrate: func(b *builder.Builder) error { return nil },
	}
	c, err := chain.LoadChain([]chain.FileDefinition{{FileName: "1", Def: root}, {FileName: "2", Def: child}})
	require.NoError(t, err)

	report, err := ValidateChain(c, usersV2())
	require.NoError(t, err)
	require.False(t, report.OK())

	found := false
	for _, f := range report.Findings {
		if f.MigrationID == "2" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateChainPassesWithTransform(t *testing.T) {
	root := &chain.MigrationDefinition{
		ID: "1", Parent: chain.RootParent, Defs: usersV1(),
		Migrate: func(b *builder.Builder) error { return b.CreateCollection("users") },
	}
	child := &chain.MigrationDefinition{
		ID: "2", Parent: "1", Defs: usersV2(),
		Migrate: func(b *builder.Builder) error {
			up := func(d bson.M) (bson.M, error) { d["age"] = 0.0; return d, nil }
			down := func(d bson.M) (bson.M, error) { delete(d, "age"); return d, nil }
			return b.TransformCollection("users", up, down, builder.TransformOptions{})
		},
	}
	c, err := chain.LoadChain([]chain.FileDefinition{{FileName: "1", Def: root}, {FileName: "2", Def: child}})
	require.NoError(t, err)

	report, err := ValidateChain(c, usersV2())
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Findings)
}

func tenantDefs() builder.SchemasDefinition {
	return builder.SchemasDefinition{
		MultiModels: map[string]map[string]schema.Schema{
			"tenant": {
				"user": schema.New(map[string]schema.Field{"email": {Kind: schema.KindString}}),
			},
		},
	}
}

func TestValidateChainCatchesBadMultimodelInstanceDocument(t *testing.T) {
	root := &chain.MigrationDefinition{
		ID: "1", Parent: chain.RootParent, Defs: tenantDefs(),
		Migrate: func(b *builder.Builder) error {
			if err := b.CreateMultimodelInstance("tenant_a", "tenant"); err != nil {
				return err
			}
			return b.SeedMultimodelInstanceType("tenant_a", "tenant", "user", []bson.M{
				{"email": 42}, // wrong type: schema declares a string
			})
		},
	}
	c, err := chain.LoadChain([]chain.FileDefinition{{FileName: "1", Def: root}})
	require.NoError(t, err)

	report, err := ValidateChain(c, tenantDefs())
	require.NoError(t, err)
	require.False(t, report.OK())

	found := false
	for _, f := range report.Findings {
		if f.MigrationID == "1" {
			found = true
		}
	}
	assert.True(t, found)
}

func multicollectionDefs() builder.SchemasDefinition {
	return builder.SchemasDefinition{
		MultiCollections: map[string]map[string]schema.Schema{
			"events": {
				"click": schema.New(map[string]schema.Field{"x": {Kind: schema.KindNumber}}),
			},
		},
	}
}

func TestValidateChainCatchesBadMulticollectionDocument(t *testing.T) {
	root := &chain.MigrationDefinition{
		ID: "1", Parent: chain.RootParent, Defs: multicollectionDefs(),
		Migrate: func(b *builder.Builder) error {
			if err := b.CreateMulticollection("events"); err != nil {
				return err
			}
			return b.SeedMulticollectionType("events", "click", []bson.M{
				{"x": "not-a-number"},
			})
		},
	}
	c, err := chain.LoadChain([]chain.FileDefinition{{FileName: "1", Def: root}})
	require.NoError(t, err)

	report, err := ValidateChain(c, multicollectionDefs())
	require.NoError(t, err)
	require.False(t, report.OK())

	found := false
	for _, f := range report.Findings {
		if f.MigrationID == "1" {
			found = true
		}
	}
	assert.True(t, found)
}
