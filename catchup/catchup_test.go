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

package catchup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/applier"
	"github.com/diister-dev/mongodbee/builder"
	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/dbapi"
	"github.com/diister-dev/mongodbee/history"
	"github.com/diister-dev/mongodbee/mongostore"
	"github.com/diister-dev/mongodbee/schema"
)

// fakeStore is a minimal in-memory InstanceStore for catchup tests.
type fakeStore struct {
	collections map[string][]bson.M
	metadata    map[string]mongostore.InstanceMetadata
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: map[string][]bson.M{}, metadata: map[string]mongostore.InstanceMetadata{}}
}

func (f *fakeStore) ListCollections(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.collections))
	for n := range f.collections {
		names = append(names, n)
	}
	return names, nil
}

func (f *fakeStore) CreateCollection(ctx context.Context, name string, validator bson.M) error {
	if _, ok := f.collections[name]; !ok {
		f.collections[name] = []bson.M{}
	}
	return nil
}

func (f *fakeStore) DropCollection(ctx context.Context, name string) error {
	delete(f.collections, name)
	return nil
}

func (f *fakeStore) InsertMany(ctx context.Context, collection string, docs []bson.M) error {
	f.collections[collection] = append(f.collections[collection], docs...)
	return nil
}

func (f *fakeStore) DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error) {
	return 0, nil
}

func (f *fakeStore) UpdateMany(ctx context.Context, collection string, filter, update bson.M) (int64, error) {
	set, _ := update["$set"].(bson.M)
	var updated int64
	for i, d := range f.collections[collection] {
		for k, v := range set {
			f.collections[collection][i][k] = v
		}
		updated++
	}
	return updated, nil
}

func (f *fakeStore) Find(ctx context.Context, collection string, filter bson.M) ([]bson.M, error) {
	var out []bson.M
	for _, d := range f.collections[collection] {
		if t, ok := filter["_type"]; ok && d["_type"] != t {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeStore) CreateIndex(ctx context.Context, collection string, spec dbapi.IndexSpec) error {
	return nil
}

func (f *fakeStore) DropIndex(ctx context.Context, collection string, name string) error { return nil }

func (f *fakeStore) ListIndexes(ctx context.Context, collection string) ([]dbapi.IndexSpec, error) {
	return nil, nil
}

func (f *fakeStore) ModifyCollection(ctx context.Context, name string, validator bson.M) error {
	return nil
}

func (f *fakeStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) ReadInstanceMetadata(ctx context.Context, instance string) (mongostore.InstanceMetadata, bool, error) {
	m, ok := f.metadata[instance]
	return m, ok, nil
}

func (f *fakeStore) WriteInstanceMetadata(ctx context.Context, instance string, meta mongostore.InstanceMetadata) error {
	f.metadata[instance] = meta
	return nil
}

func (f *fakeStore) ListInstancesOf(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.metadata))
	for n := range f.metadata {
		names = append(names, n)
	}
	return names, nil
}

func tenantSchema() schema.Schema {
	return schema.New(map[string]schema.Field{
		"name": {Kind: schema.KindString},
	})
}

// buildChain constructs: root creates model tenant{user,doc}; migration
// 2 creates instance tenant_A; migration 3 transforms tenant_multimodel_instances_type(user, add role).
func buildChain(t *testing.T) *chain.Chain {
	t.Helper()
	defs := builder.SchemasDefinition{
		MultiModels: map[string]map[string]schema.Schema{
			"tenant": {"user": tenantSchema(), "doc": tenantSchema()},
		},
	}

	root := &chain.MigrationDefinition{
		ID: "m1", Name: "root", Parent: chain.RootParent, Defs: defs,
		Migrate: func(b *builder.Builder) error { return nil },
	}
	m2 := &chain.MigrationDefinition{
		ID: "m2", Name: "create-tenant-a", Parent: "m1", Defs: defs,
		Migrate: func(b *builder.Builder) error {
			return b.CreateMultimodelInstance("tenant_A", "tenant")
		},
	}
	m3 := &chain.MigrationDefinition{
		ID: "m3", Name: "add-role", Parent: "m2", Defs: defs,
		Migrate: func(b *builder.Builder) error {
			return b.TransformMultimodelInstancesType("tenant", "user",
				func(doc bson.M) (bson.M, error) { doc["role"] = "member"; return doc, nil },
				func(doc bson.M) (bson.M, error) { delete(doc, "role"); return doc, nil },
				builder.TransformOptions{})
		},
	}
	return &chain.Chain{Migrations: []*chain.MigrationDefinition{root, m2, m3}}
}

func TestReconcileReplaysOnlyMissedInstanceWideTransforms(t *testing.T) {
	store := newFakeStore()
	a := applier.NewApplier(store, history.NewMemoryStore())
	engine := NewEngine(store, a)

	// tenant_B created at migration 2's point (after root, before m3);
	// never received m3's transform.
	store.collections["tenant_B"] = []bson.M{{"_id": "u1", "_type": "user", "name": "Ada"}}
	store.metadata["tenant_B"] = mongostore.InstanceMetadata{FromMigrationID: "m2"}

	c := buildChain(t)
	reports, err := engine.Reconcile(context.Background(), c, "tenant")
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.Equal(t, []string{"m3"}, reports[0].Replayed)
	assert.Equal(t, "member", store.collections["tenant_B"][0]["role"])

	meta, found, err := store.ReadInstanceMetadata(context.Background(), "tenant_B")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, meta.AppliedMigrations, 1)
	assert.Equal(t, "m3", meta.AppliedMigrations[0].ID)
}

func TestReconcileSkipsAlreadyAppliedMigrations(t *testing.T) {
	store := newFakeStore()
	a := applier.NewApplier(store, history.NewMemoryStore())
	engine := NewEngine(store, a)

	store.collections["tenant_A"] = []bson.M{{"_id": "u1", "_type": "user", "name": "Ada", "role": "member"}}
	store.metadata["tenant_A"] = mongostore.InstanceMetadata{
		FromMigrationID: "m2",
		AppliedMigrations: []mongostore.AppliedMigrationRef{
			{ID: "m3", Status: "applied"},
		},
	}

	c := buildChain(t)
	reports, err := engine.Reconcile(context.Background(), c, "tenant")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Replayed)
}

func TestReconcileTreatsMissingMetadataAsOrphanFromRoot(t *testing.T) {
	store := newFakeStore()
	a := applier.NewApplier(store, history.NewMemoryStore())
	engine := NewEngine(store, a)

	// tenant_orphan has no metadata at all; orphan rule replays the
	// entire chain's matching operations for the model.
	store.collections["tenant_orphan"] = []bson.M{{"_id": "u1", "_type": "user", "name": "Ada"}}

	c := buildChain(t)
	// Reconcile discovers instances via ListInstancesOf, which in this
	// fake enumerates metadata keys; seed one with zero-value metadata
	// to represent "discovered but no sentinel yet".
	store.metadata["tenant_orphan"] = mongostore.InstanceMetadata{}

	reports, err := engine.Reconcile(context.Background(), c, "tenant")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"m3"}, reports[0].Replayed)
}
