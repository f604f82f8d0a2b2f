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

package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/diister-dev/mongodbee/dbapi"
	"github.com/diister-dev/mongodbee/merrors"
)

// compile-time assertion that Store implements dbapi.Database.
var _ dbapi.Database = (*Store)(nil)

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	return s.database.ListCollectionNames(ctx, bson.M{})
}

func (s *Store) CreateCollection(ctx context.Context, name string, validator bson.M) error {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	opts := options.CreateCollection()
	if len(validator) > 0 {
		opts.SetValidator(validator)
	}
	if err := s.database.CreateCollection(ctx, name, opts); err != nil {
		if isNamespaceExists(err) {
			return nil
		}
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "CreateCollection", "failed to create collection "+name, err)
	}
	return nil
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	if err := s.database.Collection(name).Drop(ctx); err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "DropCollection", "failed to drop collection "+name, err)
	}
	return nil
}

func (s *Store) InsertMany(ctx context.Context, collection string, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	values := make([]interface{}, len(docs))
	for i, d := range docs {
		values[i] = d
	}
	if _, err := s.database.Collection(collection).InsertMany(ctx, values); err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "InsertMany", "failed to insert into "+collection, err)
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	res, err := s.database.Collection(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, merrors.Wrap(merrors.KindRuntime, "mongostore", "DeleteMany", "failed to delete from "+collection, err)
	}
	return res.DeletedCount, nil
}

func (s *Store) UpdateMany(ctx context.Context, collection string, filter, update bson.M) (int64, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	res, err := s.database.Collection(collection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, merrors.Wrap(merrors.KindRuntime, "mongostore", "UpdateMany", "failed to update "+collection, err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter bson.M) ([]bson.M, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	cursor, err := s.database.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "Find", "failed to query "+collection, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "Find", "failed to decode cursor for "+collection, err)
	}
	return docs, nil
}

func (s *Store) CreateIndex(ctx context.Context, collection string, spec dbapi.IndexSpec) error {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	model := mongo.IndexModel{
		Keys: spec.Keys,
		Options: options.Index().
			SetName(spec.Name).
			SetUnique(spec.Unique).
			SetSparse(spec.Sparse),
	}
	if _, err := s.database.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "CreateIndex", "failed to create index "+spec.Name+" on "+collection, err)
	}
	return nil
}

func (s *Store) DropIndex(ctx context.Context, collection string, name string) error {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	if _, err := s.database.Collection(collection).Indexes().DropOne(ctx, name); err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "DropIndex", "failed to drop index "+name+" on "+collection, err)
	}
	return nil
}

func (s *Store) ListIndexes(ctx context.Context, collection string) ([]dbapi.IndexSpec, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	cursor, err := s.database.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "ListIndexes", "failed to list indexes on "+collection, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "ListIndexes", "failed to decode index list for "+collection, err)
	}

	specs := make([]dbapi.IndexSpec, 0, len(raw))
	for _, r := range raw {
		name, _ := r["name"].(string)
		if name == "_id_" {
			continue
		}
		unique, _ := r["unique"].(bool)
		sparse, _ := r["sparse"].(bool)
		var keys bson.D
		if keyDoc, ok := r["key"].(bson.M); ok {
			for k, v := range keyDoc {
				keys = append(keys, bson.E{Key: k, Value: v})
			}
		}
		specs = append(specs, dbapi.IndexSpec{Name: name, Keys: keys, Unique: unique, Sparse: sparse})
	}
	return specs, nil
}

func (s *Store) ModifyCollection(ctx context.Context, name string, validator bson.M) error {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	cmd := bson.D{{Key: "collMod", Value: name}, {Key: "validator", Value: validator}}
	if err := s.database.RunCommand(ctx, cmd).Err(); err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "ModifyCollection", "failed to install validator on "+name, err)
	}
	return nil
}

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "WithTransaction", "failed to start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "WithTransaction", "transaction failed", err)
	}
	return nil
}

// isNamespaceExists reports whether err is MongoDB's NamespaceExists
// (code 48), returned by createCollection when the collection is
// already there — the applier's create_* handlers are idempotent by
// intent, so this is treated as success rather than surfaced.
func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == 48
}
