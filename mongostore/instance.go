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
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/diister-dev/mongodbee/merrors"
)

// AppliedMigrationRef is one entry in an instance's applied-migrations
// log, per spec.md §3's multi-collection info document.
type AppliedMigrationRef struct {
	ID        string    `bson:"id"`
	Status    string    `bson:"status"`
	AppliedAt time.Time `bson:"appliedAt"`
}

// InstanceMetadata is the `_type = "_migrations"` sentinel document
// inside every multi-model instance collection, tracking which
// migration the instance was created from and which have since been
// applied to it (used by catchup.Engine).
type InstanceMetadata struct {
	FromMigrationID   string                `bson:"fromMigrationId"`
	AppliedMigrations []AppliedMigrationRef `bson:"appliedMigrations"`
}

// ReadInstanceMetadata loads the sentinel document from instance, or
// returns the zero value with ok=false if none exists yet.
func (s *Store) ReadInstanceMetadata(ctx context.Context, instance string) (InstanceMetadata, bool, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	var raw bson.M
	err := s.database.Collection(instance).FindOne(ctx, bson.M{"_type": MigrationsSentinelType}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return InstanceMetadata{}, false, nil
	}
	if err != nil {
		return InstanceMetadata{}, false, merrors.Wrap(merrors.KindRuntime, "mongostore", "ReadInstanceMetadata",
			"failed to read instance metadata for "+instance, err)
	}

	meta := InstanceMetadata{FromMigrationID: stringOf(raw["fromMigrationId"])}
	if list, ok := raw["appliedMigrations"].(bson.A); ok {
		for _, item := range list {
			entry, ok := item.(bson.M)
			if !ok {
				continue
			}
			ref := AppliedMigrationRef{ID: stringOf(entry["id"]), Status: stringOf(entry["status"])}
			if t, ok := entry["appliedAt"].(primitive.DateTime); ok {
				ref.AppliedAt = t.Time()
			}
			meta.AppliedMigrations = append(meta.AppliedMigrations, ref)
		}
	}
	sort.SliceStable(meta.AppliedMigrations, func(i, j int) bool {
		return meta.AppliedMigrations[i].AppliedAt.Before(meta.AppliedMigrations[j].AppliedAt)
	})
	return meta, true, nil
}

// WriteInstanceMetadata upserts the sentinel document for instance.
func (s *Store) WriteInstanceMetadata(ctx context.Context, instance string, meta InstanceMetadata) error {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	doc := bson.M{
		"_type":             MigrationsSentinelType,
		"fromMigrationId":   meta.FromMigrationID,
		"appliedMigrations": meta.AppliedMigrations,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.database.Collection(instance).ReplaceOne(ctx, bson.M{"_type": MigrationsSentinelType}, doc, opts)
	if err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "WriteInstanceMetadata", "failed to write instance metadata for "+instance, err)
	}
	return nil
}

// ListInstancesOf returns the names of collections (other than the
// history and legacy-state collections) that carry a
// MigrationsSentinelType document, regardless of model. A collection
// without a sentinel document is not returned, and the names are not
// cross-referenced against the chain's create_multimodel_instance
// operations.
func (s *Store) ListInstancesOf(ctx context.Context) ([]string, error) {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	var instances []string
	for _, name := range names {
		if name == HistoryCollection || name == LegacyStateCollection {
			continue
		}
		if _, found, err := s.ReadInstanceMetadata(ctx, name); err == nil && found {
			instances = append(instances, name)
		}
	}
	return instances, nil
}
