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

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/diister-dev/mongodbee/history"
	"github.com/diister-dev/mongodbee/merrors"
)

// HistoryStore is the mongo-driver-backed history.Store, persisting
// records in HistoryCollection.
type HistoryStore struct {
	store *Store
}

var _ history.Store = (*HistoryStore)(nil)

// NewHistoryStore wraps store's database connection for history
// persistence.
func NewHistoryStore(store *Store) *HistoryStore {
	return &HistoryStore{store: store}
}

func (h *HistoryStore) Record(r history.Record) error {
	ctx, cancel := withOperationTimeout(context.Background())
	defer cancel()

	doc := bson.M{
		"migrationId":   r.MigrationID,
		"migrationName": r.MigrationName,
		"operation":     string(r.Operation),
		"status":        string(r.Status),
		"executedAt":    r.ExecutedAt,
		"engineVersion": r.EngineVersion,
	}
	if r.DurationMs != nil {
		doc["durationMs"] = *r.DurationMs
	}
	if r.Error != "" {
		doc["error"] = r.Error
	}

	if _, err := h.store.database.Collection(HistoryCollection).InsertOne(ctx, doc); err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "Record", "failed to append history record", err)
	}
	return nil
}

func (h *HistoryStore) HistoryOf(migrationID string) ([]history.Record, error) {
	ctx, cancel := withOperationTimeout(context.Background())
	defer cancel()

	cursor, err := h.store.database.Collection(HistoryCollection).
		Find(ctx, bson.M{"migrationId": migrationID}, options.Find().SetSort(bson.D{{Key: "executedAt", Value: 1}}))
	if err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "HistoryOf", "failed to query history", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "HistoryOf", "failed to decode history", err)
	}
	return decodeRecords(raw), nil
}

func (h *HistoryStore) CurrentStatusOf(migrationID string) (history.Status, error) {
	records, err := h.HistoryOf(migrationID)
	if err != nil {
		return "", err
	}
	return deriveStatus(records), nil
}

func (h *HistoryStore) AppliedIDs() ([]string, error) {
	ctx, cancel := withOperationTimeout(context.Background())
	defer cancel()

	cursor, err := h.store.database.Collection(HistoryCollection).
		Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "executedAt", Value: 1}}))
	if err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "AppliedIDs", "failed to query history", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "AppliedIDs", "failed to decode history", err)
	}

	byID := map[string][]history.Record{}
	lastApplied := map[string]int{}
	var order []string
	for i, r := range decodeRecords(raw) {
		if _, seen := byID[r.MigrationID]; !seen {
			order = append(order, r.MigrationID)
		}
		byID[r.MigrationID] = append(byID[r.MigrationID], r)
		if r.Operation == history.OpApplied && r.Status == history.OutcomeSuccess {
			lastApplied[r.MigrationID] = i
		}
	}

	var ids []string
	for _, id := range order {
		if deriveStatus(byID[id]) == history.StatusApplied {
			ids = append(ids, id)
		}
	}
	// Records arrive sorted by executedAt, so the index of each id's last
	// applied-success record orders ids by when they reached applied.
	sort.SliceStable(ids, func(i, j int) bool { return lastApplied[ids[i]] < lastApplied[ids[j]] })
	return ids, nil
}

func (h *HistoryStore) LastApplied() (*history.Record, error) {
	ctx, cancel := withOperationTimeout(context.Background())
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "executedAt", Value: -1}})
	var raw bson.M
	err := h.store.database.Collection(HistoryCollection).
		FindOne(ctx, bson.M{"operation": string(history.OpApplied), "status": string(history.OutcomeSuccess)}, opts).
		Decode(&raw)
	if err != nil {
		return nil, nil //nolint:nilerr // mongo.ErrNoDocuments and similar map to "no last-applied record"
	}
	records := decodeRecords([]bson.M{raw})
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func decodeRecords(raw []bson.M) []history.Record {
	out := make([]history.Record, 0, len(raw))
	for _, r := range raw {
		rec := history.Record{
			MigrationID:   stringOf(r["migrationId"]),
			MigrationName: stringOf(r["migrationName"]),
			Operation:     history.Operation(stringOf(r["operation"])),
			Status:        history.Outcome(stringOf(r["status"])),
			EngineVersion: stringOf(r["engineVersion"]),
			Error:         stringOf(r["error"]),
		}
		if t, ok := r["executedAt"].(primitive.DateTime); ok {
			rec.ExecutedAt = t.Time()
		}
		if d, ok := r["durationMs"].(int64); ok {
			rec.DurationMs = &d
		}
		out = append(out, rec)
	}
	return out
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

// deriveStatus mirrors history.currentStatusOf's unexported logic so
// mongostore does not need to round-trip through an in-memory Store.
func deriveStatus(records []history.Record) history.Status {
	if len(records) == 0 {
		return history.StatusPending
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].ExecutedAt.Before(records[j].ExecutedAt) })
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Status == history.OutcomeSuccess {
			switch records[i].Operation {
			case history.OpApplied:
				return history.StatusApplied
			case history.OpReverted:
				return history.StatusReverted
			}
		}
	}
	return history.StatusFailed
}
