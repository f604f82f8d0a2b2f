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
Package mongostore is the concrete go.mongodb.org/mongo-driver-backed
implementation of dbapi.Database, plus the two collections the engine
layers on top of it: HistoryStore (the `__dbee_migration__` collection)
and InstanceMetadata (the per-multi-model-instance `_migrations`
sentinel document).
*/
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/diister-dev/mongodbee/merrors"
)

const (
	// DefaultConnectTimeout bounds how long Connect waits for the
	// initial handshake + ping.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultOperationTimeout bounds a single database operation issued
	// through Store when the caller's context carries no deadline.
	DefaultOperationTimeout = 30 * time.Second

	// HistoryCollection is the name of the append-only history log
	// collection (spec.md §6).
	HistoryCollection = "__dbee_migration__"
	// MigrationsSentinelType is the _type discriminator of the
	// per-instance metadata document (spec.md §3).
	MigrationsSentinelType = "_migrations"
	// LegacyStateCollection is the name of the legacy pre-history-store
	// state collection, read but never written by this engine (see
	// DESIGN.md's Open Question decision).
	LegacyStateCollection = "mongodbee_state"
)

// Store is the live, mongo-driver-backed implementation of
// dbapi.Database.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials uri, pings the primary to verify the connection, and
// selects dbName as the working database.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetAppName("mongodbee")

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "Connect", "failed to connect to MongoDB", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "Connect", "failed to ping MongoDB", err)
	}

	return &Store{client: client, database: client.Database(dbName)}, nil
}

// Disconnect closes the underlying client.
func (s *Store) Disconnect(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(disconnectCtx); err != nil {
		return merrors.Wrap(merrors.KindRuntime, "mongostore", "Disconnect", "failed to disconnect", err)
	}
	return nil
}

func withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultOperationTimeout)
}
