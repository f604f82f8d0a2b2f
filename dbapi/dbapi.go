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
Package dbapi declares the abstract set of database operations the
live applier and catch-up engine depend on (spec.md §6), independent of
any concrete driver. mongostore provides the real
go.mongodb.org/mongo-driver-backed implementation; tests use an
in-memory fake built against the same interface.
*/
package dbapi

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// IndexSpec describes one index to create.
type IndexSpec struct {
	Name   string
	Keys   bson.D
	Unique bool
	Sparse bool
}

// Database is the abstract set of capabilities the applier and
// catch-up engine require from the underlying store.
type Database interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string, validator bson.M) error
	DropCollection(ctx context.Context, name string) error

	InsertMany(ctx context.Context, collection string, docs []bson.M) error
	DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error)
	UpdateMany(ctx context.Context, collection string, filter, update bson.M) (int64, error)
	Find(ctx context.Context, collection string, filter bson.M) ([]bson.M, error)

	CreateIndex(ctx context.Context, collection string, spec IndexSpec) error
	DropIndex(ctx context.Context, collection string, name string) error
	ListIndexes(ctx context.Context, collection string) ([]IndexSpec, error)

	ModifyCollection(ctx context.Context, name string, validator bson.M) error

	// WithTransaction runs fn inside a transaction when the backing
	// store supports one; implementations that cannot (e.g. a
	// standalone mongod, or a fake in tests) may run fn directly.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
