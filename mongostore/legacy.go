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

	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/merrors"
)

// ReadLegacyState reads the pre-history-store state collection for
// display-only compatibility. Per DESIGN.md's Open Question decision,
// this engine never writes to LegacyStateCollection and never promotes
// its records into the new history — it is read here only so `status`
// can show a migration path's legacy state alongside current history.
func (s *Store) ReadLegacyState(ctx context.Context) ([]bson.M, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	names, err := s.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	present := false
	for _, n := range names {
		if n == LegacyStateCollection {
			present = true
			break
		}
	}
	if !present {
		return nil, nil
	}

	cursor, err := s.database.Collection(LegacyStateCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "ReadLegacyState", "failed to read legacy state", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, merrors.Wrap(merrors.KindRuntime, "mongostore", "ReadLegacyState", "failed to decode legacy state", err)
	}
	return docs, nil
}
