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

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int) time.Time { return time.Date(2026, 1, 1, 0, 0, sec, 0, time.UTC) }

func TestCurrentStatusOfSequence(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Record(Record{MigrationID: "m1", Operation: OpApplied, Status: OutcomeSuccess, ExecutedAt: at(0)}))
	require.NoError(t, s.Record(Record{MigrationID: "m1", Operation: OpReverted, Status: OutcomeSuccess, ExecutedAt: at(1)}))
	require.NoError(t, s.Record(Record{MigrationID: "m1", Operation: OpApplied, Status: OutcomeFailure, ExecutedAt: at(2)}))
	require.NoError(t, s.Record(Record{MigrationID: "m1", Operation: OpApplied, Status: OutcomeSuccess, ExecutedAt: at(3)}))

	status, err := s.CurrentStatusOf("m1")
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, status)

	records, err := s.HistoryOf("m1")
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestCurrentStatusOfPendingWithNoRecords(t *testing.T) {
	s := NewMemoryStore()
	status, err := s.CurrentStatusOf("unknown")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)
}

func TestCurrentStatusOfFailedWithOnlyFailures(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Record(Record{MigrationID: "m1", Operation: OpApplied, Status: OutcomeFailure, ExecutedAt: at(0)}))
	status, err := s.CurrentStatusOf("m1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status)
}

func TestAppliedIDsOrderedByWhenApplied(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Record(Record{MigrationID: "m2", Operation: OpApplied, Status: OutcomeSuccess, ExecutedAt: at(5)}))
	require.NoError(t, s.Record(Record{MigrationID: "m1", Operation: OpApplied, Status: OutcomeSuccess, ExecutedAt: at(1)}))

	ids, err := s.AppliedIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids)
}

func TestAppliedIDsIdempotentAcrossDoubleMigrate(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Record(Record{MigrationID: "m1", Operation: OpApplied, Status: OutcomeSuccess, ExecutedAt: at(1)}))
	first, err := s.AppliedIDs()
	require.NoError(t, err)

	// A second migrate run with nothing pending records nothing new.
	second, err := s.AppliedIDs()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
