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
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNamespaceExistsMatchesCode48(t *testing.T) {
	err := mongo.CommandError{Code: 48, Message: "collection already exists"}
	assert.True(t, isNamespaceExists(err))
}

func TestIsNamespaceExistsFalseForOtherErrors(t *testing.T) {
	err := mongo.CommandError{Code: 13, Message: "unauthorized"}
	assert.False(t, isNamespaceExists(err))
}

func TestDeriveStatusMatchesHistoryPackage(t *testing.T) {
	// This test only checks the local decode/derive helpers used by
	// AppliedIDs/CurrentStatusOf; the real history.currentStatusOf
	// invariants are exercised in package history's tests.
	assert.Equal(t, "pending", string(deriveStatus(nil)))
}
