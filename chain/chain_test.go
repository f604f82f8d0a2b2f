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

package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diister-dev/mongodbee/builder"
)

func noopMigrate(*builder.Builder) error { return nil }

func def(id, name, parent string) *MigrationDefinition {
	return &MigrationDefinition{ID: id, Name: name, Parent: parent, Migrate: noopMigrate}
}

func wrap(defs ...*MigrationDefinition) []FileDefinition {
	out := make([]FileDefinition, len(defs))
	for i, d := range defs {
		out[i] = FileDefinition{FileName: d.ID + ".go", Def: d}
	}
	return out
}

func TestLoadChainOrdersRootToLeaf(t *testing.T) {
	root := def("1", "init", RootParent)
	second := def("2", "second", "1")
	third := def("3", "third", "2")

	c, err := LoadChain(wrap(third, root, second))
	require.NoError(t, err)
	require.Len(t, c.Migrations, 3)
	assert.Equal(t, "1", c.Migrations[0].ID)
	assert.Equal(t, "2", c.Migrations[1].ID)
	assert.Equal(t, "3", c.Migrations[2].ID)
}

func TestLoadChainFailsWithNoRoot(t *testing.T) {
	a := def("1", "a", "x")
	_, err := LoadChain(wrap(a))
	require.Error(t, err)
}

func TestLoadChainFailsWithMultipleRoots(t *testing.T) {
	a := def("1", "a", RootParent)
	b := def("2", "b", RootParent)
	_, err := LoadChain(wrap(a, b))
	require.Error(t, err)
}

func TestLoadChainFailsOnBranch(t *testing.T) {
	root := def("1", "root", RootParent)
	childA := def("2", "a", "1")
	childB := def("3", "b", "1")
	_, err := LoadChain(wrap(root, childA, childB))
	require.ErrorIs(t, err, ErrChainBranching)
}

func TestLoadChainFailsOnUnreachable(t *testing.T) {
	root := def("1", "root", RootParent)
	orphan := def("2", "orphan", "missing")
	_, err := LoadChain(wrap(root, orphan))
	require.Error(t, err)
}

func TestPendingMigrationsReturnsSuffix(t *testing.T) {
	root := def("1", "root", RootParent)
	second := def("2", "second", "1")
	third := def("3", "third", "2")
	c, err := LoadChain(wrap(root, second, third))
	require.NoError(t, err)

	pending, err := PendingMigrations(c, []string{"1"})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "2", pending[0].ID)
}

func TestPendingMigrationsDetectsHole(t *testing.T) {
	root := def("1", "root", RootParent)
	second := def("2", "second", "1")
	third := def("3", "third", "2")
	c, err := LoadChain(wrap(root, second, third))
	require.NoError(t, err)

	_, err = PendingMigrations(c, []string{"1", "3"})
	require.Error(t, err)
}

func TestNewIDIsSortableAndTagged(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)
	id := NewID(now, "add_users")
	assert.Contains(t, id, "2026_01_02_1504")
	assert.Contains(t, id, "@add_users")
}
