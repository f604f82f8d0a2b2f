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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diister-dev/mongodbee/builder"
)

func TestManifestLoaderResolvesRegisteredMigrateFunc(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026_01_01_0000_abcd1234@init.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"2026_01_01_0000_abcd1234@init","name":"init","parent":""}`), 0o644))

	loader := &ManifestLoader{
		Registry: map[string]MigrateFunc{
			"init": func(b *builder.Builder) error { return nil },
		},
	}

	def, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "init", def.Name)
	assert.Equal(t, RootParent, def.Parent)
}

func TestManifestLoaderErrorsWithoutRegisteredFunc(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"m","name":"unknown","parent":""}`), 0o644))

	loader := &ManifestLoader{Registry: map[string]MigrateFunc{}}
	_, err := loader.Load(path)
	require.Error(t, err)
}
