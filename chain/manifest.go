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
	"encoding/json"
	"fmt"
	"os"

	"github.com/diister-dev/mongodbee/builder"
)

// manifest is the on-disk shape of one migration file: an id/name/parent
// triple. The actual Migrate closure lives in the Go binary, since IR
// builder calls cannot be expressed declaratively — manifests reference
// it by name through a compiled-in Registry.
type manifest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

// ManifestLoader loads migration files in the {id, name, parent} JSON
// shape of spec.md §6, resolving each manifest's Migrate function from
// a compiled-in Registry keyed by name. Migration authors register
// their builder.Builder closures at package init time; the manifest
// file is what gives chain.Discover a stable, sortable filesystem
// artifact to scan without requiring a Go plugin loader.
type ManifestLoader struct {
	Registry map[string]MigrateFunc
	Defs     builder.SchemasDefinition
}

// Load implements Loader.
func (l *ManifestLoader) Load(path string) (*MigrationDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chain: failed to read manifest %s: %w", path, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("chain: failed to parse manifest %s: %w", path, err)
	}

	fn, ok := l.Registry[m.Name]
	if !ok {
		return nil, fmt.Errorf("chain: no registered migrate function for %q (manifest %s)", m.Name, path)
	}

	return &MigrationDefinition{
		ID:      m.ID,
		Name:    m.Name,
		Parent:  m.Parent,
		Defs:    l.Defs,
		Migrate: fn,
	}, nil
}
