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

package main

import (
	"context"

	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/config"
	"github.com/diister-dev/mongodbee/mongostore"
)

func loadChain(cfg config.Config) (*chain.Chain, error) {
	loader := &chain.ManifestLoader{Registry: registry, Defs: schemaDefs}
	defs, err := chain.Discover(cfg.Paths.Migrations, loader)
	if err != nil {
		return nil, err
	}
	return chain.LoadChain(defs)
}

func connectStore(ctx context.Context, cfg config.Config) (*mongostore.Store, error) {
	uri, err := config.StaticResolver().ResolveURI(ctx, cfg.Database.Connection)
	if err != nil {
		return nil, err
	}
	return mongostore.Connect(ctx, uri, cfg.Database.Name)
}

func findMigration(c *chain.Chain, id string) *chain.MigrationDefinition {
	for _, m := range c.Migrations {
		if m.ID == id {
			return m
		}
	}
	return nil
}
