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
Package chain discovers migration definition files, resolves them into
a single parent-to-leaf ordered chain, and computes the pending suffix
against a set of already-applied migration IDs.
*/
package chain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/diister-dev/mongodbee/builder"
	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/merrors"
)

// RootParent is the sentinel parent ID marking a migration with no
// predecessor.
const RootParent = ""

// MigrateFunc is the user-supplied function that populates a Builder
// for one migration.
type MigrateFunc func(b *builder.Builder) error

// MigrationDefinition is one migration as loaded from source, before
// compilation (spec.md §3).
type MigrationDefinition struct {
	ID      string
	Name    string
	Parent  string // RootParent for the chain's root
	Defs    builder.SchemasDefinition
	Migrate MigrateFunc

	compiled *ir.CompiledMigration
}

// FileDefinition pairs a discovered file with the definition it loaded.
type FileDefinition struct {
	FileName string
	Def      *MigrationDefinition
}

// Compile runs Migrate against a fresh Builder and caches the result,
// matching builder.Compile's idempotency.
func (d *MigrationDefinition) Compile() (*ir.CompiledMigration, error) {
	if d.compiled != nil {
		return d.compiled, nil
	}
	b := builder.NewBuilder(d.Defs)
	if err := d.Migrate(b); err != nil {
		return nil, merrors.Wrap(merrors.KindChain, "chain", "Compile",
			fmt.Sprintf("migration %s failed to build", d.ID), err)
	}
	compiled := b.Compile()
	compiled.ID = d.ID
	compiled.ParentID = d.Parent
	compiled.Slug = d.Name
	d.compiled = compiled
	return compiled, nil
}

// Loader discovers migration definition files. Implementations decode
// whatever on-disk format a project uses; Discover only needs a stable,
// alphabetical file ordering and a decode step.
type Loader interface {
	// Load decodes the file at path into a MigrationDefinition.
	Load(path string) (*MigrationDefinition, error)
}

// Discover scans dir for migration files using loader, in alphabetical
// order (stable independent of OS readdir order, per Testable Property
// 1).
func Discover(dir string, loader Loader) ([]FileDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindChain, "chain", "Discover", "cannot read migrations directory", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	defs := make([]FileDefinition, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		def, err := loader.Load(path)
		if err != nil {
			return nil, merrors.Wrap(merrors.KindChain, "chain", "Discover", "cannot load migration file "+name, err)
		}
		defs = append(defs, FileDefinition{FileName: name, Def: def})
	}
	return defs, nil
}

// Chain is the resolved, ordered parent-to-leaf sequence of migrations.
type Chain struct {
	Migrations []*MigrationDefinition
}

// ErrChainBranching is wrapped when more than one migration declares
// the same parent.
var ErrChainBranching = merrors.Chain("chain", "LoadChain", "chain branches: more than one migration shares a parent", nil)

// LoadChain resolves defs into a single parent-to-leaf chain. Fails if
// zero or more than one root exists, if any migration is unreachable
// from the root, or if any migration has more than one child (branch).
func LoadChain(defs []FileDefinition) (*Chain, error) {
	byParent := make(map[string][]*MigrationDefinition)
	byID := make(map[string]*MigrationDefinition, len(defs))
	var roots []*MigrationDefinition

	for _, fd := range defs {
		d := fd.Def
		if _, dup := byID[d.ID]; dup {
			return nil, merrors.Chain("chain", "LoadChain", fmt.Sprintf("duplicate migration id %q", d.ID), nil)
		}
		byID[d.ID] = d
		byParent[d.Parent] = append(byParent[d.Parent], d)
		if d.Parent == RootParent {
			roots = append(roots, d)
		}
	}

	if len(roots) == 0 {
		return nil, merrors.Chain("chain", "LoadChain", "no root migration found (parent = root sentinel)", nil)
	}
	if len(roots) > 1 {
		return nil, merrors.Chain("chain", "LoadChain", fmt.Sprintf("multiple root migrations found: %d", len(roots)), nil)
	}

	ordered := make([]*MigrationDefinition, 0, len(defs))
	visited := make(map[string]bool, len(defs))
	cur := roots[0]
	for {
		if visited[cur.ID] {
			return nil, merrors.Chain("chain", "LoadChain", fmt.Sprintf("cycle detected at migration %q", cur.ID), nil)
		}
		visited[cur.ID] = true
		ordered = append(ordered, cur)

		children := byParent[cur.ID]
		if len(children) == 0 {
			break
		}
		if len(children) > 1 {
			return nil, ErrChainBranching
		}
		cur = children[0]
	}

	if len(ordered) != len(defs) {
		return nil, merrors.Chain("chain", "LoadChain",
			fmt.Sprintf("%d migration(s) unreachable from root", len(defs)-len(ordered)), nil)
	}

	return &Chain{Migrations: ordered}, nil
}

// PendingMigrations returns the suffix of chain starting at the first
// migration whose ID is not in applied. It is an error for an applied
// migration to appear after a non-applied one (a "hole").
func PendingMigrations(c *Chain, applied []string) ([]*MigrationDefinition, error) {
	appliedSet := make(map[string]bool, len(applied))
	for _, id := range applied {
		appliedSet[id] = true
	}

	var firstPendingIdx = -1
	for i, m := range c.Migrations {
		if !appliedSet[m.ID] {
			if firstPendingIdx == -1 {
				firstPendingIdx = i
			}
		} else if firstPendingIdx != -1 {
			return nil, merrors.Chain("chain", "PendingMigrations",
				fmt.Sprintf("hole detected: migration %q is applied but follows pending migration %q", m.ID, c.Migrations[firstPendingIdx].ID), nil)
		}
	}
	if firstPendingIdx == -1 {
		return nil, nil
	}
	return c.Migrations[firstPendingIdx:], nil
}

// NewID generates a sortable migration ID: a UTC timestamp prefix
// (YYYY_MM_DD_HHMM) plus a short random suffix, formatted
// "<timestamp>_<random>@<slug>" per spec.md §3's "timestamp prefix +
// random suffix" requirement.
func NewID(now time.Time, slug string) string {
	ts := now.UTC().Format("2006_01_02_1504")
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s@%s", ts, suffix, slug)
}
