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

// Command mongodbee is the engine's CLI front-end (spec.md §6): init,
// generate, check, migrate, rollback, status, history. It is
// deliberately thin — flag parsing and exit codes only, no colored
// output or interactive prompts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diister-dev/mongodbee/builder"
	"github.com/diister-dev/mongodbee/chain"
)

// registry and schemaDefs are the integration points a consuming
// project fills in: every migration file registers its
// chain.MigrateFunc here under its manifest "name", and schemaDefs
// carries the project's collection/multi-collection/multi-model
// schemas. A project forks this main.go (or vendors the cli package
// once one exists) and populates both before calling Execute.
var (
	registry   = map[string]chain.MigrateFunc{}
	schemaDefs = builder.SchemasDefinition{}
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mongodbee",
		Short: "Schema-aware MongoDB migration engine",
	}
	root.PersistentFlags().String("config", "mongodbee.yaml", "path to the configuration file")

	root.AddCommand(newInitCommand())
	root.AddCommand(newGenerateCommand())
	root.AddCommand(newCheckCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newRollbackCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newHistoryCommand())
	return root
}
