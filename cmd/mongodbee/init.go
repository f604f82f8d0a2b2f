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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const initialConfigTemplate = `database:
  connection:
    uri: mongodb://localhost:27017
  name: myapp
paths:
  migrations: ./migrations
  schemas: ./schemas.ts
runtime:
  schemaManagement: auto
`

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold a mongodbee.yaml config and an empty migrations directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = "mongodbee.yaml"
			}

			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("mongodbee: %s already exists", configPath)
			}
			if err := os.WriteFile(configPath, []byte(initialConfigTemplate), 0o644); err != nil {
				return fmt.Errorf("mongodbee: failed to write %s: %w", configPath, err)
			}
			if err := os.MkdirAll(filepath.Join(".", "migrations"), 0o755); err != nil {
				return fmt.Errorf("mongodbee: failed to create migrations directory: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s and ./migrations\n", configPath)
			return nil
		},
	}
}
