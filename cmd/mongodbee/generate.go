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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/config"
)

func newGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <name>",
		Short: "Create a new migration manifest chained to the current leaf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			parent, err := currentLeafID(cfg.Paths.Migrations)
			if err != nil {
				return err
			}

			id := chain.NewID(time.Now(), name)
			body, err := json.MarshalIndent(map[string]string{
				"id": id, "name": name, "parent": parent,
			}, "", "  ")
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Paths.Migrations, 0o755); err != nil {
				return fmt.Errorf("mongodbee: failed to create %s: %w", cfg.Paths.Migrations, err)
			}
			path := filepath.Join(cfg.Paths.Migrations, id+".json")
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return fmt.Errorf("mongodbee: failed to write %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (register %q in the migrate-function registry)\n", path, name)
			return nil
		},
	}
}

// currentLeafID returns the ID of the most recently generated manifest
// in dir (its filenames sort lexically by chain.NewID's timestamp
// prefix), or chain.RootParent if dir has no manifests yet.
func currentLeafID(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return chain.RootParent, nil
	}
	if err != nil {
		return "", fmt.Errorf("mongodbee: failed to read %s: %w", dir, err)
	}

	var latest string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return chain.RootParent, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, latest))
	if err != nil {
		return "", err
	}
	var m struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("mongodbee: failed to parse %s: %w", latest, err)
	}
	return m.ID, nil
}
