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

	"github.com/spf13/cobra"

	"github.com/diister-dev/mongodbee/config"
	"github.com/diister-dev/mongodbee/mongostore"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the append-only history log",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrationID, _ := cmd.Flags().GetString("migration-id")
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			hist := mongostore.NewHistoryStore(store)

			ids := []string{migrationID}
			if migrationID == "" {
				c, err := loadChain(cfg)
				if err != nil {
					return err
				}
				ids = ids[:0]
				for _, m := range c.Migrations {
					ids = append(ids, m.ID)
				}
			}

			for _, id := range ids {
				records, err := hist.HistoryOf(id)
				if err != nil {
					return err
				}
				for _, r := range records {
					line := fmt.Sprintf("%s  %s  %s  %s", r.MigrationID, r.MigrationName, r.Operation, r.Status)
					if r.Error != "" {
						line += "  error=" + r.Error
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("migration-id", "", "restrict output to a single migration")
	return cmd
}
