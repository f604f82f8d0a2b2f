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

	"github.com/diister-dev/mongodbee/applier"
	"github.com/diister-dev/mongodbee/config"
	"github.com/diister-dev/mongodbee/logging"
	"github.com/diister-dev/mongodbee/metrics"
	"github.com/diister-dev/mongodbee/mongostore"
)

func newRollbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recently applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
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
			c, err := loadChain(cfg)
			if err != nil {
				return err
			}

			hist := mongostore.NewHistoryStore(store)
			last, err := hist.LastApplied()
			if err != nil {
				return err
			}
			if last == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}

			target := findMigration(c, last.MigrationID)
			if target == nil {
				return fmt.Errorf("mongodbee: migration %s from history is not in the loaded chain", last.MigrationID)
			}

			app := &applier.Applier{DB: store, History: hist, Metrics: metrics.New(), Logger: logging.New("applier")}
			report, err := app.Rollback(ctx, target, applier.Options{Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reverted (%dms)\n", report.MigrationID, report.DurationMs)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "revert even if the migration is marked irreversible")
	return cmd
}
