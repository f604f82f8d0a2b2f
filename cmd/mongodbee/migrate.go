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
	"github.com/diister-dev/mongodbee/catchup"
	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/config"
	"github.com/diister-dev/mongodbee/logging"
	"github.com/diister-dev/mongodbee/metrics"
	"github.com/diister-dev/mongodbee/mongostore"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply every pending migration in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
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
			applied, err := hist.AppliedIDs()
			if err != nil {
				return err
			}
			pending, err := chain.PendingMigrations(c, applied)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to apply")
				return nil
			}

			app := &applier.Applier{DB: store, History: hist, Metrics: metrics.New(), Logger: logging.New("applier")}
			reports, err := app.Apply(ctx, pending, applier.Options{DryRun: dryRun})
			for _, r := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s applied (%dms)\n", r.MigrationID, r.DurationMs)
			}
			if err != nil {
				return err
			}
			if dryRun {
				return nil
			}

			engine := catchup.NewEngine(store, app)
			engine.Metrics = app.Metrics
			engine.Logger = app.Logger
			for model := range schemaDefs.MultiModels {
				instanceReports, err := engine.Reconcile(ctx, c, model)
				if err != nil {
					return fmt.Errorf("mongodbee: catch-up for model %q failed: %w", model, err)
				}
				for _, rep := range instanceReports {
					if len(rep.Replayed) > 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "instance %s: replayed %v\n", rep.Instance, rep.Replayed)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "compile the pending migrations without touching the database")
	return cmd
}
