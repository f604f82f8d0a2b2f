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

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current status of every migration in the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			showHistory, _ := cmd.Flags().GetBool("history")
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

			for _, m := range c.Migrations {
				status, err := hist.CurrentStatusOf(m.ID)
				if err != nil {
					return err
				}
				if verbose {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-40s  %s  parent=%s\n", m.ID, m.Name, status, m.Parent)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-40s  %s\n", m.ID, m.Name, status)
				}

				if showHistory {
					records, err := hist.HistoryOf(m.ID)
					if err != nil {
						return err
					}
					for _, r := range records {
						fmt.Fprintf(cmd.OutOrStdout(), "    %s %s at %s\n", r.Operation, r.Status, r.ExecutedAt.Format("2006-01-02T15:04:05Z07:00"))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("verbose", false, "include parent IDs")
	cmd.Flags().Bool("history", false, "also print each migration's full history")
	return cmd
}
