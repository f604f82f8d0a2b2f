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

	"github.com/diister-dev/mongodbee/chainvalidate"
	"github.com/diister-dev/mongodbee/config"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the migration chain against the project's schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			c, err := loadChain(cfg)
			if err != nil {
				return err
			}

			report, err := chainvalidate.ValidateChain(c, schemaDefs)
			if err != nil {
				return err
			}
			for _, f := range report.Findings {
				fmt.Fprintln(cmd.OutOrStdout(), f.String())
			}
			if !report.OK() {
				return fmt.Errorf("mongodbee: chain validation found %d issue(s)", len(report.Findings))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "chain is valid")
			return nil
		},
	}
}
