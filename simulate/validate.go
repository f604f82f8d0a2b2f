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

package simulate

import (
	"github.com/diister-dev/mongodbee/ir"
)

// ValidationResult is the outcome of running a migration's operations
// through the forward dispatch table.
type ValidationResult struct {
	StateAfter State
	Warnings   []Warning
	Err        error
}

// ValidateMigration runs the forward step over m's operations. If
// incomingState is nil, the simulator runs in cold mode: the caller is
// expected to have already folded every ancestor migration's effects in
// (ancestors are not re-derived here — Simulator has no notion of a
// chain, only of operations; chain-wide cold revalidation is the
// responsibility of the caller, which re-invokes ValidateMigration once
// per ancestor in order). Callers doing sequential validation should
// instead pass the previous call's StateAfter (warm mode) for O(n)
// total cost instead of O(n^2).
func (sim *Simulator) ValidateMigration(incomingState *State, m *ir.CompiledMigration) ValidationResult {
	var state State
	if incomingState != nil {
		state = *incomingState
	} else {
		state = NewState()
	}
	next, warnings, err := sim.Apply(state, m.Operations)
	return ValidationResult{StateAfter: next, Warnings: warnings, Err: err}
}
