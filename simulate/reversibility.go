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
	"github.com/diister-dev/mongodbee/merrors"
)

// ReversibilityReport is the outcome of ProveReversible.
type ReversibilityReport struct {
	Reversible bool
	Diff       string // structural diff, populated on mismatch
	Skipped    bool   // true when m declares Irreversible: no proof attempted
}

// ProveReversible runs the reverse operations of m from stateAfter and
// asserts deep equality with preState, per spec.md §4.4. Migrations
// declaring Irreversible skip the proof by design (the down handler is
// not expected to restore original values).
func (sim *Simulator) ProveReversible(preState, stateAfter State, m *ir.CompiledMigration) (ReversibilityReport, error) {
	if m.Irreversible {
		return ReversibilityReport{Skipped: true}, nil
	}

	reverted, _, err := sim.Reverse(stateAfter, m.Operations)
	if err != nil {
		return ReversibilityReport{}, merrors.Wrap(merrors.KindSimulation, "simulate", "ProveReversible",
			"reverse dispatch failed", err)
	}

	ok, diff := preState.Equal(reverted)
	if ok {
		return ReversibilityReport{Reversible: true}, nil
	}
	return ReversibilityReport{Reversible: false, Diff: diff}, nil
}

// filteredTags identifies the tags whose forward effect is inherently
// irreversible to byte-for-byte restoration (create_* operations
// cannot recover prior contents at the simulator layer, matching
// applier semantics — see dispatch.go's reverseOne for create_*).
var filteredTags = map[ir.Tag]bool{
	ir.TagCreateCollection:         true,
	ir.TagCreateMulticollection:    true,
	ir.TagCreateMultimodelInstance: true,
}

// IsStructurallyLossy reports whether any operation in ops is one of
// the tags whose forward effect the reverse dispatch table cannot
// fully undo (independent of the migration's declared Lossy property).
func IsStructurallyLossy(ops []ir.Operation) bool {
	for _, op := range ops {
		if filteredTags[op.Tag] {
			return true
		}
	}
	return false
}
