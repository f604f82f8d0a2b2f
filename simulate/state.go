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

/*
Package simulate implements the in-memory bidirectional interpreter
(spec.md §4.4): a forward dispatch table that applies ir.Operation
values against a synthetic database State, a reverse dispatch table
that undoes them, and a reversibility proof that runs both and compares
the result.
*/
package simulate

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/merrors"
)

// State is the simulated database: plain collections and multi-model
// instances, each a list of documents.
type State struct {
	Collections    map[string][]bson.M
	MultiInstances map[string][]bson.M
}

// NewState returns an empty State (the "cold" starting point).
func NewState() State {
	return State{
		Collections:    map[string][]bson.M{},
		MultiInstances: map[string][]bson.M{},
	}
}

// Clone deep-copies s through a JSON marshal/unmarshal round trip,
// matching the requirement that simulated documents be serializable
// (spec.md §9) and preventing aliasing between steps.
func (s State) Clone() (State, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return State{}, merrors.Wrap(merrors.KindSimulation, "simulate", "Clone", "state is not serializable", err)
	}
	var out State
	if err := json.Unmarshal(raw, &out); err != nil {
		return State{}, merrors.Wrap(merrors.KindSimulation, "simulate", "Clone", "failed to decode cloned state", err)
	}
	if out.Collections == nil {
		out.Collections = map[string][]bson.M{}
	}
	if out.MultiInstances == nil {
		out.MultiInstances = map[string][]bson.M{}
	}
	return out, nil
}

// Equal reports whether s and other hold the same collections, the
// same multi-instances, and document-for-document identical contents,
// modulo ordering within a collection (spec.md Testable Property 4).
func (s State) Equal(other State) (bool, string) {
	if diff := compareNamed(s.Collections, other.Collections, "collections"); diff != "" {
		return false, diff
	}
	if diff := compareNamed(s.MultiInstances, other.MultiInstances, "multiInstances"); diff != "" {
		return false, diff
	}
	return true, ""
}

func compareNamed(a, b map[string][]bson.M, label string) string {
	if len(a) != len(b) {
		return fmt.Sprintf("%s: %d vs %d collections", label, len(a), len(b))
	}
	for name, docsA := range a {
		docsB, ok := b[name]
		if !ok {
			return fmt.Sprintf("%s.%s: missing in second state", label, name)
		}
		if len(docsA) != len(docsB) {
			return fmt.Sprintf("%s.%s: %d vs %d documents", label, name, len(docsA), len(docsB))
		}
		if !sameDocSet(docsA, docsB) {
			return fmt.Sprintf("%s.%s: document contents differ", label, name)
		}
	}
	return ""
}

// sameDocSet compares two document slices as sets keyed by their
// marshaled form, ignoring order.
func sameDocSet(a, b []bson.M) bool {
	count := map[string]int{}
	for _, d := range a {
		raw, _ := json.Marshal(d)
		count[string(raw)]++
	}
	for _, d := range b {
		raw, _ := json.Marshal(d)
		count[string(raw)]--
	}
	for _, c := range count {
		if c != 0 {
			return false
		}
	}
	return true
}
