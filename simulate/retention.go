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
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/schema"
)

// DefaultRetentionRatio is the default fraction of existing documents
// kept per collection between migrations during batch validation
// (spec.md §4.4).
const DefaultRetentionRatio = 0.5

// StateRetentionRatio returns a copy of state where each collection and
// multi-instance keeps a head+tail sample covering a fraction r of its
// original document count, and the remainder is backfilled with fresh
// mock documents synthesized from schemas (one per collection/instance
// name present in schemas). Sampling is deterministic (head/tail, not
// random) so repeated validation runs over the same chain are
// reproducible — see DESIGN.md's Open Question decision on this point.
func StateRetentionRatio(state State, r float64, schemas map[string]schema.Schema) (State, error) {
	if r < 0 || r > 1 {
		return State{}, fmt.Errorf("retention ratio %v out of [0,1]", r)
	}
	next, err := state.Clone()
	if err != nil {
		return State{}, err
	}
	for name, docs := range next.Collections {
		next.Collections[name] = retainAndBackfill(docs, r, schemas[name])
	}
	for name, docs := range next.MultiInstances {
		next.MultiInstances[name] = retainAndBackfill(docs, r, schemas[name])
	}
	return next, nil
}

func retainAndBackfill(docs []bson.M, r float64, s schema.Schema) []bson.M {
	total := len(docs)
	keep := int(float64(total) * r)
	if keep >= total {
		return docs
	}
	head := keep / 2
	tail := keep - head

	sampled := make([]bson.M, 0, total)
	sampled = append(sampled, docs[:head]...)
	if tail > 0 {
		sampled = append(sampled, docs[total-tail:]...)
	}

	missing := total - len(sampled)
	for i := 0; i < missing; i++ {
		sampled = append(sampled, mockDocument(s, i))
	}
	return sampled
}

// mockDocument synthesizes a document matching s's shape, varying
// values by seed so successive calls exercise boundary and typical
// values instead of producing identical documents.
func mockDocument(s schema.Schema, seed int) bson.M {
	if len(s.Root.Properties) == 0 {
		return bson.M{"_mock": seed}
	}
	doc := bson.M{}
	for name, f := range s.Root.Properties {
		doc[name] = mockValue(f, seed)
	}
	return doc
}

func mockValue(f schema.Field, seed int) any {
	switch f.Kind {
	case schema.KindString:
		return fmt.Sprintf("mock-%d", seed)
	case schema.KindNumber:
		if f.Constraints.Min != nil && seed%2 == 0 {
			return *f.Constraints.Min
		}
		return float64(seed)
	case schema.KindBoolean:
		return seed%2 == 0
	case schema.KindArray:
		if f.Items == nil {
			return []any{}
		}
		return []any{mockValue(*f.Items, seed)}
	case schema.KindObject:
		obj := bson.M{}
		for name, child := range f.Properties {
			obj[name] = mockValue(child, seed)
		}
		return obj
	case schema.KindEnum:
		if len(f.EnumVals) == 0 {
			return nil
		}
		return f.EnumVals[seed%len(f.EnumVals)]
	case schema.KindLiteral:
		return f.Literal
	default:
		return nil
	}
}
