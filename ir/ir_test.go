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

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// dispatchStub mimics the shape of simulate/applier's dispatch tables:
// a map keyed by Tag. Any new Tag added to AllTags without a matching
// handler here would otherwise go unnoticed until runtime.
func dispatchStub() map[Tag]func(Operation) error {
	return map[Tag]func(Operation) error{
		TagCreateCollection:                 func(Operation) error { return nil },
		TagCreateMulticollection:            func(Operation) error { return nil },
		TagCreateMultimodelInstance:         func(Operation) error { return nil },
		TagSeedCollection:                   func(Operation) error { return nil },
		TagSeedMulticollectionType:          func(Operation) error { return nil },
		TagSeedMultimodelInstanceType:       func(Operation) error { return nil },
		TagSeedMultimodelInstancesType:      func(Operation) error { return nil },
		TagTransformCollection:              func(Operation) error { return nil },
		TagTransformMulticollectionType:     func(Operation) error { return nil },
		TagTransformMultimodelInstanceType:  func(Operation) error { return nil },
		TagTransformMultimodelInstancesType: func(Operation) error { return nil },
		TagUpdateIndexes:                    func(Operation) error { return nil },
		TagMarkAsMultimodel:                 func(Operation) error { return nil },
	}
}

func TestAllTagsHaveDispatchEntries(t *testing.T) {
	dispatch := dispatchStub()
	for _, tag := range AllTags {
		_, ok := dispatch[tag]
		assert.Truef(t, ok, "tag %q has no dispatch entry", tag)
	}
	assert.Equal(t, len(AllTags), len(dispatch), "AllTags and dispatch table must be the same size (no stale entries)")
}

func TestIsReversibleDefaultsTrue(t *testing.T) {
	m := &CompiledMigration{Operations: []Operation{{Tag: TagCreateCollection}}}
	assert.True(t, m.IsReversible())
}

func TestIsReversibleFalseWhenIrreversible(t *testing.T) {
	m := &CompiledMigration{Irreversible: true}
	assert.False(t, m.IsReversible())
}
