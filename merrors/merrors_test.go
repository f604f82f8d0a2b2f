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

package merrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindSchema, "builder", "CreateCollection", "schema not found", cause)

	assert.Equal(t, "builder.CreateCollection: schema not found: boom", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorWithoutCause(t *testing.T) {
	err := New(KindChain, "chain", "LoadChain", "multiple roots")
	assert.Equal(t, "chain.LoadChain: multiple roots", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestIsUnwrapsChain(t *testing.T) {
	base := Runtime("applier", "Apply", "database timeout", errors.New("ctx deadline exceeded"))
	wrapped := fmt.Errorf("apply migration 2024_01_01_0000_abcd: %w", base)

	assert.True(t, Is(wrapped, KindRuntime))
	assert.False(t, Is(wrapped, KindSchema))
}

func TestConvenienceConstructors(t *testing.T) {
	cases := []struct {
		kind Kind
		err  *Error
	}{
		{KindConfig, Config("config", "Load", "bad yaml", nil)},
		{KindChain, Chain("chain", "LoadChain", "hole", nil)},
		{KindSchema, Schema("schema", "Equal", "mismatch", nil)},
		{KindSimulation, Simulation("simulate", "Apply", "forward step failed", nil)},
		{KindRuntime, Runtime("applier", "Apply", "db error", nil)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, tc.err.Kind)
	}
}
