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

package schema

import "fmt"

// MergeConstraints combines two Constraints sets declared for the same
// field, following spec.md §4.1's rule: min* takes the maximum (more
// restrictive), max* takes the minimum (more restrictive), pattern
// combines via lookahead concatenation, and every other field is
// last-write-wins (b wins over a).
//
// Field carries a single Constraints value, so no in-repo caller has
// two constraint sets on the same path to merge; this exists as public
// adapter surface for a consumer that assembles a Field from more than
// one source (e.g. a base schema plus a per-migration override) before
// calling New. combinePatterns's "(?=p1)(?=p2)" output is accordingly
// never fed through ToNativeValidator/Validate in this repo — Go's RE2
// engine (used by both) rejects lookahead, so a caller that does wire
// this in for a Validate-bound schema needs a non-RE2 regex path first.
func MergeConstraints(a, b Constraints) Constraints {
	out := b // last-write-wins base

	out.Min = maxPtr(a.Min, b.Min)
	out.Max = minPtr(a.Max, b.Max)
	out.MinLength = maxIntPtr(a.MinLength, b.MinLength)
	out.MaxLength = minIntPtr(a.MaxLength, b.MaxLength)

	out.Pattern = combinePatterns(a.Pattern, b.Pattern)

	// NonEmpty, Length, Optional, Nullable: last-write-wins, but an empty
	// zero value in b should not silently clear a value a declared for
	// Length (no "unset" sentinel exists for *int vs 0, so Length keeps
	// its pointer semantics to detect "not specified").
	out.Length = lastIntPtr(a.Length, b.Length)
	return out
}

func maxPtr(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a > *b:
		return a
	default:
		return b
	}
}

func minPtr(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a < *b:
		return a
	default:
		return b
	}
}

func maxIntPtr(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a > *b:
		return a
	default:
		return b
	}
}

func minIntPtr(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a < *b:
		return a
	default:
		return b
	}
}

func lastIntPtr(a, b *int) *int {
	if b != nil {
		return b
	}
	return a
}

// combinePatterns implements "pattern combines via lookahead" per
// spec.md §4.1: two patterns p1, p2 become "(?=p1)(?=p2)" so a string
// must satisfy both without either consuming input.
func combinePatterns(a, b string) string {
	switch {
	case a == "" && b == "":
		return ""
	case a == "":
		return b
	case b == "":
		return a
	default:
		return fmt.Sprintf("(?=%s)(?=%s)", a, b)
	}
}
