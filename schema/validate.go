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

import (
	"fmt"
	"regexp"
	"time"
)

// Issue describes one validation failure at a specific dot path.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string { return fmt.Sprintf("%s: %s", i.Path, i.Message) }

// Validate checks doc against s and returns every issue found (not just
// the first), per Testable Property 6 and chainvalidate's re-validation
// requirement.
func Validate(doc map[string]any, s Schema) []Issue {
	var issues []Issue
	validateField("", doc, s.Root, &issues)
	return issues
}

// Ok reports whether doc has zero validation issues against s.
func Ok(doc map[string]any, s Schema) bool {
	return len(Validate(doc, s)) == 0
}

func validateField(path string, value any, f Field, issues *[]Issue) {
	if value == nil {
		if f.Constraints.Nullable || f.Kind == KindNull {
			return
		}
		if f.Constraints.Optional {
			return
		}
		*issues = append(*issues, Issue{path, "required value is missing"})
		return
	}

	switch f.Kind {
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			*issues = append(*issues, Issue{path, "expected an object"})
			return
		}
		for name, child := range f.Properties {
			childPath := name
			if path != "" {
				childPath = path + "." + name
			}
			v, present := obj[name]
			if !present {
				if !child.Constraints.Optional {
					*issues = append(*issues, Issue{childPath, "required field is missing"})
				}
				continue
			}
			validateField(childPath, v, child, issues)
		}
	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			*issues = append(*issues, Issue{path, "expected an array"})
			return
		}
		if f.Constraints.MinLength != nil && len(arr) < *f.Constraints.MinLength {
			*issues = append(*issues, Issue{path, fmt.Sprintf("array shorter than minLength=%d", *f.Constraints.MinLength)})
		}
		if f.Constraints.MaxLength != nil && len(arr) > *f.Constraints.MaxLength {
			*issues = append(*issues, Issue{path, fmt.Sprintf("array longer than maxLength=%d", *f.Constraints.MaxLength)})
		}
		if f.Constraints.NonEmpty && len(arr) == 0 {
			*issues = append(*issues, Issue{path, "array must not be empty"})
		}
		if f.Items != nil {
			for i, elem := range arr {
				validateField(fmt.Sprintf("%s[%d]", path, i), elem, *f.Items, issues)
			}
		}
	case KindRecord:
		obj, ok := value.(map[string]any)
		if !ok {
			*issues = append(*issues, Issue{path, "expected a record"})
			return
		}
		var keyRe *regexp.Regexp
		if f.KeyPattern != "" {
			keyRe = regexp.MustCompile(f.KeyPattern)
		}
		for key, v := range obj {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			if keyRe != nil && !keyRe.MatchString(key) {
				*issues = append(*issues, Issue{childPath, fmt.Sprintf("key does not match pattern %q", f.KeyPattern)})
				continue
			}
			if f.ValueType != nil {
				validateField(childPath, v, *f.ValueType, issues)
			}
		}
	case KindUnion:
		for _, opt := range f.Options {
			var sub []Issue
			validateField(path, value, opt, &sub)
			if len(sub) == 0 {
				return
			}
		}
		*issues = append(*issues, Issue{path, "value does not match any union option"})
	case KindLiteral:
		if !equalLiteral(value, f.Literal) {
			*issues = append(*issues, Issue{path, fmt.Sprintf("expected literal %v", f.Literal)})
		}
	case KindEnum:
		s, ok := value.(string)
		if !ok || !contains(f.EnumVals, s) {
			*issues = append(*issues, Issue{path, fmt.Sprintf("value is not one of %v", f.EnumVals)})
		}
	case KindString:
		validateString(path, value, f, issues)
	case KindNumber:
		validateNumber(path, value, f, issues)
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			*issues = append(*issues, Issue{path, "expected a boolean"})
		}
	case KindDate:
		switch value.(type) {
		case time.Time:
		default:
			*issues = append(*issues, Issue{path, "expected a date"})
		}
	case KindNull:
		if value != nil {
			*issues = append(*issues, Issue{path, "expected null"})
		}
	default:
		*issues = append(*issues, Issue{path, fmt.Sprintf("unknown field kind %q", f.Kind)})
	}
}

func validateString(path string, value any, f Field, issues *[]Issue) {
	s, ok := value.(string)
	if !ok {
		*issues = append(*issues, Issue{path, "expected a string"})
		return
	}
	if f.Constraints.NonEmpty && s == "" {
		*issues = append(*issues, Issue{path, "string must not be empty"})
	}
	if f.Constraints.MinLength != nil && len(s) < *f.Constraints.MinLength {
		*issues = append(*issues, Issue{path, fmt.Sprintf("string shorter than minLength=%d", *f.Constraints.MinLength)})
	}
	if f.Constraints.MaxLength != nil && len(s) > *f.Constraints.MaxLength {
		*issues = append(*issues, Issue{path, fmt.Sprintf("string longer than maxLength=%d", *f.Constraints.MaxLength)})
	}
	if f.Constraints.Length != nil && len(s) != *f.Constraints.Length {
		*issues = append(*issues, Issue{path, fmt.Sprintf("string length must equal %d", *f.Constraints.Length)})
	}
	if f.Constraints.Pattern != "" {
		re, err := regexp.Compile(f.Constraints.Pattern)
		if err != nil {
			*issues = append(*issues, Issue{path, fmt.Sprintf("invalid pattern %q: %v", f.Constraints.Pattern, err)})
		} else if !re.MatchString(s) {
			*issues = append(*issues, Issue{path, fmt.Sprintf("does not match pattern %q", f.Constraints.Pattern)})
		}
	}
}

func validateNumber(path string, value any, f Field, issues *[]Issue) {
	n, ok := asFloat(value)
	if !ok {
		*issues = append(*issues, Issue{path, "expected a number"})
		return
	}
	if f.Constraints.Min != nil && n < *f.Constraints.Min {
		*issues = append(*issues, Issue{path, fmt.Sprintf("value below minimum %v", *f.Constraints.Min)})
	}
	if f.Constraints.Max != nil && n > *f.Constraints.Max {
		*issues = append(*issues, Issue{path, fmt.Sprintf("value above maximum %v", *f.Constraints.Max)})
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func equalLiteral(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func contains(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}
