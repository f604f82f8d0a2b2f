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
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/merrors"
	"github.com/diister-dev/mongodbee/schema"
)

// Warning is a non-fatal observation surfaced to the caller (e.g. a
// lossy or irreversible property) rather than an execution failure.
type Warning struct {
	Operation ir.Tag
	Message   string
}

// Options tunes forward-step strictness.
type Options struct {
	// Strict fails create_collection against an existing name and
	// propagates document-level transform failures. NewSimulator sets
	// it to true; the zero value Simulator{} is non-strict.
	Strict bool
}

// Simulator is the bidirectional in-memory interpreter.
type Simulator struct {
	Options Options
}

// NewSimulator returns a Simulator in strict mode.
func NewSimulator() *Simulator {
	return &Simulator{Options: Options{Strict: true}}
}

// Apply runs the forward dispatch table over ops starting from state,
// returning the resulting state and any warnings. It fails fast on the
// first operation error.
func (sim *Simulator) Apply(state State, ops []ir.Operation) (State, []Warning, error) {
	next, err := state.Clone()
	if err != nil {
		return State{}, nil, err
	}
	var warnings []Warning
	for _, op := range ops {
		w, err := sim.applyOne(&next, op)
		if err != nil {
			return State{}, warnings, merrors.Wrap(merrors.KindSimulation, "simulate", "Apply",
				fmt.Sprintf("operation %s failed", op.Tag), err)
		}
		warnings = append(warnings, w...)
	}
	return next, warnings, nil
}

// Reverse runs the reverse dispatch table over ops in reverse order.
func (sim *Simulator) Reverse(state State, ops []ir.Operation) (State, []Warning, error) {
	next, err := state.Clone()
	if err != nil {
		return State{}, nil, err
	}
	var warnings []Warning
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		w, err := sim.reverseOne(&next, op)
		if err != nil {
			return State{}, warnings, merrors.Wrap(merrors.KindSimulation, "simulate", "Reverse",
				fmt.Sprintf("reverse of operation %s failed", op.Tag), err)
		}
		warnings = append(warnings, w...)
	}
	return next, warnings, nil
}

func (sim *Simulator) applyOne(s *State, op ir.Operation) ([]Warning, error) {
	switch op.Tag {
	case ir.TagCreateCollection:
		if _, exists := s.Collections[op.Name]; exists && sim.Options.Strict {
			return nil, fmt.Errorf("collection %q already exists", op.Name)
		}
		if _, exists := s.Collections[op.Name]; !exists {
			s.Collections[op.Name] = []bson.M{}
		}
		return nil, nil

	case ir.TagCreateMulticollection:
		if _, exists := s.Collections[op.Name]; !exists {
			s.Collections[op.Name] = []bson.M{}
		}
		return nil, nil

	case ir.TagCreateMultimodelInstance:
		if _, exists := s.MultiInstances[op.Instance]; exists && sim.Options.Strict {
			return nil, fmt.Errorf("instance %q already exists", op.Instance)
		}
		if _, exists := s.MultiInstances[op.Instance]; !exists {
			s.MultiInstances[op.Instance] = []bson.M{}
		}
		return nil, nil

	case ir.TagSeedCollection:
		return nil, seedInto(s.Collections, op.Name, op.Documents, "", op.Schema, sim.Options.Strict)

	case ir.TagSeedMulticollectionType:
		return nil, seedInto(s.Collections, op.Name, op.Documents, op.DocType, op.Schema, sim.Options.Strict)

	case ir.TagSeedMultimodelInstanceType:
		return nil, seedInto(s.MultiInstances, op.Instance, op.Documents, op.DocType, op.Schema, sim.Options.Strict)

	case ir.TagSeedMultimodelInstancesType:
		for instance := range s.MultiInstances {
			if err := seedInto(s.MultiInstances, instance, op.Documents, op.DocType, op.Schema, sim.Options.Strict); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case ir.TagTransformCollection:
		return nil, transformInPlace(s.Collections, op.Name, "", op.Up, op.Schema, sim.Options.Strict)

	case ir.TagTransformMulticollectionType:
		return nil, transformInPlace(s.Collections, op.Name, op.DocType, op.Up, op.Schema, sim.Options.Strict)

	case ir.TagTransformMultimodelInstanceType:
		return nil, transformInPlace(s.MultiInstances, op.Instance, op.DocType, op.Up, op.Schema, sim.Options.Strict)

	case ir.TagTransformMultimodelInstancesType:
		for instance := range s.MultiInstances {
			if err := transformInPlace(s.MultiInstances, instance, op.DocType, op.Up, op.Schema, sim.Options.Strict); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case ir.TagUpdateIndexes:
		return nil, nil // no data-shape effect in simulation

	case ir.TagMarkAsMultimodel:
		return markAsMultimodel(s, op)

	default:
		return nil, fmt.Errorf("unknown operation tag %q", op.Tag)
	}
}

func (sim *Simulator) reverseOne(s *State, op ir.Operation) ([]Warning, error) {
	switch op.Tag {
	case ir.TagCreateCollection, ir.TagCreateMulticollection:
		delete(s.Collections, op.Name)
		return []Warning{{op.Tag, fmt.Sprintf("cannot restore contents of %q that existed before creation", op.Name)}}, nil

	case ir.TagCreateMultimodelInstance:
		delete(s.MultiInstances, op.Instance)
		return []Warning{{op.Tag, fmt.Sprintf("cannot restore contents of instance %q that existed before creation", op.Instance)}}, nil

	case ir.TagSeedCollection:
		removeSeeded(s.Collections, op.Name, op.Documents, "")
		return nil, nil

	case ir.TagSeedMulticollectionType:
		removeSeeded(s.Collections, op.Name, op.Documents, op.DocType)
		return nil, nil

	case ir.TagSeedMultimodelInstanceType:
		removeSeeded(s.MultiInstances, op.Instance, op.Documents, op.DocType)
		return nil, nil

	case ir.TagSeedMultimodelInstancesType:
		for instance := range s.MultiInstances {
			removeSeeded(s.MultiInstances, instance, op.Documents, op.DocType)
		}
		return nil, nil

	case ir.TagTransformCollection:
		return nil, transformInPlace(s.Collections, op.Name, "", op.Down, schema.Schema{}, false)

	case ir.TagTransformMulticollectionType:
		return nil, transformInPlace(s.Collections, op.Name, op.DocType, op.Down, schema.Schema{}, false)

	case ir.TagTransformMultimodelInstanceType:
		return nil, transformInPlace(s.MultiInstances, op.Instance, op.DocType, op.Down, schema.Schema{}, false)

	case ir.TagTransformMultimodelInstancesType:
		for instance := range s.MultiInstances {
			if err := transformInPlace(s.MultiInstances, instance, op.DocType, op.Down, schema.Schema{}, false); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case ir.TagUpdateIndexes:
		return nil, nil

	case ir.TagMarkAsMultimodel:
		docs := s.MultiInstances[op.Name]
		delete(s.MultiInstances, op.Name)
		s.Collections[op.Name] = docs
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown operation tag %q", op.Tag)
	}
}

func seedInto(bucket map[string][]bson.M, key string, documents []bson.M, docType string, s schema.Schema, strict bool) error {
	docs := bucket[key]
	for _, d := range documents {
		doc := cloneDoc(d)
		if docType != "" {
			doc["_type"] = docType
		}
		if _, hasID := doc["_id"]; !hasID {
			doc["_id"] = primitive.NewObjectID().Hex()
		}
		if strict && len(s.Root.Properties) > 0 {
			if issues := schema.Validate(doc, s); len(issues) > 0 {
				return fmt.Errorf("seed document fails schema validation: %v", issues)
			}
		}
		docs = append(docs, doc)
	}
	bucket[key] = docs
	return nil
}

func transformInPlace(bucket map[string][]bson.M, key, docType string, up ir.TransformFunc, s schema.Schema, strict bool) error {
	docs := bucket[key]
	if up == nil {
		return nil
	}
	for i, d := range docs {
		if docType != "" {
			if t, _ := d["_type"].(string); t != docType {
				continue
			}
		}
		transformed, err := up(cloneDoc(d))
		if err != nil {
			if strict {
				return fmt.Errorf("transform failed for document %v: %w", d["_id"], err)
			}
			continue
		}
		if strict && len(s.Root.Properties) > 0 {
			if issues := schema.Validate(transformed, s); len(issues) > 0 {
				return fmt.Errorf("transformed document fails schema validation: %v", issues)
			}
		}
		docs[i] = transformed
	}
	bucket[key] = docs
	return nil
}

func removeSeeded(bucket map[string][]bson.M, key string, seeded []bson.M, docType string) {
	ids := map[any]bool{}
	for _, d := range seeded {
		if id, ok := d["_id"]; ok {
			ids[seedIDKey(id)] = true
		}
	}
	docs := bucket[key]
	kept := docs[:0]
	for _, d := range docs {
		if docType != "" {
			if t, _ := d["_type"].(string); t != docType {
				kept = append(kept, d)
				continue
			}
		}
		if id, ok := d["_id"]; ok && ids[seedIDKey(id)] {
			continue
		}
		kept = append(kept, d)
	}
	bucket[key] = kept
}

// seedIDKey renders an _id as its hex form for ObjectIDs, which is what
// a State.Clone JSON round trip turns them into.
func seedIDKey(id any) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", id)
}

// markAsMultimodel moves collections[name] into multiInstances[name],
// tagging every existing document with _type by validating it against
// each candidate schema in model's declared types. A document matching
// more than one type, or none, is an error.
func markAsMultimodel(s *State, op ir.Operation) ([]Warning, error) {
	docs, ok := s.Collections[op.Name]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", op.Name)
	}
	delete(s.Collections, op.Name)

	candidates := op.MarkCandidates
	out := make([]bson.M, len(docs))
	for i, d := range docs {
		var matchedType string
		matches := 0
		for docType, candidateSchema := range candidates {
			if len(schema.Validate(d, candidateSchema)) == 0 {
				matchedType = docType
				matches++
			}
		}
		if matches != 1 {
			return nil, fmt.Errorf("document %v matches %d candidate types for model %q (expected exactly 1)", d["_id"], matches, op.Model)
		}
		doc := cloneDoc(d)
		doc["_type"] = matchedType
		out[i] = doc
	}
	s.MultiInstances[op.Name] = out
	return nil, nil
}

func cloneDoc(d bson.M) bson.M {
	out := make(bson.M, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
