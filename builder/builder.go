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
Package builder implements the fluent API that produces an
ir.CompiledMigration from user-written migration code, resolving every
schema reference against a SchemasDefinition at build time rather than
deferring the check to apply or simulate time.
*/
package builder

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/merrors"
	"github.com/diister-dev/mongodbee/schema"
)

// ErrSchemaNotFound is wrapped by every SchemaNotFound build-time error.
var ErrSchemaNotFound = errors.New("schema not found")

// SchemasDefinition is the bundle a migration declares (spec.md §3):
// plain collections, multi-collections (one physical collection with
// heterogeneous _type-tagged documents), and multi-models (templates
// from which named instances are created).
type SchemasDefinition struct {
	Collections      map[string]schema.Schema
	MultiCollections map[string]map[string]schema.Schema
	MultiModels      map[string]map[string]schema.Schema
}

// Builder accumulates operations for a single migration and resolves
// schema references against Defs at call time.
type Builder struct {
	Defs SchemasDefinition

	ops     []ir.Operation
	compile *ir.CompiledMigration // cache, set by first Compile() call
}

// NewBuilder returns a Builder that resolves schema references against
// defs.
func NewBuilder(defs SchemasDefinition) *Builder {
	return &Builder{Defs: defs}
}

func (b *Builder) schemaNotFound(op, path string) error {
	return merrors.Wrap(merrors.KindSchema, "builder", op,
		fmt.Sprintf("schema not found: %s", path), ErrSchemaNotFound)
}

func (b *Builder) collectionSchema(op, name string) (schema.Schema, error) {
	s, ok := b.Defs.Collections[name]
	if !ok {
		return schema.Schema{}, b.schemaNotFound(op, "collections."+name)
	}
	return s, nil
}

func (b *Builder) multiCollectionSchema(op, name, docType string) (schema.Schema, error) {
	types, ok := b.Defs.MultiCollections[name]
	if !ok {
		return schema.Schema{}, b.schemaNotFound(op, "multiCollections."+name)
	}
	s, ok := types[docType]
	if !ok {
		return schema.Schema{}, b.schemaNotFound(op, "multiCollections."+name+"."+docType)
	}
	return s, nil
}

func (b *Builder) multiModelSchema(op, model, docType string) (schema.Schema, error) {
	types, ok := b.Defs.MultiModels[model]
	if !ok {
		return schema.Schema{}, b.schemaNotFound(op, "multiModels."+model)
	}
	s, ok := types[docType]
	if !ok {
		return schema.Schema{}, b.schemaNotFound(op, "multiModels."+model+"."+docType)
	}
	return s, nil
}

func (b *Builder) append(op ir.Operation) {
	b.ops = append(b.ops, op)
	b.compile = nil // invalidate cache
}

// CreateCollection creates a plain collection. Lossy: rollback cannot
// restore a dropped collection's contents.
func (b *Builder) CreateCollection(name string) error {
	s, err := b.collectionSchema("CreateCollection", name)
	if err != nil {
		return err
	}
	b.append(ir.Operation{Tag: ir.TagCreateCollection, Name: name, Schema: s, Lossy: true})
	return nil
}

// CreateMulticollection creates a multi-collection (heterogeneous
// _type-tagged documents in one physical collection). Schema is left
// zero-value: a multi-collection has one schema per _type, not one for
// the collection as a whole, so there is no single payload to carry
// here (see each type's own seed_multicollection_type/
// transform_multicollection_type operations).
func (b *Builder) CreateMulticollection(name string) error {
	types := b.Defs.MultiCollections[name]
	if types == nil {
		return b.schemaNotFound("CreateMulticollection", "multiCollections."+name)
	}
	b.append(ir.Operation{Tag: ir.TagCreateMulticollection, Name: name, Schema: schema.Schema{}, Lossy: true})
	return nil
}

// CreateMultimodelInstance creates a named instance of model. Carries
// no Schema for the same reason as CreateMulticollection: a model is a
// set of per-docType schemas, not one schema for the instance.
func (b *Builder) CreateMultimodelInstance(instance, model string) error {
	if _, ok := b.Defs.MultiModels[model]; !ok {
		return b.schemaNotFound("CreateMultimodelInstance", "multiModels."+model)
	}
	b.append(ir.Operation{Tag: ir.TagCreateMultimodelInstance, Instance: instance, Model: model, Lossy: true})
	return nil
}

// stampDocumentIDs returns a copy of documents with a generated _id on
// any document that omits one. Stamping happens once here, at build
// time, so the same ids a seed op inserts on apply are the ones its
// reverse deletes on rollback/simulation — stamping at execute time
// instead would mint fresh ids on every call and make a seed-only
// migration's reverse step unable to find what it just inserted.
func stampDocumentIDs(documents []bson.M) []bson.M {
	out := make([]bson.M, len(documents))
	for i, d := range documents {
		doc := make(bson.M, len(d)+1)
		for k, v := range d {
			doc[k] = v
		}
		if _, ok := doc["_id"]; !ok {
			doc["_id"] = primitive.NewObjectID()
		}
		out[i] = doc
	}
	return out
}

// SeedCollection inserts documents into a plain collection.
func (b *Builder) SeedCollection(name string, documents []bson.M) error {
	s, err := b.collectionSchema("SeedCollection", name)
	if err != nil {
		return err
	}
	b.append(ir.Operation{Tag: ir.TagSeedCollection, Name: name, Documents: stampDocumentIDs(documents), Schema: s})
	return nil
}

// SeedMulticollectionType inserts documents of docType into a
// multi-collection.
func (b *Builder) SeedMulticollectionType(name, docType string, documents []bson.M) error {
	s, err := b.multiCollectionSchema("SeedMulticollectionType", name, docType)
	if err != nil {
		return err
	}
	b.append(ir.Operation{Tag: ir.TagSeedMulticollectionType, Name: name, DocType: docType, Documents: stampDocumentIDs(documents), Schema: s})
	return nil
}

// SeedMultimodelInstanceType inserts documents of docType into a named
// instance.
func (b *Builder) SeedMultimodelInstanceType(instance, model, docType string, documents []bson.M) error {
	s, err := b.multiModelSchema("SeedMultimodelInstanceType", model, docType)
	if err != nil {
		return err
	}
	b.append(ir.Operation{Tag: ir.TagSeedMultimodelInstanceType, Instance: instance, Model: model, DocType: docType, Documents: stampDocumentIDs(documents), Schema: s})
	return nil
}

// SeedMultimodelInstancesType inserts documents of docType into every
// existing instance of model.
func (b *Builder) SeedMultimodelInstancesType(model, docType string, documents []bson.M) error {
	s, err := b.multiModelSchema("SeedMultimodelInstancesType", model, docType)
	if err != nil {
		return err
	}
	b.append(ir.Operation{Tag: ir.TagSeedMultimodelInstancesType, Model: model, DocType: docType, Documents: stampDocumentIDs(documents), Schema: s})
	return nil
}

// TransformOptions carries the optional lossy and irreversible flags a
// transform operation may declare (spec.md §3's `lossy?`,
// `irreversible?`); a parent schema is not set through it.
type TransformOptions struct {
	Lossy        bool
	Irreversible bool
}

// TransformCollection applies up/down to every document in a plain
// collection, moving it from its previous schema to name's current
// schema.
func (b *Builder) TransformCollection(name string, up, down ir.TransformFunc, opts TransformOptions) error {
	s, err := b.collectionSchema("TransformCollection", name)
	if err != nil {
		return err
	}
	b.append(ir.Operation{
		Tag: ir.TagTransformCollection, Name: name, Up: up, Down: down, Schema: s,
		Lossy: opts.Lossy, Irreversible: opts.Irreversible,
	})
	return nil
}

// TransformMulticollectionType applies up/down to every docType document
// in a multi-collection.
func (b *Builder) TransformMulticollectionType(name, docType string, up, down ir.TransformFunc, opts TransformOptions) error {
	s, err := b.multiCollectionSchema("TransformMulticollectionType", name, docType)
	if err != nil {
		return err
	}
	b.append(ir.Operation{
		Tag: ir.TagTransformMulticollectionType, Name: name, DocType: docType, Up: up, Down: down, Schema: s,
		Lossy: opts.Lossy, Irreversible: opts.Irreversible,
	})
	return nil
}

// TransformMultimodelInstanceType applies up/down to docType documents
// within one named instance.
func (b *Builder) TransformMultimodelInstanceType(instance, model, docType string, up, down ir.TransformFunc, opts TransformOptions) error {
	s, err := b.multiModelSchema("TransformMultimodelInstanceType", model, docType)
	if err != nil {
		return err
	}
	b.append(ir.Operation{
		Tag: ir.TagTransformMultimodelInstanceType, Instance: instance, Model: model, DocType: docType, Up: up, Down: down, Schema: s,
		Lossy: opts.Lossy, Irreversible: opts.Irreversible,
	})
	return nil
}

// TransformMultimodelInstancesType applies up/down to docType documents
// across every existing instance of model.
func (b *Builder) TransformMultimodelInstancesType(model, docType string, up, down ir.TransformFunc, opts TransformOptions) error {
	s, err := b.multiModelSchema("TransformMultimodelInstancesType", model, docType)
	if err != nil {
		return err
	}
	b.append(ir.Operation{
		Tag: ir.TagTransformMultimodelInstancesType, Model: model, DocType: docType, Up: up, Down: down, Schema: s,
		Lossy: opts.Lossy, Irreversible: opts.Irreversible,
	})
	return nil
}

// UpdateIndexes re-derives name's index set from its current schema.
// Lossy: dropped indexes are not restorable from schema alone.
func (b *Builder) UpdateIndexes(name string) error {
	s, err := b.collectionSchema("UpdateIndexes", name)
	if err != nil {
		return err
	}
	b.append(ir.Operation{Tag: ir.TagUpdateIndexes, Name: name, Schema: s, Lossy: true})
	return nil
}

// MarkAsMultimodel converts an existing plain collection into a
// multi-model instance of model, tagging its documents with _type.
func (b *Builder) MarkAsMultimodel(name, model string) error {
	candidates, ok := b.Defs.MultiModels[model]
	if !ok {
		return b.schemaNotFound("MarkAsMultimodel", "multiModels."+model)
	}
	b.append(ir.Operation{Tag: ir.TagMarkAsMultimodel, Name: name, Model: model, MarkCandidates: candidates})
	return nil
}

// Compile returns the CompiledMigration built so far, caching the
// result so repeated calls are idempotent and side-effect free.
func (b *Builder) Compile() *ir.CompiledMigration {
	if b.compile != nil {
		return b.compile
	}
	m := &ir.CompiledMigration{Operations: append([]ir.Operation(nil), b.ops...)}
	for _, op := range m.Operations {
		if op.Lossy {
			m.Lossy = true
		}
		if op.Irreversible {
			m.Irreversible = true
		}
	}
	b.compile = m
	return m
}
