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
Package ir defines the operation intermediate representation (spec.md
§3): the tagged set of operations a migration compiles down to. Go has
no sealed union type, so Operation is a single struct carrying a Tag
enum plus every field any tag might need; handlers (simulate, applier)
switch on Tag and only read the fields that tag declares.
*/
package ir

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/schema"
)

// Tag identifies the kind of operation an Operation value carries.
type Tag string

const (
	TagCreateCollection                 Tag = "create_collection"
	TagCreateMulticollection            Tag = "create_multicollection"
	TagCreateMultimodelInstance         Tag = "create_multimodel_instance"
	TagSeedCollection                   Tag = "seed_collection"
	TagSeedMulticollectionType          Tag = "seed_multicollection_type"
	TagSeedMultimodelInstanceType       Tag = "seed_multimodel_instance_type"
	TagSeedMultimodelInstancesType      Tag = "seed_multimodel_instances_type"
	TagTransformCollection              Tag = "transform_collection"
	TagTransformMulticollectionType     Tag = "transform_multicollection_type"
	TagTransformMultimodelInstanceType  Tag = "transform_multimodel_instance_type"
	TagTransformMultimodelInstancesType Tag = "transform_multimodel_instances_type"
	TagUpdateIndexes                    Tag = "update_indexes"
	TagMarkAsMultimodel                 Tag = "mark_as_multimodel"
)

// AllTags lists every known tag, used by the exhaustiveness test and by
// dispatch tables that want to assert full coverage at init time.
var AllTags = []Tag{
	TagCreateCollection,
	TagCreateMulticollection,
	TagCreateMultimodelInstance,
	TagSeedCollection,
	TagSeedMulticollectionType,
	TagSeedMultimodelInstanceType,
	TagSeedMultimodelInstancesType,
	TagTransformCollection,
	TagTransformMulticollectionType,
	TagTransformMultimodelInstanceType,
	TagTransformMultimodelInstancesType,
	TagUpdateIndexes,
	TagMarkAsMultimodel,
}

// TransformFunc is one direction (up or down) of a transform operation:
// given a document it returns the transformed document or an error.
type TransformFunc func(doc bson.M) (bson.M, error)

// Operation is one entry in a CompiledMigration's operation list. Only
// the fields relevant to Tag are populated; the rest are zero values.
type Operation struct {
	Tag Tag

	// Addressing. Not every tag uses every one of these.
	Name     string // collection name (create_collection, seed_collection, update_indexes, mark_as_multimodel, transform_collection)
	Model    string // multi-model name (create_multimodel_instance, mark_as_multimodel, *_multimodel_instance(s)_type)
	Instance string // named instance id (create_multimodel_instance, seed/transform_multimodel_instance_type)
	DocType  string // discriminator value for multi-collection / multi-model document types

	// Payloads.
	Schema       schema.Schema  // the schema this operation's target must satisfy going forward
	ParentSchema *schema.Schema // optional: the schema the target satisfied before this operation
	Documents    []bson.M       // seed_* operations
	Up           TransformFunc
	Down         TransformFunc

	// Properties (spec.md §4.2).
	Lossy        bool
	Irreversible bool

	// MarkCandidates holds the declared document types for
	// mark_as_multimodel's target model, used by the simulator and
	// applier to disambiguate which _type each existing document
	// belongs to.
	MarkCandidates map[string]schema.Schema
}

// CompiledMigration is the output of the builder: an ordered operation
// list plus the migration's declared and derived properties.
type CompiledMigration struct {
	ID           string
	ParentID     string // "" for the root migration
	Slug         string
	Operations   []Operation
	Lossy        bool // true if any operation is lossy
	Irreversible bool // true if any operation is irreversible
}

// IsReversible reports whether m is not flagged Irreversible, i.e. no
// operation in it was declared irreversible. It does not inspect the
// operations' Down handlers.
func (m *CompiledMigration) IsReversible() bool {
	return !m.Irreversible
}
