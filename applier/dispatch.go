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

package applier

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diister-dev/mongodbee/dbapi"
	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/schema"
)

// dispatchForward executes op's effect against the real database.
// Handlers are idempotent-by-intent: creating an existing collection
// is a no-op (dbapi.Database.CreateCollection already swallows
// NamespaceExists), seeding duplicates is rejected by _id uniqueness
// at the database layer and is not specially handled here.
func (a *Applier) dispatchForward(ctx context.Context, op ir.Operation) error {
	switch op.Tag {
	case ir.TagCreateCollection, ir.TagCreateMulticollection:
		return a.DB.CreateCollection(ctx, op.Name, nil)

	case ir.TagCreateMultimodelInstance:
		return a.DB.CreateCollection(ctx, op.Instance, nil)

	case ir.TagSeedCollection:
		return a.DB.InsertMany(ctx, op.Name, stampIDs(op.Documents, ""))

	case ir.TagSeedMulticollectionType:
		return a.DB.InsertMany(ctx, op.Name, stampIDs(op.Documents, op.DocType))

	case ir.TagSeedMultimodelInstanceType:
		return a.DB.InsertMany(ctx, op.Instance, stampIDs(op.Documents, op.DocType))

	case ir.TagSeedMultimodelInstancesType:
		instances, err := instancesOfModel(ctx, a.DB)
		if err != nil {
			return err
		}
		for _, instance := range instances {
			if err := a.DB.InsertMany(ctx, instance, stampIDs(op.Documents, op.DocType)); err != nil {
				return err
			}
		}
		return nil

	case ir.TagTransformCollection:
		return a.transformCollection(ctx, op.Name, "", op.Up)

	case ir.TagTransformMulticollectionType:
		return a.transformCollection(ctx, op.Name, op.DocType, op.Up)

	case ir.TagTransformMultimodelInstanceType:
		return a.transformCollection(ctx, op.Instance, op.DocType, op.Up)

	case ir.TagTransformMultimodelInstancesType:
		instances, err := instancesOfModel(ctx, a.DB)
		if err != nil {
			return err
		}
		for _, instance := range instances {
			if err := a.transformCollection(ctx, instance, op.DocType, op.Up); err != nil {
				return err
			}
		}
		return nil

	case ir.TagUpdateIndexes:
		return nil // handled by syncIndexes after the operation loop

	case ir.TagMarkAsMultimodel:
		return a.markAsMultimodel(ctx, op)

	default:
		return fmt.Errorf("unknown operation tag %q", op.Tag)
	}
}

func stampIDs(documents []bson.M, docType string) []bson.M {
	out := make([]bson.M, len(documents))
	for i, d := range documents {
		doc := make(bson.M, len(d)+2)
		for k, v := range d {
			doc[k] = v
		}
		if docType != "" {
			doc["_type"] = docType
		}
		if _, ok := doc["_id"]; !ok {
			doc["_id"] = primitive.NewObjectID()
		}
		out[i] = doc
	}
	return out
}

// instancesOfModel enumerates the physical collections currently
// carrying a multi-model instance sentinel. The applier does not
// filter by model name here: builder-time validation (schema
// resolution against a declared model) guarantees *_multimodel_instances_type
// operations only ever run within migrations already scoped to one
// model's documents via docType.
func instancesOfModel(ctx context.Context, db dbapi.Database) ([]string, error) {
	return db.ListCollections(ctx)
}

func (a *Applier) transformCollection(ctx context.Context, collection, docType string, up ir.TransformFunc) error {
	if up == nil {
		return nil
	}
	filter := bson.M{}
	if docType != "" {
		filter["_type"] = docType
	}
	docs, err := a.DB.Find(ctx, collection, filter)
	if err != nil {
		return err
	}
	for _, d := range docs {
		transformed, err := up(d)
		if err != nil {
			return fmt.Errorf("transform failed for document %v: %w", d["_id"], err)
		}
		if _, err := a.DB.UpdateMany(ctx, collection, bson.M{"_id": d["_id"]}, bson.M{"$set": transformed}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) markAsMultimodel(ctx context.Context, op ir.Operation) error {
	docs, err := a.DB.Find(ctx, op.Name, bson.M{})
	if err != nil {
		return err
	}
	for _, d := range docs {
		matchedType, matches := "", 0
		for docType, candidateSchema := range op.MarkCandidates {
			if len(candidateSchema.Root.Properties) == 0 {
				continue
			}
			if len(schema.Validate(d, candidateSchema)) == 0 {
				matchedType = docType
				matches++
			}
		}
		if matches != 1 {
			return fmt.Errorf("document %v matches %d candidate types for model %q (expected exactly 1)", d["_id"], matches, op.Model)
		}
		if _, err := a.DB.UpdateMany(ctx, op.Name, bson.M{"_id": d["_id"]}, bson.M{"$set": bson.M{"_type": matchedType}}); err != nil {
			return err
		}
	}
	return nil
}
