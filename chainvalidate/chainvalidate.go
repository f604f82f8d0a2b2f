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
Package chainvalidate implements the cross-migration schema-change
detection described in spec.md §4.5: for every adjacent pair of
migrations in a chain, every schema change must be accompanied by the
matching transform operation, removed document types must be explicit,
and every transformed document must validate against its declared leaf
schema after simulation.
*/
package chainvalidate

import (
	"fmt"

	"github.com/diister-dev/mongodbee/builder"
	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/schema"
	"github.com/diister-dev/mongodbee/simulate"
)

// Finding is one validation failure, carrying a remediation hint.
type Finding struct {
	MigrationID string
	Message     string
	Diff        schema.Diff
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.MigrationID, f.Message)
}

// ChainReport is the outcome of ValidateChain.
type ChainReport struct {
	Findings []Finding
}

// OK reports whether the chain has zero findings.
func (r ChainReport) OK() bool { return len(r.Findings) == 0 }

// ValidateChain runs all four checks in spec.md §4.5 across c's adjacent
// migration pairs, plus the tail check against projectSchemas.
func ValidateChain(c *chain.Chain, projectSchemas builder.SchemasDefinition) (ChainReport, error) {
	var report ChainReport
	sim := simulate.NewSimulator()
	state := simulate.NewState()

	// instanceModel tracks which declared model each physical instance
	// belongs to, so documents accumulating in state.MultiInstances can
	// be revalidated against the right multiModels schema even though
	// State itself only keys instances by name.
	instanceModel := map[string]string{}

	for i, m := range c.Migrations {
		compiled, err := m.Compile()
		if err != nil {
			return report, err
		}

		if i > 0 {
			prev := c.Migrations[i-1]
			findings := checkAdjacentPair(prev.Defs, m.Defs, compiled)
			report.Findings = append(report.Findings, findings...)
		}

		for _, op := range compiled.Operations {
			switch op.Tag {
			case ir.TagCreateMultimodelInstance:
				instanceModel[op.Instance] = op.Model
			case ir.TagMarkAsMultimodel:
				instanceModel[op.Name] = op.Model
			}
		}

		next, _, err := sim.Apply(state, compiled.Operations)
		if err != nil {
			report.Findings = append(report.Findings, Finding{
				MigrationID: m.ID,
				Message:     fmt.Sprintf("simulation failed: %v", err),
			})
			continue
		}
		state = next

		report.Findings = append(report.Findings, revalidateDocuments(m.ID, state, m.Defs, instanceModel)...)
	}

	if len(c.Migrations) > 0 {
		leaf := c.Migrations[len(c.Migrations)-1]
		report.Findings = append(report.Findings, checkTail(leaf.ID, leaf.Defs, projectSchemas)...)
	}

	return report, nil
}

func checkAdjacentPair(prev, curr builder.SchemasDefinition, compiled *ir.CompiledMigration) []Finding {
	var findings []Finding

	for name, currSchema := range curr.Collections {
		prevSchema, existed := prev.Collections[name]
		if !existed || schema.Equal(prevSchema, currSchema) {
			continue
		}
		if !hasOp(compiled, ir.TagTransformCollection, name, "") {
			d := schema.DiffSchemas(prevSchema, currSchema)
			findings = append(findings, Finding{
				MigrationID: compiled.ID,
				Message:     fmt.Sprintf("collection %q changed schema without a transform_collection operation", name),
				Diff:        d,
			})
		}
	}

	for name, currTypes := range curr.MultiCollections {
		prevTypes := prev.MultiCollections[name]
		for docType, currSchema := range currTypes {
			prevSchema, existed := prevTypes[docType]
			if !existed || schema.Equal(prevSchema, currSchema) {
				continue
			}
			if !hasOp(compiled, ir.TagTransformMulticollectionType, name, docType) {
				d := schema.DiffSchemas(prevSchema, currSchema)
				findings = append(findings, Finding{
					MigrationID: compiled.ID,
					Message:     fmt.Sprintf("multi-collection %q type %q changed schema without a transform_multicollection_type operation", name, docType),
					Diff:        d,
				})
			}
		}
		for docType := range prevTypes {
			if _, stillPresent := currTypes[docType]; !stillPresent {
				findings = append(findings, Finding{
					MigrationID: compiled.ID,
					Message:     fmt.Sprintf("multi-collection %q type %q was removed without an explicit rename-or-delete transform", name, docType),
				})
			}
		}
	}

	return findings
}

func hasOp(m *ir.CompiledMigration, tag ir.Tag, name, docType string) bool {
	for _, op := range m.Operations {
		if op.Tag != tag {
			continue
		}
		if op.Name == name && op.DocType == docType {
			return true
		}
	}
	return false
}

// revalidateDocuments re-checks every document in stateAfter against
// its declared schema (spec.md §4.5 step 4): plain collections,
// multi-collection _type documents sharing a physical collection, and
// multi-model instance documents, keyed back to their model via
// instanceModel since State only tracks instances by name.
func revalidateDocuments(migrationID string, state simulate.State, defs builder.SchemasDefinition, instanceModel map[string]string) []Finding {
	var findings []Finding

	for name, s := range defs.Collections {
		for _, doc := range state.Collections[name] {
			if issues := schema.Validate(doc, s); len(issues) > 0 {
				findings = append(findings, Finding{
					MigrationID: migrationID,
					Message:     fmt.Sprintf("collection %q document %v fails declared schema: %v", name, doc["_id"], issues),
				})
			}
		}
	}

	for name, types := range defs.MultiCollections {
		for _, doc := range state.Collections[name] {
			docType, _ := doc["_type"].(string)
			s, ok := types[docType]
			if !ok {
				findings = append(findings, Finding{
					MigrationID: migrationID,
					Message:     fmt.Sprintf("multi-collection %q document %v has undeclared type %q", name, doc["_id"], docType),
				})
				continue
			}
			if issues := schema.Validate(doc, s); len(issues) > 0 {
				findings = append(findings, Finding{
					MigrationID: migrationID,
					Message:     fmt.Sprintf("multi-collection %q type %q document %v fails declared schema: %v", name, docType, doc["_id"], issues),
				})
			}
		}
	}

	for instance, docs := range state.MultiInstances {
		model, ok := instanceModel[instance]
		if !ok {
			continue
		}
		types := defs.MultiModels[model]
		for _, doc := range docs {
			docType, _ := doc["_type"].(string)
			s, ok := types[docType]
			if !ok {
				findings = append(findings, Finding{
					MigrationID: migrationID,
					Message:     fmt.Sprintf("instance %q (model %q) document %v has undeclared type %q", instance, model, doc["_id"], docType),
				})
				continue
			}
			if issues := schema.Validate(doc, s); len(issues) > 0 {
				findings = append(findings, Finding{
					MigrationID: migrationID,
					Message:     fmt.Sprintf("instance %q (model %q) type %q document %v fails declared schema: %v", instance, model, docType, doc["_id"], issues),
				})
			}
		}
	}

	return findings
}

func checkTail(migrationID string, leaf, project builder.SchemasDefinition) []Finding {
	var findings []Finding

	for name := range project.Collections {
		if _, ok := leaf.Collections[name]; !ok {
			findings = append(findings, Finding{MigrationID: migrationID, Message: fmt.Sprintf("project schema declares collection %q but the leaf migration does not", name)})
		}
	}
	for name := range leaf.Collections {
		if _, ok := project.Collections[name]; !ok {
			findings = append(findings, Finding{MigrationID: migrationID, Message: fmt.Sprintf("leaf migration declares collection %q not present in the project schema", name)})
		}
	}
	for name, currSchema := range leaf.Collections {
		projSchema, ok := project.Collections[name]
		if ok && !schema.Equal(projSchema, currSchema) {
			findings = append(findings, Finding{
				MigrationID: migrationID,
				Message:     fmt.Sprintf("collection %q's leaf schema does not match the project schema source", name),
				Diff:        schema.DiffSchemas(currSchema, projSchema),
			})
		}
	}

	for name := range project.MultiCollections {
		if _, ok := leaf.MultiCollections[name]; !ok {
			findings = append(findings, Finding{MigrationID: migrationID, Message: fmt.Sprintf("project schema declares multi-collection %q but the leaf migration does not", name)})
		}
	}
	for name := range leaf.MultiCollections {
		if _, ok := project.MultiCollections[name]; !ok {
			findings = append(findings, Finding{MigrationID: migrationID, Message: fmt.Sprintf("leaf migration declares multi-collection %q not present in the project schema", name)})
		}
	}
	for name, currTypes := range leaf.MultiCollections {
		projTypes, ok := project.MultiCollections[name]
		if !ok {
			continue
		}
		for docType, currSchema := range currTypes {
			projSchema, ok := projTypes[docType]
			if ok && !schema.Equal(projSchema, currSchema) {
				findings = append(findings, Finding{
					MigrationID: migrationID,
					Message:     fmt.Sprintf("multi-collection %q type %q's leaf schema does not match the project schema source", name, docType),
					Diff:        schema.DiffSchemas(currSchema, projSchema),
				})
			}
		}
	}

	for name := range project.MultiModels {
		if _, ok := leaf.MultiModels[name]; !ok {
			findings = append(findings, Finding{MigrationID: migrationID, Message: fmt.Sprintf("project schema declares model %q but the leaf migration does not", name)})
		}
	}
	for name := range leaf.MultiModels {
		if _, ok := project.MultiModels[name]; !ok {
			findings = append(findings, Finding{MigrationID: migrationID, Message: fmt.Sprintf("leaf migration declares model %q not present in the project schema", name)})
		}
	}

	return findings
}
