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
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/history"
	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/merrors"
)

// ErrIrreversibleRefused is returned when Rollback is asked to undo an
// irreversible migration without Options.Force.
var ErrIrreversibleRefused = fmt.Errorf("migration is irreversible: rollback refused without --force")

// Rollback undoes def, the single migration the caller has identified
// as the most recently applied one.
func (a *Applier) Rollback(ctx context.Context, def *chain.MigrationDefinition, opts Options) (MigrationReport, error) {
	compiled, err := def.Compile()
	if err != nil {
		return MigrationReport{}, err
	}

	if compiled.Irreversible && !opts.Force {
		return MigrationReport{}, merrors.Wrap(merrors.KindRuntime, "applier", "Rollback",
			fmt.Sprintf("migration %s is irreversible", def.ID), ErrIrreversibleRefused)
	}
	if opts.DryRun {
		return MigrationReport{MigrationID: def.ID}, nil
	}

	start := time.Now()
	err = a.runReverse(ctx, compiled, opts)
	elapsed := time.Since(start)
	duration := elapsed.Milliseconds()

	if err != nil {
		a.recordFailure(def.ID, def.Name, history.OpReverted, err)
		a.Metrics.ObserveMigration("rollback", "failure", elapsed)
		a.Logger.Error(def.ID, "rollback", "rollback failed", err, nil)
		return MigrationReport{}, merrors.Wrap(merrors.KindRuntime, "applier", "Rollback",
			fmt.Sprintf("rollback of migration %s failed", def.ID), err)
	}

	a.recordSuccess(def.ID, def.Name, history.OpReverted, duration)
	a.Metrics.ObserveMigration("rollback", "success", elapsed)
	a.Logger.InfoWithDuration(def.ID, "rollback", "migration reverted", duration, nil)
	return MigrationReport{MigrationID: def.ID, DurationMs: duration}, nil
}

func (a *Applier) runReverse(ctx context.Context, m *ir.CompiledMigration, opts Options) error {
	if opts.DryRun {
		return nil
	}
	return a.DB.WithTransaction(ctx, func(ctx context.Context) error {
		// Abort before any side effect for an irreversible migration run
		// without --force; with --force, proceed without attempting to
		// restore original values (spec.md §4.7). The Irreversible check
		// happens in Rollback before runReverse is ever called.
		for i := len(m.Operations) - 1; i >= 0; i-- {
			if err := a.dispatchReverse(ctx, m.Operations[i]); err != nil {
				return fmt.Errorf("reverse of operation %s on %q failed: %w", m.Operations[i].Tag, targetName(m.Operations[i]), err)
			}
		}
		return nil
	})
}

// dispatchReverse undoes op's forward effect. create_* cannot restore
// prior contents: it logs a warning and leaves the collection in place
// (the simulator's reverse step deletes the created collection instead).
func (a *Applier) dispatchReverse(ctx context.Context, op ir.Operation) error {
	switch op.Tag {
	case ir.TagCreateCollection, ir.TagCreateMulticollection, ir.TagCreateMultimodelInstance:
		a.Logger.Warn("", "rollback", fmt.Sprintf("cannot restore contents of %q that existed before creation", targetName(op)), nil)
		return nil // cannot restore prior contents; collection remains

	case ir.TagSeedCollection:
		return a.deleteSeeded(ctx, op.Name, op.Documents, "")

	case ir.TagSeedMulticollectionType:
		return a.deleteSeeded(ctx, op.Name, op.Documents, op.DocType)

	case ir.TagSeedMultimodelInstanceType:
		return a.deleteSeeded(ctx, op.Instance, op.Documents, op.DocType)

	case ir.TagSeedMultimodelInstancesType:
		instances, err := instancesOfModel(ctx, a.DB)
		if err != nil {
			return err
		}
		for _, instance := range instances {
			if err := a.deleteSeeded(ctx, instance, op.Documents, op.DocType); err != nil {
				return err
			}
		}
		return nil

	case ir.TagTransformCollection:
		return a.transformCollection(ctx, op.Name, "", op.Down)

	case ir.TagTransformMulticollectionType:
		return a.transformCollection(ctx, op.Name, op.DocType, op.Down)

	case ir.TagTransformMultimodelInstanceType:
		return a.transformCollection(ctx, op.Instance, op.DocType, op.Down)

	case ir.TagTransformMultimodelInstancesType:
		instances, err := instancesOfModel(ctx, a.DB)
		if err != nil {
			return err
		}
		for _, instance := range instances {
			if err := a.transformCollection(ctx, instance, op.DocType, op.Down); err != nil {
				return err
			}
		}
		return nil

	case ir.TagUpdateIndexes:
		return nil

	case ir.TagMarkAsMultimodel:
		return nil // best-effort: revert is a structural move the applier does not replay automatically

	default:
		return fmt.Errorf("unknown operation tag %q", op.Tag)
	}
}

func (a *Applier) deleteSeeded(ctx context.Context, collection string, seeded []bson.M, docType string) error {
	ids := make([]any, 0, len(seeded))
	for _, d := range seeded {
		if id, ok := d["_id"]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}
	if docType != "" {
		filter["_type"] = docType
	}
	_, err := a.DB.DeleteMany(ctx, collection, filter)
	return err
}
