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
Package catchup implements the multi-model catch-up subsystem
(spec.md §4.8): discovering physical instances of a declared model,
computing which migrations each instance missed, and replaying only
the operations that target that model's instances as a whole.
*/
package catchup

import (
	"context"
	"fmt"
	"time"

	"github.com/diister-dev/mongodbee/applier"
	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/dbapi"
	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/logging"
	"github.com/diister-dev/mongodbee/metrics"
	"github.com/diister-dev/mongodbee/mongostore"
)

// InstanceStore is the subset of mongostore.Store the catch-up engine
// needs: the dbapi surface to replay operations against, plus the
// instance-metadata sentinel read/write and discovery calls.
type InstanceStore interface {
	dbapi.Database
	ReadInstanceMetadata(ctx context.Context, instance string) (mongostore.InstanceMetadata, bool, error)
	WriteInstanceMetadata(ctx context.Context, instance string, meta mongostore.InstanceMetadata) error
	ListInstancesOf(ctx context.Context) ([]string, error)
}

// InstanceReport summarizes one instance's reconciliation outcome.
type InstanceReport struct {
	Instance string
	Model    string
	Replayed []string // migration IDs replayed, in chain order
}

// Engine reconciles multi-model instances against a resolved chain.
type Engine struct {
	Store   InstanceStore
	Applier *applier.Applier
	Metrics *metrics.Recorder // optional; nil is safe
	Logger  *logging.Logger   // optional; nil is safe
}

// NewEngine constructs a catch-up Engine.
func NewEngine(store InstanceStore, app *applier.Applier) *Engine {
	return &Engine{Store: store, Applier: app}
}

// Reconcile implements the algorithm of spec.md §4.8 for model: discover
// instances, compute each instance's missing migrations, replay them in
// chain order, and record the new applied set.
func (e *Engine) Reconcile(ctx context.Context, c *chain.Chain, model string) ([]InstanceReport, error) {
	instances, err := e.Store.ListInstancesOf(ctx)
	if err != nil {
		return nil, fmt.Errorf("catchup: failed to list instances: %w", err)
	}

	var reports []InstanceReport
	for _, instance := range instances {
		report, err := e.reconcileInstance(ctx, c, model, instance)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (e *Engine) reconcileInstance(ctx context.Context, c *chain.Chain, model, instance string) (InstanceReport, error) {
	meta, found, err := e.Store.ReadInstanceMetadata(ctx, instance)
	if err != nil {
		return InstanceReport{}, fmt.Errorf("catchup: failed to read metadata for %q: %w", instance, err)
	}
	if !found {
		meta = mongostore.InstanceMetadata{FromMigrationID: chain.RootParent}
	}

	creationIndex := indexOf(c, meta.FromMigrationID)
	applied := appliedSet(meta.AppliedMigrations)

	report := InstanceReport{Instance: instance, Model: model}
	changed := false

	for i, m := range c.Migrations {
		if i < creationIndex {
			continue
		}
		if applied[m.ID] {
			continue
		}
		compiled, err := m.Compile()
		if err != nil {
			return InstanceReport{}, fmt.Errorf("catchup: migration %s failed to compile: %w", m.ID, err)
		}

		ops := matchingOperations(compiled.Operations, model)
		if len(ops) == 0 {
			continue
		}

		for _, op := range ops {
			if err := e.Applier.ApplyOperation(ctx, scopeToInstance(op, instance)); err != nil {
				return InstanceReport{}, fmt.Errorf("catchup: replay of %s on instance %q failed: %w", m.ID, instance, err)
			}
		}

		meta.AppliedMigrations = append(meta.AppliedMigrations, mongostore.AppliedMigrationRef{
			ID: m.ID, Status: "applied", AppliedAt: time.Now(),
		})
		report.Replayed = append(report.Replayed, m.ID)
		changed = true
		e.Metrics.ObserveCatchupReplay(model)
	}

	if changed {
		if err := e.Store.WriteInstanceMetadata(ctx, instance, meta); err != nil {
			return InstanceReport{}, fmt.Errorf("catchup: failed to write metadata for %q: %w", instance, err)
		}
		e.Logger.Info("", "catchup", fmt.Sprintf("replayed %d migration(s) onto instance %q", len(report.Replayed), instance), map[string]interface{}{
			"instance": instance, "model": model, "replayed": report.Replayed,
		})
	}
	return report, nil
}

// indexOf returns id's position in c.Migrations, or -1 if id is
// chain.RootParent or not found — either case means "every migration in
// the chain is at or after the creation point" (the orphan rule from
// spec.md §4.8 step 2).
func indexOf(c *chain.Chain, id string) int {
	if id == chain.RootParent {
		return -1
	}
	for i, m := range c.Migrations {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func appliedSet(refs []mongostore.AppliedMigrationRef) map[string]bool {
	out := make(map[string]bool, len(refs))
	for _, r := range refs {
		out[r.ID] = true
	}
	return out
}

// matchingOperations filters ops to those tagged *_multimodel_instances_type
// for model. seed_multimodel_instance_type and
// transform_multimodel_instance_type are never replayed: they target a
// single named instance, not "every instance of model".
func matchingOperations(ops []ir.Operation, model string) []ir.Operation {
	var out []ir.Operation
	for _, op := range ops {
		if op.Model != model {
			continue
		}
		switch op.Tag {
		case ir.TagSeedMultimodelInstancesType, ir.TagTransformMultimodelInstancesType:
			out = append(out, op)
		}
	}
	return out
}

// scopeToInstance rewrites a *_multimodel_instances_type operation into
// its per-instance equivalent, targeting only instance, so replay
// touches one collection instead of re-running across every instance
// of the model.
func scopeToInstance(op ir.Operation, instance string) ir.Operation {
	scoped := op
	scoped.Instance = instance
	switch op.Tag {
	case ir.TagSeedMultimodelInstancesType:
		scoped.Tag = ir.TagSeedMultimodelInstanceType
	case ir.TagTransformMultimodelInstancesType:
		scoped.Tag = ir.TagTransformMultimodelInstanceType
	}
	return scoped
}
