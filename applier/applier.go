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
Package applier executes the operation IR against a real database
(spec.md §4.7): one handler per tag, validator and index synchronization
after a migration's operations run, and history bracketing around the
whole migration.
*/
package applier

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/dbapi"
	"github.com/diister-dev/mongodbee/history"
	"github.com/diister-dev/mongodbee/ir"
	"github.com/diister-dev/mongodbee/logging"
	"github.com/diister-dev/mongodbee/merrors"
	"github.com/diister-dev/mongodbee/metrics"
	"github.com/diister-dev/mongodbee/schema"
)

// EngineVersion is stamped into every history record, mirroring the
// teacher's codegen-version convention for tracking which build of the
// engine produced a given record.
const EngineVersion = "1.0.0"

// Options tunes Apply/Rollback behavior.
type Options struct {
	DryRun bool // Apply/Rollback compile each migration but run no operation and record no history.
	Force  bool // Rollback bypasses the irreversible-migration refusal.
}

// Applier executes IR against db and records outcomes in history.
type Applier struct {
	DB      dbapi.Database
	History history.Store
	Metrics *metrics.Recorder // optional; nil is safe
	Logger  *logging.Logger   // optional; nil is safe
}

// NewApplier constructs an Applier bound to db and hist, with metrics
// disabled. Set Applier.Metrics afterward to enable Prometheus
// instrumentation.
func NewApplier(db dbapi.Database, hist history.Store) *Applier {
	return &Applier{DB: db, History: hist}
}

// MigrationReport summarizes one migration's apply or rollback outcome.
type MigrationReport struct {
	MigrationID string
	Warnings    []string
	DurationMs  int64
}

// Apply executes every pending migration in migrations in order, recording
// history around each one. On the first failure it stops and returns
// the error; migrations already applied in this call remain applied.
func (a *Applier) Apply(ctx context.Context, migrations []*chain.MigrationDefinition, opts Options) ([]MigrationReport, error) {
	var reports []MigrationReport
	for _, def := range migrations {
		report, err := a.applyOne(ctx, def, opts)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (a *Applier) applyOne(ctx context.Context, def *chain.MigrationDefinition, opts Options) (MigrationReport, error) {
	compiled, err := def.Compile()
	if err != nil {
		return MigrationReport{}, err
	}
	if opts.DryRun {
		return MigrationReport{MigrationID: def.ID}, nil
	}

	start := time.Now()
	err = a.runForward(ctx, compiled, opts)
	elapsed := time.Since(start)
	duration := elapsed.Milliseconds()

	if err != nil {
		a.recordFailure(def.ID, def.Name, history.OpApplied, err)
		a.Metrics.ObserveMigration("apply", "failure", elapsed)
		a.Logger.Error(def.ID, "apply", "migration failed", err, nil)
		return MigrationReport{}, merrors.Wrap(merrors.KindRuntime, "applier", "Apply",
			fmt.Sprintf("migration %s failed", def.ID), err)
	}

	a.recordSuccess(def.ID, def.Name, history.OpApplied, duration)
	a.Metrics.ObserveMigration("apply", "success", elapsed)
	a.Logger.InfoWithDuration(def.ID, "apply", "migration applied", duration, nil)
	return MigrationReport{MigrationID: def.ID, DurationMs: duration}, nil
}

func (a *Applier) runForward(ctx context.Context, m *ir.CompiledMigration, opts Options) error {
	if opts.DryRun {
		return nil
	}

	return a.DB.WithTransaction(ctx, func(ctx context.Context) error {
		return a.runForwardOps(ctx, m)
	})
}

func (a *Applier) runForwardOps(ctx context.Context, m *ir.CompiledMigration) error {
	touched := map[string]schema.Schema{}
	for _, op := range m.Operations {
		if err := a.dispatchForward(ctx, op); err != nil {
			return fmt.Errorf("operation %s on %q failed: %w", op.Tag, targetName(op), err)
		}
		if name := targetName(op); name != "" && len(op.Schema.Root.Properties) > 0 {
			touched[name] = op.Schema
		}
	}

	for name, s := range touched {
		if err := a.syncValidator(ctx, name, s); err != nil {
			return err
		}
		if err := a.syncIndexes(ctx, name, s); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOperation executes a single operation directly, bypassing
// history and validator/index sync. catchup uses this to replay
// individual *_multimodel_instance_type operations scoped to one
// instance without re-running a whole migration.
func (a *Applier) ApplyOperation(ctx context.Context, op ir.Operation) error {
	return a.dispatchForward(ctx, op)
}

func targetName(op ir.Operation) string {
	if op.Name != "" {
		return op.Name
	}
	return op.Instance
}

func (a *Applier) syncValidator(ctx context.Context, name string, s schema.Schema) error {
	validator := schema.ToNativeValidator(s)
	return a.DB.ModifyCollection(ctx, name, bson.M{"$jsonSchema": validator})
}

// syncIndexes diffs the desired index set (from schema.DescribeIndex)
// against the collection's current indexes and issues the delta,
// never touching the _id index.
func (a *Applier) syncIndexes(ctx context.Context, name string, s schema.Schema) error {
	desired := schema.DescribeIndex(s)
	desiredByName := map[string]schema.IndexHint{}
	for _, h := range desired {
		desiredByName[h.Name] = h
	}

	current, err := a.DB.ListIndexes(ctx, name)
	if err != nil {
		return err
	}
	currentByName := map[string]bool{}
	for _, c := range current {
		currentByName[c.Name] = true
	}

	for _, h := range desired {
		if currentByName[h.Name] {
			continue
		}
		keys := bson.D{}
		for _, f := range h.Fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}
		if err := a.DB.CreateIndex(ctx, name, dbapi.IndexSpec{Name: h.Name, Keys: keys, Unique: h.Unique, Sparse: h.Sparse}); err != nil {
			return err
		}
	}
	for _, c := range current {
		if c.Name == "_id_" {
			continue
		}
		if _, wanted := desiredByName[c.Name]; !wanted {
			if err := a.DB.DropIndex(ctx, name, c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Applier) recordSuccess(id, name string, op history.Operation, durationMs int64) {
	d := durationMs
	_ = a.History.Record(history.Record{
		MigrationID: id, MigrationName: name, Operation: op,
		Status: history.OutcomeSuccess, ExecutedAt: time.Now(), DurationMs: &d, EngineVersion: EngineVersion,
	})
}

func (a *Applier) recordFailure(id, name string, op history.Operation, err error) {
	_ = a.History.Record(history.Record{
		MigrationID: id, MigrationName: name, Operation: op,
		Status: history.OutcomeFailure, ExecutedAt: time.Now(), Error: err.Error(), EngineVersion: EngineVersion,
	})
}
