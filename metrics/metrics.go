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
Package metrics exposes Prometheus counters and histograms for apply,
rollback, and catch-up outcomes, registered against a private registry
so multiple Applier/Engine instances in one process (e.g. in tests)
don't collide on prometheus.MustRegister.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder records outcomes of migration operations for observability.
// applier.Applier and catchup.Engine hold one as an optional field; a
// nil *Recorder is safe to call into (every method no-ops on nil).
type Recorder struct {
	registry *prometheus.Registry

	migrationsTotal   *prometheus.CounterVec
	migrationDuration *prometheus.HistogramVec
	catchupReplayed   *prometheus.CounterVec
}

// New constructs a Recorder with its own registry, so callers choose
// when (and whether) to expose it over /metrics via promhttp.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		migrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mongodbee_migrations_total",
				Help: "Total number of migration apply/rollback attempts by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		migrationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mongodbee_migration_duration_milliseconds",
				Help:    "Duration of a migration apply or rollback in milliseconds.",
				Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
			},
			[]string{"operation"},
		),
		catchupReplayed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mongodbee_catchup_migrations_replayed_total",
				Help: "Total number of migrations replayed onto an instance by the catch-up engine.",
			},
			[]string{"model"},
		),
	}
	r.registry.MustRegister(r.migrationsTotal, r.migrationDuration, r.catchupReplayed)
	return r
}

// Registry exposes the underlying prometheus.Registry, e.g. for
// httpapi's /metrics handler to wrap in promhttp.HandlerFor.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveMigration records one apply/rollback outcome.
func (r *Recorder) ObserveMigration(operation, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.migrationsTotal.WithLabelValues(operation, status).Inc()
	r.migrationDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
}

// ObserveCatchupReplay records one migration replayed by the catch-up
// engine for model.
func (r *Recorder) ObserveCatchupReplay(model string) {
	if r == nil {
		return
	}
	r.catchupReplayed.WithLabelValues(model).Inc()
}
