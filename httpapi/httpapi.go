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
Package httpapi exposes a read-only operational surface over the chain
resolver and history store: /status, /history/{id}, and (when a
metrics.Recorder is attached) /metrics in Prometheus exposition format.
This is not part of the core engine (spec.md's core ends at the CLI);
it exists because the corpus's orchestrator exposes exactly this kind
of read-only status surface over its own domain state.
*/
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/diister-dev/mongodbee/chain"
	"github.com/diister-dev/mongodbee/history"
	"github.com/diister-dev/mongodbee/metrics"
)

// Server holds the read-only dependencies the HTTP handlers serve from.
type Server struct {
	Chain   *chain.Chain
	History history.Store
	Metrics *metrics.Recorder // optional; /metrics is omitted if nil
}

// migrationStatus is one entry in the /status response.
type migrationStatus struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status history.Status `json:"status"`
}

// NewRouter builds the HTTP handler: CORS-wrapped gorilla/mux router
// with GET-only routes, matching the teacher's read surface shape.
func NewRouter(s *Server) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/history/{id}", s.historyHandler).Methods("GET")
	if s.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	})
	return c.Handler(r)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var out []migrationStatus
	for _, m := range s.Chain.Migrations {
		status, err := s.History.CurrentStatusOf(m.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, migrationStatus{ID: m.ID, Name: m.Name, Status: status})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	records, err := s.History.HistoryOf(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
