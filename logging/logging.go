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
Package logging provides structured JSON-line logging for the engine's
components, carrying migration and operation identifiers the way the
engine's connectors thread tenant/request context through every entry.
*/
package logging

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
)

// Logger writes structured JSON-line log entries scoped to one
// component (e.g. "applier", "catchup", "chain").
type Logger struct {
	Component string
	Host      string
}

// Entry is one structured log record.
type Entry struct {
	Timestamp   string                 `json:"timestamp"`
	Level       Level                  `json:"level"`
	Component   string                 `json:"component"`
	Host        string                 `json:"host"`
	MigrationID string                 `json:"migration_id,omitempty"`
	Operation   string                 `json:"operation,omitempty"`
	Message     string                 `json:"message"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

// New constructs a Logger for component.
func New(component string) *Logger {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Logger{Component: component, Host: host}
}

// Log writes one entry as a single JSON line through the standard log
// package (stderr by default, after log's prefix). A nil *Logger
// is safe to call into; it simply drops the entry, so callers can
// carry an optional Logger field without guarding every call site.
func (l *Logger) Log(level Level, migrationID, operation, message string, fields map[string]interface{}) {
	if l == nil {
		return
	}
	entry := Entry{
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		Level:       level,
		Component:   l.Component,
		Host:        l.Host,
		MigrationID: migrationID,
		Operation:   operation,
		Message:     message,
		Fields:      fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		log.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}
	log.Println(string(jsonBytes))
}

// Info logs an informational message.
func (l *Logger) Info(migrationID, operation, message string, fields map[string]interface{}) {
	l.Log(INFO, migrationID, operation, message, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(migrationID, operation, message string, fields map[string]interface{}) {
	l.Log(WARN, migrationID, operation, message, fields)
}

// Error logs an error message, folding err into fields["error"].
func (l *Logger) Error(migrationID, operation, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Log(ERROR, migrationID, operation, message, fields)
}

// Debug logs a debug message.
func (l *Logger) Debug(migrationID, operation, message string, fields map[string]interface{}) {
	l.Log(DEBUG, migrationID, operation, message, fields)
}

// InfoWithDuration logs an info message annotated with an operation's
// duration in milliseconds.
func (l *Logger) InfoWithDuration(migrationID, operation, message string, durationMs int64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMs
	l.Info(migrationID, operation, message, fields)
}
