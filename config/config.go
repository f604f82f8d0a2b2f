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
Package config loads the engine's configuration file (spec.md §6):
database connection, file system paths, and schema-management mode,
with ${VAR}/${VAR:-default} environment expansion and optional
AWS-Secrets-Manager-backed connection URI resolution.
*/
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaManagement selects how runtime helpers treat validator sync.
type SchemaManagement string

const (
	// SchemaManagementAuto lets runtime helpers apply validators
	// automatically as migrations run.
	SchemaManagementAuto SchemaManagement = "auto"
	// SchemaManagementManaged defers all validator application to
	// explicitly authored migrations.
	SchemaManagementManaged SchemaManagement = "managed"
)

// Config is the engine's resolved configuration (spec.md §6's key table).
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Paths    PathsConfig    `yaml:"paths"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
}

// DatabaseConfig holds connection settings.
type DatabaseConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Name       string           `yaml:"name"`
}

// ConnectionConfig holds the connection URI, or a secret reference to
// resolve it from (mutually exclusive; SecretRef wins if both are set).
type ConnectionConfig struct {
	URI       string     `yaml:"uri"`
	SecretRef *SecretRef `yaml:"secretRef,omitempty"`
}

// SecretRef names an AWS Secrets Manager secret and the JSON key within
// it holding the connection URI.
type SecretRef struct {
	ARN string `yaml:"arn"`
	Key string `yaml:"key"`
}

// PathsConfig holds filesystem locations the CLI scans.
type PathsConfig struct {
	Migrations string `yaml:"migrations"`
	Schemas    string `yaml:"schemas"`
}

// RuntimeConfig holds engine behavior toggles.
type RuntimeConfig struct {
	SchemaManagement SchemaManagement `yaml:"schemaManagement"`
}

// Defaults returns the configuration with every spec.md §6 default set.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Connection: ConnectionConfig{URI: "mongodb://localhost:27017"},
			Name:       "myapp",
		},
		Paths: PathsConfig{
			Migrations: "./migrations",
			Schemas:    "./schemas.ts",
		},
		Runtime: RuntimeConfig{SchemaManagement: SchemaManagementAuto},
	}
}

var envVarRegex = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*(:-[^}]*)?\}|\$[A-Za-z_][A-Za-z0-9_]*`)

// expandEnvVars substitutes ${VAR} / ${VAR:-default} / $VAR references
// against the process environment, leaving undefined variables (with
// no default) as an empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		if defaultVal != "" {
			return defaultVal
		}
		return ""
	})
}

// Load reads path as YAML, expands environment references, and fills
// unset fields with Defaults(). A missing file is not an error: Load
// returns Defaults() unchanged.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var parsed Config
	if err := yaml.Unmarshal([]byte(expanded), &parsed); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	applyOverrides(&cfg, parsed)
	return cfg, nil
}

// applyOverrides copies every non-zero field of override onto base.
func applyOverrides(base *Config, override Config) {
	if override.Database.Connection.URI != "" {
		base.Database.Connection.URI = override.Database.Connection.URI
	}
	if override.Database.Connection.SecretRef != nil {
		base.Database.Connection.SecretRef = override.Database.Connection.SecretRef
	}
	if override.Database.Name != "" {
		base.Database.Name = override.Database.Name
	}
	if override.Paths.Migrations != "" {
		base.Paths.Migrations = override.Paths.Migrations
	}
	if override.Paths.Schemas != "" {
		base.Paths.Schemas = override.Paths.Schemas
	}
	if override.Runtime.SchemaManagement != "" {
		base.Runtime.SchemaManagement = override.Runtime.SchemaManagement
	}
}
