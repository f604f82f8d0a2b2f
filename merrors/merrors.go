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

// Package merrors defines the error taxonomy shared by every mongodbee
// component: configuration, chain, schema, simulation and runtime errors.
// Each kind wraps an underlying cause and can be matched with errors.As.
package merrors

import (
	"errors"
	"fmt"
)

// Kind identifies which part of the error-handling design (spec.md §7) an
// error belongs to.
type Kind string

const (
	KindConfig     Kind = "configuration"
	KindChain      Kind = "chain"
	KindSchema     Kind = "schema"
	KindSimulation Kind = "simulation"
	KindRuntime    Kind = "runtime" // also covers spec.md's "Data errors"
)

// Error is the concrete error type every mongodbee package returns for
// taxonomy-classified failures. It mirrors the teacher's ConnectorError:
// a named source, an operation, a message and an optional cause.
type Error struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s.%s: %s", e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error without an underlying cause.
func New(kind Kind, component, operation, message string) *Error {
	return &Error{Kind: kind, Component: component, Operation: operation, Message: message}
}

// Wrap constructs an Error around an existing cause.
func Wrap(kind Kind, component, operation, message string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Operation: operation, Message: message, Cause: cause}
}

// Config, Chain, Schema, Simulation and Runtime are convenience
// constructors for the five taxonomy kinds named in spec.md §7.
func Config(component, operation, message string, cause error) *Error {
	return Wrap(KindConfig, component, operation, message, cause)
}

func Chain(component, operation, message string, cause error) *Error {
	return Wrap(KindChain, component, operation, message, cause)
}

func Schema(component, operation, message string, cause error) *Error {
	return Wrap(KindSchema, component, operation, message, cause)
}

func Simulation(component, operation, message string, cause error) *Error {
	return Wrap(KindSimulation, component, operation, message, cause)
}

func Runtime(component, operation, message string, cause error) *Error {
	return Wrap(KindRuntime, component, operation, message, cause)
}

// Is reports whether err is an *Error of the given Kind, unwrapping
// through any wrapper chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
