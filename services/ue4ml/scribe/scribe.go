// Copyright 2023 AI Redefined Inc. <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scribe

import (
	"strings"

	"github.com/ue4ml/ue4ml/services/ue4ml/librarian"
)

// NotFound is the description returned for unknown names
const NotFound = "Not Found"

// Scribe answers the introspection functions from the content of a Librarian
type Scribe struct {
	librarian *librarian.Librarian
}

func New(librarian *librarian.Librarian) *Scribe {
	return &Scribe{librarian: librarian}
}

func (s *Scribe) ListFunctions() []string {
	functions := s.librarian.Functions()
	names := make([]string, 0, len(functions))
	for _, function := range functions {
		names = append(names, strings.ToLower(function.Name))
	}
	return names
}

func (s *Scribe) ListSensorTypes() map[string]uint32 {
	types := map[string]uint32{}
	for _, class := range s.librarian.SensorClasses() {
		types[class.Name] = uint32(class.ID())
	}
	return types
}

func (s *Scribe) ListActuatorTypes() map[string]uint32 {
	types := map[string]uint32{}
	for _, class := range s.librarian.ActuatorClasses() {
		types[class.Name] = uint32(class.ID())
	}
	return types
}

// GetDescription looks for a function, then a sensor, then an actuator with the given name
func (s *Scribe) GetDescription(name string) string {
	if description, found := s.librarian.FunctionDescription(name); found {
		return description
	}
	if class := s.librarian.FindSensorClass(name); class != nil {
		return class.Description
	}
	if class := s.librarian.FindActuatorClass(name); class != nil {
		return class.Description
	}
	return NotFound
}
