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

package librarian

import (
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
)

var log = logrus.WithField("component", "librarian")

type FunctionDescription struct {
	Name        string
	Description string
}

// Librarian knows the sensor, actuator and agent classes that can be instantiated
// and the descriptions of the bound functions.
type Librarian struct {
	mutex        sync.RWMutex
	sensors      map[agents.ElementID]*agents.SensorClass
	actuators    map[agents.ElementID]*agents.ActuatorClass
	agentClasses []*agents.AgentClass
	functions    []FunctionDescription
}

func New() *Librarian {
	return &Librarian{
		sensors:   map[agents.ElementID]*agents.SensorClass{},
		actuators: map[agents.ElementID]*agents.ActuatorClass{},
	}
}

// GatherClasses registers every concrete class known to the agents registry
func (l *Librarian) GatherClasses() {
	for _, class := range agents.SensorClasses() {
		l.RegisterSensorClass(class)
	}
	for _, class := range agents.ActuatorClasses() {
		l.RegisterActuatorClass(class)
	}
	for _, class := range agents.AgentClasses() {
		l.RegisterAgentClass(class)
	}

	l.mutex.RLock()
	defer l.mutex.RUnlock()
	log.WithFields(logrus.Fields{
		"nb_sensors":       len(l.sensors),
		"nb_actuators":     len(l.actuators),
		"nb_agent_classes": len(l.agentClasses),
	}).Debug("classes gathered")
}

// elementIDTakenLocked reports ElementID collisions between two different classes
func (l *Librarian) elementIDTakenLocked(id agents.ElementID, name string) bool {
	existing := ""
	if sensor, ok := l.sensors[id]; ok {
		existing = sensor.Name
	} else if actuator, ok := l.actuators[id]; ok {
		existing = actuator.Name
	} else {
		return false
	}
	if existing != name {
		log.WithFields(logrus.Fields{
			"element_id": id,
			"class":      name,
			"registered": existing,
		}).Error("two different classes share the same element id, ignoring the latest")
	}
	return true
}

// RegisterSensorClass registers a concrete sensor class, abstract or deprecated classes are ignored
func (l *Librarian) RegisterSensorClass(class *agents.SensorClass) bool {
	if class.Abstract || class.Deprecated {
		return false
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.elementIDTakenLocked(class.ID(), class.Name) {
		return false
	}
	l.sensors[class.ID()] = class
	return true
}

// RegisterActuatorClass registers a concrete actuator class, abstract or deprecated classes are ignored
func (l *Librarian) RegisterActuatorClass(class *agents.ActuatorClass) bool {
	if class.Abstract || class.Deprecated {
		return false
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.elementIDTakenLocked(class.ID(), class.Name) {
		return false
	}
	l.actuators[class.ID()] = class
	return true
}

func (l *Librarian) RegisterAgentClass(class *agents.AgentClass) bool {
	if class.Abstract || class.Deprecated {
		return false
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, registered := range l.agentClasses {
		if registered == class {
			return false
		}
	}
	l.agentClasses = append(l.agentClasses, class)
	return true
}

func (l *Librarian) FindSensorClass(name string) *agents.SensorClass {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, class := range l.sensors {
		if class.Name == name {
			return class
		}
	}
	return nil
}

func (l *Librarian) FindActuatorClass(name string) *agents.ActuatorClass {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, class := range l.actuators {
		if class.Name == name {
			return class
		}
	}
	return nil
}

func (l *Librarian) FindAgentClass(name string) *agents.AgentClass {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, class := range l.agentClasses {
		if class.Name == name {
			return class
		}
	}
	return nil
}

// SensorClasses returns the registered sensor classes sorted by ElementID
func (l *Librarian) SensorClasses() []*agents.SensorClass {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	classes := make([]*agents.SensorClass, 0, len(l.sensors))
	for _, class := range l.sensors {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID() < classes[j].ID() })
	return classes
}

// ActuatorClasses returns the registered actuator classes sorted by ElementID
func (l *Librarian) ActuatorClasses() []*agents.ActuatorClass {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	classes := make([]*agents.ActuatorClass, 0, len(l.actuators))
	for _, class := range l.actuators {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID() < classes[j].ID() })
	return classes
}

func (l *Librarian) AgentClasses() []*agents.AgentClass {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return append([]*agents.AgentClass{}, l.agentClasses...)
}

// RegisterFunction records the description of a bound function, registering a name again replaces its description
func (l *Librarian) RegisterFunction(name string, description string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if description == "" {
		log.WithField("function", name).Warn("function registered without description")
	}
	for i := range l.functions {
		if strings.EqualFold(l.functions[i].Name, name) {
			l.functions[i].Description = description
			return
		}
	}
	l.functions = append(l.functions, FunctionDescription{Name: name, Description: description})
}

// ClearFunctions forgets every registered function
func (l *Librarian) ClearFunctions() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.functions = nil
}

// Functions returns the registered functions in registration order
func (l *Librarian) Functions() []FunctionDescription {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return append([]FunctionDescription{}, l.functions...)
}

// FunctionDescription looks up a function, ignoring case
func (l *Librarian) FunctionDescription(name string) (string, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, function := range l.functions {
		if strings.EqualFold(function.Name, name) {
			return function.Description, true
		}
	}
	return "", false
}
