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

package agents

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "agents")

// AgentID identifies an agent within its session
type AgentID uint32

const InvalidAgentID AgentID = math.MaxUint32

// ElementID identifies a sensor or actuator class, it is shared by all the instances of the class
type ElementID uint32

type SensorClass struct {
	Name        string
	Description string
	Abstract    bool
	Deprecated  bool
	New         func() SensorImpl

	id ElementID
}

func (c *SensorClass) ID() ElementID {
	return c.id
}

type ActuatorClass struct {
	Name        string
	Description string
	Abstract    bool
	Deprecated  bool
	New         func() ActuatorImpl

	id ElementID
}

func (c *ActuatorClass) ID() ElementID {
	return c.id
}

type AgentClass struct {
	Name        string
	Description string
	Abstract    bool
	Deprecated  bool
	// Reward replaces the default, player state score based, reward
	Reward func(agent *Agent) float32
}

// DefaultAgentClass is the class of agents created without an explicit agent class
var DefaultAgentClass = RegisterAgentClass(AgentClass{
	Name:        "Agent",
	Description: "Agent rewarded with the score of its avatar's player state",
})

var lastElementID uint32

var registry = struct {
	sync.RWMutex
	sensors   []*SensorClass
	actuators []*ActuatorClass
	agents    []*AgentClass
}{}

func nextElementID() ElementID {
	return ElementID(atomic.AddUint32(&lastElementID, 1))
}

// RegisterSensorClass registers a sensor class and assigns its ElementID
func RegisterSensorClass(class SensorClass) *SensorClass {
	registered := class
	registered.id = nextElementID()

	registry.Lock()
	defer registry.Unlock()
	registry.sensors = append(registry.sensors, &registered)

	log.WithFields(logrus.Fields{"class": class.Name, "element_id": registered.id}).Trace("sensor class registered")
	return &registered
}

// RegisterActuatorClass registers an actuator class and assigns its ElementID
func RegisterActuatorClass(class ActuatorClass) *ActuatorClass {
	registered := class
	registered.id = nextElementID()

	registry.Lock()
	defer registry.Unlock()
	registry.actuators = append(registry.actuators, &registered)

	log.WithFields(logrus.Fields{"class": class.Name, "element_id": registered.id}).Trace("actuator class registered")
	return &registered
}

func RegisterAgentClass(class AgentClass) *AgentClass {
	registered := class

	registry.Lock()
	defer registry.Unlock()
	registry.agents = append(registry.agents, &registered)

	return &registered
}

// SensorClasses returns every registered sensor class, including abstract and deprecated ones
func SensorClasses() []*SensorClass {
	registry.RLock()
	defer registry.RUnlock()
	return append([]*SensorClass{}, registry.sensors...)
}

// ActuatorClasses returns every registered actuator class, including abstract and deprecated ones
func ActuatorClasses() []*ActuatorClass {
	registry.RLock()
	defer registry.RUnlock()
	return append([]*ActuatorClass{}, registry.actuators...)
}

// AgentClasses returns every registered agent class, including abstract and deprecated ones
func AgentClasses() []*AgentClass {
	registry.RLock()
	defer registry.RUnlock()
	return append([]*AgentClass{}, registry.agents...)
}

// ClassFinder resolves class names, a nil result means the class is unknown
type ClassFinder interface {
	FindSensorClass(name string) *SensorClass
	FindActuatorClass(name string) *ActuatorClass
	FindAgentClass(name string) *AgentClass
}
