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
	"strconv"

	"github.com/ue4ml/ue4ml/services/ue4ml/space"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

type testSensor struct {
	size       int
	value      float32
	senseCalls []float32
	avatars    []*world.Actor
	declines   bool
	shutdown   bool
}

func (s *testSensor) ConstructSpaceDef() space.Space {
	return space.NewUnitBox(s.size)
}

func (s *testSensor) Configure(params map[string]string) {
	if size, err := strconv.Atoi(params["size"]); err == nil {
		s.size = size
	}
}

func (s *testSensor) SenseImpl(_ *world.Actor, dt float32) {
	s.senseCalls = append(s.senseCalls, dt)
}

func (s *testSensor) GetObservations(writer *stream.Writer) {
	for i := 0; i < s.size; i++ {
		writer.WriteFloat32(s.value)
	}
}

func (s *testSensor) OnAvatarSet(avatar *world.Actor) {
	s.avatars = append(s.avatars, avatar)
}

func (s *testSensor) ConfigureForAgent(*Agent) bool {
	return !s.declines
}

func (s *testSensor) Shutdown() {
	s.shutdown = true
}

type testActuator struct {
	size   int
	values []float32
	acts   int
}

func (a *testActuator) ConstructSpaceDef() space.Space {
	return space.NewUnitBox(a.size)
}

func (a *testActuator) DigestInputData(reader *stream.Reader) error {
	values, err := reader.ReadFloat32s(a.size)
	if err != nil {
		return err
	}
	a.values = values
	return nil
}

func (a *testActuator) Act(*world.Actor, float32) {
	a.acts++
}

type testClasses struct {
	sensors   map[string]*SensorClass
	actuators map[string]*ActuatorClass
	agents    map[string]*AgentClass

	createdSensors   map[string][]*testSensor
	createdActuators map[string][]*testActuator
}

func newTestClasses() *testClasses {
	return &testClasses{
		sensors:          map[string]*SensorClass{},
		actuators:        map[string]*ActuatorClass{},
		agents:           map[string]*AgentClass{},
		createdSensors:   map[string][]*testSensor{},
		createdActuators: map[string][]*testActuator{},
	}
}

func (c *testClasses) addSensor(name string, id ElementID, proto testSensor) {
	c.sensors[name] = &SensorClass{
		Name: name,
		id:   id,
		New: func() SensorImpl {
			sensor := proto
			c.createdSensors[name] = append(c.createdSensors[name], &sensor)
			return &sensor
		},
	}
}

func (c *testClasses) addActuator(name string, id ElementID, size int) {
	c.actuators[name] = &ActuatorClass{
		Name: name,
		id:   id,
		New: func() ActuatorImpl {
			actuator := &testActuator{size: size}
			c.createdActuators[name] = append(c.createdActuators[name], actuator)
			return actuator
		},
	}
}

func (c *testClasses) FindSensorClass(name string) *SensorClass {
	return c.sensors[name]
}

func (c *testClasses) FindActuatorClass(name string) *ActuatorClass {
	return c.actuators[name]
}

func (c *testClasses) FindAgentClass(name string) *AgentClass {
	return c.agents[name]
}

// testOwner binds avatars the simplest possible way: the first suitable actor of the world
type testOwner struct {
	world     *world.World
	classes   *testClasses
	requested []bool
	cleared   int
}

func newTestOwner() *testOwner {
	return &testOwner{
		world:   world.NewWorld("test", world.NetModeStandalone, nil),
		classes: newTestClasses(),
	}
}

func (o *testOwner) Classes() ClassFinder {
	return o.classes
}

func (o *testOwner) World() *world.World {
	return o.world
}

func (o *testOwner) RequestAvatarForAgent(agent *Agent, forceSearch bool) bool {
	o.requested = append(o.requested, forceSearch)
	for _, actor := range o.world.Actors(agent.AvatarClass()) {
		if agent.IsSuitableAvatar(actor) {
			return agent.SetAvatar(actor)
		}
	}
	return false
}

func (o *testOwner) ClearAvatar(agent *Agent) {
	o.cleared++
	agent.SetAvatar(nil)
}
