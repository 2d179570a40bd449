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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents/actuators"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents/sensors"
	"github.com/ue4ml/ue4ml/services/ue4ml/librarian"
)

func createScribe() *Scribe {
	l := librarian.New()
	l.GatherClasses()
	l.RegisterFunction("Ping", "Returns true")
	l.RegisterFunction("get_name", "Name of the environment")
	return New(l)
}

func TestListFunctions(t *testing.T) {
	s := createScribe()
	assert.Equal(t, []string{"ping", "get_name"}, s.ListFunctions())
}

func TestListTypes(t *testing.T) {
	s := createScribe()

	sensorTypes := s.ListSensorTypes()
	assert.Len(t, sensorTypes, 4)
	assert.Equal(t, uint32(sensors.MovementSensorClass.ID()), sensorTypes["Sensor_Movement"])
	assert.Equal(t, uint32(sensors.ScoreSensorClass.ID()), sensorTypes["Sensor_Score"])

	actuatorTypes := s.ListActuatorTypes()
	assert.Len(t, actuatorTypes, 3)
	assert.Equal(t, uint32(actuators.InputKeyActuatorClass.ID()), actuatorTypes["Actuator_InputKey"])
}

func TestGetDescription(t *testing.T) {
	s := createScribe()

	assert.Equal(t, "Returns true", s.GetDescription("ping"))
	assert.Equal(t, "Name of the environment", s.GetDescription("GET_NAME"))
	assert.Equal(t, sensors.RotationSensorClass.Description, s.GetDescription("Sensor_Rotation"))
	assert.Equal(t, actuators.CameraActuatorClass.Description, s.GetDescription("Actuator_Camera"))
	assert.Equal(t, NotFound, s.GetDescription("Sensor_Unknown"))
}
