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

package sensors

import (
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/space"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

const AttributesParam = "attributes"

var AttributeSensorClass = agents.RegisterSensorClass(agents.SensorClass{
	Name:        "Sensor_Attribute",
	Description: "Named attributes of the avatar's pawn, listed in the comma separated attributes parameter.",
	New: func() agents.SensorImpl {
		return &attributeSensor{}
	},
})

type attributeSensor struct {
	names  []string
	values []float32
}

func (s *attributeSensor) Configure(params map[string]string) {
	if value, ok := params[AttributesParam]; ok {
		s.names = splitList(value)
		s.values = make([]float32, len(s.names))
	}
}

func (s *attributeSensor) ConstructSpaceDef() space.Space {
	if len(s.names) == 0 {
		return space.NewDummy()
	}
	return space.NewBox([]int{len(s.names)}, -MaxValue, MaxValue)
}

func (s *attributeSensor) SenseImpl(avatar *world.Actor, _ float32) {
	source := world.PawnOf(avatar)
	if source == nil {
		source = avatar
	}
	for i, name := range s.names {
		s.values[i] = 0
		if source == nil {
			continue
		}
		if value, ok := source.Attribute(name); ok {
			s.values[i] = value
		}
	}
}

func (s *attributeSensor) GetObservations(writer *stream.Writer) {
	writer.WriteFloat32s(s.values...)
}
