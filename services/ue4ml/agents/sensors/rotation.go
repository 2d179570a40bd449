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

var RotationSensorClass = agents.RegisterSensorClass(agents.SensorClass{
	Name:        "Sensor_Rotation",
	Description: "Control rotation of the avatar's controller as pitch, yaw and roll in degrees.",
	New: func() agents.SensorImpl {
		return &rotationSensor{}
	},
})

type rotationSensor struct {
	rotation world.Rotator
}

func (s *rotationSensor) ConstructSpaceDef() space.Space {
	return space.NewBox([]int{3}, -180, 180)
}

func (s *rotationSensor) SenseImpl(avatar *world.Actor, _ float32) {
	s.rotation = world.Rotator{}
	if controller := world.ControllerOf(avatar); controller != nil {
		s.rotation = controller.Rotation()
	} else if pawn := world.PawnOf(avatar); pawn != nil {
		s.rotation = pawn.Rotation()
	}
}

func (s *rotationSensor) GetObservations(writer *stream.Writer) {
	writer.WriteFloat32s(s.rotation.Pitch, s.rotation.Yaw, s.rotation.Roll)
}
