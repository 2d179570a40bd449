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

const (
	SpaceParam    = "space"
	SpaceAbsolute = "absolute"
	SpaceRelative = "relative"
)

var MovementSensorClass = agents.RegisterSensorClass(agents.SensorClass{
	Name: "Sensor_Movement",
	Description: "Location and velocity of the avatar's pawn. " +
		"With space=relative the location is relative to where the pawn was when it became the avatar.",
	New: func() agents.SensorImpl {
		return &movementSensor{}
	},
})

type movementSensor struct {
	relative bool
	origin   world.Vector
	location world.Vector
	velocity world.Vector
}

func (s *movementSensor) Configure(params map[string]string) {
	value, ok := params[SpaceParam]
	if !ok {
		return
	}
	switch value {
	case SpaceAbsolute:
		s.relative = false
	case SpaceRelative:
		s.relative = true
	default:
		log.WithField("space", value).Warn("unknown movement space, ignoring")
	}
}

func (s *movementSensor) ConstructSpaceDef() space.Space {
	return space.NewBox([]int{6}, -MaxValue, MaxValue)
}

func (s *movementSensor) OnAvatarSet(avatar *world.Actor) {
	s.origin = world.Vector{}
	if pawn := world.PawnOf(avatar); pawn != nil && s.relative {
		s.origin = pawn.Location()
	}
}

func (s *movementSensor) SenseImpl(avatar *world.Actor, _ float32) {
	pawn := world.PawnOf(avatar)
	if pawn == nil {
		s.location = world.Vector{}
		s.velocity = world.Vector{}
		return
	}
	s.location = pawn.Location().Sub(s.origin)
	s.velocity = pawn.Velocity()
}

func (s *movementSensor) GetObservations(writer *stream.Writer) {
	writer.WriteFloat32s(s.location.X, s.location.Y, s.location.Z, s.velocity.X, s.velocity.Y, s.velocity.Z)
}
