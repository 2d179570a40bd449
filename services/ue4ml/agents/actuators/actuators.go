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

// Package actuators contains the actuators available to the agents, they are registered on import.
package actuators

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/space"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

var log = logrus.WithField("component", "agents/actuators")

const KeysParam = "keys"

var DefaultKeys = []string{world.KeyW, world.KeyA, world.KeyS, world.KeyD, world.KeySpaceBar}

var InputKeyActuatorClass = agents.RegisterActuatorClass(agents.ActuatorClass{
	Name: "Actuator_InputKey",
	Description: "Presses keys on the avatar's controller, one on/off choice per key. " +
		"The keys are listed in the comma separated keys parameter, W,A,S,D,SpaceBar by default.",
	New: func() agents.ActuatorImpl {
		return &inputKeyActuator{
			keys:    DefaultKeys,
			pressed: make([]bool, len(DefaultKeys)),
		}
	},
})

type inputKeyActuator struct {
	keys       []string
	pressed    []bool
	controller *world.Actor
}

func (a *inputKeyActuator) Configure(params map[string]string) {
	value, ok := params[KeysParam]
	if !ok {
		return
	}
	keys := []string{}
	for _, key := range strings.Split(value, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !world.IsKnownKey(key) {
			log.WithField("key", key).Warn("unknown input key, skipping")
			continue
		}
		keys = append(keys, key)
	}
	a.keys = keys
	a.pressed = make([]bool, len(keys))
}

func (a *inputKeyActuator) ConstructSpaceDef() space.Space {
	return space.NewUniformMultiDiscrete(len(a.keys), 2)
}

func (a *inputKeyActuator) DigestInputData(reader *stream.Reader) error {
	values, err := reader.ReadFloat32s(len(a.keys))
	if err != nil {
		return err
	}
	for i, value := range values {
		a.pressed[i] = value >= 0.5
	}
	return nil
}

func (a *inputKeyActuator) OnAvatarSet(avatar *world.Actor) {
	controller := world.ControllerOf(avatar)
	if a.controller != nil && a.controller != controller {
		a.releaseKeys()
	}
	a.controller = controller
}

func (a *inputKeyActuator) Act(_ *world.Actor, _ float32) {
	if a.controller == nil {
		return
	}
	for i, key := range a.keys {
		a.controller.SetKeyPressed(key, a.pressed[i])
	}
}

func (a *inputKeyActuator) releaseKeys() {
	for _, key := range a.keys {
		a.controller.SetKeyPressed(key, false)
	}
}

func (a *inputKeyActuator) Shutdown() {
	if a.controller != nil {
		a.releaseKeys()
		a.controller = nil
	}
}

var MovementActuatorClass = agents.RegisterActuatorClass(agents.ActuatorClass{
	Name:        "Actuator_Movement",
	Description: "Movement input, in [-1, 1] along each axis, applied to the avatar's pawn every tick.",
	New: func() agents.ActuatorImpl {
		return &movementActuator{}
	},
})

type movementActuator struct {
	input world.Vector
}

func (a *movementActuator) ConstructSpaceDef() space.Space {
	return space.NewUnitBox(3)
}

func clamp(value float32, min float32, max float32) float32 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func (a *movementActuator) DigestInputData(reader *stream.Reader) error {
	values, err := reader.ReadFloat32s(3)
	if err != nil {
		return err
	}
	a.input = world.Vector{X: clamp(values[0], -1, 1), Y: clamp(values[1], -1, 1), Z: clamp(values[2], -1, 1)}
	return nil
}

func (a *movementActuator) Act(avatar *world.Actor, _ float32) {
	if pawn := world.PawnOf(avatar); pawn != nil {
		pawn.AddMovementInput(a.input)
	}
}

const (
	MaxDeltaParam   = "max_delta"
	DefaultMaxDelta = 5
)

var CameraActuatorClass = agents.RegisterActuatorClass(agents.ActuatorClass{
	Name: "Actuator_Camera",
	Description: "Pitch and yaw deltas, in [-1, 1], added once to the control rotation of the avatar's controller. " +
		"Deltas are scaled by the max_delta parameter, in degrees.",
	New: func() agents.ActuatorImpl {
		return &cameraActuator{maxDelta: DefaultMaxDelta}
	},
})

type cameraActuator struct {
	maxDelta float32
	delta    world.Rotator
}

func (a *cameraActuator) Configure(params map[string]string) {
	value, ok := params[MaxDeltaParam]
	if !ok {
		return
	}
	maxDelta, err := strconv.ParseFloat(value, 32)
	if err != nil || maxDelta <= 0 {
		log.WithField(MaxDeltaParam, value).Warn("invalid camera max delta, ignoring")
		return
	}
	a.maxDelta = float32(maxDelta)
}

func (a *cameraActuator) ConstructSpaceDef() space.Space {
	return space.NewUnitBox(2)
}

func (a *cameraActuator) DigestInputData(reader *stream.Reader) error {
	values, err := reader.ReadFloat32s(2)
	if err != nil {
		return err
	}
	a.delta = world.Rotator{
		Pitch: clamp(values[0], -1, 1) * a.maxDelta,
		Yaw:   clamp(values[1], -1, 1) * a.maxDelta,
	}
	return nil
}

func (a *cameraActuator) Act(avatar *world.Actor, _ float32) {
	controller := world.ControllerOf(avatar)
	if controller == nil {
		return
	}
	controller.SetRotation(controller.Rotation().Add(a.delta))
	a.delta = world.Rotator{}
}
