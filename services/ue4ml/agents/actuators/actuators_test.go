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

package actuators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/space"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

func createPossessedPawn(t *testing.T) (*world.World, *world.Actor, *world.Actor) {
	w := world.NewWorld("test", world.NetModeStandalone, nil)
	pawn := w.SpawnActor(world.PawnClass, world.SpawnParams{})
	controller := w.SpawnActor(world.PlayerControllerClass, world.SpawnParams{})
	require.NoError(t, w.Possess(controller, pawn))
	return w, pawn, controller
}

func digest(t *testing.T, impl agents.ActuatorImpl, values ...float32) {
	reader := stream.NewReaderFromFloat32s(values)
	require.NoError(t, impl.DigestInputData(reader))
	assert.Equal(t, 0, reader.Remaining())
}

func TestActuatorClassesRegistered(t *testing.T) {
	ids := map[agents.ElementID]string{}
	for _, class := range agents.ActuatorClasses() {
		ids[class.ID()] = class.Name
	}
	assert.Equal(t, "Actuator_InputKey", ids[InputKeyActuatorClass.ID()])
	assert.Equal(t, "Actuator_Movement", ids[MovementActuatorClass.ID()])
	assert.Equal(t, "Actuator_Camera", ids[CameraActuatorClass.ID()])
}

func TestInputKeyActuator(t *testing.T) {
	w, pawn, controller := createPossessedPawn(t)
	actuator := InputKeyActuatorClass.New()
	serialized, err := space.ToJSON(actuator.ConstructSpaceDef())
	require.NoError(t, err)
	assert.Equal(t, `{"MultiDiscrete":[2,2,2,2,2]}`, serialized)

	actuator.(agents.Configurable).Configure(map[string]string{KeysParam: "W, Escape,D"})
	assert.Equal(t, 2, actuator.ConstructSpaceDef().Num())

	actuator.(agents.AvatarListener).OnAvatarSet(pawn)
	digest(t, actuator, 1, 0.7)
	actuator.Act(pawn, 0.1)
	assert.Equal(t, []string{world.KeyD, world.KeyW}, controller.PressedKeys())

	w.Tick(0.5)
	assert.InDelta(t, 424.26, pawn.Velocity().X, 0.01)
	assert.InDelta(t, 424.26, pawn.Velocity().Y, 0.01)

	digest(t, actuator, 0, 1)
	actuator.Act(pawn, 0.1)
	assert.Equal(t, []string{world.KeyD}, controller.PressedKeys())

	actuator.(agents.Shutdowner).Shutdown()
	assert.Empty(t, controller.PressedKeys())

	short := stream.NewReaderFromFloat32s([]float32{1})
	assert.Error(t, actuator.DigestInputData(short))
}

func TestMovementActuator(t *testing.T) {
	w, pawn, controller := createPossessedPawn(t)
	actuator := MovementActuatorClass.New()
	assert.Equal(t, 3, actuator.ConstructSpaceDef().Num())

	digest(t, actuator, 0.5, -4, 0)
	actuator.Act(controller, 0.1)
	assert.Equal(t, world.Vector{X: 0.5, Y: -1}, pawn.MovementInput())

	w.Tick(1)
	assert.Equal(t, world.Vector{}, pawn.MovementInput())
	actuator.Act(nil, 0.1)
	assert.Equal(t, world.Vector{}, pawn.MovementInput())
}

func TestCameraActuator(t *testing.T) {
	_, pawn, controller := createPossessedPawn(t)
	actuator := CameraActuatorClass.New()
	actuator.(agents.Configurable).Configure(map[string]string{MaxDeltaParam: "10"})

	digest(t, actuator, 0.5, -1)
	actuator.Act(pawn, 0.1)
	assert.Equal(t, world.Rotator{Pitch: 5, Yaw: -10}, controller.Rotation())

	// Deltas are applied once
	actuator.Act(pawn, 0.1)
	assert.Equal(t, world.Rotator{Pitch: 5, Yaw: -10}, controller.Rotation())

	actuator.(agents.Configurable).Configure(map[string]string{MaxDeltaParam: "-3"})
	digest(t, actuator, 0, 1)
	actuator.Act(pawn, 0.1)
	assert.Equal(t, world.Rotator{Pitch: 5, Yaw: 0}, controller.Rotation())
}
