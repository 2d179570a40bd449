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
	"sync"

	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/space"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

var ScoreSensorClass = agents.RegisterSensorClass(agents.SensorClass{
	Name:        "Sensor_Score",
	Description: "Score of the avatar's player state, updated whenever the score changes.",
	New: func() agents.SensorImpl {
		return &scoreSensor{}
	},
})

// scoreSensor doesn't sample the world, it listens to the score changes of its avatar
type scoreSensor struct {
	mutex       sync.Mutex
	score       float32
	playerState *world.PlayerState
	handle      world.Handle
}

func (s *scoreSensor) DefaultTickPolicy() agents.TickPolicy {
	return agents.Never()
}

func (s *scoreSensor) ConstructSpaceDef() space.Space {
	return space.NewBox([]int{1}, -MaxValue, MaxValue)
}

func (s *scoreSensor) OnAvatarSet(avatar *world.Actor) {
	var playerState *world.PlayerState
	if avatar != nil {
		playerState = avatar.PlayerState()
	}

	s.mutex.Lock()
	previous := s.playerState
	previousHandle := s.handle
	s.playerState = playerState
	s.score = 0
	if playerState != nil {
		s.score = playerState.Score()
	}
	s.mutex.Unlock()

	if previous == playerState {
		return
	}
	if previous != nil {
		previous.RemoveOnScoreChanged(previousHandle)
	}
	if playerState != nil {
		handle := playerState.OnScoreChanged(s.onScoreChanged)
		s.mutex.Lock()
		s.handle = handle
		s.mutex.Unlock()
	}
}

func (s *scoreSensor) onScoreChanged(score float32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.score = score
}

func (s *scoreSensor) SenseImpl(avatar *world.Actor, _ float32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.playerState != nil {
		s.score = s.playerState.Score()
	}
}

func (s *scoreSensor) GetObservations(writer *stream.Writer) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	writer.WriteFloat32(s.score)
}

func (s *scoreSensor) Shutdown() {
	s.OnAvatarSet(nil)
}
