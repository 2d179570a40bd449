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

package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents/sensors"
	"github.com/ue4ml/ue4ml/services/ue4ml/librarian"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend"
	"github.com/ue4ml/ue4ml/services/ue4ml/session"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

func createRecordedSession(t *testing.T) (*session.Session, *world.Actor) {
	l := librarian.New()
	l.GatherClasses()
	w := world.NewWorld("test", world.NetModeStandalone, nil)
	w.BeginPlay()
	pawn := w.SpawnActor(world.PawnClass, world.SpawnParams{Location: world.Vector{X: 10}})
	s := session.New(w, l, nil)
	s.Open()

	config := agents.DefaultConfig()
	config.AvatarClassName = "Pawn"
	config.Sensors[sensors.MovementSensorClass.Name] = agents.ElementConfig{}
	s.AddAgent(&config)
	s.AddAgent(&config)
	return s, pawn
}

func TestRecordInMemory(t *testing.T) {
	r, err := New(Options{MaxTrajectories: 10})
	assert.NoError(t, err)
	defer r.Destroy()

	s, _ := createRecordedSession(t)
	defer s.Close()

	for i := 0; i < 3; i++ {
		s.Tick(0.1)
		assert.NoError(t, r.Record(s))
	}

	samples, err := r.Samples(s.ID(), 0)
	assert.NoError(t, err)
	assert.Len(t, samples, 3)
	for i, sample := range samples {
		assert.Equal(t, uint64(i+1), sample.Tick)
		assert.Len(t, sample.Observations, 6)
		assert.Equal(t, float32(10), sample.Observations[0])
		assert.False(t, sample.Done)
	}

	// The second agent has no avatar
	samples, err = r.Samples(s.ID(), 1)
	assert.NoError(t, err)
	assert.Len(t, samples, 3)

	trajectories, err := r.Trajectories(backend.TrajectoryFilter{SessionIDs: []uint64{s.ID()}})
	assert.NoError(t, err)
	assert.Len(t, trajectories, 2)
}

func TestDeleteTrajectories(t *testing.T) {
	r, err := New(Options{MaxTrajectories: 10})
	assert.NoError(t, err)
	defer r.Destroy()

	s, _ := createRecordedSession(t)
	defer s.Close()

	s.Tick(0.1)
	assert.NoError(t, r.Record(s))

	deleted, err := r.DeleteTrajectories(backend.TrajectoryFilter{AgentIDs: []agents.AgentID{1}})
	assert.NoError(t, err)
	assert.Equal(t, 1, deleted)

	trajectories, err := r.Trajectories(backend.TrajectoryFilter{})
	assert.NoError(t, err)
	assert.Len(t, trajectories, 1)
	assert.Equal(t, agents.AgentID(0), trajectories[0].Key.AgentID)

	deleted, err = r.DeleteTrajectories(backend.TrajectoryFilter{SessionIDs: []uint64{s.ID() + 1}})
	assert.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestRecordToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "trajectories.db")
	r, err := New(Options{File: file})
	assert.NoError(t, err)

	s, _ := createRecordedSession(t)
	s.Tick(0.1)
	assert.NoError(t, r.Record(s))
	s.Close()
	r.Destroy()

	_, err = os.Stat(file)
	assert.NoError(t, err)

	r, err = New(Options{File: file})
	assert.NoError(t, err)
	defer r.Destroy()
	samples, err := r.Samples(s.ID(), 0)
	assert.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestRecordEmptySession(t *testing.T) {
	r, err := New(Options{})
	assert.NoError(t, err)
	defer r.Destroy()

	l := librarian.New()
	s := session.New(world.NewWorld("empty", world.NetModeStandalone, nil), l, nil)
	assert.NoError(t, r.Record(s))

	trajectories, err := r.Trajectories(backend.TrajectoryFilter{})
	assert.NoError(t, err)
	assert.Empty(t, trajectories)
}
