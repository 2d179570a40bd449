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

package test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend"
)

func generateSamples(sessionID uint64, agentID agents.AgentID, fromTick uint64, count int, done bool) []*backend.Sample {
	samples := make([]*backend.Sample, count)
	for i := range samples {
		tick := fromTick + uint64(i)
		samples[i] = &backend.Sample{
			SessionID:    sessionID,
			AgentID:      agentID,
			Tick:         tick,
			Observations: []float32{float32(tick), float32(agentID), -1},
			Reward:       float32(tick) / 2,
			Done:         done && i == count-1,
		}
	}
	return samples
}

func RunSuite(t *testing.T, createBackend func() backend.Backend, destroyBackend func(backend.Backend)) {
	t.Run("TestCreateBackend", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		assert.NotNil(t, b)

		trajectories, err := b.Trajectories(backend.TrajectoryFilter{})
		assert.NoError(t, err)
		assert.Empty(t, trajectories)
	})
	t.Run("TestAddAndRetrieveSamples", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		samples := generateSamples(1, 0, 0, 5, true)
		// Out of order insertion
		err := b.AddSamples(samples[3:])
		assert.NoError(t, err)
		err = b.AddSamples(samples[:3])
		assert.NoError(t, err)

		retrieved, err := b.Samples(backend.TrajectoryKey{SessionID: 1, AgentID: 0})
		assert.NoError(t, err)
		assert.Equal(t, samples, retrieved)

		retrieved, err = b.Samples(backend.TrajectoryKey{SessionID: 1, AgentID: 7})
		assert.NoError(t, err)
		assert.Empty(t, retrieved)
	})
	t.Run("TestReplaceSample", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		err := b.AddSamples(generateSamples(1, 2, 0, 3, false))
		assert.NoError(t, err)

		replacement := generateSamples(1, 2, 1, 1, true)
		replacement[0].Reward = 42
		err = b.AddSamples(replacement)
		assert.NoError(t, err)

		retrieved, err := b.Samples(backend.TrajectoryKey{SessionID: 1, AgentID: 2})
		assert.NoError(t, err)
		assert.Len(t, retrieved, 3)
		assert.Equal(t, float32(42), retrieved[1].Reward)
		assert.True(t, retrieved[1].Done)
	})
	t.Run("TestTrajectories", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		samples := []*backend.Sample{}
		samples = append(samples, generateSamples(2, 1, 0, 4, true)...)
		samples = append(samples, generateSamples(1, 3, 0, 2, false)...)
		samples = append(samples, generateSamples(1, 0, 10, 3, false)...)
		err := b.AddSamples(samples)
		assert.NoError(t, err)

		trajectories, err := b.Trajectories(backend.TrajectoryFilter{})
		assert.NoError(t, err)
		assert.Equal(t, []backend.TrajectoryInfo{
			{Key: backend.TrajectoryKey{SessionID: 1, AgentID: 0}, SamplesCount: 3, Done: false},
			{Key: backend.TrajectoryKey{SessionID: 1, AgentID: 3}, SamplesCount: 2, Done: false},
			{Key: backend.TrajectoryKey{SessionID: 2, AgentID: 1}, SamplesCount: 4, Done: true},
		}, trajectories)

		trajectories, err = b.Trajectories(backend.TrajectoryFilter{SessionIDs: []uint64{1}, AgentIDs: []agents.AgentID{3, 1}})
		assert.NoError(t, err)
		assert.Equal(t, []backend.TrajectoryInfo{
			{Key: backend.TrajectoryKey{SessionID: 1, AgentID: 3}, SamplesCount: 2, Done: false},
		}, trajectories)
	})
	t.Run("TestDeleteTrajectories", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		err := b.AddSamples(append(generateSamples(1, 0, 0, 2, false), generateSamples(1, 1, 0, 2, false)...))
		assert.NoError(t, err)

		err = b.DeleteTrajectories([]backend.TrajectoryKey{{SessionID: 1, AgentID: 0}, {SessionID: 5, AgentID: 5}})
		assert.NoError(t, err)

		trajectories, err := b.Trajectories(backend.TrajectoryFilter{})
		assert.NoError(t, err)
		assert.Len(t, trajectories, 1)
		assert.Equal(t, agents.AgentID(1), trajectories[0].Key.AgentID)
	})
}
