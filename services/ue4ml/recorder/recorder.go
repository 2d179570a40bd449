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
	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend/bolt"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend/memory"
	"github.com/ue4ml/ue4ml/services/ue4ml/session"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"
)

var log = logrus.WithField("component", "recorder")

type Options struct {
	// File is the path of the bolt file, the recorder keeps the trajectories in memory when empty
	File string
	// MaxTrajectories bounds the number of trajectories kept in memory
	MaxTrajectories int
}

// Recorder stores, after every session tick, what each agent observed and earned
type Recorder struct {
	backend backend.Backend
}

func New(options Options) (*Recorder, error) {
	if options.File != "" {
		b, err := bolt.CreateBoltBackend(options.File)
		if err != nil {
			return nil, err
		}
		log.WithField("file", options.File).Info("recording trajectories to file")
		return NewWithBackend(b), nil
	}

	maxTrajectories := options.MaxTrajectories
	if maxTrajectories <= 0 {
		maxTrajectories = memory.DefaultMaxTrajectories
	}
	b, err := memory.CreateMemoryBackend(maxTrajectories)
	if err != nil {
		return nil, err
	}
	log.WithField("max_trajectories", maxTrajectories).Info("recording trajectories in memory")
	return NewWithBackend(b), nil
}

func NewWithBackend(b backend.Backend) *Recorder {
	return &Recorder{backend: b}
}

func (r *Recorder) Destroy() {
	r.backend.Destroy()
}

// Record stores a sample for every agent of the session at its current tick
func (r *Recorder) Record(s *session.Session) error {
	tick := s.TickCount()
	sessionDone := s.IsDone()
	samples := []*backend.Sample{}
	for _, agent := range s.Agents() {
		writer := stream.NewWriter(0)
		agent.GetObservations(writer)
		samples = append(samples, &backend.Sample{
			SessionID:    s.ID(),
			AgentID:      agent.ID(),
			Tick:         tick,
			Observations: writer.Float32s(),
			Reward:       agent.GetReward(),
			Done:         sessionDone || agent.IsDone(),
		})
	}
	if len(samples) == 0 {
		return nil
	}
	return r.backend.AddSamples(samples)
}

func (r *Recorder) Samples(sessionID uint64, agentID agents.AgentID) ([]*backend.Sample, error) {
	return r.backend.Samples(backend.TrajectoryKey{SessionID: sessionID, AgentID: agentID})
}

func (r *Recorder) Trajectories(filter backend.TrajectoryFilter) ([]backend.TrajectoryInfo, error) {
	return r.backend.Trajectories(filter)
}

// DeleteTrajectories deletes the selected trajectories and returns how many were deleted
func (r *Recorder) DeleteTrajectories(filter backend.TrajectoryFilter) (int, error) {
	infos, err := r.backend.Trajectories(filter)
	if err != nil {
		return 0, err
	}
	keys := make([]backend.TrajectoryKey, len(infos))
	for i, info := range infos {
		keys[i] = info.Key
	}
	if err := r.backend.DeleteTrajectories(keys); err != nil {
		return 0, err
	}
	log.WithField("count", len(keys)).Debug("trajectories deleted")
	return len(keys), nil
}
