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

package backend

import (
	"fmt"

	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/utils"
)

// Sample is what an agent observed and earned at a given tick of a session
type Sample struct {
	SessionID    uint64
	AgentID      agents.AgentID
	Tick         uint64
	Observations []float32
	Reward       float32
	Done         bool
}

// TrajectoryKey identifies the samples of one agent during one session
type TrajectoryKey struct {
	SessionID uint64
	AgentID   agents.AgentID
}

func (k TrajectoryKey) String() string {
	return fmt.Sprintf("%d/%d", k.SessionID, k.AgentID)
}

// TrajectoryInfo summarizes a stored trajectory
type TrajectoryInfo struct {
	Key          TrajectoryKey
	SamplesCount int
	Done         bool
}

// TrajectoryFilter selects trajectories, empty lists select everything
type TrajectoryFilter struct {
	SessionIDs []uint64
	AgentIDs   []agents.AgentID
}

// AppliedTrajectoryFilter is a TrajectoryFilter ready to be matched against keys
type AppliedTrajectoryFilter struct {
	sessions utils.IDFilter[uint64]
	agents   utils.IDFilter[agents.AgentID]
}

func (f TrajectoryFilter) Apply() AppliedTrajectoryFilter {
	return AppliedTrajectoryFilter{
		sessions: utils.NewIDFilter(f.SessionIDs),
		agents:   utils.NewIDFilter(f.AgentIDs),
	}
}

func (f AppliedTrajectoryFilter) Selects(key TrajectoryKey) bool {
	return f.sessions.Selects(key.SessionID) && f.agents.Selects(key.AgentID)
}

// Backend stores samples
type Backend interface {
	Destroy()

	AddSamples(samples []*Sample) error
	// Samples returns the samples of a trajectory ordered by tick
	Samples(key TrajectoryKey) ([]*Sample, error)
	// Trajectories returns the selected trajectories ordered by key
	Trajectories(filter TrajectoryFilter) ([]TrajectoryInfo, error)
	DeleteTrajectories(keys []TrajectoryKey) error
}

// UnexpectedError is raised when the storage fails
type UnexpectedError struct {
	someErr error
}

func NewUnexpectedError(format string, a ...interface{}) *UnexpectedError {
	return &UnexpectedError{someErr: fmt.Errorf(format, a...)}
}

func (err *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error in the recorder backend: %s", err.someErr)
}

func (err *UnexpectedError) Unwrap() error {
	return err.someErr
}

// LessKey orders trajectory keys by session then agent
func LessKey(a TrajectoryKey, b TrajectoryKey) bool {
	if a.SessionID != b.SessionID {
		return a.SessionID < b.SessionID
	}
	return a.AgentID < b.AgentID
}
