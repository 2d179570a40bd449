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

package manager

import (
	"context"

	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"

	"google.golang.org/protobuf/types/known/structpb"
)

func trajectoryInfoValue(info backend.TrajectoryInfo) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewNumberValue(float64(info.Key.SessionID)),
		"agent_id":   structpb.NewNumberValue(float64(info.Key.AgentID)),
		"samples":    structpb.NewNumberValue(float64(info.SamplesCount)),
		"done":       structpb.NewBoolValue(info.Done),
	}})
}

func sampleValue(sample *backend.Sample) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"tick":         structpb.NewNumberValue(float64(sample.Tick)),
		"observations": rpc.Float32sValue(sample.Observations),
		"reward":       structpb.NewNumberValue(float64(sample.Reward)),
		"done":         structpb.NewBoolValue(sample.Done),
	}})
}

func trajectoryFilterArgs(args rpc.Args) (backend.TrajectoryFilter, error) {
	sessionIDs, err := args.OptionalUints(0)
	if err != nil {
		return backend.TrajectoryFilter{}, err
	}
	agentIDs, err := args.OptionalAgentIDs(1)
	if err != nil {
		return backend.TrajectoryFilter{}, err
	}
	return backend.TrajectoryFilter{SessionIDs: sessionIDs, AgentIDs: agentIDs}, nil
}

func (m *Manager) listTrajectories(ctx context.Context, args rpc.Args) (interface{}, error) {
	if m.recorder == nil {
		return nil, rpc.NewRecordingDisabledError()
	}
	filter, err := trajectoryFilterArgs(args)
	if err != nil {
		return nil, err
	}
	infos, err := m.recorder.Trajectories(filter)
	if err != nil {
		return nil, err
	}
	values := make([]*structpb.Value, len(infos))
	for i, info := range infos {
		values[i] = trajectoryInfoValue(info)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
}

func (m *Manager) getTrajectory(ctx context.Context, args rpc.Args) (interface{}, error) {
	if m.recorder == nil {
		return nil, rpc.NewRecordingDisabledError()
	}
	sessionID, err := args.Uint(0)
	if err != nil {
		return nil, err
	}
	agentID, err := args.AgentID(1)
	if err != nil {
		return nil, err
	}
	samples, err := m.recorder.Samples(sessionID, agentID)
	if err != nil {
		return nil, err
	}
	values := make([]*structpb.Value, len(samples))
	for i, sample := range samples {
		values[i] = sampleValue(sample)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
}

func (m *Manager) deleteTrajectories(ctx context.Context, args rpc.Args) (interface{}, error) {
	if m.recorder == nil {
		return nil, rpc.NewRecordingDisabledError()
	}
	filter, err := trajectoryFilterArgs(args)
	if err != nil {
		return nil, err
	}
	deleted, err := m.recorder.DeleteTrajectories(filter)
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
