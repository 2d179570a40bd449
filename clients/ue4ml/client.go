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

package ue4ml

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/grpcservers"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

type Client struct {
	host   string
	port   string
	dialer func(context.Context, string) (net.Conn, error)
}

func CreateClientWithInsecureEndpoint(endpoint string) (*Client, error) {
	client := &Client{}

	endpointURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("[%s] is not a valid URL: %w", endpoint, err)
	}

	if endpointURL.Scheme != "grpc" ||
		endpointURL.Path != "" ||
		endpointURL.RawQuery != "" ||
		endpointURL.RawFragment != "" ||
		endpointURL.User != nil {
		return nil, fmt.Errorf("expected an URL like \"grpc://<host>:<post>\", got [%s]",
			endpointURL,
		)
	}

	client.host = endpointURL.Hostname()
	client.port = endpointURL.Port()

	return client, nil
}

func CreateClientWithDialer(dialer func(context.Context, string) (net.Conn, error)) *Client {
	return &Client{dialer: dialer}
}

func (client *Client) createConnection(ctx context.Context) (*grpc.ClientConn, error) {
	hasCustomDialer := client.dialer != nil
	hasInsecureEndpoint := client.host != "" && client.port != ""
	if !hasCustomDialer && !hasInsecureEndpoint {
		return nil, fmt.Errorf("unable to create connection, missing endpoint or dialer")
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}

	if hasInsecureEndpoint {
		return grpc.DialContext(ctx, net.JoinHostPort(client.host, client.port), opts...)
	}

	opts = append(opts, grpc.WithContextDialer(client.dialer))
	return grpc.DialContext(ctx, "custom_dialer", opts...)
}

// Call invokes a function of the environment, args must be supported by structpb.NewValue
func (client *Client) Call(ctx context.Context, function string, args ...interface{}) (*structpb.Value, error) {
	in, err := structpb.NewList(args)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for %q: %w", function, err)
	}

	connection, err := client.createConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer connection.Close()

	out := &structpb.Value{}
	err = connection.Invoke(ctx, grpcservers.FullMethodName(function), in, out, grpc.WaitForReady(true))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func float32sArg(values []float32) []interface{} {
	res := make([]interface{}, len(values))
	for i, value := range values {
		res[i] = float64(value)
	}
	return res
}

func float32sResult(value *structpb.Value) []float32 {
	values := value.GetListValue().GetValues()
	res := make([]float32, len(values))
	for i, v := range values {
		res[i] = float32(v.GetNumberValue())
	}
	return res
}

func (client *Client) Ping(ctx context.Context) (bool, error) {
	res, err := client.Call(ctx, "ping")
	if err != nil {
		return false, err
	}
	return res.GetBoolValue(), nil
}

func (client *Client) GetName(ctx context.Context) (string, error) {
	res, err := client.Call(ctx, "get_name")
	if err != nil {
		return "", err
	}
	return res.GetStringValue(), nil
}

func (client *Client) ListFunctions(ctx context.Context) ([]string, error) {
	res, err := client.Call(ctx, "list_functions")
	if err != nil {
		return nil, err
	}
	values := res.GetListValue().GetValues()
	functions := make([]string, len(values))
	for i, value := range values {
		functions[i] = value.GetStringValue()
	}
	return functions, nil
}

func (client *Client) listTypes(ctx context.Context, function string) (map[string]uint32, error) {
	res, err := client.Call(ctx, function)
	if err != nil {
		return nil, err
	}
	types := map[string]uint32{}
	for name, value := range res.GetStructValue().GetFields() {
		types[name] = uint32(value.GetNumberValue())
	}
	return types, nil
}

func (client *Client) ListSensorTypes(ctx context.Context) (map[string]uint32, error) {
	return client.listTypes(ctx, "list_sensor_types")
}

func (client *Client) ListActuatorTypes(ctx context.Context) (map[string]uint32, error) {
	return client.listTypes(ctx, "list_actuator_types")
}

func (client *Client) GetDescription(ctx context.Context, name string) (string, error) {
	res, err := client.Call(ctx, "get_description", name)
	if err != nil {
		return "", err
	}
	return res.GetStringValue(), nil
}

func (client *Client) AddAgent(ctx context.Context) (agents.AgentID, error) {
	res, err := client.Call(ctx, "add_agent")
	if err != nil {
		return agents.InvalidAgentID, err
	}
	return agents.AgentID(res.GetNumberValue()), nil
}

// CreateAgent adds an agent configured with the given json configuration
func (client *Client) CreateAgent(ctx context.Context, config string) (agents.AgentID, error) {
	res, err := client.Call(ctx, "create_agent", config)
	if err != nil {
		return agents.InvalidAgentID, err
	}
	return agents.AgentID(res.GetNumberValue()), nil
}

func (client *Client) ConfigureAgent(ctx context.Context, agentID agents.AgentID, config string) error {
	_, err := client.Call(ctx, "configure_agent", uint32(agentID), config)
	return err
}

func (client *Client) GetAgentConfig(ctx context.Context, agentID agents.AgentID) (string, error) {
	res, err := client.Call(ctx, "get_agent_config", uint32(agentID))
	if err != nil {
		return "", err
	}
	return res.GetStringValue(), nil
}

func (client *Client) Act(ctx context.Context, agentID agents.AgentID, actions []float32) error {
	_, err := client.Call(ctx, "act", uint32(agentID), float32sArg(actions))
	return err
}

func (client *Client) GetObservations(ctx context.Context, agentID agents.AgentID) ([]float32, error) {
	res, err := client.Call(ctx, "get_observations", uint32(agentID))
	if err != nil {
		return nil, err
	}
	return float32sResult(res), nil
}

func (client *Client) GetReward(ctx context.Context, agentID agents.AgentID) (float32, error) {
	res, err := client.Call(ctx, "get_reward", uint32(agentID))
	if err != nil {
		return 0, err
	}
	return float32(res.GetNumberValue()), nil
}

func (client *Client) DescActionSpace(ctx context.Context, agentID agents.AgentID) (string, error) {
	res, err := client.Call(ctx, "desc_action_space", uint32(agentID))
	if err != nil {
		return "", err
	}
	return res.GetStringValue(), nil
}

func (client *Client) DescObservationSpace(ctx context.Context, agentID agents.AgentID) (string, error) {
	res, err := client.Call(ctx, "desc_observation_space", uint32(agentID))
	if err != nil {
		return "", err
	}
	return res.GetStringValue(), nil
}

func (client *Client) IsFinished(ctx context.Context, agentID agents.AgentID) (bool, error) {
	res, err := client.Call(ctx, "is_finished", uint32(agentID))
	if err != nil {
		return false, err
	}
	return res.GetBoolValue(), nil
}

func (client *Client) Disconnect(ctx context.Context, agentID agents.AgentID) error {
	_, err := client.Call(ctx, "disconnect", uint32(agentID))
	return err
}

func (client *Client) Reset(ctx context.Context) error {
	_, err := client.Call(ctx, "reset")
	return err
}

func (client *Client) RequestWorldTick(ctx context.Context, count uint32, wait bool) error {
	_, err := client.Call(ctx, "request_world_tick", count, wait)
	return err
}

func (client *Client) Exit(ctx context.Context) error {
	_, err := client.Call(ctx, "exit")
	return err
}

func trajectoryFilterArgs(sessionIDs []uint64, agentIDs []agents.AgentID) []interface{} {
	args := []interface{}{nil, nil}
	if len(sessionIDs) > 0 {
		ids := make([]interface{}, len(sessionIDs))
		for i, id := range sessionIDs {
			ids[i] = id
		}
		args[0] = ids
	}
	if len(agentIDs) > 0 {
		ids := make([]interface{}, len(agentIDs))
		for i, id := range agentIDs {
			ids[i] = uint32(id)
		}
		args[1] = ids
	}
	return args
}

// ListTrajectories lists the recorded trajectories, empty lists select everything
func (client *Client) ListTrajectories(
	ctx context.Context,
	sessionIDs []uint64,
	agentIDs []agents.AgentID,
) ([]backend.TrajectoryInfo, error) {
	res, err := client.Call(ctx, "list_trajectories", trajectoryFilterArgs(sessionIDs, agentIDs)...)
	if err != nil {
		return nil, err
	}
	values := res.GetListValue().GetValues()
	infos := make([]backend.TrajectoryInfo, len(values))
	for i, value := range values {
		fields := value.GetStructValue().GetFields()
		infos[i] = backend.TrajectoryInfo{
			Key: backend.TrajectoryKey{
				SessionID: uint64(fields["session_id"].GetNumberValue()),
				AgentID:   agents.AgentID(fields["agent_id"].GetNumberValue()),
			},
			SamplesCount: int(fields["samples"].GetNumberValue()),
			Done:         fields["done"].GetBoolValue(),
		}
	}
	return infos, nil
}

// GetTrajectory retrieves the recorded samples of a trajectory in tick order
func (client *Client) GetTrajectory(
	ctx context.Context,
	sessionID uint64,
	agentID agents.AgentID,
) ([]*backend.Sample, error) {
	res, err := client.Call(ctx, "get_trajectory", sessionID, uint32(agentID))
	if err != nil {
		return nil, err
	}
	values := res.GetListValue().GetValues()
	samples := make([]*backend.Sample, len(values))
	for i, value := range values {
		fields := value.GetStructValue().GetFields()
		samples[i] = &backend.Sample{
			SessionID:    sessionID,
			AgentID:      agentID,
			Tick:         uint64(fields["tick"].GetNumberValue()),
			Observations: float32sResult(fields["observations"]),
			Reward:       float32(fields["reward"].GetNumberValue()),
			Done:         fields["done"].GetBoolValue(),
		}
	}
	return samples, nil
}

// DeleteTrajectories deletes the selected trajectories and returns how many were deleted
func (client *Client) DeleteTrajectories(
	ctx context.Context,
	sessionIDs []uint64,
	agentIDs []agents.AgentID,
) (int, error) {
	res, err := client.Call(ctx, "delete_trajectories", trajectoryFilterArgs(sessionIDs, agentIDs)...)
	if err != nil {
		return 0, err
	}
	return int(res.GetNumberValue()), nil
}
