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
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/grpcservers"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const movingAgentConfig = `{
  "sensors": {"Sensor_Movement": {"params": {"space": "relative"}}},
  "actuators": {"Actuator_Movement": {}, "Actuator_InputKey": {"params": {"keys": "W,S"}}},
  "avatarClassName": "PlayerController"
}`

type managerTestFixture struct {
	manager *Manager
	cancel  context.CancelFunc
	done    chan error
	exited  bool
}

func createManagerTestFixture(t *testing.T, options Options) *managerTestFixture {
	fxt := &managerTestFixture{}
	if options.Registerer == nil {
		options.Registerer = prometheus.NewRegistry()
	}
	if options.TickRate == 0 {
		options.TickRate = 200
	}
	options.Exit = func() { fxt.exited = true }

	m, err := New(options)
	require.NoError(t, err)
	m.BindFunctions(rpc.ServerModeStandalone)

	ctx, cancel := context.WithCancel(context.Background())
	fxt.manager = m
	fxt.cancel = cancel
	fxt.done = make(chan error, 1)
	go func() {
		fxt.done <- m.Run(ctx)
	}()
	return fxt
}

func (fxt *managerTestFixture) destroy() {
	_ = fxt.manager.StopServer(context.Background())
	fxt.cancel()
	<-fxt.done
}

func (fxt *managerTestFixture) call(t *testing.T, function string, values ...interface{}) (*structpb.Value, error) {
	args, err := rpc.NewArgsFromValues(values...)
	require.NoError(t, err)
	return fxt.manager.Call(context.Background(), function, args)
}

func (fxt *managerTestFixture) mustCall(t *testing.T, function string, values ...interface{}) *structpb.Value {
	result, err := fxt.call(t, function, values...)
	require.NoError(t, err, function)
	return result
}

func TestBindFunctions(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	assert.Equal(t, rpc.ServerModeStandalone, fxt.manager.ServerMode())
	assert.Len(t, fxt.manager.Functions(), 32)
	assert.Len(t, fxt.manager.Librarian().Functions(), 32)

	assert.Equal(t, rpc.ServerModeClient, fxt.manager.BindFunctions(rpc.ServerModeClient))
	assert.Len(t, fxt.manager.Functions(), 26)
	_, err := fxt.call(t, "close_session")
	assert.Equal(t, codes.FailedPrecondition, rpc.Code(err))
	assert.True(t, fxt.mustCall(t, "ping").GetBoolValue())

	assert.Equal(t, rpc.ServerModeServer, fxt.manager.BindFunctions(rpc.ServerModeServer))
	assert.Len(t, fxt.manager.Functions(), 15)
	_, err = fxt.call(t, "add_agent")
	assert.Equal(t, codes.FailedPrecondition, rpc.Code(err))
	_, found := fxt.manager.Librarian().FunctionDescription("add_agent")
	assert.False(t, found)

	_, err = fxt.call(t, "not_a_function")
	assert.Equal(t, codes.NotFound, rpc.Code(err))
}

func TestResolveServerMode(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	assert.Equal(t, rpc.ServerModeStandalone, fxt.manager.ResolveServerMode(rpc.ServerModeAuto))
	assert.Equal(t, rpc.ServerModeClient, fxt.manager.ResolveServerMode(rpc.ServerModeClient))

	scenario := world.DefaultScenario()
	scenario.NetMode = world.NetModeDedicatedServer.String()
	dedicated := createManagerTestFixture(t, Options{Scenario: scenario})
	defer dedicated.destroy()
	assert.Equal(t, rpc.ServerModeServer, dedicated.manager.ResolveServerMode(rpc.ServerModeAuto))
}

func TestIntrospection(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{EnvName: "arena"})
	defer fxt.destroy()

	assert.Equal(t, "arena", fxt.mustCall(t, "get_name").GetStringValue())

	functions := fxt.mustCall(t, "list_functions").GetListValue().AsSlice()
	assert.Contains(t, functions, "add_agent")
	assert.Contains(t, functions, "request_world_tick")

	sensors := fxt.mustCall(t, "list_sensor_types").GetStructValue().AsMap()
	assert.Contains(t, sensors, "Sensor_Movement")
	actuators := fxt.mustCall(t, "list_actuator_types").GetStructValue().AsMap()
	assert.Contains(t, actuators, "Actuator_InputKey")

	assert.NotEqual(t, "Not Found", fxt.mustCall(t, "get_description", "act").GetStringValue())
	assert.NotEqual(t, "Not Found", fxt.mustCall(t, "get_description", "Sensor_Movement").GetStringValue())
	assert.Equal(t, "Not Found", fxt.mustCall(t, "get_description", "nothing").GetStringValue())

	_, err := fxt.call(t, "get_description")
	assert.Equal(t, codes.InvalidArgument, rpc.Code(err))
}

func TestAddAgents(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	assert.Nil(t, fxt.manager.CurrentSession())
	assert.EqualValues(t, agents.InvalidAgentID, fxt.mustCall(t, "get_recent_agent").GetNumberValue())

	assert.EqualValues(t, 0, fxt.mustCall(t, "add_agent").GetNumberValue())
	assert.EqualValues(t, 1, fxt.mustCall(t, "add_agent").GetNumberValue())
	assert.EqualValues(t, 2, fxt.mustCall(t, "add_agent").GetNumberValue())
	assert.NotNil(t, fxt.manager.CurrentSession())
	assert.EqualValues(t, 2, fxt.mustCall(t, "get_recent_agent").GetNumberValue())

	// The default scenario has two player controllers
	assert.True(t, fxt.mustCall(t, "is_agent_ready", 0).GetBoolValue())
	assert.True(t, fxt.mustCall(t, "is_agent_ready", 1).GetBoolValue())
	assert.False(t, fxt.mustCall(t, "is_agent_ready", 2).GetBoolValue())
	assert.True(t, fxt.mustCall(t, "is_ready").GetBoolValue())

	_, err := fxt.call(t, "is_agent_ready", 12)
	assert.Equal(t, codes.NotFound, rpc.Code(err))
}

func TestCreateAgentAndConfigRoundTrip(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	id := fxt.mustCall(t, "create_agent", movingAgentConfig).GetNumberValue()
	assert.EqualValues(t, 0, id)

	serialized := fxt.mustCall(t, "get_agent_config", id).GetStringValue()
	config, err := agents.ParseConfig(serialized)
	require.NoError(t, err)
	expected, err := agents.ParseConfig(movingAgentConfig)
	require.NoError(t, err)
	assert.Equal(t, expected.Sensors, config.Sensors)
	assert.Equal(t, expected.Actuators, config.Actuators)
	assert.Equal(t, expected.AvatarClassName, config.AvatarClassName)
	assert.Equal(t, expected.AvatarClassExact, config.AvatarClassExact)

	_, err = fxt.call(t, "create_agent", `{"sensors": 12}`)
	assert.Equal(t, codes.InvalidArgument, rpc.Code(err))
	_, err = fxt.call(t, "configure_agent", id, "not json")
	assert.Equal(t, codes.InvalidArgument, rpc.Code(err))
	_, err = fxt.call(t, "configure_agent", 7, movingAgentConfig)
	assert.Equal(t, codes.NotFound, rpc.Code(err))

	fxt.mustCall(t, "configure_agent", id, `{"sensors": {"Sensor_Rotation": {}}}`)
	config, err = agents.ParseConfig(fxt.mustCall(t, "get_agent_config", id).GetStringValue())
	require.NoError(t, err)
	assert.Contains(t, config.Sensors, "Sensor_Rotation")
	assert.Empty(t, config.Actuators)
}

func TestSpacesAndObservations(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	id := fxt.mustCall(t, "create_agent", movingAgentConfig).GetNumberValue()

	actionSpace := fxt.mustCall(t, "desc_action_space", id).GetStringValue()
	assert.Contains(t, actionSpace, `"Tuple"`)
	assert.Contains(t, actionSpace, `"MultiDiscrete"`)
	observationSpace := fxt.mustCall(t, "desc_observation_space", id).GetStringValue()
	assert.Contains(t, observationSpace, `"Box"`)

	observations := fxt.mustCall(t, "get_observations", id).GetListValue().AsSlice()
	assert.Len(t, observations, 6)

	batch := fxt.mustCall(t, "batch_get_observations", []interface{}{id, 42}).GetListValue().AsSlice()
	require.Len(t, batch, 2)
	assert.Len(t, batch[0], 6)
	assert.Len(t, batch[1], 0)

	_, err := fxt.call(t, "get_observations", 42)
	assert.Equal(t, codes.NotFound, rpc.Code(err))
}

func TestAct(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	id := fxt.mustCall(t, "create_agent", movingAgentConfig).GetNumberValue()

	fxt.mustCall(t, "act", id, []interface{}{1, 0, 0, 1, 0})
	// Shorter and longer action vectors are accepted
	fxt.mustCall(t, "act", id, []interface{}{1})
	fxt.mustCall(t, "act", id, []interface{}{1, 0, 0, 1, 0, 1, 1, 1})

	fxt.mustCall(t, "batch_act", []interface{}{id, 42}, []interface{}{
		[]interface{}{0, 1, 0, 0, 1},
		[]interface{}{0, 1, 0, 0, 1},
	})

	_, err := fxt.call(t, "batch_act", []interface{}{id}, []interface{}{})
	assert.Equal(t, codes.InvalidArgument, rpc.Code(err))
	_, err = fxt.call(t, "act", 42, []interface{}{1})
	assert.Equal(t, codes.NotFound, rpc.Code(err))
	_, err = fxt.call(t, "act", id, "forward")
	assert.Equal(t, codes.InvalidArgument, rpc.Code(err))
}

func TestRewardsAndFinished(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	assert.True(t, fxt.mustCall(t, "is_finished", 0).GetBoolValue())

	id := fxt.mustCall(t, "add_agent").GetNumberValue()
	assert.False(t, fxt.mustCall(t, "is_finished", id).GetBoolValue())
	assert.True(t, fxt.mustCall(t, "is_finished", 42).GetBoolValue())

	finished := fxt.mustCall(t, "batch_is_finished", []interface{}{id, 42}).GetListValue().AsSlice()
	assert.Equal(t, []interface{}{false, true}, finished)

	_, err := fxt.call(t, "get_reward", 42)
	assert.Equal(t, codes.NotFound, rpc.Code(err))
	reward := fxt.mustCall(t, "get_reward", id).GetNumberValue()
	assert.GreaterOrEqual(t, reward, float64(0))

	rewards := fxt.mustCall(t, "batch_get_rewards", []interface{}{id, 42}).GetListValue().AsSlice()
	require.Len(t, rewards, 2)
	assert.Equal(t, float64(0), rewards[1])
}

func TestDisconnect(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	_, err := fxt.call(t, "disconnect", 0)
	assert.Equal(t, codes.FailedPrecondition, rpc.Code(err))

	id := fxt.mustCall(t, "add_agent").GetNumberValue()
	fxt.mustCall(t, "disconnect", id)
	_, err = fxt.call(t, "disconnect", id)
	assert.Equal(t, codes.NotFound, rpc.Code(err))
	assert.EqualValues(t, agents.InvalidAgentID, fxt.mustCall(t, "get_recent_agent").GetNumberValue())

	// Agent ids are never reused
	assert.EqualValues(t, 1, fxt.mustCall(t, "add_agent").GetNumberValue())
}

func TestResetAndCloseSession(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	id := fxt.mustCall(t, "add_agent").GetNumberValue()
	fxt.mustCall(t, "reset")
	assert.True(t, fxt.mustCall(t, "is_agent_ready", id).GetBoolValue())

	observer := fxt.manager.SessionChanged().Subscribe()
	defer fxt.manager.SessionChanged().Unsubscribe(observer)

	fxt.mustCall(t, "close_session")
	<-observer.Receive()
	assert.Nil(t, fxt.manager.CurrentSession())

	_, err := fxt.call(t, "get_observations", id)
	assert.Equal(t, codes.FailedPrecondition, rpc.Code(err))
	assert.True(t, fxt.mustCall(t, "is_finished", id).GetBoolValue())

	// A new session starts over
	assert.EqualValues(t, 0, fxt.mustCall(t, "add_agent").GetNumberValue())
}

func TestManualWorldTick(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{ManualWorldTick: true})
	defer fxt.destroy()

	assert.True(t, fxt.manager.Loop().IsManualTick())
	fxt.mustCall(t, "add_agent")
	before := fxt.manager.Loop().TickCount()

	fxt.mustCall(t, "request_world_tick", 3, true)
	assert.Equal(t, before+3, fxt.manager.Loop().TickCount())
	assert.Equal(t, before+3, fxt.manager.CurrentSession().TickCount())

	_, err := fxt.call(t, "request_world_tick", -1)
	assert.Equal(t, codes.InvalidArgument, rpc.Code(err))

	fxt.mustCall(t, "enable_manual_world_tick", false)
	assert.False(t, fxt.manager.Loop().IsManualTick())
}

func TestTrajectories(t *testing.T) {
	r, err := recorder.New(recorder.Options{MaxTrajectories: 10})
	require.NoError(t, err)
	defer r.Destroy()

	fxt := createManagerTestFixture(t, Options{ManualWorldTick: true, Recorder: r})
	defer fxt.destroy()

	fxt.mustCall(t, "create_agent", movingAgentConfig)
	fxt.mustCall(t, "add_agent")
	fxt.mustCall(t, "request_world_tick", 2, true)
	sessionID := fxt.manager.CurrentSession().ID()

	trajectories := fxt.mustCall(t, "list_trajectories").GetListValue().GetValues()
	require.Len(t, trajectories, 2)
	first := trajectories[0].GetStructValue().GetFields()
	assert.EqualValues(t, sessionID, first["session_id"].GetNumberValue())
	assert.EqualValues(t, 0, first["agent_id"].GetNumberValue())
	assert.EqualValues(t, 2, first["samples"].GetNumberValue())

	filtered := fxt.mustCall(t, "list_trajectories", nil, []interface{}{1}).GetListValue().GetValues()
	require.Len(t, filtered, 1)
	assert.EqualValues(t, 1, filtered[0].GetStructValue().GetFields()["agent_id"].GetNumberValue())
	assert.Empty(t, fxt.mustCall(t, "list_trajectories", sessionID+1).GetListValue().GetValues())

	samples := fxt.mustCall(t, "get_trajectory", sessionID, 0).GetListValue().GetValues()
	require.Len(t, samples, 2)
	previousTick := float64(0)
	for _, sample := range samples {
		fields := sample.GetStructValue().GetFields()
		assert.Greater(t, fields["tick"].GetNumberValue(), previousTick)
		previousTick = fields["tick"].GetNumberValue()
		assert.Len(t, fields["observations"].GetListValue().GetValues(), 6)
	}
	assert.Empty(t, fxt.mustCall(t, "get_trajectory", sessionID, 42).GetListValue().GetValues())

	_, err = fxt.call(t, "get_trajectory", sessionID)
	assert.Equal(t, codes.InvalidArgument, rpc.Code(err))

	assert.EqualValues(t, 1, fxt.mustCall(t, "delete_trajectories", sessionID, 1).GetNumberValue())
	assert.Len(t, fxt.mustCall(t, "list_trajectories").GetListValue().GetValues(), 1)
}

func TestTrajectoriesWithoutRecorder(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	_, err := fxt.call(t, "list_trajectories")
	assert.Equal(t, codes.FailedPrecondition, rpc.Code(err))
	_, err = fxt.call(t, "get_trajectory", 0, 0)
	assert.Equal(t, codes.FailedPrecondition, rpc.Code(err))
}

func TestExit(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	fxt.mustCall(t, "exit")
	assert.True(t, fxt.exited)
}

func TestRPCServer(t *testing.T) {
	fxt := createManagerTestFixture(t, Options{})
	defer fxt.destroy()

	listener := bufconn.Listen(1024 * 1024)
	fxt.manager.StartServerOnListener(listener, rpc.ServerModeClient, 0)

	bufDialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}
	ctx := context.Background()
	connection, err := grpc.DialContext(ctx, "bufnet", grpc.WithContextDialer(bufDialer), grpc.WithInsecure())
	require.NoError(t, err)
	defer connection.Close()

	out := &structpb.Value{}
	err = connection.Invoke(ctx, grpcservers.FullMethodName("add_agent"), &structpb.ListValue{}, out)
	require.NoError(t, err)
	assert.EqualValues(t, 0, out.GetNumberValue())

	in, err := structpb.NewList([]interface{}{42})
	require.NoError(t, err)
	err = connection.Invoke(ctx, grpcservers.FullMethodName("get_reward"), in, out)
	assert.Equal(t, codes.NotFound, status.Code(err))

	// Server group functions aren't part of the service in client mode
	err = connection.Invoke(ctx, grpcservers.FullMethodName("close_session"), &structpb.ListValue{}, out)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
