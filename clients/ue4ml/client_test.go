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
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/manager"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type clientTestFixture struct {
	ctx     context.Context
	client  *Client
	manager *manager.Manager
	cancel  context.CancelFunc
	done    chan error
}

func createClientTestFixture(t *testing.T, mode rpc.ServerMode) *clientTestFixture {
	return createClientTestFixtureWithOptions(t, mode, manager.Options{})
}

func createClientTestFixtureWithOptions(t *testing.T, mode rpc.ServerMode, options manager.Options) *clientTestFixture {
	options.EnvName = "client_test"
	options.TickRate = 200
	options.Registerer = prometheus.NewRegistry()
	m, err := manager.New(options)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	listener := bufconn.Listen(1024 * 1024)
	m.StartServerOnListener(listener, mode, 0)

	return &clientTestFixture{
		ctx: context.Background(),
		client: CreateClientWithDialer(func(context.Context, string) (net.Conn, error) {
			return listener.Dial()
		}),
		manager: m,
		cancel:  cancel,
		done:    done,
	}
}

func (fxt *clientTestFixture) destroy() {
	_ = fxt.manager.StopServer(context.Background())
	fxt.cancel()
	<-fxt.done
}

func TestCreateClientWithInsecureEndpoint(t *testing.T) {
	client, err := CreateClientWithInsecureEndpoint("grpc://localhost:15151")
	assert.NoError(t, err)
	assert.Equal(t, "localhost", client.host)
	assert.Equal(t, "15151", client.port)

	_, err = CreateClientWithInsecureEndpoint("http://localhost:15151")
	assert.Error(t, err)
	_, err = CreateClientWithInsecureEndpoint("grpc://localhost:15151/path")
	assert.Error(t, err)
}

func TestIntrospection(t *testing.T) {
	fxt := createClientTestFixture(t, rpc.ServerModeStandalone)
	defer fxt.destroy()

	ok, err := fxt.client.Ping(fxt.ctx)
	assert.NoError(t, err)
	assert.True(t, ok)

	name, err := fxt.client.GetName(fxt.ctx)
	assert.NoError(t, err)
	assert.Equal(t, "client_test", name)

	functions, err := fxt.client.ListFunctions(fxt.ctx)
	assert.NoError(t, err)
	assert.Contains(t, functions, "get_observations")

	sensors, err := fxt.client.ListSensorTypes(fxt.ctx)
	assert.NoError(t, err)
	assert.Contains(t, sensors, "Sensor_Rotation")

	actuators, err := fxt.client.ListActuatorTypes(fxt.ctx)
	assert.NoError(t, err)
	assert.Contains(t, actuators, "Actuator_Camera")

	description, err := fxt.client.GetDescription(fxt.ctx, "unknown")
	assert.NoError(t, err)
	assert.Equal(t, "Not Found", description)
}

func TestAgentLifecycle(t *testing.T) {
	fxt := createClientTestFixture(t, rpc.ServerModeStandalone)
	defer fxt.destroy()

	agentID, err := fxt.client.CreateAgent(fxt.ctx, `{"sensors": {"Sensor_Rotation": {}}, "actuators": {"Actuator_Camera": {}}}`)
	require.NoError(t, err)
	assert.EqualValues(t, 0, agentID)

	actionSpace, err := fxt.client.DescActionSpace(fxt.ctx, agentID)
	assert.NoError(t, err)
	assert.Contains(t, actionSpace, "Box")

	observationSpace, err := fxt.client.DescObservationSpace(fxt.ctx, agentID)
	assert.NoError(t, err)
	assert.Contains(t, observationSpace, "Box")

	assert.NoError(t, fxt.client.Act(fxt.ctx, agentID, []float32{0.5, -0.5}))

	observations, err := fxt.client.GetObservations(fxt.ctx, agentID)
	assert.NoError(t, err)
	assert.Len(t, observations, 3)

	_, err = fxt.client.GetReward(fxt.ctx, agentID)
	assert.NoError(t, err)

	finished, err := fxt.client.IsFinished(fxt.ctx, agentID)
	assert.NoError(t, err)
	assert.False(t, finished)

	assert.NoError(t, fxt.client.Disconnect(fxt.ctx, agentID))
	err = fxt.client.Disconnect(fxt.ctx, agentID)
	assert.Equal(t, codes.NotFound, status.Code(err))

	finished, err = fxt.client.IsFinished(fxt.ctx, agentID)
	assert.NoError(t, err)
	assert.True(t, finished)
}

func TestServerMode(t *testing.T) {
	fxt := createClientTestFixture(t, rpc.ServerModeServer)
	defer fxt.destroy()

	_, err := fxt.client.AddAgent(fxt.ctx)
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	fxt.manager.Loop().EnableManualTick(true)
	assert.NoError(t, fxt.client.RequestWorldTick(fxt.ctx, 2, true))
}

func TestTrajectories(t *testing.T) {
	r, err := recorder.New(recorder.Options{MaxTrajectories: 10})
	require.NoError(t, err)
	defer r.Destroy()

	fxt := createClientTestFixtureWithOptions(t, rpc.ServerModeStandalone, manager.Options{
		ManualWorldTick: true,
		Recorder:        r,
	})
	defer fxt.destroy()

	agentID, err := fxt.client.CreateAgent(fxt.ctx, `{"sensors": {"Sensor_Rotation": {}}}`)
	require.NoError(t, err)
	require.NoError(t, fxt.client.RequestWorldTick(fxt.ctx, 3, true))

	infos, err := fxt.client.ListTrajectories(fxt.ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, agentID, infos[0].Key.AgentID)
	assert.Equal(t, 3, infos[0].SamplesCount)
	sessionID := infos[0].Key.SessionID

	samples, err := fxt.client.GetTrajectory(fxt.ctx, sessionID, agentID)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	for _, sample := range samples {
		assert.Equal(t, sessionID, sample.SessionID)
		assert.Len(t, sample.Observations, 3)
	}

	infos, err = fxt.client.ListTrajectories(fxt.ctx, []uint64{sessionID}, []agents.AgentID{agentID + 1})
	require.NoError(t, err)
	assert.Empty(t, infos)

	deleted, err := fxt.client.DeleteTrajectories(fxt.ctx, []uint64{sessionID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestTrajectoriesInClientMode(t *testing.T) {
	fxt := createClientTestFixture(t, rpc.ServerModeClient)
	defer fxt.destroy()

	_, err := fxt.client.ListTrajectories(fxt.ctx, nil, nil)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
