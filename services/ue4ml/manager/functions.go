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

	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/gamethread"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"github.com/ue4ml/ue4ml/services/ue4ml/session"
	"github.com/ue4ml/ue4ml/services/ue4ml/space"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"

	"github.com/sirupsen/logrus"
)

func (m *Manager) createFunctions() []*rpc.Function {
	return []*rpc.Function{
		// Common
		{Name: "list_functions", Group: rpc.GroupCommon, Handler: m.listFunctions,
			Description: "Lists all the functions available in the environment."},
		{Name: "get_description", Group: rpc.GroupCommon, Handler: m.getDescription,
			Description: "(string element_name) Describes the given function, sensor or actuator."},
		{Name: "list_sensor_types", Group: rpc.GroupCommon, Handler: m.listSensorTypes,
			Description: "Lists the sensor types available, mapped to their id."},
		{Name: "list_actuator_types", Group: rpc.GroupCommon, Handler: m.listActuatorTypes,
			Description: "Lists the actuator types available, mapped to their id."},
		{Name: "ping", Group: rpc.GroupCommon, Handler: m.ping,
			Description: "Checks that the environment is responsive, always returns true."},
		{Name: "get_name", Group: rpc.GroupCommon, Handler: m.getName,
			Description: "Returns the name of the environment."},
		{Name: "is_finished", Group: rpc.GroupCommon, Handler: m.isFinished,
			Description: "(uint agent_id) Checks if the game or the given agent is done, a missing agent is done."},
		{Name: "batch_is_finished", Group: rpc.GroupCommon, Handler: m.batchIsFinished,
			Description: "(uint[] agent_ids) Batch version of is_finished."},
		{Name: "exit", Group: rpc.GroupCommon, Handler: m.exitEnvironment,
			Description: "Closes the environment."},

		// Client
		{Name: "add_agent", Group: rpc.GroupClient, Handler: m.addAgent,
			Description: "Adds a default-configured agent to the session, returns its id."},
		{Name: "create_agent", Group: rpc.GroupClient, Handler: m.createAgent,
			Description: "(string json_config) Adds an agent configured with the given configuration, returns its id."},
		{Name: "configure_agent", Group: rpc.GroupClient, Handler: m.configureAgent,
			Description: "(uint agent_id, string json_config) Configures the given agent."},
		{Name: "get_agent_config", Group: rpc.GroupClient, Handler: m.getAgentConfig,
			Description: "(uint agent_id) Returns the json configuration of the given agent."},
		{Name: "act", Group: rpc.GroupClient, Handler: m.act,
			Description: "(uint agent_id, float[] actions) Sets the actions the agent performs on the next tick."},
		{Name: "batch_act", Group: rpc.GroupClient, Handler: m.batchAct,
			Description: "(uint[] agent_ids, float[][] actions) Batch version of act."},
		{Name: "get_observations", Group: rpc.GroupClient, Handler: m.getObservations,
			Description: "(uint agent_id) Returns the flattened observations of the given agent."},
		{Name: "batch_get_observations", Group: rpc.GroupClient, Handler: m.batchGetObservations,
			Description: "(uint[] agent_ids) Batch version of get_observations."},
		{Name: "get_reward", Group: rpc.GroupClient, Handler: m.getReward,
			Description: "(uint agent_id) Returns the current reward of the given agent."},
		{Name: "batch_get_rewards", Group: rpc.GroupClient, Handler: m.batchGetRewards,
			Description: "(uint[] agent_ids) Batch version of get_reward, missing agents get 0."},
		{Name: "desc_action_space", Group: rpc.GroupClient, Handler: m.descActionSpace,
			Description: "(uint agent_id) Returns the json description of the action space of the given agent."},
		{Name: "desc_observation_space", Group: rpc.GroupClient, Handler: m.descObservationSpace,
			Description: "(uint agent_id) Returns the json description of the observation space of the given agent."},
		{Name: "is_agent_ready", Group: rpc.GroupClient, Handler: m.isAgentReady,
			Description: "(uint agent_id) Checks if the given agent has an avatar."},
		{Name: "is_ready", Group: rpc.GroupClient, Handler: m.isReady,
			Description: "Checks if the session is ready, i.e. the match is in progress."},
		{Name: "get_recent_agent", Group: rpc.GroupClient, Handler: m.getRecentAgent,
			Description: "Returns the id of the most recently added agent."},
		{Name: "disconnect", Group: rpc.GroupClient, Handler: m.disconnect,
			Description: "(uint agent_id) Removes the given agent from the session."},
		{Name: "reset", Group: rpc.GroupClient, Handler: m.reset,
			Description: "Resets the world and requests avatars for the agents without one."},

		// Server
		{Name: "enable_manual_world_tick", Group: rpc.GroupServer, Handler: m.enableManualWorldTick,
			Description: "(bool enable) Enables or disables the manual stepping of the world."},
		{Name: "request_world_tick", Group: rpc.GroupServer, Handler: m.requestWorldTick,
			Description: "(uint count, bool wait_for_completion) Steps the world for the given number of ticks."},
		{Name: "close_session", Group: rpc.GroupServer, Handler: m.closeSession,
			Description: "Closes the current session, removing all its agents."},
		{Name: "list_trajectories", Group: rpc.GroupServer, Handler: m.listTrajectories,
			Description: "([uint[] session_ids], [uint[] agent_ids]) Lists the recorded trajectories, all of them by default."},
		{Name: "get_trajectory", Group: rpc.GroupServer, Handler: m.getTrajectory,
			Description: "(uint session_id, uint agent_id) Returns the recorded samples of the given trajectory in tick order."},
		{Name: "delete_trajectories", Group: rpc.GroupServer, Handler: m.deleteTrajectories,
			Description: "([uint[] session_ids], [uint[] agent_ids]) Deletes the recorded trajectories, returns how many were deleted."},
	}
}

func (m *Manager) existingSession() (*session.Session, error) {
	s := m.CurrentSession()
	if s == nil {
		return nil, rpc.NewNoSessionError()
	}
	return s, nil
}

func (m *Manager) findAgent(id agents.AgentID) (*agents.Agent, error) {
	s, err := m.existingSession()
	if err != nil {
		return nil, err
	}
	agent := s.GetAgent(id)
	if agent == nil {
		return nil, rpc.NewAgentNotFoundError(id)
	}
	return agent, nil
}

func (m *Manager) listFunctions(ctx context.Context, args rpc.Args) (interface{}, error) {
	return m.scribe.ListFunctions(), nil
}

func (m *Manager) getDescription(ctx context.Context, args rpc.Args) (interface{}, error) {
	name, err := args.String(0)
	if err != nil {
		return nil, err
	}
	return m.scribe.GetDescription(name), nil
}

func (m *Manager) listSensorTypes(ctx context.Context, args rpc.Args) (interface{}, error) {
	return m.scribe.ListSensorTypes(), nil
}

func (m *Manager) listActuatorTypes(ctx context.Context, args rpc.Args) (interface{}, error) {
	return m.scribe.ListActuatorTypes(), nil
}

func (m *Manager) ping(ctx context.Context, args rpc.Args) (interface{}, error) {
	return true, nil
}

func (m *Manager) getName(ctx context.Context, args rpc.Args) (interface{}, error) {
	return m.envName, nil
}

func (m *Manager) agentIsFinished(s *session.Session, id agents.AgentID) bool {
	if s == nil || s.IsDone() {
		return true
	}
	agent := s.GetAgent(id)
	return agent == nil || agent.IsDone()
}

func (m *Manager) isFinished(ctx context.Context, args rpc.Args) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	return m.agentIsFinished(m.CurrentSession(), id), nil
}

func (m *Manager) batchIsFinished(ctx context.Context, args rpc.Args) (interface{}, error) {
	ids, err := args.AgentIDs(0)
	if err != nil {
		return nil, err
	}
	s := m.CurrentSession()
	finished := make([]bool, len(ids))
	for i, id := range ids {
		finished[i] = m.agentIsFinished(s, id)
	}
	return finished, nil
}

func (m *Manager) exitEnvironment(ctx context.Context, args rpc.Args) (interface{}, error) {
	log.Info("exit requested")
	if m.exit != nil {
		m.exit()
	}
	return nil, nil
}

func (m *Manager) addAgent(ctx context.Context, args rpc.Args) (interface{}, error) {
	return gamethread.Call(ctx, m.loop, func() (agents.AgentID, error) {
		return m.GetSession().AddAgent(nil), nil
	})
}

func (m *Manager) createAgent(ctx context.Context, args rpc.Args) (interface{}, error) {
	serializedConfig, err := args.String(0)
	if err != nil {
		return nil, err
	}
	config, err := agents.ParseConfig(serializedConfig)
	if err != nil {
		return nil, rpc.NewArgumentError(0, "%v", err)
	}
	return gamethread.Call(ctx, m.loop, func() (agents.AgentID, error) {
		return m.GetSession().AddAgent(&config), nil
	})
}

func (m *Manager) configureAgent(ctx context.Context, args rpc.Args) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	serializedConfig, err := args.String(1)
	if err != nil {
		return nil, err
	}
	config, err := agents.ParseConfig(serializedConfig)
	if err != nil {
		return nil, rpc.NewArgumentError(1, "%v", err)
	}
	return nil, m.loop.Do(ctx, func() error {
		agent, err := m.findAgent(id)
		if err != nil {
			return err
		}
		agent.Configure(config)
		return nil
	})
}

func (m *Manager) getAgentConfig(ctx context.Context, args rpc.Args) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	agent, err := m.findAgent(id)
	if err != nil {
		return nil, err
	}
	return agent.Config().ToJSON()
}

func (m *Manager) act(ctx context.Context, args rpc.Args) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	actions, err := args.Float32s(1)
	if err != nil {
		return nil, err
	}
	agent, err := m.findAgent(id)
	if err != nil {
		return nil, err
	}
	agent.DigestActions(stream.NewReaderFromFloat32s(actions))
	return nil, nil
}

func (m *Manager) batchAct(ctx context.Context, args rpc.Args) (interface{}, error) {
	ids, err := args.AgentIDs(0)
	if err != nil {
		return nil, err
	}
	actions, err := args.Float32sList(1)
	if err != nil {
		return nil, err
	}
	if len(actions) != len(ids) {
		return nil, rpc.NewArgumentError(1, "expected %d action vectors, got %d", len(ids), len(actions))
	}
	s, err := m.existingSession()
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		agent := s.GetAgent(id)
		if agent == nil {
			log.WithField("agent_id", id).Debug("skipping actions of a missing agent")
			continue
		}
		agent.DigestActions(stream.NewReaderFromFloat32s(actions[i]))
	}
	return nil, nil
}

func observationsOf(agent *agents.Agent) []float32 {
	writer := stream.NewWriter(agent.ObservationSpace().Num() * stream.ElementSize)
	agent.GetObservations(writer)
	return writer.Float32s()
}

func (m *Manager) getObservations(ctx context.Context, args rpc.Args) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	agent, err := m.findAgent(id)
	if err != nil {
		return nil, err
	}
	return observationsOf(agent), nil
}

func (m *Manager) batchGetObservations(ctx context.Context, args rpc.Args) (interface{}, error) {
	ids, err := args.AgentIDs(0)
	if err != nil {
		return nil, err
	}
	s := m.CurrentSession()
	observations := make([][]float32, len(ids))
	for i, id := range ids {
		observations[i] = []float32{}
		if s == nil {
			continue
		}
		if agent := s.GetAgent(id); agent != nil {
			observations[i] = observationsOf(agent)
		}
	}
	return observations, nil
}

func (m *Manager) getReward(ctx context.Context, args rpc.Args) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	agent, err := m.findAgent(id)
	if err != nil {
		return nil, err
	}
	return agent.GetReward(), nil
}

func (m *Manager) batchGetRewards(ctx context.Context, args rpc.Args) (interface{}, error) {
	ids, err := args.AgentIDs(0)
	if err != nil {
		return nil, err
	}
	s := m.CurrentSession()
	rewards := make([]float32, len(ids))
	for i, id := range ids {
		if s == nil {
			continue
		}
		if agent := s.GetAgent(id); agent != nil {
			rewards[i] = agent.GetReward()
		}
	}
	return rewards, nil
}

func (m *Manager) describeSpace(ctx context.Context, args rpc.Args, spaceOf func(agent *agents.Agent) *space.TupleSpace) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	return gamethread.Call(ctx, m.loop, func() (string, error) {
		agent, err := m.findAgent(id)
		if err != nil {
			return "", err
		}
		return space.ToJSON(spaceOf(agent))
	})
}

func (m *Manager) descActionSpace(ctx context.Context, args rpc.Args) (interface{}, error) {
	return m.describeSpace(ctx, args, (*agents.Agent).ActionSpace)
}

func (m *Manager) descObservationSpace(ctx context.Context, args rpc.Args) (interface{}, error) {
	return m.describeSpace(ctx, args, (*agents.Agent).ObservationSpace)
}

func (m *Manager) isAgentReady(ctx context.Context, args rpc.Args) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	return gamethread.Call(ctx, m.loop, func() (bool, error) {
		agent, err := m.findAgent(id)
		if err != nil {
			return false, err
		}
		return agent.IsReady(), nil
	})
}

func (m *Manager) isReady(ctx context.Context, args rpc.Args) (interface{}, error) {
	return gamethread.Call(ctx, m.loop, func() (bool, error) {
		s := m.CurrentSession()
		return s != nil && s.IsReady(), nil
	})
}

func (m *Manager) getRecentAgent(ctx context.Context, args rpc.Args) (interface{}, error) {
	s := m.CurrentSession()
	if s == nil {
		return agents.InvalidAgentID, nil
	}
	return s.LastAgentID(), nil
}

func (m *Manager) disconnect(ctx context.Context, args rpc.Args) (interface{}, error) {
	id, err := args.AgentID(0)
	if err != nil {
		return nil, err
	}
	return nil, m.loop.Do(ctx, func() error {
		s, err := m.existingSession()
		if err != nil {
			return err
		}
		if !s.RemoveAgent(id) {
			return rpc.NewAgentNotFoundError(id)
		}
		return nil
	})
}

func (m *Manager) reset(ctx context.Context, args rpc.Args) (interface{}, error) {
	return nil, m.loop.Do(ctx, func() error {
		m.GetSession().ResetWorld()
		return nil
	})
}

func (m *Manager) enableManualWorldTick(ctx context.Context, args rpc.Args) (interface{}, error) {
	enable, err := args.Bool(0)
	if err != nil {
		return nil, err
	}
	m.loop.EnableManualTick(enable)
	log.WithField("enabled", enable).Info("manual world tick toggled")
	return nil, nil
}

func (m *Manager) requestWorldTick(ctx context.Context, args rpc.Args) (interface{}, error) {
	count, err := args.Uint(0)
	if err != nil {
		return nil, err
	}
	wait, err := args.OptionalBool(1, false)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"count": count, "wait": wait}).Debug("world ticks requested")
	return nil, m.loop.RequestTicks(ctx, count, wait)
}

func (m *Manager) closeSession(ctx context.Context, args rpc.Args) (interface{}, error) {
	return nil, m.loop.Do(ctx, func() error {
		m.SetSession(nil)
		return nil
	})
}
