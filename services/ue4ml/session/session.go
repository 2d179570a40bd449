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

package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

var log = logrus.WithField("component", "session")

type SimulationState int

const (
	SimulationStateBootingUp SimulationState = iota
	SimulationStateInProgress
	SimulationStateFinished
)

func (s SimulationState) String() string {
	switch s {
	case SimulationStateBootingUp:
		return "booting_up"
	case SimulationStateInProgress:
		return "in_progress"
	case SimulationStateFinished:
		return "finished"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func simulationStateFromMatchState(state world.MatchState) SimulationState {
	switch state {
	case world.MatchStateInProgress:
		return SimulationStateInProgress
	case world.MatchStateWaitingPostMatch, world.MatchStateLeavingMap, world.MatchStateAborted:
		return SimulationStateFinished
	default:
		return SimulationStateBootingUp
	}
}

var lastSessionID uint64

// Session holds the agents taking part to one episode of a world.
//
// Agents are stored in slots indexed by their AgentID. Removing an agent empties its slot, slots are never reused.
type Session struct {
	id                uint64
	world             *world.World
	classes           agents.ClassFinder
	defaultAgentClass *agents.AgentClass

	mutex           sync.RWMutex
	agents          []*agents.Agent
	awaitingAvatar  []*agents.Agent
	avatarToAgent   map[world.UniqueID]*agents.Agent
	simulationState SimulationState
	open            bool
	tickCount       uint64

	actorSpawnedHandle      world.Handle
	matchStateChangedHandle world.Handle

	beforeAgentRemoved world.Listeners[*agents.Agent]
}

// New creates a closed session for the given world, a nil defaultAgentClass means agents.DefaultAgentClass
func New(w *world.World, classes agents.ClassFinder, defaultAgentClass *agents.AgentClass) *Session {
	if defaultAgentClass == nil {
		defaultAgentClass = agents.DefaultAgentClass
	}
	return &Session{
		id:                atomic.AddUint64(&lastSessionID, 1),
		world:             w,
		classes:           classes,
		defaultAgentClass: defaultAgentClass,
		avatarToAgent:     map[world.UniqueID]*agents.Agent{},
		simulationState:   SimulationStateBootingUp,
	}
}

// ID identifies the session among the sessions created by the process
func (s *Session) ID() uint64 {
	return s.id
}

func (s *Session) Classes() agents.ClassFinder {
	return s.classes
}

func (s *Session) World() *world.World {
	return s.world
}

func (s *Session) log() *logrus.Entry {
	return log.WithField("session_id", s.id)
}

// Open starts listening to the world and looks for avatars for the agents already waiting
func (s *Session) Open() {
	s.mutex.Lock()
	if s.open {
		s.mutex.Unlock()
		return
	}
	s.open = true
	s.mutex.Unlock()

	state := SimulationStateInProgress
	var actorSpawnedHandle, matchStateChangedHandle world.Handle
	if s.world != nil {
		actorSpawnedHandle = s.world.OnActorSpawned(s.onActorSpawned)
		if gameMode := s.world.GameMode(); gameMode != nil {
			matchStateChangedHandle = gameMode.OnMatchStateChanged(s.onMatchStateChanged)
			state = simulationStateFromMatchState(gameMode.MatchState())
		}
	}

	s.mutex.Lock()
	s.actorSpawnedHandle = actorSpawnedHandle
	s.matchStateChangedHandle = matchStateChangedHandle
	s.simulationState = state
	s.mutex.Unlock()

	s.log().WithField("simulation_state", state).Debug("session opened")
	s.FindAvatars()
}

// Close stops listening to the world and removes every agent
func (s *Session) Close() {
	s.mutex.Lock()
	if !s.open {
		s.mutex.Unlock()
		return
	}
	s.open = false
	actorSpawnedHandle := s.actorSpawnedHandle
	matchStateChangedHandle := s.matchStateChangedHandle
	s.mutex.Unlock()

	if s.world != nil {
		s.world.RemoveOnActorSpawned(actorSpawnedHandle)
		if gameMode := s.world.GameMode(); gameMode != nil {
			gameMode.RemoveOnMatchStateChanged(matchStateChangedHandle)
		}
	}

	for _, agent := range s.Agents() {
		s.RemoveAgent(agent.ID())
	}

	s.mutex.Lock()
	s.simulationState = SimulationStateFinished
	s.mutex.Unlock()
	s.log().Debug("session closed")
}

func (s *Session) IsOpen() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.open
}

func (s *Session) SimulationState() SimulationState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.simulationState
}

func (s *Session) onMatchStateChanged(state world.MatchState) {
	simulationState := simulationStateFromMatchState(state)

	s.mutex.Lock()
	previous := s.simulationState
	s.simulationState = simulationState
	s.mutex.Unlock()

	if previous != simulationState {
		s.log().WithFields(logrus.Fields{
			"match_state":      state,
			"simulation_state": simulationState,
		}).Debug("simulation state changed")
	}
	s.FindAvatars()
}

// IsDone returns true once the simulation or the match is over
func (s *Session) IsDone() bool {
	if s.SimulationState() == SimulationStateFinished {
		return true
	}
	if s.world != nil && s.world.GameMode() != nil {
		return s.world.GameMode().HasMatchEnded()
	}
	return false
}

// IsReady returns true while the match is running
func (s *Session) IsReady() bool {
	if s.SimulationState() != SimulationStateInProgress {
		return false
	}
	if s.world != nil && s.world.GameMode() != nil {
		gameMode := s.world.GameMode()
		return gameMode.HasMatchStarted() && !gameMode.HasMatchEnded()
	}
	return true
}

// AddAgent creates an agent and configures it, a nil config means the default configuration
func (s *Session) AddAgent(config *agents.Config) agents.AgentID {
	if config == nil {
		defaultConfig := agents.DefaultConfig()
		config = &defaultConfig
	}

	class := s.defaultAgentClass
	if config.AgentClassName != "" {
		if found := s.classes.FindAgentClass(config.AgentClassName); found != nil {
			class = found
		} else {
			s.log().WithField("agent_class", config.AgentClassName).Warn("unknown agent class, using the default one")
		}
	}

	s.mutex.Lock()
	if uint64(len(s.agents)) >= uint64(agents.InvalidAgentID) {
		s.mutex.Unlock()
		s.log().Error("no more agent ids available")
		return agents.InvalidAgentID
	}
	id := agents.AgentID(len(s.agents))
	agent := agents.NewAgent(id, class, s)
	s.agents = append(s.agents, agent)
	s.mutex.Unlock()

	s.log().WithFields(logrus.Fields{"agent_id": id, "agent_class": class.Name}).Debug("agent added")
	agent.Configure(*config)
	return id
}

// GetAgent returns nil for unknown or removed agents
func (s *Session) GetAgent(id agents.AgentID) *agents.Agent {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if int64(id) >= int64(len(s.agents)) {
		return nil
	}
	return s.agents[id]
}

// Agents returns the live agents ordered by AgentID
func (s *Session) Agents() []*agents.Agent {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	result := make([]*agents.Agent, 0, len(s.agents))
	for _, agent := range s.agents {
		if agent != nil {
			result = append(result, agent)
		}
	}
	return result
}

// LastAgentID is the id of the most recently added agent still in the session, InvalidAgentID if none
func (s *Session) LastAgentID() agents.AgentID {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for i := len(s.agents) - 1; i >= 0; i-- {
		if s.agents[i] != nil {
			return agents.AgentID(i)
		}
	}
	return agents.InvalidAgentID
}

func (s *Session) OnBeforeAgentRemoved(fn func(agent *agents.Agent)) world.Handle {
	return s.beforeAgentRemoved.Add(fn)
}

func (s *Session) RemoveOnBeforeAgentRemoved(handle world.Handle) {
	s.beforeAgentRemoved.Remove(handle)
}

// RemoveAgent removes the agent from the session, returns false if there was no such agent
func (s *Session) RemoveAgent(id agents.AgentID) bool {
	agent := s.GetAgent(id)
	if agent == nil {
		return false
	}
	s.beforeAgentRemoved.Broadcast(agent)

	s.mutex.Lock()
	if s.agents[id] != agent {
		s.mutex.Unlock()
		return false
	}
	s.agents[id] = nil
	s.removeAwaitingLocked(agent)
	for avatarID, boundAgent := range s.avatarToAgent {
		if boundAgent == agent {
			delete(s.avatarToAgent, avatarID)
		}
	}
	s.mutex.Unlock()

	agent.Release()
	s.log().WithField("agent_id", id).Debug("agent removed")
	return true
}

func (s *Session) isAwaitingLocked(agent *agents.Agent) bool {
	for _, awaiting := range s.awaitingAvatar {
		if awaiting == agent {
			return true
		}
	}
	return false
}

func (s *Session) removeAwaitingLocked(agent *agents.Agent) {
	for i, awaiting := range s.awaitingAvatar {
		if awaiting == agent {
			s.awaitingAvatar = append(s.awaitingAvatar[:i], s.awaitingAvatar[i+1:]...)
			return
		}
	}
}

func (s *Session) isRegisteredLocked(agent *agents.Agent) bool {
	id := agent.ID()
	return int64(id) < int64(len(s.agents)) && s.agents[id] == agent
}

// AwaitingAvatar returns the ids of the agents waiting for an avatar, in request order
func (s *Session) AwaitingAvatar() []agents.AgentID {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ids := make([]agents.AgentID, 0, len(s.awaitingAvatar))
	for _, agent := range s.awaitingAvatar {
		ids = append(ids, agent.ID())
	}
	return ids
}

// AgentForAvatar returns the agent bound to the actor, nil if none
func (s *Session) AgentForAvatar(actor *world.Actor) *agents.Agent {
	if actor == nil {
		return nil
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.avatarToAgent[actor.ID()]
}

// RequestAvatarForAgent marks the agent as awaiting an avatar and binds it to the first free suitable actor
// of the world.
//
// Agents already having an avatar are refused. Without forceSearch, agents already awaiting are refused too.
// It returns true if an avatar was bound.
func (s *Session) RequestAvatarForAgent(agent *agents.Agent, forceSearch bool) bool {
	log := s.log().WithField("agent_id", agent.ID())

	if agent.Avatar() != nil {
		log.Warn("agent already has an avatar, it must be cleared before requesting a new one")
		return false
	}

	s.mutex.Lock()
	if !s.isRegisteredLocked(agent) {
		s.mutex.Unlock()
		log.Warn("agent doesn't belong to the session")
		return false
	}
	if s.isAwaitingLocked(agent) {
		if !forceSearch {
			s.mutex.Unlock()
			log.Trace("agent already awaiting an avatar")
			return false
		}
	} else {
		s.awaitingAvatar = append(s.awaitingAvatar, agent)
	}
	s.mutex.Unlock()

	if s.world == nil {
		return false
	}
	for _, actor := range s.world.Actors(agent.AvatarClass()) {
		if !actor.IsValid() || !agent.IsSuitableAvatar(actor) || s.AgentForAvatar(actor) != nil {
			continue
		}
		if s.BindAvatar(agent, actor) {
			return agent.Avatar() == actor
		}
	}
	log.WithField("avatar_class", agent.AvatarClass().Name()).Debug("no avatar available yet")
	return false
}

// BindAvatar sets the agent's avatar and records the binding, an avatar is bound to at most one agent
func (s *Session) BindAvatar(agent *agents.Agent, avatar *world.Actor) bool {
	log := s.log().WithFields(logrus.Fields{"agent_id": agent.ID(), "avatar": avatar.String()})
	if !avatar.IsValid() {
		log.Warn("can't bind an invalid avatar")
		return false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isRegisteredLocked(agent) {
		log.Warn("agent doesn't belong to the session")
		return false
	}
	if bound, found := s.avatarToAgent[avatar.ID()]; found && bound != agent {
		log.WithField("bound_agent_id", bound.ID()).Warn("avatar already bound to another agent")
		return false
	}
	if !agent.SetAvatar(avatar) {
		return false
	}
	// Drop any stale binding of this agent, its avatar may have been reset behind our back
	for avatarID, boundAgent := range s.avatarToAgent {
		if boundAgent == agent && avatarID != avatar.ID() {
			delete(s.avatarToAgent, avatarID)
		}
	}
	s.avatarToAgent[avatar.ID()] = agent
	s.removeAwaitingLocked(agent)
	log.Debug("avatar bound")
	return true
}

// ClearAvatar unbinds the agent from its avatar
func (s *Session) ClearAvatar(agent *agents.Agent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if avatar := agent.Avatar(); avatar != nil {
		if s.avatarToAgent[avatar.ID()] == agent {
			delete(s.avatarToAgent, avatar.ID())
		}
	} else {
		// The agent's avatar may have been reset behind our back
		for avatarID, boundAgent := range s.avatarToAgent {
			if boundAgent == agent {
				delete(s.avatarToAgent, avatarID)
			}
		}
	}
	agent.SetAvatar(nil)
}

// FindAvatars looks again for avatars for every awaiting agent
func (s *Session) FindAvatars() {
	s.mutex.RLock()
	awaiting := append([]*agents.Agent{}, s.awaitingAvatar...)
	s.mutex.RUnlock()

	for _, agent := range awaiting {
		if agent.Avatar() == nil {
			s.RequestAvatarForAgent(agent, true)
		}
	}
}

// onActorSpawned gives the spawned actor to the first awaiting agent it suits
func (s *Session) onActorSpawned(actor *world.Actor) {
	s.mutex.Lock()
	if len(s.awaitingAvatar) == 0 {
		s.mutex.Unlock()
		return
	}
	awaiting := s.awaitingAvatar
	s.awaitingAvatar = nil
	s.mutex.Unlock()

	bound := false
	stillAwaiting := make([]*agents.Agent, 0, len(awaiting))
	for _, agent := range awaiting {
		if !bound && agent.IsSuitableAvatar(actor) && s.BindAvatar(agent, actor) {
			bound = true
			continue
		}
		stillAwaiting = append(stillAwaiting, agent)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	requeued := make([]*agents.Agent, 0, len(stillAwaiting)+len(s.awaitingAvatar))
	for _, agent := range stillAwaiting {
		if s.isRegisteredLocked(agent) {
			requeued = append(requeued, agent)
		}
	}
	for _, agent := range s.awaitingAvatar {
		duplicate := false
		for _, other := range requeued {
			duplicate = duplicate || other == agent
		}
		if !duplicate {
			requeued = append(requeued, agent)
		}
	}
	s.awaitingAvatar = requeued
}

// ResetWorld resets the world and looks for new avatars for every agent without one
func (s *Session) ResetWorld() {
	if s.world == nil {
		return
	}
	s.world.Reset()
	for _, agent := range s.Agents() {
		if agent.Avatar() == nil {
			s.RequestAvatarForAgent(agent, true)
		}
	}
}

// Tick senses for every agent then acts for every agent
func (s *Session) Tick(dt float32) {
	s.mutex.Lock()
	s.tickCount++
	s.mutex.Unlock()

	sessionAgents := s.Agents()
	for _, agent := range sessionAgents {
		agent.Sense(dt)
	}
	for _, agent := range sessionAgents {
		agent.Act(dt)
	}
}

// TickCount is the number of ticks since the session was created
func (s *Session) TickCount() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.tickCount
}
