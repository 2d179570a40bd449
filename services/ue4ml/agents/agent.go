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

package agents

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/services/ue4ml/space"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

// Owner is what an agent needs from the session it belongs to
type Owner interface {
	Classes() ClassFinder
	World() *world.World
	// RequestAvatarForAgent looks for an avatar for the agent, it returns true if one was bound
	RequestAvatarForAgent(agent *Agent, forceSearch bool) bool
	ClearAvatar(agent *Agent)
}

// Agent is a controllable participant owning its sensors and actuators and bound to at most one avatar.
type Agent struct {
	id    AgentID
	class *AgentClass
	owner Owner

	mutex       sync.RWMutex
	config      Config
	sensors     []*Sensor
	actuators   []*Actuator
	avatarClass *world.Class
	avatar      *world.Actor
	pawn        *world.Actor
	controller  *world.Actor
	// everHadAvatar is used to tell agents waiting for their first avatar from agents that lost theirs
	everHadAvatar bool

	avatarDestroyedHandle         world.Handle
	subscribedToPawnController    bool
	pawnControllerChangedHandle   world.Handle
	pawnControllerChangedProvider *world.World
}

// NewAgent creates an unconfigured agent, a nil class means the default agent class
func NewAgent(id AgentID, class *AgentClass, owner Owner) *Agent {
	if class == nil {
		class = DefaultAgentClass
	}
	return &Agent{
		id:          id,
		class:       class,
		owner:       owner,
		config:      DefaultConfig(),
		avatarClass: world.ActorClass,
	}
}

func (a *Agent) ID() AgentID {
	return a.id
}

func (a *Agent) Class() *AgentClass {
	return a.class
}

func (a *Agent) log() *logrus.Entry {
	return log.WithField("agent_id", a.id)
}

// Config returns a copy of the current configuration
func (a *Agent) Config() Config {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.config.Clone()
}

// Configure replaces the sensors, actuators and avatar requirements of the agent.
//
// Unknown sensor or actuator classes are skipped. If the current avatar doesn't fit the new configuration it is
// cleared and a new one is requested from the owner.
func (a *Agent) Configure(config Config) {
	classes := a.owner.Classes()
	log := a.log()

	a.mutex.Lock()
	a.shutdownSensorsAndActuatorsLocked()
	previousAvatarClass := a.avatarClass
	a.config = config.Clone()

	for name, elementConfig := range a.config.Actuators {
		class := classes.FindActuatorClass(name)
		if class == nil {
			log.WithField("actuator", name).Warn("unknown actuator class, skipping")
			continue
		}
		actuator := newActuator(class, a)
		if configurer, ok := actuator.impl.(AgentConfigurer); ok && !configurer.ConfigureForAgent(a) {
			log.WithField("actuator", name).Debug("actuator declined the agent")
			continue
		}
		actuator.Configure(elementConfig.Params)
		a.actuators = append(a.actuators, actuator)
	}
	for name, elementConfig := range a.config.Sensors {
		class := classes.FindSensorClass(name)
		if class == nil {
			log.WithField("sensor", name).Warn("unknown sensor class, skipping")
			continue
		}
		sensor := newSensor(class, a)
		if configurer, ok := sensor.impl.(AgentConfigurer); ok && !configurer.ConfigureForAgent(a) {
			log.WithField("sensor", name).Debug("sensor declined the agent")
			continue
		}
		sensor.Configure(elementConfig.Params)
		a.sensors = append(a.sensors, sensor)
	}
	sort.SliceStable(a.actuators, func(i, j int) bool {
		return a.actuators[i].id < a.actuators[j].id
	})
	sort.SliceStable(a.sensors, func(i, j int) bool {
		return a.sensors[i].id < a.sensors[j].id
	})

	a.avatarClass = world.ActorClass
	if a.config.AvatarClassName != "" {
		if class := world.FindClass(a.config.AvatarClassName); class != nil {
			a.avatarClass = class
		} else {
			log.WithField("avatar_class", a.config.AvatarClassName).Warn("unknown avatar class, accepting any actor")
		}
	}
	avatarClassChanged := previousAvatarClass != a.avatarClass
	avatar := a.avatar
	a.mutex.Unlock()

	log.WithFields(logrus.Fields{
		"nb_sensors":   len(a.Sensors()),
		"nb_actuators": len(a.Actuators()),
		"avatar_class": a.AvatarClass().Name(),
	}).Debug("agent configured")

	if avatar == nil || !avatar.IsValid() || !a.IsSuitableAvatar(avatar) {
		if avatar != nil {
			a.owner.ClearAvatar(a)
		}
		a.owner.RequestAvatarForAgent(a, avatarClassChanged)
		return
	}
	a.notifyAvatarSet(avatar)
}

// ShutdownSensorsAndActuators removes every sensor and actuator of the agent
func (a *Agent) ShutdownSensorsAndActuators() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.shutdownSensorsAndActuatorsLocked()
}

func (a *Agent) shutdownSensorsAndActuatorsLocked() {
	for _, sensor := range a.sensors {
		sensor.shutdown()
	}
	for _, actuator := range a.actuators {
		actuator.shutdown()
	}
	a.sensors = nil
	a.actuators = nil
}

// Sensors returns the sensors sorted by ElementID
func (a *Agent) Sensors() []*Sensor {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return append([]*Sensor{}, a.sensors...)
}

// Actuators returns the actuators sorted by ElementID
func (a *Agent) Actuators() []*Actuator {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return append([]*Actuator{}, a.actuators...)
}

func (a *Agent) AvatarClass() *world.Class {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.avatarClass
}

func (a *Agent) Avatar() *world.Actor {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.avatar
}

func (a *Agent) Pawn() *world.Actor {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.pawn
}

func (a *Agent) Controller() *world.Actor {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.controller
}

func (a *Agent) Sense(dt float32) {
	for _, sensor := range a.Sensors() {
		sensor.Sense(dt)
	}
}

func (a *Agent) Act(dt float32) {
	for _, actuator := range a.Actuators() {
		actuator.Act(dt)
	}
}

// GetObservations writes the observations of every sensor, in ElementID order
func (a *Agent) GetObservations(writer *stream.Writer) {
	for _, sensor := range a.Sensors() {
		sensor.GetObservations(writer)
	}
}

// DigestActions feeds the actuators, in ElementID order, with the actions read from the reader.
//
// Each actuator consumes exactly the size of its action space. When the stream runs short, the actuator that
// can't be fully fed and the following ones are skipped and keep their previous action. Extra values are ignored.
// It returns the number of actuators that were fed.
func (a *Agent) DigestActions(reader *stream.Reader) int {
	log := a.log()
	fed := 0
	for _, actuator := range a.Actuators() {
		expectedBytes := actuator.GetSpaceDef().Num() * stream.ElementSize
		if reader.Remaining() < expectedBytes {
			log.WithFields(logrus.Fields{
				"actuator":       actuator.Name(),
				"expected_bytes": expectedBytes,
				"remaining":      reader.Remaining(),
			}).Warn("action stream too short, remaining actuators keep their previous action")
			break
		}
		if err := actuator.DigestInputData(reader); err != nil {
			log.WithField("actuator", actuator.Name()).WithError(err).Warn("unable to digest action")
			break
		}
		fed++
	}
	if reader.Remaining() > 0 {
		log.WithField("remaining", reader.Remaining()).Debug("ignoring extra action values")
	}
	return fed
}

func (a *Agent) ActionSpace() *space.TupleSpace {
	spaces := []space.Space{}
	for _, actuator := range a.Actuators() {
		spaces = append(spaces, actuator.GetSpaceDef())
	}
	return space.NewTuple(spaces...)
}

func (a *Agent) ObservationSpace() *space.TupleSpace {
	spaces := []space.Space{}
	for _, sensor := range a.Sensors() {
		spaces = append(spaces, sensor.GetSpaceDef())
	}
	return space.NewTuple(spaces...)
}

// IsSuitableAvatar returns true if the actor matches the configured avatar class
func (a *Agent) IsSuitableAvatar(actor *world.Actor) bool {
	if actor == nil {
		return false
	}
	a.mutex.RLock()
	avatarClass := a.avatarClass
	exact := a.config.AvatarClassExact
	a.mutex.RUnlock()

	if exact {
		return actor.Class() == avatarClass
	}
	return actor.IsA(avatarClass)
}

// SetAvatar binds the agent to the candidate, nil unbinds it. Unsuitable candidates are rejected.
//
// It is meant to be called by the owner, which keeps track of the avatar bindings.
func (a *Agent) SetAvatar(candidate *world.Actor) bool {
	if candidate != nil && !a.IsSuitableAvatar(candidate) {
		a.log().WithFields(logrus.Fields{
			"actor":        candidate.Name(),
			"actor_class":  candidate.Class().Name(),
			"avatar_class": a.AvatarClass().Name(),
		}).Warn("rejecting unsuitable avatar")
		return false
	}

	a.mutex.Lock()
	if a.avatar == candidate {
		a.mutex.Unlock()
		return true
	}
	if a.avatar != nil {
		a.avatar.RemoveOnDestroyed(a.avatarDestroyedHandle)
	}
	a.avatar = candidate
	if candidate != nil {
		a.everHadAvatar = true
		a.avatarDestroyedHandle = candidate.OnDestroyed(a.onAvatarDestroyed)
	}
	a.updatePawnAndControllerLocked()

	var subscribeTo *world.World
	if !a.subscribedToPawnController && a.owner != nil && a.owner.World() != nil {
		a.subscribedToPawnController = true
		subscribeTo = a.owner.World()
	}
	a.mutex.Unlock()

	if subscribeTo != nil {
		handle := subscribeTo.OnPawnControllerChanged(a.onPawnControllerChanged)
		a.mutex.Lock()
		a.pawnControllerChangedHandle = handle
		a.pawnControllerChangedProvider = subscribeTo
		a.mutex.Unlock()
	}

	a.log().WithField("avatar", candidate.String()).Debug("avatar set")
	a.notifyAvatarSet(candidate)
	return true
}

func (a *Agent) updatePawnAndControllerLocked() {
	a.pawn = world.PawnOf(a.avatar)
	a.controller = world.ControllerOf(a.avatar)
}

func (a *Agent) notifyAvatarSet(avatar *world.Actor) {
	for _, sensor := range a.Sensors() {
		sensor.OnAvatarSet(avatar)
	}
	for _, actuator := range a.Actuators() {
		actuator.OnAvatarSet(avatar)
	}
}

func (a *Agent) onAvatarDestroyed(actor *world.Actor) {
	a.log().WithField("avatar", actor.Name()).Debug("avatar destroyed")
	a.owner.ClearAvatar(a)

	a.mutex.RLock()
	autoRequest := a.config.AutoRequestNewAvatarUponClearingPrev
	a.mutex.RUnlock()
	if autoRequest {
		a.owner.RequestAvatarForAgent(a, false)
	}
}

func (a *Agent) onPawnControllerChanged(change world.PawnControllerChange) {
	a.mutex.Lock()
	if a.avatar == nil || (change.Pawn != a.avatar && change.Controller != a.avatar && change.Pawn != a.pawn) {
		a.mutex.Unlock()
		return
	}
	avatar := a.avatar
	a.updatePawnAndControllerLocked()
	a.mutex.Unlock()

	a.notifyAvatarSet(avatar)
}

// Release stops listening to the world, it is called when the agent is removed from its owner
func (a *Agent) Release() {
	a.mutex.Lock()
	provider := a.pawnControllerChangedProvider
	handle := a.pawnControllerChangedHandle
	a.pawnControllerChangedProvider = nil
	a.subscribedToPawnController = false
	if a.avatar != nil {
		a.avatar.RemoveOnDestroyed(a.avatarDestroyedHandle)
	}
	a.shutdownSensorsAndActuatorsLocked()
	a.mutex.Unlock()

	if provider != nil {
		provider.RemoveOnPawnControllerChanged(handle)
	}
}

// IsReady returns true when the agent has an avatar
func (a *Agent) IsReady() bool {
	return a.Avatar() != nil
}

// IsDone returns true when the agent lost its avatar and is not configured to look for a new one
func (a *Agent) IsDone() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return !a.config.AutoRequestNewAvatarUponClearingPrev && a.everHadAvatar && a.avatar == nil
}

// GetReward is the score of the avatar's player state, 0 without avatar or player state
func (a *Agent) GetReward() float32 {
	if a.class.Reward != nil {
		return a.class.Reward(a)
	}
	avatar := a.Avatar()
	if avatar == nil {
		return 0
	}
	playerState := avatar.PlayerState()
	if playerState == nil {
		return 0
	}
	return playerState.Score()
}
