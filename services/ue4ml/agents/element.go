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
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/services/ue4ml/space"
	"github.com/ue4ml/ue4ml/services/ue4ml/stream"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

const NicknameParam = "nickname"

// Configurable elements receive the parameters of their configuration, unknown keys must be ignored
type Configurable interface {
	Configure(params map[string]string)
}

// AvatarListener elements are notified whenever the avatar of their agent changes, nil means no avatar
type AvatarListener interface {
	OnAvatarSet(avatar *world.Actor)
}

// AgentConfigurer elements can decline to be added to an agent by returning false
type AgentConfigurer interface {
	ConfigureForAgent(agent *Agent) bool
}

// Shutdowner elements release their resources when removed from their agent
type Shutdowner interface {
	Shutdown()
}

// element holds what sensors and actuators have in common.
//
// The mutex serializes every call to the implementation.
type element struct {
	mutex    sync.Mutex
	id       ElementID
	name     string
	nickname string
	agent    *Agent
	avatar   *world.Actor
	spaceDef space.Space
	impl     interface{}
}

func (e *element) ElementID() ElementID {
	return e.id
}

// Name is the element's class name
func (e *element) Name() string {
	return e.name
}

func (e *element) Nickname() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.nickname
}

func (e *element) Agent() *Agent {
	return e.agent
}

// Avatar is the avatar the element was last notified of
func (e *element) Avatar() *world.Actor {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.avatar
}

func (e *element) GetSpaceDef() space.Space {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.spaceDef
}

func (e *element) log() *logrus.Entry {
	entry := log.WithField("element", e.name)
	if e.agent != nil {
		entry = entry.WithField("agent_id", e.agent.ID())
	}
	return entry
}

// configureLocked applies the common parameters then the implementation's
func (e *element) configureLocked(params map[string]string) {
	if nickname, ok := params[NicknameParam]; ok {
		e.nickname = nickname
	}
	if configurable, ok := e.impl.(Configurable); ok {
		configurable.Configure(params)
	}
}

func (e *element) onAvatarSetLocked(avatar *world.Actor) {
	e.avatar = avatar
	if listener, ok := e.impl.(AvatarListener); ok {
		listener.OnAvatarSet(avatar)
	}
}

func (e *element) shutdownLocked() {
	if shutdowner, ok := e.impl.(Shutdowner); ok {
		shutdowner.Shutdown()
	}
}

func (e *element) String() string {
	return fmt.Sprintf("%s[%d]", e.name, e.id)
}

type TickPolicyType int

const (
	TickEveryTick TickPolicyType = iota
	TickEveryNTicks
	TickEveryXSeconds
	TickNever
)

// TickPolicy controls how often a sensor samples the world
type TickPolicy struct {
	Type    TickPolicyType
	Ticks   uint
	Seconds float32
}

func EveryTick() TickPolicy {
	return TickPolicy{Type: TickEveryTick}
}

func EveryNTicks(ticks uint) TickPolicy {
	return TickPolicy{Type: TickEveryNTicks, Ticks: ticks}
}

func EveryXSeconds(seconds float32) TickPolicy {
	return TickPolicy{Type: TickEveryXSeconds, Seconds: seconds}
}

func Never() TickPolicy {
	return TickPolicy{Type: TickNever}
}

// Sensor parameters controlling the tick policy
const (
	TickEveryFrameParam    = "tick_every_frame"
	TickEveryNFramesParam  = "tick_every_n_frames"
	TickEveryXSecondsParam = "tick_every_x_seconds"
)

// SensorImpl samples the world for a sensor.
//
// SenseImpl is called from the game thread, GetObservations from any goroutine. They are never called concurrently.
type SensorImpl interface {
	ConstructSpaceDef() space.Space
	// SenseImpl samples the world, dt is the time elapsed since the previous sampling
	SenseImpl(avatar *world.Actor, dt float32)
	// GetObservations writes the last sample, exactly ConstructSpaceDef().Num() floats
	GetObservations(writer *stream.Writer)
}

// DefaultTickPolicyProvider sensors start with a tick policy other than EveryTick
type DefaultTickPolicyProvider interface {
	DefaultTickPolicy() TickPolicy
}

type Sensor struct {
	element
	impl SensorImpl

	tickPolicy        TickPolicy
	ticksSinceSense   uint
	secondsSinceSense float32
}

func newSensor(class *SensorClass, agent *Agent) *Sensor {
	impl := class.New()
	sensor := &Sensor{
		element: element{
			id:       class.id,
			name:     class.Name,
			nickname: class.Name,
			agent:    agent,
			impl:     impl,
		},
		impl:       impl,
		tickPolicy: EveryTick(),
	}
	if provider, ok := impl.(DefaultTickPolicyProvider); ok {
		sensor.tickPolicy = provider.DefaultTickPolicy()
	}
	sensor.spaceDef = impl.ConstructSpaceDef()
	return sensor
}

func (s *Sensor) Configure(params map[string]string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.configureTickPolicyLocked(params)
	s.configureLocked(params)
	s.spaceDef = s.impl.ConstructSpaceDef()
}

func (s *Sensor) configureTickPolicyLocked(params map[string]string) {
	if value, ok := params[TickEveryFrameParam]; ok {
		enabled, err := strconv.ParseBool(value)
		if err != nil || enabled {
			s.tickPolicy = EveryTick()
		}
	}
	if value, ok := params[TickEveryNFramesParam]; ok {
		ticks, err := strconv.ParseUint(value, 10, 32)
		if err != nil || ticks == 0 {
			s.log().WithField("value", value).Warn("invalid tick every n frames, ignoring")
		} else {
			s.tickPolicy = EveryNTicks(uint(ticks))
		}
	}
	if value, ok := params[TickEveryXSecondsParam]; ok {
		seconds, err := strconv.ParseFloat(value, 32)
		if err != nil || seconds <= 0 {
			s.log().WithField("value", value).Warn("invalid tick every x seconds, ignoring")
		} else {
			s.tickPolicy = EveryXSeconds(float32(seconds))
		}
	}
	s.ticksSinceSense = 0
	s.secondsSinceSense = 0
}

func (s *Sensor) TickPolicy() TickPolicy {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.tickPolicy
}

// Sense is called every session tick, the implementation samples the world when the tick policy allows it
func (s *Sensor) Sense(dt float32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ticksSinceSense++
	s.secondsSinceSense += dt

	ready := false
	switch s.tickPolicy.Type {
	case TickEveryTick:
		ready = true
	case TickEveryNTicks:
		ready = s.ticksSinceSense >= s.tickPolicy.Ticks
	case TickEveryXSeconds:
		ready = s.secondsSinceSense >= s.tickPolicy.Seconds
	case TickNever:
		ready = false
	}
	if !ready {
		return
	}

	s.impl.SenseImpl(s.avatar, s.secondsSinceSense)
	s.ticksSinceSense = 0
	s.secondsSinceSense = 0
}

func (s *Sensor) GetObservations(writer *stream.Writer) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	defer stream.NewGuard(writer, s.spaceDef.Num()*stream.ElementSize, s.name).Check()
	s.impl.GetObservations(writer)
}

func (s *Sensor) OnAvatarSet(avatar *world.Actor) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.onAvatarSetLocked(avatar)
	s.spaceDef = s.impl.ConstructSpaceDef()
}

func (s *Sensor) shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.shutdownLocked()
}

// ActuatorImpl applies actions to the world for an actuator.
//
// DigestInputData is called from any goroutine, Act from the game thread. They are never called concurrently.
type ActuatorImpl interface {
	ConstructSpaceDef() space.Space
	// DigestInputData reads exactly ConstructSpaceDef().Num() floats and stores them for the next Act
	DigestInputData(reader *stream.Reader) error
	Act(avatar *world.Actor, dt float32)
}

type Actuator struct {
	element
	impl ActuatorImpl
}

func newActuator(class *ActuatorClass, agent *Agent) *Actuator {
	impl := class.New()
	actuator := &Actuator{
		element: element{
			id:       class.id,
			name:     class.Name,
			nickname: class.Name,
			agent:    agent,
			impl:     impl,
		},
		impl: impl,
	}
	actuator.spaceDef = impl.ConstructSpaceDef()
	return actuator
}

func (a *Actuator) Configure(params map[string]string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.configureLocked(params)
	a.spaceDef = a.impl.ConstructSpaceDef()
}

func (a *Actuator) DigestInputData(reader *stream.Reader) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	defer stream.NewGuard(reader, a.spaceDef.Num()*stream.ElementSize, a.name).Check()
	return a.impl.DigestInputData(reader)
}

func (a *Actuator) Act(dt float32) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.impl.Act(a.avatar, dt)
}

func (a *Actuator) OnAvatarSet(avatar *world.Actor) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.onAvatarSetLocked(avatar)
	a.spaceDef = a.impl.ConstructSpaceDef()
}

func (a *Actuator) shutdown() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.shutdownLocked()
}
