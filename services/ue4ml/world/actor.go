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

package world

import (
	"sort"
	"sync"
)

// UniqueID is the engine-native identifier of an actor, never reused within a process
type UniqueID uint64

const DefaultMaxSpeed = 600

// Input keys understood by the world
const (
	KeyW        = "W"
	KeyA        = "A"
	KeyS        = "S"
	KeyD        = "D"
	KeySpaceBar = "SpaceBar"
)

var keyBindings = map[string]Vector{
	KeyW:        {X: 1},
	KeyS:        {X: -1},
	KeyD:        {Y: 1},
	KeyA:        {Y: -1},
	KeySpaceBar: {Z: 1},
}

// IsKnownKey returns true if the key is bound to a movement
func IsKnownKey(key string) bool {
	_, ok := keyBindings[key]
	return ok
}

// PlayerState carries the score of a controller
type PlayerState struct {
	mutex        sync.RWMutex
	score        float32
	scoreChanged Listeners[float32]
}

func (s *PlayerState) Score() float32 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.score
}

func (s *PlayerState) SetScore(score float32) {
	s.mutex.Lock()
	changed := s.score != score
	s.score = score
	s.mutex.Unlock()

	if changed {
		s.scoreChanged.Broadcast(score)
	}
}

func (s *PlayerState) AddScore(delta float32) {
	if delta == 0 {
		return
	}
	s.mutex.Lock()
	s.score += delta
	score := s.score
	s.mutex.Unlock()

	s.scoreChanged.Broadcast(score)
}

func (s *PlayerState) OnScoreChanged(fn func(score float32)) Handle {
	return s.scoreChanged.Add(fn)
}

func (s *PlayerState) RemoveOnScoreChanged(handle Handle) {
	s.scoreChanged.Remove(handle)
}

// Actor is an entity living in a World.
//
// Actors are mutated from the game thread, their accessors are safe to call from any goroutine.
type Actor struct {
	id    UniqueID
	class *Class
	name  string
	world *World

	mutex          sync.RWMutex
	destroyed      bool
	location       Vector
	velocity       Vector
	rotation       Rotator
	maxSpeed       float32
	attributes     map[string]float32
	movementInput  Vector
	pressedKeys    map[string]bool
	controller     *Actor
	pawn           *Actor
	playerState    *PlayerState
	lifespan       float32
	scorePerSecond float32
	spawnEntry     *SpawnEntry
	companion      bool

	destroyedListeners Listeners[*Actor]
}

func (a *Actor) ID() UniqueID {
	return a.id
}

func (a *Actor) Class() *Class {
	return a.class
}

func (a *Actor) Name() string {
	return a.name
}

func (a *Actor) World() *World {
	return a.world
}

// IsA returns true if the actor's class is class or one of its descendants
func (a *Actor) IsA(class *Class) bool {
	return a.class.IsChildOf(class)
}

// IsValid returns false for nil or destroyed actors
func (a *Actor) IsValid() bool {
	if a == nil {
		return false
	}
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return !a.destroyed
}

func (a *Actor) Location() Vector {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.location
}

func (a *Actor) SetLocation(location Vector) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.location = location
}

func (a *Actor) Velocity() Vector {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.velocity
}

// Rotation is the control rotation for controllers and the orientation for other actors
func (a *Actor) Rotation() Rotator {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.rotation
}

func (a *Actor) SetRotation(rotation Rotator) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.rotation = rotation.Normalize()
}

func (a *Actor) Attribute(name string) (float32, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	value, ok := a.attributes[name]
	return value, ok
}

func (a *Actor) SetAttribute(name string, value float32) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.attributes == nil {
		a.attributes = map[string]float32{}
	}
	a.attributes[name] = value
}

// AddMovementInput accumulates a movement request consumed on the next world tick
func (a *Actor) AddMovementInput(input Vector) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.movementInput = a.movementInput.Add(input)
}

func (a *Actor) MovementInput() Vector {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.movementInput
}

func (a *Actor) SetKeyPressed(key string, pressed bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if pressed {
		if a.pressedKeys == nil {
			a.pressedKeys = map[string]bool{}
		}
		a.pressedKeys[key] = true
	} else {
		delete(a.pressedKeys, key)
	}
}

func (a *Actor) IsKeyPressed(key string) bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.pressedKeys[key]
}

// PressedKeys returns the currently pressed keys, sorted
func (a *Actor) PressedKeys() []string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	keys := make([]string, 0, len(a.pressedKeys))
	for key := range a.pressedKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Controller returns the controller possessing this pawn
func (a *Actor) Controller() *Actor {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.controller
}

// Pawn returns the pawn possessed by this controller
func (a *Actor) Pawn() *Actor {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.pawn
}

// PlayerState returns the player state of a controller, or of the controller possessing a pawn
func (a *Actor) PlayerState() *PlayerState {
	a.mutex.RLock()
	playerState := a.playerState
	controller := a.controller
	a.mutex.RUnlock()

	if playerState == nil && controller != nil {
		return controller.PlayerState()
	}
	return playerState
}

// OnDestroyed registers a callback called when the actor is destroyed
func (a *Actor) OnDestroyed(fn func(actor *Actor)) Handle {
	return a.destroyedListeners.Add(fn)
}

func (a *Actor) RemoveOnDestroyed(handle Handle) {
	a.destroyedListeners.Remove(handle)
}

func (a *Actor) String() string {
	if a == nil {
		return "<none>"
	}
	return a.name
}

// PawnOf returns the actor itself if it is a pawn, the possessed pawn if it is a controller
func PawnOf(actor *Actor) *Actor {
	if actor == nil {
		return nil
	}
	if actor.IsA(PawnClass) {
		return actor
	}
	if actor.IsA(ControllerClass) {
		return actor.Pawn()
	}
	return nil
}

// ControllerOf returns the actor itself if it is a controller, the possessing controller if it is a pawn
func ControllerOf(actor *Actor) *Actor {
	if actor == nil {
		return nil
	}
	if actor.IsA(ControllerClass) {
		return actor
	}
	if actor.IsA(PawnClass) {
		return actor.Controller()
	}
	return nil
}

// tick integrates the movement of a pawn, the controller's keys are added to the movement input
func (a *Actor) tick(dt float32, keysInput Vector) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	input := a.movementInput.Add(keysInput).ClampSize(1)
	a.movementInput = Vector{}
	a.velocity = input.Scale(a.maxSpeed)
	a.location = a.location.Add(a.velocity.Scale(dt))
}

func (a *Actor) keysInput() Vector {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	input := Vector{}
	for key := range a.pressedKeys {
		input = input.Add(keyBindings[key])
	}
	return input
}
