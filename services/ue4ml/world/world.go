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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "world")

type NetMode int

const (
	NetModeStandalone NetMode = iota
	NetModeListenServer
	NetModeDedicatedServer
	NetModeClient
)

func (m NetMode) String() string {
	switch m {
	case NetModeStandalone:
		return "standalone"
	case NetModeListenServer:
		return "listen_server"
	case NetModeDedicatedServer:
		return "dedicated_server"
	case NetModeClient:
		return "client"
	default:
		return fmt.Sprintf("NetMode(%d)", int(m))
	}
}

func ParseNetMode(value string) (NetMode, error) {
	switch value {
	case "", "standalone":
		return NetModeStandalone, nil
	case "listen_server":
		return NetModeListenServer, nil
	case "dedicated_server":
		return NetModeDedicatedServer, nil
	case "client":
		return NetModeClient, nil
	default:
		return NetModeStandalone, fmt.Errorf("unknown net mode %q", value)
	}
}

// SpawnParams are the initial properties of a spawned actor
type SpawnParams struct {
	Name       string
	Location   Vector
	Rotation   Rotator
	Attributes map[string]float32
	// Lifespan, in seconds, after which the actor is destroyed, 0 means infinite
	Lifespan       float32
	ScorePerSecond float32
	MaxSpeed       float32

	entry     *SpawnEntry
	companion bool
}

// PawnControllerChange is broadcasted on possession and unpossession, Controller is nil on unpossession
type PawnControllerChange struct {
	Pawn       *Actor
	Controller *Actor
}

type pendingSpawn struct {
	entry     *SpawnEntry
	index     int
	remaining float32
}

var lastUniqueID uint64

// World holds the actors of a level.
//
// Tick, BeginPlay and Reset are meant to be called from the game thread.
type World struct {
	name     string
	netMode  NetMode
	gameMode *GameMode
	scenario *Scenario

	mutex         sync.RWMutex
	actors        []*Actor
	timeSeconds   float64
	begunPlay     bool
	resetting     bool
	pendingSpawns []pendingSpawn

	actorSpawned          Listeners[*Actor]
	pawnControllerChanged Listeners[PawnControllerChange]
}

// NewWorld creates an empty world, gameMode can be nil for worlds without a formal match
func NewWorld(name string, netMode NetMode, gameMode *GameMode) *World {
	return &World{
		name:     name,
		netMode:  netMode,
		gameMode: gameMode,
	}
}

func (w *World) Name() string {
	return w.name
}

func (w *World) NetMode() NetMode {
	return w.netMode
}

func (w *World) GameMode() *GameMode {
	return w.gameMode
}

func (w *World) TimeSeconds() float64 {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.timeSeconds
}

func (w *World) HasBegunPlay() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.begunPlay
}

func (w *World) OnActorSpawned(fn func(actor *Actor)) Handle {
	return w.actorSpawned.Add(fn)
}

func (w *World) RemoveOnActorSpawned(handle Handle) {
	w.actorSpawned.Remove(handle)
}

func (w *World) OnPawnControllerChanged(fn func(change PawnControllerChange)) Handle {
	return w.pawnControllerChanged.Add(fn)
}

func (w *World) RemoveOnPawnControllerChanged(handle Handle) {
	w.pawnControllerChanged.Remove(handle)
}

func (w *World) SpawnActor(class *Class, params SpawnParams) *Actor {
	id := UniqueID(atomic.AddUint64(&lastUniqueID, 1))
	name := params.Name
	if name == "" {
		name = fmt.Sprintf("%s_%d", class.Name(), id)
	}
	maxSpeed := params.MaxSpeed
	if maxSpeed <= 0 {
		maxSpeed = DefaultMaxSpeed
	}
	actor := &Actor{
		id:             id,
		class:          class,
		name:           name,
		world:          w,
		location:       params.Location,
		rotation:       params.Rotation.Normalize(),
		maxSpeed:       maxSpeed,
		lifespan:       params.Lifespan,
		scorePerSecond: params.ScorePerSecond,
		spawnEntry:     params.entry,
		companion:      params.companion,
	}
	if len(params.Attributes) > 0 {
		actor.attributes = make(map[string]float32, len(params.Attributes))
		for attribute, value := range params.Attributes {
			actor.attributes[attribute] = value
		}
	}
	if class.IsChildOf(ControllerClass) {
		actor.playerState = &PlayerState{}
	}

	w.mutex.Lock()
	w.actors = append(w.actors, actor)
	w.mutex.Unlock()

	log.WithFields(logrus.Fields{"actor": name, "class": class.Name()}).Trace("actor spawned")
	w.actorSpawned.Broadcast(actor)
	return actor
}

// DestroyActor removes the actor from the world, returns false if it was already destroyed
func (w *World) DestroyActor(actor *Actor) bool {
	if !actor.IsValid() {
		return false
	}

	actor.mutex.Lock()
	actor.destroyed = true
	controller := actor.controller
	pawn := actor.pawn
	entry := actor.spawnEntry
	companion := actor.companion
	actor.mutex.Unlock()

	if controller != nil {
		w.unpossess(controller, actor)
	}
	if pawn != nil {
		w.unpossess(actor, pawn)
	}

	w.mutex.Lock()
	for i, candidate := range w.actors {
		if candidate == actor {
			w.actors = append(w.actors[:i], w.actors[i+1:]...)
			break
		}
	}
	if entry != nil && entry.Respawn && !companion && !w.resetting {
		w.pendingSpawns = append(w.pendingSpawns, pendingSpawn{entry: entry, remaining: entry.Delay})
	}
	w.mutex.Unlock()

	log.WithField("actor", actor.Name()).Trace("actor destroyed")
	actor.destroyedListeners.Broadcast(actor)

	// Controllers spawned along a pawn don't outlive it
	if entry != nil && controller != nil && controller.companion && controller.spawnEntry == entry {
		w.DestroyActor(controller)
	}
	return true
}

// Possess makes the controller control the pawn, breaking any previous possession of either
func (w *World) Possess(controller *Actor, pawn *Actor) error {
	if !controller.IsValid() || !controller.IsA(ControllerClass) {
		return fmt.Errorf("%q is not a valid controller", controller)
	}
	if !pawn.IsValid() || !pawn.IsA(PawnClass) {
		return fmt.Errorf("%q is not a valid pawn", pawn)
	}
	if previousPawn := controller.Pawn(); previousPawn != nil && previousPawn != pawn {
		w.unpossess(controller, previousPawn)
	}
	if previousController := pawn.Controller(); previousController != nil && previousController != controller {
		w.unpossess(previousController, pawn)
	}

	controller.mutex.Lock()
	controller.pawn = pawn
	controller.mutex.Unlock()
	pawn.mutex.Lock()
	pawn.controller = controller
	pawn.mutex.Unlock()

	w.pawnControllerChanged.Broadcast(PawnControllerChange{Pawn: pawn, Controller: controller})
	return nil
}

// Unpossess releases the pawn possessed by the controller if any
func (w *World) Unpossess(controller *Actor) {
	if pawn := controller.Pawn(); pawn != nil {
		w.unpossess(controller, pawn)
	}
}

func (w *World) unpossess(controller *Actor, pawn *Actor) {
	controller.mutex.Lock()
	if controller.pawn == pawn {
		controller.pawn = nil
	}
	controller.mutex.Unlock()
	pawn.mutex.Lock()
	if pawn.controller == controller {
		pawn.controller = nil
	}
	pawn.mutex.Unlock()

	w.pawnControllerChanged.Broadcast(PawnControllerChange{Pawn: pawn})
}

// Actors returns the living actors of the given class in spawn order, a nil class matches every actor
func (w *World) Actors(class *Class) []*Actor {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	actors := make([]*Actor, 0, len(w.actors))
	for _, actor := range w.actors {
		if class == nil || actor.IsA(class) {
			actors = append(actors, actor)
		}
	}
	return actors
}

func (w *World) FindActor(id UniqueID) *Actor {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	for _, actor := range w.actors {
		if actor.id == id {
			return actor
		}
	}
	return nil
}

// BeginPlay spawns the scenario actors and starts the match
func (w *World) BeginPlay() {
	w.mutex.Lock()
	if w.begunPlay {
		w.mutex.Unlock()
		return
	}
	w.begunPlay = true
	w.mutex.Unlock()

	log.WithFields(logrus.Fields{"world": w.name, "net_mode": w.netMode}).Debug("begin play")
	w.spawnScenario()
	if w.gameMode != nil {
		w.gameMode.Restart()
	}
}

// Reset destroys every actor, spawns the scenario again and restarts the match
func (w *World) Reset() {
	w.mutex.Lock()
	w.resetting = true
	actors := make([]*Actor, len(w.actors))
	copy(actors, w.actors)
	w.pendingSpawns = nil
	w.timeSeconds = 0
	w.mutex.Unlock()

	for i := len(actors) - 1; i >= 0; i-- {
		w.DestroyActor(actors[i])
	}

	w.mutex.Lock()
	w.resetting = false
	w.mutex.Unlock()

	log.WithField("world", w.name).Debug("world reset")
	w.spawnScenario()
	if w.gameMode != nil {
		w.gameMode.Restart()
	}
}

func (w *World) Tick(dt float32) {
	w.mutex.Lock()
	w.timeSeconds += float64(dt)
	actors := make([]*Actor, len(w.actors))
	copy(actors, w.actors)
	ready := []pendingSpawn{}
	remaining := w.pendingSpawns[:0]
	for _, pending := range w.pendingSpawns {
		pending.remaining -= dt
		if pending.remaining <= 0 {
			ready = append(ready, pending)
		} else {
			remaining = append(remaining, pending)
		}
	}
	w.pendingSpawns = remaining
	w.mutex.Unlock()

	for _, pending := range ready {
		w.spawnEntryInstance(pending.entry, pending.index)
	}

	if w.gameMode != nil {
		w.gameMode.tick(dt)
	}

	for _, actor := range actors {
		if !actor.IsValid() {
			continue
		}
		if actor.IsA(PawnClass) {
			keysInput := Vector{}
			if controller := actor.Controller(); controller != nil {
				keysInput = controller.keysInput()
			}
			actor.tick(dt, keysInput)
		}

		actor.mutex.Lock()
		scorePerSecond := actor.scorePerSecond
		expired := false
		if actor.lifespan > 0 {
			actor.lifespan -= dt
			expired = actor.lifespan <= 0
		}
		actor.mutex.Unlock()

		if scorePerSecond != 0 {
			if playerState := actor.PlayerState(); playerState != nil {
				playerState.AddScore(scorePerSecond * dt)
			}
		}
		if expired {
			w.DestroyActor(actor)
		}
	}
}

func (w *World) spawnScenario() {
	if w.scenario == nil {
		return
	}
	for i := range w.scenario.Spawns {
		entry := &w.scenario.Spawns[i]
		for index := 0; index < entry.count(); index++ {
			if entry.Delay > 0 {
				w.mutex.Lock()
				w.pendingSpawns = append(w.pendingSpawns, pendingSpawn{entry: entry, index: index, remaining: entry.Delay})
				w.mutex.Unlock()
				continue
			}
			w.spawnEntryInstance(entry, index)
		}
	}
}

func (w *World) spawnEntryInstance(entry *SpawnEntry, index int) {
	class := FindClass(entry.Class)
	if class == nil {
		log.WithField("class", entry.Class).Warn("unknown class in scenario, skipping spawn")
		return
	}
	params := SpawnParams{
		Location:   entry.Location.Add(entry.Spacing.Scale(float32(index))),
		Attributes: entry.Attributes,
		Lifespan:   entry.Lifespan,
		MaxSpeed:   entry.MaxSpeed,
		entry:      entry,
	}
	if entry.Controller == "" {
		params.ScorePerSecond = entry.ScorePerSecond
		w.SpawnActor(class, params)
		return
	}

	pawn := w.SpawnActor(class, params)
	controllerClass := FindClass(entry.Controller)
	if controllerClass == nil {
		log.WithField("class", entry.Controller).Warn("unknown controller class in scenario, pawn left unpossessed")
		return
	}
	controller := w.SpawnActor(controllerClass, SpawnParams{
		ScorePerSecond: entry.ScorePerSecond,
		entry:          entry,
		companion:      true,
	})
	if err := w.Possess(controller, pawn); err != nil {
		log.WithError(err).Warn("unable to possess scenario pawn")
	}
}
