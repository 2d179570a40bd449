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
	"sync"
)

type MatchState string

const (
	MatchStateEnteringMap      MatchState = "EnteringMap"
	MatchStateWaitingToStart   MatchState = "WaitingToStart"
	MatchStateInProgress       MatchState = "InProgress"
	MatchStateWaitingPostMatch MatchState = "WaitingPostMatch"
	MatchStateLeavingMap       MatchState = "LeavingMap"
	MatchStateAborted          MatchState = "Aborted"
)

// GameMode drives the match state of a world.
//
// With a start delay the match waits that long in WaitingToStart, with a match duration it ends on its own.
type GameMode struct {
	mutex         sync.RWMutex
	state         MatchState
	startDelay    float32
	matchDuration float32
	elapsed       float32

	stateChanged Listeners[MatchState]
}

func NewGameMode(startDelay float32, matchDuration float32) *GameMode {
	return &GameMode{
		state:         MatchStateEnteringMap,
		startDelay:    startDelay,
		matchDuration: matchDuration,
	}
}

func (gm *GameMode) MatchState() MatchState {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()
	return gm.state
}

func (gm *GameMode) SetMatchState(state MatchState) {
	gm.mutex.Lock()
	if gm.state == state {
		gm.mutex.Unlock()
		return
	}
	log.WithField("from", gm.state).WithField("to", state).Debug("match state changed")
	gm.state = state
	gm.elapsed = 0
	gm.mutex.Unlock()

	gm.stateChanged.Broadcast(state)
}

func (gm *GameMode) HasMatchStarted() bool {
	state := gm.MatchState()
	return state != MatchStateEnteringMap && state != MatchStateWaitingToStart
}

func (gm *GameMode) HasMatchEnded() bool {
	state := gm.MatchState()
	return state == MatchStateWaitingPostMatch || state == MatchStateLeavingMap
}

func (gm *GameMode) StartMatch() {
	gm.SetMatchState(MatchStateInProgress)
}

func (gm *GameMode) EndMatch() {
	gm.SetMatchState(MatchStateWaitingPostMatch)
}

func (gm *GameMode) AbortMatch() {
	gm.SetMatchState(MatchStateAborted)
}

// OnMatchStateChanged registers a callback called on every match state transition
func (gm *GameMode) OnMatchStateChanged(fn func(state MatchState)) Handle {
	return gm.stateChanged.Add(fn)
}

func (gm *GameMode) RemoveOnMatchStateChanged(handle Handle) {
	gm.stateChanged.Remove(handle)
}

// Restart goes back to waiting for the match to start, starting it right away without start delay
func (gm *GameMode) Restart() {
	gm.SetMatchState(MatchStateWaitingToStart)
	if gm.startDelay <= 0 {
		gm.StartMatch()
	}
}

func (gm *GameMode) tick(dt float32) {
	gm.mutex.Lock()
	gm.elapsed += dt
	var next MatchState
	switch {
	case gm.state == MatchStateWaitingToStart && gm.elapsed >= gm.startDelay:
		next = MatchStateInProgress
	case gm.state == MatchStateInProgress && gm.matchDuration > 0 && gm.elapsed >= gm.matchDuration:
		next = MatchStateWaitingPostMatch
	}
	gm.mutex.Unlock()

	if next != "" {
		gm.SetMatchState(next)
	}
}
