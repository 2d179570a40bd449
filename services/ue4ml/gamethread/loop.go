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

package gamethread

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/utils"
)

var log = logrus.WithField("component", "gamethread")

var (
	ErrLoopStopped = errors.New("game thread is stopped")
	ErrJobPanicked = errors.New("game thread job panicked")
)

// Loop is the game thread: a single goroutine ticking the simulation at a fixed rate and executing jobs
// posted by other goroutines between two ticks.
//
// Everything executed by the loop, ticks and jobs, is serialized.
type Loop struct {
	period time.Duration
	dt     float32
	tickFn func(dt float32)

	jobs    chan func()
	stopped chan struct{}

	mutex          sync.Mutex
	manualTick     bool
	requestedTicks uint64
	tickCount      uint64
	ticked         *utils.Observable
}

// NewLoop creates a loop calling tickFn tickRate times per second with a fixed delta time
func NewLoop(tickRate float64, tickFn func(dt float32)) *Loop {
	if tickRate <= 0 {
		tickRate = 30
	}
	return &Loop{
		period:  time.Duration(float64(time.Second) / tickRate),
		dt:      float32(1 / tickRate),
		tickFn:  tickFn,
		jobs:    make(chan func()),
		stopped: make(chan struct{}),
		ticked:  utils.NewObservable(),
	}
}

// DeltaSeconds is the fixed simulated duration of a tick
func (l *Loop) DeltaSeconds() float32 {
	return l.dt
}

// Run executes the loop until the context is done, it can only be called once
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	log.WithField("period", l.period).Debug("game thread started")
	for {
		select {
		case <-ctx.Done():
			log.WithField("tick_count", l.TickCount()).Debug("game thread stopped")
			return nil
		case job := <-l.jobs:
			job()
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) tick() {
	l.mutex.Lock()
	if l.manualTick {
		if l.requestedTicks == 0 {
			l.mutex.Unlock()
			return
		}
		l.requestedTicks--
	}
	l.mutex.Unlock()

	l.tickFn(l.dt)

	l.mutex.Lock()
	l.tickCount++
	l.mutex.Unlock()
	l.ticked.Emit()
}

// Do executes fn on the game thread and blocks until it returns.
//
// It returns the context error if the context is done first, fn may still be executed later in that case.
// It must not be called from the game thread itself.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("recovered from a panic in a game thread job")
				result <- fmt.Errorf("%w: %v", ErrJobPanicked, r)
			}
		}()
		result <- fn()
	}

	select {
	case l.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrLoopStopped
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call executes fn on the game thread and blocks until its result is available
func Call[T any](ctx context.Context, l *Loop, fn func() (T, error)) (T, error) {
	results := make(chan T, 1)
	err := l.Do(ctx, func() error {
		result, err := fn()
		if err != nil {
			return err
		}
		results <- result
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-results, nil
}

// EnableManualTick switches between ticking at the loop rate and ticking only on request
func (l *Loop) EnableManualTick(enabled bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.manualTick != enabled {
		log.WithField("enabled", enabled).Info("manual world tick")
	}
	l.manualTick = enabled
	l.requestedTicks = 0
}

func (l *Loop) IsManualTick() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.manualTick
}

// RequestTicks allows count more ticks in manual tick mode.
//
// When wait is true it blocks until the requested ticks are consumed, including the ones still pending from
// earlier requests. Outside of manual tick mode it blocks until count ticks elapsed.
func (l *Loop) RequestTicks(ctx context.Context, count uint64, wait bool) error {
	if count == 0 {
		return nil
	}

	observer := l.ticked.Subscribe()
	defer l.ticked.Unsubscribe(observer)

	l.mutex.Lock()
	target := l.tickCount + count
	if l.manualTick {
		l.requestedTicks += count
		target = l.tickCount + l.requestedTicks
	}
	l.mutex.Unlock()

	if !wait {
		return nil
	}

	for {
		if l.TickCount() >= target {
			return nil
		}
		select {
		case <-observer.Receive():
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopped:
			return ErrLoopStopped
		}
	}
}

// TickCount is the number of ticks executed since the loop started
func (l *Loop) TickCount() uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.tickCount
}

// Ticked emits after every tick
func (l *Loop) Ticked() *utils.Observable {
	return l.ticked
}
