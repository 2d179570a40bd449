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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loopTestFixture struct {
	loop   *Loop
	ticks  *int64
	cancel context.CancelFunc
	done   chan error
}

func createLoopTestFixture() *loopTestFixture {
	ticks := int64(0)
	loop := NewLoop(1000, func(dt float32) {
		atomic.AddInt64(&ticks, 1)
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- loop.Run(ctx)
	}()
	return &loopTestFixture{
		loop:   loop,
		ticks:  &ticks,
		cancel: cancel,
		done:   done,
	}
}

func (fxt *loopTestFixture) destroy() error {
	fxt.cancel()
	return <-fxt.done
}

func TestDeltaSeconds(t *testing.T) {
	assert.Equal(t, float32(0.5), NewLoop(2, nil).DeltaSeconds())
	assert.InDelta(t, 1.0/30, NewLoop(0, nil).DeltaSeconds(), 1e-6)
}

func TestTicksAutomatically(t *testing.T) {
	fxt := createLoopTestFixture()

	assert.Eventually(t, func() bool {
		return fxt.loop.TickCount() >= 5
	}, time.Second, time.Millisecond)
	assert.NoError(t, fxt.destroy())
	assert.Equal(t, fxt.loop.TickCount(), uint64(atomic.LoadInt64(fxt.ticks)))
}

func TestCall(t *testing.T) {
	fxt := createLoopTestFixture()
	defer fxt.destroy()

	result, err := Call(context.Background(), fxt.loop, func() (string, error) {
		return "done", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "done", result)

	expectedErr := errors.New("failure")
	_, err = Call(context.Background(), fxt.loop, func() (int, error) {
		return 12, expectedErr
	})
	assert.ErrorIs(t, err, expectedErr)
}

func TestDoIsSerializedWithTicks(t *testing.T) {
	fxt := createLoopTestFixture()
	defer fxt.destroy()

	err := fxt.loop.Do(context.Background(), func() error {
		before := atomic.LoadInt64(fxt.ticks)
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, before, atomic.LoadInt64(fxt.ticks))
		return nil
	})
	assert.NoError(t, err)
}

func TestDoRecoversFromPanics(t *testing.T) {
	fxt := createLoopTestFixture()
	defer fxt.destroy()

	err := fxt.loop.Do(context.Background(), func() error {
		panic("boom")
	})
	assert.ErrorIs(t, err, ErrJobPanicked)

	// The loop is still running
	assert.NoError(t, fxt.loop.Do(context.Background(), func() error { return nil }))
}

func TestDoWithoutRunningLoop(t *testing.T) {
	loop := NewLoop(1000, func(float32) {})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := loop.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoAfterStop(t *testing.T) {
	fxt := createLoopTestFixture()
	require.NoError(t, fxt.destroy())

	err := fxt.loop.Do(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrLoopStopped)
}

func TestManualTick(t *testing.T) {
	fxt := createLoopTestFixture()
	defer fxt.destroy()
	ctx := context.Background()

	fxt.loop.EnableManualTick(true)
	assert.True(t, fxt.loop.IsManualTick())
	// Any tick started before the switch is over once a job executes
	require.NoError(t, fxt.loop.Do(ctx, func() error { return nil }))
	start := fxt.loop.TickCount()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, start, fxt.loop.TickCount())

	require.NoError(t, fxt.loop.RequestTicks(ctx, 3, true))
	assert.Equal(t, start+3, fxt.loop.TickCount())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, start+3, fxt.loop.TickCount())

	require.NoError(t, fxt.loop.RequestTicks(ctx, 2, false))
	assert.Eventually(t, func() bool {
		return fxt.loop.TickCount() == start+5
	}, time.Second, time.Millisecond)

	fxt.loop.EnableManualTick(false)
	assert.Eventually(t, func() bool {
		return fxt.loop.TickCount() > start+5
	}, time.Second, time.Millisecond)
}

func TestRequestTicksWaitsForPendingTicks(t *testing.T) {
	fxt := createLoopTestFixture()
	defer fxt.destroy()
	ctx := context.Background()

	fxt.loop.EnableManualTick(true)
	require.NoError(t, fxt.loop.Do(ctx, func() error { return nil }))
	start := fxt.loop.TickCount()

	// Keep the loop busy so that no tick is consumed between the two requests
	blocked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = fxt.loop.Do(ctx, func() error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked

	require.NoError(t, fxt.loop.RequestTicks(ctx, 3, false))
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	require.NoError(t, fxt.loop.RequestTicks(ctx, 2, true))
	assert.Equal(t, start+5, fxt.loop.TickCount())
}

func TestRequestTicksAfterStop(t *testing.T) {
	fxt := createLoopTestFixture()
	fxt.loop.EnableManualTick(true)
	require.NoError(t, fxt.destroy())

	err := fxt.loop.RequestTicks(context.Background(), 1, true)
	assert.ErrorIs(t, err, ErrLoopStopped)
	assert.NoError(t, fxt.loop.RequestTicks(context.Background(), 0, true))
}

func TestRequestTicksCanceled(t *testing.T) {
	fxt := createLoopTestFixture()
	defer fxt.destroy()
	fxt.loop.EnableManualTick(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := fxt.loop.RequestTicks(ctx, 1000000, true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
