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

// Handle identifies a registered listener so that it can be removed later
type Handle uint64

type listener[T any] struct {
	handle Handle
	fn     func(T)
}

// Listeners is a list of callbacks notified, in registration order, on Broadcast.
//
// Broadcast works on a snapshot, listeners are free to add or remove listeners from their callback.
type Listeners[T any] struct {
	mutex      sync.Mutex
	nextHandle Handle
	listeners  []listener[T]
}

func (l *Listeners[T]) Add(fn func(T)) Handle {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.nextHandle++
	l.listeners = append(l.listeners, listener[T]{handle: l.nextHandle, fn: fn})
	return l.nextHandle
}

func (l *Listeners[T]) Remove(handle Handle) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for i, listener := range l.listeners {
		if listener.handle == handle {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Listeners[T]) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.listeners)
}

func (l *Listeners[T]) Broadcast(value T) {
	l.mutex.Lock()
	snapshot := make([]listener[T], len(l.listeners))
	copy(snapshot, l.listeners)
	l.mutex.Unlock()

	for _, listener := range snapshot {
		listener.fn(value)
	}
}
