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

package memory

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend"
)

type trajectory struct {
	mutex   sync.RWMutex
	samples []*backend.Sample
}

func (t *trajectory) add(sample *backend.Sample) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	index := sort.Search(len(t.samples), func(i int) bool { return t.samples[i].Tick >= sample.Tick })
	if index < len(t.samples) && t.samples[index].Tick == sample.Tick {
		t.samples[index] = sample
		return
	}
	t.samples = append(t.samples, nil)
	copy(t.samples[index+1:], t.samples[index:])
	t.samples[index] = sample
}

func (t *trajectory) info(key backend.TrajectoryKey) backend.TrajectoryInfo {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	info := backend.TrajectoryInfo{Key: key, SamplesCount: len(t.samples)}
	if len(t.samples) > 0 {
		info.Done = t.samples[len(t.samples)-1].Done
	}
	return info
}

type memoryBackend struct {
	// Adding a sample to a trajectory must not race with its eviction
	mutex        sync.Mutex
	trajectories *lru.Cache
}

var DefaultMaxTrajectories = 1024

// CreateMemoryBackend creates a Backend keeping at most "maxTrajectories" trajectories, the least recently
// updated ones are evicted first
func CreateMemoryBackend(maxTrajectories int) (backend.Backend, error) {
	trajectories, err := lru.New(maxTrajectories)
	if err != nil {
		return nil, fmt.Errorf("unable to create the trajectories cache: %w", err)
	}
	return &memoryBackend{trajectories: trajectories}, nil
}

func (b *memoryBackend) Destroy() {
	b.trajectories.Purge()
}

func (b *memoryBackend) AddSamples(samples []*backend.Sample) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, sample := range samples {
		key := backend.TrajectoryKey{SessionID: sample.SessionID, AgentID: sample.AgentID}
		value, found := b.trajectories.Get(key)
		if !found {
			value = &trajectory{}
			b.trajectories.Add(key, value)
		}
		value.(*trajectory).add(sample)
	}
	return nil
}

func (b *memoryBackend) Samples(key backend.TrajectoryKey) ([]*backend.Sample, error) {
	value, found := b.trajectories.Get(key)
	if !found {
		return []*backend.Sample{}, nil
	}
	t := value.(*trajectory)
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return append([]*backend.Sample{}, t.samples...), nil
}

func (b *memoryBackend) Trajectories(filter backend.TrajectoryFilter) ([]backend.TrajectoryInfo, error) {
	appliedFilter := filter.Apply()
	infos := []backend.TrajectoryInfo{}
	for _, rawKey := range b.trajectories.Keys() {
		key := rawKey.(backend.TrajectoryKey)
		if !appliedFilter.Selects(key) {
			continue
		}
		value, found := b.trajectories.Peek(key)
		if !found {
			continue
		}
		infos = append(infos, value.(*trajectory).info(key))
	}
	sort.Slice(infos, func(i, j int) bool { return backend.LessKey(infos[i].Key, infos[j].Key) })
	return infos, nil
}

func (b *memoryBackend) DeleteTrajectories(keys []backend.TrajectoryKey) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, key := range keys {
		b.trajectories.Remove(key)
	}
	return nil
}
