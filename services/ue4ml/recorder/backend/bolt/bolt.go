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

package bolt

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend"
	bolt "go.etcd.io/bbolt"
)

type boltBackend struct {
	db       *bolt.DB
	filePath string
}

// Bucket structure is
//	trajectories	> {session_id}/{agent_id}	> {tick}	> {backend.Sample}

var trajectoriesBucketName = []byte("trajectories")

func getTrajectoriesBucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	trajectoriesBucket := tx.Bucket(trajectoriesBucketName)
	if trajectoriesBucket == nil {
		return nil, backend.NewUnexpectedError("trajectories bucket doesn't exist")
	}
	return trajectoriesBucket, nil
}

func serializeNumID(id uint64) []byte {
	// Fixed length hex keys are sorted like the ids themselves
	return []byte(fmt.Sprintf("%016x", id))
}

func serializeTrajectoryKey(key backend.TrajectoryKey) []byte {
	return []byte(fmt.Sprintf("%016x/%08x", key.SessionID, key.AgentID))
}

func deserializeTrajectoryKey(value []byte) (backend.TrajectoryKey, error) {
	parts := strings.Split(string(value), "/")
	if len(parts) != 2 {
		return backend.TrajectoryKey{}, backend.NewUnexpectedError("malformed trajectory key %q", string(value))
	}
	sessionID, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return backend.TrajectoryKey{}, backend.NewUnexpectedError("malformed session id in %q (%w)", string(value), err)
	}
	agentID, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return backend.TrajectoryKey{}, backend.NewUnexpectedError("malformed agent id in %q (%w)", string(value), err)
	}
	return backend.TrajectoryKey{SessionID: sessionID, AgentID: agents.AgentID(agentID)}, nil
}

func serializeSample(sample *backend.Sample) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	err := enc.Encode(*sample)
	if err != nil {
		return nil, backend.NewUnexpectedError("unable to serialize sample (%w)", err)
	}
	return buf.Bytes(), nil
}

func deserializeSample(v []byte) (*backend.Sample, error) {
	dec := gob.NewDecoder(bytes.NewBuffer(v))
	sample := &backend.Sample{}
	err := dec.Decode(sample)
	if err != nil {
		return nil, backend.NewUnexpectedError("unable to deserialize sample (%w)", err)
	}
	return sample, nil
}

// CreateBoltBackend creates a Backend that will store samples in a bolt-managed file
func CreateBoltBackend(filePath string) (backend.Backend, error) {
	db, err := bolt.Open(filePath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(trajectoriesBucketName)
		if err != nil {
			return backend.NewUnexpectedError("unable to create the trajectories bucket (%w)", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &boltBackend{
		db:       db,
		filePath: filePath,
	}, nil
}

func (b *boltBackend) Destroy() {
	b.db.Close()
	b.db = nil
}

func (b *boltBackend) AddSamples(samples []*backend.Sample) error {
	return b.db.Batch(func(tx *bolt.Tx) error {
		// Function must be idempotent as it might be called multiple times
		trajectoriesBucket, err := getTrajectoriesBucket(tx)
		if err != nil {
			return err
		}
		for _, sample := range samples {
			key := backend.TrajectoryKey{SessionID: sample.SessionID, AgentID: sample.AgentID}
			trajectoryBucket, err := trajectoriesBucket.CreateBucketIfNotExists(serializeTrajectoryKey(key))
			if err != nil {
				return backend.NewUnexpectedError("unable to add trajectory %q bucket (%w)", key, err)
			}
			sampleV, err := serializeSample(sample)
			if err != nil {
				return err
			}
			err = trajectoryBucket.Put(serializeNumID(sample.Tick), sampleV)
			if err != nil {
				return backend.NewUnexpectedError("unable to add sample for trajectory %q at tick %d (%w)", key, sample.Tick, err)
			}
		}
		return nil
	})
}

func (b *boltBackend) Samples(key backend.TrajectoryKey) ([]*backend.Sample, error) {
	samples := []*backend.Sample{}
	err := b.db.View(func(tx *bolt.Tx) error {
		trajectoriesBucket, err := getTrajectoriesBucket(tx)
		if err != nil {
			return err
		}
		trajectoryBucket := trajectoriesBucket.Bucket(serializeTrajectoryKey(key))
		if trajectoryBucket == nil {
			return nil
		}
		return trajectoryBucket.ForEach(func(_, v []byte) error {
			sample, err := deserializeSample(v)
			if err != nil {
				return err
			}
			samples = append(samples, sample)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

func (b *boltBackend) Trajectories(filter backend.TrajectoryFilter) ([]backend.TrajectoryInfo, error) {
	appliedFilter := filter.Apply()
	infos := []backend.TrajectoryInfo{}
	err := b.db.View(func(tx *bolt.Tx) error {
		trajectoriesBucket, err := getTrajectoriesBucket(tx)
		if err != nil {
			return err
		}
		return trajectoriesBucket.ForEach(func(k, _ []byte) error {
			key, err := deserializeTrajectoryKey(k)
			if err != nil {
				return err
			}
			if !appliedFilter.Selects(key) {
				return nil
			}
			trajectoryBucket := trajectoriesBucket.Bucket(k)
			if trajectoryBucket == nil {
				return nil
			}
			info := backend.TrajectoryInfo{
				Key:          key,
				SamplesCount: trajectoryBucket.Stats().KeyN,
			}
			if _, lastV := trajectoryBucket.Cursor().Last(); lastV != nil {
				lastSample, err := deserializeSample(lastV)
				if err != nil {
					return err
				}
				info.Done = lastSample.Done
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return backend.LessKey(infos[i].Key, infos[j].Key) })
	return infos, nil
}

func (b *boltBackend) DeleteTrajectories(keys []backend.TrajectoryKey) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		trajectoriesBucket, err := getTrajectoriesBucket(tx)
		if err != nil {
			return err
		}
		for _, key := range keys {
			err := trajectoriesBucket.DeleteBucket(serializeTrajectoryKey(key))
			if err != nil && err != bolt.ErrBucketNotFound {
				return backend.NewUnexpectedError("unable to delete trajectory %q (%w)", key, err)
			}
		}
		return nil
	})
}
