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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder/backend/test"
)

func TestSuiteBoltBackend(t *testing.T) {
	test.RunSuite(t, func() backend.Backend {
		// create and open a temporary file
		f, err := os.CreateTemp("", "ue4ml-recorder-bolt-test")
		assert.NoError(t, err)

		// close and remove the temporary file
		defer f.Close()

		bolt, err := CreateBoltBackend(f.Name())
		assert.NoError(t, err)
		return bolt
	}, func(b backend.Backend) {
		rb := b.(*boltBackend)

		defer os.Remove(rb.filePath)
		defer rb.Destroy()
	})
}

func TestTrajectoryKeySerialization(t *testing.T) {
	key := backend.TrajectoryKey{SessionID: 12, AgentID: 300}
	serialized := serializeTrajectoryKey(key)
	assert.Equal(t, "000000000000000c/0000012c", string(serialized))

	deserialized, err := deserializeTrajectoryKey(serialized)
	assert.NoError(t, err)
	assert.Equal(t, key, deserialized)

	_, err = deserializeTrajectoryKey([]byte("garbage"))
	assert.Error(t, err)
}
