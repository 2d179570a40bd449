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

package ue4ml

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRecorder(t *testing.T) {
	r, err := createRecorder(DefaultOptions)
	assert.NoError(t, err)
	assert.Nil(t, r)

	options := DefaultOptions
	options.RecordMemoryTrajectories = 4
	r, err = createRecorder(options)
	require.NoError(t, err)
	require.NotNil(t, r)
	r.Destroy()

	options = DefaultOptions
	options.RecordFile = filepath.Join(t.TempDir(), "trajectories.db")
	r, err = createRecorder(options)
	require.NoError(t, err)
	require.NotNil(t, r)
	r.Destroy()
}

func TestRunUnknownScenario(t *testing.T) {
	options := DefaultOptions
	options.ScenarioFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, Run(context.Background(), options))
}

func TestRunUntilCanceled(t *testing.T) {
	options := DefaultOptions
	options.Port = 0
	options.ScenarioFile = "../../testdata/scenario.yaml"
	options.RecordMemoryTrajectories = 8

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := Run(ctx, options)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
