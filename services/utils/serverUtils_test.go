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

package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func TestExtractPort(t *testing.T) {
	port, err := ExtractPort("127.0.0.1:15151")
	assert.NoError(t, err)
	assert.Equal(t, uint(15151), port)

	port, err = ExtractPort("[::]:9000")
	assert.NoError(t, err)
	assert.Equal(t, uint(9000), port)

	_, err = ExtractPort("localhost")
	assert.Error(t, err)

	_, err = ExtractPort("localhost:http")
	assert.Error(t, err)

	_, err = ExtractPort("localhost:70000")
	assert.Error(t, err)
}

func TestStopGrpcServer(t *testing.T) {
	server := NewGrpcServer(GrpcServerOptions{NbWorkers: 2})
	listener := bufconn.Listen(1024 * 1024)

	served := make(chan error)
	go func() {
		served <- server.Serve(listener)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, StopGrpcServer(ctx, server))
	err := <-served
	if err != nil {
		// Serve might not have been called before the stop
		assert.ErrorIs(t, err, grpc.ErrServerStopped)
	}
}
