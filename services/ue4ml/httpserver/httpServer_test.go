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

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type testDispatcher struct {
	functions []*rpc.Function
}

func (d *testDispatcher) Functions() []*rpc.Function {
	return d.functions
}

func (d *testDispatcher) Call(ctx context.Context, name string, args rpc.Args) (*structpb.Value, error) {
	for _, function := range d.functions {
		if function.Name == name {
			return function.Invoke(ctx, args)
		}
	}
	return nil, rpc.NewFunctionNotFoundError(name)
}

func createTestServer() *Server {
	dispatcher := &testDispatcher{
		functions: []*rpc.Function{
			{
				Name:        "ping",
				Description: "Always true.",
				Handler: func(context.Context, rpc.Args) (interface{}, error) {
					return true, nil
				},
			},
			{
				Name:        "get_observations",
				Description: "Observations of an agent.",
				Group:       rpc.GroupClient,
				Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
					id, err := args.AgentID(0)
					if err != nil {
						return nil, err
					}
					if id != 0 {
						return nil, rpc.NewAgentNotFoundError(id)
					}
					return []float32{1, 2.5, 3}, nil
				},
			},
			{
				Name:  "close_session",
				Group: rpc.GroupServer,
				Handler: func(context.Context, rpc.Args) (interface{}, error) {
					return nil, rpc.NewNoSessionError()
				},
			},
		},
	}
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "Test counter."})
	registry.MustRegister(counter)
	counter.Inc()
	return New(0, dispatcher, registry)
}

func serve(server *Server, method string, path string, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	server.Handler.ServeHTTP(recorder, request)
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	res := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &res), recorder.Body.String())
	return res
}

func TestGetInfo(t *testing.T) {
	server := createTestServer()

	recorder := serve(server, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	res := decode(t, recorder)
	assert.Equal(t, "ue4ml", res["name"])
	assert.EqualValues(t, 3, res["nb_functions"])
}

func TestListFunctions(t *testing.T) {
	server := createTestServer()

	recorder := serve(server, http.MethodGet, "/functions", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	res := []functionResponse{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &res))
	assert.Equal(t, []functionResponse{
		{Name: "ping", Description: "Always true.", Group: "common"},
		{Name: "get_observations", Description: "Observations of an agent.", Group: "client"},
		{Name: "close_session", Group: "server"},
	}, res)
}

func TestCallFunction(t *testing.T) {
	server := createTestServer()

	recorder := serve(server, http.MethodPost, "/functions/ping", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decode(t, recorder)["result"])

	recorder = serve(server, http.MethodPost, "/functions/get_observations", "[0]")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []interface{}{1.0, 2.5, 3.0}, decode(t, recorder)["result"])
}

func TestCallFunctionErrors(t *testing.T) {
	server := createTestServer()

	testCases := []struct {
		path       string
		body       string
		statusCode int
	}{
		{"/functions/get_observations", "[3]", http.StatusNotFound},
		{"/functions/get_observations", "[]", http.StatusBadRequest},
		{"/functions/get_observations", `{"id": 0}`, http.StatusBadRequest},
		{"/functions/close_session", "", http.StatusPreconditionFailed},
		{"/functions/unknown", "", http.StatusNotFound},
	}
	for _, testCase := range testCases {
		recorder := serve(server, http.MethodPost, testCase.path, testCase.body)
		assert.Equal(t, testCase.statusCode, recorder.Code, testCase.path)
		assert.NotEmpty(t, decode(t, recorder)["message"], testCase.path)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	server := createTestServer()

	assert.Equal(t, http.StatusNotFound, serve(server, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(server, http.MethodGet, "/functions/ping", "").Code)
}

func TestMetrics(t *testing.T) {
	server := createTestServer()

	recorder := serve(server, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "test_total 1")
}
