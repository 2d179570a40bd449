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

package rpc

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// ServerMode decides which groups of functions are bound
type ServerMode int

const (
	ServerModeAuto ServerMode = iota
	ServerModeClient
	ServerModeServer
	ServerModeStandalone
)

func (m ServerMode) String() string {
	switch m {
	case ServerModeAuto:
		return "auto"
	case ServerModeClient:
		return "client"
	case ServerModeServer:
		return "server"
	case ServerModeStandalone:
		return "standalone"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

func ParseServerMode(value string) (ServerMode, error) {
	switch strings.ToLower(value) {
	case "", "auto":
		return ServerModeAuto, nil
	case "client":
		return ServerModeClient, nil
	case "server":
		return ServerModeServer, nil
	case "standalone":
		return ServerModeStandalone, nil
	default:
		return ServerModeAuto, fmt.Errorf("unknown server mode %q, expecting one of auto, client, server or standalone", value)
	}
}

type Group int

const (
	GroupCommon Group = iota
	GroupClient
	GroupServer
)

func (g Group) String() string {
	switch g {
	case GroupCommon:
		return "common"
	case GroupClient:
		return "client"
	case GroupServer:
		return "server"
	default:
		return fmt.Sprintf("unknown(%d)", int(g))
	}
}

// AvailableIn returns true if functions of the group are bound in the given mode
func (g Group) AvailableIn(mode ServerMode) bool {
	switch g {
	case GroupCommon:
		return true
	case GroupClient:
		return mode == ServerModeClient || mode == ServerModeStandalone
	case GroupServer:
		return mode == ServerModeServer || mode == ServerModeStandalone
	default:
		return false
	}
}

type Handler func(ctx context.Context, args Args) (interface{}, error)

// Function is a remotely callable function
type Function struct {
	Name        string
	Description string
	Group       Group
	Handler     Handler
}

// Invoke calls the handler and converts its result
func (f *Function) Invoke(ctx context.Context, args Args) (*structpb.Value, error) {
	result, err := f.Handler(ctx, args)
	if err != nil {
		return nil, err
	}
	value, err := ToValue(result)
	if err != nil {
		return nil, fmt.Errorf("unable to convert the result of [%s]: %w", f.Name, err)
	}
	return value, nil
}

// Dispatcher exposes the bound functions to the transports
type Dispatcher interface {
	// Functions returns the currently bound functions
	Functions() []*Function
	// Call invokes a bound function by name
	Call(ctx context.Context, name string, args Args) (*structpb.Value, error)
}
