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
	"fmt"

	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AgentNotFoundError is raised when a function targets an agent that isn't part of the session
type AgentNotFoundError struct {
	AgentID agents.AgentID
}

func NewAgentNotFoundError(agentID agents.AgentID) *AgentNotFoundError {
	return &AgentNotFoundError{AgentID: agentID}
}

func (err *AgentNotFoundError) Error() string {
	return fmt.Sprintf("Agent [%d] not found", err.AgentID)
}

func (err *AgentNotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, err.Error())
}

// NoSessionError is raised when a function needs a session and there is none
type NoSessionError struct{}

func NewNoSessionError() *NoSessionError {
	return &NoSessionError{}
}

func (err *NoSessionError) Error() string {
	return "No active session"
}

func (err *NoSessionError) GRPCStatus() *status.Status {
	return status.New(codes.FailedPrecondition, err.Error())
}

// ArgumentError is raised when a positional argument is missing or has the wrong type
type ArgumentError struct {
	Index   int
	Message string
}

func NewArgumentError(index int, format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{Index: index, Message: fmt.Sprintf(format, args...)}
}

func (err *ArgumentError) Error() string {
	return fmt.Sprintf("Invalid argument #%d: %s", err.Index, err.Message)
}

func (err *ArgumentError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, err.Error())
}

// ServerModeError is raised when a known function isn't bound in the current server mode
type ServerModeError struct {
	Function string
	Group    Group
	Mode     ServerMode
}

func NewServerModeError(function string, group Group, mode ServerMode) *ServerModeError {
	return &ServerModeError{Function: function, Group: group, Mode: mode}
}

func (err *ServerModeError) Error() string {
	return fmt.Sprintf("Function [%s] belongs to the [%s] group, not available in [%s] mode", err.Function, err.Group, err.Mode)
}

func (err *ServerModeError) GRPCStatus() *status.Status {
	return status.New(codes.FailedPrecondition, err.Error())
}

// FunctionNotFoundError is raised when calling a function that doesn't exist
type FunctionNotFoundError struct {
	Function string
}

func NewFunctionNotFoundError(function string) *FunctionNotFoundError {
	return &FunctionNotFoundError{Function: function}
}

func (err *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("Unknown function [%s]", err.Function)
}

func (err *FunctionNotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, err.Error())
}

// RecordingDisabledError is raised when reading trajectories while the recorder is disabled
type RecordingDisabledError struct{}

func NewRecordingDisabledError() *RecordingDisabledError {
	return &RecordingDisabledError{}
}

func (err *RecordingDisabledError) Error() string {
	return "Trajectories recording is disabled"
}

func (err *RecordingDisabledError) GRPCStatus() *status.Status {
	return status.New(codes.FailedPrecondition, err.Error())
}

// Code returns the gRPC code matching an error returned by a function
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}
