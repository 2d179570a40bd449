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
	"math"

	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"google.golang.org/protobuf/types/known/structpb"
)

// Args are the positional arguments of a function call
type Args struct {
	values []*structpb.Value
}

func NewArgs(list *structpb.ListValue) Args {
	if list == nil {
		return Args{}
	}
	return Args{values: list.GetValues()}
}

// NewArgsFromValues builds arguments from plain go values, see structpb.NewValue for the supported types
func NewArgsFromValues(values ...interface{}) (Args, error) {
	list, err := structpb.NewList(values)
	if err != nil {
		return Args{}, err
	}
	return NewArgs(list), nil
}

func (a Args) Len() int {
	return len(a.values)
}

func (a Args) ListValue() *structpb.ListValue {
	return &structpb.ListValue{Values: a.values}
}

func (a Args) value(index int) (*structpb.Value, error) {
	if index >= len(a.values) || a.values[index] == nil {
		return nil, NewArgumentError(index, "missing argument")
	}
	return a.values[index], nil
}

func numberValue(value *structpb.Value, index int) (float64, error) {
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, NewArgumentError(index, "expecting a number")
	}
	return number.NumberValue, nil
}

func toAgentID(value *structpb.Value, index int) (agents.AgentID, error) {
	number, err := numberValue(value, index)
	if err != nil {
		return agents.InvalidAgentID, err
	}
	if number < 0 || number > math.MaxUint32 || number != math.Trunc(number) {
		return agents.InvalidAgentID, NewArgumentError(index, "%v is not a valid agent id", number)
	}
	return agents.AgentID(number), nil
}

func (a Args) AgentID(index int) (agents.AgentID, error) {
	value, err := a.value(index)
	if err != nil {
		return agents.InvalidAgentID, err
	}
	return toAgentID(value, index)
}

// AgentIDs accepts a list of agent ids or a single one
func (a Args) AgentIDs(index int) ([]agents.AgentID, error) {
	value, err := a.value(index)
	if err != nil {
		return nil, err
	}
	list, ok := value.GetKind().(*structpb.Value_ListValue)
	if !ok {
		id, err := toAgentID(value, index)
		if err != nil {
			return nil, err
		}
		return []agents.AgentID{id}, nil
	}
	ids := make([]agents.AgentID, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		id, err := toAgentID(item, index)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (a Args) isAbsent(index int) bool {
	if index >= len(a.values) || a.values[index] == nil {
		return true
	}
	_, isNull := a.values[index].GetKind().(*structpb.Value_NullValue)
	return isNull
}

// OptionalAgentIDs returns nil when the argument is absent or null
func (a Args) OptionalAgentIDs(index int) ([]agents.AgentID, error) {
	if a.isAbsent(index) {
		return nil, nil
	}
	return a.AgentIDs(index)
}

func toUint(value *structpb.Value, index int) (uint64, error) {
	number, err := numberValue(value, index)
	if err != nil {
		return 0, err
	}
	if number < 0 || number > math.MaxUint64 || number != math.Trunc(number) {
		return 0, NewArgumentError(index, "%v is not an unsigned integer", number)
	}
	return uint64(number), nil
}

// Uints accepts a list of unsigned integers or a single one
func (a Args) Uints(index int) ([]uint64, error) {
	value, err := a.value(index)
	if err != nil {
		return nil, err
	}
	list, ok := value.GetKind().(*structpb.Value_ListValue)
	if !ok {
		number, err := toUint(value, index)
		if err != nil {
			return nil, err
		}
		return []uint64{number}, nil
	}
	numbers := make([]uint64, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		number, err := toUint(item, index)
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, number)
	}
	return numbers, nil
}

// OptionalUints returns nil when the argument is absent or null
func (a Args) OptionalUints(index int) ([]uint64, error) {
	if a.isAbsent(index) {
		return nil, nil
	}
	return a.Uints(index)
}

func (a Args) Int(index int) (int64, error) {
	value, err := a.value(index)
	if err != nil {
		return 0, err
	}
	number, err := numberValue(value, index)
	if err != nil {
		return 0, err
	}
	if number != math.Trunc(number) || number < math.MinInt64 || number > math.MaxInt64 {
		return 0, NewArgumentError(index, "%v is not an integer", number)
	}
	return int64(number), nil
}

func (a Args) Uint(index int) (uint64, error) {
	value, err := a.Int(index)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, NewArgumentError(index, "%d is negative", value)
	}
	return uint64(value), nil
}

func (a Args) Bool(index int) (bool, error) {
	value, err := a.value(index)
	if err != nil {
		return false, err
	}
	switch kind := value.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return kind.BoolValue, nil
	case *structpb.Value_NumberValue:
		return kind.NumberValue != 0, nil
	default:
		return false, NewArgumentError(index, "expecting a boolean")
	}
}

// OptionalBool returns the fallback when the argument is absent
func (a Args) OptionalBool(index int, fallback bool) (bool, error) {
	if index >= len(a.values) {
		return fallback, nil
	}
	return a.Bool(index)
}

func (a Args) String(index int) (string, error) {
	value, err := a.value(index)
	if err != nil {
		return "", err
	}
	str, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", NewArgumentError(index, "expecting a string")
	}
	return str.StringValue, nil
}

func toFloat32s(value *structpb.Value, index int) ([]float32, error) {
	list, ok := value.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, NewArgumentError(index, "expecting a list of numbers")
	}
	floats := make([]float32, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		number, err := numberValue(item, index)
		if err != nil {
			return nil, err
		}
		floats = append(floats, float32(number))
	}
	return floats, nil
}

func (a Args) Float32s(index int) ([]float32, error) {
	value, err := a.value(index)
	if err != nil {
		return nil, err
	}
	return toFloat32s(value, index)
}

func (a Args) Float32sList(index int) ([][]float32, error) {
	value, err := a.value(index)
	if err != nil {
		return nil, err
	}
	list, ok := value.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, NewArgumentError(index, "expecting a list of lists of numbers")
	}
	result := make([][]float32, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		floats, err := toFloat32s(item, index)
		if err != nil {
			return nil, err
		}
		result = append(result, floats)
	}
	return result, nil
}
