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
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	"google.golang.org/protobuf/types/known/structpb"
)

// Float32sValue converts floats to a list value
func Float32sValue(floats []float32) *structpb.Value {
	values := make([]*structpb.Value, len(floats))
	for i, f := range floats {
		values[i] = structpb.NewNumberValue(float64(f))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

// ToValue converts the result of a function to a protobuf value
func ToValue(result interface{}) (*structpb.Value, error) {
	switch result := result.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case *structpb.Value:
		return result, nil
	case agents.AgentID:
		return structpb.NewNumberValue(float64(result)), nil
	case float32:
		return structpb.NewNumberValue(float64(result)), nil
	case []float32:
		return Float32sValue(result), nil
	case [][]float32:
		values := make([]*structpb.Value, len(result))
		for i, floats := range result {
			values[i] = Float32sValue(floats)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
	case []bool:
		values := make([]*structpb.Value, len(result))
		for i, b := range result {
			values[i] = structpb.NewBoolValue(b)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
	case []string:
		values := make([]*structpb.Value, len(result))
		for i, s := range result {
			values[i] = structpb.NewStringValue(s)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
	case []agents.AgentID:
		values := make([]*structpb.Value, len(result))
		for i, id := range result {
			values[i] = structpb.NewNumberValue(float64(id))
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
	case map[string]uint32:
		fields := make(map[string]*structpb.Value, len(result))
		for key, value := range result {
			fields[key] = structpb.NewNumberValue(float64(value))
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	default:
		return structpb.NewValue(result)
	}
}

// FromValue converts a protobuf value to plain go values
func FromValue(value *structpb.Value) interface{} {
	if value == nil {
		return nil
	}
	return value.AsInterface()
}
