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

package space

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Type int

const (
	Discrete Type = iota
	MultiDiscrete
	Box
	Tuple
)

func (t Type) String() string {
	switch t {
	case Discrete:
		return "Discrete"
	case MultiDiscrete:
		return "MultiDiscrete"
	case Box:
		return "Box"
	case Tuple:
		return "Tuple"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Space describes the shape and bounds of a flat vector of float32.
//
// Num is the number of floats a sensor writes or an actuator consumes for this space.
// The JSON serialization is the wire format exchanged with the clients.
type Space interface {
	json.Marshaler
	Type() Type
	Num() int
}

type DiscreteSpace struct {
	Count int
}

func NewDiscrete(count int) *DiscreteSpace {
	return &DiscreteSpace{Count: count}
}

func (s *DiscreteSpace) Type() Type { return Discrete }
func (s *DiscreteSpace) Num() int   { return 1 }

func (s *DiscreteSpace) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Discrete int `json:"Discrete"`
	}{s.Count})
}

type MultiDiscreteSpace struct {
	Options []int
}

func NewMultiDiscrete(options ...int) *MultiDiscreteSpace {
	return &MultiDiscreteSpace{Options: options}
}

// NewUniformMultiDiscrete creates a space of `count` slots with the same number of `options` each
func NewUniformMultiDiscrete(count int, options int) *MultiDiscreteSpace {
	slots := make([]int, count)
	for i := range slots {
		slots[i] = options
	}
	return &MultiDiscreteSpace{Options: slots}
}

func (s *MultiDiscreteSpace) Type() Type { return MultiDiscrete }
func (s *MultiDiscreteSpace) Num() int   { return len(s.Options) }

func (s *MultiDiscreteSpace) MarshalJSON() ([]byte, error) {
	options := s.Options
	if options == nil {
		options = []int{}
	}
	return json.Marshal(struct {
		MultiDiscrete []int `json:"MultiDiscrete"`
	}{options})
}

type BoxSpace struct {
	Shape []int
	Low   float32
	High  float32
}

const (
	DefaultBoxLow  float32 = -1
	DefaultBoxHigh float32 = 1
)

func NewBox(shape []int, low float32, high float32) *BoxSpace {
	return &BoxSpace{Shape: shape, Low: low, High: high}
}

// NewUnitBox creates a box space bounded in [-1, 1]
func NewUnitBox(shape ...int) *BoxSpace {
	return &BoxSpace{Shape: shape, Low: DefaultBoxLow, High: DefaultBoxHigh}
}

// NewDummy is a zero sized space used by elements that have nothing to describe yet
func NewDummy() *BoxSpace {
	return &BoxSpace{Shape: []int{0}, Low: DefaultBoxLow, High: DefaultBoxHigh}
}

func (s *BoxSpace) Type() Type { return Box }

func (s *BoxSpace) Num() int {
	if len(s.Shape) == 0 {
		return 0
	}
	num := 1
	for _, dim := range s.Shape {
		num *= dim
	}
	return num
}

type boxJSON struct {
	Low   float32 `json:"low"`
	High  float32 `json:"high"`
	Shape []int   `json:"shape"`
}

func (s *BoxSpace) MarshalJSON() ([]byte, error) {
	shape := s.Shape
	if shape == nil {
		shape = []int{}
	}
	return json.Marshal(struct {
		Box boxJSON `json:"Box"`
	}{boxJSON{Low: s.Low, High: s.High, Shape: shape}})
}

type TupleSpace struct {
	Spaces []Space
}

func NewTuple(spaces ...Space) *TupleSpace {
	return &TupleSpace{Spaces: spaces}
}

func (s *TupleSpace) Type() Type { return Tuple }

func (s *TupleSpace) Num() int {
	num := 0
	for _, subspace := range s.Spaces {
		num += subspace.Num()
	}
	return num
}

func (s *TupleSpace) MarshalJSON() ([]byte, error) {
	subspaces := s.Spaces
	if subspaces == nil {
		subspaces = []Space{}
	}
	return json.Marshal(struct {
		Tuple []Space `json:"Tuple"`
	}{subspaces})
}

// ToJSON serializes a space in its wire format
func ToJSON(s Space) (string, error) {
	serialized, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("unable to serialize %s space: %w", s.Type(), err)
	}
	return string(serialized), nil
}

// Parse deserializes a space from its wire format
func Parse(data []byte) (Space, error) {
	var fields map[string]json.RawMessage
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid space json: %w", err)
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("invalid space json, expected exactly one type key, got %d", len(fields))
	}
	for key, value := range fields {
		switch key {
		case Discrete.String():
			s := &DiscreteSpace{}
			if err := json.Unmarshal(value, &s.Count); err != nil {
				return nil, fmt.Errorf("invalid %s space: %w", key, err)
			}
			return s, nil
		case MultiDiscrete.String():
			s := &MultiDiscreteSpace{}
			if err := json.Unmarshal(value, &s.Options); err != nil {
				return nil, fmt.Errorf("invalid %s space: %w", key, err)
			}
			return s, nil
		case Box.String():
			box := boxJSON{}
			if err := json.Unmarshal(value, &box); err != nil {
				return nil, fmt.Errorf("invalid %s space: %w", key, err)
			}
			return &BoxSpace{Shape: box.Shape, Low: box.Low, High: box.High}, nil
		case Tuple.String():
			var rawSubspaces []json.RawMessage
			if err := json.Unmarshal(value, &rawSubspaces); err != nil {
				return nil, fmt.Errorf("invalid %s space: %w", key, err)
			}
			s := &TupleSpace{Spaces: make([]Space, 0, len(rawSubspaces))}
			for _, rawSubspace := range rawSubspaces {
				subspace, err := Parse(rawSubspace)
				if err != nil {
					return nil, err
				}
				s.Spaces = append(s.Spaces, subspace)
			}
			return s, nil
		default:
			return nil, fmt.Errorf("unknown space type %q", key)
		}
	}
	return nil, fmt.Errorf("invalid space json")
}
