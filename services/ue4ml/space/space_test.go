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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNum(t *testing.T) {
	assert.Equal(t, 1, NewDiscrete(5).Num())
	assert.Equal(t, 3, NewMultiDiscrete(2, 3, 4).Num())
	assert.Equal(t, 4, NewUniformMultiDiscrete(4, 2).Num())
	assert.Equal(t, 24, NewUnitBox(2, 3, 4).Num())
	assert.Equal(t, 0, NewDummy().Num())
	assert.Equal(t, 0, NewUnitBox().Num())

	tuple := NewTuple(
		NewDiscrete(2),
		NewUnitBox(3),
		NewTuple(NewMultiDiscrete(2, 2), NewDummy()),
	)
	assert.Equal(t, 1+3+2, tuple.Num())
	assert.Equal(t, 0, NewTuple().Num())
}

func TestJSONWireFormat(t *testing.T) {
	testCases := []struct {
		space    Space
		expected string
	}{
		{NewDiscrete(4), `{"Discrete":4}`},
		{NewMultiDiscrete(2, 3), `{"MultiDiscrete":[2,3]}`},
		{NewMultiDiscrete(), `{"MultiDiscrete":[]}`},
		{NewBox([]int{6}, -1000, 1000.5), `{"Box":{"low":-1000,"high":1000.5,"shape":[6]}}`},
		{NewDummy(), `{"Box":{"low":-1,"high":1,"shape":[0]}}`},
		{NewTuple(), `{"Tuple":[]}`},
		{
			NewTuple(NewDiscrete(2), NewUnitBox(2, 2)),
			`{"Tuple":[{"Discrete":2},{"Box":{"low":-1,"high":1,"shape":[2,2]}}]}`,
		},
	}

	for _, testCase := range testCases {
		serialized, err := ToJSON(testCase.space)
		assert.NoError(t, err)
		assert.Equal(t, testCase.expected, serialized)
	}
}

func TestParse(t *testing.T) {
	original := NewTuple(
		NewDiscrete(3),
		NewMultiDiscrete(2, 2, 2),
		NewBox([]int{2, 3}, -5, 5),
		NewTuple(NewDummy()),
	)
	serialized, err := ToJSON(original)
	assert.NoError(t, err)

	parsed, err := Parse([]byte(serialized))
	assert.NoError(t, err)
	assert.Equal(t, Tuple, parsed.Type())
	assert.Equal(t, original.Num(), parsed.Num())

	reserialized, err := ToJSON(parsed)
	assert.NoError(t, err)
	assert.Equal(t, serialized, reserialized)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"Sphere":3}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"Discrete":3,"Box":{}}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"Discrete":"three"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"Tuple":[{"Sphere":1}]}`))
	assert.Error(t, err)
}
