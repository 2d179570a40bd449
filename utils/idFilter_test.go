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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFilter(t *testing.T) {
	all := NewIDFilter[uint32](nil)
	assert.True(t, all.SelectsAll())
	assert.True(t, all.Selects(12))

	some := NewIDFilter([]string{"a", "c"})
	assert.False(t, some.SelectsAll())
	assert.True(t, some.Selects("a"))
	assert.False(t, some.Selects("b"))
}
