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
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoggerFormatterPrefixAndFields(t *testing.T) {
	formatter := MakeLoggerFormatter([]string{"component", "sub_component"}, true)

	entry := logrus.NewEntry(logrus.StandardLogger()).WithFields(logrus.Fields{
		"component":     "session",
		"sub_component": "avatar",
		"agent_id":      3,
		"actor":         "Pawn_0",
	})
	entry.Time = time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	entry.Level = logrus.WarnLevel
	entry.Message = "  avatar already bound  "

	out, err := formatter.Format(entry)
	assert.NoError(t, err)
	assert.Equal(
		t,
		"2023-01-02T03:04:05Z [WARN] [session>avatar] avatar already bound [actor:Pawn_0] [agent_id:3]\n",
		string(out),
	)
}

func TestLoggerFormatterMissingPrefixField(t *testing.T) {
	formatter := MakeLoggerFormatter([]string{"component", "sub_component"}, true)

	entry := logrus.NewEntry(logrus.StandardLogger()).WithField("component", "manager")
	entry.Time = time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	entry.Level = logrus.InfoLevel
	entry.Message = "server started"

	out, err := formatter.Format(entry)
	assert.NoError(t, err)
	assert.Equal(t, "2023-01-02T03:04:05Z [INFO] [manager] server started\n", string(out))
}
