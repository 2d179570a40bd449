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

package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("debug")
	assert.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)

	level, err = parseLogLevel(LogLevelOff)
	assert.NoError(t, err)
	assert.Equal(t, logrus.PanicLevel, level)

	_, err = parseLogLevel("verbose")
	assert.Error(t, err)
}

func TestConfigureLogInvalidFormat(t *testing.T) {
	cfg := viper.New()
	cfg.Set(servicesLogLevelKey, "info")
	cfg.Set(servicesLogFormatKey, "xml")
	assert.Error(t, configureLog(cfg))
}

func TestConfigureLog(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	cfg := viper.New()
	cfg.Set(servicesLogLevelKey, "loud")
	assert.Error(t, configureLog(cfg))

	cfg.Set(servicesLogLevelKey, "warning")
	assert.NoError(t, configureLog(cfg))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}

func TestUe4mlDefaults(t *testing.T) {
	assert.EqualValues(t, 15151, ue4mlViper.GetUint(ue4mlPortKey))
	assert.Equal(t, "auto", ue4mlViper.GetString(ue4mlServerModeKey))
	assert.EqualValues(t, 30, ue4mlViper.GetFloat64(ue4mlTickRateKey))
	assert.Equal(t, "", ue4mlViper.GetString(ue4mlScenarioKey))
}
