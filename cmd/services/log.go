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
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/ue4ml/ue4ml/utils"
)

var log = logrus.WithField("component", "cmd")

type logFormat string

const (
	text logFormat = "text"
	json logFormat = "json"
)

var expectedLogFormats = []logFormat{text, json}

func isValidLogFormat(desiredFormat logFormat) bool {
	for _, format := range expectedLogFormats {
		if format == desiredFormat {
			return true
		}
	}
	return false
}

const LogLevelOff = "off"

var expectedLogLevels = []string{
	logrus.TraceLevel.String(),
	logrus.DebugLevel.String(),
	logrus.InfoLevel.String(),
	logrus.WarnLevel.String(),
	logrus.ErrorLevel.String(),
	LogLevelOff,
}

func parseLogLevel(logLevelStr string) (logrus.Level, error) {
	for _, expectedLogLevel := range expectedLogLevels {
		if expectedLogLevel != logLevelStr {
			continue
		}
		if logLevelStr == LogLevelOff {
			// Only assertion failures
			return logrus.PanicLevel, nil
		}
		return logrus.ParseLevel(logLevelStr)
	}
	return logrus.InfoLevel, fmt.Errorf(
		"invalid log level specified %q expecting one of %v",
		logLevelStr,
		expectedLogLevels,
	)
}

func configureLog(cfg *viper.Viper) error {
	desiredFormat := text
	if cfg.IsSet(servicesLogFormatKey) && cfg.GetString(servicesLogFormatKey) != "" {
		desiredFormat = logFormat(cfg.GetString(servicesLogFormatKey))
		if !isValidLogFormat(desiredFormat) {
			return fmt.Errorf(
				"invalid log format specified %q expecting one of %v",
				desiredFormat,
				expectedLogFormats,
			)
		}
	} else if cfg.GetString(servicesLogFileKey) != "" {
		desiredFormat = json
	}

	logLevel, err := parseLogLevel(cfg.GetString(servicesLogLevelKey))
	if err != nil {
		return err
	}
	logrus.SetLevel(logLevel)

	switch desiredFormat {
	case json:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case text:
		prefixFields := []string{"component", "sub_component"}
		loggerFormatter := utils.MakeLoggerFormatter(prefixFields, false)
		logrus.SetFormatter(&loggerFormatter)
	}

	if path := cfg.GetString(servicesLogFileKey); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("unable to open log file %q: %w", path, err)
		}
		log.WithField("path", path).Info("logger setup with a file output")
		logrus.SetOutput(file)
	}
	return nil
}
