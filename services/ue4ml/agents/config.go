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

package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
)

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "sensors": { "$ref": "#/definitions/elements" },
    "actuators": { "$ref": "#/definitions/elements" },
    "avatarClassName": { "type": "string" },
    "agentClassName": { "type": "string" },
    "avatarClassExact": { "type": "boolean" },
    "autoRequestNewAvatarUponClearingPrev": { "type": "boolean" }
  },
  "definitions": {
    "elements": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": ["object", "null"],
        "properties": {
          "params": {
            "type": ["object", "null"],
            "additionalProperties": { "type": ["string", "number", "boolean"] }
          }
        }
      }
    }
  }
}`

var compiledConfigSchema = jsonschema.MustCompileString("agent_config.schema.json", configSchema)

// Params are the parameters of a sensor or actuator.
//
// Numbers and booleans are accepted in JSON and stored in their string representation.
type Params map[string]string

func (p *Params) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*p = nil
		return nil
	}
	params := make(Params, len(raw))
	for key, value := range raw {
		switch value := value.(type) {
		case string:
			params[key] = value
		case float64:
			params[key] = strconv.FormatFloat(value, 'g', -1, 64)
		case bool:
			params[key] = strconv.FormatBool(value)
		default:
			return fmt.Errorf("unsupported value type for param %q", key)
		}
	}
	*p = params
	return nil
}

type ElementConfig struct {
	Params Params `json:"params"`
}

// Config is the configuration of an agent.
//
// Sensors and actuators are keyed by class name.
type Config struct {
	Sensors                              map[string]ElementConfig `json:"sensors"`
	Actuators                            map[string]ElementConfig `json:"actuators"`
	AvatarClassName                      string                   `json:"avatarClassName"`
	AgentClassName                       string                   `json:"agentClassName"`
	AvatarClassExact                     bool                     `json:"avatarClassExact"`
	AutoRequestNewAvatarUponClearingPrev bool                     `json:"autoRequestNewAvatarUponClearingPrev"`
}

func DefaultConfig() Config {
	return Config{
		Sensors:                              map[string]ElementConfig{},
		Actuators:                            map[string]ElementConfig{},
		AvatarClassName:                      world.PlayerControllerClass.Name(),
		AutoRequestNewAvatarUponClearingPrev: true,
	}
}

// ParseConfig validates and deserializes a JSON agent configuration, missing fields keep their default value
func ParseConfig(data string) (Config, error) {
	var document interface{}
	decoder := json.NewDecoder(bytes.NewReader([]byte(data)))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return Config{}, fmt.Errorf("invalid agent configuration json: %w", err)
	}
	if err := compiledConfigSchema.Validate(document); err != nil {
		return Config{}, fmt.Errorf("invalid agent configuration: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return Config{}, fmt.Errorf("invalid agent configuration: %w", err)
	}
	if config.Sensors == nil {
		config.Sensors = map[string]ElementConfig{}
	}
	if config.Actuators == nil {
		config.Actuators = map[string]ElementConfig{}
	}
	return config, nil
}

func (c Config) ToJSON() (string, error) {
	serialized, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("unable to serialize agent configuration: %w", err)
	}
	return string(serialized), nil
}

func cloneElements(elements map[string]ElementConfig) map[string]ElementConfig {
	cloned := make(map[string]ElementConfig, len(elements))
	for name, element := range elements {
		var params Params
		if element.Params != nil {
			params = make(Params, len(element.Params))
			for key, value := range element.Params {
				params[key] = value
			}
		}
		cloned[name] = ElementConfig{Params: params}
	}
	return cloned
}

// Clone returns a deep copy of the configuration
func (c Config) Clone() Config {
	cloned := c
	cloned.Sensors = cloneElements(c.Sensors)
	cloned.Actuators = cloneElements(c.Actuators)
	return cloned
}
