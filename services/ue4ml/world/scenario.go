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

package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type GameModeSpec struct {
	StartDelay    float32 `yaml:"start_delay"`
	MatchDuration float32 `yaml:"match_duration"`
}

// SpawnEntry describes actors spawned when the world begins play or is reset
type SpawnEntry struct {
	Class string `yaml:"class"`
	Count int    `yaml:"count"`
	// Controller is the class of a controller spawned to possess each pawn, empty for none
	Controller     string             `yaml:"controller"`
	Location       Vector             `yaml:"location"`
	Spacing        Vector             `yaml:"spacing"`
	Attributes     map[string]float32 `yaml:"attributes"`
	Delay          float32            `yaml:"delay"`
	Lifespan       float32            `yaml:"lifespan"`
	Respawn        bool               `yaml:"respawn"`
	ScorePerSecond float32            `yaml:"score_per_second"`
	MaxSpeed       float32            `yaml:"max_speed"`
}

func (e *SpawnEntry) count() int {
	if e.Count == 0 {
		return 1
	}
	return e.Count
}

type Scenario struct {
	Name     string        `yaml:"name"`
	NetMode  string        `yaml:"net_mode"`
	GameMode *GameModeSpec `yaml:"game_mode"`
	Spawns   []SpawnEntry  `yaml:"spawns"`
}

// DefaultScenario is a standalone match with two player controlled characters
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:     "default",
		NetMode:  NetModeStandalone.String(),
		GameMode: &GameModeSpec{},
		Spawns: []SpawnEntry{
			{
				Class:          CharacterClass.Name(),
				Count:          2,
				Controller:     PlayerControllerClass.Name(),
				Spacing:        Vector{X: 200},
				Attributes:     map[string]float32{"health": 100},
				ScorePerSecond: 1,
			},
		},
	}
}

func ParseScenario(data []byte) (*Scenario, error) {
	scenario := &Scenario{}
	if err := yaml.UnmarshalStrict(data, scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}

func LoadScenario(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to read scenario file %q: %w", filename, err)
	}
	return ParseScenario(data)
}

func (s *Scenario) Validate() error {
	if _, err := ParseNetMode(s.NetMode); err != nil {
		return fmt.Errorf("invalid scenario %q: %w", s.Name, err)
	}
	for i, entry := range s.Spawns {
		class := FindClass(entry.Class)
		if class == nil {
			return fmt.Errorf("invalid scenario %q, spawn #%d: unknown class %q", s.Name, i, entry.Class)
		}
		if entry.Count < 0 {
			return fmt.Errorf("invalid scenario %q, spawn #%d: negative count", s.Name, i)
		}
		if entry.Controller == "" {
			continue
		}
		controllerClass := FindClass(entry.Controller)
		if controllerClass == nil || !controllerClass.IsChildOf(ControllerClass) {
			return fmt.Errorf("invalid scenario %q, spawn #%d: %q is not a controller class", s.Name, i, entry.Controller)
		}
		if !class.IsChildOf(PawnClass) {
			return fmt.Errorf("invalid scenario %q, spawn #%d: only pawns can be controlled", s.Name, i)
		}
	}
	return nil
}

// NewWorld creates a world set up by the scenario, actors are spawned on BeginPlay
func (s *Scenario) NewWorld() (*World, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	netMode, _ := ParseNetMode(s.NetMode)
	var gameMode *GameMode
	if s.GameMode != nil {
		gameMode = NewGameMode(s.GameMode.StartDelay, s.GameMode.MatchDuration)
	}
	w := NewWorld(s.Name, netMode, gameMode)
	w.scenario = s
	return w, nil
}
